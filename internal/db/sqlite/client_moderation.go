package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/swapspot/swapspot/internal/errors"

	"github.com/swapspot/swapspot/internal/db"
)

func (s *sqliteClient) InsertUserReport(ctx context.Context, report *db.UserReport) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO user_reports (id, reporter_id, reported_user_id, reason, status)
		VALUES (:id, :reporter_id, :reported_user_id, :reason, :status)
	`
	_, err := s.db.NamedExecContext(ctx, query, report)
	return translateErr(err)
}

func (s *sqliteClient) InsertBan(ctx context.Context, ban *db.Ban) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO bans (id, user_id, reason, banned_by, banned_at, banned_until, revoked)
		VALUES (:id, :user_id, :reason, :banned_by, :banned_at, :banned_until, :revoked)
	`
	_, err := s.db.NamedExecContext(ctx, query, ban)
	return translateErr(err)
}

func (s *sqliteClient) ClearBans(ctx context.Context, userID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.db.ExecContext(ctx, `UPDATE bans SET revoked = 1 WHERE user_id = ? AND revoked = 0`, userID)
	return translateErr(err)
}

func (s *sqliteClient) GetActiveBan(ctx context.Context, userID string, now time.Time) (*db.Ban, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var ban db.Ban
	err := s.db.GetContext(ctx, &ban, `
		SELECT * FROM bans
		WHERE user_id = ? AND revoked = 0
		AND (banned_until IS NULL OR banned_until > ?)
		ORDER BY banned_at DESC LIMIT 1
	`, userID, now.UTC())
	if err != nil {
		if errors.Is(translateErr(err), apperrors.ErrNotFound) {
			return nil, nil
		}
		return nil, translateErr(err)
	}
	return &ban, nil
}

func (s *sqliteClient) DeleteExpiredBans(ctx context.Context, now time.Time) (int64, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	res, err := s.db.ExecContext(ctx, `
		DELETE FROM bans
		WHERE banned_until IS NOT NULL AND banned_until <= ?
	`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired bans: %w", translateErr(err))
	}
	return res.RowsAffected()
}

func (s *sqliteClient) InsertBlock(ctx context.Context, userID, blockedUserID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO user_blocks (user_id, blocked_user_id) VALUES (?, ?)
	`, userID, blockedUserID)
	return translateErr(err)
}

func (s *sqliteClient) ListBlockedUsers(ctx context.Context, userID string) ([]string, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var blocked []string
	err := s.db.SelectContext(ctx, &blocked, `
		SELECT blocked_user_id FROM user_blocks WHERE user_id = ?
	`, userID)
	return blocked, translateErr(err)
}
