package sqlite

import (
	"context"
	"fmt"

	"github.com/swapspot/swapspot/internal/db"
)

func (s *sqliteClient) UpsertUser(ctx context.Context, user *db.User) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO users (id, email, name, avatar, location, bio, phone, role, email_verified, phone_verified)
		VALUES (:id, :email, :name, :avatar, :location, :bio, :phone, :role, :email_verified, :phone_verified)
		ON CONFLICT(id) DO UPDATE SET
		email=excluded.email,
		name=excluded.name,
		avatar=excluded.avatar,
		location=excluded.location,
		bio=excluded.bio,
		phone=excluded.phone,
		role=excluded.role,
		email_verified=excluded.email_verified,
		phone_verified=excluded.phone_verified
	`
	_, err := s.db.NamedExecContext(ctx, query, user)
	return translateErr(err)
}

func (s *sqliteClient) GetUser(ctx context.Context, id string) (*db.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var user db.User
	if err := s.db.GetContext(ctx, &user, `SELECT * FROM users WHERE id = ?`, id); err != nil {
		return nil, translateErr(err)
	}
	return &user, nil
}

func (s *sqliteClient) ListUsers(ctx context.Context, filter db.UserFilter) ([]*db.User, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	query := `SELECT u.* FROM users u`
	where := ` WHERE 1=1`
	args := []any{}

	if filter.Banned != nil {
		sub := `EXISTS (
			SELECT 1 FROM bans b WHERE b.user_id = u.id AND b.revoked = 0
			AND (b.banned_until IS NULL OR b.banned_until > datetime('now'))
		)`
		if *filter.Banned {
			where += ` AND ` + sub
		} else {
			where += ` AND NOT ` + sub
		}
	}
	if filter.Role != "" {
		where += ` AND u.role = ?`
		args = append(args, filter.Role)
	}

	var users []*db.User
	err := s.db.SelectContext(ctx, &users, query+where+` ORDER BY u.created_at DESC`, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", translateErr(err))
	}
	return users, nil
}
