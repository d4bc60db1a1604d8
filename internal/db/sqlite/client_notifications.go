package sqlite

import (
	"context"

	"github.com/swapspot/swapspot/internal/db"
)

func (s *sqliteClient) InsertNotification(ctx context.Context, n *db.Notification) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO notifications (id, user_id, title, message, type, data, read)
		VALUES (:id, :user_id, :title, :message, :type, :data, :read)
	`
	_, err := s.db.NamedExecContext(ctx, query, n)
	return translateErr(err)
}

func (s *sqliteClient) ListNotifications(ctx context.Context, userID string, limit int) ([]*db.Notification, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	if limit <= 0 {
		limit = 50
	}
	var notifications []*db.Notification
	err := s.db.SelectContext(ctx, &notifications, `
		SELECT * FROM notifications
		WHERE user_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`, userID, limit)
	return notifications, translateErr(err)
}

func (s *sqliteClient) CountUnreadNotifications(ctx context.Context, userID string) (int64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var count int64
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM notifications WHERE user_id = ? AND read = 0
	`, userID)
	return count, translateErr(err)
}

func (s *sqliteClient) MarkNotificationRead(ctx context.Context, id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ?`, id)
	return translateErr(err)
}

func (s *sqliteClient) InsertSavedSearch(ctx context.Context, search *db.SavedSearch) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO saved_searches (id, user_id, query, filters, notifications_enabled)
		VALUES (:id, :user_id, :query, :filters, :notifications_enabled)
	`
	_, err := s.db.NamedExecContext(ctx, query, search)
	return translateErr(err)
}

func (s *sqliteClient) ListSavedSearches(ctx context.Context, userID string) ([]*db.SavedSearch, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var searches []*db.SavedSearch
	err := s.db.SelectContext(ctx, &searches, `
		SELECT * FROM saved_searches
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	return searches, translateErr(err)
}
