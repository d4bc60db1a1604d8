package sqlite

import (
	"context"

	"github.com/swapspot/swapspot/internal/db"
)

func (s *sqliteClient) CountUsers(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM users`)
}

func (s *sqliteClient) CountActiveListings(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM listings WHERE status = ?`, db.ListingStatusActive)
}

func (s *sqliteClient) CountCompletedTrades(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM trades WHERE status = ?`, db.TradeStatusCompleted)
}

func (s *sqliteClient) CountMessages(ctx context.Context) (int64, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM messages`)
}

func (s *sqliteClient) count(ctx context.Context, query string, args ...any) (int64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var count int64
	err := s.db.GetContext(ctx, &count, query, args...)
	return count, translateErr(err)
}
