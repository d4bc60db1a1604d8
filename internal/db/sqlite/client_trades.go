package sqlite

import (
	"context"

	"github.com/swapspot/swapspot/internal/db"
)

func (s *sqliteClient) InsertTrade(ctx context.Context, trade *db.Trade) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO trades (id, initiator_id, receiver_id, listing_id, initiator_item, receiver_item, status)
		VALUES (:id, :initiator_id, :receiver_id, :listing_id, :initiator_item, :receiver_item, :status)
	`
	_, err := s.db.NamedExecContext(ctx, query, trade)
	return translateErr(err)
}

func (s *sqliteClient) UpdateTradeStatus(ctx context.Context, id, status string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.db.ExecContext(ctx, `
		UPDATE trades SET status = ?, updated_at = datetime('now') WHERE id = ?
	`, status, id)
	return translateErr(err)
}

func (s *sqliteClient) CompleteTrade(ctx context.Context, id, userID string, comment *string, rating *int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		UPDATE trades
		SET status = ?,
			completed_by = ?,
			completion_comment = ?,
			completion_rating = ?,
			updated_at = datetime('now')
		WHERE id = ?
	`
	_, err := s.db.ExecContext(ctx, query, db.TradeStatusCompleted, userID, comment, rating, id)
	return translateErr(err)
}

func (s *sqliteClient) GetTrade(ctx context.Context, id string) (*db.Trade, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var trade db.Trade
	if err := s.db.GetContext(ctx, &trade, `SELECT * FROM trades WHERE id = ?`, id); err != nil {
		return nil, translateErr(err)
	}
	return &trade, nil
}

func (s *sqliteClient) ListTradesByUser(ctx context.Context, userID string) ([]*db.Trade, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var trades []*db.Trade
	err := s.db.SelectContext(ctx, &trades, `
		SELECT * FROM trades
		WHERE initiator_id = ? OR receiver_id = ?
		ORDER BY created_at DESC
	`, userID, userID)
	return trades, translateErr(err)
}

func (s *sqliteClient) InsertTradeProposal(ctx context.Context, proposal *db.TradeProposal) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO trade_proposals (id, initiator_id, receiver_id, listing_id, offered_items, message, terms, status)
		VALUES (:id, :initiator_id, :receiver_id, :listing_id, :offered_items, :message, :terms, :status)
	`
	_, err := s.db.NamedExecContext(ctx, query, proposal)
	return translateErr(err)
}

func (s *sqliteClient) UpdateTradeProposalStatus(ctx context.Context, id, status string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		UPDATE trade_proposals
		SET status = ?,
			updated_at = datetime('now'),
			accepted_at = CASE WHEN ? = 'ACCEPTED' THEN datetime('now') ELSE accepted_at END,
			completed_at = CASE WHEN ? = 'COMPLETED' THEN datetime('now') ELSE completed_at END
		WHERE id = ?
	`
	_, err := s.db.ExecContext(ctx, query, status, status, status, id)
	return translateErr(err)
}

func (s *sqliteClient) GetTradeProposal(ctx context.Context, id string) (*db.TradeProposal, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var proposal db.TradeProposal
	if err := s.db.GetContext(ctx, &proposal, `SELECT * FROM trade_proposals WHERE id = ?`, id); err != nil {
		return nil, translateErr(err)
	}
	return &proposal, nil
}

func (s *sqliteClient) ListTradeProposalsByUser(ctx context.Context, userID string) ([]*db.TradeProposal, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var proposals []*db.TradeProposal
	err := s.db.SelectContext(ctx, &proposals, `
		SELECT * FROM trade_proposals
		WHERE initiator_id = ? OR receiver_id = ?
		ORDER BY created_at DESC
	`, userID, userID)
	return proposals, translateErr(err)
}

func (s *sqliteClient) ListTradeProposalsByListing(ctx context.Context, listingID string) ([]*db.TradeProposal, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var proposals []*db.TradeProposal
	err := s.db.SelectContext(ctx, &proposals, `
		SELECT * FROM trade_proposals
		WHERE listing_id = ?
		ORDER BY created_at DESC
	`, listingID)
	return proposals, translateErr(err)
}

func (s *sqliteClient) InsertRating(ctx context.Context, rating *db.Rating) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO ratings (id, rater_id, rated_id, trade_id, rating, comment)
		VALUES (:id, :rater_id, :rated_id, :trade_id, :rating, :comment)
	`
	_, err := s.db.NamedExecContext(ctx, query, rating)
	return translateErr(err)
}

func (s *sqliteClient) ListRatingsForUser(ctx context.Context, userID string) ([]*db.Rating, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var ratings []*db.Rating
	err := s.db.SelectContext(ctx, &ratings, `
		SELECT * FROM ratings
		WHERE rated_id = ?
		ORDER BY created_at DESC
	`, userID)
	return ratings, translateErr(err)
}

func (s *sqliteClient) AddFavorite(ctx context.Context, userID, listingID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO favorites (user_id, listing_id) VALUES (?, ?)
	`, userID, listingID)
	return translateErr(err)
}

func (s *sqliteClient) RemoveFavorite(ctx context.Context, userID, listingID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.db.ExecContext(ctx, `
		DELETE FROM favorites WHERE user_id = ? AND listing_id = ?
	`, userID, listingID)
	return translateErr(err)
}

func (s *sqliteClient) ListFavorites(ctx context.Context, userID string) ([]*db.Favorite, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var favorites []*db.Favorite
	err := s.db.SelectContext(ctx, &favorites, `
		SELECT * FROM favorites
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	return favorites, translateErr(err)
}
