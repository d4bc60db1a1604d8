package sqlite

import (
	"context"
	"fmt"

	"github.com/swapspot/swapspot/internal/db"
)

func (s *sqliteClient) InsertListing(ctx context.Context, listing *db.Listing) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO listings (id, user_id, title, description, category, location, latitude, longitude,
			status, flagged, flag_reasons)
		VALUES (:id, :user_id, :title, :description, :category, :location, :latitude, :longitude,
			:status, :flagged, :flag_reasons)
	`
	_, err := s.db.NamedExecContext(ctx, query, listing)
	return translateErr(err)
}

func (s *sqliteClient) UpdateListing(ctx context.Context, listing *db.Listing) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		UPDATE listings
		SET title = :title,
			description = :description,
			category = :category,
			location = :location,
			latitude = :latitude,
			longitude = :longitude,
			status = :status,
			flagged = :flagged,
			flag_reasons = :flag_reasons,
			updated_at = datetime('now')
		WHERE id = :id
	`
	_, err := s.db.NamedExecContext(ctx, query, listing)
	return translateErr(err)
}

func (s *sqliteClient) DeleteListing(ctx context.Context, id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.db.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id)
	return translateErr(err)
}

func (s *sqliteClient) GetListing(ctx context.Context, id string) (*db.Listing, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var listing db.Listing
	if err := s.db.GetContext(ctx, &listing, `SELECT * FROM listings WHERE id = ?`, id); err != nil {
		return nil, translateErr(err)
	}
	return &listing, nil
}

func (s *sqliteClient) ListListings(ctx context.Context, filter db.ListingFilter) ([]*db.Listing, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	query := `SELECT * FROM listings WHERE status = ?`
	args := []any{db.ListingStatusActive}

	if filter.Search != "" {
		query += ` AND (title LIKE ? OR description LIKE ?)`
		pattern := "%" + filter.Search + "%"
		args = append(args, pattern, pattern)
	}
	if filter.Category != "" && filter.Category != "all" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.Location != "" && filter.Location != "all" {
		query += ` AND location LIKE ?`
		args = append(args, "%"+filter.Location+"%")
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += ` OFFSET ?`
			args = append(args, filter.Offset)
		}
	}

	var listings []*db.Listing
	if err := s.db.SelectContext(ctx, &listings, query, args...); err != nil {
		return nil, fmt.Errorf("list listings: %w", translateErr(err))
	}
	return listings, nil
}

func (s *sqliteClient) ListListingsByUser(ctx context.Context, userID string) ([]*db.Listing, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var listings []*db.Listing
	err := s.db.SelectContext(ctx, &listings, `
		SELECT * FROM listings
		WHERE user_id = ?
		ORDER BY created_at DESC
	`, userID)
	return listings, translateErr(err)
}

func (s *sqliteClient) IncrementListingViews(ctx context.Context, id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	_, err := s.db.ExecContext(ctx, `UPDATE listings SET views = views + 1 WHERE id = ?`, id)
	return translateErr(err)
}

func (s *sqliteClient) InsertListingReport(ctx context.Context, report *db.ListingReport) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		INSERT INTO listing_reports (id, listing_id, reporter_id, reason, status)
		VALUES (:id, :listing_id, :reporter_id, :reason, :status)
	`
	_, err := s.db.NamedExecContext(ctx, query, report)
	return translateErr(err)
}

func (s *sqliteClient) GetListingReport(ctx context.Context, id string) (*db.ListingReport, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var report db.ListingReport
	if err := s.db.GetContext(ctx, &report, `SELECT * FROM listing_reports WHERE id = ?`, id); err != nil {
		return nil, translateErr(err)
	}
	return &report, nil
}

func (s *sqliteClient) ListPendingListingReports(ctx context.Context) ([]*db.ListingReport, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var reports []*db.ListingReport
	err := s.db.SelectContext(ctx, &reports, `
		SELECT * FROM listing_reports
		WHERE status = ?
		ORDER BY created_at DESC
	`, db.ReportStatusPending)
	return reports, translateErr(err)
}

func (s *sqliteClient) ResolveListingReport(ctx context.Context, reportID, status, adminID string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	query := `
		UPDATE listing_reports
		SET status = ?, resolved_by = ?, resolved_at = datetime('now')
		WHERE id = ?
	`
	_, err := s.db.ExecContext(ctx, query, status, adminID, reportID)
	return translateErr(err)
}

func (s *sqliteClient) CountPendingListingReports(ctx context.Context) (int64, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var count int64
	err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM listing_reports WHERE status = ?`, db.ReportStatusPending)
	return count, translateErr(err)
}
