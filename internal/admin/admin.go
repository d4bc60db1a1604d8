package admin

import (
	"context"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/swapspot/swapspot/internal/adapters"
	"github.com/swapspot/swapspot/internal/adapters/llm"
	"github.com/swapspot/swapspot/internal/db"
	apperrors "github.com/swapspot/swapspot/internal/errors"
	"github.com/swapspot/swapspot/internal/policy/permissions"
)

type adminStore interface {
	GetListingReport(ctx context.Context, id string) (*db.ListingReport, error)
	ListPendingListingReports(ctx context.Context) ([]*db.ListingReport, error)
	ResolveListingReport(ctx context.Context, reportID, status, adminID string) error
	CountPendingListingReports(ctx context.Context) (int64, error)
	GetListing(ctx context.Context, id string) (*db.Listing, error)
	UpdateListing(ctx context.Context, listing *db.Listing) error
	GetUser(ctx context.Context, id string) (*db.User, error)
	ListUsers(ctx context.Context, filter db.UserFilter) ([]*db.User, error)
	CountUsers(ctx context.Context) (int64, error)
	CountActiveListings(ctx context.Context) (int64, error)
	CountCompletedTrades(ctx context.Context) (int64, error)
	CountMessages(ctx context.Context) (int64, error)
}

type moderator interface {
	BanUser(ctx context.Context, userID, reason, bannedBy string, durationDays int) (*db.Ban, error)
	UnbanUser(ctx context.Context, userID string) error
}

// Service backs the admin surface: the moderation queue, report resolution,
// explicit bans and platform numbers. The LLM assistant is optional; without
// it queue items simply carry no opinion.
type Service struct {
	store     adminStore
	moderator moderator
	assistant adapters.LLM
	logger    *log.Entry
}

func New(store adminStore, moderator moderator, assistant adapters.LLM) *Service {
	return &Service{
		store:     store,
		moderator: moderator,
		assistant: assistant,
		logger:    log.WithField("object", "AdminService"),
	}
}

func (s *Service) requireModerator(ctx context.Context, adminID string) error {
	user, err := s.store.GetUser(ctx, adminID)
	if err != nil {
		return fmt.Errorf("%w: unknown admin %q", apperrors.ErrAuthRequired, adminID)
	}
	if !permissions.CanModerate(user) {
		return fmt.Errorf("%w: %q has no moderation rights", apperrors.ErrAuthRequired, adminID)
	}
	return nil
}

// QueueItem is a pending listing report joined with what an admin needs to
// decide it.
type QueueItem struct {
	Report   *db.ListingReport
	Listing  *db.Listing
	Reporter *db.User
	Opinion  *llm.ReviewOpinion
}

// Queue returns pending reports with their listings and reporters resolved.
// A report whose listing has disappeared is skipped; the assistant opinion
// is advisory and its failure never fails the queue.
func (s *Service) Queue(ctx context.Context) ([]*QueueItem, error) {
	reports, err := s.store.ListPendingListingReports(ctx)
	if err != nil {
		return nil, apperrors.WrapStore("list pending reports", err)
	}

	var items []*QueueItem
	for _, report := range reports {
		listing, err := s.store.GetListing(ctx, report.ListingID)
		if err != nil {
			s.logger.WithError(err).WithField("report_id", report.ID).Warn("report without listing, skipping")
			continue
		}
		item := &QueueItem{Report: report, Listing: listing}

		if reporter, err := s.store.GetUser(ctx, report.ReporterID); err == nil {
			item.Reporter = reporter
		} else {
			s.logger.WithError(err).WithField("report_id", report.ID).Debug("reporter lookup failed")
		}

		if s.assistant != nil {
			content := listing.Title + "\n" + listing.Description
			reasons := append([]string{"reported: " + report.Reason}, listing.FlagReasons...)
			if opinion, err := s.assistant.ReviewReport(ctx, content, reasons); err == nil {
				item.Opinion = &opinion
			} else {
				s.logger.WithError(err).WithField("report_id", report.ID).Warn("review assistant failed")
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// ResolveReport decides a pending report. Approving removes the listing,
// rejecting reinstates it when the flag held it in review.
func (s *Service) ResolveReport(ctx context.Context, reportID, action, adminID string) error {
	switch action {
	case db.ReportStatusApproved, db.ReportStatusRejected:
	default:
		return fmt.Errorf("%w: unsupported action %q", apperrors.ErrInvalidInput, action)
	}
	if err := s.requireModerator(ctx, adminID); err != nil {
		return err
	}

	report, err := s.store.GetListingReport(ctx, reportID)
	if err != nil {
		return apperrors.WrapStore("get report", err)
	}
	if report.Status != db.ReportStatusPending {
		return fmt.Errorf("%w: report already resolved", apperrors.ErrInvalidInput)
	}

	if err := s.store.ResolveListingReport(ctx, reportID, action, adminID); err != nil {
		return apperrors.WrapStore("resolve report", err)
	}

	listing, err := s.store.GetListing(ctx, report.ListingID)
	if err != nil {
		// The report is resolved either way; a vanished listing needs no
		// status change.
		s.logger.WithError(err).WithField("report_id", reportID).Warn("resolved report for missing listing")
		return nil
	}

	switch action {
	case db.ReportStatusApproved:
		listing.Status = db.ListingStatusRemoved
	case db.ReportStatusRejected:
		if listing.Status == db.ListingStatusPendingReview {
			listing.Status = db.ListingStatusActive
		} else {
			return nil
		}
	}
	if err := s.store.UpdateListing(ctx, listing); err != nil {
		return apperrors.WrapStore("update listing", err)
	}
	return nil
}

// BanUser issues an explicit admin ban. durationDays 0 means permanent.
func (s *Service) BanUser(ctx context.Context, userID, reason, adminID string, durationDays int) (*db.Ban, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: ban reason is required", apperrors.ErrInvalidInput)
	}
	if durationDays < 0 {
		return nil, fmt.Errorf("%w: duration cannot be negative", apperrors.ErrInvalidInput)
	}
	if err := s.requireModerator(ctx, adminID); err != nil {
		return nil, err
	}
	ban, err := s.moderator.BanUser(ctx, userID, reason, adminID, durationDays)
	if err != nil {
		return nil, err
	}
	s.logger.WithField("user_id", userID).WithField("admin_id", adminID).Info("user banned")
	return ban, nil
}

func (s *Service) UnbanUser(ctx context.Context, userID, adminID string) error {
	if err := s.requireModerator(ctx, adminID); err != nil {
		return err
	}
	if err := s.moderator.UnbanUser(ctx, userID); err != nil {
		return err
	}
	s.logger.WithField("user_id", userID).WithField("admin_id", adminID).Info("user unbanned")
	return nil
}

func (s *Service) Users(ctx context.Context, filter db.UserFilter) ([]*db.User, error) {
	users, err := s.store.ListUsers(ctx, filter)
	if err != nil {
		return nil, apperrors.WrapStore("list users", err)
	}
	return users, nil
}

type SystemStats struct {
	Users           int64
	ActiveListings  int64
	CompletedTrades int64
	Messages        int64
	PendingReports  int64
}

func (s *Service) Stats(ctx context.Context) (*SystemStats, error) {
	stats := &SystemStats{}
	var err error
	if stats.Users, err = s.store.CountUsers(ctx); err != nil {
		return nil, apperrors.WrapStore("count users", err)
	}
	if stats.ActiveListings, err = s.store.CountActiveListings(ctx); err != nil {
		return nil, apperrors.WrapStore("count active listings", err)
	}
	if stats.CompletedTrades, err = s.store.CountCompletedTrades(ctx); err != nil {
		return nil, apperrors.WrapStore("count completed trades", err)
	}
	if stats.Messages, err = s.store.CountMessages(ctx); err != nil {
		return nil, apperrors.WrapStore("count messages", err)
	}
	if stats.PendingReports, err = s.store.CountPendingListingReports(ctx); err != nil {
		return nil, apperrors.WrapStore("count pending reports", err)
	}
	return stats, nil
}
