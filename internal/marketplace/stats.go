package marketplace

import (
	"context"
	"math"

	"github.com/swapspot/swapspot/internal/db"
	apperrors "github.com/swapspot/swapspot/internal/errors"
)

const (
	BadgeTrustedTrader = "Trusted Trader"
	BadgeTopRated      = "Top Rated"
	BadgeVeteranTrader = "Veteran Trader"
)

type statsStore interface {
	ListListingsByUser(ctx context.Context, userID string) ([]*db.Listing, error)
	ListTradesByUser(ctx context.Context, userID string) ([]*db.Trade, error)
	ListTradeProposalsByUser(ctx context.Context, userID string) ([]*db.TradeProposal, error)
	ListRatingsForUser(ctx context.Context, userID string) ([]*db.Rating, error)
	CountUsers(ctx context.Context) (int64, error)
	CountActiveListings(ctx context.Context) (int64, error)
	CountCompletedTrades(ctx context.Context) (int64, error)
	CountMessages(ctx context.Context) (int64, error)
}

type UserStats struct {
	TotalListings   int
	ActiveListings  int
	TotalViews      int64
	CompletedTrades int
	// ResponseRate is the percentage of the user's trade proposals, sent or
	// received, that moved out of PENDING. Rounded to a whole percent.
	ResponseRate  int
	AverageRating float64
	TotalRatings  int
	Badges        []string
}

type PlatformStats struct {
	Users           int64
	ActiveListings  int64
	CompletedTrades int64
	Messages        int64
}

type Stats struct {
	store statsStore
}

func NewStats(store statsStore) *Stats {
	return &Stats{store: store}
}

func (s *Stats) ForUser(ctx context.Context, userID string) (*UserStats, error) {
	listings, err := s.store.ListListingsByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.WrapStore("list listings", err)
	}
	trades, err := s.store.ListTradesByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.WrapStore("list trades", err)
	}
	proposals, err := s.store.ListTradeProposalsByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.WrapStore("list proposals", err)
	}
	ratings, err := s.store.ListRatingsForUser(ctx, userID)
	if err != nil {
		return nil, apperrors.WrapStore("list ratings", err)
	}

	stats := &UserStats{
		TotalListings: len(listings),
		TotalRatings:  len(ratings),
	}
	for _, listing := range listings {
		stats.TotalViews += listing.Views
		if listing.Status == db.ListingStatusActive {
			stats.ActiveListings++
		}
	}
	for _, trade := range trades {
		if trade.Status == db.TradeStatusCompleted {
			stats.CompletedTrades++
		}
	}
	if len(proposals) > 0 {
		answered := 0
		for _, proposal := range proposals {
			if proposal.Status != db.TradeStatusPending {
				answered++
			}
		}
		stats.ResponseRate = int(math.Round(float64(answered) / float64(len(proposals)) * 100))
	}
	if len(ratings) > 0 {
		total := 0
		for _, rating := range ratings {
			total += rating.Rating
		}
		stats.AverageRating = float64(total) / float64(len(ratings))
	}
	stats.Badges = badges(stats)
	return stats, nil
}

// badges derives display badges from accumulated stats. Thresholds are fixed
// product numbers, not configuration.
func badges(stats *UserStats) []string {
	var earned []string
	if stats.CompletedTrades >= 5 && stats.AverageRating >= 4.5 {
		earned = append(earned, BadgeTrustedTrader)
	}
	if stats.AverageRating >= 4.8 {
		earned = append(earned, BadgeTopRated)
	}
	if stats.CompletedTrades >= 10 {
		earned = append(earned, BadgeVeteranTrader)
	}
	return earned
}

func (s *Stats) Platform(ctx context.Context) (*PlatformStats, error) {
	users, err := s.store.CountUsers(ctx)
	if err != nil {
		return nil, apperrors.WrapStore("count users", err)
	}
	listings, err := s.store.CountActiveListings(ctx)
	if err != nil {
		return nil, apperrors.WrapStore("count active listings", err)
	}
	trades, err := s.store.CountCompletedTrades(ctx)
	if err != nil {
		return nil, apperrors.WrapStore("count completed trades", err)
	}
	messages, err := s.store.CountMessages(ctx)
	if err != nil {
		return nil, apperrors.WrapStore("count messages", err)
	}

	return &PlatformStats{
		Users:           users,
		ActiveListings:  listings,
		CompletedTrades: trades,
		Messages:        messages,
	}, nil
}
