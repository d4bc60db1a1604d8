package db

import (
	"context"
	"time"
)

// ListingFilter narrows List results. Zero values mean "no constraint".
type ListingFilter struct {
	Search   string
	Category string
	Location string
	Limit    int
	Offset   int
}

// UserFilter narrows ListUsers results.
type UserFilter struct {
	Role   string
	Banned *bool
}

// Client is the full data-access facade. Consumers declare narrower
// interfaces over the subset they actually use.
type Client interface {
	Close() error

	// Users
	UpsertUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]*User, error)

	// Listings
	InsertListing(ctx context.Context, listing *Listing) error
	UpdateListing(ctx context.Context, listing *Listing) error
	DeleteListing(ctx context.Context, id string) error
	GetListing(ctx context.Context, id string) (*Listing, error)
	ListListings(ctx context.Context, filter ListingFilter) ([]*Listing, error)
	ListListingsByUser(ctx context.Context, userID string) ([]*Listing, error)
	IncrementListingViews(ctx context.Context, id string) error

	// Listing reports
	InsertListingReport(ctx context.Context, report *ListingReport) error
	GetListingReport(ctx context.Context, id string) (*ListingReport, error)
	ListPendingListingReports(ctx context.Context) ([]*ListingReport, error)
	ResolveListingReport(ctx context.Context, reportID, status, adminID string) error
	CountPendingListingReports(ctx context.Context) (int64, error)

	// Messages
	InsertMessage(ctx context.Context, msg *Message) error
	InsertMessageAttachment(ctx context.Context, att *MessageAttachment) error
	ListMessageAttachments(ctx context.Context, messageID string) ([]*MessageAttachment, error)
	ListMessagesWithUser(ctx context.Context, userID string) ([]*Message, error)
	ListConversation(ctx context.Context, userID, otherUserID string, listingID *string) ([]*Message, error)
	MarkMessagesRead(ctx context.Context, ids []string) error

	// Moderation
	InsertUserReport(ctx context.Context, report *UserReport) error
	InsertBan(ctx context.Context, ban *Ban) error
	ClearBans(ctx context.Context, userID string) error
	GetActiveBan(ctx context.Context, userID string, now time.Time) (*Ban, error)
	DeleteExpiredBans(ctx context.Context, now time.Time) (int64, error)
	InsertBlock(ctx context.Context, userID, blockedUserID string) error
	ListBlockedUsers(ctx context.Context, userID string) ([]string, error)

	// Trades
	InsertTrade(ctx context.Context, trade *Trade) error
	UpdateTradeStatus(ctx context.Context, id, status string) error
	CompleteTrade(ctx context.Context, id, userID string, comment *string, rating *int) error
	GetTrade(ctx context.Context, id string) (*Trade, error)
	ListTradesByUser(ctx context.Context, userID string) ([]*Trade, error)

	// Trade proposals
	InsertTradeProposal(ctx context.Context, proposal *TradeProposal) error
	UpdateTradeProposalStatus(ctx context.Context, id, status string) error
	GetTradeProposal(ctx context.Context, id string) (*TradeProposal, error)
	ListTradeProposalsByUser(ctx context.Context, userID string) ([]*TradeProposal, error)
	ListTradeProposalsByListing(ctx context.Context, listingID string) ([]*TradeProposal, error)

	// Ratings
	InsertRating(ctx context.Context, rating *Rating) error
	ListRatingsForUser(ctx context.Context, userID string) ([]*Rating, error)

	// Favorites
	AddFavorite(ctx context.Context, userID, listingID string) error
	RemoveFavorite(ctx context.Context, userID, listingID string) error
	ListFavorites(ctx context.Context, userID string) ([]*Favorite, error)

	// Notifications
	InsertNotification(ctx context.Context, n *Notification) error
	ListNotifications(ctx context.Context, userID string, limit int) ([]*Notification, error)
	CountUnreadNotifications(ctx context.Context, userID string) (int64, error)
	MarkNotificationRead(ctx context.Context, id string) error

	// Saved searches
	InsertSavedSearch(ctx context.Context, s *SavedSearch) error
	ListSavedSearches(ctx context.Context, userID string) ([]*SavedSearch, error)

	// Stats
	CountUsers(ctx context.Context) (int64, error)
	CountActiveListings(ctx context.Context) (int64, error)
	CountCompletedTrades(ctx context.Context) (int64, error)
	CountMessages(ctx context.Context) (int64, error)

	// KV
	GetKV(ctx context.Context, key string) (string, error)
	SetKV(ctx context.Context, key string, value string) error
}
