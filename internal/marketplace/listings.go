package marketplace

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/pborman/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/swapspot/swapspot/internal/db"
	apperrors "github.com/swapspot/swapspot/internal/errors"
	"github.com/swapspot/swapspot/internal/event"
	"github.com/swapspot/swapspot/internal/moderation"
	"github.com/swapspot/swapspot/internal/observability"
)

type eventPublisher interface {
	Publish(e event.Event)
}

type listingStore interface {
	InsertListing(ctx context.Context, listing *db.Listing) error
	UpdateListing(ctx context.Context, listing *db.Listing) error
	DeleteListing(ctx context.Context, id string) error
	GetListing(ctx context.Context, id string) (*db.Listing, error)
	ListListings(ctx context.Context, filter db.ListingFilter) ([]*db.Listing, error)
	ListListingsByUser(ctx context.Context, userID string) ([]*db.Listing, error)
	IncrementListingViews(ctx context.Context, id string) error
	InsertListingReport(ctx context.Context, report *db.ListingReport) error
}

type classifier interface {
	Classify(ctx context.Context, title, body string) moderation.Verdict
}

// Listings publishes and maintains trade posts. Every create and update runs
// through the classifier; flagged posts are parked in pending review instead
// of going live.
type Listings struct {
	store      listingStore
	classifier classifier
	events     eventPublisher
	logger     *log.Entry
}

func NewListings(store listingStore, classifier classifier) *Listings {
	return &Listings{
		store:      store,
		classifier: classifier,
		logger:     log.WithField("object", "Listings"),
	}
}

// WithEvents attaches an event publisher; without one, hold events are
// simply not emitted.
func (l *Listings) WithEvents(events eventPublisher) *Listings {
	l.events = events
	return l
}

func (l *Listings) publishHeld(listing *db.Listing) {
	if l.events == nil {
		return
	}
	l.events.Publish(event.ListingHeld{
		Base:      event.NewBase(event.TypeListingHeld, 0),
		ListingID: listing.ID,
		OwnerID:   listing.UserID,
		Reasons:   listing.FlagReasons,
	})
}

type CreateListingInput struct {
	UserID      string
	Title       string
	Description string
	Category    string
	Location    string
	Latitude    *float64
	Longitude   *float64
}

func (i *CreateListingInput) validate() error {
	required := []struct {
		field string
		value string
	}{
		{"user id", i.UserID},
		{"title", i.Title},
		{"description", i.Description},
		{"category", i.Category},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return fmt.Errorf("%w: %s is required", apperrors.ErrInvalidInput, r.field)
		}
	}
	return nil
}

// Create validates, classifies and stores a new listing. Nothing is written
// when validation fails.
func (l *Listings) Create(ctx context.Context, input CreateListingInput) (*db.Listing, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	verdict := l.classifier.Classify(ctx, input.Title, input.Description)
	listing := &db.Listing{
		ID:          uuid.New(),
		UserID:      input.UserID,
		Title:       input.Title,
		Description: input.Description,
		Category:    input.Category,
		Location:    input.Location,
		Latitude:    input.Latitude,
		Longitude:   input.Longitude,
		Status:      db.ListingStatusActive,
		Flagged:     verdict.Flagged,
		FlagReasons: verdict.Reasons,
	}
	if verdict.Flagged {
		listing.Status = db.ListingStatusPendingReview
		observability.RecordContentFlagged("listing")
		l.logger.WithField("listing_id", listing.ID).WithField("reasons", verdict.Reasons).
			Info("listing held for review")
	}

	if err := l.store.InsertListing(ctx, listing); err != nil {
		return nil, apperrors.WrapStore("insert listing", err)
	}
	if verdict.Flagged {
		l.publishHeld(listing)
	}
	return listing, nil
}

type UpdateListingInput struct {
	Title       string
	Description string
	Category    string
	Location    string
}

// Update applies edits after an ownership check and re-runs the classifier
// so that an edit cannot launder a flagged post into an active one.
func (l *Listings) Update(ctx context.Context, listingID, userID string, input UpdateListingInput) (*db.Listing, error) {
	listing, err := l.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, apperrors.WrapStore("get listing", err)
	}
	if listing.UserID != userID {
		return nil, fmt.Errorf("%w: listing belongs to another user", apperrors.ErrAuthRequired)
	}

	if input.Title != "" {
		listing.Title = input.Title
	}
	if input.Description != "" {
		listing.Description = input.Description
	}
	if input.Category != "" {
		listing.Category = input.Category
	}
	if input.Location != "" {
		listing.Location = input.Location
	}

	verdict := l.classifier.Classify(ctx, listing.Title, listing.Description)
	listing.Flagged = verdict.Flagged
	listing.FlagReasons = verdict.Reasons
	if listing.Status == db.ListingStatusActive || listing.Status == db.ListingStatusPendingReview {
		if verdict.Flagged {
			listing.Status = db.ListingStatusPendingReview
			observability.RecordContentFlagged("listing")
		} else {
			listing.Status = db.ListingStatusActive
		}
	}

	if err := l.store.UpdateListing(ctx, listing); err != nil {
		return nil, apperrors.WrapStore("update listing", err)
	}
	if listing.Status == db.ListingStatusPendingReview && verdict.Flagged {
		l.publishHeld(listing)
	}
	return listing, nil
}

func (l *Listings) Delete(ctx context.Context, listingID, userID string) error {
	listing, err := l.store.GetListing(ctx, listingID)
	if err != nil {
		return apperrors.WrapStore("get listing", err)
	}
	if listing.UserID != userID {
		return fmt.Errorf("%w: listing belongs to another user", apperrors.ErrAuthRequired)
	}
	if err := l.store.DeleteListing(ctx, listingID); err != nil {
		return apperrors.WrapStore("delete listing", err)
	}
	return nil
}

func (l *Listings) Get(ctx context.Context, listingID string) (*db.Listing, error) {
	listing, err := l.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, apperrors.WrapStore("get listing", err)
	}
	return listing, nil
}

func (l *Listings) ListByUser(ctx context.Context, userID string) ([]*db.Listing, error) {
	listings, err := l.store.ListListingsByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.WrapStore("list listings by user", err)
	}
	return listings, nil
}

func (l *Listings) List(ctx context.Context, filter db.ListingFilter) ([]*db.Listing, error) {
	listings, err := l.store.ListListings(ctx, filter)
	if err != nil {
		return nil, apperrors.WrapStore("list listings", err)
	}
	return listings, nil
}

const defaultRadiusKm = 10

// Nearby returns active listings within radiusKm of the given point. Listings
// without coordinates are included rather than dropped; posting a location is
// optional. A non-positive radius falls back to the default.
func (l *Listings) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]*db.Listing, error) {
	if radiusKm <= 0 {
		radiusKm = defaultRadiusKm
	}
	listings, err := l.store.ListListings(ctx, db.ListingFilter{})
	if err != nil {
		return nil, apperrors.WrapStore("list listings", err)
	}

	nearby := listings[:0]
	for _, listing := range listings {
		if listing.Latitude == nil || listing.Longitude == nil {
			nearby = append(nearby, listing)
			continue
		}
		if haversineKm(lat, lng, *listing.Latitude, *listing.Longitude) <= radiusKm {
			nearby = append(nearby, listing)
		}
	}
	return nearby, nil
}

// haversineKm is the great-circle distance between two points in kilometers.
func haversineKm(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadiusKm = 6371

	dLat := (lat2 - lat1) * math.Pi / 180
	dLng := (lng2 - lng1) * math.Pi / 180
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1*math.Pi/180)*math.Cos(lat2*math.Pi/180)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

// Report files a user complaint about a listing into the review queue.
func (l *Listings) Report(ctx context.Context, listingID, reporterID, reason string) (*db.ListingReport, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, fmt.Errorf("%w: reason is required", apperrors.ErrInvalidInput)
	}
	if _, err := l.store.GetListing(ctx, listingID); err != nil {
		return nil, apperrors.WrapStore("get listing", err)
	}

	report := &db.ListingReport{
		ID:         uuid.New(),
		ListingID:  listingID,
		ReporterID: reporterID,
		Reason:     reason,
		Status:     db.ReportStatusPending,
	}
	if err := l.store.InsertListingReport(ctx, report); err != nil {
		return nil, apperrors.WrapStore("insert listing report", err)
	}
	return report, nil
}

// IncrementViews bumps the view counter. Best effort; callers log and move on.
func (l *Listings) IncrementViews(ctx context.Context, listingID string) error {
	if err := l.store.IncrementListingViews(ctx, listingID); err != nil {
		return apperrors.WrapStore("increment views", err)
	}
	return nil
}
