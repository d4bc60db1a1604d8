package marketplace

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/swapspot/swapspot/internal/db"
	apperrors "github.com/swapspot/swapspot/internal/errors"
	"github.com/swapspot/swapspot/internal/moderation"
)

func testClassifier(t *testing.T) *moderation.Classifier {
	t.Helper()
	rules, err := moderation.LoadRules("")
	if err != nil {
		t.Fatalf("load rules: %v", err)
	}
	c, err := moderation.NewClassifier(rules)
	if err != nil {
		t.Fatalf("new classifier: %v", err)
	}
	return c
}

type fakeListingStore struct {
	mu       sync.Mutex
	listings map[string]*db.Listing
	reports  []*db.ListingReport
}

func newFakeListingStore() *fakeListingStore {
	return &fakeListingStore{listings: map[string]*db.Listing{}}
}

func (s *fakeListingStore) InsertListing(_ context.Context, listing *db.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *listing
	s.listings[listing.ID] = &copied
	return nil
}

func (s *fakeListingStore) UpdateListing(_ context.Context, listing *db.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.listings[listing.ID]; !ok {
		return apperrors.ErrNotFound
	}
	copied := *listing
	s.listings[listing.ID] = &copied
	return nil
}

func (s *fakeListingStore) DeleteListing(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listings, id)
	return nil
}

func (s *fakeListingStore) GetListing(_ context.Context, id string) (*db.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	listing, ok := s.listings[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *listing
	return &copied, nil
}

func (s *fakeListingStore) ListListings(_ context.Context, _ db.ListingFilter) ([]*db.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*db.Listing
	for _, listing := range s.listings {
		out = append(out, listing)
	}
	return out, nil
}

func (s *fakeListingStore) ListListingsByUser(_ context.Context, userID string) ([]*db.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*db.Listing
	for _, listing := range s.listings {
		if listing.UserID == userID {
			out = append(out, listing)
		}
	}
	return out, nil
}

func (s *fakeListingStore) IncrementListingViews(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if listing, ok := s.listings[id]; ok {
		listing.Views++
	}
	return nil
}

func (s *fakeListingStore) InsertListingReport(_ context.Context, report *db.ListingReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, report)
	return nil
}

func (s *fakeListingStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listings)
}

func TestCreateListingValidation(t *testing.T) {
	t.Parallel()
	store := newFakeListingStore()
	listings := NewListings(store, testClassifier(t))

	cases := []CreateListingInput{
		{UserID: "u1", Description: "nice chair", Category: "furniture"},
		{UserID: "u1", Title: "Chair", Category: "furniture"},
		{UserID: "u1", Title: "Chair", Description: "nice chair"},
		{Title: "Chair", Description: "nice chair", Category: "furniture"},
		{UserID: "u1", Title: "   ", Description: "nice chair", Category: "furniture"},
	}
	for i, input := range cases {
		if _, err := listings.Create(context.Background(), input); !errors.Is(err, apperrors.ErrInvalidInput) {
			t.Errorf("case %d: err = %v, want ErrInvalidInput", i, err)
		}
	}
	if store.count() != 0 {
		t.Fatalf("invalid input reached the store, %d rows", store.count())
	}
}

func TestCreateCleanListingGoesActive(t *testing.T) {
	t.Parallel()
	store := newFakeListingStore()
	listings := NewListings(store, testClassifier(t))

	listing, err := listings.Create(context.Background(), CreateListingInput{
		UserID:      "u1",
		Title:       "Vintage chair",
		Description: "Would swap for a bookshelf",
		Category:    "furniture",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if listing.Status != db.ListingStatusActive {
		t.Fatalf("status = %q, want ACTIVE", listing.Status)
	}
	if listing.Flagged || len(listing.FlagReasons) != 0 {
		t.Fatalf("clean listing flagged: %v", listing.FlagReasons)
	}
	if listing.ID == "" {
		t.Fatal("listing has no id")
	}
}

func TestCreateFlaggedListingHeldForReview(t *testing.T) {
	t.Parallel()
	store := newFakeListingStore()
	listings := NewListings(store, testClassifier(t))

	listing, err := listings.Create(context.Background(), CreateListingInput{
		UserID:      "u1",
		Title:       "Selling my bike",
		Description: "cash only",
		Category:    "sports",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if listing.Status != db.ListingStatusPendingReview {
		t.Fatalf("status = %q, want PENDING_REVIEW", listing.Status)
	}
	if !listing.Flagged || len(listing.FlagReasons) == 0 {
		t.Fatal("expected flag reasons on a flagged listing")
	}

	stored, err := listings.Get(context.Background(), listing.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.Status != db.ListingStatusPendingReview {
		t.Fatalf("stored status = %q", stored.Status)
	}
}

func TestUpdateReclassifies(t *testing.T) {
	t.Parallel()
	store := newFakeListingStore()
	listings := NewListings(store, testClassifier(t))
	ctx := context.Background()

	flagged, err := listings.Create(ctx, CreateListingInput{
		UserID:      "u1",
		Title:       "Selling my bike",
		Description: "cash only",
		Category:    "sports",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	updated, err := listings.Update(ctx, flagged.ID, "u1", UpdateListingInput{
		Title:       "Trading my bike",
		Description: "looking for a skateboard",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Status != db.ListingStatusActive || updated.Flagged {
		t.Fatalf("cleaned listing not reactivated: status=%q flagged=%v", updated.Status, updated.Flagged)
	}
}

func TestUpdateRequiresOwnership(t *testing.T) {
	t.Parallel()
	store := newFakeListingStore()
	listings := NewListings(store, testClassifier(t))
	ctx := context.Background()

	listing, err := listings.Create(ctx, CreateListingInput{
		UserID:      "u1",
		Title:       "Vintage chair",
		Description: "Would swap for a bookshelf",
		Category:    "furniture",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := listings.Update(ctx, listing.ID, "u2", UpdateListingInput{Title: "Mine now"}); !errors.Is(err, apperrors.ErrAuthRequired) {
		t.Fatalf("Update by stranger: %v, want ErrAuthRequired", err)
	}
	if err := listings.Delete(ctx, listing.ID, "u2"); !errors.Is(err, apperrors.ErrAuthRequired) {
		t.Fatalf("Delete by stranger: %v, want ErrAuthRequired", err)
	}
}

func TestReportListing(t *testing.T) {
	t.Parallel()
	store := newFakeListingStore()
	listings := NewListings(store, testClassifier(t))
	ctx := context.Background()

	listing, err := listings.Create(ctx, CreateListingInput{
		UserID:      "u1",
		Title:       "Vintage chair",
		Description: "Would swap for a bookshelf",
		Category:    "furniture",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := listings.Report(ctx, listing.ID, "u2", "  "); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("empty reason = %v, want ErrInvalidInput", err)
	}
	if _, err := listings.Report(ctx, "missing", "u2", "it is a scam"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("missing listing = %v, want ErrNotFound", err)
	}

	report, err := listings.Report(ctx, listing.ID, "u2", "it is a scam")
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if report.Status != db.ReportStatusPending || report.ListingID != listing.ID {
		t.Fatalf("report = %+v", report)
	}
	if len(store.reports) != 1 {
		t.Fatalf("stored reports = %d", len(store.reports))
	}
}

func TestGetMissingListing(t *testing.T) {
	t.Parallel()
	listings := NewListings(newFakeListingStore(), testClassifier(t))

	_, err := listings.Get(context.Background(), "nope")
	if !errors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	var storeErr *apperrors.StoreError
	if !errors.As(err, &storeErr) || storeErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND store error, got %v", err)
	}
}

func TestNearbyFiltersByDistance(t *testing.T) {
	t.Parallel()

	coords := func(lat, lng float64) (*float64, *float64) { return &lat, &lng }

	store := newFakeListingStore()
	nearLat, nearLng := coords(52.53, 13.41)
	farLat, farLng := coords(48.137, 11.575)
	store.listings["near"] = &db.Listing{ID: "near", Latitude: nearLat, Longitude: nearLng}
	store.listings["far"] = &db.Listing{ID: "far", Latitude: farLat, Longitude: farLng}
	store.listings["nowhere"] = &db.Listing{ID: "nowhere"}

	svc := NewListings(store, testClassifier(t))
	// Center on Berlin with the default radius: the Munich listing is
	// hundreds of kilometers out, the coordinate-less one always shows.
	got, err := svc.Nearby(context.Background(), 52.52, 13.405, 0)
	if err != nil {
		t.Fatalf("Nearby: %v", err)
	}

	found := map[string]bool{}
	for _, listing := range got {
		found[listing.ID] = true
	}
	if !found["near"] || !found["nowhere"] || found["far"] {
		t.Fatalf("nearby ids = %v", found)
	}

	// A radius wide enough to cover the distance brings it back.
	got, err = svc.Nearby(context.Background(), 52.52, 13.405, 600)
	if err != nil {
		t.Fatalf("Nearby wide: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("wide radius returned %d listings, want 3", len(got))
	}
}
