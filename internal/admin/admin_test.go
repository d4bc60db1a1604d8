package admin

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/swapspot/swapspot/internal/adapters/llm"
	"github.com/swapspot/swapspot/internal/db"
	apperrors "github.com/swapspot/swapspot/internal/errors"
	"github.com/swapspot/swapspot/internal/policy/permissions"
)

type fakeAdminStore struct {
	mu       sync.Mutex
	reports  map[string]*db.ListingReport
	listings map[string]*db.Listing
	users    map[string]*db.User
}

func newFakeAdminStore() *fakeAdminStore {
	return &fakeAdminStore{
		reports:  map[string]*db.ListingReport{},
		listings: map[string]*db.Listing{},
		users:    map[string]*db.User{},
	}
}

func (s *fakeAdminStore) GetListingReport(_ context.Context, id string) (*db.ListingReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *report
	return &copied, nil
}

func (s *fakeAdminStore) ListPendingListingReports(context.Context) ([]*db.ListingReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*db.ListingReport
	for _, report := range s.reports {
		if report.Status == db.ReportStatusPending {
			out = append(out, report)
		}
	}
	return out, nil
}

func (s *fakeAdminStore) ResolveListingReport(_ context.Context, reportID, status, adminID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[reportID]
	if !ok {
		return apperrors.ErrNotFound
	}
	report.Status = status
	report.ResolvedBy = &adminID
	return nil
}

func (s *fakeAdminStore) CountPendingListingReports(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, report := range s.reports {
		if report.Status == db.ReportStatusPending {
			count++
		}
	}
	return count, nil
}

func (s *fakeAdminStore) GetListing(_ context.Context, id string) (*db.Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	listing, ok := s.listings[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	copied := *listing
	return &copied, nil
}

func (s *fakeAdminStore) UpdateListing(_ context.Context, listing *db.Listing) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *listing
	s.listings[listing.ID] = &copied
	return nil
}

func (s *fakeAdminStore) GetUser(_ context.Context, id string) (*db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return user, nil
}

func (s *fakeAdminStore) ListUsers(context.Context, db.UserFilter) ([]*db.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*db.User
	for _, user := range s.users {
		out = append(out, user)
	}
	return out, nil
}

func (s *fakeAdminStore) CountUsers(context.Context) (int64, error)           { return 3, nil }
func (s *fakeAdminStore) CountActiveListings(context.Context) (int64, error)  { return 2, nil }
func (s *fakeAdminStore) CountCompletedTrades(context.Context) (int64, error) { return 1, nil }
func (s *fakeAdminStore) CountMessages(context.Context) (int64, error)        { return 9, nil }

type fakeBanModerator struct {
	bans   []*db.Ban
	unbans []string
}

func (m *fakeBanModerator) BanUser(_ context.Context, userID, reason, bannedBy string, durationDays int) (*db.Ban, error) {
	ban := &db.Ban{UserID: userID, Reason: reason}
	if bannedBy != "" {
		ban.BannedBy = &bannedBy
	}
	m.bans = append(m.bans, ban)
	return ban, nil
}

func (m *fakeBanModerator) UnbanUser(_ context.Context, userID string) error {
	m.unbans = append(m.unbans, userID)
	return nil
}

type fakeAssistant struct {
	opinion llm.ReviewOpinion
	err     error
	calls   int
}

func (a *fakeAssistant) ChatCompletion(context.Context, []llm.ChatCompletionMessage) (llm.ChatCompletionResponse, error) {
	return llm.ChatCompletionResponse{}, nil
}

func (a *fakeAssistant) ReviewReport(context.Context, string, []string) (llm.ReviewOpinion, error) {
	a.calls++
	return a.opinion, a.err
}

func seedReportedListing(store *fakeAdminStore, status string) {
	store.listings["l1"] = &db.Listing{
		ID:          "l1",
		UserID:      "seller",
		Title:       "Selling my bike",
		Description: "cash only",
		Status:      status,
		Flagged:     true,
		FlagReasons: db.StringList{"Contains suspicious keyword: sell"},
	}
	store.reports["r1"] = &db.ListingReport{
		ID:         "r1",
		ListingID:  "l1",
		ReporterID: "reporter",
		Reason:     "asks for money",
		Status:     db.ReportStatusPending,
	}
	store.users["reporter"] = &db.User{ID: "reporter", Name: "Rita"}
	store.users["admin-1"] = &db.User{ID: "admin-1", Name: "Ada", Role: permissions.RoleAdmin}
}

func TestQueueJoinsReportListingAndReporter(t *testing.T) {
	t.Parallel()
	store := newFakeAdminStore()
	seedReportedListing(store, db.ListingStatusPendingReview)
	assistant := &fakeAssistant{opinion: llm.ReviewOpinion{Recommendation: llm.RecommendReject, Rationale: "asks for money"}}
	service := New(store, &fakeBanModerator{}, assistant)

	items, err := service.Queue(context.Background())
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("queue items = %d, want 1", len(items))
	}
	item := items[0]
	if item.Listing.ID != "l1" || item.Reporter == nil || item.Reporter.Name != "Rita" {
		t.Fatalf("item = %+v", item)
	}
	if item.Opinion == nil || item.Opinion.Recommendation != llm.RecommendReject {
		t.Fatalf("opinion = %+v", item.Opinion)
	}
	if assistant.calls != 1 {
		t.Fatalf("assistant calls = %d", assistant.calls)
	}
}

func TestQueueSurvivesAssistantFailure(t *testing.T) {
	t.Parallel()
	store := newFakeAdminStore()
	seedReportedListing(store, db.ListingStatusPendingReview)
	service := New(store, &fakeBanModerator{}, &fakeAssistant{err: errors.New("quota exceeded")})

	items, err := service.Queue(context.Background())
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if len(items) != 1 || items[0].Opinion != nil {
		t.Fatalf("items = %+v", items)
	}
}

func TestQueueWithoutAssistant(t *testing.T) {
	t.Parallel()
	store := newFakeAdminStore()
	seedReportedListing(store, db.ListingStatusPendingReview)
	service := New(store, &fakeBanModerator{}, nil)

	items, err := service.Queue(context.Background())
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if len(items) != 1 || items[0].Opinion != nil {
		t.Fatalf("items = %+v", items)
	}
}

func TestResolveReportApproveRemovesListing(t *testing.T) {
	t.Parallel()
	store := newFakeAdminStore()
	seedReportedListing(store, db.ListingStatusActive)
	service := New(store, &fakeBanModerator{}, nil)
	ctx := context.Background()

	if err := service.ResolveReport(ctx, "r1", "SHRUG", "admin-1"); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("bogus action = %v, want ErrInvalidInput", err)
	}

	if err := service.ResolveReport(ctx, "r1", db.ReportStatusApproved, "admin-1"); err != nil {
		t.Fatalf("ResolveReport: %v", err)
	}
	if store.listings["l1"].Status != db.ListingStatusRemoved {
		t.Fatalf("listing status = %q, want REMOVED", store.listings["l1"].Status)
	}
	if store.reports["r1"].Status != db.ReportStatusApproved {
		t.Fatalf("report status = %q", store.reports["r1"].Status)
	}

	if err := service.ResolveReport(ctx, "r1", db.ReportStatusRejected, "admin-1"); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("double resolve = %v, want ErrInvalidInput", err)
	}
}

func TestResolveReportRejectReinstatesHeldListing(t *testing.T) {
	t.Parallel()
	store := newFakeAdminStore()
	seedReportedListing(store, db.ListingStatusPendingReview)
	service := New(store, &fakeBanModerator{}, nil)

	if err := service.ResolveReport(context.Background(), "r1", db.ReportStatusRejected, "admin-1"); err != nil {
		t.Fatalf("ResolveReport: %v", err)
	}
	if store.listings["l1"].Status != db.ListingStatusActive {
		t.Fatalf("listing status = %q, want ACTIVE", store.listings["l1"].Status)
	}
}

func TestAdminBanValidation(t *testing.T) {
	t.Parallel()
	store := newFakeAdminStore()
	store.users["admin-1"] = &db.User{ID: "admin-1", Role: permissions.RoleAdmin}
	store.users["intern"] = &db.User{ID: "intern", Role: permissions.RoleUser}
	moderator := &fakeBanModerator{}
	service := New(store, moderator, nil)
	ctx := context.Background()

	if _, err := service.BanUser(ctx, "mallory", "fraud", "intern", 7); !errors.Is(err, apperrors.ErrAuthRequired) {
		t.Fatalf("plain user banning = %v, want ErrAuthRequired", err)
	}
	if _, err := service.BanUser(ctx, "mallory", "fraud", "ghost", 7); !errors.Is(err, apperrors.ErrAuthRequired) {
		t.Fatalf("unknown admin = %v, want ErrAuthRequired", err)
	}

	if _, err := service.BanUser(ctx, "mallory", "  ", "admin-1", 7); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("empty reason = %v, want ErrInvalidInput", err)
	}
	if _, err := service.BanUser(ctx, "mallory", "fraud", "admin-1", -1); !errors.Is(err, apperrors.ErrInvalidInput) {
		t.Fatalf("negative duration = %v, want ErrInvalidInput", err)
	}

	ban, err := service.BanUser(ctx, "mallory", "fraud", "admin-1", 7)
	if err != nil {
		t.Fatalf("BanUser: %v", err)
	}
	if ban.BannedBy == nil || *ban.BannedBy != "admin-1" {
		t.Fatalf("ban = %+v", ban)
	}

	if err := service.UnbanUser(ctx, "mallory", "admin-1"); err != nil {
		t.Fatalf("UnbanUser: %v", err)
	}
	if len(moderator.unbans) != 1 || moderator.unbans[0] != "mallory" {
		t.Fatalf("unbans = %v", moderator.unbans)
	}
}

func TestSystemStatsIncludePendingReports(t *testing.T) {
	t.Parallel()
	store := newFakeAdminStore()
	seedReportedListing(store, db.ListingStatusActive)
	service := New(store, &fakeBanModerator{}, nil)

	stats, err := service.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.PendingReports != 1 || stats.Users != 3 || stats.Messages != 9 {
		t.Fatalf("stats = %+v", stats)
	}
}
