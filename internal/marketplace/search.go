package marketplace

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/pborman/uuid"

	"github.com/swapspot/swapspot/internal/db"
	apperrors "github.com/swapspot/swapspot/internal/errors"
)

const historyLimit = 20

type savedSearchStore interface {
	InsertSavedSearch(ctx context.Context, s *db.SavedSearch) error
	ListSavedSearches(ctx context.Context, userID string) ([]*db.SavedSearch, error)
}

// Search tracks query popularity and per-user history in process memory and
// persists explicit saved searches through the facade. The in-memory side is
// advisory; losing it on restart is acceptable.
type Search struct {
	store savedSearchStore

	mu      sync.RWMutex
	popular map[string]int
	history map[string][]string
}

func NewSearch(store savedSearchStore) *Search {
	return &Search{
		store:   store,
		popular: map[string]int{},
		history: map[string][]string{},
	}
}

// Record notes that userID ran query. Queries are normalized to lower case;
// a repeated query moves to the front of the user's history instead of
// duplicating.
func (s *Search) Record(userID, query string) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.popular[query]++

	recent := s.history[userID]
	filtered := make([]string, 0, len(recent)+1)
	filtered = append(filtered, query)
	for _, q := range recent {
		if q != query {
			filtered = append(filtered, q)
		}
	}
	if len(filtered) > historyLimit {
		filtered = filtered[:historyLimit]
	}
	s.history[userID] = filtered
}

// Popular returns up to limit queries ordered by hit count, ties broken
// alphabetically for stable output.
func (s *Search) Popular(limit int) []string {
	s.mu.RLock()
	queries := make([]string, 0, len(s.popular))
	for q := range s.popular {
		queries = append(queries, q)
	}
	counts := make(map[string]int, len(queries))
	for _, q := range queries {
		counts[q] = s.popular[q]
	}
	s.mu.RUnlock()

	sort.Slice(queries, func(i, j int) bool {
		if counts[queries[i]] != counts[queries[j]] {
			return counts[queries[i]] > counts[queries[j]]
		}
		return queries[i] < queries[j]
	})
	if limit > 0 && len(queries) > limit {
		queries = queries[:limit]
	}
	return queries
}

func (s *Search) History(userID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.history[userID]...)
}

// Suggestions merges the user's own history with globally popular queries
// matching the typed prefix, history first, without duplicates.
func (s *Search) Suggestions(userID, prefix string, limit int) []string {
	prefix = strings.ToLower(strings.TrimSpace(prefix))

	var suggestions []string
	seen := map[string]bool{}
	appendMatch := func(q string) {
		if seen[q] || (prefix != "" && !strings.HasPrefix(q, prefix)) {
			return
		}
		seen[q] = true
		suggestions = append(suggestions, q)
	}

	for _, q := range s.History(userID) {
		appendMatch(q)
	}
	for _, q := range s.Popular(0) {
		appendMatch(q)
	}

	if limit > 0 && len(suggestions) > limit {
		suggestions = suggestions[:limit]
	}
	return suggestions
}

func (s *Search) Save(ctx context.Context, userID, query string, filters db.DataMap, notify bool) (*db.SavedSearch, error) {
	saved := &db.SavedSearch{
		ID:                   uuid.New(),
		UserID:               userID,
		Query:                query,
		Filters:              filters,
		NotificationsEnabled: notify,
	}
	if err := s.store.InsertSavedSearch(ctx, saved); err != nil {
		return nil, apperrors.WrapStore("insert saved search", err)
	}
	return saved, nil
}

func (s *Search) Saved(ctx context.Context, userID string) ([]*db.SavedSearch, error) {
	searches, err := s.store.ListSavedSearches(ctx, userID)
	if err != nil {
		return nil, apperrors.WrapStore("list saved searches", err)
	}
	return searches, nil
}
