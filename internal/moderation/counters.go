package moderation

import (
	"sync"
	"time"
)

type spamIncident struct {
	count int
	last  time.Time
}

// TrustCounters tracks per-user escalation signals for the lifetime of the
// process: reports received and spam incidents within a rolling window.
// Counts are a soft client of the store, not a security control: each
// process sees only its own tallies.
type TrustCounters struct {
	mu      sync.RWMutex
	reports map[string]int
	spam    map[string]spamIncident
	window  time.Duration
	clock   func() time.Time
}

func NewTrustCounters(window time.Duration, clock func() time.Time) *TrustCounters {
	if clock == nil {
		clock = time.Now
	}
	return &TrustCounters{
		reports: map[string]int{},
		spam:    map[string]spamIncident{},
		window:  window,
		clock:   clock,
	}
}

// RecordReport increments the report tally for userID and returns the new
// count. Report counts are monotonic; nothing in this layer decrements them.
func (t *TrustCounters) RecordReport(userID string) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.reports[userID]++
	return t.reports[userID]
}

// RecordSpamIncident increments the spam tally for userID, resetting it first
// when the previous incident fell outside the window. Returns the new count.
func (t *TrustCounters) RecordSpamIncident(userID string) int {
	now := t.clock()

	t.mu.Lock()
	defer t.mu.Unlock()

	incident := t.spam[userID]
	if now.Sub(incident.last) > t.window {
		incident.count = 0
	}
	incident.count++
	incident.last = now
	t.spam[userID] = incident
	return incident.count
}

func (t *TrustCounters) ReportCount(userID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.reports[userID]
}

func (t *TrustCounters) SpamCount(userID string) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.spam[userID].count
}

// PruneStale drops spam-incident entries whose window has fully lapsed; their
// count would reset on the next increment anyway. Report counts are never
// pruned. Returns the number of entries removed.
func (t *TrustCounters) PruneStale() int {
	now := t.clock()

	t.mu.Lock()
	defer t.mu.Unlock()

	removed := 0
	for userID, incident := range t.spam {
		if now.Sub(incident.last) > t.window {
			delete(t.spam, userID)
			removed++
		}
	}
	return removed
}
