package moderation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/pborman/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/swapspot/swapspot/internal/config"
	"github.com/swapspot/swapspot/internal/db"
	apperrors "github.com/swapspot/swapspot/internal/errors"
	"github.com/swapspot/swapspot/internal/event"
	"github.com/swapspot/swapspot/internal/observability"
)

// Policy rejections. Distinguishable from store failures so callers can show
// a specific notice instead of a generic one.
var (
	ErrSpamRejected      = errors.New("message flagged as spam")
	ErrBlockedByReceiver = errors.New("you are blocked by this user")
	ErrUserBanned        = errors.New("user is banned")
)

const (
	autoBanReasonSpam    = "Auto-banned for spam"
	autoBanReasonReports = "Auto-banned for multiple reports"

	kvKeyLastSweep = "moderation:last_sweep"
)

type moderationStore interface {
	InsertUserReport(ctx context.Context, report *db.UserReport) error
	InsertBan(ctx context.Context, ban *db.Ban) error
	ClearBans(ctx context.Context, userID string) error
	GetActiveBan(ctx context.Context, userID string, now time.Time) (*db.Ban, error)
	DeleteExpiredBans(ctx context.Context, now time.Time) (int64, error)
	InsertBlock(ctx context.Context, userID, blockedUserID string) error
	ListBlockedUsers(ctx context.Context, userID string) ([]string, error)
	GetKV(ctx context.Context, key string) (string, error)
	SetKV(ctx context.Context, key string, value string) error
}

type eventPublisher interface {
	Publish(e event.Event)
}

// Coordinator ties the classifier and trust counters to concrete moderation
// actions against the store. Counter mutations that happen before a failing
// store write are left in place; callers must not assume exactly-once
// semantics for them.
type Coordinator struct {
	store      moderationStore
	classifier *Classifier
	counters   *TrustCounters
	config     config.Moderation
	clock      func() time.Time
	events     eventPublisher
	logger     *log.Entry

	runMutex  sync.Mutex
	started   bool
	runCancel context.CancelFunc
	workersWg sync.WaitGroup
}

func NewCoordinator(store moderationStore, classifier *Classifier, cfg config.Moderation, clock func() time.Time) *Coordinator {
	if clock == nil {
		clock = time.Now
	}
	return &Coordinator{
		store:      store,
		classifier: classifier,
		counters:   NewTrustCounters(cfg.SpamWindow, clock),
		config:     cfg,
		clock:      clock,
		logger:     log.WithField("object", "Coordinator"),
	}
}

// WithEvents attaches an event publisher for ban announcements.
func (c *Coordinator) WithEvents(events eventPublisher) *Coordinator {
	c.events = events
	return c
}

func (c *Coordinator) publishBanned(userID, reason string, auto bool) {
	if c.events == nil {
		return
	}
	c.events.Publish(event.UserBanned{
		Base:   event.NewBase(event.TypeUserBanned, 0),
		UserID: userID,
		Reason: reason,
		Auto:   auto,
	})
}

// Classify runs the content classifier. Pure; no counters move.
func (c *Coordinator) Classify(ctx context.Context, title, body string) Verdict {
	return c.classifier.Classify(ctx, title, body)
}

// ReportUser persists the report, bumps the reported user's tally and issues
// an auto-ban the moment the tally reaches the threshold. Later reports do
// not re-ban.
func (c *Coordinator) ReportUser(ctx context.Context, reporterID, reportedID, reason string) (*db.UserReport, error) {
	report := &db.UserReport{
		ID:             uuid.New(),
		ReporterID:     reporterID,
		ReportedUserID: reportedID,
		Reason:         reason,
		Status:         db.ReportStatusPending,
	}
	if err := c.store.InsertUserReport(ctx, report); err != nil {
		return nil, apperrors.WrapStore("insert report", err)
	}

	count := c.counters.RecordReport(reportedID)
	if count == c.config.ReportThreshold {
		if _, err := c.autoBan(ctx, reportedID, autoBanReasonReports); err != nil {
			return nil, err
		}
	}
	return report, nil
}

// CheckSpam tests content against the pattern rules only, records an incident
// on a hit and auto-bans the sender once the in-window tally reaches the
// threshold. Returns whether the content matched.
func (c *Coordinator) CheckSpam(ctx context.Context, userID, content string) (bool, error) {
	if !c.classifier.MatchesSpamPatterns(content) {
		return false, nil
	}

	observability.RecordSpamIncident()
	count := c.counters.RecordSpamIncident(userID)
	c.logger.WithField("user_id", userID).WithField("spam_count", count).Debug("spam incident recorded")

	if count >= c.config.SpamThreshold {
		if _, err := c.autoBan(ctx, userID, autoBanReasonSpam); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (c *Coordinator) autoBan(ctx context.Context, userID, reason string) (*db.Ban, error) {
	now := c.clock()
	until := now.Add(c.config.AutoBanDuration)
	ban := &db.Ban{
		ID:          uuid.New(),
		UserID:      userID,
		Reason:      reason,
		BannedAt:    now,
		BannedUntil: &until,
	}
	if err := c.store.InsertBan(ctx, ban); err != nil {
		return nil, apperrors.WrapStore("insert ban", err)
	}
	observability.RecordAutoBan(reason)
	c.publishBanned(userID, reason, true)
	c.logger.WithField("user_id", userID).WithField("reason", reason).Warn("auto-ban issued")
	return ban, nil
}

// BanUser issues an explicit ban. An empty bannedBy means the system itself;
// durationDays <= 0 means permanent.
func (c *Coordinator) BanUser(ctx context.Context, userID, reason, bannedBy string, durationDays int) (*db.Ban, error) {
	now := c.clock()
	ban := &db.Ban{
		ID:       uuid.New(),
		UserID:   userID,
		Reason:   reason,
		BannedAt: now,
	}
	if bannedBy != "" {
		ban.BannedBy = &bannedBy
	}
	if durationDays > 0 {
		until := now.Add(time.Duration(durationDays) * 24 * time.Hour)
		ban.BannedUntil = &until
	}
	if err := c.store.InsertBan(ctx, ban); err != nil {
		return nil, apperrors.WrapStore("insert ban", err)
	}
	c.publishBanned(userID, reason, false)
	return ban, nil
}

// UnbanUser clears active bans. Trust counters stay put: repeat offenses keep
// accumulating across ban/unban cycles.
func (c *Coordinator) UnbanUser(ctx context.Context, userID string) error {
	if err := c.store.ClearBans(ctx, userID); err != nil {
		return apperrors.WrapStore("clear bans", err)
	}
	return nil
}

// IsBanned reports whether the authoritative store holds an active ban.
func (c *Coordinator) IsBanned(ctx context.Context, userID string) (bool, error) {
	ban, err := c.store.GetActiveBan(ctx, userID, c.clock())
	if err != nil {
		return false, apperrors.WrapStore("get active ban", err)
	}
	return ban != nil, nil
}

// BlockUser records a one-directional block edge from userID to
// blockedUserID.
func (c *Coordinator) BlockUser(ctx context.Context, userID, blockedUserID string) error {
	if err := c.store.InsertBlock(ctx, userID, blockedUserID); err != nil {
		return apperrors.WrapStore("insert block", err)
	}
	return nil
}

// IsBlocked reports whether receiver has blocked sender.
func (c *Coordinator) IsBlocked(ctx context.Context, senderID, receiverID string) (bool, error) {
	blocked, err := c.store.ListBlockedUsers(ctx, receiverID)
	if err != nil {
		return false, apperrors.WrapStore("list blocked users", err)
	}
	for _, id := range blocked {
		if id == senderID {
			return true, nil
		}
	}
	return false, nil
}

// ReportCount exposes the in-memory report tally, a soft signal only.
func (c *Coordinator) ReportCount(userID string) int {
	return c.counters.ReportCount(userID)
}

// SpamCount exposes the in-memory spam tally, a soft signal only.
func (c *Coordinator) SpamCount(userID string) int {
	return c.counters.SpamCount(userID)
}

// Start launches the janitor loop sweeping expired bans and stale counter
// entries.
func (c *Coordinator) Start(ctx context.Context) error {
	c.runMutex.Lock()
	defer c.runMutex.Unlock()
	if c.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.runCancel = cancel

	interval := c.config.JanitorInterval
	if interval <= 0 {
		interval = time.Hour
	}

	c.workersWg.Add(1)
	go func() {
		defer c.workersWg.Done()

		// Catch up on a sweep the previous process owed; a missing or
		// unreadable checkpoint counts as never swept.
		if c.clock().Sub(c.lastSweep(runCtx)) >= interval {
			if err := c.sweep(runCtx); err != nil && !errorsIsCanceled(err) {
				c.logger.WithError(err).Error("janitor sweep failed")
			}
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if err := c.sweep(runCtx); err != nil && !errorsIsCanceled(err) {
					c.logger.WithError(err).Error("janitor sweep failed")
				}
			}
		}
	}()

	c.started = true
	return nil
}

func (c *Coordinator) Stop(ctx context.Context) error {
	c.runMutex.Lock()
	if !c.started {
		c.runMutex.Unlock()
		return nil
	}
	c.started = false
	cancel := c.runCancel
	c.runMutex.Unlock()

	if cancel != nil {
		cancel()
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.workersWg.Wait()
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (c *Coordinator) sweep(ctx context.Context) error {
	removed, err := c.store.DeleteExpiredBans(ctx, c.clock())
	if err != nil {
		return err
	}
	pruned := c.counters.PruneStale()
	if removed > 0 || pruned > 0 {
		c.logger.WithField("expired_bans", removed).WithField("stale_counters", pruned).Debug("janitor sweep done")
	}
	if err := c.store.SetKV(ctx, kvKeyLastSweep, c.clock().Format(time.RFC3339)); err != nil {
		return fmt.Errorf("record sweep checkpoint: %w", err)
	}
	return nil
}

func (c *Coordinator) lastSweep(ctx context.Context) time.Time {
	val, err := c.store.GetKV(ctx, kvKeyLastSweep)
	if err != nil || val == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}
	}
	return t
}

func errorsIsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
