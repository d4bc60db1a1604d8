package event

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	TypeListingHeld = "listing.held"
	TypeUserBanned  = "user.banned"
)

type Event interface {
	Type() string
	Expired() bool
}

// Base carries the common envelope. A zero TTL means the event never expires.
type Base struct {
	kind     string
	expireAt time.Time
}

func NewBase(kind string, ttl time.Duration) Base {
	b := Base{kind: kind}
	if ttl > 0 {
		b.expireAt = time.Now().Add(ttl)
	}
	return b
}

func (b Base) Type() string { return b.kind }

func (b Base) Expired() bool {
	return !b.expireAt.IsZero() && time.Now().After(b.expireAt)
}

// ListingHeld fires when the classifier parks a listing in pending review.
type ListingHeld struct {
	Base
	ListingID string
	OwnerID   string
	Reasons   []string
}

// UserBanned fires on every ban write, automatic or admin-issued.
type UserBanned struct {
	Base
	UserID string
	Reason string
	Auto   bool
}

// Bus is an in-process pub/sub queue with at-most-once delivery. Subscribers
// run on the dispatch goroutine and must not block; anything slow belongs in
// the subscriber's own goroutine.
type Bus struct {
	q      chan Event
	logger *log.Entry

	subsMutex sync.RWMutex
	subs      map[string][]func(Event)

	runMutex  sync.Mutex
	started   bool
	runCancel context.CancelFunc
	workersWg sync.WaitGroup
}

func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 1024
	}
	return &Bus{
		q:      make(chan Event, buffer),
		subs:   map[string][]func(Event){},
		logger: log.WithField("object", "EventBus"),
	}
}

func (b *Bus) Subscribe(kind string, fn func(Event)) {
	b.subsMutex.Lock()
	defer b.subsMutex.Unlock()
	b.subs[kind] = append(b.subs[kind], fn)
}

// Publish never blocks the caller. A full queue drops the event with a
// warning; event consumers are conveniences, not ledgers.
func (b *Bus) Publish(e Event) {
	select {
	case b.q <- e:
	default:
		b.logger.WithField("type", e.Type()).Warn("event queue full, dropping")
	}
}

func (b *Bus) dispatch(e Event) {
	if e.Expired() {
		return
	}
	b.subsMutex.RLock()
	subscribers := b.subs[e.Type()]
	b.subsMutex.RUnlock()
	for _, fn := range subscribers {
		fn(e)
	}
}

func (b *Bus) Start(ctx context.Context) error {
	b.runMutex.Lock()
	defer b.runMutex.Unlock()
	if b.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	b.runCancel = cancel

	b.workersWg.Add(1)
	go func() {
		defer b.workersWg.Done()
		for {
			select {
			case <-runCtx.Done():
				return
			case e := <-b.q:
				b.dispatch(e)
			}
		}
	}()

	b.started = true
	return nil
}

func (b *Bus) Stop(ctx context.Context) error {
	b.runMutex.Lock()
	if !b.started {
		b.runMutex.Unlock()
		return nil
	}
	b.started = false
	cancel := b.runCancel
	b.runMutex.Unlock()

	// Drain what is already queued before shutting the dispatcher down.
	for {
		select {
		case e := <-b.q:
			b.dispatch(e)
		default:
			cancel()
			done := make(chan struct{})
			go func() {
				defer close(done)
				b.workersWg.Wait()
			}()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-done:
				return nil
			}
		}
	}
}
