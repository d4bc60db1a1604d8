package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/swapspot/swapspot/internal/adapters"
	"github.com/swapspot/swapspot/internal/adapters/llm/gemini"
	"github.com/swapspot/swapspot/internal/admin"
	"github.com/swapspot/swapspot/internal/config"
	"github.com/swapspot/swapspot/internal/db"
	"github.com/swapspot/swapspot/internal/db/sqlite"
	"github.com/swapspot/swapspot/internal/event"
	"github.com/swapspot/swapspot/internal/infra"
	"github.com/swapspot/swapspot/internal/lifecycle"
	"github.com/swapspot/swapspot/internal/marketplace"
	"github.com/swapspot/swapspot/internal/moderation"
	"github.com/swapspot/swapspot/internal/observability"
)

const shutdownTimeout = 10 * time.Second

// services is the full application graph. The daemon itself only drives the
// background components; the rest is wired here so startup fails fast on any
// misconfiguration.
type services struct {
	coordinator   *moderation.Coordinator
	listings      *marketplace.Listings
	messages      *marketplace.Messages
	trades        *marketplace.Trades
	favorites     *marketplace.Favorites
	ratings       *marketplace.Ratings
	search        *marketplace.Search
	stats         *marketplace.Stats
	notifications *marketplace.Notifications
	reviewDesk    *admin.Service
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatalln("cant load config")
	}
	log.SetFormatter(&config.Formatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.Level(cfg.LogLevel))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil && ctx.Err() == nil {
		log.WithError(err).Fatalln("exiting")
	}
}

func run(ctx context.Context, cfg config.Config) error {
	if err := observability.Init(ctx); err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	client, err := sqlite.NewSQLiteClient(ctx, infra.GetWorkDir(cfg.DotPath), cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.WithError(err).Errorln("cant close store")
		}
	}()

	bus := event.NewBus(0)
	app, err := buildServices(ctx, cfg, client, bus)
	if err != nil {
		return err
	}
	subscribe(ctx, bus, app.notifications)

	runtime := lifecycle.NewRuntime(bus, app.coordinator, observability.NewServer(cfg.MetricsPort))
	if err := runtime.Start(ctx); err != nil {
		return fmt.Errorf("start runtime: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		select {
		case <-infra.MonitorExecutable(gctx):
			log.Errorln("executable file was modified")
			return fmt.Errorf("executable replaced")
		case <-gctx.Done():
			return nil
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		stopCtx, stopCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer stopCancel()
		return runtime.Stop(stopCtx)
	})
	return g.Wait()
}

func buildServices(ctx context.Context, cfg config.Config, client db.Client, bus *event.Bus) (*services, error) {
	rules, err := moderation.LoadRules(cfg.Moderation.RulesPath)
	if err != nil {
		return nil, fmt.Errorf("load moderation rules: %w", err)
	}
	classifier, err := moderation.NewClassifier(rules)
	if err != nil {
		return nil, fmt.Errorf("build classifier: %w", err)
	}

	coordinator := moderation.NewCoordinator(client, classifier, cfg.Moderation, nil).WithEvents(bus)
	notifications := marketplace.NewNotifications(client)

	var assistant adapters.LLM
	if cfg.LLM.APIKey != "" {
		assistant, err = gemini.NewGemini(ctx, cfg.LLM.APIKey, cfg.LLM.Model, log.WithField("object", "Gemini"))
		if err != nil {
			log.WithError(err).Warnln("review assistant disabled")
			assistant = nil
		}
	}

	return &services{
		coordinator:   coordinator,
		listings:      marketplace.NewListings(client, classifier).WithEvents(bus),
		messages:      marketplace.NewMessages(client, coordinator),
		trades:        marketplace.NewTrades(client, notifications),
		favorites:     marketplace.NewFavorites(client),
		ratings:       marketplace.NewRatings(client),
		search:        marketplace.NewSearch(client),
		stats:         marketplace.NewStats(client),
		notifications: notifications,
		reviewDesk:    admin.New(client, coordinator, assistant),
	}, nil
}

// subscribe routes moderation events into the notification feed. Handlers run
// on the bus dispatch goroutine, so each one hands off to its own goroutine.
func subscribe(ctx context.Context, bus *event.Bus, notifications *marketplace.Notifications) {
	bus.Subscribe(event.TypeListingHeld, func(e event.Event) {
		held, ok := e.(event.ListingHeld)
		if !ok {
			return
		}
		go infra.GoRecoverable(1, "notify-listing-held", func() {
			_, err := notifications.Notify(ctx, held.OwnerID,
				"Listing held for review",
				"Your listing was flagged and is awaiting moderator review.",
				marketplace.NotificationTypeModeration,
				db.DataMap{"listing_id": held.ListingID, "reasons": held.Reasons},
			)
			if err != nil {
				log.WithError(err).WithField("listing", held.ListingID).Errorln("cant notify listing owner")
			}
		})
	})
	bus.Subscribe(event.TypeUserBanned, func(e event.Event) {
		banned, ok := e.(event.UserBanned)
		if !ok {
			return
		}
		go infra.GoRecoverable(1, "notify-user-banned", func() {
			_, err := notifications.Notify(ctx, banned.UserID,
				"Account suspended",
				banned.Reason,
				marketplace.NotificationTypeModeration,
				db.DataMap{"auto": banned.Auto},
			)
			if err != nil {
				log.WithError(err).WithField("user", banned.UserID).Errorln("cant notify banned user")
			}
		})
	})
}
