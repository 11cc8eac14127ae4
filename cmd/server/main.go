package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/AlexTLDR/giftregistry/internal/config"
	"github.com/AlexTLDR/giftregistry/internal/database"
	"github.com/AlexTLDR/giftregistry/internal/events"
	"github.com/AlexTLDR/giftregistry/internal/i18n"
	"github.com/AlexTLDR/giftregistry/internal/ledger"
	"github.com/AlexTLDR/giftregistry/internal/logger"
	"github.com/AlexTLDR/giftregistry/internal/notify"
	"github.com/AlexTLDR/giftregistry/internal/server"
)

type eventBus interface {
	events.Publisher
	events.Subscriber
}

func main() {
	// Load .env file (ignore error if a file doesn't exist)
	// Use Overload to force to overwrite any existing environment variables
	if err := godotenv.Overload(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	lg := logger.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	if err := run(cfg, lg); err != nil {
		lg.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, lg *slog.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, db.Close()) }()

	if err := db.Migrate(); err != nil {
		return err
	}

	var bus eventBus = events.Nop{}
	if cfg.RedisURL != "" {
		rb, berr := events.NewRedisBusFromURL(cfg.RedisURL, cfg.EventsInstance, lg)
		if berr != nil {
			return berr
		}
		defer func() { err = multierr.Append(err, rb.Close()) }()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		perr := rb.Ping(pingCtx)
		cancel()
		if perr != nil {
			// the feed is optional; the ledger keeps working without it
			lg.Warn("redis unreachable, gift events disabled until it recovers", "error", perr)
		}
		bus = rb
	} else {
		lg.Info("REDIS_URL not set, gift event stream disabled")
	}

	var sender notify.Sender
	if cfg.SMTPHost != "" {
		sender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUsername,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	} else {
		lg.Warn("SMTP_HOST not set, notifications will only be logged")
		sender = notify.NewLogSender(lg)
	}
	notifier := notify.New(lg, sender, db, notify.Options{
		Recipients: cfg.AdminEmails,
		QueueSize:  cfg.NotifyQueueSize,
		Language:   i18n.Default,
		MaxRetries: 3,
	})

	l := ledger.New(lg, db, notifier, bus, ledger.Options{
		DefaultCapacity: cfg.GiftDefaultCapacity,
		MaxPerGuest:     cfg.MaxGiftsPerGuest,
		Timeout:         cfg.LedgerTimeout,
	})

	srv := server.New(cfg, lg, db, l, bus, notifier)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx, cfg.Addr())
	})
	g.Go(func() error {
		return notifier.Run(gctx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	lg.Info("shutdown complete")
	return nil
}
