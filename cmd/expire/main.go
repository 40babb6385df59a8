// Command expire closes every active listing past its expiry and notifies the
// owners. It runs once and exits; schedule it with cron.
package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/varsagel/varsagelcom-sub000/internal/catalog"
	"github.com/varsagel/varsagelcom-sub000/internal/config"
	"github.com/varsagel/varsagelcom-sub000/internal/db"
	"github.com/varsagel/varsagelcom-sub000/internal/events"
	"github.com/varsagel/varsagelcom-sub000/internal/logger"
	"github.com/varsagel/varsagelcom-sub000/internal/mailer"
	"github.com/varsagel/varsagelcom-sub000/internal/metrics"
	"github.com/varsagel/varsagelcom-sub000/internal/server"
	"github.com/varsagel/varsagelcom-sub000/internal/service"
	"github.com/varsagel/varsagelcom-sub000/internal/viewtrack"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	lg := logger.New(cfg.LogLevel, cfg.LogEncoding).Named("expire")
	defer func() { _ = lg.Sync() }()

	ctx := context.Background()
	gdb, err := db.Connect(cfg, lg)
	if err != nil {
		lg.Fatal("db connect error", zap.Error(err))
	}
	reg, err := catalog.Default()
	if err != nil {
		lg.Fatal("catalog", zap.Error(err))
	}

	var pub events.Publisher = events.Noop{}
	if cfg.NatsURL != "" {
		if np, err := events.NewNATSPublisher(cfg.NatsURL, lg); err != nil {
			lg.Warn("nats unavailable, events disabled", zap.Error(err))
		} else {
			pub = np
		}
	}
	defer pub.Close()

	var sender mailer.Sender = mailer.NoopSender{}
	if cfg.SMTPEnabled() {
		sender = mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, lg)
	}

	svc := server.NewServices(server.NewRepositories(gdb), server.Infra{
		Registry:     reg,
		Metrics:      metrics.New(),
		Views:        viewtrack.NewMemoryTracker(cfg.ViewSessionTTL),
		Publisher:    pub,
		Mail:         sender,
		Log:          lg,
		BaseURL:      cfg.AppBaseURL,
		EmailTimeout: cfg.EmailTimeout,
		Listing:      service.ListingOptions{Moderation: cfg.ListingModeration, TTL: cfg.ListingTTL},
	})

	n, err := svc.Listings.ExpireDue(ctx)
	if err != nil {
		lg.Fatal("expire failed", zap.Int("expired", n), zap.Error(err))
	}
	lg.Info("expire done", zap.Int("expired", n))
}
