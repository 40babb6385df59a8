package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/varsagel/varsagelcom-sub000/internal/catalog"
	"github.com/varsagel/varsagelcom-sub000/internal/config"
	"github.com/varsagel/varsagelcom-sub000/internal/db"
	"github.com/varsagel/varsagelcom-sub000/internal/events"
	"github.com/varsagel/varsagelcom-sub000/internal/logger"
	"github.com/varsagel/varsagelcom-sub000/internal/mailer"
	"github.com/varsagel/varsagelcom-sub000/internal/metrics"
	appmw "github.com/varsagel/varsagelcom-sub000/internal/middleware"
	"github.com/varsagel/varsagelcom-sub000/internal/server"
	"github.com/varsagel/varsagelcom-sub000/internal/service"
	"github.com/varsagel/varsagelcom-sub000/internal/viewtrack"
	"go.uber.org/zap"
)

// Set at build time with -ldflags.
var (
	gitSHA    = "dev"
	buildTime = ""
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	lg := logger.New(cfg.LogLevel, cfg.LogEncoding)
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := catalog.Default()
	if err != nil {
		lg.Fatal("catalog", zap.Error(err))
	}

	var views viewtrack.Tracker = viewtrack.NewMemoryTracker(cfg.ViewSessionTTL)
	if cfg.RedisAddr != "" {
		rt, err := viewtrack.NewRedisTracker(ctx, cfg.RedisAddr, cfg.ViewSessionTTL)
		if err != nil {
			lg.Warn("redis unavailable, counting views in memory", zap.Error(err))
		} else {
			defer func() { _ = rt.Close() }()
			views = rt
		}
	}

	var pub events.Publisher = events.Noop{}
	if cfg.NatsURL != "" {
		np, err := events.NewNATSPublisher(cfg.NatsURL, lg)
		if err != nil {
			lg.Warn("nats unavailable, events disabled", zap.Error(err))
		} else {
			pub = np
		}
	}
	defer pub.Close()

	var sender mailer.Sender = mailer.NoopSender{}
	if cfg.SMTPEnabled() {
		sender = mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom, lg)
	} else {
		lg.Info("smtp not configured, emails disabled")
	}

	var verifier appmw.TokenVerifier
	if cfg.DevAuth {
		lg.Warn("DEV_AUTH is on, bearer tokens are trusted as uid|email|name")
		verifier = appmw.DevVerifier{}
	} else {
		fv, err := appmw.NewFirebaseVerifier(ctx, cfg.FirebaseProjectID)
		if err != nil {
			lg.Fatal("failed to init firebase auth", zap.Error(err))
		}
		verifier = fv
	}

	m := metrics.New()
	repos := server.NewRepositories(nil)
	services := server.NewServices(repos, server.Infra{
		Registry:     reg,
		Metrics:      m,
		Views:        views,
		Publisher:    pub,
		Mail:         sender,
		Log:          lg,
		BaseURL:      cfg.AppBaseURL,
		EmailTimeout: cfg.EmailTimeout,
		Listing:      service.ListingOptions{Moderation: cfg.ListingModeration, TTL: cfg.ListingTTL},
	})
	srv := server.New(server.Options{
		Config:   cfg,
		Log:      lg,
		Registry: reg,
		Metrics:  m,
		Verifier: verifier,
		Repos:    repos,
		Services: services,
		SHA:      gitSHA,
		Build:    buildTime,
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		lg.Info("starting server", zap.String("addr", addr), zap.String("git_sha", gitSHA))
		errCh <- srv.Start(addr)
	}()

	// The listener comes up first; requests that need the database answer
	// 503 until it is connected.
	go func() {
		conn, err := db.Connect(cfg, lg)
		if err != nil {
			lg.Error("db connect error", zap.Error(err))
			return
		}
		if err := db.Migrate(conn); err != nil {
			lg.Error("auto migrate error", zap.Error(err))
			return
		}
		srv.SetDB(conn)
		lg.Info("database ready")
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server stopped", zap.Error(err))
		}
	case <-ctx.Done():
		lg.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			lg.Error("shutdown", zap.Error(err))
		}
	}
}
