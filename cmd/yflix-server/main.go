package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yemenflix/yflix/internal/adapters/bleveindex"
	"github.com/yemenflix/yflix/internal/adapters/httpapi"
	"github.com/yemenflix/yflix/internal/adapters/memorybus"
	"github.com/yemenflix/yflix/internal/adapters/probe"
	"github.com/yemenflix/yflix/internal/adapters/storage"
	"github.com/yemenflix/yflix/internal/app"
	"github.com/yemenflix/yflix/internal/auth"
	"github.com/yemenflix/yflix/internal/buildinfo"
	"github.com/yemenflix/yflix/internal/config"
	"github.com/yemenflix/yflix/internal/domain"
	"github.com/yemenflix/yflix/internal/metrics"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(2)
	}

	logger := newLogger(cfg.Log)
	log.Logger = logger

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	var logger zerolog.Logger
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stdout)
	}
	return logger.Level(level).With().Timestamp().Str("app", "yflix-server").Logger()
}

func run(cfg config.Config, logger zerolog.Logger) error {
	logger.Info().Interface("build", buildinfo.Current()).Str("store", cfg.Store.Driver).Str("path", cfg.Store.Path).Msg("starting")
	if cfg.GeneratedSecret {
		logger.Warn().Msg("jwt secret generated for this process: tokens will not survive a restart")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	index, err := bleveindex.New()
	if err != nil {
		return fmt.Errorf("search index: %w", err)
	}
	defer func() { _ = index.Close() }()

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	bus := memorybus.New()
	defer bus.Close()
	m := metrics.New()

	notifications := app.NewNotificationService(store, bus)
	security := app.NewSecurityService(logger.With().Str("component", "security").Logger(), store, bus)
	settings := app.NewSettingsService(store, bus)
	content := app.NewContentService(logger.With().Str("component", "content").Logger(), store, index, bus, notifications)
	content.SetObserver(m)
	search := app.NewSearchService(logger.With().Str("component", "search").Logger(), store, index)
	reviews := app.NewReviewService(logger.With().Str("component", "reviews").Logger(), store, content, bus)
	subs := app.NewSubscriptionService(logger.With().Str("component", "subscriptions").Logger(), store, bus, notifications)
	downloads := app.NewDownloadService(logger.With().Str("component", "downloads").Logger(), store, content, subs, bus)
	users := app.NewAuthService(logger.With().Str("component", "auth").Logger(), store, issuer, security, settings)

	// Concurrence des checks: réglage du site s'il existe, sinon config.
	checks := cfg.Maintenance.MaxConcurrentChecks
	if st, err := settings.Get(ctx); err == nil && st.MaxConcurrentChecks > 0 {
		checks = st.MaxConcurrentChecks
	}
	limiter := app.NewCheckLimiter(checks)
	settings.OnChange(func(st domain.Settings) {
		limiter.SetLimit(st.MaxConcurrentChecks)
		logger.Info().Int("max_concurrent_checks", st.MaxConcurrentChecks).Bool("maintenance_mode", st.MaintenanceMode).Msg("settings updated")
	})

	targets := cfg.Maintenance.Targets
	if len(targets) == 0 {
		targets = []domain.Target{{Name: "api", URL: selfURL(cfg.HTTP.Addr) + "/api/health", Critical: true}}
	}
	maintenance := app.NewMaintenanceService(
		logger.With().Str("component", "maintenance").Logger(),
		app.MaintenanceOptions{
			Targets:           targets,
			SlowThreshold:     cfg.Maintenance.SlowThreshold,
			RequestTimeout:    cfg.Maintenance.RequestTimeout,
			MemoryThresholdMB: cfg.Maintenance.MemoryThresholdMB,
		},
		probe.NewHTTPProber(cfg.Maintenance.RequestTimeout),
		store, limiter, security, bus,
	)
	maintenance.SetObserver(m)

	if n, err := search.Rebuild(ctx); err != nil {
		logger.Warn().Err(err).Msg("search index rebuild failed")
	} else {
		logger.Info().Int("documents", n).Msg("search index ready")
	}
	content.RefreshMetrics(ctx)

	subScheduler := app.NewSubscriptionScheduler(logger.With().Str("component", "subscription-scheduler").Logger(), subs)
	subScheduler.TickInterval = cfg.Subscriptions.CheckInterval
	if cfg.Subscriptions.BatchSize > 0 {
		subScheduler.BatchSize = cfg.Subscriptions.BatchSize
	}
	go subScheduler.Run(ctx)

	notifier := app.NewDownloadCompletionNotifier(logger.With().Str("component", "download-notifier").Logger(), bus, notifications)
	go notifier.Run(ctx)

	if cfg.Maintenance.Enabled {
		sch, err := app.NewMaintenanceScheduler(logger.With().Str("component", "maintenance-scheduler").Logger(), maintenance, cfg.Maintenance.Interval)
		if err != nil {
			return err
		}
		go sch.Run(ctx)
		logger.Info().Str("schedule", sch.Spec()).Int("targets", len(targets)).Msg("maintenance scheduled")
	}

	srv := httpapi.NewServer(logger, httpapi.Services{
		Auth:          users,
		Content:       content,
		Search:        search,
		Reviews:       reviews,
		Notifications: notifications,
		Subscriptions: subs,
		Security:      security,
		Downloads:     downloads,
		Chat:          app.NewChatService(store, bus),
		Live:          app.NewLiveService(store, bus),
		Analytics:     app.NewAnalyticsService(store, content, subs, security, maintenance),
		Maintenance:   maintenance,
		Settings:      settings,
	}, bus, m, httpapi.Options{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		Store:          store,
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTP.Addr).Msg("listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server crashed")
			stop()
		}
	}()

	if cfg.Maintenance.Enabled && cfg.Maintenance.RunAtStartup {
		go func() {
			// laisse le listener démarrer avant de se sonder soi-même
			time.Sleep(2 * time.Second)
			if _, err := maintenance.RunNow(ctx); err != nil && ctx.Err() == nil {
				logger.Warn().Err(err).Msg("startup maintenance run failed")
			}
		}()
	}

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	logger.Info().Msg("bye")
	return nil
}

// selfURL transforme l'adresse d'écoute en URL joignable localement.
func selfURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	addr = strings.Replace(addr, "0.0.0.0", "127.0.0.1", 1)
	return "http://" + addr
}
