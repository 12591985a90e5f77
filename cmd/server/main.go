package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	specpkg "github.com/daap14/caseentry/api"
	"github.com/daap14/caseentry/internal/account"
	"github.com/daap14/caseentry/internal/api"
	"github.com/daap14/caseentry/internal/api/middleware"
	"github.com/daap14/caseentry/internal/auth"
	"github.com/daap14/caseentry/internal/config"
	"github.com/daap14/caseentry/internal/database"
	"github.com/daap14/caseentry/internal/metrics"
	"github.com/daap14/caseentry/internal/profile"
	"github.com/daap14/caseentry/internal/record"
	"github.com/daap14/caseentry/internal/roster"
	"github.com/daap14/caseentry/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	setupLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg.DatabaseURL,
		database.WithMaxConns(cfg.DBMaxConns),
		database.WithHealthCheckPeriod(30*time.Second),
	)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.EnsureSchema(ctx); err != nil {
		slog.Error("failed to prepare database schema", "error", err)
		os.Exit(1)
	}

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(promReg)

	directory := auth.NewService(auth.NewRepository(db.Pool()), cfg.BcryptCost)
	profiles := profile.NewStore(db.Pool())

	registry := session.NewRegistry(directory, profiles,
		session.WithIdleTimeout(cfg.SessionIdle()),
		session.WithRegistryRecorder(recorder),
	)

	rosterSvc := roster.NewService(profiles, directory, registry, roster.Policy{
		RoleUpdatesEnabled:  cfg.RoleUpdatesEnabled,
		AllowSelfRoleChange: cfg.AllowSelfRoleChange,
		MinPasswordLength:   cfg.MinPasswordLength,
	}, recorder)

	if cfg.BootstrapAdminEmail != "" {
		if _, err := rosterSvc.BootstrapAdmin(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword, cfg.BootstrapAdminName); err != nil {
			slog.Error("failed to bootstrap admin", "error", err)
			os.Exit(1)
		}
	}

	submitter := record.NewSubmitter(
		cfg.SubmissionURL,
		record.Mode(cfg.SubmissionMode),
		record.NewHTTPClient(cfg.SubmissionSSRFGuard, cfg.SubmissionTimeout()),
		recorder,
	)

	rateLimiter := middleware.NewRateLimiter(cfg.SubmissionRatePerMinute)

	router := api.NewRouter(api.RouterDeps{
		DBPinger:       db,
		Sessions:       registry,
		Tokens:         auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL()),
		Accounts:       account.NewService(directory, profiles, cfg.MinPasswordLength, recorder),
		Roster:         rosterSvc,
		Submitter:      submitter,
		RateLimiter:    rateLimiter,
		Metrics:        metrics.Handler(promReg),
		ResolveTimeout: cfg.SessionResolveTimeout(),
		Version:        cfg.Version,
		OpenAPISpec:    specpkg.OpenAPISpec,
	})

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()
	go registry.Run(bgCtx, cfg.SessionSweepInterval())
	go rateLimiter.Run(bgCtx, 5*time.Minute)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting case entry server",
			"port", cfg.Port,
			"version", cfg.Version,
			"submissionMode", cfg.SubmissionMode,
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down server")
	case err := <-serverErr:
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	bgCancel()
	slog.Info("server stopped gracefully")
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
