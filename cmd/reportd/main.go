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

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/finsight/reportd/internal/adapter/anthropic"
	rdhttp "github.com/finsight/reportd/internal/adapter/http"
	rdnats "github.com/finsight/reportd/internal/adapter/nats"
	"github.com/finsight/reportd/internal/adapter/otel"
	"github.com/finsight/reportd/internal/adapter/postgres"
	"github.com/finsight/reportd/internal/adapter/ristretto"
	"github.com/finsight/reportd/internal/config"
	"github.com/finsight/reportd/internal/dataset"
	"github.com/finsight/reportd/internal/logger"
	"github.com/finsight/reportd/internal/middleware"
	"github.com/finsight/reportd/internal/resilience"
	"github.com/finsight/reportd/internal/service"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	log := logger.New(cfg.Logging)
	slog.SetDefault(log)

	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Logging.Level,
		"data_dir", cfg.Data.Dir,
		"reports_dir", cfg.Reports.Dir,
	)

	ctx := context.Background()

	// --- Infrastructure ---

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	queue, err := rdnats.Connect(ctx, cfg.NATS.URL)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = queue.Close() }()

	shutdownMetrics, err := otel.InitMetrics(ctx, cfg.Metrics, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownMetrics(sctx)
	}()

	metrics, err := otel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics instruments: %w", err)
	}

	cache, err := ristretto.New(cfg.Cache.MaxSizeMB<<20, cfg.Cache.TTL)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer cache.Close()

	// Company dataset is immutable for the process lifetime; load it once.
	data, err := dataset.Load(ctx, cfg.Data.Dir)
	if err != nil {
		return fmt.Errorf("dataset: %w", err)
	}

	generator, err := anthropic.NewClient(cfg.Anthropic)
	if err != nil {
		return fmt.Errorf("anthropic: %w", err)
	}

	// --- Services ---

	store := postgres.NewStore(pool)
	breaker := resilience.NewBreaker(cfg.Breaker.MaxFailures, cfg.Breaker.Timeout)

	authSvc := service.NewAuthService(store, &cfg.Auth)
	taskSvc := service.NewTaskService(store, queue, data, metrics, log)
	reportSvc := service.NewReportService(generator, breaker, metrics, log, cfg.Reports.Dir)
	renderSvc := service.NewRenderService(store, cache, log)

	worker := service.NewWorker(store, queue, data, reportSvc, metrics, log, cfg.Worker)
	if err := worker.Start(ctx); err != nil {
		return fmt.Errorf("worker: %w", err)
	}
	defer worker.Stop()

	// --- HTTP ---

	handlers := rdhttp.NewHandlers(authSvc, taskSvc, renderSvc, data, queue)

	r := chi.NewRouter()
	r.Use(rdhttp.CORS(cfg.Server.CORSOrigin))
	r.Use(rdhttp.SecurityHeaders)
	// RequestID must wrap Logger so the logged request carries the id.
	r.Use(middleware.RequestID)
	r.Use(rdhttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	if cfg.Metrics.Enabled {
		r.Use(otel.HTTPMiddleware(cfg.Logging.Service))
	}
	r.Use(middleware.Authenticate(authSvc))

	rdhttp.MountRoutes(r, handlers)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
		}
	}()

	<-done
	slog.Info("shutting down server")

	// Stop taking new jobs before closing the HTTP listener so in-flight
	// generations can finish their store writes.
	worker.Stop()
	_ = queue.Drain()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}
