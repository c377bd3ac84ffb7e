package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/dnscache"

	"github.com/eugener/ghdash/internal/app"
	"github.com/eugener/ghdash/internal/cache"
	"github.com/eugener/ghdash/internal/config"
	"github.com/eugener/ghdash/internal/github"
	"github.com/eugener/ghdash/internal/server"
	"github.com/eugener/ghdash/internal/storage"
	"github.com/eugener/ghdash/internal/storage/memory"
	"github.com/eugener/ghdash/internal/storage/sqlite"
	"github.com/eugener/ghdash/internal/telemetry"
	"github.com/eugener/ghdash/internal/worker"
)

// kvStore is a storage.KV that can also answer readiness probes.
type kvStore interface {
	storage.KV
	Ping(ctx context.Context) error
}

func openStore(cfg config.StoreConfig) (kvStore, error) {
	switch cfg.Driver {
	case "memory":
		s, err := memory.New(cfg.MaxBytes)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "sqlite":
		s, err := sqlite.New(cfg.DSN, cfg.MaxBytes)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}

func run(configPath string) error {
	// Load config
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	slog.Info("starting ghdash", "version", version, "addr", cfg.Server.Addr, "store", cfg.Store.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	// Tracing
	if cfg.Telemetry.Tracing.Enabled {
		shutdown, err := telemetry.SetupTracing(ctx, cfg.Telemetry.Tracing.Endpoint,
			cfg.Telemetry.Tracing.SampleRate, version)
		if err != nil {
			return err
		}
		defer func() {
			if err := shutdown(context.Background()); err != nil {
				slog.Error("tracing shutdown", "error", err)
			}
		}()
	}

	// Metrics. The registry is always live so workers and views can record;
	// /metrics is only mounted when enabled.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)
	var metricsHandler http.Handler
	if cfg.Telemetry.Metrics.Enabled {
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	// Open store
	store, err := openStore(cfg.Store)
	if err != nil {
		return err
	}
	defer store.Close()

	// GitHub client
	var resolver *dnscache.Resolver
	if cfg.GitHub.DNSCache {
		resolver = &dnscache.Resolver{}
	}
	httpClient := github.NewHTTPClient(github.NewTransport(resolver), cfg.GitHub.Token, cfg.GitHub.Timeout)
	gh := github.New(cfg.GitHub.BaseURL, httpClient,
		github.WithUserAgent(cfg.GitHub.UserAgent),
		github.WithMetrics(metrics),
	)
	if cfg.GitHub.Token == "" {
		slog.Warn("no GitHub token configured, requests are anonymous and heavily rate limited")
	}

	// Wire services
	viewCache := cache.New(store, cache.WithDefaultTTL(cfg.Cache.DefaultTTL))
	owner, repo := cfg.ContributorsRepo()
	views := app.New(gh, viewCache,
		app.WithMetrics(metrics),
		app.WithExplore(cfg.Views.ExploreQuery, cfg.Views.ExploreLimit),
		app.WithContributorsRepo(owner, repo),
	)

	// Background workers
	workers := []worker.Worker{worker.NewStoreUsageReporter(store, metrics, 0)}
	if resolver != nil {
		workers = append(workers, worker.NewDNSRefresher(resolver, 0))
	}
	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()
	workerErr := make(chan error, 1)
	go func() { workerErr <- worker.NewRunner(workers...).Run(workerCtx) }()

	// Create HTTP server
	handler := server.New(server.Deps{
		Views:          views,
		Cache:          viewCache,
		ReadyCheck:     store.Ping,
		Metrics:        metrics,
		MetricsHandler: metricsHandler,
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	slog.Info("ghdash ready", "addr", cfg.Server.Addr)

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		return err
	case err := <-workerErr:
		if err != nil {
			return fmt.Errorf("worker: %w", err)
		}
	}

	// Shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	cancelWorkers()

	slog.Info("ghdash stopped")
	return nil
}

