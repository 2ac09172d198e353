// Package main provides the entry point for the paper search gateway HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/helixir/paper-search-gateway/internal/cache"
	"github.com/helixir/paper-search-gateway/internal/config"
	"github.com/helixir/paper-search-gateway/internal/database"
	"github.com/helixir/paper-search-gateway/internal/observability"
	"github.com/helixir/paper-search-gateway/internal/repository"
	"github.com/helixir/paper-search-gateway/internal/retrieval"
	"github.com/helixir/paper-search-gateway/internal/samples"
	"github.com/helixir/paper-search-gateway/internal/search"
	httpserver "github.com/helixir/paper-search-gateway/internal/server/http"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "server").Logger()
	logger.Info().Msg("paper-search-gateway starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	// Run migrations if configured.
	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Set up metrics.
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("paper_search_gateway")
	}

	// Build the result cache and the fallback sample set.
	cacheStore := cache.NewStore(cfg.Cache.Path, logger, metrics)

	sampleProvider, err := samples.Load(cfg.Samples.Path, cfg.Samples.Repeat)
	if err != nil {
		return fmt.Errorf("load sample data: %w", err)
	}
	logger.Info().Str("path", cfg.Samples.Path).Msg("fallback samples loaded")

	// Build the retrieval client.
	retrievalClient := retrieval.NewClient(retrieval.Config{
		BaseURL:           cfg.Retrieval.BaseURL,
		TopK:              cfg.Retrieval.TopK,
		SearchTimeout:     cfg.Retrieval.SearchTimeout,
		DeepSearchTimeout: cfg.Retrieval.DeepSearchTimeout,
		RateLimit:         cfg.Retrieval.RateLimit,
		BurstSize:         cfg.Retrieval.BurstSize,
		MaxRetries:        cfg.Retrieval.MaxRetries,
		RetryDelay:        cfg.Retrieval.RetryDelay,
		StatsURL:          cfg.Stats.URL,
		StatsTimeout:      cfg.Stats.Timeout,
	}, nil, logger, metrics)

	// Build the enrichment pipeline on top of the lookup repository.
	lookupRepo := repository.NewPgLookupRepository(db, cfg.Enrichment.MaxConcurrentLookups, logger, metrics)
	enricher := search.NewEnricher(lookupRepo, logger, metrics)

	// Build the HTTP API server.
	httpCfg := httpserver.Config{
		Address:            cfg.Server.HTTPAddress(),
		ReadTimeout:        cfg.Server.ReadTimeout,
		WriteTimeout:       cfg.Server.WriteTimeout,
		IdleTimeout:        cfg.Server.IdleTimeout,
		ShutdownTimeout:    cfg.Server.ShutdownTimeout,
		ConfigDocumentPath: cfg.Server.ConfigDocumentPath,
	}
	httpSrv := httpserver.NewServer(
		httpCfg,
		retrievalClient,
		enricher,
		cacheStore,
		sampleProvider,
		db,
		logger,
		metrics,
	)

	// Set up Prometheus metrics handler on a separate port if configured.
	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.Metrics.Path, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      metricsMux,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
	}

	// Channel to collect server errors.
	errCh := make(chan error, 2)

	// Start API server in background.
	go func() {
		logger.Info().
			Str("address", httpCfg.Address).
			Msg("HTTP API server starting")
		if err := httpSrv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Start metrics server if configured.
	if metricsServer != nil {
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
	}

	readyLog := logger.Info().Str("http_address", httpCfg.Address)
	if metricsServer != nil {
		readyLog = readyLog.Str("metrics_address", metricsServer.Addr)
	}
	readyLog.Msg("paper-search-gateway is ready")

	// Wait for shutdown signal or server error.
	select {
	case <-ctx.Done():
		logger.Info().Msg("received shutdown signal")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error")
		return err
	}

	// Graceful shutdown.
	logger.Info().Msg("shutting down paper-search-gateway")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if metricsServer != nil {
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("metrics server shutdown error")
		}
	}

	logger.Info().Msg("paper-search-gateway shutdown complete")
	return nil
}
