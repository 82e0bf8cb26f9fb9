package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/STRATINT/radar/internal/api"
	"github.com/STRATINT/radar/internal/cache"
	"github.com/STRATINT/radar/internal/config"
	"github.com/STRATINT/radar/internal/database"
	"github.com/STRATINT/radar/internal/enrichment"
	"github.com/STRATINT/radar/internal/ingestion"
	"github.com/STRATINT/radar/internal/logging"
	"github.com/STRATINT/radar/internal/metrics"
	"github.com/STRATINT/radar/internal/radar"
	"github.com/STRATINT/radar/internal/registry"
	"github.com/STRATINT/radar/internal/scheduler"
	"github.com/STRATINT/radar/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	logger.Info("starting regulatory radar")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg, err := loadRegistry(cfg.Radar)
	if err != nil {
		logger.Error("failed to load source catalog", "error", err)
		os.Exit(1)
	}
	logger.Info("source catalog loaded", "sources", reg.IDs())

	versionCache, db, err := openCache(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("failed to initialise version cache", "error", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
	}

	fetcher, err := buildFetcher(cfg.Fetcher, logger)
	if err != nil {
		logger.Error("failed to initialise fetcher", "error", err)
		os.Exit(1)
	}

	enricher, summarizer := buildCollaborators(cfg.OpenAI, logger)

	collector, err := metrics.NewCollector()
	if err != nil {
		logger.Error("failed to init metrics", "error", err)
		os.Exit(1)
	}

	engine, err := radar.New(radar.Config{
		CycleTimeout:     cfg.Radar.CycleTimeout,
		EnrichTimeout:    cfg.Radar.EnrichTimeout,
		SummaryTimeout:   cfg.Radar.SummaryTimeout,
		SuppressBaseline: cfg.Radar.SuppressBaseline,
	}, radar.Dependencies{
		Registry:   reg,
		Fetcher:    fetcher,
		Cache:      versionCache,
		Enricher:   enricher,
		Summarizer: summarizer,
		Metrics:    collector,
		Logger:     logger,
	})
	if err != nil {
		logger.Error("failed to build radar engine", "error", err)
		os.Exit(1)
	}

	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			if err := database.HealthCheck(r.Context(), db); err != nil {
				logger.Warn("database health check failed", "error", err)
				http.Error(w, `{"status":"unavailable"}`, http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.Handle("/metrics", collector.Handler())

	logger.Info("setting up REST API")
	api.SetupRoutes(mux, engine, logging.Component(logger, "api"))

	srv := server.New(cfg.Server, logger, collector.InstrumentHandler(api.WithCORS(mux)))

	var cycleScheduler *scheduler.CycleScheduler
	if cfg.Radar.Schedule != "" {
		cycleScheduler, err = scheduler.NewCycleScheduler(engine, cfg.Radar.Schedule, radar.CycleRequest{
			Deep:      enricher.Available(),
			Summarize: true,
		}, logging.Component(logger, "scheduler"))
		if err != nil {
			logger.Error("failed to configure scheduler", "error", err)
			os.Exit(1)
		}
		go cycleScheduler.Start(ctx)
	} else {
		logger.Info("scheduled cycles disabled")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", "error", err)
		}
	}

	if cycleScheduler != nil {
		cycleScheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	if err := engine.Close(shutdownCtx); err != nil {
		logger.Error("failed to flush version cache", "error", err)
	}

	logger.Info("radar stopped")
}

func loadRegistry(cfg config.RadarConfig) (*registry.Registry, error) {
	if cfg.CatalogPath != "" {
		return registry.Load(cfg.CatalogPath)
	}
	return registry.Default()
}

// openCache returns an in-memory cache, or a Postgres-backed one restored from
// the database when one is configured.
func openCache(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*cache.VersionCache, *sql.DB, error) {
	cacheLogger := logging.Component(logger, "cache")
	if !cfg.Enabled() {
		logger.Info("no database configured, version cache is in-memory only")
		return cache.New(nil, cacheLogger), nil, nil
	}

	logger.Info("connecting to database", "target", cfg.Redacted())
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("database connected")

	if err := database.RunMigrations(ctx, db, logging.Component(logger, "migrations")); err != nil {
		db.Close()
		return nil, nil, err
	}

	vc := cache.New(database.NewVersionCacheRepository(db), cacheLogger)
	if err := vc.Restore(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	logger.Info("version cache restored", "sources", vc.Len())
	return vc, db, nil
}

func buildFetcher(cfg config.FetcherConfig, logger *slog.Logger) (ingestion.Fetcher, error) {
	switch cfg.Mode {
	case config.FetcherModeHTTP:
		logger.Info("using HTTP fetcher", "base_url", cfg.BaseURL)
		return ingestion.NewHTTPFetcher(ingestion.HTTPFetcherConfig{
			BaseURL:  cfg.BaseURL,
			RetryMax: cfg.RetryMax,
			Timeout:  cfg.Timeout,
		}, logging.Component(logger, "fetcher"))
	case config.FetcherModeStatic, "":
		logger.Info("using static reference fetcher")
		return ingestion.NewStaticFetcher(), nil
	default:
		return nil, errors.New("unknown fetcher mode " + cfg.Mode)
	}
}

// buildCollaborators picks OpenAI-backed analysis when a key is configured and
// falls back to the no-op enricher and templated summaries otherwise.
func buildCollaborators(cfg config.OpenAIConfig, logger *slog.Logger) (enrichment.Enricher, enrichment.Summarizer) {
	if cfg.APIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, deep analysis disabled and summaries are templated")
		return enrichment.NewNoopEnricher(), enrichment.NewTemplateSummarizer()
	}

	client, err := enrichment.NewOpenAIClient(enrichment.OpenAIConfig{
		APIKey:      cfg.APIKey,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}, logging.Component(logger, "enrichment"))
	if err != nil {
		logger.Warn("failed to initialize OpenAI client, using fallbacks", "error", err)
		return enrichment.NewNoopEnricher(), enrichment.NewTemplateSummarizer()
	}

	logger.Info("using OpenAI enricher", "model", cfg.Model)
	return client, client
}
