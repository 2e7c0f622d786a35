package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campaignmerch_backend/internal/adapters"
	"campaignmerch_backend/internal/bundles"
	"campaignmerch_backend/internal/catalog"
	"campaignmerch_backend/internal/events"
	apphttp "campaignmerch_backend/internal/http"
	"campaignmerch_backend/internal/http/router"
	"campaignmerch_backend/internal/integrity"
	"campaignmerch_backend/internal/quotes"
	"campaignmerch_backend/internal/scheduler"
	"campaignmerch_backend/platform/config"
	"campaignmerch_backend/platform/db"
	"campaignmerch_backend/platform/logger"
	"campaignmerch_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	catalogModule := catalog.NewModule(pool, eventBus, val, log)

	catalogReader := adapters.NewCatalogReader(catalogModule.Repository())
	bundlesModule := bundles.NewModule(pool, catalogReader, eventBus, val, log)

	// Integrity engine: cache + validator + sweeper over the two catalogs
	opts := integrityOptions(cfg)
	cache := integrity.NewReferenceCache(cfg.GetCacheTimeout(), cfg.GetCacheMaxEntries(), cfg.GetCacheCleanupInterval())
	defer cache.Close()

	snapshotSource := adapters.NewCatalogSnapshotSource(catalogModule.Repository())
	lineSource := adapters.NewBundleLineSource(bundlesModule.Repository())
	integrityValidator := integrity.NewValidator(cache, snapshotSource, opts, log)
	sweeper := integrity.NewSweeper(integrityValidator, cache, lineSource, eventBus, opts, log)

	integrityModule := integrity.NewModule(sweeper, log)
	integrityModule.RegisterHandlers(eventBus)

	sweepClient, closeSweepClient := initSweepClient(cfg, log)
	if closeSweepClient != nil {
		defer closeSweepClient()
	}
	if sweepClient != nil {
		// Admin-triggered sweeps go through the worker queue.
		integrityModule.SetSweepScheduler(adapters.NewSweepEnqueuer(sweepClient))
	} else if cfg.SweepInterval > 0 {
		// Self-healing without redis: sweep on an in-process ticker.
		sweeper.SchedulePeriodicSweep(ctx, cfg.SweepInterval)
		log.Info("in-process periodic sweep scheduled", "interval", cfg.SweepInterval.String())
	}

	quoteProducts := adapters.NewQuoteProductSource(catalogModule.Repository())
	quotesModule := quotes.NewModule(quoteProducts, val)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   pool,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			catalogModule,
			bundlesModule,
			integrityModule,
			quotesModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initSweepClient(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; sweeps run in-process")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize sweep scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func integrityOptions(cfg config.IntegrityConfig) integrity.Options {
	opts := integrity.DefaultOptions()
	opts.StrictValidation = cfg.GetStrictValidation()
	opts.AllowInactiveProducts = cfg.GetAllowInactiveProducts()
	opts.CacheTimeout = cfg.GetCacheTimeout()
	opts.AutoCorrectPrices = cfg.GetAutoCorrectPrices()
	opts.AutoCorrectNames = cfg.GetAutoCorrectNames()
	opts.AutoFix = cfg.GetAutoFix()
	if v := cfg.GetSweepBatchSize(); v > 0 {
		opts.BatchSize = v
	}
	if v := cfg.GetSweepMaxConcurrency(); v > 0 {
		opts.MaxConcurrency = v
	}
	return opts
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}
	return fmt.Errorf("%s: %w", name, lastErr)
}
