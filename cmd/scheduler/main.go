package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"campaignmerch_backend/internal/adapters"
	bundlerepo "campaignmerch_backend/internal/bundles/repository"
	catalogrepo "campaignmerch_backend/internal/catalog/repository"
	"campaignmerch_backend/internal/events"
	"campaignmerch_backend/internal/integrity"
	"campaignmerch_backend/internal/scheduler"
	"campaignmerch_backend/platform/config"
	"campaignmerch_backend/platform/db"
	"campaignmerch_backend/platform/logger"
)

// The scheduler binary runs integrity sweeps off an asynq queue so a fleet of
// API instances can share one sweep schedule instead of each ticking locally.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting integrity sweep worker", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	if cfg.GetRedisURL() == "" {
		panic("REDIS_URL is required for the sweep worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

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

	cache := integrity.NewReferenceCache(cfg.GetCacheTimeout(), cfg.GetCacheMaxEntries(), cfg.GetCacheCleanupInterval())
	defer cache.Close()

	snapshotSource := adapters.NewCatalogSnapshotSource(catalogrepo.New(pool))
	lineSource := adapters.NewBundleLineSource(bundlerepo.New(pool))
	validator := integrity.NewValidator(cache, snapshotSource, opts, log)
	sweeper := integrity.NewSweeper(validator, cache, lineSource, eventBus, opts, log)

	worker, err := scheduler.NewWorker(cfg, sweeper, log)
	if err != nil {
		log.Error("failed to initialize sweep worker", "error", err)
		panic("failed to initialize sweep worker: " + err.Error())
	}

	periodic, err := scheduler.NewPeriodicScheduler(cfg)
	if err != nil {
		log.Error("failed to initialize periodic scheduler", "error", err)
		panic("failed to initialize periodic scheduler: " + err.Error())
	}
	go func() {
		if err := periodic.Run(); err != nil {
			log.Error("periodic scheduler stopped", "error", err)
		}
	}()
	go func() {
		<-ctx.Done()
		periodic.Shutdown()
	}()

	log.Info("sweep worker listening", "interval", cfg.GetSweepInterval().String())
	if err := worker.Run(ctx); err != nil {
		log.Error("sweep worker stopped", "error", err)
		panic("sweep worker stopped: " + err.Error())
	}
	log.Info("sweep worker shut down")
}
