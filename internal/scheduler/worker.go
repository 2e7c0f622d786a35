package scheduler

import (
	"context"
	"log/slog"

	"github.com/hibiken/asynq"

	"campaignmerch_backend/internal/integrity"
	"campaignmerch_backend/platform/apperr"
	"campaignmerch_backend/platform/config"
	"campaignmerch_backend/platform/logger"
)

// Worker consumes scheduled integrity tasks from Redis.
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	sweeper *integrity.Sweeper
	logger  *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, sweeper *integrity.Sweeper, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency <= 0 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
	})

	w := &Worker{
		server:  server,
		mux:     asynq.NewServeMux(),
		sweeper: sweeper,
		logger:  log,
	}
	w.mux.HandleFunc(TaskIntegritySweep, w.handleIntegritySweep)

	return w, nil
}

// Run starts the worker and blocks until ctx is cancelled or the server stops.
func (w *Worker) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()
	return w.server.Run(w.mux)
}

func (w *Worker) handleIntegritySweep(ctx context.Context, t *asynq.Task) error {
	payload, err := ParseIntegritySweepPayload(t)
	if err != nil {
		w.logger.Error("invalid integrity sweep payload", slog.String("error", err.Error()))
		return err
	}

	report, err := w.sweeper.SweepAll(ctx)
	if err != nil {
		// An overlapping scheduled tick is expected; the running sweep
		// already covers it.
		if apperr.GetKind(err) == apperr.KindConflict {
			w.logger.Info("integrity sweep already running, skipping scheduled run")
			return nil
		}
		w.logger.Error("scheduled integrity sweep failed", slog.String("error", err.Error()))
		return err
	}

	w.logger.Info("scheduled integrity sweep finished",
		slog.String("requested_by", payload.RequestedBy),
		slog.Int("bundles_checked", report.BundlesChecked),
		slog.Int("issues_found", report.IssuesFound),
		slog.Int("actions_executed", report.ActionsExecuted),
	)
	return nil
}
