package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"renderhub/internal/adapter/repo"
	"renderhub/internal/bus"
	"renderhub/internal/infra"
	"renderhub/internal/jobs"
	"renderhub/internal/notify"
)

const popTimeout = 5 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer rdb.Close()

	events := bus.NewQueue(rdb, cfg.JobEventQueue)
	reconciler := jobs.NewReconciler(
		jobs.NewService(repo.NewJobRepository(dbpool), logger),
		notify.NewRedisNotifier(rdb, cfg.NotifyChannel),
		notify.NewURLRewriter(cfg.StorageInternalURL, cfg.StoragePublicURL),
		logger,
	)

	logger.Info().
		Int("concurrency", cfg.WorkerConcurrency).
		Str("queue", cfg.JobEventQueue).
		Msg("worker started")

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.WorkerConcurrency; i++ {
		g.Go(func() error {
			return consume(gctx, events, reconciler, logger)
		})
	}
	if err := g.Wait(); err != nil && gctx.Err() == nil {
		logger.Fatal().Err(err).Msg("worker failed")
	}
	logger.Info().Msg("worker stopped")
}

func consume(ctx context.Context, events *bus.Queue, reconciler *jobs.Reconciler, logger infra.Logger) error {
	for {
		env, err := events.Pop(ctx, popTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error().Err(err).Msg("worker: pop failed")
			time.Sleep(time.Second)
			continue
		}
		if env == nil {
			continue
		}
		if env.Kind != jobs.KindCompletion {
			logger.Warn().Str("kind", env.Kind).Msg("worker: unknown envelope kind dropped")
			continue
		}

		var ev jobs.CompletionEvent
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			logger.Error().Err(err).Msg("worker: malformed completion event dropped")
			continue
		}
		if err := reconciler.Handle(ctx, ev); err != nil {
			// Push back for redelivery; every handler path is idempotent.
			logger.Error().Err(err).Str("job_id", ev.JobID).Msg("worker: reconcile failed, requeueing")
			if perr := events.Publish(ctx, env.Kind, json.RawMessage(env.Data)); perr != nil {
				logger.Error().Err(perr).Str("job_id", ev.JobID).Msg("worker: requeue failed, event lost")
			}
			time.Sleep(time.Second)
		}
	}
}
