package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"renderhub/internal/adapter/repo"
	"renderhub/internal/billing"
	"renderhub/internal/infra"
	"renderhub/internal/ledger"
)

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

	renewer := billing.NewRenewer(
		repo.NewSubscriptionRepository(dbpool),
		ledger.NewService(repo.NewWalletRepository(dbpool), logger),
		billing.ExpireImmediately,
		logger,
	)

	run := func() {
		processed, err := renewer.RunOnce(ctx, time.Now().UTC())
		if err != nil {
			logger.Error().Err(err).Msg("billing: renewal run failed")
			return
		}
		logger.Info().Int("processed", processed).Msg("billing: renewal run complete")
	}

	// A run that overruns its slot skips the next trigger instead of stacking
	// a second concurrent pass over the same due subscriptions.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
	if _, err := c.AddFunc(cfg.BillingCron, run); err != nil {
		logger.Fatal().Err(err).Str("schedule", cfg.BillingCron).Msg("invalid billing schedule")
	}
	c.Start()
	logger.Info().Str("schedule", cfg.BillingCron).Msg("billing scheduler started")

	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info().Msg("billing scheduler stopped")
}
