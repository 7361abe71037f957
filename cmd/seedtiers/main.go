package main

import (
	"context"

	"github.com/joho/godotenv"

	"renderhub/internal/adapter/repo"
	"renderhub/internal/domain"
	"renderhub/internal/infra"
)

// Seed tier ids are fixed so re-running the seeder updates prices in place
// instead of growing the catalog.
var tiers = []domain.SubscriptionTier{
	{
		ID:              "11111111-1111-1111-1111-111111111111",
		Name:            "Basic",
		MonthlyPrice:    199_000,
		MaxJobsPerMonth: 50,
		MaxResolution:   "720p",
		HasWatermark:    true,
		QueuePriority:   "low",
		IsActive:        true,
	},
	{
		ID:              "22222222-2222-2222-2222-222222222222",
		Name:            "Creator",
		MonthlyPrice:    499_000,
		MaxJobsPerMonth: 200,
		MaxResolution:   "1080p",
		QueuePriority:   "high",
		IsActive:        true,
	},
	{
		ID:                   "33333333-3333-3333-3333-333333333333",
		Name:                 "Agency",
		MonthlyPrice:         1_499_000,
		MaxJobsPerMonth:      -1,
		MaxResolution:        "4K",
		QueuePriority:        "realtime",
		SupportsLoRA:         true,
		SupportsVoiceCloning: true,
		IsActive:             true,
	},
}

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	dbpool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer dbpool.Close()

	subs := repo.NewSubscriptionRepository(dbpool)
	for i := range tiers {
		if err := subs.UpsertTier(ctx, &tiers[i]); err != nil {
			logger.Fatal().Err(err).Str("tier", tiers[i].Name).Msg("failed to seed tier")
		}
		logger.Info().Str("tier", tiers[i].Name).Int64("price", tiers[i].MonthlyPrice).Msg("tier seeded")
	}
}
