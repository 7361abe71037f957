package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"renderhub/internal/adapter/repo"
	"renderhub/internal/bus"
	"renderhub/internal/http/handlers"
	"renderhub/internal/http/httpapi"
	"renderhub/internal/infra"
	"renderhub/internal/jobs"
	"renderhub/internal/ledger"
	"renderhub/internal/payment"
)

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

	rdb, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer rdb.Close()

	jobRepo := repo.NewJobRepository(dbpool)
	walletRepo := repo.NewWalletRepository(dbpool)
	subRepo := repo.NewSubscriptionRepository(dbpool)
	webhookRepo := repo.NewWebhookRepository(dbpool)

	requests := bus.NewQueue(rdb, cfg.JobRequestQueue)
	jobSvc := jobs.NewService(jobRepo, logger)
	ledgerSvc := ledger.NewService(walletRepo, logger)

	app := &handlers.App{
		Jobs:       jobSvc,
		Dispatcher: jobs.NewDispatcher(requests, logger),
		Ledger:     ledgerSvc,
		Subs:       subRepo,
		Ingestor:   payment.NewIngestor(webhookRepo, ledgerSvc, cfg.PaymentPrefix, logger),
		Logger:     logger,
	}

	server := infra.NewHTTPServer(cfg, httpapi.NewRouter(app))

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
