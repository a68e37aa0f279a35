package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/fanmetrics/fanmetrics/internal/app"
	jobmetrics "github.com/fanmetrics/fanmetrics/internal/jobs"
	"github.com/fanmetrics/fanmetrics/internal/market"
	"github.com/fanmetrics/fanmetrics/internal/platform/cache"
	"github.com/fanmetrics/fanmetrics/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg).With(slog.String("component", "worker"))

	redisClient, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	start, err := cfg.HistoryStart()
	if err != nil {
		logger.Error("history start", slog.Any("error", err))
		os.Exit(1)
	}
	catalog := market.DefaultCatalog()
	if cfg.CatalogFile != "" {
		if catalog, err = market.LoadCatalogFile(cfg.CatalogFile); err != nil {
			logger.Error("load catalog", slog.String("path", cfg.CatalogFile), slog.Any("error", err))
			os.Exit(1)
		}
	}
	historyCache := market.NewCache(redisClient, cfg.HistoryCacheTTL)
	service, err := market.NewService(market.ServiceConfig{
		Catalog:         catalog,
		Creators:        market.DefaultCreatorConfig(),
		HistoryStart:    start,
		HistorySeed:     cfg.HistorySeed,
		SessionCapacity: 1,
		Cache:           historyCache,
	})
	if err != nil {
		logger.Error("init market service", slog.Any("error", err))
		os.Exit(1)
	}

	warmupJob := jobs.NewHistoryWarmupJob(service, historyCache, logger, jobmetrics.NewMetrics(nil))

	warmupTask, err := jobs.NewHistoryWarmupTask("")
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskMarketHistoryWarmup, Handler: warmupJob.Handle},
			{Type: jobs.TaskMarketCacheBump, Handler: warmupJob.HandleBump},
		},
		Cron: []jobs.CronRegistration{
			// First of the month, right after the new month appears in history.
			{Spec: "5 0 1 * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "15 1 * * *", Task: warmupTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
