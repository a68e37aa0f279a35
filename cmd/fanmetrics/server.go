package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/fanmetrics/fanmetrics/internal/app"
	jobmetrics "github.com/fanmetrics/fanmetrics/internal/jobs"
	"github.com/fanmetrics/fanmetrics/internal/market"
	"github.com/fanmetrics/fanmetrics/internal/market/export"
	markethttp "github.com/fanmetrics/fanmetrics/internal/market/http"
	"github.com/fanmetrics/fanmetrics/internal/market/live"
	"github.com/fanmetrics/fanmetrics/internal/market/svg"
	"github.com/fanmetrics/fanmetrics/internal/market/ui"
	"github.com/fanmetrics/fanmetrics/internal/observability"
	"github.com/fanmetrics/fanmetrics/internal/platform/cache"
	"github.com/fanmetrics/fanmetrics/internal/shared"
	"github.com/fanmetrics/fanmetrics/internal/view"
	"github.com/fanmetrics/fanmetrics/jobs"
)

// newMarketService assembles the market service from configuration. A nil
// historyCache disables history caching.
func newMarketService(cfg *app.Config, historyCache *market.Cache) (*market.Service, error) {
	start, err := cfg.HistoryStart()
	if err != nil {
		return nil, err
	}
	catalog := market.DefaultCatalog()
	if cfg.CatalogFile != "" {
		catalog, err = market.LoadCatalogFile(cfg.CatalogFile)
		if err != nil {
			return nil, fmt.Errorf("load catalog %s: %w", cfg.CatalogFile, err)
		}
	}
	creators := market.DefaultCreatorConfig()
	creators.Size = cfg.PanelSize
	return market.NewService(market.ServiceConfig{
		Catalog:         catalog,
		Creators:        creators,
		HistoryStart:    start,
		HistorySeed:     cfg.HistorySeed,
		SessionSeed:     cfg.SessionSeed,
		SessionCapacity: cfg.SessionCapacity,
		Cache:           historyCache,
	})
}

// serve runs the dashboard HTTP server and the live refresh loop until ctx
// is cancelled.
func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	var redisClient *redis.Client
	if cfg.CacheEnabled {
		client, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err != nil {
			logger.Warn("redis unavailable, running without cache", slog.Any("error", err))
		} else {
			redisClient = client
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.Warn("redis close", slog.Any("error", err))
				}
			}()
		}
	}

	var historyCache *market.Cache
	if redisClient != nil {
		historyCache = market.NewCache(redisClient, cfg.HistoryCacheTTL)
		if err := historyCache.ListenForInvalidation(ctx); err != nil {
			logger.Warn("cache invalidation listener", slog.Any("error", err))
		}
	}
	service, err := newMarketService(cfg, historyCache)
	if err != nil {
		return err
	}

	sessionManager := shared.NewSessionManager(redisClient, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())

	templates, err := view.NewEngine()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	metrics := observability.NewMetrics()
	jobMetrics := jobmetrics.NewMetrics(metrics.Registerer())

	renderer := svg.Renderer{}
	pdfExporter := &export.PDFExporter{Endpoint: cfg.GotenbergURL, Client: http.DefaultClient}
	hub := live.NewHub(logger, service, func(r *http.Request) string {
		return shared.SessionID(r.Context())
	})
	hub.WithObserver(metrics)
	defer hub.Close()

	marketHandler := markethttp.NewHandler(
		logger,
		service,
		templates,
		ui.Renderers{Line: renderer, Bar: renderer, Donut: renderer, Heatmap: renderer},
		pdfExporter,
	)
	marketHandler.WithLive(hub)

	refresher := market.NewRefresher(market.RefresherConfig{
		Store:    service.Store(),
		Interval: cfg.RefreshInterval,
		Notifier: hub,
		Logger:   logger,
		Metrics:  jobMetrics,
	})
	go func() {
		if err := refresher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("live refresh", slog.Any("error", err))
		}
	}()

	var jobHandler *jobs.Handler
	if redisClient != nil {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB}
		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobClient := jobs.NewClient(redisOpts)
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, jobClient, logger)
	}

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		SessionManager: sessionManager,
		MarketHandler:  marketHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
		Ready: func(ctx context.Context) error {
			if !cfg.CacheEnabled {
				return nil
			}
			return cache.Ping(ctx, redisClient, time.Second)
		},
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
	return nil
}
