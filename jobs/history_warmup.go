package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/fanmetrics/fanmetrics/internal/jobs"
	"github.com/fanmetrics/fanmetrics/internal/market"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

const warmupTimeout = 20 * time.Second

// HistorySource synthesises or loads cached market history.
type HistorySource interface {
	History(ctx context.Context, now time.Time) ([]market.MarketHistoryPoint, error)
}

// CacheBumper invalidates every cached history range.
type CacheBumper interface {
	Bump(ctx context.Context) error
}

// HistoryWarmupJob pre-populates the market history cache so the first
// dashboard render of a month does not pay for synthesis.
type HistoryWarmupJob struct {
	History HistorySource
	Cache   CacheBumper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewHistoryWarmupJob wires dependencies for the warmup handlers.
func NewHistoryWarmupJob(history HistorySource, cache CacheBumper, logger *slog.Logger, metrics *jobmetrics.Metrics) *HistoryWarmupJob {
	return &HistoryWarmupJob{
		History: history,
		Cache:   cache,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskMarketHistoryWarmup tasks.
func (j *HistoryWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.History == nil {
		return errors.New("history warmup: handler not configured")
	}
	var payload HistoryWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	month, err := payload.Month(j.now())
	if err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskMarketHistoryWarmup)
	logger := j.logger(TaskMarketHistoryWarmup).With(slog.String("through", month.Format("2006-01")))
	err = j.warm(ctx, month, logger)
	return tracker.End(err)
}

// HandleBump processes TaskMarketCacheBump tasks.
func (j *HistoryWarmupJob) HandleBump(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.History == nil || j.Cache == nil {
		return errors.New("cache bump: handler not configured")
	}
	var payload CacheBumpPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskMarketCacheBump)
	logger := j.logger(TaskMarketCacheBump).With(slog.String("reason", payload.Reason))
	if err := j.Cache.Bump(ctx); err != nil {
		logger.Error("bump cache version", slog.Any("error", err))
		return tracker.End(err)
	}
	logger.Info("cache version bumped")
	return tracker.End(j.warm(ctx, j.now(), logger))
}

func (j *HistoryWarmupJob) warm(ctx context.Context, month time.Time, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, warmupTimeout)
	defer cancel()

	start := time.Now()
	points, err := j.History.History(ctx, month)
	if err != nil {
		logger.Error("warm history", slog.Any("error", err))
		if errors.Is(err, market.ErrInvalidConfiguration) {
			return errors.Join(err, asynq.SkipRetry)
		}
		return err
	}
	logger.Info("history warmed", slog.Int("rows", len(points)), slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *HistoryWarmupJob) logger(job string) *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", job))
	}
	return slog.Default().With(slog.String("job", job))
}

func (j *HistoryWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *HistoryWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
