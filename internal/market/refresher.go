package market

import (
	"context"
	"log/slog"
	"time"

	jobmetrics "github.com/fanmetrics/fanmetrics/internal/jobs"
)

// JobLiveRefresh labels refresh ticks in job metrics.
const JobLiveRefresh = "market:live_refresh"

// DefaultRefreshInterval is the period between live updates.
const DefaultRefreshInterval = 30 * time.Second

// Notifier is told which sessions changed after each tick.
type Notifier interface {
	Refreshed(ctx context.Context, sessionIDs []string)
}

// Refresher periodically jitters the panels of auto-refresh sessions. Ticks
// run sequentially on the Run goroutine and never overlap.
type Refresher struct {
	store    *SessionStore
	interval time.Duration
	notifier Notifier
	logger   *slog.Logger
	metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// RefresherConfig collects Refresher dependencies.
type RefresherConfig struct {
	Store    *SessionStore
	Interval time.Duration
	Notifier Notifier
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// NewRefresher wires a refresher; a non-positive interval falls back to
// DefaultRefreshInterval.
func NewRefresher(cfg RefresherConfig) *Refresher {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		store:    cfg.Store,
		interval: interval,
		notifier: cfg.Notifier,
		logger:   logger.With(slog.String("job", JobLiveRefresh)),
		metrics:  cfg.Metrics,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

// WithClock overrides the refresher clock for testing.
func (r *Refresher) WithClock(fn func() time.Time) {
	if fn != nil {
		r.clock = fn
	}
}

// Run ticks until ctx is cancelled.
func (r *Refresher) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	r.logger.Info("live refresh started", slog.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("live refresh stopped")
			return ctx.Err()
		case <-ticker.C:
			r.RefreshOnce(ctx)
		}
	}
}

// RefreshOnce applies one jitter round to every auto-refresh session and
// returns their ids.
func (r *Refresher) RefreshOnce(ctx context.Context) []string {
	tracker := r.metrics.Track(JobLiveRefresh)
	now := r.clock()
	var ids []string
	r.store.Each(func(s *Session) {
		if !s.AutoRefresh() {
			return
		}
		s.Tick(now)
		ids = append(ids, s.ID())
	})
	_ = tracker.End(nil)
	r.metrics.ObserveRefresh(len(ids), r.store.Len())
	if len(ids) > 0 {
		r.logger.Debug("panels refreshed", slog.Int("sessions", len(ids)))
		if r.notifier != nil {
			r.notifier.Refreshed(ctx, ids)
		}
	}
	return ids
}
