package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskMarketHistoryWarmup synthesises market history into the cache.
	TaskMarketHistoryWarmup = "market:history_warmup"
	// TaskMarketCacheBump invalidates cached history and warms it again.
	TaskMarketCacheBump = "market:cache_bump"
)

// HistoryWarmupPayload names the month history should be warmed through.
// An empty Through means every month closed by the time the job runs.
type HistoryWarmupPayload struct {
	Through string `json:"through,omitempty"`
}

// Month resolves Through against now. An explicit month resolves to its
// last day so that month's point is included.
func (p HistoryWarmupPayload) Month(now time.Time) (time.Time, error) {
	if p.Through == "" {
		return now.UTC(), nil
	}
	month, err := time.Parse("2006-01", p.Through)
	if err != nil {
		return time.Time{}, err
	}
	return month.AddDate(0, 1, -1), nil
}

// CacheBumpPayload carries the reason recorded in logs.
type CacheBumpPayload struct {
	Reason string `json:"reason,omitempty"`
}

// NewHistoryWarmupTask constructs a warmup task.
func NewHistoryWarmupTask(through string) (*asynq.Task, error) {
	data, err := json.Marshal(HistoryWarmupPayload{Through: through})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMarketHistoryWarmup, data), nil
}

// NewCacheBumpTask constructs a cache bump task.
func NewCacheBumpTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(CacheBumpPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskMarketCacheBump, data), nil
}
