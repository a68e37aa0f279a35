package jobs

import (
	"context"
	"time"

	"github.com/hibiken/asynq"
)

// Enqueuer submits tasks; *asynq.Client satisfies it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Client submits market jobs to the queue.
type Client struct {
	client Enqueuer
	closer func() error
}

func NewClient(redisOpts asynq.RedisClientOpt) *Client {
	client := asynq.NewClient(redisOpts)
	return &Client{client: client, closer: client.Close}
}

// NewClientWith wraps an existing enqueuer.
func NewClientWith(enqueuer Enqueuer) *Client {
	return &Client{client: enqueuer}
}

// taskOptions returns the enqueue options for a task type. Warmups are
// unique for a few minutes so repeated triggers collapse into one run.
func taskOptions(taskType string) []asynq.Option {
	opts := []asynq.Option{asynq.Queue(QueueDefault), asynq.MaxRetry(3), asynq.Timeout(2 * time.Minute)}
	if taskType == TaskMarketHistoryWarmup {
		opts = append(opts, asynq.Unique(5*time.Minute))
	}
	return opts
}

// EnqueueHistoryWarmup enqueues a warmup through the given month, or the
// current month when through is empty.
func (c *Client) EnqueueHistoryWarmup(ctx context.Context, through string) (*asynq.TaskInfo, error) {
	task, err := NewHistoryWarmupTask(through)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, taskOptions(task.Type())...)
}

// EnqueueCacheBump enqueues a cache invalidation followed by a warmup.
func (c *Client) EnqueueCacheBump(ctx context.Context, reason string) (*asynq.TaskInfo, error) {
	task, err := NewCacheBumpTask(reason)
	if err != nil {
		return nil, err
	}
	return c.client.EnqueueContext(ctx, task, taskOptions(task.Type())...)
}

func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}
	return c.closer()
}
