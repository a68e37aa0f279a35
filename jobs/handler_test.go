package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEnqueuer struct {
	tasks []*asynq.Task
	opts  [][]asynq.Option
	err   error
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.tasks = append(f.tasks, task)
	f.opts = append(f.opts, opts)
	return &asynq.TaskInfo{ID: "task-1", Type: task.Type(), Queue: QueueDefault}, nil
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	return f.info, f.err
}

func newJobsRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	return r
}

func TestJobsHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	newJobsRouter(NewHandler(fakeInspector{info: &asynq.QueueInfo{Queue: "default", Pending: 4, Retry: 1, Processed: 9}}, nil, nil)).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"queue":"default","pending":4,"active":0,"retry":1,"processed_today":9,"failed_today":0}`, rr.Body.String())

	rr = httptest.NewRecorder()
	newJobsRouter(NewHandler(fakeInspector{err: errors.New("no redis")}, nil, nil)).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	rr = httptest.NewRecorder()
	newJobsRouter(NewHandler(nil, nil, nil)).
		ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestJobsEnqueueWarmup(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	router := newJobsRouter(NewHandler(nil, NewClientWith(enqueuer), nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/history/warmup?through=2024-01", nil))
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, enqueuer.tasks, 1)
	assert.Equal(t, TaskMarketHistoryWarmup, enqueuer.tasks[0].Type())

	var payload HistoryWarmupPayload
	require.NoError(t, json.Unmarshal(enqueuer.tasks[0].Payload(), &payload))
	assert.Equal(t, "2024-01", payload.Through)

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/history/warmup?through=jan", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Len(t, enqueuer.tasks, 1)
}

func TestJobsEnqueueBump(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	router := newJobsRouter(NewHandler(nil, NewClientWith(enqueuer), nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/history/bump", nil))
	require.Equal(t, http.StatusAccepted, rr.Code)
	require.Len(t, enqueuer.tasks, 1)
	var payload CacheBumpPayload
	require.NoError(t, json.Unmarshal(enqueuer.tasks[0].Payload(), &payload))
	assert.Equal(t, "manual", payload.Reason)

	enqueuer.err = errors.New("queue full")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/history/bump", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestJobsEnqueueWithoutClient(t *testing.T) {
	rr := httptest.NewRecorder()
	newJobsRouter(NewHandler(nil, nil, nil)).
		ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/jobs/history/warmup", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestWarmupsAreUnique(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	client := NewClientWith(enqueuer)
	_, err := client.EnqueueHistoryWarmup(context.Background(), "")
	require.NoError(t, err)
	_, err = client.EnqueueCacheBump(context.Background(), "catalog edit")
	require.NoError(t, err)

	require.Len(t, enqueuer.opts, 2)
	hasUnique := func(opts []asynq.Option) bool {
		for _, o := range opts {
			if o.Type() == asynq.UniqueOpt {
				return true
			}
		}
		return false
	}
	assert.True(t, hasUnique(enqueuer.opts[0]))
	assert.False(t, hasUnique(enqueuer.opts[1]))
}

func TestNewWorkerRequiresHandlers(t *testing.T) {
	_, err := NewWorker(WorkerConfig{RedisOpts: asynq.RedisClientOpt{Addr: "127.0.0.1:0"}})
	assert.Error(t, err)
}
