package perf

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	jobmetrics "github.com/fanmetrics/fanmetrics/internal/jobs"
	"github.com/fanmetrics/fanmetrics/internal/market"
	"github.com/fanmetrics/fanmetrics/jobs"
)

func TestLiveRefreshThroughputAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	svc := newPerfService(t, nil)

	const sessions = 200
	for i := 0; i < sessions; i++ {
		svc.Session(fmt.Sprintf("session-%03d", i))
	}
	// Manual-only sessions must not be ticked.
	for i := 0; i < 10; i++ {
		svc.Session(fmt.Sprintf("session-%03d", i)).SetFilters(market.Filters{})
	}

	refresher := market.NewRefresher(market.RefresherConfig{Store: svc.Store(), Metrics: metrics})
	const ticks = 20
	start := time.Now()
	for i := 0; i < ticks; i++ {
		if got := len(refresher.RefreshOnce(context.Background())); got != sessions-10 {
			t.Fatalf("tick %d refreshed %d sessions, want %d", i, got, sessions-10)
		}
	}
	if perTick := time.Since(start) / ticks; perTick > 250*time.Millisecond {
		t.Fatalf("refresh tick too slow: %s", perTick)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	runs := metricValue(t, families, "fanmetrics_jobs_total", map[string]string{"job": market.JobLiveRefresh, "status": "success"})
	if runs != ticks {
		t.Fatalf("refresh runs = %v, want %d", runs, ticks)
	}
	refreshed := metricValue(t, families, "fanmetrics_panels_refreshed_total", nil)
	if refreshed != float64(ticks*(sessions-10)) {
		t.Fatalf("panels refreshed = %v, want %d", refreshed, ticks*(sessions-10))
	}
	live := metricValue(t, families, "fanmetrics_live_sessions", nil)
	if live != sessions {
		t.Fatalf("live sessions = %v, want %d", live, sessions)
	}
	if mean := histogramMean(t, families, "fanmetrics_job_duration_seconds", map[string]string{"job": market.JobLiveRefresh}); mean > 0.25 {
		t.Fatalf("refresh duration above budget: %f", mean)
	}
}

func TestHistoryWarmupJobReliability(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	svc := newPerfService(t, nil)
	job := jobs.NewHistoryWarmupJob(svc, nil, nil, metrics)

	months := []string{"2023-01", "2023-06", "2024-01", "2024-06", "2025-01"}
	for _, month := range months {
		task, err := jobs.NewHistoryWarmupTask(month)
		if err != nil {
			t.Fatalf("build task: %v", err)
		}
		if err := job.Handle(context.Background(), task); err != nil {
			t.Fatalf("warmup %s: %v", month, err)
		}
	}
	bad := asynq.NewTask(jobs.TaskMarketHistoryWarmup, []byte(`{"through":"1999-01"}`))
	if err := job.Handle(context.Background(), bad); err == nil {
		t.Fatal("expected warmup before the history start to fail")
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	success := metricValue(t, families, "fanmetrics_jobs_total", map[string]string{"job": jobs.TaskMarketHistoryWarmup, "status": "success"})
	failure := metricValue(t, families, "fanmetrics_jobs_total", map[string]string{"job": jobs.TaskMarketHistoryWarmup, "status": "failure"})
	if ratio := success / (success + failure); ratio < 0.8 {
		t.Fatalf("warmup success ratio too low: %f", ratio)
	}
	if mean := histogramMean(t, families, "fanmetrics_job_duration_seconds", map[string]string{"job": jobs.TaskMarketHistoryWarmup}); mean > 2.0 {
		t.Fatalf("warmup duration above budget: %f", mean)
	}
}

func metricValue(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				if fam.GetType() == dto.MetricType_COUNTER {
					return metric.GetCounter().GetValue()
				}
				if fam.GetType() == dto.MetricType_GAUGE {
					return metric.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func histogramMean(t *testing.T, families []*dto.MetricFamily, name string, labels map[string]string) float64 {
	t.Helper()
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if hasLabels(metric, labels) {
				hist := metric.GetHistogram()
				if hist == nil || hist.GetSampleCount() == 0 {
					t.Fatalf("histogram %s missing samples", name)
				}
				return hist.GetSampleSum() / float64(hist.GetSampleCount())
			}
		}
	}
	t.Fatalf("histogram %s with labels %v not found", name, labels)
	return 0
}

func hasLabels(metric *dto.Metric, labels map[string]string) bool {
	for key, want := range labels {
		found := false
		for _, lp := range metric.GetLabel() {
			if lp.GetName() == key {
				found = lp.GetValue() == want
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
