package market

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*Service, *miniredis.Miniredis, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	svc, err := NewService(ServiceConfig{
		Catalog:      DefaultCatalog(),
		Creators:     DefaultCreatorConfig(),
		HistoryStart: DefaultHistoryStart,
		HistorySeed:  42,
		SessionSeed:  7,
		Cache:        NewCache(client, time.Minute),
	})
	require.NoError(t, err)
	return svc, mr, func() {
		_ = client.Close()
		mr.Close()
	}
}

func TestServiceHistoryCaches(t *testing.T) {
	svc, mr, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	first, err := svc.History(ctx, testNow)
	require.NoError(t, err)
	require.Len(t, first, 53*6)
	assert.Equal(t, time.Date(2024, time.May, 31, 0, 0, 0, 0, time.UTC), first[len(first)-1].Date)

	key := keyHistory(42, DefaultHistoryStart, lastClosedMonth(testNow)) + ":1"
	require.True(t, mr.Exists(key))

	// A tampered cache entry is served as-is, proving the second call skips synthesis.
	tampered := first[:1]
	tampered[0].Platform = "Cached"
	raw, err := json.Marshal(tampered)
	require.NoError(t, err)
	require.NoError(t, mr.Set(key, string(raw)))

	second, err := svc.History(ctx, testNow)
	require.NoError(t, err)
	require.Len(t, second, 1)
	assert.Equal(t, "Cached", second[0].Platform)
	assert.Equal(t, CacheStats{Hits: 1, Misses: 1}, svc.CacheStats())
}

func TestServiceHistoryStopsAtLastMonthEnd(t *testing.T) {
	svc, err := NewService(ServiceConfig{Creators: DefaultCreatorConfig(), HistorySeed: 42})
	require.NoError(t, err)

	cases := []struct {
		now  time.Time
		last time.Time
	}{
		{time.Date(2026, time.October, 18, 12, 0, 0, 0, time.UTC), time.Date(2026, time.September, 30, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC), time.Date(2026, time.September, 30, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, time.October, 31, 0, 0, 0, 0, time.UTC), time.Date(2026, time.October, 31, 0, 0, 0, 0, time.UTC)},
		{time.Date(2026, time.October, 31, 23, 0, 0, 0, time.UTC), time.Date(2026, time.October, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		points, err := svc.History(context.Background(), tc.now)
		require.NoError(t, err)
		require.NotEmpty(t, points)
		assert.Equal(t, tc.last, points[len(points)-1].Date, tc.now)
		for _, p := range points {
			assert.False(t, p.Date.After(tc.now), "%s after %s", p.Date, tc.now)
		}
	}
}

func TestServiceHistoryFillOutlivesCancelledCaller(t *testing.T) {
	svc, mr, cleanup := newTestService(t)
	defer cleanup()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	_, _ = svc.History(cancelled, testNow)

	key := keyHistory(42, DefaultHistoryStart, lastClosedMonth(testNow)) + ":1"
	require.Eventually(t, func() bool { return mr.Exists(key) }, time.Second, 5*time.Millisecond)

	points, err := svc.History(context.Background(), testNow)
	require.NoError(t, err)
	assert.Len(t, points, 53*6)
	assert.Equal(t, int64(1), svc.CacheStats().Hits)
}

func TestServiceHistoryBumpRegenerates(t *testing.T) {
	svc, _, cleanup := newTestService(t)
	defer cleanup()
	ctx := context.Background()

	first, err := svc.History(ctx, testNow)
	require.NoError(t, err)
	require.NoError(t, svc.cache.Bump(ctx))
	second, err := svc.History(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(2), svc.CacheStats().Misses)
}

func TestServiceHistoryWithoutCache(t *testing.T) {
	svc, err := NewService(ServiceConfig{Creators: DefaultCreatorConfig(), HistorySeed: 3})
	require.NoError(t, err)
	a, err := svc.History(context.Background(), testNow)
	require.NoError(t, err)
	b, err := svc.History(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	a[0].Platform = "mutated"
	c, err := svc.History(context.Background(), testNow)
	require.NoError(t, err)
	assert.Equal(t, "OnlyFans", c[0].Platform)
}

func TestServiceRejectsInvalidConfig(t *testing.T) {
	_, err := NewService(ServiceConfig{Creators: CreatorConfig{}})
	assert.ErrorIs(t, err, ErrInvalidConfiguration)

	svc, err := NewService(ServiceConfig{
		Creators:     DefaultCreatorConfig(),
		HistoryStart: time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	_, err = svc.History(context.Background(), testNow)
	assert.ErrorIs(t, err, ErrInvalidConfiguration)
}

func TestServiceDashboard(t *testing.T) {
	svc, _, cleanup := newTestService(t)
	defer cleanup()

	filters := Filters{Platforms: []string{"Fansly"}, ShowProjections: true}
	dash, err := svc.Dashboard(context.Background(), "session-a", filters, testNow)
	require.NoError(t, err)
	assert.Equal(t, "session-a", dash.SessionID)
	for _, c := range dash.Creators {
		assert.Equal(t, "Fansly", c.Platform)
	}
	for _, p := range dash.History {
		assert.Equal(t, "Fansly", p.Platform)
	}
	assert.Len(t, dash.Projections, DefaultProjectionMonths)
	assert.Len(t, dash.PlatformTable, 6)

	sess, ok := svc.Store().Get("session-a")
	require.True(t, ok)
	assert.Equal(t, filters, sess.Filters())

	again, err := svc.Dashboard(context.Background(), "session-a", filters, testNow)
	require.NoError(t, err)
	assert.Equal(t, dash.Creators, again.Creators)
	assert.Equal(t, dash.Projections, again.Projections)
	assert.Equal(t, dash.Risks, again.Risks)

	svc.Refresh("session-a", testNow.Add(time.Minute))
	ticked, err := svc.Dashboard(context.Background(), "session-a", filters, testNow)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ticked.Ticks)
	assert.Equal(t, len(dash.Creators), len(ticked.Creators))

	viewFilters := Filters{Platforms: []string{"Patreon"}}
	viewed, err := svc.View(context.Background(), "session-a", viewFilters, testNow)
	require.NoError(t, err)
	assert.Equal(t, viewFilters, viewed.Filters)
	assert.Equal(t, filters, sess.Filters())
}

func TestServiceSessionsGeneratedAtRequestTime(t *testing.T) {
	svc, _, cleanup := newTestService(t)
	defer cleanup()
	svc.Store().WithClock(func() time.Time { return time.Date(2031, time.January, 1, 0, 0, 0, 0, time.UTC) })

	at := time.Date(2023, time.March, 31, 0, 0, 0, 0, time.UTC)
	_, err := svc.Dashboard(context.Background(), "snapshot", DefaultFilters(), at)
	require.NoError(t, err)

	sess, ok := svc.Store().Get("snapshot")
	require.True(t, ok)
	for _, c := range sess.Creators() {
		days := at.Sub(c.ActiveSince).Hours() / 24
		assert.GreaterOrEqual(t, days, 30.0, c.Username)
		assert.LessOrEqual(t, days, 1000.0, c.Username)
	}

	refreshed := svc.Refresh("fresh", at)
	for _, c := range refreshed.Creators() {
		assert.True(t, c.ActiveSince.Before(at), c.Username)
	}
}
