package live

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fanmetrics/fanmetrics/internal/market"
)

type storeSource struct {
	store *market.SessionStore
}

func (s storeSource) Session(id string) *market.Session { return s.store.GetOrCreate(id) }

func newTestHub(t *testing.T) (*Hub, *market.SessionStore, *httptest.Server) {
	t.Helper()
	gen, err := market.NewCreatorGenerator(market.DefaultCatalog(), market.DefaultCreatorConfig())
	require.NoError(t, err)
	store, err := market.NewSessionStore(gen, 8, 1)
	require.NoError(t, err)
	hub := NewHub(nil, storeSource{store: store}, func(r *http.Request) string { return r.URL.Query().Get("sid") })
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
	})
	return hub, store, srv
}

func dial(t *testing.T, srv *httptest.Server, sid string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?sid=" + sid
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) Snapshot {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(payload, &snap))
	return snap
}

func TestHubSendsSnapshotAfterTick(t *testing.T) {
	hub, store, srv := newTestHub(t)
	conn := dial(t, srv, "abc")

	first := readSnapshot(t, conn)
	assert.Equal(t, "abc", first.SessionID)
	assert.Equal(t, uint64(0), first.Ticks)
	assert.Equal(t, market.DefaultPanelSize, first.Creators)
	assert.Len(t, first.TopEarners, snapshotTopEarners)
	assert.Equal(t, 1, hub.Clients())

	sess, ok := store.Get("abc")
	require.True(t, ok)
	sess.Tick(time.Now())
	hub.Refreshed(context.Background(), []string{"abc", "nobody"})

	second := readSnapshot(t, conn)
	assert.Equal(t, uint64(1), second.Ticks)
}

func TestHubRejectsMissingSession(t *testing.T) {
	_, _, srv := newTestHub(t)
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHubUnregistersClosedSockets(t *testing.T) {
	hub, _, srv := newTestHub(t)
	conn := dial(t, srv, "gone")
	readSnapshot(t, conn)
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestBuildSnapshotRespectsFilters(t *testing.T) {
	gen, err := market.NewCreatorGenerator(market.DefaultCatalog(), market.DefaultCreatorConfig())
	require.NoError(t, err)
	sess := market.NewSession("x", gen, 4, time.Now())
	sess.SetFilters(market.Filters{MinEarnings: 1e12})
	snap := BuildSnapshot(sess)
	assert.Zero(t, snap.Creators)
	assert.Zero(t, snap.AvgEarnings)
	assert.Empty(t, snap.TopEarners)
}

type countingObserver struct {
	mu      sync.Mutex
	open    int
	closed  int
	dropped int
}

func (o *countingObserver) SocketOpened() { o.mu.Lock(); o.open++; o.mu.Unlock() }
func (o *countingObserver) SocketClosed() { o.mu.Lock(); o.closed++; o.mu.Unlock() }
func (o *countingObserver) FrameDropped() { o.mu.Lock(); o.dropped++; o.mu.Unlock() }

func (o *countingObserver) counts() (int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.open, o.closed
}

func TestHubReportsSocketLifecycle(t *testing.T) {
	hub, _, srv := newTestHub(t)
	observer := &countingObserver{}
	hub.WithObserver(observer)

	conn := dial(t, srv, "obs")
	readSnapshot(t, conn)
	open, closed := observer.counts()
	assert.Equal(t, 1, open)
	assert.Equal(t, 0, closed)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool {
		_, closed := observer.counts()
		return closed == 1 && hub.Clients() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
