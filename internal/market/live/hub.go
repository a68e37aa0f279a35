package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fanmetrics/fanmetrics/internal/market"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 8
)

// SessionSource resolves the session a socket belongs to.
type SessionSource interface {
	Session(id string) *market.Session
}

// Observer is told about socket lifecycle and dropped frames.
type Observer interface {
	SocketOpened()
	SocketClosed()
	FrameDropped()
}

type nopObserver struct{}

func (nopObserver) SocketOpened() {}
func (nopObserver) SocketClosed() {}
func (nopObserver) FrameDropped() {}

// Hub fans refresh snapshots out to websocket clients. It implements
// market.Notifier.
type Hub struct {
	logger    *slog.Logger
	source    SessionSource
	sessionID func(*http.Request) string
	upgrader  websocket.Upgrader
	observer  Observer

	mu      sync.Mutex
	clients map[string]map[*client]struct{}
	closed  bool
}

type client struct {
	conn   *websocket.Conn
	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// enqueue queues payload without blocking; it reports false when the
// buffer is full or the client is gone.
func (c *client) enqueue(payload []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// NewHub builds a hub. sessionID extracts the session id of a request.
func NewHub(logger *slog.Logger, source SessionSource, sessionID func(*http.Request) string) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:    logger,
		source:    source,
		sessionID: sessionID,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
		clients:  make(map[string]map[*client]struct{}),
		observer: nopObserver{},
	}
}

// WithObserver reports socket counts to o.
func (h *Hub) WithObserver(o Observer) {
	if o != nil {
		h.observer = o
	}
}

// ServeHTTP upgrades the request and streams snapshots of the caller's
// session until the socket closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := ""
	if h.sessionID != nil {
		id = h.sessionID(r)
	}
	if id == "" {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", slog.Any("error", err))
		return
	}
	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	if !h.register(id, c) {
		_ = conn.Close()
		return
	}
	if payload, err := json.Marshal(BuildSnapshot(h.source.Session(id))); err == nil {
		c.enqueue(payload)
	}
	go h.writePump(c)
	h.readPump(id, c)
}

// Refreshed pushes a fresh snapshot to every socket of the given sessions.
// Slow clients drop frames instead of blocking the refresher.
func (h *Hub) Refreshed(_ context.Context, sessionIDs []string) {
	for _, id := range sessionIDs {
		targets := h.targets(id)
		if len(targets) == 0 {
			continue
		}
		payload, err := json.Marshal(BuildSnapshot(h.source.Session(id)))
		if err != nil {
			h.logger.Error("encode snapshot", slog.Any("error", err))
			continue
		}
		for _, c := range targets {
			if !c.enqueue(payload) {
				h.observer.FrameDropped()
				h.logger.Debug("dropping live frame", slog.String("session", id))
			}
		}
	}
}

// Clients returns the number of connected sockets.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := 0
	for _, set := range h.clients {
		n += len(set)
	}
	return n
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for id, set := range h.clients {
		for c := range set {
			c.close()
			h.observer.SocketClosed()
		}
		delete(h.clients, id)
	}
}

func (h *Hub) register(id string, c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	set, ok := h.clients[id]
	if !ok {
		set = make(map[*client]struct{})
		h.clients[id] = set
	}
	set[c] = struct{}{}
	h.observer.SocketOpened()
	return true
}

func (h *Hub) unregister(id string, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.clients[id]; ok {
		if _, member := set[c]; member {
			delete(set, c)
			h.observer.SocketClosed()
		}
		if len(set) == 0 {
			delete(h.clients, id)
		}
	}
	c.close()
}

func (h *Hub) targets(id string) []*client {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.clients[id]
	out := make([]*client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// readPump discards inbound frames and unregisters the client when the
// socket fails.
func (h *Hub) readPump(id string, c *client) {
	defer func() {
		h.unregister(id, c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
