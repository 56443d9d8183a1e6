package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/obsidianstack/wgmonitor/monitor/internal/api"
	"github.com/obsidianstack/wgmonitor/monitor/internal/status"
	"github.com/obsidianstack/wgmonitor/pkg/types"
)

const (
	// DefaultInterval is the periodic broadcast interval.
	DefaultInterval = 5 * time.Second

	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong before treating the connection
	// as dead.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	sendBufSize = 16
)

// Message kinds.
const (
	EventStatus     = "status"
	EventTransition = "transition"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Allow all origins; apply CORS at the reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is the JSON envelope sent to clients.
type Message struct {
	Event  string             `json:"event"`
	Events []types.Event      `json:"events,omitempty"`
	Data   api.StatusResponse `json:"data"`
}

// Hub manages WebSocket clients and broadcasts the monitor status.
// It implements scheduler.Observer.
type Hub struct {
	store    *status.Store
	gatherer prometheus.Gatherer
	interval time.Duration

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// New creates a Hub reading from st. g may be nil.
func New(st *status.Store, g prometheus.Gatherer, interval time.Duration) *Hub {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Hub{
		store:    st,
		gatherer: g,
		interval: interval,
		clients:  make(map[*client]struct{}),
	}
}

// Run broadcasts the status every interval until ctx is cancelled, then
// closes all connections and rejects new ones.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return
		case <-t.C:
			h.broadcast(EventStatus, nil)
		}
	}
}

// Observe pushes a transition message when r carries events. It never
// blocks the caller.
func (h *Hub) Observe(r types.TickReport) {
	if len(r.Events) == 0 {
		return
	}
	h.broadcast(EventTransition, r.Events)
}

// ServeHTTP upgrades the connection and serves the client until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufSize),
	}
	// Queue the initial status before the client is visible to broadcast and
	// closeAll, which may close c.send at any time afterwards.
	if data, err := h.buildMessage(EventStatus, nil); err == nil {
		c.send <- data
	}
	if !h.register(c) {
		conn.WriteMessage(websocket.CloseMessage, //nolint:errcheck
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		conn.Close()
		return
	}
	defer h.unregister(c)

	go c.writePump()
	c.readPump()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// --- internal ---------------------------------------------------------------

// register adds c unless the hub has shut down.
func (h *Hub) register(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

func (h *Hub) dropLocked(c *client) {
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcast(event string, events []types.Event) {
	data, err := h.buildMessage(event, events)
	if err != nil {
		slog.Warn("ws: encode message failed", "err", err)
		return
	}

	// Sends are non-blocking, so holding the lock keeps a concurrent
	// unregister from closing a channel mid-send.
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			slog.Debug("ws: dropping slow client")
			h.dropLocked(c)
		}
	}
}

func (h *Hub) buildMessage(event string, events []types.Event) ([]byte, error) {
	return json.Marshal(Message{
		Event:  event,
		Events: events,
		Data:   api.BuildStatus(h.store, h.gatherer),
	})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.dropLocked(c)
	}
}

// writePump forwards queued messages to the connection and sends pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)) //nolint:errcheck
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump handles control frames and detects disconnects. Blocks until the
// connection closes.
func (c *client) readPump() {
	defer c.conn.Close()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}
