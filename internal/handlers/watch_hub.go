package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"skycast/internal/models"
	"skycast/pkg/logging"
	"skycast/pkg/metrics"
)

// WatchHub fans session state snapshots out to connected WebSocket
// clients. Every applied session event produces one snapshot message;
// clients that cannot keep up are dropped.
type WatchHub struct {
	upgrader websocket.Upgrader
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector

	mu      sync.Mutex
	clients map[*watchClient]struct{}
}

type watchClient struct {
	conn *websocket.Conn
	send chan []byte
}

// NewWatchHub creates an empty hub
func NewWatchHub(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *WatchHub {
	return &WatchHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				// The rendering layer is served from arbitrary origins.
				return true
			},
		},
		logger:  logger,
		metrics: metricsCollector,
		clients: map[*watchClient]struct{}{},
	}
}

// Serve upgrades the request and streams snapshots until the client
// disconnects. The current snapshot is sent immediately so a new client
// never waits for the next event to learn the state.
func (h *WatchHub) Serve(w http.ResponseWriter, r *http.Request, current models.SessionState) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "[WATCH_UPGRADE_FAILED] WebSocket upgrade failed", logging.Fields{
			"remote": r.RemoteAddr,
			"error":  err.Error(),
		})
		return
	}

	c := &watchClient{conn: conn, send: make(chan []byte, 16)}
	if msg, err := json.Marshal(current); err == nil {
		c.send <- msg
	}
	h.addClient(c)

	h.logger.Debug(r.Context(), "[WATCH_CONNECTED] Watch client connected", logging.Fields{
		"remote": r.RemoteAddr,
	})

	go h.writePump(c)
	h.readPump(c)
}

// Broadcast sends one state snapshot to every connected client. It
// matches the session observer signature and is registered as one.
func (h *WatchHub) Broadcast(state models.SessionState) {
	msg, err := json.Marshal(state)
	if err != nil {
		h.logger.Error(context.Background(), "[WATCH_MARSHAL_FAILED] Failed to marshal state snapshot", logging.Fields{}, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			// Slow client; drop it.
			delete(h.clients, c)
			close(c.send)
			_ = c.conn.Close()
		}
	}
	h.metrics.SetWatchClients(len(h.clients))
}

func (h *WatchHub) addClient(c *watchClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	h.metrics.SetWatchClients(len(h.clients))
}

func (h *WatchHub) removeClient(c *watchClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
		_ = c.conn.Close()
	}
	h.metrics.SetWatchClients(len(h.clients))
}

func (h *WatchHub) readPump(c *watchClient) {
	defer h.removeClient(c)
	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *WatchHub) writePump(c *watchClient) {
	ticker := time.NewTicker(25 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
