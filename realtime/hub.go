// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/danielhkuo/live-poll/models"
)

// Hub owns the live WebSocket connections and delivers poll updates to
// them. Subscription state is kept in the Registry.
type Hub struct {
	registry *Registry
	upgrader websocket.Upgrader

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.RWMutex
	clients map[uuid.UUID]*Client
	closed  bool

	now func() time.Time
}

func NewHub(registry *Registry) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		registry: registry,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin checks are left to the CORS layer in front of the API
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		ctx:     ctx,
		cancel:  cancel,
		clients: make(map[uuid.UUID]*Client),
		now:     time.Now,
	}
}

// Registry returns the hub's subscription registry
func (h *Hub) Registry() *Registry {
	return h.registry
}

// ServeHTTP upgrades the request and starts the connection's pumps
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error
		slog.Warn("websocket upgrade failed", "error", err, "remote_addr", r.RemoteAddr)
		return
	}

	c := newClient(h, conn)
	if !h.register(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}

	slog.Info("client connected", "conn_id", c.id, "remote_addr", r.RemoteAddr)

	go c.writePump()
	go c.readPump()
}

func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	h.clients[c.id] = c
	h.registry.Connect(c.id)
	return true
}

// unregister drops the client and its subscriptions. Safe to call from
// both pumps; only the first call has any effect.
func (h *Hub) unregister(c *Client) {
	c.closeOnce.Do(func() {
		h.mu.Lock()
		delete(h.clients, c.id)
		h.mu.Unlock()

		h.registry.Disconnect(c.id)
		close(c.done)

		slog.Info("client disconnected", "conn_id", c.id)
	})
}

// Broadcast sends a poll_update with result to every current subscriber of
// pollID and returns how many accepted it. It never blocks on a slow client:
// connections that are closing or whose send buffer is full are skipped.
func (h *Hub) Broadcast(pollID string, result models.PollResult) int {
	ids := h.registry.Subscribers(pollID)
	if len(ids) == 0 {
		return 0
	}

	msg, err := json.Marshal(PollUpdateMessage{
		Type:      TypePollUpdate,
		PollID:    pollID,
		Data:      result,
		Timestamp: h.now().UTC(),
	})
	if err != nil {
		slog.Error("failed to encode poll update", "error", err, "poll_id", pollID)
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for _, id := range ids {
		c, ok := h.clients[id]
		if !ok {
			continue
		}
		if !c.enqueue(msg) {
			slog.Warn("skipping poll update for client", "conn_id", id, "poll_id", pollID)
			continue
		}
		delivered++
	}

	slog.Debug("poll update broadcast", "poll_id", pollID, "subscribers", len(ids), "delivered", delivered)
	return delivered
}

// Stats reports registry counts
func (h *Hub) Stats() models.StatsResponse {
	return h.registry.Stats()
}

// Close disconnects every client and refuses new ones
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	h.cancel()
	for _, c := range clients {
		h.unregister(c)
	}
}
