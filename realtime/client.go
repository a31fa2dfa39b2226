// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/danielhkuo/live-poll/apperr"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
	requestTimeout = 5 * time.Second
)

// Client is one WebSocket connection. Only writePump writes to conn;
// everything else queues on send.
type Client struct {
	id   uuid.UUID
	hub  *Hub
	conn *websocket.Conn

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(h *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:   uuid.New(),
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
}

// ID returns the connection handle used in the Registry
func (c *Client) ID() uuid.UUID {
	return c.id
}

// enqueue queues msg without blocking. It reports false when the client is
// closing or its buffer is full.
func (c *Client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- msg:
		return true
	case <-c.done:
		return false
	default:
		return false
	}
}

func (c *Client) reply(v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to encode message", "error", err, "conn_id", c.id)
		return
	}
	if !c.enqueue(msg) {
		slog.Warn("dropping reply for client", "conn_id", c.id)
	}
}

func (c *Client) replyError(message string) {
	c.reply(ErrorMessage{Type: TypeError, Message: message, Timestamp: c.hub.now().UTC()})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("websocket read failed", "error", err, "conn_id", c.id)
			}
			return
		}
		// Any client traffic counts as liveness
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handle(data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.hub.unregister(c)
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Warn("websocket write failed", "error", err, "conn_id", c.id)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

// handle processes one inbound frame. Malformed frames get an error reply
// and the connection stays open.
func (c *Client) handle(data []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.replyError("invalid message format")
		return
	}

	switch msg.Type {
	case TypeSubscribe:
		ctx, cancel := context.WithTimeout(c.hub.ctx, requestTimeout)
		defer cancel()

		err := c.hub.registry.Subscribe(ctx, c.id, msg.PollID)
		if errors.Is(err, ErrNotConnected) {
			return
		}
		if err != nil {
			if apperr.KindOf(err) == apperr.Internal {
				slog.Error("subscribe failed", "error", err, "conn_id", c.id, "poll_id", msg.PollID)
			}
			c.replyError(apperr.Message(err))
			return
		}
		slog.Debug("client subscribed", "conn_id", c.id, "poll_id", msg.PollID)
		c.reply(SubscriptionMessage{
			Type:    TypeSubscribed,
			PollID:  msg.PollID,
			Message: "subscribed to poll updates",
		})

	case TypeUnsubscribe:
		if msg.PollID == "" {
			c.replyError("pollId is required")
			return
		}
		c.hub.registry.Unsubscribe(c.id, msg.PollID)
		c.reply(SubscriptionMessage{
			Type:    TypeUnsubscribed,
			PollID:  msg.PollID,
			Message: "unsubscribed from poll updates",
		})

	case TypePing:
		c.reply(PongMessage{Type: TypePong, Timestamp: c.hub.now().UTC()})

	default:
		c.replyError("unknown message type")
	}
}
