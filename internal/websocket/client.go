// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package websocket

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/nexusaudit/internal/logging"
	"github.com/tomtom215/nexusaudit/internal/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
)

// clientIDCounter gives every client a unique, increasing id so fan-out
// visits clients in a stable order.
var clientIDCounter atomic.Uint64

// Client is one browser connection. It moves Connected → Subscribed →
// Closed; userID is empty until the client subscribes.
type Client struct {
	id      uint64
	hub     *Hub
	conn    *websocket.Conn
	limiter *rate.Limiter

	// userID is guarded by hub.mu.
	userID string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

// NewClient creates a client for conn. It is not registered until
// Hub.Register is called.
func NewClient(hub *Hub, conn *websocket.Conn) *Client {
	return &Client{
		id:      clientIDCounter.Add(1),
		hub:     hub,
		conn:    conn,
		limiter: rate.NewLimiter(rate.Limit(hub.config.RateLimit), hub.config.RateBurst),
		send:    make(chan []byte, hub.config.SendBuffer),
	}
}

// ID returns the client's unique identifier.
func (c *Client) ID() uint64 {
	return c.id
}

// enqueue queues frame for writing. When the queue is full the oldest
// queued frame is discarded. It returns false once the client is closed.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
	}

	select {
	case <-c.send:
		metrics.NotificationsDropped.WithLabelValues("queue_overflow").Inc()
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// close stops further sends and lets writePump flush a close frame.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// readPump handles inbound frames until the connection fails.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Uint64("client_id", c.id).Msg("unexpected websocket close error")
			}
			return
		}

		if !c.limiter.Allow() {
			metrics.WebSocketInboundLimited.Inc()
			continue
		}
		c.handleInbound(data)
	}
}

func (c *Client) handleInbound(data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		logging.Debug().Err(err).Uint64("client_id", c.id).Msg("ignoring malformed websocket message")
		return
	}

	switch msg.Type {
	case MessageTypeSubscribe:
		if msg.UserID == "" {
			logging.Debug().Uint64("client_id", c.id).Msg("ignoring subscribe without userId")
			return
		}
		c.hub.Subscribe(c, msg.UserID)
	case MessageTypePing:
		frame, err := marshalPong(time.Now())
		if err == nil {
			c.enqueue(frame)
		}
	default:
		logging.Debug().Str("type", msg.Type).Uint64("client_id", c.id).Msg("ignoring unknown websocket message")
	}
}

// writePump writes queued frames and keepalive pings. A failed write
// closes the connection, which ends readPump and unregisters the client.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if !ok {
				// The hub closed the queue.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logging.Debug().Err(err).Uint64("client_id", c.id).Msg("websocket write failed")
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Start begins reading and writing for the client.
func (c *Client) Start() {
	go c.writePump()
	go c.readPump()
}
