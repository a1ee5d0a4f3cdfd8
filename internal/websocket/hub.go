// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package websocket

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/nexusaudit/internal/logging"
	"github.com/tomtom215/nexusaudit/internal/metrics"
)

// ShutdownReason identifies why the hub is shutting down.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful path (SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline may indicate a hung shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Config controls per-client limits.
type Config struct {
	// SendBuffer is the per-client queue length. Overflow drops the
	// oldest queued frame.
	SendBuffer int
	// RateLimit and RateBurst bound inbound messages per client.
	RateLimit float64
	RateBurst int
	// AllowedOrigins lists accepted Origin headers; "*" accepts any.
	AllowedOrigins []string
}

// DefaultConfig returns the hub defaults.
func DefaultConfig() Config {
	return Config{
		SendBuffer:     256,
		RateLimit:      20,
		RateBurst:      40,
		AllowedOrigins: []string{"*"},
	}
}

// Hub is the registry of connected clients and the fan-out point for
// notifications. The registry is only reachable through Hub methods.
type Hub struct {
	config  Config
	mu      sync.RWMutex
	clients map[*Client]struct{}
	now     func() time.Time
}

// NewHub creates a hub. Zero config values take the defaults.
func NewHub(config Config) *Hub {
	def := DefaultConfig()
	if config.SendBuffer <= 0 {
		config.SendBuffer = def.SendBuffer
	}
	if config.RateLimit <= 0 {
		config.RateLimit = def.RateLimit
	}
	if config.RateBurst <= 0 {
		config.RateBurst = def.RateBurst
	}
	if len(config.AllowedOrigins) == 0 {
		config.AllowedOrigins = def.AllowedOrigins
	}
	return &Hub{
		config:  config,
		clients: make(map[*Client]struct{}),
		now:     time.Now,
	}
}

// Register adds c to the registry and queues the connected frame.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.mu.Unlock()

	metrics.WebSocketConnections.Set(float64(total))
	if frame, err := marshalConnected(h.now()); err == nil {
		c.enqueue(frame)
	}
	logging.Debug().Uint64("client_id", c.id).Int("total_clients", total).Msg("websocket client connected")
}

// Unregister removes c and closes its queue. It is safe to call more
// than once.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	total := len(h.clients)
	h.mu.Unlock()

	c.close()
	if ok {
		metrics.WebSocketConnections.Set(float64(total))
		logging.Debug().Uint64("client_id", c.id).Int("total_clients", total).Msg("websocket client disconnected")
	}
}

// Subscribe attaches userID to c, replacing any earlier subscription.
func (h *Hub) Subscribe(c *Client, userID string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		c.userID = userID
	}
	h.mu.Unlock()

	if ok {
		logging.Debug().Uint64("client_id", c.id).Str("user_id", userID).Msg("websocket client subscribed")
	}
}

// NotifyUser queues payload for every client subscribed as userID and
// returns how many were reached. With no subscriber the notification is
// dropped; nothing is kept for later.
func (h *Hub) NotifyUser(userID string, payload map[string]any) int {
	if userID == "" {
		return 0
	}
	return h.fanOut("user", payload, func(c *Client) bool { return c.userID == userID })
}

// Broadcast queues payload for every registered client, subscribed or not.
func (h *Hub) Broadcast(payload map[string]any) int {
	return h.fanOut("broadcast", payload, func(*Client) bool { return true })
}

// fanOut delivers to each matching client independently. A closed client
// is skipped without affecting the others.
func (h *Hub) fanOut(mode string, payload map[string]any, match func(*Client) bool) int {
	frame, err := MarshalNotification(payload)
	if err != nil {
		metrics.NotificationsDropped.WithLabelValues("encode_error").Inc()
		logging.Warn().Err(err).Str("mode", mode).Msg("failed to encode notification")
		return 0
	}

	targets := h.snapshot(match)
	delivered := 0
	for _, c := range targets {
		if c.enqueue(frame) {
			delivered++
			continue
		}
		metrics.NotificationsDropped.WithLabelValues("client_closed").Inc()
	}

	if delivered == 0 {
		metrics.NotificationsDropped.WithLabelValues("no_subscriber").Inc()
	} else {
		metrics.NotificationsDelivered.WithLabelValues(mode).Add(float64(delivered))
	}
	return delivered
}

// snapshot returns matching clients in id order.
func (h *Hub) snapshot(match func(*Client) bool) []*Client {
	h.mu.RLock()
	out := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if match(c) {
			out = append(out, c)
		}
	}
	h.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Client) int {
		switch {
		case a.id < b.id:
			return -1
		case a.id > b.id:
			return 1
		}
		return 0
	})
	return out
}

// ClientCount returns the number of registered clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// SubscribedCount returns the number of clients with a user id attached.
func (h *Hub) SubscribedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for c := range h.clients {
		if c.userID != "" {
			n++
		}
	}
	return n
}

// Run implements suture.Service. It blocks until ctx is cancelled and then
// closes every client so a restarted hub starts empty.
func (h *Hub) Run(ctx context.Context) error {
	logging.Info().Str("component", "websocket-hub").Msg("websocket hub started")
	<-ctx.Done()

	closed := h.closeAllClients()
	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", closed).
		Msg("websocket hub stopped")
	return ctx.Err()
}

// Serve adapts Run to suture.Service.
func (h *Hub) Serve(ctx context.Context) error {
	return h.Run(ctx)
}

// String implements fmt.Stringer for supervisor logging.
func (h *Hub) String() string {
	return "websocket-hub"
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if ctx.Err() == context.DeadlineExceeded {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

func (h *Hub) closeAllClients() int {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	clear(h.clients)
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	metrics.WebSocketConnections.Set(0)
	return len(clients)
}

// Upgrader returns a gorilla upgrader that enforces AllowedOrigins.
func (h *Hub) Upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		HandshakeTimeout: 10 * time.Second,
		CheckOrigin:      h.checkOrigin,
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	for _, allowed := range h.config.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	logging.Warn().Str("origin", origin).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// ServeWS upgrades r and attaches the connection to the hub.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	upgrader := h.Upgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := NewClient(h, conn)
	h.Register(c)
	c.Start()
}
