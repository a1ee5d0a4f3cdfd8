// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/goccy/go-json"

	"github.com/tomtom215/nexusaudit/internal/audit"
	"github.com/tomtom215/nexusaudit/internal/logging"
	"github.com/tomtom215/nexusaudit/internal/metrics"
	"github.com/tomtom215/nexusaudit/internal/websocket"
)

// SecurityAlertCategory marks the broadcast sent for critical records.
const SecurityAlertCategory = "security_alert"

// ForwarderConfig tunes the consumer router. Delivery is at most once:
// Handle acknowledges every message, so there is no retry policy.
type ForwarderConfig struct {
	CloseTimeout time.Duration
}

// DefaultForwarderConfig returns production defaults.
func DefaultForwarderConfig() ForwarderConfig {
	return ForwarderConfig{
		CloseTimeout: 30 * time.Second,
	}
}

// Forwarder consumes audit records from the bus and turns them into
// WebSocket notifications. It runs as a suture service; each Serve call
// builds a fresh Watermill router since routers cannot be restarted.
type Forwarder struct {
	subscriber message.Subscriber
	notifier   websocket.Notifier
	config     ForwarderConfig
	logger     watermill.LoggerAdapter

	mu      sync.Mutex
	running chan struct{}
}

// NewForwarder creates a forwarder reading from sub.
func NewForwarder(sub message.Subscriber, notifier websocket.Notifier, config ForwarderConfig, logger watermill.LoggerAdapter) *Forwarder {
	if config.CloseTimeout <= 0 {
		config.CloseTimeout = DefaultForwarderConfig().CloseTimeout
	}
	if logger == nil {
		logger = NewLogger()
	}
	return &Forwarder{
		subscriber: sub,
		notifier:   notifier,
		config:     config,
		logger:     logger,
		running:    make(chan struct{}),
	}
}

// Serve runs the router until ctx is cancelled.
func (f *Forwarder) Serve(ctx context.Context) error {
	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: f.config.CloseTimeout,
	}, f.logger)
	if err != nil {
		return fmt.Errorf("create router: %w", err)
	}

	router.AddMiddleware(middleware.Recoverer)

	router.AddConsumerHandler("notification-forwarder", TopicAuditRecords, f.subscriber, f.Handle)

	go func() {
		select {
		case <-router.Running():
			f.markRunning()
		case <-ctx.Done():
		}
	}()

	logging.Info().Str("topic", TopicAuditRecords).Msg("Notification forwarder starting")
	err = router.Run(ctx)
	if closeErr := router.Close(); closeErr != nil {
		logging.Warn().Err(closeErr).Msg("Error closing forwarder router")
	}
	if err != nil {
		return fmt.Errorf("run router: %w", err)
	}
	return ctx.Err()
}

// Running is closed once the first router is consuming.
func (f *Forwarder) Running() <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.running
}

func (f *Forwarder) markRunning() {
	f.mu.Lock()
	defer f.mu.Unlock()
	select {
	case <-f.running:
	default:
		close(f.running)
	}
}

// String implements fmt.Stringer for suture logging.
func (f *Forwarder) String() string {
	return "notification-forwarder"
}

// Handle processes one message. It never returns an error: malformed
// payloads are acknowledged and dropped so they are not redelivered, and
// hub delivery has no failure a redelivery could fix.
func (f *Forwarder) Handle(msg *message.Message) error {
	var rec audit.Record
	if err := json.Unmarshal(msg.Payload, &rec); err != nil {
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping malformed audit record message")
		metrics.NotificationsDropped.WithLabelValues("malformed").Inc()
		return nil
	}
	if rec.ID == "" || rec.Action == "" {
		logging.Warn().Str("message_uuid", msg.UUID).Msg("Dropping incomplete audit record message")
		metrics.NotificationsDropped.WithLabelValues("malformed").Inc()
		return nil
	}

	if rec.TargetID != "" {
		n := f.notifier.NotifyUser(rec.TargetID, recordPayload(&rec))
		logging.Debug().
			Str("record_id", rec.ID).
			Str("target_id", rec.TargetID).
			Int("delivered", n).
			Msg("Forwarded audit record to target user")
	}

	if rec.Severity == audit.SeverityCritical {
		payload := recordPayload(&rec)
		payload["category"] = SecurityAlertCategory
		payload["title"] = "Security Alert"
		f.notifier.Broadcast(payload)
	}
	return nil
}

func recordPayload(r *audit.Record) map[string]any {
	return map[string]any{
		"recordId":    r.ID,
		"action":      string(r.Action),
		"description": r.Description,
		"severity":    string(r.Severity),
		"createdAt":   r.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// ErrNoSubscriber is returned when wiring a forwarder without a bus.
var ErrNoSubscriber = errors.New("event bus has no subscriber")

// NewBusForwarder wires a forwarder to b.
func NewBusForwarder(b *Bus, notifier websocket.Notifier, config ForwarderConfig) (*Forwarder, error) {
	if b == nil || b.Subscriber() == nil {
		return nil, ErrNoSubscriber
	}
	return NewForwarder(b.Subscriber(), notifier, config, b.logger), nil
}
