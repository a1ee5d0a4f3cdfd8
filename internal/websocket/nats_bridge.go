// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package websocket

import (
	"context"
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/nats-io/nats.go"

	"github.com/tomtom215/nexusaudit/internal/logging"
	"github.com/tomtom215/nexusaudit/internal/metrics"
)

// Notifier delivers notifications to connected clients. *Hub implements it.
type Notifier interface {
	NotifyUser(userID string, payload map[string]any) int
	Broadcast(payload map[string]any) int
}

// NotificationEnvelope is the NATS message body accepted by NATSBridge.
// An empty UserID broadcasts to every client.
type NotificationEnvelope struct {
	UserID  string         `json:"userId,omitempty"`
	Payload map[string]any `json:"payload"`
}

// bridgeBuffer bounds messages waiting for the hub.
const bridgeBuffer = 256

// NATSBridge lets other services push notifications by publishing to
// "<prefix>.user" or "<prefix>.broadcast".
type NATSBridge struct {
	conn    *nats.Conn
	subject string
	hub     Notifier
}

// NewNATSBridge subscribes hub to "<subjectPrefix>.>" on conn once served.
func NewNATSBridge(conn *nats.Conn, subjectPrefix string, hub Notifier) *NATSBridge {
	return &NATSBridge{conn: conn, subject: subjectPrefix + ".>", hub: hub}
}

// Serve implements suture.Service.
func (b *NATSBridge) Serve(ctx context.Context) error {
	ch := make(chan *nats.Msg, bridgeBuffer)
	sub, err := b.conn.ChanSubscribe(b.subject, ch)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", b.subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	if err := b.conn.Flush(); err != nil {
		return fmt.Errorf("flush subscription %s: %w", b.subject, err)
	}
	logging.Info().Str("subject", b.subject).Msg("NATS notification bridge started")

	for {
		select {
		case <-ctx.Done():
			logging.Info().Str("subject", b.subject).Msg("NATS notification bridge stopped")
			return ctx.Err()
		case msg := <-ch:
			b.handle(msg.Data)
		}
	}
}

func (b *NATSBridge) handle(data []byte) int {
	var env NotificationEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		metrics.NotificationsDropped.WithLabelValues("malformed").Inc()
		logging.Warn().Err(err).Msg("ignoring malformed NATS notification")
		return 0
	}
	if len(env.Payload) == 0 {
		metrics.NotificationsDropped.WithLabelValues("malformed").Inc()
		logging.Warn().Msg("ignoring NATS notification without payload")
		return 0
	}

	if env.UserID == "" {
		return b.hub.Broadcast(env.Payload)
	}
	return b.hub.NotifyUser(env.UserID, env.Payload)
}

// String implements fmt.Stringer for supervisor logging.
func (b *NATSBridge) String() string {
	return "nats-notification-bridge"
}

// PublishNotification sends env on conn for a NATSBridge listening under
// subjectPrefix.
func PublishNotification(conn *nats.Conn, subjectPrefix string, env NotificationEnvelope) error {
	if conn == nil {
		return errors.New("nil NATS connection")
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	subject := subjectPrefix + ".broadcast"
	if env.UserID != "" {
		subject = subjectPrefix + ".user"
	}
	return conn.Publish(subject, data)
}
