// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package websocket

import (
	"time"

	"github.com/goccy/go-json"
)

// Frame types exchanged with browser clients.
const (
	MessageTypeConnected    = "connected"
	MessageTypeSubscribe    = "subscribe"
	MessageTypePing         = "ping"
	MessageTypePong         = "pong"
	MessageTypeNotification = "notification"
)

// connectedMessage is sent once when a connection is accepted.
const connectedMessage = "WebSocket connection established"

// inboundMessage is the union of frames a client may send.
type inboundMessage struct {
	Type   string `json:"type"`
	UserID string `json:"userId,omitempty"`
}

type connectedFrame struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type pongFrame struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`
}

func marshalConnected(now time.Time) ([]byte, error) {
	return json.Marshal(connectedFrame{
		Type:      MessageTypeConnected,
		Message:   connectedMessage,
		Timestamp: now.UnixMilli(),
	})
}

func marshalPong(now time.Time) ([]byte, error) {
	return json.Marshal(pongFrame{Type: MessageTypePong, Timestamp: now.UnixMilli()})
}

// MarshalNotification flattens payload into a notification frame. The
// frame type always wins over a "type" key in payload.
func MarshalNotification(payload map[string]any) ([]byte, error) {
	frame := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		frame[k] = v
	}
	frame["type"] = MessageTypeNotification
	return json.Marshal(frame)
}
