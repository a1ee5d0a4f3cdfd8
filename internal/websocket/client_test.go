// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/nexusaudit/internal/metrics"
)

// setupWebSocketServer serves hub.ServeWS on a test server.
func setupWebSocketServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(server.Close)
	return server
}

// dialWebSocket connects to server and consumes the connected frame.
func dialWebSocket(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	frame := readFrame(t, conn)
	if frame["type"] != MessageTypeConnected {
		t.Fatalf("first frame = %v, want connected", frame)
	}
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return m
}

func writeJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("WriteMessage: %v", err)
	}
}

// waitFor polls cond until it holds or the timeout passes.
func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", msg)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestClient_SubscribeAndReceive(t *testing.T) {
	hub := NewHub(DefaultConfig())
	server := setupWebSocketServer(t, hub)
	conn := dialWebSocket(t, server)

	writeJSON(t, conn, map[string]string{"type": "subscribe", "userId": "emp-7"})
	waitFor(t, func() bool { return hub.SubscribedCount() == 1 }, "subscription")

	if n := hub.NotifyUser("emp-7", map[string]any{"action": "request_approved", "severity": "medium"}); n != 1 {
		t.Fatalf("delivered = %d, want 1", n)
	}
	frame := readFrame(t, conn)
	if frame["type"] != MessageTypeNotification || frame["action"] != "request_approved" {
		t.Errorf("notification frame = %v", frame)
	}
}

func TestClient_PingPong(t *testing.T) {
	hub := NewHub(DefaultConfig())
	conn := dialWebSocket(t, setupWebSocketServer(t, hub))

	writeJSON(t, conn, map[string]string{"type": "ping"})
	frame := readFrame(t, conn)
	if frame["type"] != MessageTypePong {
		t.Errorf("frame = %v, want pong", frame)
	}
	if ts, ok := frame["timestamp"].(float64); !ok || ts <= 0 {
		t.Errorf("pong timestamp = %v", frame["timestamp"])
	}
}

func TestClient_IgnoresMalformedAndUnknown(t *testing.T) {
	hub := NewHub(DefaultConfig())
	conn := dialWebSocket(t, setupWebSocketServer(t, hub))

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	writeJSON(t, conn, map[string]string{"type": "dance"})
	writeJSON(t, conn, map[string]string{"type": "subscribe"})

	// The connection is still usable afterwards.
	writeJSON(t, conn, map[string]string{"type": "ping"})
	if frame := readFrame(t, conn); frame["type"] != MessageTypePong {
		t.Errorf("frame = %v, want pong", frame)
	}
	if hub.SubscribedCount() != 0 {
		t.Error("subscribe without userId attached a user")
	}
}

func TestClient_CloseUnregisters(t *testing.T) {
	hub := NewHub(DefaultConfig())
	conn := dialWebSocket(t, setupWebSocketServer(t, hub))
	waitFor(t, func() bool { return hub.ClientCount() == 1 }, "registration")

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
	_ = conn.Close()

	waitFor(t, func() bool { return hub.ClientCount() == 0 }, "unregistration")
}

func TestClient_InboundRateLimited(t *testing.T) {
	hub := NewHub(Config{RateLimit: 0.001, RateBurst: 1})
	conn := dialWebSocket(t, setupWebSocketServer(t, hub))

	before := testutil.ToFloat64(metrics.WebSocketInboundLimited)
	writeJSON(t, conn, map[string]string{"type": "ping"})
	if frame := readFrame(t, conn); frame["type"] != MessageTypePong {
		t.Fatalf("first ping not answered: %v", frame)
	}
	for i := 0; i < 3; i++ {
		writeJSON(t, conn, map[string]string{"type": "ping"})
	}
	waitFor(t, func() bool {
		return testutil.ToFloat64(metrics.WebSocketInboundLimited)-before >= 3
	}, "rate limiter")
}

func TestHub_RejectsDisallowedOrigin(t *testing.T) {
	hub := NewHub(Config{AllowedOrigins: []string{"https://hr.example.com"}})
	server := setupWebSocketServer(t, hub)
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")

	header := http.Header{"Origin": {"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err == nil {
		t.Fatal("expected dial to fail for disallowed origin")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v, want 403", resp)
	}

	header.Set("Origin", "https://hr.example.com")
	conn, resp2, err := websocket.DefaultDialer.Dial(wsURL, header)
	if resp2 != nil && resp2.Body != nil {
		defer resp2.Body.Close()
	}
	if err != nil {
		t.Fatalf("allowed origin rejected: %v", err)
	}
	_ = conn.Close()
}

func TestVerifyConstants(t *testing.T) {
	if pingPeriod >= pongWait {
		t.Errorf("pingPeriod %v must be shorter than pongWait %v", pingPeriod, pongWait)
	}
	if pingPeriod != 54*time.Second || writeWait != 10*time.Second || maxMessageSize != 64*1024 {
		t.Errorf("unexpected keepalive constants: %v %v %d", pingPeriod, writeWait, maxMessageSize)
	}
}
