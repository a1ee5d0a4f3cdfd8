// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/tomtom215/nexusaudit/internal/logging"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

func TestRequestID_GeneratesNewID(t *testing.T) {
	var ctxID, logID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctxID = GetRequestID(r.Context())
		logID = logging.RequestIDFromContext(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/logs", nil))

	header := rec.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(header); err != nil {
		t.Fatalf("X-Request-ID %q is not a UUID: %v", header, err)
	}
	if ctxID != header || logID != header {
		t.Errorf("context ids = %q/%q, header %q", ctxID, logID, header)
	}
}

func TestRequestID_PreservesUpstreamID(t *testing.T) {
	var got string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "proxy-abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got != "proxy-abc" || rec.Header().Get(RequestIDHeader) != "proxy-abc" {
		t.Errorf("request id = %q, header %q", got, rec.Header().Get(RequestIDHeader))
	}
}

func TestRequestID_UniquePerRequest(t *testing.T) {
	handler := RequestID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		id := rec.Header().Get(RequestIDHeader)
		if seen[id] {
			t.Fatalf("duplicate request id %q", id)
		}
		seen[id] = true
	}
}

func TestGetRequestID_Missing(t *testing.T) {
	if id := GetRequestID(context.Background()); id != "" {
		t.Errorf("GetRequestID() = %q", id)
	}
	ctx := context.WithValue(context.Background(), RequestIDKey, 42)
	if id := GetRequestID(ctx); id != "" {
		t.Errorf("GetRequestID(wrong type) = %q", id)
	}
}
