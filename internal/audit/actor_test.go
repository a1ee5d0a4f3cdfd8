// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package audit

import (
	"context"
	"net/http/httptest"
	"testing"
)

func TestClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"remote addr", nil, "198.51.100.7:54321", "198.51.100.7"},
		{"forwarded first hop", map[string]string{"X-Forwarded-For": "203.0.113.1, 10.0.0.1"}, "10.0.0.2:80", "203.0.113.1"},
		{"real ip", map[string]string{"X-Real-IP": " 203.0.113.9 "}, "10.0.0.2:80", "203.0.113.9"},
		{"forwarded wins over real ip", map[string]string{"X-Forwarded-For": "203.0.113.1", "X-Real-IP": "203.0.113.9"}, "10.0.0.2:80", "203.0.113.1"},
		{"empty forwarded hop", map[string]string{"X-Forwarded-For": " , 10.0.0.1"}, "192.0.2.4:80", "192.0.2.4"},
		{"remote without port", nil, "192.0.2.5", "192.0.2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/api/logs", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestActorFromRequest(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "192.0.2.10:1234"
	r.Header.Set("User-Agent", "NexusClient/2.0")

	a := ActorFromRequest(r)
	if a.ID != "" || a.Role != "" {
		t.Errorf("anonymous actor has identity: %+v", a)
	}
	if a.IPAddress != "192.0.2.10" || a.UserAgent != "NexusClient/2.0" {
		t.Errorf("actor = %+v", a)
	}
}

func TestActorContext(t *testing.T) {
	if ActorFromContext(context.Background()) != nil {
		t.Error("expected nil actor on empty context")
	}

	ctx := WithActor(context.Background(), ActorContext{ID: "u1", Role: RoleEmployee})
	a := ActorFromContext(ctx)
	if a == nil || a.ID != "u1" || a.Role != RoleEmployee {
		t.Fatalf("actor = %+v", a)
	}

	// Mutating the returned copy leaves the context untouched.
	a.ID = "u2"
	if ActorFromContext(ctx).ID != "u1" {
		t.Error("context actor was mutated through returned pointer")
	}
}
