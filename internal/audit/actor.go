// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package audit

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// ActorContext identifies who performed an action and from where.
// An empty ID means an anonymous or system caller.
type ActorContext struct {
	ID        string
	Role      Role
	IPAddress string
	UserAgent string
}

type actorKey struct{}

// WithActor stores actor in ctx.
func WithActor(ctx context.Context, actor ActorContext) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor stored by WithActor, or nil.
func ActorFromContext(ctx context.Context) *ActorContext {
	if a, ok := ctx.Value(actorKey{}).(ActorContext); ok {
		return &a
	}
	return nil
}

// ActorFromRequest returns an anonymous actor carrying the client address
// and User-Agent of r. Callers fill ID and Role once the caller is known.
func ActorFromRequest(r *http.Request) ActorContext {
	return ActorContext{
		IPAddress: ClientIP(r),
		UserAgent: r.UserAgent(),
	}
}

// ClientIP returns the originating client address, preferring the first
// X-Forwarded-For hop, then X-Real-IP, then RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
