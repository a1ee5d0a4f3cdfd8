// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/nexusaudit/internal/audit"
	"github.com/tomtom215/nexusaudit/internal/logging"
)

// Mode selects how callers are authenticated.
type Mode string

const (
	ModeJWT  Mode = "jwt"
	ModeNone Mode = "none"
)

// ParseMode converts a configuration string to a Mode.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jwt", "":
		return ModeJWT, nil
	case "none":
		return ModeNone, nil
	default:
		return "", errors.New("invalid auth mode: " + s)
	}
}

// AnonymousAdminID is the actor ID used in ModeNone.
const AnonymousAdminID = "anonymous"

const tokenCookie = "token"

type authErrorKey struct{}

// Middleware attaches the request actor and enforces roles.
type Middleware struct {
	mode   Mode
	tokens *JWTManager
	audit  *audit.Logger
}

// NewMiddleware creates the middleware. ModeJWT requires tokens; the audit
// logger may be nil.
func NewMiddleware(mode Mode, tokens *JWTManager, auditLogger *audit.Logger) (*Middleware, error) {
	if mode == ModeJWT && tokens == nil {
		return nil, fmt.Errorf("jwt auth mode requires a JWT manager")
	}
	return &Middleware{mode: mode, tokens: tokens, audit: auditLogger}, nil
}

// Actor stores an audit.ActorContext for every request. Requests without
// a valid token proceed anonymously; RequireRole rejects them later.
func (m *Middleware) Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := audit.ActorFromRequest(r)
		ctx := r.Context()

		switch m.mode {
		case ModeNone:
			actor.ID = AnonymousAdminID
			actor.Role = audit.RoleAdmin
		default:
			claims, err := m.authenticate(r)
			switch {
			case err == nil:
				actor.ID = claims.Subject
				actor.Role, _ = claims.ActorRole()
			case !errors.Is(err, ErrNoCredentials):
				logging.Ctx(ctx).Debug().Err(err).Str("path", r.URL.Path).Msg("Token validation failed")
				ctx = context.WithValue(ctx, authErrorKey{}, err)
			}
		}

		next.ServeHTTP(w, r.WithContext(audit.WithActor(ctx, actor)))
	})
}

// RequireRole allows only authenticated callers holding one of roles.
// Missing or invalid credentials get 401, the wrong role gets 403. Both are
// recorded as unauthorized_access.
func (m *Middleware) RequireRole(roles ...audit.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor := audit.ActorFromContext(ctx)

			if actor == nil || actor.ID == "" {
				reason := "missing credentials"
				if err, ok := ctx.Value(authErrorKey{}).(error); ok {
					reason = err.Error()
				}
				m.deny(w, r, http.StatusUnauthorized, "Unauthorized: authentication required", reason)
				return
			}

			if len(roles) > 0 && !slices.Contains(roles, actor.Role) {
				m.deny(w, r, http.StatusForbidden, "Forbidden: insufficient permissions",
					fmt.Sprintf("role %s not permitted", actor.Role))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (m *Middleware) deny(w http.ResponseWriter, r *http.Request, status int, message, reason string) {
	m.audit.UnauthorizedAccess(r.Context(), r.Method+" "+r.URL.Path, reason)

	logging.Ctx(r.Context()).Warn().
		Int("status", status).
		Str("path", r.URL.Path).
		Str("reason", reason).
		Msg("Access denied")

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status":  "fail",
		"message": message,
	})
}

func (m *Middleware) authenticate(r *http.Request) (*Claims, error) {
	token := extractToken(r)
	if token == "" {
		return nil, ErrNoCredentials
	}
	return m.tokens.ValidateToken(token)
}

// extractToken reads the bearer token from the Authorization header, the
// token cookie, or the token query parameter, in that order.
func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			if token := strings.TrimSpace(parts[1]); token != "" {
				return token
			}
		}
	}

	if cookie, err := r.Cookie(tokenCookie); err == nil && cookie.Value != "" {
		return cookie.Value
	}

	return r.URL.Query().Get(tokenCookie)
}
