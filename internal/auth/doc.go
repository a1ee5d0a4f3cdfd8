// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

/*
Package auth resolves the caller of each HTTP request and guards the
administrative endpoints.

The host application issues HS256 JWTs; this package only verifies them.
The token subject becomes the audit actor ID and the role claim becomes
the actor role. Tokens are read from the Authorization header, the
"token" cookie, or the "token" query parameter (browsers cannot set
headers on WebSocket upgrades).

Authentication Modes:

  - jwt: tokens are required by RequireRole
  - none: every caller is treated as an anonymous administrator, for
    local development only

Usage:

	tokens, err := auth.NewJWTManager(cfg.Security.JWTSecret, 24*time.Hour)
	mw, err := auth.NewMiddleware(auth.ModeJWT, tokens, auditLogger)

	r.Use(mw.Actor)
	r.With(mw.RequireRole(audit.RoleAdmin)).Get("/api/logs", h.Logs)

Denied requests are written to the audit trail as unauthorized_access.
*/
package auth
