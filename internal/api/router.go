// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/nexusaudit/internal/audit"
	"github.com/tomtom215/nexusaudit/internal/auth"
	"github.com/tomtom215/nexusaudit/internal/middleware"
)

// Paths excluded from request auditing.
var unauditedPaths = []string{"/api/health", "/metrics", "/ws"}

// Router wires handlers and middleware into a chi router.
type Router struct {
	handler       *Handler
	auth          *auth.Middleware
	chiMiddleware *ChiMiddleware
	auditLogger   *audit.Logger
	logRequests   bool
}

// RouterConfig carries the Router dependencies.
type RouterConfig struct {
	Handler     *Handler
	Auth        *auth.Middleware
	Middleware  *ChiMiddlewareConfig
	AuditLogger *audit.Logger
	LogRequests bool
}

// NewRouter creates a Router.
func NewRouter(cfg RouterConfig) *Router {
	return &Router{
		handler:       cfg.Handler,
		auth:          cfg.Auth,
		chiMiddleware: NewChiMiddleware(cfg.Middleware),
		auditLogger:   cfg.AuditLogger,
		logRequests:   cfg.LogRequests,
	}
}

// SetupChi builds the HTTP handler.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(AccessLog())
	r.Use(middleware.PrometheusMetrics)
	r.Use(router.auth.Actor)
	if router.logRequests {
		r.Use(middleware.RequestAudit(router.auditLogger, unauditedPaths...))
	}

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", router.handler.Health)
	})

	// Clients subscribe after connecting; the upgrade itself is open like
	// the health probe.
	r.With(router.chiMiddleware.RateLimit()).Get("/ws", router.handler.WebSocket)

	r.Route("/api/logs", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(chimiddleware.Compress(5, "application/json"))
		r.Use(router.auth.RequireRole(audit.RoleAdmin))

		r.Get("/", router.handler.Logs)
		r.Get("/stats", router.handler.LogStats)
		r.Get("/actions", router.handler.LogActions)
		r.Delete("/cleanup", router.handler.CleanupLogs)
	})

	r.Route("/api/notifications", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(router.auth.RequireRole(audit.RoleAdmin))

		r.Get("/test", router.handler.TestNotification)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondFail(w, r, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondFail(w, r, http.StatusMethodNotAllowed, "Method not allowed")
	})

	return r
}
