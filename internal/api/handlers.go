// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/nexusaudit/internal/audit"
	"github.com/tomtom215/nexusaudit/internal/logging"
	"github.com/tomtom215/nexusaudit/internal/validation"
	"github.com/tomtom215/nexusaudit/internal/websocket"
)

// Health and database status values.
const (
	healthOK           = "OK"
	healthMessage      = "Nexus ERP API is running"
	dbConnected        = "connected"
	dbDisconnected     = "disconnected"
	healthCheckTimeout = 2 * time.Second
)

// Handler serves the audit and notification endpoints.
type Handler struct {
	query         *audit.QueryService
	sweeper       *audit.Sweeper
	hub           *websocket.Hub
	retentionDays int
	environment   string
	startTime     time.Time
	now           func() time.Time
}

// HandlerConfig carries the Handler dependencies.
type HandlerConfig struct {
	Query         *audit.QueryService
	Sweeper       *audit.Sweeper
	Hub           *websocket.Hub
	RetentionDays int
	Environment   string
}

// NewHandler creates a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	if cfg.RetentionDays <= 0 {
		cfg.RetentionDays = audit.DefaultRetentionDays
	}
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	return &Handler{
		query:         cfg.Query,
		sweeper:       cfg.Sweeper,
		hub:           cfg.Hub,
		retentionDays: cfg.RetentionDays,
		environment:   cfg.Environment,
		startTime:     time.Now(),
		now:           time.Now,
	}
}

// Logs lists audit records: page, limit, action, severity, user,
// startDate, endDate and search query parameters.
func (h *Handler) Logs(w http.ResponseWriter, r *http.Request) {
	req, err := audit.ParseQueryRequest(r.URL.Query())
	if err != nil {
		respondError(w, r, err)
		return
	}

	page, err := h.query.List(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondList(w, len(page.Records), page)
}

// LogStats aggregates the last ?days= days (default 30).
func (h *Handler) LogStats(w http.ResponseWriter, r *http.Request) {
	days, err := audit.ParseDays(r.URL.Query(), audit.DefaultStatsDays)
	if err != nil {
		respondError(w, r, err)
		return
	}

	stats, err := h.query.Stats(r.Context(), days)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondSuccess(w, map[string]any{
		"actionStats":   stats.ByAction,
		"severityStats": stats.BySeverity,
		"dailyStats":    stats.ByDay,
		"totalLogs":     stats.Total,
		"since":         stats.Since,
	})
}

// LogActions lists the actions present in the log.
func (h *Handler) LogActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.query.Actions(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondSuccess(w, map[string]any{"actions": actions})
}

// CleanupLogs deletes non-critical records older than ?days= (default
// the configured retention).
func (h *Handler) CleanupLogs(w http.ResponseWriter, r *http.Request) {
	days, err := audit.ParseDays(r.URL.Query(), h.retentionDays)
	if err != nil {
		respondError(w, r, err)
		return
	}

	deleted, err := h.sweeper.Sweep(r.Context(), days)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if deleted > 0 {
		h.query.InvalidateCache()
	}

	logging.Ctx(r.Context()).Info().
		Int("days", days).
		Int64("deleted", deleted).
		Msg("Manual audit log cleanup")

	respondSuccess(w, map[string]any{
		"deletedCount": deleted,
		"message":      fmt.Sprintf("Deleted logs older than %d days", days),
	})
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status      string          `json:"status"`
	Message     string          `json:"message"`
	Timestamp   time.Time       `json:"timestamp"`
	Environment string          `json:"environment"`
	Database    string          `json:"database"`
	Uptime      float64         `json:"uptime"`
	WebSocket   WebSocketHealth `json:"websocket"`
}

// WebSocketHealth reports hub state.
type WebSocketHealth struct {
	Connections int  `json:"connections"`
	Subscribed  int  `json:"subscribed"`
	Active      bool `json:"active"`
}

// Health always answers 200; the database field reports store health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	db := dbConnected
	if err := h.query.Ping(ctx); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("Health check: store unavailable")
		db = dbDisconnected
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:      healthOK,
		Message:     healthMessage,
		Timestamp:   h.now().UTC(),
		Environment: h.environment,
		Database:    db,
		Uptime:      time.Since(h.startTime).Seconds(),
		WebSocket: WebSocketHealth{
			Connections: h.hub.ClientCount(),
			Subscribed:  h.hub.SubscribedCount(),
			Active:      true,
		},
	})
}

// WebSocket upgrades the connection and hands it to the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeWS(w, r)
}

// testNotificationRequest is validated before a test notification is sent.
type testNotificationRequest struct {
	UserID  string `validate:"required,max=128"`
	Message string `validate:"required,max=500"`
}

// TestNotification pushes an info notification to ?userId= carrying
// ?message=.
func (h *Handler) TestNotification(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := testNotificationRequest{
		UserID:  strings.TrimSpace(q.Get("userId")),
		Message: q.Get("message"),
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondFail(w, r, http.StatusBadRequest, verr.Error())
		return
	}

	delivered := h.hub.NotifyUser(req.UserID, map[string]any{
		"title":     "Test Notification",
		"message":   req.Message,
		"level":     "info",
		"timestamp": h.now().UTC().Format(time.RFC3339Nano),
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    StatusSuccess,
		"message":   "Test notification sent",
		"delivered": delivered,
	})
}
