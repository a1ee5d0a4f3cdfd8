// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package audit

import (
	"context"
	"maps"
	"time"

	"github.com/tomtom215/nexusaudit/internal/logging"
	"github.com/tomtom215/nexusaudit/internal/metrics"
)

// DefaultAppendTimeout bounds a single store append.
const DefaultAppendTimeout = 5 * time.Second

// Config holds configuration for the audit logger.
type Config struct {
	// Enabled controls whether audit logging is active.
	Enabled bool

	// AppendTimeout bounds each store write. The write is detached from
	// the caller's context, so only this timeout can cut it short.
	AppendTimeout time.Duration
}

// DefaultConfig returns the logger defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		AppendTimeout: DefaultAppendTimeout,
	}
}

// Publisher receives every record after it is stored.
type Publisher interface {
	PublishRecord(ctx context.Context, r *Record) error
}

// Entry describes one event to record.
type Entry struct {
	Action      Action
	Description string
	// Actor overrides the actor carried by the context.
	Actor            *ActorContext
	TargetID         string
	TargetDepartment string
	Metadata         Metadata
	// SeverityOverride replaces the classified severity when valid. It is
	// the only way to produce a critical record.
	SeverityOverride Severity
}

// Logger is the single entry point through which the application records
// audit events. It never returns errors to its callers.
type Logger struct {
	store     Store
	config    Config
	publisher Publisher
}

// Option configures a Logger.
type Option func(*Logger)

// WithPublisher forwards stored records to p.
func WithPublisher(p Publisher) Option {
	return func(l *Logger) { l.publisher = p }
}

// NewLogger creates an audit logger writing to store.
func NewLogger(store Store, config Config, opts ...Option) *Logger {
	if config.AppendTimeout <= 0 {
		config.AppendTimeout = DefaultAppendTimeout
	}
	l := &Logger{store: store, config: config}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Enabled reports whether records are being written.
func (l *Logger) Enabled() bool {
	return l != nil && l.config.Enabled && l.store != nil
}

// Record classifies and stores e. It returns the new record id and true on
// success. Failures are logged and counted, never returned: an audit
// outage must not fail the business operation being audited.
func (l *Logger) Record(ctx context.Context, e Entry) (string, bool) {
	if !l.Enabled() {
		return "", false
	}

	actor := e.Actor
	if actor == nil {
		actor = ActorFromContext(ctx)
	}

	rec := &Record{
		Action:           e.Action,
		TargetID:         e.TargetID,
		TargetDepartment: e.TargetDepartment,
		Metadata:         maps.Clone(e.Metadata),
		ActorRole:        RoleSystem,
	}
	if actor != nil {
		rec.IPAddress = actor.IPAddress
		rec.UserAgent = actor.UserAgent
		if actor.ID != "" {
			rec.ActorID = actor.ID
			rec.ActorRole = actor.Role
			if !rec.ActorRole.Valid() {
				logging.Ctx(ctx).Warn().
					Str("actor_id", actor.ID).
					Str("role", string(actor.Role)).
					Msg("Audit actor has no known role, recording as employee")
				rec.ActorRole = RoleEmployee
			}
		}
	}

	rec.Description, rec.Severity = Classify(e.Action, e.Description, ClassifyInput{
		ActorID:  rec.ActorID,
		Metadata: rec.Metadata,
	})
	if e.SeverityOverride.Valid() {
		rec.Severity = e.SeverityOverride
	}

	// The append must survive the request that triggered it.
	appendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.config.AppendTimeout)
	defer cancel()

	id, err := l.store.Append(appendCtx, rec)
	if err != nil {
		metrics.AuditAppendFailures.Inc()
		logging.Ctx(ctx).Error().
			Err(err).
			Str("action", string(rec.Action)).
			Str("severity", string(rec.Severity)).
			Msg("Failed to append audit record")
		return "", false
	}
	metrics.RecordAuditAppend(string(rec.Severity))

	logging.Ctx(ctx).Debug().
		Str("id", id).
		Str("action", string(rec.Action)).
		Str("severity", string(rec.Severity)).
		Msg("Audit record stored")

	if l.publisher != nil {
		if err := l.publisher.PublishRecord(appendCtx, rec); err != nil {
			metrics.AuditPublishFailures.Inc()
			logging.Ctx(ctx).Warn().Err(err).Str("id", id).Msg("Failed to publish audit record")
		}
	}

	return id, true
}
