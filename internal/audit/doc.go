// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

// Package audit records, queries and expires the HR audit log.
//
// # Overview
//
// Every significant action in the HR system (logins, user and department
// changes, task and attendance updates, request decisions, document access)
// is reported through Logger.Record or one of its helpers. The logger
// classifies the action, stores an immutable Record and forwards it to an
// optional Publisher, which the event bus uses to notify connected users.
//
//	store, _ := audit.OpenStore(ctx, audit.StoreConfig{Driver: audit.DriverDuckDB, Path: "/data/audit.duckdb"})
//	logger := audit.NewLogger(store, audit.DefaultConfig())
//	logger.LoginFailed(ctx, "jane@example.com", "invalid password")
//
// # Severity
//
// Classify maps actions to low, medium or high using a static table.
// Unknown actions are low. critical is never assigned automatically; it is
// reserved for explicit overrides and is exempt from retention.
//
// # Ordering
//
// Records are ordered by (CreatedAt, Sequence). Each store hands out
// sequences and timestamps under one lock, so a record appended later never
// sorts before one appended earlier.
//
// # Stores
//
//   - MemoryStore: tests and throwaway deployments
//   - SQLStore: DuckDB (embedded) or PostgreSQL (shared)
//   - BadgerStore: embedded key-value store, keys in time order
//
// OpenStore adds Prometheus instrumentation and a circuit breaker around
// Append so a dead backend fails fast instead of stalling requests.
//
// # Error Handling
//
// Logger never returns errors: append and publish failures are logged and
// counted in nexusaudit_audit_append_failures_total and
// nexusaudit_audit_publish_failures_total. QueryService and Sweeper return
// ErrInvalidFilter, ErrInvalidRetention or ErrStorage for callers to map
// onto HTTP status codes.
package audit
