// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

// Package metrics holds the Prometheus instrumentation for Nexus Audit.
//
// Metrics cover:
//   - Audit append outcomes (including swallowed failures)
//   - Audit store operation latency
//   - Retention sweeps and the query cache
//   - WebSocket connections and notification delivery
//   - HTTP API traffic
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "nexusaudit"

var (
	// Audit trail metrics

	AuditRecordsAppended = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_records_appended_total",
			Help:      "Audit records successfully appended, by severity",
		},
		[]string{"severity"},
	)

	// AuditAppendFailures counts store failures the audit logger swallowed.
	// A non-zero rate means the audit trail is losing records.
	AuditAppendFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_append_failures_total",
			Help:      "Audit appends that failed and were swallowed by the logger",
		},
	)

	AuditPublishFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_publish_failures_total",
			Help:      "Stored audit records that could not be published to the event bus",
		},
	)

	StoreOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of audit store operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"driver", "operation"},
	)

	StoreOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operation_errors_total",
			Help:      "Audit store operations that returned an error",
		},
		[]string{"driver", "operation"},
	)

	StoreBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_breaker_state",
			Help:      "Circuit breaker state for store appends (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Retention metrics

	RetentionSweeps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_sweeps_total",
			Help:      "Retention sweeps run, by result",
		},
		[]string{"result"},
	)

	RetentionDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retention_records_deleted_total",
			Help:      "Audit records removed by retention sweeps",
		},
	)

	QueryCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "query_cache_lookups_total",
			Help:      "Query cache lookups for stats and action lists, by result (hit, miss)",
		},
		[]string{"result"},
	)

	// Notification hub metrics

	WebSocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Currently registered WebSocket clients",
		},
	)

	NotificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_delivered_total",
			Help:      "Notification frames queued for delivery, by mode (user, broadcast)",
		},
		[]string{"mode"},
	)

	NotificationsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Notification frames not delivered, by reason",
		},
		[]string{"reason"},
	)

	WebSocketInboundLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "websocket_inbound_rate_limited_total",
			Help:      "Inbound client messages ignored by the per-client rate limiter",
		},
	)

	// API metrics

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "api_requests_total",
			Help:      "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "api_request_duration_seconds",
			Help:      "API request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "api_active_requests",
			Help:      "Current number of in-flight API requests",
		},
	)
)

// RecordStoreOperation observes one store call.
func RecordStoreOperation(driver, operation string, duration time.Duration, err error) {
	StoreOperationDuration.WithLabelValues(driver, operation).Observe(duration.Seconds())
	if err != nil {
		StoreOperationErrors.WithLabelValues(driver, operation).Inc()
	}
}

// RecordAuditAppend counts a stored audit record.
func RecordAuditAppend(severity string) {
	AuditRecordsAppended.WithLabelValues(severity).Inc()
}

// RecordSweep records the outcome of a retention sweep.
func RecordSweep(deleted int64, err error) {
	if err != nil {
		RetentionSweeps.WithLabelValues("error").Inc()
		return
	}
	RetentionSweeps.WithLabelValues("ok").Inc()
	RetentionDeleted.Add(float64(deleted))
}

// RecordAPIRequest records an API request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest increments or decrements the in-flight gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}
