// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

/*
Package middleware provides the infrastructure HTTP middleware shared by the
API router.

Key Components:

  - RequestID: X-Request-ID propagation into the logging context
  - PrometheusMetrics: request counts, latency and in-flight gauge, labelled
    by chi route pattern
  - RequestAudit: one request_completed audit record per API call

All middleware has the func(http.Handler) http.Handler shape so it can be
passed straight to chi's r.Use:

	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.RequestAudit(auditLogger, "/api/health", "/metrics", "/ws"))

RequestAudit must run after the actor middleware so records carry the
caller.
*/
package middleware
