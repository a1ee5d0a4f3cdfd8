// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

/*
Package api exposes the audit log and notification hub over HTTP using the
chi router.

Endpoints:

	GET    /api/health               liveness, store and WebSocket status
	GET    /metrics                  Prometheus exposition
	GET    /ws                       WebSocket upgrade
	GET    /api/logs                 paginated, filtered listing (admin)
	GET    /api/logs/stats?days=     aggregates over the last N days (admin)
	GET    /api/logs/actions         distinct actions for filter menus (admin)
	DELETE /api/logs/cleanup?days=   retention sweep (admin)
	GET    /api/notifications/test   push a test notification (admin)

Responses use the envelope the HR front end expects:

	{"status":"success","results":2,"data":{...}}
	{"status":"fail","message":"..."}

Invalid filters and retention windows return 400, storage failures 500,
missing credentials 401 and non-admin callers 403.
*/
package api
