// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

/*
Package main is the entry point for the Nexus Audit server.

The server stores audit records for an HR/ERP backend, serves the admin
log API and pushes notifications to connected WebSocket clients.

# Application Architecture

	RootSupervisor ("nexusaudit")
	├── DataSupervisor ("data-layer")
	│   └── Retention sweeper
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocket hub
	│   ├── Notification forwarder (event bus -> hub)
	│   └── NATS notification bridge (NATS_ENABLED)
	└── APISupervisor ("api-layer")
	    └── HTTP server

Initialization order:

 1. Configuration: Koanf v2 (defaults, config.yaml, environment)
 2. Logging: zerolog
 3. Store: memory, DuckDB, PostgreSQL or Badger, behind a circuit breaker
 4. Event bus: in-process gochannel, or NATS (external or embedded)
 5. Audit logger, query service and retention sweeper
 6. WebSocket hub, notification forwarder and NATS bridge
 7. Authentication and HTTP router
 8. Supervisor tree

# Configuration

Common environment variables:

	HTTP_PORT=10000
	STORE_DRIVER=duckdb STORE_PATH=/data/nexusaudit.duckdb
	STORE_DRIVER=postgres DATABASE_URL=postgres://...
	AUTH_MODE=jwt JWT_SECRET=...
	NATS_ENABLED=true NATS_EMBEDDED=true
	AUDIT_RETENTION_DAYS=90

# Signal Handling

SIGINT and SIGTERM cancel the root context. Every supervised service stops,
then the event bus, embedded NATS server and store are closed.
*/
package main
