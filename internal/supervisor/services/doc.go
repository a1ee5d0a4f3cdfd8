// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

// Package services adapts components whose lifecycle is not already
// context-driven to suture's Serve(ctx) error pattern. The hub, retention
// sweeper, notification forwarder and NATS bridge implement Serve
// themselves and are added to the tree directly.
package services
