// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

//go:build integration

// Package testinfra starts throwaway containers for integration tests.
//
// Tests using it carry the integration build tag and skip themselves when
// Docker is unavailable:
//
//	go test -tags integration ./internal/audit/...
package testinfra
