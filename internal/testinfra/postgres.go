// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

//go:build integration

package testinfra

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

// PostgresImage is the image StartPostgres runs.
const PostgresImage = "postgres:16-alpine"

// SkipIfNoDocker skips the test when the Docker daemon is not reachable.
func SkipIfNoDocker(t *testing.T) {
	t.Helper()
	if !IsDockerAvailable() {
		t.Skip("Skipping test: Docker not available")
	}
}

// IsDockerAvailable runs `docker info` with a short timeout.
func IsDockerAvailable() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return exec.CommandContext(ctx, "docker", "info").Run() == nil
}

// StartPostgres runs a PostgreSQL container for the lifetime of t and
// returns a DSN for lib/pq.
func StartPostgres(t *testing.T) string {
	t.Helper()
	SkipIfNoDocker(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := postgres.Run(ctx, PostgresImage,
		postgres.WithDatabase("nexusaudit"),
		postgres.WithUsername("audit"),
		postgres.WithPassword("audit"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() { CleanupContainer(t, container) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}
	return dsn
}

// CleanupContainer terminates container, logging rather than failing.
func CleanupContainer(t *testing.T, container testcontainers.Container) {
	t.Helper()
	if container == nil {
		return
	}
	if err := testcontainers.TerminateContainer(container); err != nil {
		t.Logf("Warning: failed to terminate container: %v", err)
	}
}
