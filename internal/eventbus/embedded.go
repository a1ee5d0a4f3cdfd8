// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"

	"github.com/tomtom215/nexusaudit/internal/logging"
)

// EmbeddedConfig configures the in-process NATS server.
type EmbeddedConfig struct {
	ServerName   string
	Host         string
	Port         int // -1 picks a random port
	ReadyTimeout time.Duration
}

// EmbeddedServer wraps an in-process NATS server for single-binary
// deployments that still want the NATS transport.
type EmbeddedServer struct {
	server *server.Server
	config EmbeddedConfig
}

// NewEmbeddedServer starts a NATS server and waits until it accepts
// connections.
func NewEmbeddedServer(cfg EmbeddedConfig) (*EmbeddedServer, error) {
	if cfg.ServerName == "" {
		cfg.ServerName = "nexusaudit"
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 30 * time.Second
	}

	ns, err := server.NewServer(&server.Options{
		ServerName: cfg.ServerName,
		Host:       cfg.Host,
		Port:       cfg.Port,
		NoSigs:     true,
		NoLog:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}

	go ns.Start()

	if !ns.ReadyForConnections(cfg.ReadyTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within %s", cfg.ReadyTimeout)
	}

	logging.Info().
		Str("name", cfg.ServerName).
		Str("url", ns.ClientURL()).
		Msg("Embedded NATS server started")

	return &EmbeddedServer{server: ns, config: cfg}, nil
}

// ClientURL returns the URL clients should connect to.
func (s *EmbeddedServer) ClientURL() string {
	return s.server.ClientURL()
}

// IsRunning reports whether the server is accepting connections.
func (s *EmbeddedServer) IsRunning() bool {
	return s.server.Running()
}

// Shutdown stops the server and waits for it to exit or ctx to end.
func (s *EmbeddedServer) Shutdown(ctx context.Context) {
	s.server.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.WaitForShutdown()
		close(done)
	}()
	select {
	case <-done:
		logging.Info().Msg("Embedded NATS server stopped")
	case <-ctx.Done():
		logging.Warn().Msg("Embedded NATS server shutdown timed out")
	}
}
