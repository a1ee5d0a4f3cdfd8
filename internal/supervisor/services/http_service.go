// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/tomtom215/nexusaudit/internal/logging"
)

// HTTPServer is the part of *http.Server the service drives.
type HTTPServer interface {
	Serve(l net.Listener) error
	Shutdown(ctx context.Context) error
}

// Listen opens the listener for one Serve attempt.
type Listen func() (net.Listener, error)

// TCPListen returns a Listen for addr.
func TCPListen(addr string) Listen {
	return func() (net.Listener, error) {
		return net.Listen("tcp", addr)
	}
}

// HTTPServerService runs an HTTP server under supervision. A bind failure
// is returned so suture retries with backoff; cancellation shuts the
// server down gracefully.
//
//	server := &http.Server{Handler: router.SetupChi()}
//	tree.AddAPIService(services.NewHTTPServerService(server, services.TCPListen(":10000"), 10*time.Second))
type HTTPServerService struct {
	server          HTTPServer
	listen          Listen
	shutdownTimeout time.Duration
	name            string
}

// NewHTTPServerService creates the service. A non-positive shutdownTimeout
// defaults to 10s.
func NewHTTPServerService(server HTTPServer, listen Listen, shutdownTimeout time.Duration) *HTTPServerService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &HTTPServerService{
		server:          server,
		listen:          listen,
		shutdownTimeout: shutdownTimeout,
		name:            "http-server",
	}
}

// Serve implements suture.Service.
func (h *HTTPServerService) Serve(ctx context.Context) error {
	ln, err := h.listen()
	if err != nil {
		return fmt.Errorf("http server listen: %w", err)
	}
	logging.Info().Str("addr", ln.Addr().String()).Msg("HTTP server listening")

	errCh := make(chan error, 1)
	go func() {
		if err := h.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil

	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), h.shutdownTimeout)
		defer cancel()

		if err := h.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown failed: %w", err)
		}
		<-errCh
		logging.Info().Msg("HTTP server stopped")
		return ctx.Err()
	}
}

// String implements fmt.Stringer for suture logging.
func (h *HTTPServerService) String() string {
	return h.name
}
