// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/tomtom215/nexusaudit/internal/api"
	"github.com/tomtom215/nexusaudit/internal/audit"
	"github.com/tomtom215/nexusaudit/internal/auth"
	"github.com/tomtom215/nexusaudit/internal/config"
	"github.com/tomtom215/nexusaudit/internal/eventbus"
	"github.com/tomtom215/nexusaudit/internal/logging"
	"github.com/tomtom215/nexusaudit/internal/supervisor"
	"github.com/tomtom215/nexusaudit/internal/supervisor/services"
	"github.com/tomtom215/nexusaudit/internal/websocket"
)

// app holds the components built from configuration. Supervised services
// are returned by services; everything else is released by close.
type app struct {
	store     audit.Store
	bus       *eventbus.Bus
	embedded  *eventbus.EmbeddedServer
	natsConn  *nats.Conn
	sweeper   *audit.Sweeper
	hub       *websocket.Hub
	forwarder *eventbus.Forwarder
	bridge    *websocket.NATSBridge
	server    *http.Server
	addr      string
}

func newApp(ctx context.Context, cfg *config.Config) (a *app, err error) {
	a = &app{addr: cfg.Server.Addr()}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	a.store, err = audit.OpenStore(ctx, audit.StoreConfig{
		Driver: cfg.Store.Driver,
		DSN:    cfg.Store.DSN,
		Path:   cfg.Store.Path,
		Breaker: audit.BreakerConfig{
			MaxRequests:      cfg.Store.Breaker.MaxRequests,
			Interval:         cfg.Store.Breaker.Interval,
			Timeout:          cfg.Store.Breaker.Timeout,
			FailureThreshold: cfg.Store.Breaker.FailureThreshold,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open audit store: %w", err)
	}

	if err = a.initBus(cfg.NATS); err != nil {
		return nil, err
	}

	auditLogger := audit.NewLogger(a.store, audit.Config{
		Enabled:       cfg.Audit.Enabled,
		AppendTimeout: cfg.Store.AppendTimeout,
	}, audit.WithPublisher(a.bus))

	a.sweeper = audit.NewSweeper(a.store, audit.SweeperConfig{
		RetentionDays: cfg.Audit.RetentionDays,
		Interval:      cfg.Audit.CleanupInterval,
	})

	a.hub = websocket.NewHub(websocket.Config{
		SendBuffer:     cfg.WebSocket.SendBuffer,
		RateLimit:      cfg.WebSocket.RateLimit,
		RateBurst:      cfg.WebSocket.RateBurst,
		AllowedOrigins: cfg.WebSocket.AllowedOrigins,
	})

	a.forwarder, err = eventbus.NewBusForwarder(a.bus, a.hub, eventbus.DefaultForwarderConfig())
	if err != nil {
		return nil, fmt.Errorf("create notification forwarder: %w", err)
	}

	if a.natsConn != nil {
		a.bridge = websocket.NewNATSBridge(a.natsConn, cfg.NATS.SubjectPrefix, a.hub)
	}

	authMiddleware, err := newAuth(cfg.Security, auditLogger)
	if err != nil {
		return nil, err
	}

	router := api.NewRouter(api.RouterConfig{
		Handler: api.NewHandler(api.HandlerConfig{
			Query:         audit.NewQueryService(a.store, audit.WithResultCache(cfg.Audit.QueryCacheTTL)),
			Sweeper:       a.sweeper,
			Hub:           a.hub,
			RetentionDays: cfg.Audit.RetentionDays,
			Environment:   cfg.Server.Environment,
		}),
		Auth:        authMiddleware,
		Middleware:  middlewareConfig(cfg.Security),
		AuditLogger: auditLogger,
		LogRequests: cfg.Audit.LogRequests,
	})

	// Read and write deadlines are left to the WebSocket client pumps.
	a.server = &http.Server{
		Addr:              a.addr,
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}
	return a, nil
}

// initBus selects the event bus transport. With NATS enabled the bridge
// gets its own connection to the same server.
func (a *app) initBus(cfg config.NATSConfig) error {
	logger := eventbus.NewLogger()
	if !cfg.Enabled {
		a.bus = eventbus.NewInProcessBus(logger)
		return nil
	}

	url := cfg.URL
	if cfg.Embedded {
		es, err := eventbus.NewEmbeddedServer(eventbus.EmbeddedConfig{Port: cfg.EmbeddedPort})
		if err != nil {
			return fmt.Errorf("start embedded NATS: %w", err)
		}
		a.embedded = es
		url = es.ClientURL()
	}

	bus, err := eventbus.NewNATSBus(eventbus.DefaultNATSConfig(url), logger)
	if err != nil {
		return fmt.Errorf("connect event bus: %w", err)
	}
	a.bus = bus

	conn, err := nats.Connect(url,
		nats.Name("nexusaudit-notification-bridge"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return fmt.Errorf("connect notification bridge: %w", err)
	}
	a.natsConn = conn
	return nil
}

func newAuth(cfg config.SecurityConfig, auditLogger *audit.Logger) (*auth.Middleware, error) {
	mode, err := auth.ParseMode(cfg.AuthMode)
	if err != nil {
		return nil, err
	}

	var tokens *auth.JWTManager
	if mode == auth.ModeJWT {
		tokens, err = auth.NewJWTManager(cfg.JWTSecret, 0)
		if err != nil {
			return nil, fmt.Errorf("create JWT manager: %w", err)
		}
	} else {
		logging.Warn().Msg("Authentication disabled: every request acts as admin")
	}
	return auth.NewMiddleware(mode, tokens, auditLogger)
}

func middlewareConfig(cfg config.SecurityConfig) *api.ChiMiddlewareConfig {
	mw := api.DefaultChiMiddlewareConfig()
	mw.CORSAllowedOrigins = cfg.CORSOrigins
	if cfg.RateLimitRequests > 0 {
		mw.RateLimitRequests = cfg.RateLimitRequests
	}
	if cfg.RateLimitWindow > 0 {
		mw.RateLimitWindow = cfg.RateLimitWindow
	}
	return mw
}

func (a *app) services() supervisor.Services {
	s := supervisor.Services{
		Sweeper:   a.sweeper,
		Hub:       a.hub,
		Forwarder: a.forwarder,
		HTTP:      services.NewHTTPServerService(a.server, services.TCPListen(a.addr), 10*time.Second),
	}
	if a.bridge != nil {
		s.Bridge = a.bridge
	}
	return s
}

// close releases resources in reverse order of creation.
func (a *app) close() {
	if a.natsConn != nil {
		a.natsConn.Close()
	}
	if a.bus != nil {
		if err := a.bus.Close(); err != nil {
			logging.Warn().Err(err).Msg("Event bus close failed")
		}
	}
	if a.embedded != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		a.embedded.Shutdown(ctx)
		cancel()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logging.Warn().Err(err).Msg("Audit store close failed")
		}
	}
}
