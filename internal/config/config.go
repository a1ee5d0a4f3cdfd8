// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

// Package config loads Nexus Audit configuration.
//
// Values are layered: struct defaults, then an optional YAML file (see
// DefaultConfigPaths and CONFIG_PATH), then environment variables. Only the
// environment variables listed in envMappings are honored.
package config

import (
	"net"
	"strconv"
	"time"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Store     StoreConfig     `koanf:"store"`
	Audit     AuditConfig     `koanf:"audit"`
	WebSocket WebSocketConfig `koanf:"websocket"`
	NATS      NATSConfig      `koanf:"nats"`
	Security  SecurityConfig  `koanf:"security"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // reported by /api/health
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"` // json or console
	Caller bool   `koanf:"caller"`
}

// StoreConfig selects and configures the audit record store.
type StoreConfig struct {
	Driver        string        `koanf:"driver"` // memory, duckdb, postgres, badger
	DSN           string        `koanf:"dsn"`
	Path          string        `koanf:"path"`
	AppendTimeout time.Duration `koanf:"append_timeout"`
	Breaker       BreakerConfig `koanf:"breaker"`
}

// BreakerConfig configures the circuit breaker wrapped around the store.
// MaxRequests of zero disables the breaker.
type BreakerConfig struct {
	MaxRequests      uint32        `koanf:"max_requests"`
	Interval         time.Duration `koanf:"interval"`
	Timeout          time.Duration `koanf:"timeout"`
	FailureThreshold uint32        `koanf:"failure_threshold"`
}

// AuditConfig controls the audit logger and retention sweeper.
type AuditConfig struct {
	Enabled         bool          `koanf:"enabled"`
	RetentionDays   int           `koanf:"retention_days"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
	LogRequests     bool          `koanf:"log_requests"`
	QueryCacheTTL   time.Duration `koanf:"query_cache_ttl"` // 0 disables
}

// WebSocketConfig controls the notification hub.
type WebSocketConfig struct {
	SendBuffer     int      `koanf:"send_buffer"`
	RateLimit      float64  `koanf:"rate_limit"` // inbound messages per second per client
	RateBurst      int      `koanf:"rate_burst"`
	AllowedOrigins []string `koanf:"allowed_origins"`
}

// NATSConfig controls the optional NATS transport for the event bus and
// the cross-process notification bridge.
type NATSConfig struct {
	Enabled       bool   `koanf:"enabled"`
	URL           string `koanf:"url"`
	Embedded      bool   `koanf:"embedded"`
	EmbeddedPort  int    `koanf:"embedded_port"`
	SubjectPrefix string `koanf:"subject_prefix"`
}

// SecurityConfig holds authentication, CORS and rate limit settings.
type SecurityConfig struct {
	AuthMode          string        `koanf:"auth_mode"` // jwt or none
	JWTSecret         string        `koanf:"jwt_secret"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
