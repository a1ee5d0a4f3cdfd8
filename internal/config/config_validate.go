// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package config

import (
	"fmt"
	"strings"
)

// minJWTSecretLength matches the HS256 key size.
const minJWTSecretLength = 32

// maxRetentionDays keeps the retention cutoff within time.Duration range.
const maxRetentionDays = 36500

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateAudit(); err != nil {
		return err
	}
	if err := c.validateWebSocket(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("SERVER_TIMEOUT must be positive, got %v", c.Server.Timeout)
	}
	return nil
}

func (c *Config) validateStore() error {
	switch c.Store.Driver {
	case "memory":
	case "duckdb", "badger":
		// Empty path selects in-memory mode for both engines.
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("STORE_DSN is required when STORE_DRIVER=postgres")
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be one of memory, duckdb, postgres, badger; got %q", c.Store.Driver)
	}
	if c.Store.AppendTimeout <= 0 {
		return fmt.Errorf("STORE_APPEND_TIMEOUT must be positive, got %v", c.Store.AppendTimeout)
	}
	return nil
}

func (c *Config) validateAudit() error {
	if c.Audit.RetentionDays < 1 || c.Audit.RetentionDays > maxRetentionDays {
		return fmt.Errorf("AUDIT_RETENTION_DAYS must be between 1 and %d, got %d", maxRetentionDays, c.Audit.RetentionDays)
	}
	if c.Audit.CleanupInterval <= 0 {
		return fmt.Errorf("AUDIT_CLEANUP_INTERVAL must be positive, got %v", c.Audit.CleanupInterval)
	}
	if c.Audit.QueryCacheTTL < 0 {
		return fmt.Errorf("AUDIT_QUERY_CACHE_TTL must not be negative, got %v", c.Audit.QueryCacheTTL)
	}
	return nil
}

func (c *Config) validateWebSocket() error {
	if c.WebSocket.SendBuffer < 1 {
		return fmt.Errorf("WS_SEND_BUFFER must be at least 1, got %d", c.WebSocket.SendBuffer)
	}
	if c.WebSocket.RateLimit <= 0 || c.WebSocket.RateBurst < 1 {
		return fmt.Errorf("WS_RATE_LIMIT and WS_RATE_BURST must be positive")
	}
	return nil
}

func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}
	if !c.NATS.Embedded && c.NATS.URL == "" {
		return fmt.Errorf("NATS_URL is required when NATS_ENABLED=true and NATS_EMBEDDED=false")
	}
	if c.NATS.SubjectPrefix == "" {
		return fmt.Errorf("NATS_SUBJECT_PREFIX must not be empty")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case "none":
	case "jwt":
		if len(c.Security.JWTSecret) < minJWTSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d characters when AUTH_MODE=jwt", minJWTSecretLength)
		}
	default:
		return fmt.Errorf("AUTH_MODE must be jwt or none, got %q", c.Security.AuthMode)
	}
	if c.Security.RateLimitRequests < 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
