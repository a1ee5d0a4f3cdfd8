// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/nexusaudit/config.yaml",
	"/etc/nexusaudit/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all default values.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        10000,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Store: StoreConfig{
			Driver:        "memory",
			Path:          "/data/nexusaudit.duckdb",
			AppendTimeout: 5 * time.Second,
			Breaker: BreakerConfig{
				MaxRequests:      3,
				Interval:         time.Minute,
				Timeout:          30 * time.Second,
				FailureThreshold: 5,
			},
		},
		Audit: AuditConfig{
			Enabled:         true,
			RetentionDays:   90,
			CleanupInterval: 24 * time.Hour,
			LogRequests:     false,
			QueryCacheTTL:   15 * time.Second,
		},
		WebSocket: WebSocketConfig{
			SendBuffer: 256,
			RateLimit:  20,
			RateBurst:  40,
		},
		NATS: NATSConfig{
			Enabled:       false,
			URL:           "nats://127.0.0.1:4222",
			Embedded:      false,
			EmbeddedPort:  4222,
			SubjectPrefix: "nexusaudit.notify",
		},
		Security: SecurityConfig{
			AuthMode:          "jwt",
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
	}
}

// envMappings maps lowercased environment variable names to koanf paths.
// Variables not listed here are ignored.
var envMappings = map[string]string{
	// Server
	"http_host":      "server.host",
	"http_port":      "server.port",
	"server_timeout": "server.timeout",
	"app_env":        "server.environment",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Store
	"store_driver":                    "store.driver",
	"store_dsn":                       "store.dsn",
	"database_url":                    "store.dsn",
	"store_path":                      "store.path",
	"store_append_timeout":            "store.append_timeout",
	"store_breaker_max_requests":      "store.breaker.max_requests",
	"store_breaker_interval":          "store.breaker.interval",
	"store_breaker_timeout":           "store.breaker.timeout",
	"store_breaker_failure_threshold": "store.breaker.failure_threshold",

	// Audit
	"audit_enabled":          "audit.enabled",
	"audit_retention_days":   "audit.retention_days",
	"audit_cleanup_interval": "audit.cleanup_interval",
	"audit_log_requests":     "audit.log_requests",
	"audit_query_cache_ttl":  "audit.query_cache_ttl",

	// WebSocket
	"ws_send_buffer":     "websocket.send_buffer",
	"ws_rate_limit":      "websocket.rate_limit",
	"ws_rate_burst":      "websocket.rate_burst",
	"ws_allowed_origins": "websocket.allowed_origins",

	// NATS
	"nats_enabled":        "nats.enabled",
	"nats_url":            "nats.url",
	"nats_embedded":       "nats.embedded",
	"nats_embedded_port":  "nats.embedded_port",
	"nats_subject_prefix": "nats.subject_prefix",

	// Security
	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
}

// sliceConfigPaths are koanf paths that accept comma-separated env values.
var sliceConfigPaths = []string{
	"websocket.allowed_origins",
	"security.cors_origins",
}

// Load reads configuration from defaults, the config file and the environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// LoadWithKoanf loads configuration using koanf's layered providers:
// struct defaults, then an optional YAML file, then environment variables.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment (highest priority)
	// AUDIT_RETENTION_DAYS -> audit.retention_days
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// envTransformFunc maps an environment variable name to its koanf path,
// returning "" for variables that should be skipped.
func envTransformFunc(key string) string {
	key = strings.ToLower(key)
	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// processSliceFields splits comma-separated env values into string slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}
