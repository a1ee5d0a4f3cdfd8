// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package audit

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/nexusaudit/internal/logging"
	"github.com/tomtom215/nexusaudit/internal/metrics"
)

// BreakerConfig configures the circuit breaker around Append.
type BreakerConfig struct {
	// MaxRequests allowed through while half-open. Zero disables the breaker.
	MaxRequests uint32
	// Interval after which closed-state counts are reset.
	Interval time.Duration
	// Timeout before an open breaker moves to half-open.
	Timeout time.Duration
	// FailureThreshold consecutive failures trip the breaker.
	FailureThreshold uint32
}

// DefaultBreakerConfig returns the breaker defaults.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// BreakerStore fails Append fast while the backend is unhealthy. Reads,
// deletes and stats pass straight through.
type BreakerStore struct {
	Store
	cb *gobreaker.CircuitBreaker[string]
}

// NewBreakerStore wraps inner with a circuit breaker named name.
func NewBreakerStore(inner Store, name string, cfg BreakerConfig) *BreakerStore {
	threshold := cfg.FailureThreshold
	if threshold == 0 {
		threshold = DefaultBreakerConfig().FailureThreshold
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		// Invalid records are caller mistakes, not backend failures.
		IsSuccessful: func(err error) bool {
			return err == nil || isCallerError(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.StoreBreakerState.WithLabelValues(name).Set(float64(to))
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Audit store circuit breaker state changed")
		},
	}

	metrics.StoreBreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))
	return &BreakerStore{
		Store: inner,
		cb:    gobreaker.NewCircuitBreaker[string](settings),
	}
}

// Append runs the inner Append through the breaker. While open it returns
// gobreaker.ErrOpenState wrapped as ErrStorage.
func (b *BreakerStore) Append(ctx context.Context, r *Record) (string, error) {
	id, err := b.cb.Execute(func() (string, error) {
		return b.Store.Append(ctx, r)
	})
	if err != nil {
		return "", storageErr("append", err)
	}
	return id, nil
}

// State reports the breaker state.
func (b *BreakerStore) State() gobreaker.State {
	return b.cb.State()
}
