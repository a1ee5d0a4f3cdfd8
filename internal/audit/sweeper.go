// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/nexusaudit/internal/logging"
	"github.com/tomtom215/nexusaudit/internal/metrics"
)

// Retention defaults.
const (
	DefaultRetentionDays   = 90
	DefaultCleanupInterval = 24 * time.Hour

	// MaxWindowDays bounds retention and stats windows. Larger values
	// overflow time.Duration.
	MaxWindowDays = 36500
)

// protectedSeverities are never removed by retention.
var protectedSeverities = []Severity{SeverityCritical}

// SweeperConfig controls the periodic retention run.
type SweeperConfig struct {
	RetentionDays int
	Interval      time.Duration
}

// Sweeper deletes non-critical records older than the retention window.
// Serve runs it periodically under a supervisor.
type Sweeper struct {
	store  Store
	config SweeperConfig
	now    func() time.Time
}

// NewSweeper creates a retention sweeper. Zero config values take the
// defaults.
func NewSweeper(store Store, config SweeperConfig) *Sweeper {
	if config.RetentionDays <= 0 {
		config.RetentionDays = DefaultRetentionDays
	}
	if config.Interval <= 0 {
		config.Interval = DefaultCleanupInterval
	}
	return &Sweeper{store: store, config: config, now: time.Now}
}

// Sweep deletes records created more than days*24h ago, keeping critical
// records. It returns the number removed.
func (s *Sweeper) Sweep(ctx context.Context, days int) (int64, error) {
	if days < 1 || days > MaxWindowDays {
		return 0, fmt.Errorf("%w: days must be between 1 and %d, got %d", ErrInvalidRetention, MaxWindowDays, days)
	}

	cutoff := windowStart(s.now(), days)
	deleted, err := s.store.DeleteOlderThan(ctx, cutoff, protectedSeverities)
	metrics.RecordSweep(deleted, err)
	if err != nil {
		return 0, storageErr("retention sweep", err)
	}

	logging.Ctx(ctx).Info().
		Int64("deleted", deleted).
		Int("days", days).
		Time("cutoff", cutoff).
		Msg("Audit retention sweep completed")
	return deleted, nil
}

// Serve implements suture.Service. It sweeps once at start and then every
// Interval until ctx is cancelled. Sweep failures are logged and retried
// on the next tick.
func (s *Sweeper) Serve(ctx context.Context) error {
	logging.Info().
		Int("retention_days", s.config.RetentionDays).
		Dur("interval", s.config.Interval).
		Msg("Audit retention sweeper started")

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Sweeper) runOnce(ctx context.Context) {
	if _, err := s.Sweep(ctx, s.config.RetentionDays); err != nil && ctx.Err() == nil {
		logging.Error().Err(err).Msg("Audit retention sweep failed")
	}
}

// windowStart returns now minus days whole days, in UTC. days must be
// within [1, MaxWindowDays].
func windowStart(now time.Time, days int) time.Time {
	return now.UTC().Add(-time.Duration(days) * 24 * time.Hour)
}

// String implements fmt.Stringer for supervisor logging.
func (s *Sweeper) String() string {
	return "retention-sweeper"
}
