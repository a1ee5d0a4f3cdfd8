// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	// SQL drivers registered for OpenStore.
	_ "github.com/duckdb/duckdb-go/v2"
	_ "github.com/lib/pq"

	"github.com/tomtom215/nexusaudit/internal/logging"
	"github.com/tomtom215/nexusaudit/internal/metrics"
)

// Store drivers accepted by OpenStore.
const (
	DriverMemory   = "memory"
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
	DriverBadger   = "badger"
)

// StoreConfig selects and configures a Store.
type StoreConfig struct {
	Driver string
	// DSN is the PostgreSQL connection string.
	DSN string
	// Path is the DuckDB file or Badger directory. Empty means in-memory.
	Path    string
	Breaker BreakerConfig
}

// OpenStore opens the configured store, instruments it with metrics and,
// unless Breaker.MaxRequests is zero, wraps it in a circuit breaker.
func OpenStore(ctx context.Context, cfg StoreConfig) (Store, error) {
	var (
		inner Store
		err   error
	)

	switch cfg.Driver {
	case DriverMemory, "":
		inner = NewMemoryStore()
	case DriverDuckDB:
		inner, err = openSQL(ctx, "duckdb", cfg.Path, DialectDuckDB)
	case DriverPostgres:
		inner, err = openSQL(ctx, "postgres", cfg.DSN, DialectPostgres)
	case DriverBadger:
		inner, err = OpenBadgerStore(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}

	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}

	var store Store = &instrumentedStore{Store: inner, driver: driver}
	if cfg.Breaker.MaxRequests > 0 {
		store = NewBreakerStore(store, "audit-store-"+driver, cfg.Breaker)
	}

	logging.Info().Str("driver", driver).Msg("Audit store opened")
	return store, nil
}

func openSQL(ctx context.Context, driverName, dsn string, dialect Dialect) (*SQLStore, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driverName, err)
	}

	s, err := NewSQLStore(ctx, db, dialect)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// instrumentedStore records duration and error metrics for every call.
type instrumentedStore struct {
	Store
	driver string
}

func (s *instrumentedStore) observe(op string, start time.Time, err error) {
	if isCallerError(err) {
		err = nil
	}
	metrics.RecordStoreOperation(s.driver, op, time.Since(start), err)
}

func (s *instrumentedStore) Append(ctx context.Context, r *Record) (string, error) {
	start := time.Now()
	id, err := s.Store.Append(ctx, r)
	s.observe("append", start, err)
	return id, err
}

func (s *instrumentedStore) Query(ctx context.Context, f Filter, page, pageSize int) ([]Record, int64, error) {
	start := time.Now()
	records, total, err := s.Store.Query(ctx, f, page, pageSize)
	s.observe("query", start, err)
	return records, total, err
}

func (s *instrumentedStore) DistinctActions(ctx context.Context) ([]Action, error) {
	start := time.Now()
	actions, err := s.Store.DistinctActions(ctx)
	s.observe("distinct_actions", start, err)
	return actions, err
}

func (s *instrumentedStore) DeleteOlderThan(ctx context.Context, cutoff time.Time, protected []Severity) (int64, error) {
	start := time.Now()
	n, err := s.Store.DeleteOlderThan(ctx, cutoff, protected)
	s.observe("delete_older_than", start, err)
	return n, err
}

func (s *instrumentedStore) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	start := time.Now()
	stats, err := s.Store.Stats(ctx, since)
	s.observe("stats", start, err)
	return stats, err
}

func isCallerError(err error) bool {
	return errors.Is(err, ErrInvalidFilter)
}
