// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

//go:build integration

package audit

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/duckdb/duckdb-go/v2"
)

func openDuckDBStore(t *testing.T, path string) *SQLStore {
	t.Helper()
	db, err := sql.Open("duckdb", path)
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	s, err := NewSQLStore(context.Background(), db, DialectDuckDB)
	if err != nil {
		_ = db.Close()
		t.Fatalf("NewSQLStore: %v", err)
	}
	return s
}

func TestDuckDBStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return openDuckDBStore(t, "") })
}

func TestDuckDBStore_SequenceResumes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.duckdb")

	s := openDuckDBStore(t, path)
	first := mustAppend(t, s, Record{Action: ActionLogout})
	mustAppend(t, s, Record{Action: ActionLogout})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s = openDuckDBStore(t, path)
	defer s.Close()
	third := mustAppend(t, s, Record{Action: ActionLogout})
	if third.Sequence != first.Sequence+2 {
		t.Errorf("sequence after reopen = %d, want %d", third.Sequence, first.Sequence+2)
	}
}

func TestNewSQLStore_RejectsUnknownDialect(t *testing.T) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("open duckdb: %v", err)
	}
	defer db.Close()

	if _, err := NewSQLStore(context.Background(), db, "oracle"); err == nil {
		t.Error("expected error for unknown dialect")
	}
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{dialect: DialectPostgres}
	if got := pg.rebind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("postgres rebind = %q", got)
	}
	duck := &SQLStore{dialect: DialectDuckDB}
	if got := duck.rebind("a = ?"); got != "a = ?" {
		t.Errorf("duckdb rebind = %q", got)
	}
}
