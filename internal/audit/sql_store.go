// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/nexusaudit/internal/logging"
)

// Dialect selects the SQL flavour spoken by SQLStore.
type Dialect string

const (
	DialectDuckDB   Dialect = "duckdb"
	DialectPostgres Dialect = "postgres"
)

const recordColumns = `id, seq, action, description, actor_id, actor_role,
	target_id, target_department, ip_address, user_agent, metadata, severity, created_at`

// SQLStore implements Store on database/sql. DuckDB is the default
// embedded engine; PostgreSQL is used for shared deployments.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	mu      sync.RWMutex
	stamp   *stamper
	closed  atomic.Bool
}

// NewSQLStore creates the audit_records table if needed and returns a store
// that owns db. Sequences continue from the highest stored value.
func NewSQLStore(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLStore, error) {
	if dialect != DialectDuckDB && dialect != DialectPostgres {
		return nil, fmt.Errorf("unsupported SQL dialect %q", dialect)
	}

	s := &SQLStore{db: db, dialect: dialect}
	if err := s.createTable(ctx); err != nil {
		return nil, err
	}

	var maxSeq sql.NullInt64
	if err := db.QueryRowContext(ctx, "SELECT MAX(seq) FROM audit_records").Scan(&maxSeq); err != nil {
		return nil, storageErr("read max sequence", err)
	}
	s.stamp = newStamper(counter(maxSeq.Int64))
	return s, nil
}

// createTable creates audit_records and its indexes.
func (s *SQLStore) createTable(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS audit_records (
			id TEXT PRIMARY KEY,
			seq BIGINT NOT NULL,
			action TEXT NOT NULL,
			description TEXT NOT NULL,
			actor_id TEXT NOT NULL DEFAULT '',
			actor_role TEXT NOT NULL,
			target_id TEXT NOT NULL DEFAULT '',
			target_department TEXT NOT NULL DEFAULT '',
			ip_address TEXT NOT NULL DEFAULT '',
			user_agent TEXT NOT NULL DEFAULT '',
			metadata TEXT,
			severity TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_records_created_at ON audit_records(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_records_action ON audit_records(action)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_records_actor_id ON audit_records(actor_id)`,
		`CREATE INDEX IF NOT EXISTS idx_audit_records_severity ON audit_records(severity)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return storageErr("create schema", err)
		}
	}

	logging.Debug().Str("dialect", string(s.dialect)).Msg("Audit records table created/verified")
	return nil
}

// Append inserts r.
func (s *SQLStore) Append(ctx context.Context, r *Record) (string, error) {
	if r == nil {
		return "", invalidFilter("record cannot be nil")
	}
	if s.closed.Load() {
		return "", ErrStoreClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.stamp.stamp(r); err != nil {
		return "", storageErr("assign sequence", err)
	}

	metadata, err := marshalMetadata(r.Metadata)
	if err != nil {
		return "", storageErr("encode metadata", err)
	}

	query := s.rebind(`INSERT INTO audit_records (` + recordColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = s.db.ExecContext(ctx, query,
		r.ID, r.Sequence, string(r.Action), r.Description, r.ActorID, string(r.ActorRole),
		r.TargetID, r.TargetDepartment, r.IPAddress, r.UserAgent, metadata,
		string(r.Severity), r.CreatedAt,
	)
	if err != nil {
		return "", storageErr("insert audit record", err)
	}
	return r.ID, nil
}

// Query returns one page of matching records, newest first.
func (s *SQLStore) Query(ctx context.Context, f Filter, page, pageSize int) ([]Record, int64, error) {
	if err := checkPage(page, pageSize); err != nil {
		return nil, 0, err
	}
	if s.closed.Load() {
		return nil, 0, ErrStoreClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	where, args := buildWhere(&f)

	var total int64
	countQuery := s.rebind("SELECT COUNT(*) FROM audit_records" + where)
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, storageErr("count audit records", err)
	}
	if total == 0 {
		return []Record{}, 0, nil
	}

	query := s.rebind("SELECT " + recordColumns + " FROM audit_records" + where +
		fmt.Sprintf(" ORDER BY created_at DESC, seq DESC LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, storageErr("query audit records", err)
	}
	defer rows.Close()

	records := make([]Record, 0, pageSize)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, 0, storageErr("scan audit record", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storageErr("iterate audit records", err)
	}
	return records, total, nil
}

// DistinctActions returns the sorted set of stored actions.
func (s *SQLStore) DistinctActions(ctx context.Context) ([]Action, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT action FROM audit_records ORDER BY action")
	if err != nil {
		return nil, storageErr("distinct actions", err)
	}
	defer rows.Close()

	actions := []Action{}
	for rows.Next() {
		var a string
		if err := rows.Scan(&a); err != nil {
			return nil, storageErr("scan action", err)
		}
		actions = append(actions, Action(a))
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate actions", err)
	}
	return actions, nil
}

// DeleteOlderThan removes unprotected records created before cutoff in a
// single transaction.
func (s *SQLStore) DeleteOlderThan(ctx context.Context, cutoff time.Time, protected []Severity) (int64, error) {
	if s.closed.Load() {
		return 0, ErrStoreClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := "DELETE FROM audit_records WHERE created_at < ?"
	args := []any{cutoff.UTC()}
	if len(protected) > 0 {
		placeholders := make([]string, len(protected))
		for i, sev := range protected {
			placeholders[i] = "?"
			args = append(args, string(sev))
		}
		query += " AND severity NOT IN (" + strings.Join(placeholders, ", ") + ")"
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, storageErr("begin delete", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	result, err := tx.ExecContext(ctx, s.rebind(query), args...)
	if err != nil {
		return 0, storageErr("delete audit records", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, storageErr("rows affected", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, storageErr("commit delete", err)
	}
	return deleted, nil
}

// Stats aggregates records created at or after since.
func (s *SQLStore) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	since = since.UTC()
	stats := &Stats{Since: since}

	if err := s.db.QueryRowContext(ctx, s.rebind("SELECT COUNT(*) FROM audit_records WHERE created_at >= ?"), since).
		Scan(&stats.Total); err != nil {
		return nil, storageErr("count since", err)
	}

	var err error
	if stats.ByAction, err = s.countBy(ctx, "action", since, "cnt DESC, k ASC"); err != nil {
		return nil, err
	}
	if stats.BySeverity, err = s.countBy(ctx, "severity", since, "cnt DESC, k ASC"); err != nil {
		return nil, err
	}
	if stats.ByDay, err = s.countBy(ctx, s.dayExpr(), since, "k ASC"); err != nil {
		return nil, err
	}
	return stats, nil
}

// countBy runs a GROUP BY over expr for records since the given time.
func (s *SQLStore) countBy(ctx context.Context, expr string, since time.Time, order string) ([]CountByKey, error) {
	query := fmt.Sprintf(
		"SELECT %s AS k, COUNT(*) AS cnt FROM audit_records WHERE created_at >= ? GROUP BY 1 ORDER BY %s",
		expr, order)

	rows, err := s.db.QueryContext(ctx, s.rebind(query), since)
	if err != nil {
		return nil, storageErr("aggregate "+expr, err)
	}
	defer rows.Close()

	out := []CountByKey{}
	for rows.Next() {
		var c CountByKey
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, storageErr("scan aggregate", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("iterate aggregate", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

// DB exposes the underlying handle for health checks.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

func (s *SQLStore) dayExpr() string {
	if s.dialect == DialectPostgres {
		return "to_char(created_at, 'YYYY-MM-DD')"
	}
	return "strftime(created_at, '%Y-%m-%d')"
}

// rebind rewrites ? placeholders as $1..$n for PostgreSQL.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// buildWhere translates f into a WHERE clause with ? placeholders.
func buildWhere(f *Filter) (string, []any) {
	var conditions []string
	var args []any

	if f.Action != "" {
		conditions = append(conditions, "action = ?")
		args = append(args, string(f.Action))
	}
	if f.Severity != "" {
		conditions = append(conditions, "severity = ?")
		args = append(args, string(f.Severity))
	}
	if f.ActorID != "" {
		conditions = append(conditions, "actor_id = ?")
		args = append(args, f.ActorID)
	}
	if f.Start != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, f.Start.UTC())
	}
	if f.End != nil {
		conditions = append(conditions, "created_at <= ?")
		args = append(args, f.End.UTC())
	}
	if f.Search != "" {
		// strpos avoids treating % and _ in user input as LIKE wildcards.
		conditions = append(conditions, "strpos(LOWER(description), ?) > 0")
		args = append(args, strings.ToLower(f.Search))
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*Record, error) {
	var (
		rec      Record
		action   string
		role     string
		severity string
		metadata sql.NullString
	)
	if err := row.Scan(
		&rec.ID, &rec.Sequence, &action, &rec.Description, &rec.ActorID, &role,
		&rec.TargetID, &rec.TargetDepartment, &rec.IPAddress, &rec.UserAgent,
		&metadata, &severity, &rec.CreatedAt,
	); err != nil {
		return nil, err
	}

	rec.Action = Action(action)
	rec.ActorRole = Role(role)
	rec.Severity = Severity(severity)
	rec.CreatedAt = rec.CreatedAt.UTC()

	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &rec.Metadata); err != nil {
			logging.Debug().Err(err).Str("id", rec.ID).Msg("Failed to parse audit metadata JSON")
		}
	}
	return &rec, nil
}

func marshalMetadata(m Metadata) (sql.NullString, error) {
	if len(m) == 0 {
		return sql.NullString{}, nil
	}
	data, err := json.Marshal(m)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}
