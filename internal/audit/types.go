// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package audit

import (
	"context"
	"sort"
	"time"
)

// MaxPageSize is the largest page a store will return.
const MaxPageSize = 200

// Severity indicates how significant an audit record is.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Severities returns all severities from least to most significant.
func Severities() []Severity {
	return []Severity{SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
}

// Valid reports whether s is one of the four known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Role is the actor's role at the time the record was written.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleEmployee Role = "employee"
	RoleSystem   Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleEmployee, RoleSystem:
		return true
	}
	return false
}

// Metadata is an opaque JSON document attached to a record.
type Metadata map[string]any

// Record is one immutable entry in the audit log.
type Record struct {
	ID               string    `json:"id"`
	Sequence         int64     `json:"sequence"`
	Action           Action    `json:"action"`
	Description      string    `json:"description"`
	ActorID          string    `json:"actorId,omitempty"`
	ActorRole        Role      `json:"actorRole"`
	TargetID         string    `json:"targetId,omitempty"`
	TargetDepartment string    `json:"targetDepartment,omitempty"`
	IPAddress        string    `json:"ipAddress,omitempty"`
	UserAgent        string    `json:"userAgent,omitempty"`
	Metadata         Metadata  `json:"metadata,omitempty"`
	Severity         Severity  `json:"severity"`
	CreatedAt        time.Time `json:"createdAt"`
}

// before reports whether r sorts after o in newest-first order, i.e. r is
// older. The ordering key is (CreatedAt, Sequence).
func (r *Record) before(o *Record) bool {
	if !r.CreatedAt.Equal(o.CreatedAt) {
		return r.CreatedAt.Before(o.CreatedAt)
	}
	return r.Sequence < o.Sequence
}

// Filter selects records. All set fields must match.
type Filter struct {
	Action   Action
	Severity Severity
	ActorID  string
	// Start and End bound CreatedAt inclusively.
	Start *time.Time
	End   *time.Time
	// Search is a case-insensitive substring of Description.
	Search string
}

// CountByKey is one bucket of an aggregate.
type CountByKey struct {
	Key   string `json:"key"`
	Count int64  `json:"count"`
}

// Stats aggregates records created at or after Since.
type Stats struct {
	Since      time.Time    `json:"since"`
	Total      int64        `json:"total"`
	ByAction   []CountByKey `json:"actionStats"`
	BySeverity []CountByKey `json:"severityStats"`
	ByDay      []CountByKey `json:"dailyStats"`
}

// Store persists audit records. Implementations must be safe for
// concurrent use.
type Store interface {
	// Append assigns ID and Sequence (and CreatedAt when zero) and stores
	// the record. The record is visible to Query once Append returns.
	Append(ctx context.Context, r *Record) (string, error)

	// Query returns one page of matching records, newest first, and the
	// total number of matches. page is 1-indexed.
	Query(ctx context.Context, f Filter, page, pageSize int) ([]Record, int64, error)

	// DistinctActions returns every action present in the log, sorted.
	DistinctActions(ctx context.Context) ([]Action, error)

	// DeleteOlderThan removes records created before cutoff whose
	// severity is not in protected.
	DeleteOlderThan(ctx context.Context, cutoff time.Time, protected []Severity) (int64, error)

	// Stats aggregates records created at or after since.
	Stats(ctx context.Context, since time.Time) (*Stats, error)

	Close() error
}

// statsBuilder accumulates Stats for stores that scan records in Go.
type statsBuilder struct {
	since      time.Time
	total      int64
	byAction   map[string]int64
	bySeverity map[string]int64
	byDay      map[string]int64
}

func newStatsBuilder(since time.Time) *statsBuilder {
	return &statsBuilder{
		since:      since,
		byAction:   make(map[string]int64),
		bySeverity: make(map[string]int64),
		byDay:      make(map[string]int64),
	}
}

func (b *statsBuilder) add(r *Record) {
	if r.CreatedAt.Before(b.since) {
		return
	}
	b.total++
	b.byAction[string(r.Action)]++
	b.bySeverity[string(r.Severity)]++
	b.byDay[r.CreatedAt.UTC().Format(time.DateOnly)]++
}

func (b *statsBuilder) build() *Stats {
	return &Stats{
		Since:      b.since,
		Total:      b.total,
		ByAction:   sortByCount(b.byAction),
		BySeverity: sortByCount(b.bySeverity),
		ByDay:      sortByKey(b.byDay),
	}
}

// sortByCount orders buckets by count descending, then key ascending.
func sortByCount(m map[string]int64) []CountByKey {
	out := toBuckets(m)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Key < out[j].Key
	})
	return out
}

func sortByKey(m map[string]int64) []CountByKey {
	out := toBuckets(m)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func toBuckets(m map[string]int64) []CountByKey {
	out := make([]CountByKey, 0, len(m))
	for k, v := range m {
		out = append(out, CountByKey{Key: k, Count: v})
	}
	return out
}
