// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package audit

import (
	"context"
	"maps"
	"math"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore implements Store in memory.
// Suitable for development and testing. Data is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
	stamp   *stamper
	closed  bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{stamp: newStamper(counter(0))}
}

// Append stores a copy of r.
func (s *MemoryStore) Append(_ context.Context, r *Record) (string, error) {
	if r == nil {
		return "", invalidFilter("record cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrStoreClosed
	}
	if err := s.stamp.stamp(r); err != nil {
		return "", err
	}

	rec := *r
	rec.Metadata = maps.Clone(r.Metadata)
	s.records = append(s.records, rec)
	return rec.ID, nil
}

// Query returns one page of matching records, newest first.
func (s *MemoryStore) Query(_ context.Context, f Filter, page, pageSize int) ([]Record, int64, error) {
	if err := checkPage(page, pageSize); err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, 0, ErrStoreClosed
	}

	var matched []*Record
	for i := range s.records {
		if matches(&s.records[i], &f) {
			matched = append(matched, &s.records[i])
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[j].before(matched[i]) })

	total := int64(len(matched))
	start := (page - 1) * pageSize
	if start >= len(matched) {
		return []Record{}, total, nil
	}
	end := min(start+pageSize, len(matched))

	out := make([]Record, 0, end-start)
	for _, r := range matched[start:end] {
		rec := *r
		rec.Metadata = maps.Clone(r.Metadata)
		out = append(out, rec)
	}
	return out, total, nil
}

// DistinctActions returns the sorted set of stored actions.
func (s *MemoryStore) DistinctActions(_ context.Context) ([]Action, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	seen := make(map[Action]struct{})
	for i := range s.records {
		seen[s.records[i].Action] = struct{}{}
	}
	return sortedActions(seen), nil
}

// DeleteOlderThan removes unprotected records created before cutoff.
func (s *MemoryStore) DeleteOlderThan(_ context.Context, cutoff time.Time, protected []Severity) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, ErrStoreClosed
	}

	kept := s.records[:0]
	var deleted int64
	for i := range s.records {
		if s.records[i].CreatedAt.Before(cutoff) && !slices.Contains(protected, s.records[i].Severity) {
			deleted++
			continue
		}
		kept = append(kept, s.records[i])
	}
	clear(s.records[len(kept):])
	s.records = kept
	return deleted, nil
}

// Stats aggregates records created at or after since.
func (s *MemoryStore) Stats(_ context.Context, since time.Time) (*Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrStoreClosed
	}

	b := newStatsBuilder(since)
	for i := range s.records {
		b.add(&s.records[i])
	}
	return b.build(), nil
}

// Close releases the records. Further calls return ErrStoreClosed.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.records = nil
	return nil
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// matches reports whether r satisfies every set field of f.
func matches(r *Record, f *Filter) bool {
	if f.Action != "" && r.Action != f.Action {
		return false
	}
	if f.Severity != "" && r.Severity != f.Severity {
		return false
	}
	if f.ActorID != "" && r.ActorID != f.ActorID {
		return false
	}
	if f.Start != nil && r.CreatedAt.Before(*f.Start) {
		return false
	}
	if f.End != nil && r.CreatedAt.After(*f.End) {
		return false
	}
	if f.Search != "" && !strings.Contains(strings.ToLower(r.Description), strings.ToLower(f.Search)) {
		return false
	}
	return true
}

func checkPage(page, pageSize int) error {
	if page < 1 {
		return invalidFilter("page must be at least 1, got %d", page)
	}
	if pageSize < 1 || pageSize > MaxPageSize {
		return invalidFilter("page size must be between 1 and %d, got %d", MaxPageSize, pageSize)
	}
	if page > math.MaxInt/pageSize {
		return invalidFilter("page %d is out of range for page size %d", page, pageSize)
	}
	return nil
}

func sortedActions(set map[Action]struct{}) []Action {
	out := make([]Action, 0, len(set))
	for a := range set {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}
