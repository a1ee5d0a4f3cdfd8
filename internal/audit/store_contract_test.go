// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package audit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"
	"time"
)

// baseTime is a fixed, second-aligned instant so stored timestamps
// round-trip exactly through every backend.
var baseTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

// storeFactory returns a fresh, empty store. The test owns closing it.
type storeFactory func(t *testing.T) Store

// runStoreContract exercises the behaviour every Store implementation
// must share.
func runStoreContract(t *testing.T, newStore storeFactory) {
	t.Run("AppendAssignsFields", func(t *testing.T) { testAppendAssignsFields(t, newStore(t)) })
	t.Run("OrderingNewestFirst", func(t *testing.T) { testOrdering(t, newStore(t)) })
	t.Run("FilterConjunction", func(t *testing.T) { testFilterConjunction(t, newStore(t)) })
	t.Run("TimeRangeInclusive", func(t *testing.T) { testTimeRange(t, newStore(t)) })
	t.Run("SearchCaseInsensitive", func(t *testing.T) { testSearch(t, newStore(t)) })
	t.Run("Pagination", func(t *testing.T) { testPagination(t, newStore(t)) })
	t.Run("DistinctActions", func(t *testing.T) { testDistinctActions(t, newStore(t)) })
	t.Run("DeleteKeepsProtected", func(t *testing.T) { testDeleteOlderThan(t, newStore(t)) })
	t.Run("Stats", func(t *testing.T) { testStats(t, newStore(t)) })
	t.Run("EmptyStore", func(t *testing.T) { testEmptyStore(t, newStore(t)) })
	t.Run("RejectsBadPage", func(t *testing.T) { testRejectsBadPage(t, newStore(t)) })
	t.Run("ConcurrentAppend", func(t *testing.T) { testConcurrentAppend(t, newStore(t)) })
	t.Run("Closed", func(t *testing.T) { testClosed(t, newStore(t)) })
}

func mustAppend(t *testing.T, s Store, r Record) Record {
	t.Helper()
	if _, err := s.Append(context.Background(), &r); err != nil {
		t.Fatalf("Append(%s): %v", r.Action, err)
	}
	return r
}

func mustQuery(t *testing.T, s Store, f Filter, page, size int) ([]Record, int64) {
	t.Helper()
	recs, total, err := s.Query(context.Background(), f, page, size)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	return recs, total
}

func testAppendAssignsFields(t *testing.T, s Store) {
	defer s.Close()

	r := Record{
		Action:      ActionUserCreated,
		Description: "User Jane Doe created",
		ActorID:     "admin-1",
		ActorRole:   RoleAdmin,
		TargetID:    "user-9",
		Metadata:    Metadata{"department": "Finance"},
		Severity:    SeverityMedium,
	}
	before := time.Now().UTC().Add(-time.Second)
	id, err := s.Append(context.Background(), &r)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	if id == "" || id != r.ID {
		t.Errorf("expected returned id to match record id, got %q and %q", id, r.ID)
	}
	if r.Sequence <= 0 {
		t.Errorf("expected positive sequence, got %d", r.Sequence)
	}
	if r.CreatedAt.Before(before) {
		t.Errorf("expected CreatedAt to be assigned now, got %v", r.CreatedAt)
	}

	recs, total := mustQuery(t, s, Filter{}, 1, 10)
	if total != 1 || len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d (total %d)", len(recs), total)
	}
	got := recs[0]
	if got.ID != id || got.Action != ActionUserCreated || got.ActorRole != RoleAdmin || got.TargetID != "user-9" {
		t.Errorf("stored record mismatch: %+v", got)
	}
	if got.Metadata["department"] != "Finance" {
		t.Errorf("expected metadata to round-trip, got %v", got.Metadata)
	}
	if !got.CreatedAt.Equal(r.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, r.CreatedAt)
	}

	// Missing severity and role get their defaults.
	bare := mustAppend(t, s, Record{Action: "legacy_import"})
	if bare.Severity != SeverityLow {
		t.Errorf("expected default severity low, got %q", bare.Severity)
	}
	if bare.ActorRole != RoleSystem {
		t.Errorf("expected default role system, got %q", bare.ActorRole)
	}
}

func testOrdering(t *testing.T, s Store) {
	defer s.Close()

	// Three records share a timestamp; sequence breaks the tie.
	same := baseTime.Add(time.Hour)
	a := mustAppend(t, s, Record{Action: ActionTaskCreated, Description: "a", CreatedAt: same})
	b := mustAppend(t, s, Record{Action: ActionTaskCreated, Description: "b", CreatedAt: same})
	c := mustAppend(t, s, Record{Action: ActionTaskCreated, Description: "c", CreatedAt: same})
	older := mustAppend(t, s, Record{Action: ActionTaskCreated, Description: "older", CreatedAt: baseTime})
	newer := mustAppend(t, s, Record{Action: ActionTaskCreated, Description: "newer", CreatedAt: baseTime.Add(2 * time.Hour)})

	recs, _ := mustQuery(t, s, Filter{}, 1, 10)
	want := []string{newer.ID, c.ID, b.ID, a.ID, older.ID}
	if len(recs) != len(want) {
		t.Fatalf("expected %d records, got %d", len(want), len(recs))
	}
	for i := range want {
		if recs[i].ID != want[i] {
			t.Errorf("position %d: got %q (%s), want %q", i, recs[i].Description, recs[i].ID, want[i])
		}
	}

	// Auto-stamped appends never sort before earlier ones.
	first := mustAppend(t, s, Record{Action: ActionLogout})
	second := mustAppend(t, s, Record{Action: ActionLogout})
	if second.before(&first) {
		t.Errorf("later append sorts before earlier: %v/%d vs %v/%d",
			second.CreatedAt, second.Sequence, first.CreatedAt, first.Sequence)
	}
}

func testFilterConjunction(t *testing.T, s Store) {
	defer s.Close()

	seed := []Record{
		{Action: ActionLoginFailed, ActorID: "", Severity: SeverityMedium, Description: "failed for a"},
		{Action: ActionLoginFailed, ActorID: "u1", Severity: SeverityMedium, Description: "failed for b"},
		{Action: ActionLoginSuccess, ActorID: "u1", Severity: SeverityLow, Description: "ok for b"},
		{Action: ActionUserDeleted, ActorID: "u1", Severity: SeverityHigh, Description: "deleted c"},
		{Action: ActionUserDeleted, ActorID: "u2", Severity: SeverityCritical, Description: "deleted d"},
	}
	for i, r := range seed {
		r.CreatedAt = baseTime.Add(time.Duration(i) * time.Minute)
		mustAppend(t, s, r)
	}

	tests := []struct {
		name   string
		filter Filter
		want   int64
	}{
		{"no filter", Filter{}, 5},
		{"action", Filter{Action: ActionLoginFailed}, 2},
		{"severity", Filter{Severity: SeverityHigh}, 1},
		{"actor", Filter{ActorID: "u1"}, 3},
		{"action and actor", Filter{Action: ActionLoginFailed, ActorID: "u1"}, 1},
		{"action and severity", Filter{Action: ActionUserDeleted, Severity: SeverityCritical}, 1},
		{"no match", Filter{Action: ActionLoginSuccess, Severity: SeverityHigh}, 0},
		{"unknown action", Filter{Action: "not_a_real_action"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			recs, total := mustQuery(t, s, tt.filter, 1, 50)
			if total != tt.want {
				t.Errorf("total = %d, want %d", total, tt.want)
			}
			for _, r := range recs {
				if !matches(&r, &tt.filter) {
					t.Errorf("record %+v does not satisfy filter %+v", r, tt.filter)
				}
			}
		})
	}
}

func testTimeRange(t *testing.T, s Store) {
	defer s.Close()

	for i := 0; i < 5; i++ {
		mustAppend(t, s, Record{
			Action:    ActionAttendanceCheckedIn,
			CreatedAt: baseTime.Add(time.Duration(i) * time.Hour),
		})
	}

	start := baseTime.Add(time.Hour)
	end := baseTime.Add(3 * time.Hour)
	recs, total := mustQuery(t, s, Filter{Start: &start, End: &end}, 1, 50)
	if total != 3 {
		t.Fatalf("expected 3 records in inclusive range, got %d", total)
	}
	if !recs[0].CreatedAt.Equal(end) || !recs[2].CreatedAt.Equal(start) {
		t.Errorf("range endpoints not included: first %v last %v", recs[0].CreatedAt, recs[2].CreatedAt)
	}

	onlyStart := baseTime.Add(4 * time.Hour)
	if _, total := mustQuery(t, s, Filter{Start: &onlyStart}, 1, 50); total != 1 {
		t.Errorf("expected 1 record at or after start, got %d", total)
	}
	onlyEnd := baseTime
	if _, total := mustQuery(t, s, Filter{End: &onlyEnd}, 1, 50); total != 1 {
		t.Errorf("expected 1 record at or before end, got %d", total)
	}
}

func testSearch(t *testing.T, s Store) {
	defer s.Close()

	mustAppend(t, s, Record{Action: ActionDocumentUploaded, Description: "Payroll Report Q1 uploaded"})
	mustAppend(t, s, Record{Action: ActionDocumentUploaded, Description: "Holiday schedule uploaded"})
	mustAppend(t, s, Record{Action: ActionDocumentDeleted, Description: "payroll draft removed"})
	mustAppend(t, s, Record{Action: ActionDocumentDeleted, Description: "50% discount_code"})

	tests := []struct {
		search string
		want   int64
	}{
		{"payroll", 2},
		{"PAYROLL", 2},
		{"uploaded", 2},
		{"q1 up", 1},
		{"%", 1},
		{"_", 1},
		{"missing", 0},
	}
	for _, tt := range tests {
		if _, total := mustQuery(t, s, Filter{Search: tt.search}, 1, 50); total != tt.want {
			t.Errorf("search %q: total = %d, want %d", tt.search, total, tt.want)
		}
	}
}

func testPagination(t *testing.T, s Store) {
	defer s.Close()

	for i := 0; i < 25; i++ {
		mustAppend(t, s, Record{
			Action:      ActionRequestSubmitted,
			Description: fmt.Sprintf("request %02d", i),
			CreatedAt:   baseTime.Add(time.Duration(i) * time.Second),
		})
	}

	q := NewQueryService(s)
	page, err := q.List(context.Background(), QueryRequest{Page: 3, PageSize: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Pagination.Total != 25 || page.Pagination.Pages != 3 || page.Pagination.Current != 3 {
		t.Errorf("pagination = %+v, want total 25, pages 3, current 3", page.Pagination)
	}
	if len(page.Records) != 5 {
		t.Fatalf("expected 5 records on last page, got %d", len(page.Records))
	}
	// Oldest five, newest first.
	if page.Records[0].Description != "request 04" || page.Records[4].Description != "request 00" {
		t.Errorf("unexpected last page: %q .. %q", page.Records[0].Description, page.Records[4].Description)
	}

	beyond, total := mustQuery(t, s, Filter{}, 4, 10)
	if len(beyond) != 0 || total != 25 {
		t.Errorf("page past end: got %d records, total %d", len(beyond), total)
	}
}

func testDistinctActions(t *testing.T, s Store) {
	defer s.Close()

	for _, a := range []Action{ActionTaskDeleted, ActionLoginFailed, ActionTaskDeleted, "custom_event", ActionLogout} {
		mustAppend(t, s, Record{Action: a})
	}

	first, err := s.DistinctActions(context.Background())
	if err != nil {
		t.Fatalf("DistinctActions: %v", err)
	}
	want := []Action{"custom_event", ActionLoginFailed, ActionLogout, ActionTaskDeleted}
	if len(first) != len(want) {
		t.Fatalf("got %v, want %v", first, want)
	}
	for i := range want {
		if first[i] != want[i] {
			t.Errorf("position %d: got %q, want %q", i, first[i], want[i])
		}
	}

	second, err := s.DistinctActions(context.Background())
	if err != nil {
		t.Fatalf("DistinctActions: %v", err)
	}
	if fmt.Sprint(first) != fmt.Sprint(second) {
		t.Errorf("DistinctActions not stable: %v then %v", first, second)
	}
}

func testDeleteOlderThan(t *testing.T, s Store) {
	defer s.Close()

	old := baseTime.Add(-60 * 24 * time.Hour)
	recent := baseTime.Add(-10 * 24 * time.Hour)
	for _, sev := range Severities() {
		mustAppend(t, s, Record{Action: ActionUserDeleted, Severity: sev, CreatedAt: old})
		mustAppend(t, s, Record{Action: ActionUserDeleted, Severity: sev, CreatedAt: recent})
	}

	cutoff := baseTime.Add(-30 * 24 * time.Hour)
	deleted, err := s.DeleteOlderThan(context.Background(), cutoff, []Severity{SeverityCritical})
	if err != nil {
		t.Fatalf("DeleteOlderThan: %v", err)
	}
	if deleted != 3 {
		t.Errorf("deleted = %d, want 3", deleted)
	}

	recs, total := mustQuery(t, s, Filter{}, 1, 50)
	if total != 5 {
		t.Fatalf("expected 5 survivors, got %d", total)
	}
	for _, r := range recs {
		if r.CreatedAt.Before(cutoff) && r.Severity != SeverityCritical {
			t.Errorf("non-critical record older than cutoff survived: %+v", r)
		}
	}
	if _, crit := mustQuery(t, s, Filter{Severity: SeverityCritical}, 1, 50); crit != 2 {
		t.Errorf("expected both critical records kept, got %d", crit)
	}

	// Nothing left to delete.
	again, err := s.DeleteOlderThan(context.Background(), cutoff, []Severity{SeverityCritical})
	if err != nil || again != 0 {
		t.Errorf("second delete = %d, %v; want 0, nil", again, err)
	}
}

func testStats(t *testing.T, s Store) {
	defer s.Close()

	day1 := baseTime
	day2 := baseTime.Add(24 * time.Hour)
	mustAppend(t, s, Record{Action: ActionLoginFailed, Severity: SeverityMedium, CreatedAt: day1})
	mustAppend(t, s, Record{Action: ActionLoginFailed, Severity: SeverityMedium, CreatedAt: day2})
	mustAppend(t, s, Record{Action: ActionLoginSuccess, Severity: SeverityLow, CreatedAt: day2})
	mustAppend(t, s, Record{Action: ActionLoginSuccess, Severity: SeverityLow, CreatedAt: baseTime.Add(-48 * time.Hour)})

	stats, err := s.Stats(context.Background(), day1)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("Total = %d, want 3", stats.Total)
	}
	if len(stats.ByAction) != 2 || stats.ByAction[0].Key != string(ActionLoginFailed) || stats.ByAction[0].Count != 2 {
		t.Errorf("ByAction = %+v", stats.ByAction)
	}
	if len(stats.BySeverity) != 2 || stats.BySeverity[0].Key != string(SeverityMedium) {
		t.Errorf("BySeverity = %+v", stats.BySeverity)
	}
	wantDays := []CountByKey{{Key: "2026-03-10", Count: 1}, {Key: "2026-03-11", Count: 2}}
	if len(stats.ByDay) != 2 || stats.ByDay[0] != wantDays[0] || stats.ByDay[1] != wantDays[1] {
		t.Errorf("ByDay = %+v, want %+v", stats.ByDay, wantDays)
	}
}

func testEmptyStore(t *testing.T, s Store) {
	defer s.Close()

	page, err := NewQueryService(s).List(context.Background(), QueryRequest{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Records == nil || len(page.Records) != 0 {
		t.Errorf("expected empty non-nil records, got %#v", page.Records)
	}
	if page.Pagination != (Pagination{Current: 1, Pages: 0, Total: 0}) {
		t.Errorf("pagination = %+v", page.Pagination)
	}

	actions, err := s.DistinctActions(context.Background())
	if err != nil || len(actions) != 0 {
		t.Errorf("DistinctActions on empty store = %v, %v", actions, err)
	}
	n, err := s.DeleteOlderThan(context.Background(), time.Now(), nil)
	if err != nil || n != 0 {
		t.Errorf("DeleteOlderThan on empty store = %d, %v", n, err)
	}
}

func testRejectsBadPage(t *testing.T, s Store) {
	defer s.Close()

	for _, tc := range []struct{ page, size int }{{0, 10}, {1, 0}, {1, MaxPageSize + 1}, {-1, 10}, {math.MaxInt/MaxPageSize + 1, MaxPageSize}, {math.MaxInt, 2}} {
		if _, _, err := s.Query(context.Background(), Filter{}, tc.page, tc.size); !errors.Is(err, ErrInvalidFilter) {
			t.Errorf("Query(page=%d, size=%d) error = %v, want ErrInvalidFilter", tc.page, tc.size, err)
		}
	}
	if _, _, err := s.Query(context.Background(), Filter{}, 1, MaxPageSize); err != nil {
		t.Errorf("Query at MaxPageSize: %v", err)
	}
}

func testConcurrentAppend(t *testing.T, s Store) {
	defer s.Close()

	const n = 40
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r := &Record{Action: ActionTaskUpdated, Description: fmt.Sprintf("update %d", i)}
			if _, err := s.Append(context.Background(), r); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Append: %v", err)
	}

	recs, total := mustQuery(t, s, Filter{}, 1, MaxPageSize)
	if total != n {
		t.Fatalf("expected %d records, got %d", n, total)
	}
	seen := make(map[int64]bool, n)
	for i := range recs {
		if seen[recs[i].Sequence] {
			t.Errorf("duplicate sequence %d", recs[i].Sequence)
		}
		seen[recs[i].Sequence] = true
		if i > 0 && recs[i-1].before(&recs[i]) {
			t.Errorf("records %d and %d out of order", i-1, i)
		}
	}
}

func testClosed(t *testing.T, s Store) {
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if _, err := s.Append(context.Background(), &Record{Action: ActionLogout}); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Append after Close error = %v, want ErrStoreClosed", err)
	}
	if _, _, err := s.Query(context.Background(), Filter{}, 1, 10); !errors.Is(err, ErrStoreClosed) {
		t.Errorf("Query after Close error = %v, want ErrStoreClosed", err)
	}
}

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestBadgerStore_Contract(t *testing.T) {
	runStoreContract(t, func(t *testing.T) Store {
		s, err := OpenBadgerStore("")
		if err != nil {
			t.Fatalf("OpenBadgerStore: %v", err)
		}
		return s
	})
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenBadgerStore(dir)
	if err != nil {
		t.Fatalf("OpenBadgerStore: %v", err)
	}
	first := mustAppend(t, s, Record{Action: ActionSystemLogin})
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = OpenBadgerStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	second := mustAppend(t, s, Record{Action: ActionSystemLogout})
	if second.Sequence <= first.Sequence {
		t.Errorf("sequence went backwards across reopen: %d then %d", first.Sequence, second.Sequence)
	}
	if _, total := mustQuery(t, s, Filter{}, 1, 10); total != 2 {
		t.Errorf("expected 2 records after reopen, got %d", total)
	}
}
