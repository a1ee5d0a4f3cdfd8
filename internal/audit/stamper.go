// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package audit

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// stamper assigns ID, Sequence and CreatedAt for a store. Sequence and
// CreatedAt are handed out under one lock, so of two appends the later one
// never gets an earlier (CreatedAt, Sequence) key.
type stamper struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
	next func() (int64, error)
}

func newStamper(next func() (int64, error)) *stamper {
	return &stamper{now: time.Now, next: next}
}

// counter returns a next func starting after start.
func counter(start int64) func() (int64, error) {
	n := start
	return func() (int64, error) {
		n++
		return n, nil
	}
}

// stamp fills the store-owned fields of r. A CreatedAt set by the caller is
// kept (normalised to UTC microseconds) so imports and tests can backdate
// records.
func (s *stamper) stamp(r *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq, err := s.next()
	if err != nil {
		return err
	}

	if r.CreatedAt.IsZero() {
		now := s.now().UTC().Truncate(time.Microsecond)
		if now.Before(s.last) {
			now = s.last
		}
		s.last = now
		r.CreatedAt = now
	} else {
		r.CreatedAt = r.CreatedAt.UTC().Truncate(time.Microsecond)
	}

	r.ID = uuid.NewString()
	r.Sequence = seq
	if r.Severity == "" {
		r.Severity = SeverityLow
	}
	if r.ActorRole == "" && r.ActorID == "" {
		r.ActorRole = RoleSystem
	}
	return nil
}
