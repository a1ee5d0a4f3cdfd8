// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package audit

import (
	"context"
	"encoding/binary"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/nexusaudit/internal/logging"
)

var (
	recordPrefix = []byte("rec:")
	sequenceKey  = []byte("meta:seq")
)

// recordKeyLen is prefix + unix nanos + sequence.
const recordKeyLen = 4 + 8 + 8

// BadgerStore implements Store on an embedded BadgerDB. Keys sort by
// (CreatedAt, Sequence), so newest-first reads are a reverse scan.
type BadgerStore struct {
	db     *badger.DB
	seq    *badger.Sequence
	stamp  *stamper
	closed atomic.Bool
}

// OpenBadgerStore opens (or creates) a BadgerDB at path. An empty path
// opens an in-memory database.
func OpenBadgerStore(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	s, err := NewBadgerStore(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	logging.Info().Str("path", path).Bool("in_memory", path == "").Msg("Badger audit store opened")
	return s, nil
}

// NewBadgerStore wraps an open database. The store owns db.
func NewBadgerStore(db *badger.DB) (*BadgerStore, error) {
	seq, err := db.GetSequence(sequenceKey, 100)
	if err != nil {
		return nil, storageErr("lease sequence", err)
	}

	s := &BadgerStore{db: db, seq: seq}
	s.stamp = newStamper(func() (int64, error) {
		n, err := seq.Next()
		if err != nil {
			return 0, err
		}
		return int64(n) + 1, nil //nolint:gosec // sequence stays far below MaxInt64
	})
	return s, nil
}

// recordKey encodes the ordering key of r.
func recordKey(r *Record) []byte {
	key := make([]byte, 0, recordKeyLen)
	key = append(key, recordPrefix...)
	key = binary.BigEndian.AppendUint64(key, uint64(r.CreatedAt.UnixNano())) //nolint:gosec // post-1970 timestamps
	key = binary.BigEndian.AppendUint64(key, uint64(r.Sequence))             //nolint:gosec // positive sequence
	return key
}

// timeKey is the smallest key at or after t.
func timeKey(t time.Time) []byte {
	key := make([]byte, 0, recordKeyLen)
	key = append(key, recordPrefix...)
	return binary.BigEndian.AppendUint64(key, uint64(t.UnixNano())) //nolint:gosec // post-1970 timestamps
}

// Append writes r as JSON under its ordering key.
func (s *BadgerStore) Append(_ context.Context, r *Record) (string, error) {
	if r == nil {
		return "", invalidFilter("record cannot be nil")
	}
	if s.closed.Load() {
		return "", ErrStoreClosed
	}
	if err := s.stamp.stamp(r); err != nil {
		return "", storageErr("assign sequence", err)
	}

	value, err := json.Marshal(r)
	if err != nil {
		return "", storageErr("encode record", err)
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(r), value)
	}); err != nil {
		return "", storageErr("write record", err)
	}
	return r.ID, nil
}

// Query scans newest-first, starting at the End bound when one is set.
func (s *BadgerStore) Query(ctx context.Context, f Filter, page, pageSize int) ([]Record, int64, error) {
	if err := checkPage(page, pageSize); err != nil {
		return nil, 0, err
	}
	if s.closed.Load() {
		return nil, 0, ErrStoreClosed
	}

	skip := (page - 1) * pageSize
	records := make([]Record, 0, pageSize)
	var total int64

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = recordPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(slices.Clone(recordPrefix), 0xFF)
		if f.End != nil {
			seek = timeKey(f.End.Add(time.Nanosecond))
		}

		for it.Seek(seek); it.ValidForPrefix(recordPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var rec Record
			if err := it.Item().Value(func(v []byte) error {
				return json.Unmarshal(v, &rec)
			}); err != nil {
				return err
			}

			if f.Start != nil && rec.CreatedAt.Before(*f.Start) {
				break
			}
			if !matches(&rec, &f) {
				continue
			}

			total++
			if total > int64(skip) && len(records) < pageSize {
				records = append(records, rec)
			}
		}
		return nil
	})
	if err != nil {
		return nil, 0, storageErr("scan records", err)
	}
	return records, total, nil
}

// DistinctActions scans all records and returns the sorted action set.
func (s *BadgerStore) DistinctActions(ctx context.Context) ([]Action, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	seen := make(map[Action]struct{})
	err := s.scanForward(ctx, nil, func(_ []byte, rec *Record) bool {
		seen[rec.Action] = struct{}{}
		return true
	})
	if err != nil {
		return nil, storageErr("scan actions", err)
	}
	return sortedActions(seen), nil
}

// DeleteOlderThan collects unprotected keys below cutoff, then removes them
// through a write batch.
func (s *BadgerStore) DeleteOlderThan(ctx context.Context, cutoff time.Time, protected []Severity) (int64, error) {
	if s.closed.Load() {
		return 0, ErrStoreClosed
	}

	var doomed [][]byte
	err := s.scanForward(ctx, nil, func(key []byte, rec *Record) bool {
		if !rec.CreatedAt.Before(cutoff) {
			return false
		}
		if !slices.Contains(protected, rec.Severity) {
			doomed = append(doomed, key)
		}
		return true
	})
	if err != nil {
		return 0, storageErr("scan expired records", err)
	}
	if len(doomed) == 0 {
		return 0, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range doomed {
		if err := wb.Delete(key); err != nil {
			return 0, storageErr("batch delete", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, storageErr("flush delete batch", err)
	}
	return int64(len(doomed)), nil
}

// Stats scans records created at or after since.
func (s *BadgerStore) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}

	b := newStatsBuilder(since.UTC())
	err := s.scanForward(ctx, timeKey(since), func(_ []byte, rec *Record) bool {
		b.add(rec)
		return true
	})
	if err != nil {
		return nil, storageErr("scan stats", err)
	}
	return b.build(), nil
}

// Close releases the sequence lease and closes the database.
func (s *BadgerStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := s.seq.Release(); err != nil {
		logging.Warn().Err(err).Msg("Failed to release audit sequence lease")
	}
	return s.db.Close()
}

// scanForward visits records oldest-first from start (or the beginning)
// until fn returns false.
func (s *BadgerStore) scanForward(ctx context.Context, start []byte, fn func(key []byte, rec *Record) bool) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		if start == nil {
			start = recordPrefix
		}
		for it.Seek(start); it.ValidForPrefix(recordPrefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			item := it.Item()
			var rec Record
			if err := item.Value(func(v []byte) error {
				return json.Unmarshal(v, &rec)
			}); err != nil {
				return err
			}
			if !fn(item.KeyCopy(nil), &rec) {
				return nil
			}
		}
		return nil
	})
}
