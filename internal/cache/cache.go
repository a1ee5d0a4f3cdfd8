// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package cache

import (
	"crypto/sha256"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// DefaultMaxEntries bounds a cache created with New.
const DefaultMaxEntries = 1024

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// Cache maps string keys to values that expire after a fixed TTL.
// Expired entries are removed lazily on Get and when Set needs room.
type Cache[V any] struct {
	mu         sync.RWMutex
	entries    map[string]entry[V]
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
	stats      Stats
}

// Stats counts cache activity since creation or the last Clear.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// New creates a cache whose entries live for ttl.
func New[V any](ttl time.Duration) *Cache[V] {
	return NewWithLimit[V](ttl, DefaultMaxEntries)
}

// NewWithLimit creates a cache holding at most maxEntries live entries.
func NewWithLimit[V any](ttl time.Duration, maxEntries int) *Cache[V] {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache[V]{
		entries:    make(map[string]entry[V]),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// Get returns the value for key if present and unexpired.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if ok && c.now().Before(e.expiresAt) {
		c.mu.Lock()
		c.stats.Hits++
		c.mu.Unlock()
		return e.value, true
	}

	c.mu.Lock()
	if ok {
		// Re-check: a concurrent Set may have refreshed it.
		if cur, still := c.entries[key]; still && !c.now().Before(cur.expiresAt) {
			delete(c.entries, key)
			c.stats.Evictions++
		}
	}
	c.stats.Misses++
	c.mu.Unlock()

	var zero V
	return zero, false
}

// Set stores value under key for the cache TTL.
func (c *Cache[V]) Set(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxEntries {
		c.evictLocked()
	}
	c.entries[key] = entry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
}

// evictLocked drops expired entries, or the entry closest to expiry when
// none have expired.
func (c *Cache[V]) evictLocked() {
	now := c.now()
	var (
		oldestKey string
		oldestAt  time.Time
	)
	removed := 0
	for k, e := range c.entries {
		if !now.Before(e.expiresAt) {
			delete(c.entries, k)
			removed++
			continue
		}
		if oldestKey == "" || e.expiresAt.Before(oldestAt) {
			oldestKey, oldestAt = k, e.expiresAt
		}
	}
	if removed == 0 && oldestKey != "" {
		delete(c.entries, oldestKey)
		removed = 1
	}
	c.stats.Evictions += int64(removed)
}

// Delete removes key.
func (c *Cache[V]) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes every entry and resets the statistics.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry[V])
	c.stats = Stats{}
	c.mu.Unlock()
}

// Len returns the number of stored entries, including expired ones not
// yet removed.
func (c *Cache[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// GetStats returns a snapshot of the counters.
func (c *Cache[V]) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stats
}

// HitRate returns hits as a percentage of lookups.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// GenerateKey builds a stable key from a method name and its parameters.
func GenerateKey(method string, params any) string {
	if params == nil {
		return method
	}
	data, err := json.Marshal(params)
	if err != nil {
		return fmt.Sprintf("%s:%v", method, params)
	}
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%x", method, sum[:8])
}
