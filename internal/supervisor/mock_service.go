// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package supervisor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// errSimulated is returned by MockService while it has failures left.
var errSimulated = errors.New("simulated failure")

// MockService is a controllable suture.Service for tree tests.
type MockService struct {
	name      string
	starts    atomic.Int32
	stops     atomic.Int32
	remaining atomic.Int32
	started   chan struct{}

	mu  sync.Mutex
	err error
}

// NewMockService creates a service that runs until canceled.
func NewMockService(name string) *MockService {
	return &MockService{name: name, started: make(chan struct{}, 16)}
}

// Serve implements suture.Service.
func (m *MockService) Serve(ctx context.Context) error {
	m.starts.Add(1)
	defer m.stops.Add(1)
	select {
	case m.started <- struct{}{}:
	default:
	}

	if m.remaining.Load() > 0 {
		m.remaining.Add(-1)
		return errSimulated
	}

	m.mu.Lock()
	err := m.err
	m.mu.Unlock()
	if err != nil {
		return err
	}

	<-ctx.Done()
	return ctx.Err()
}

// SetError makes every Serve call return err immediately.
func (m *MockService) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// FailTimes makes the next n Serve calls fail.
func (m *MockService) FailTimes(n int32) {
	m.remaining.Store(n)
}

// Started receives once per Serve call, up to the channel buffer.
func (m *MockService) Started() <-chan struct{} {
	return m.started
}

// StartCount returns how many times Serve was called.
func (m *MockService) StartCount() int32 {
	return m.starts.Load()
}

// StopCount returns how many times Serve returned.
func (m *MockService) StopCount() int32 {
	return m.stops.Load()
}

func (m *MockService) String() string {
	return m.name
}
