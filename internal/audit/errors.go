// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package audit

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidFilter is returned for malformed query parameters: bad
	// page or page size, inverted time range, or an unknown severity.
	ErrInvalidFilter = errors.New("invalid filter")

	// ErrInvalidRetention is returned when a retention window is below one day.
	ErrInvalidRetention = errors.New("invalid retention")

	// ErrStorage wraps any failure reported by the storage backend.
	ErrStorage = errors.New("storage error")

	// ErrStoreClosed is returned by stores after Close.
	ErrStoreClosed = errors.New("store closed")
)

// storageErr wraps err as ErrStorage, keeping the original error in the chain.
func storageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) || errors.Is(err, ErrInvalidFilter) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}

func invalidFilter(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidFilter, fmt.Sprintf(format, args...))
}
