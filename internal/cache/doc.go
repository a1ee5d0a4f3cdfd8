// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

// Package cache provides a small thread-safe TTL cache.
//
// The audit query service uses it to hold aggregate results (action lists
// and dashboard statistics) for a short time, so a dashboard polling every
// few seconds does not rescan the audit table on each request.
//
//	c := cache.New[*audit.Stats](15 * time.Second)
//	if s, ok := c.Get(key); ok {
//	    return s, nil
//	}
//	s, err := compute()
//	c.Set(key, s)
package cache
