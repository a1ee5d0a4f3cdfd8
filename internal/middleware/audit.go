// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/tomtom215/nexusaudit/internal/audit"
)

// RequestAudit writes a request_completed record after each request whose
// path does not start with one of skip. Responses with status >= 400 are
// classified medium.
func RequestAudit(logger *audit.Logger, skip ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !logger.Enabled() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range skip {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			start := time.Now()
			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			logger.HTTPRequestCompleted(r.Context(), r.Method, r.URL.Path, rec.status, time.Since(start))
		})
	}
}
