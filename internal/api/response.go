// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/nexusaudit/internal/audit"
	"github.com/tomtom215/nexusaudit/internal/logging"
)

// Envelope status values.
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
)

// SuccessResponse is the success envelope. Results is set for list
// responses only.
type SuccessResponse struct {
	Status  string `json:"status"`
	Results *int   `json:"results,omitempty"`
	Data    any    `json:"data"`
}

// FailResponse is the error envelope.
type FailResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

func respondSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, SuccessResponse{Status: StatusSuccess, Data: data})
}

func respondList(w http.ResponseWriter, results int, data any) {
	writeJSON(w, http.StatusOK, SuccessResponse{Status: StatusSuccess, Results: &results, Data: data})
}

func respondFail(w http.ResponseWriter, r *http.Request, status int, message string) {
	writeJSON(w, status, FailResponse{
		Status:    StatusFail,
		Message:   message,
		RequestID: logging.RequestIDFromContext(r.Context()),
	})
}

// respondError maps service errors onto status codes. Storage details are
// logged, not returned.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, audit.ErrInvalidFilter), errors.Is(err, audit.ErrInvalidRetention):
		respondFail(w, r, http.StatusBadRequest, err.Error())
	default:
		logging.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		respondFail(w, r, http.StatusInternalServerError, "Internal server error")
	}
}
