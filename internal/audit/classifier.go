// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package audit

import (
	"strconv"

	"github.com/goccy/go-json"
)

// ClassifyInput carries the context the classifier may consult.
type ClassifyInput struct {
	ActorID  string
	Metadata Metadata
}

// severityByAction is the static classification table. Actions not listed
// are low. Nothing is critical by default.
var severityByAction = map[Action]Severity{
	ActionLoginSuccess:         SeverityLow,
	ActionLogout:               SeverityLow,
	ActionUserUpdated:          SeverityLow,
	ActionDepartmentUpdated:    SeverityLow,
	ActionTaskCreated:          SeverityLow,
	ActionTaskUpdated:          SeverityLow,
	ActionTaskStatusChanged:    SeverityLow,
	ActionAttendanceCheckedIn:  SeverityLow,
	ActionAttendanceCheckedOut: SeverityLow,
	ActionAttendanceUpdated:    SeverityLow,
	ActionRequestSubmitted:     SeverityLow,
	ActionRequestStatusChanged: SeverityLow,
	ActionRequestUpdated:       SeverityLow,
	ActionDocumentUploaded:     SeverityLow,
	ActionDocumentDownloaded:   SeverityLow,
	ActionSystemLogin:          SeverityLow,
	ActionSystemLogout:         SeverityLow,
	ActionRequestReceived:      SeverityLow,

	ActionLoginFailed:           SeverityMedium,
	ActionUserCreated:           SeverityMedium,
	ActionUserStatusChanged:     SeverityMedium,
	ActionDepartmentCreated:     SeverityMedium,
	ActionTaskDeleted:           SeverityMedium,
	ActionAttendanceDeleted:     SeverityMedium,
	ActionRequestDeleted:        SeverityMedium,
	ActionRequestApproved:       SeverityMedium,
	ActionRequestRejected:       SeverityMedium,
	ActionDocumentDeleted:       SeverityMedium,
	ActionSystemSettingsUpdated: SeverityMedium,

	ActionUserDeleted:        SeverityHigh,
	ActionDepartmentDeleted:  SeverityHigh,
	ActionSystemError:        SeverityHigh,
	ActionUnauthorizedAccess: SeverityHigh,
}

// Classify returns the description to store and the severity for action.
// It is pure: the same inputs always give the same outputs.
//
// An empty description becomes "<action> by <actor>", with actor "system"
// when in.ActorID is empty. request_completed is medium for HTTP status
// codes of 400 and above.
func Classify(action Action, description string, in ClassifyInput) (string, Severity) {
	if description == "" {
		actor := in.ActorID
		if actor == "" {
			actor = string(RoleSystem)
		}
		description = string(action) + " by " + actor
	}

	if action == ActionRequestCompleted {
		if code, ok := statusCode(in.Metadata); ok && code >= 400 {
			return description, SeverityMedium
		}
		return description, SeverityLow
	}

	if sev, ok := severityByAction[action]; ok {
		return description, sev
	}
	return description, SeverityLow
}

// statusCode reads metadata["statusCode"] in any of the numeric shapes it
// can take after a JSON round trip.
func statusCode(m Metadata) (int64, bool) {
	v, ok := m["statusCode"]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint64:
		return int64(n), true //nolint:gosec // HTTP status codes are small
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}
