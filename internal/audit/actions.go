// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package audit

// Action identifies what happened. Records with actions outside the
// registry are still stored.
type Action string

// Authentication
const (
	ActionLoginSuccess       Action = "login_success"
	ActionLoginFailed        Action = "login_failed"
	ActionLogout             Action = "logout"
	ActionUnauthorizedAccess Action = "unauthorized_access"
)

// Users
const (
	ActionUserCreated       Action = "user_created"
	ActionUserUpdated       Action = "user_updated"
	ActionUserDeleted       Action = "user_deleted"
	ActionUserStatusChanged Action = "user_status_changed"
)

// Departments
const (
	ActionDepartmentCreated Action = "department_created"
	ActionDepartmentUpdated Action = "department_updated"
	ActionDepartmentDeleted Action = "department_deleted"
)

// Tasks
const (
	ActionTaskCreated       Action = "task_created"
	ActionTaskUpdated       Action = "task_updated"
	ActionTaskDeleted       Action = "task_deleted"
	ActionTaskStatusChanged Action = "task_status_changed"
)

// Attendance
const (
	ActionAttendanceCheckedIn  Action = "attendance_checked_in"
	ActionAttendanceCheckedOut Action = "attendance_checked_out"
	ActionAttendanceUpdated    Action = "attendance_updated"
	ActionAttendanceDeleted    Action = "attendance_deleted"
)

// Leave and expense requests
const (
	ActionRequestSubmitted     Action = "request_submitted"
	ActionRequestApproved      Action = "request_approved"
	ActionRequestRejected      Action = "request_rejected"
	ActionRequestUpdated       Action = "request_updated"
	ActionRequestStatusChanged Action = "request_status_changed"
	ActionRequestDeleted       Action = "request_deleted"
)

// Documents
const (
	ActionDocumentUploaded   Action = "document_uploaded"
	ActionDocumentDownloaded Action = "document_downloaded"
	ActionDocumentDeleted    Action = "document_deleted"
)

// System
const (
	ActionSystemLogin           Action = "system_login"
	ActionSystemLogout          Action = "system_logout"
	ActionSystemError           Action = "system_error"
	ActionSystemSettingsUpdated Action = "system_settings_updated"
)

// HTTP request logging
const (
	ActionRequestReceived  Action = "request_received"
	ActionRequestCompleted Action = "request_completed"
)

// Category groups actions by the entity they concern.
type Category string

const (
	CategoryAuth       Category = "auth"
	CategoryUser       Category = "user"
	CategoryDepartment Category = "department"
	CategoryTask       Category = "task"
	CategoryAttendance Category = "attendance"
	CategoryRequest    Category = "request"
	CategoryDocument   Category = "document"
	CategorySystem     Category = "system"
	CategoryHTTP       Category = "http"
	CategoryUnknown    Category = "unknown"
)

// registry lists every known action in display order.
var registry = []struct {
	action   Action
	category Category
}{
	{ActionLoginSuccess, CategoryAuth},
	{ActionLoginFailed, CategoryAuth},
	{ActionLogout, CategoryAuth},
	{ActionUnauthorizedAccess, CategoryAuth},

	{ActionUserCreated, CategoryUser},
	{ActionUserUpdated, CategoryUser},
	{ActionUserDeleted, CategoryUser},
	{ActionUserStatusChanged, CategoryUser},

	{ActionDepartmentCreated, CategoryDepartment},
	{ActionDepartmentUpdated, CategoryDepartment},
	{ActionDepartmentDeleted, CategoryDepartment},

	{ActionTaskCreated, CategoryTask},
	{ActionTaskUpdated, CategoryTask},
	{ActionTaskDeleted, CategoryTask},
	{ActionTaskStatusChanged, CategoryTask},

	{ActionAttendanceCheckedIn, CategoryAttendance},
	{ActionAttendanceCheckedOut, CategoryAttendance},
	{ActionAttendanceUpdated, CategoryAttendance},
	{ActionAttendanceDeleted, CategoryAttendance},

	{ActionRequestSubmitted, CategoryRequest},
	{ActionRequestApproved, CategoryRequest},
	{ActionRequestRejected, CategoryRequest},
	{ActionRequestUpdated, CategoryRequest},
	{ActionRequestStatusChanged, CategoryRequest},
	{ActionRequestDeleted, CategoryRequest},

	{ActionDocumentUploaded, CategoryDocument},
	{ActionDocumentDownloaded, CategoryDocument},
	{ActionDocumentDeleted, CategoryDocument},

	{ActionSystemLogin, CategorySystem},
	{ActionSystemLogout, CategorySystem},
	{ActionSystemError, CategorySystem},
	{ActionSystemSettingsUpdated, CategorySystem},

	{ActionRequestReceived, CategoryHTTP},
	{ActionRequestCompleted, CategoryHTTP},
}

var categories = func() map[Action]Category {
	m := make(map[Action]Category, len(registry))
	for _, e := range registry {
		m[e.action] = e.category
	}
	return m
}()

// AllActions returns the registry of known actions.
func AllActions() []Action {
	out := make([]Action, len(registry))
	for i, e := range registry {
		out[i] = e.action
	}
	return out
}

// Valid reports whether a is in the registry.
func (a Action) Valid() bool {
	_, ok := categories[a]
	return ok
}

// Category returns the action's category, or CategoryUnknown.
func (a Action) Category() Category {
	if c, ok := categories[a]; ok {
		return c
	}
	return CategoryUnknown
}
