// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/nexusaudit/internal/logging"
)

// Entity names the kind of HR object an event concerns.
type Entity string

const (
	EntityUser       Entity = "user"
	EntityDepartment Entity = "department"
	EntityTask       Entity = "task"
	EntityAttendance Entity = "attendance"
	EntityRequest    Entity = "request"
	EntityDocument   Entity = "document"
)

type verb int

const (
	verbCreated verb = iota
	verbUpdated
	verbDeleted
	verbStatusChanged
)

func (v verb) String() string {
	switch v {
	case verbCreated:
		return "created"
	case verbUpdated:
		return "updated"
	case verbDeleted:
		return "deleted"
	default:
		return "status_changed"
	}
}

// entityActions maps entity-generic helper calls onto registry actions.
// Combinations absent here have no registered action and are not recorded.
var entityActions = map[Entity]map[verb]Action{
	EntityUser: {
		verbCreated:       ActionUserCreated,
		verbUpdated:       ActionUserUpdated,
		verbDeleted:       ActionUserDeleted,
		verbStatusChanged: ActionUserStatusChanged,
	},
	EntityDepartment: {
		verbCreated:       ActionDepartmentCreated,
		verbUpdated:       ActionDepartmentUpdated,
		verbDeleted:       ActionDepartmentDeleted,
		verbStatusChanged: ActionDepartmentUpdated,
	},
	EntityTask: {
		verbCreated:       ActionTaskCreated,
		verbUpdated:       ActionTaskUpdated,
		verbDeleted:       ActionTaskDeleted,
		verbStatusChanged: ActionTaskStatusChanged,
	},
	EntityAttendance: {
		verbCreated:       ActionAttendanceCheckedIn,
		verbUpdated:       ActionAttendanceUpdated,
		verbDeleted:       ActionAttendanceDeleted,
		verbStatusChanged: ActionAttendanceUpdated,
	},
	EntityRequest: {
		verbCreated:       ActionRequestSubmitted,
		verbUpdated:       ActionRequestUpdated,
		verbDeleted:       ActionRequestDeleted,
		verbStatusChanged: ActionRequestStatusChanged,
	},
	EntityDocument: {
		verbCreated: ActionDocumentUploaded,
		verbDeleted: ActionDocumentDeleted,
	},
}

// action returns the registry action for v on e.
func (e Entity) action(v verb) (Action, bool) {
	a, ok := entityActions[e][v]
	return a, ok
}

// recordEntity writes e with the registry action for ref and v. Unmapped
// combinations are logged and dropped.
func (l *Logger) recordEntity(ctx context.Context, ref Ref, v verb, e Entry) (string, bool) {
	if e.Action == "" {
		action, ok := ref.Entity.action(v)
		if !ok {
			logging.Ctx(ctx).Warn().
				Str("entity", string(ref.Entity)).
				Str("event", v.String()).
				Msg("No audit action registered for entity event")
			return "", false
		}
		e.Action = action
	}
	e.TargetID = ref.OwnerID
	e.TargetDepartment = ref.Department
	return l.Record(ctx, e)
}

// Ref identifies the affected object in entity-generic helpers.
type Ref struct {
	Entity Entity
	ID     string
	// Name is a human label used in descriptions.
	Name string
	// OwnerID is the user the object concerns (the employee of an
	// attendance record, the assignee of a task). It becomes the record's
	// TargetID so that user is notified.
	OwnerID    string
	Department string
}

func (r Ref) label() string {
	if r.Name != "" {
		return r.Name
	}
	return r.ID
}

func (r Ref) metadata(extra Metadata) Metadata {
	m := Metadata{string(r.Entity) + "Id": r.ID}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

// actorAs returns the context actor (for IP and User-Agent) with its
// identity replaced.
func actorAs(ctx context.Context, id string, role Role) *ActorContext {
	a := ActorContext{}
	if ctxActor := ActorFromContext(ctx); ctxActor != nil {
		a = *ctxActor
	}
	a.ID = id
	a.Role = role
	return &a
}

// describeActor returns the acting user id, or "system".
func describeActor(ctx context.Context) string {
	if a := ActorFromContext(ctx); a != nil && a.ID != "" {
		return a.ID
	}
	return string(RoleSystem)
}

// LoginSuccess records a successful login. The context usually carries no
// authenticated actor yet, so the user is given explicitly.
func (l *Logger) LoginSuccess(ctx context.Context, userID string, role Role, email string) (string, bool) {
	return l.Record(ctx, Entry{
		Action:      ActionLoginSuccess,
		Description: fmt.Sprintf("User %s logged in successfully", email),
		Actor:       actorAs(ctx, userID, role),
		Metadata:    Metadata{"userId": userID, "userEmail": email},
	})
}

// LoginFailed records a failed login attempt. The actor is always the
// system since the caller is not authenticated.
func (l *Logger) LoginFailed(ctx context.Context, email, reason string) (string, bool) {
	return l.Record(ctx, Entry{
		Action:      ActionLoginFailed,
		Description: fmt.Sprintf("Failed login attempt for %s: %s", email, reason),
		Actor:       actorAs(ctx, "", RoleSystem),
		Metadata:    Metadata{"attemptedEmail": email, "reason": reason},
	})
}

// Logout records the context actor logging out.
func (l *Logger) Logout(ctx context.Context, email string) (string, bool) {
	return l.Record(ctx, Entry{
		Action:      ActionLogout,
		Description: fmt.Sprintf("User %s logged out", email),
		Metadata:    Metadata{"userEmail": email},
	})
}

// UnauthorizedAccess records a denied request for resource.
func (l *Logger) UnauthorizedAccess(ctx context.Context, resource, reason string) (string, bool) {
	return l.Record(ctx, Entry{
		Action:      ActionUnauthorizedAccess,
		Description: fmt.Sprintf("Unauthorized access to %s by %s: %s", resource, describeActor(ctx), reason),
		Metadata:    Metadata{"resource": resource, "reason": reason},
	})
}

// EntityCreated records creation of ref. Documents are recorded as
// document_uploaded and requests as request_submitted.
func (l *Logger) EntityCreated(ctx context.Context, ref Ref, details Metadata) (string, bool) {
	return l.recordEntity(ctx, ref, verbCreated, Entry{
		Description: fmt.Sprintf("%s %s created by %s", capitalize(ref.Entity), ref.label(), describeActor(ctx)),
		Metadata:    ref.metadata(details),
	})
}

// EntityUpdated records changes to ref. changes is stored under
// metadata.changes and summarised in the description.
func (l *Logger) EntityUpdated(ctx context.Context, ref Ref, changes Metadata) (string, bool) {
	summary, err := json.Marshal(changes)
	if err != nil {
		summary = []byte("{}")
	}
	return l.recordEntity(ctx, ref, verbUpdated, Entry{
		Description: fmt.Sprintf("%s %s updated by %s - Changes: %s",
			capitalize(ref.Entity), ref.label(), describeActor(ctx), summary),
		Metadata: ref.metadata(Metadata{"changes": changes}),
	})
}

// EntityDeleted records deletion of ref.
func (l *Logger) EntityDeleted(ctx context.Context, ref Ref) (string, bool) {
	return l.recordEntity(ctx, ref, verbDeleted, Entry{
		Description: fmt.Sprintf("%s %s deleted by %s", capitalize(ref.Entity), ref.label(), describeActor(ctx)),
		Metadata:    ref.metadata(nil),
	})
}

// StatusChanged records a status transition of ref. Approved and rejected
// requests are recorded as request_approved and request_rejected.
// Departments and attendance have no status action and record an update.
func (l *Logger) StatusChanged(ctx context.Context, ref Ref, from, to string) (string, bool) {
	var action Action
	if ref.Entity == EntityRequest {
		switch to {
		case "approved":
			action = ActionRequestApproved
		case "rejected":
			action = ActionRequestRejected
		}
	}
	return l.recordEntity(ctx, ref, verbStatusChanged, Entry{
		Action: action,
		Description: fmt.Sprintf("%s %s status changed from %s to %s by %s",
			capitalize(ref.Entity), ref.label(), from, to, describeActor(ctx)),
		Metadata: ref.metadata(Metadata{"oldStatus": from, "newStatus": to}),
	})
}

// AttendanceCheckedIn records the context actor checking in.
func (l *Logger) AttendanceCheckedIn(ctx context.Context, attendanceID string, at time.Time) (string, bool) {
	return l.Record(ctx, Entry{
		Action:      ActionAttendanceCheckedIn,
		Description: fmt.Sprintf("User checked in at %s", at.UTC().Format(time.RFC3339)),
		Metadata:    Metadata{"attendanceId": attendanceID, "checkInTime": at.UTC().Format(time.RFC3339)},
	})
}

// AttendanceCheckedOut records the context actor checking out.
func (l *Logger) AttendanceCheckedOut(ctx context.Context, attendanceID string, at time.Time, hoursWorked float64) (string, bool) {
	return l.Record(ctx, Entry{
		Action: ActionAttendanceCheckedOut,
		Description: fmt.Sprintf("User checked out at %s, worked %.2f hours",
			at.UTC().Format(time.RFC3339), hoursWorked),
		Metadata: Metadata{
			"attendanceId": attendanceID,
			"checkOutTime": at.UTC().Format(time.RFC3339),
			"hoursWorked":  hoursWorked,
		},
	})
}

// RequestSubmitted records a new leave, expense or other request.
// approverID, when known, is notified.
func (l *Logger) RequestSubmitted(ctx context.Context, requestID, requestType, approverID string) (string, bool) {
	return l.Record(ctx, Entry{
		Action:      ActionRequestSubmitted,
		Description: fmt.Sprintf("%s request submitted by %s", requestType, describeActor(ctx)),
		TargetID:    approverID,
		Metadata:    Metadata{"requestId": requestID, "requestType": requestType},
	})
}

// DocumentDownloaded records a document download.
func (l *Logger) DocumentDownloaded(ctx context.Context, documentID, title string) (string, bool) {
	return l.Record(ctx, Entry{
		Action:      ActionDocumentDownloaded,
		Description: fmt.Sprintf("Document %q downloaded by %s", title, describeActor(ctx)),
		Metadata:    Metadata{"documentId": documentID, "title": title},
	})
}

// SystemError records an internal failure in component.
func (l *Logger) SystemError(ctx context.Context, component string, err error) (string, bool) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return l.Record(ctx, Entry{
		Action:      ActionSystemError,
		Description: fmt.Sprintf("System error in %s: %s", component, msg),
		Metadata:    Metadata{"component": component, "error": msg},
	})
}

// SettingsUpdated records a change to system settings.
func (l *Logger) SettingsUpdated(ctx context.Context, changes Metadata) (string, bool) {
	return l.Record(ctx, Entry{
		Action:      ActionSystemSettingsUpdated,
		Description: fmt.Sprintf("System settings updated by %s", describeActor(ctx)),
		Metadata:    Metadata{"changes": changes},
	})
}

// HTTPRequestCompleted records one served API request. Responses with a
// status of 400 or above are classified medium.
func (l *Logger) HTTPRequestCompleted(ctx context.Context, method, path string, status int, duration time.Duration) (string, bool) {
	return l.Record(ctx, Entry{
		Action:      ActionRequestCompleted,
		Description: fmt.Sprintf("%s %s - %d (%dms)", method, path, status, duration.Milliseconds()),
		Metadata: Metadata{
			"method":     method,
			"url":        path,
			"statusCode": status,
			"duration":   duration.Milliseconds(),
		},
	})
}

func capitalize(e Entity) string {
	s := string(e)
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}
