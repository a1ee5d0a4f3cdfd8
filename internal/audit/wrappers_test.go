// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func adminCtx() context.Context {
	return WithActor(context.Background(), ActorContext{ID: "admin-1", Role: RoleAdmin, IPAddress: "10.1.1.1"})
}

func TestWrappers_ActionsAndSeverity(t *testing.T) {
	at := time.Date(2026, 4, 2, 8, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		call       func(l *Logger) (string, bool)
		wantAction Action
		wantSev    Severity
		wantTarget string
	}{
		{
			name:       "login success",
			call:       func(l *Logger) (string, bool) { return l.LoginSuccess(context.Background(), "u1", RoleEmployee, "u1@x.io") },
			wantAction: ActionLoginSuccess, wantSev: SeverityLow,
		},
		{
			name:       "logout",
			call:       func(l *Logger) (string, bool) { return l.Logout(adminCtx(), "admin@x.io") },
			wantAction: ActionLogout, wantSev: SeverityLow,
		},
		{
			name:       "unauthorized",
			call:       func(l *Logger) (string, bool) { return l.UnauthorizedAccess(adminCtx(), "/api/logs", "role employee") },
			wantAction: ActionUnauthorizedAccess, wantSev: SeverityHigh,
		},
		{
			name: "user created",
			call: func(l *Logger) (string, bool) {
				return l.EntityCreated(adminCtx(), Ref{Entity: EntityUser, ID: "u9", Name: "Jane", OwnerID: "u9"}, nil)
			},
			wantAction: ActionUserCreated, wantSev: SeverityMedium, wantTarget: "u9",
		},
		{
			name: "department deleted",
			call: func(l *Logger) (string, bool) {
				return l.EntityDeleted(adminCtx(), Ref{Entity: EntityDepartment, ID: "d1", Name: "Finance"})
			},
			wantAction: ActionDepartmentDeleted, wantSev: SeverityHigh,
		},
		{
			name: "task updated",
			call: func(l *Logger) (string, bool) {
				return l.EntityUpdated(adminCtx(), Ref{Entity: EntityTask, ID: "t1", OwnerID: "emp-2"}, Metadata{"priority": "high"})
			},
			wantAction: ActionTaskUpdated, wantSev: SeverityLow, wantTarget: "emp-2",
		},
		{
			name: "request approved",
			call: func(l *Logger) (string, bool) {
				return l.StatusChanged(adminCtx(), Ref{Entity: EntityRequest, ID: "r1", OwnerID: "emp-4"}, "pending", "approved")
			},
			wantAction: ActionRequestApproved, wantSev: SeverityMedium, wantTarget: "emp-4",
		},
		{
			name: "request rejected",
			call: func(l *Logger) (string, bool) {
				return l.StatusChanged(adminCtx(), Ref{Entity: EntityRequest, ID: "r1", OwnerID: "emp-4"}, "pending", "rejected")
			},
			wantAction: ActionRequestRejected, wantSev: SeverityMedium, wantTarget: "emp-4",
		},
		{
			name: "task status changed",
			call: func(l *Logger) (string, bool) {
				return l.StatusChanged(adminCtx(), Ref{Entity: EntityTask, ID: "t1"}, "open", "done")
			},
			wantAction: ActionTaskStatusChanged, wantSev: SeverityLow,
		},
		{
			name:       "check in",
			call:       func(l *Logger) (string, bool) { return l.AttendanceCheckedIn(adminCtx(), "a1", at) },
			wantAction: ActionAttendanceCheckedIn, wantSev: SeverityLow,
		},
		{
			name:       "check out",
			call:       func(l *Logger) (string, bool) { return l.AttendanceCheckedOut(adminCtx(), "a1", at, 7.5) },
			wantAction: ActionAttendanceCheckedOut, wantSev: SeverityLow,
		},
		{
			name:       "request submitted",
			call:       func(l *Logger) (string, bool) { return l.RequestSubmitted(adminCtx(), "r2", "Leave", "mgr-1") },
			wantAction: ActionRequestSubmitted, wantSev: SeverityLow, wantTarget: "mgr-1",
		},
		{
			name:       "document downloaded",
			call:       func(l *Logger) (string, bool) { return l.DocumentDownloaded(adminCtx(), "doc1", "Handbook") },
			wantAction: ActionDocumentDownloaded, wantSev: SeverityLow,
		},
		{
			name:       "system error",
			call:       func(l *Logger) (string, bool) { return l.SystemError(context.Background(), "payroll", errors.New("boom")) },
			wantAction: ActionSystemError, wantSev: SeverityHigh,
		},
		{
			name:       "settings updated",
			call:       func(l *Logger) (string, bool) { return l.SettingsUpdated(adminCtx(), Metadata{"theme": "dark"}) },
			wantAction: ActionSystemSettingsUpdated, wantSev: SeverityMedium,
		},
		{
			name: "http request failed",
			call: func(l *Logger) (string, bool) {
				return l.HTTPRequestCompleted(context.Background(), "GET", "/api/logs", 403, 12*time.Millisecond)
			},
			wantAction: ActionRequestCompleted, wantSev: SeverityMedium,
		},
		{
			name: "http request ok",
			call: func(l *Logger) (string, bool) {
				return l.HTTPRequestCompleted(context.Background(), "GET", "/api/logs", 200, time.Millisecond)
			},
			wantAction: ActionRequestCompleted, wantSev: SeverityLow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, store := newTestLogger(t)
			if _, ok := tt.call(logger); !ok {
				t.Fatal("record not written")
			}
			r := onlyRecord(t, store)
			if r.Action != tt.wantAction {
				t.Errorf("action = %s, want %s", r.Action, tt.wantAction)
			}
			if r.Severity != tt.wantSev {
				t.Errorf("severity = %s, want %s", r.Severity, tt.wantSev)
			}
			if r.TargetID != tt.wantTarget {
				t.Errorf("target = %q, want %q", r.TargetID, tt.wantTarget)
			}
			if r.Description == "" {
				t.Error("empty description")
			}
		})
	}
}

func TestWrappers_EntityActionsRegistered(t *testing.T) {
	entities := []Entity{EntityUser, EntityDepartment, EntityTask, EntityAttendance, EntityRequest, EntityDocument}
	helpers := map[string]func(l *Logger, ref Ref) (string, bool){
		"created": func(l *Logger, ref Ref) (string, bool) { return l.EntityCreated(adminCtx(), ref, nil) },
		"updated": func(l *Logger, ref Ref) (string, bool) {
			return l.EntityUpdated(adminCtx(), ref, Metadata{"field": "value"})
		},
		"deleted": func(l *Logger, ref Ref) (string, bool) { return l.EntityDeleted(adminCtx(), ref) },
		"status changed": func(l *Logger, ref Ref) (string, bool) {
			return l.StatusChanged(adminCtx(), ref, "active", "inactive")
		},
	}
	unsupported := map[string]bool{
		"document/updated":        true,
		"document/status changed": true,
	}

	for _, entity := range entities {
		for name, call := range helpers {
			key := string(entity) + "/" + name
			t.Run(key, func(t *testing.T) {
				logger, store := newTestLogger(t)
				_, ok := call(logger, Ref{Entity: entity, ID: "x1", OwnerID: "emp-1"})

				if unsupported[key] {
					if ok || store.Len() != 0 {
						t.Errorf("ok = %v, stored = %d; want nothing recorded", ok, store.Len())
					}
					return
				}
				if !ok {
					t.Fatal("record not written")
				}
				r := onlyRecord(t, store)
				if !r.Action.Valid() {
					t.Errorf("action %q is not registered", r.Action)
				}
				if r.Action.Category() != Category(entity) {
					t.Errorf("category = %s, want %s", r.Action.Category(), entity)
				}
			})
		}
	}
}

func TestWrappers_EntityActionMapping(t *testing.T) {
	tests := []struct {
		name string
		call func(l *Logger) (string, bool)
		want Action
	}{
		{"document created", func(l *Logger) (string, bool) {
			return l.EntityCreated(adminCtx(), Ref{Entity: EntityDocument, ID: "doc-1"}, nil)
		}, ActionDocumentUploaded},
		{"request created", func(l *Logger) (string, bool) {
			return l.EntityCreated(adminCtx(), Ref{Entity: EntityRequest, ID: "r1"}, nil)
		}, ActionRequestSubmitted},
		{"attendance created", func(l *Logger) (string, bool) {
			return l.EntityCreated(adminCtx(), Ref{Entity: EntityAttendance, ID: "a1"}, nil)
		}, ActionAttendanceCheckedIn},
		{"department status", func(l *Logger) (string, bool) {
			return l.StatusChanged(adminCtx(), Ref{Entity: EntityDepartment, ID: "d1"}, "active", "archived")
		}, ActionDepartmentUpdated},
		{"request pending", func(l *Logger) (string, bool) {
			return l.StatusChanged(adminCtx(), Ref{Entity: EntityRequest, ID: "r1"}, "draft", "pending")
		}, ActionRequestStatusChanged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, store := newTestLogger(t)
			if _, ok := tt.call(logger); !ok {
				t.Fatal("record not written")
			}
			if r := onlyRecord(t, store); r.Action != tt.want {
				t.Errorf("action = %s, want %s", r.Action, tt.want)
			}
		})
	}
}

func TestWrappers_UnknownEntityNotRecorded(t *testing.T) {
	logger, store := newTestLogger(t)
	if _, ok := logger.EntityCreated(adminCtx(), Ref{Entity: "payslip", ID: "p1"}, nil); ok {
		t.Error("unknown entity recorded")
	}
	if store.Len() != 0 {
		t.Errorf("stored = %d, want 0", store.Len())
	}
}

func TestWrappers_LoginSuccessActor(t *testing.T) {
	logger, store := newTestLogger(t)
	ctx := WithActor(context.Background(), ActorContext{IPAddress: "192.0.2.1", UserAgent: "Mozilla"})

	logger.LoginSuccess(ctx, "emp-8", RoleEmployee, "emp8@x.io")

	r := onlyRecord(t, store)
	if r.ActorID != "emp-8" || r.ActorRole != RoleEmployee {
		t.Errorf("actor = %s/%s", r.ActorID, r.ActorRole)
	}
	if r.IPAddress != "192.0.2.1" || r.UserAgent != "Mozilla" {
		t.Errorf("request context lost: %s %s", r.IPAddress, r.UserAgent)
	}
}

func TestWrappers_Descriptions(t *testing.T) {
	logger, store := newTestLogger(t)

	logger.EntityUpdated(adminCtx(), Ref{Entity: EntityDepartment, ID: "d1", Name: "Finance"}, Metadata{"budget": 1000})
	r := onlyRecord(t, store)

	if !strings.HasPrefix(r.Description, "Department Finance updated by admin-1") {
		t.Errorf("description = %q", r.Description)
	}
	if !strings.Contains(r.Description, `"budget":1000`) {
		t.Errorf("description missing change summary: %q", r.Description)
	}
	if r.Metadata["departmentId"] != "d1" {
		t.Errorf("metadata = %v", r.Metadata)
	}
	if _, ok := r.Metadata["changes"]; !ok {
		t.Errorf("metadata missing changes: %v", r.Metadata)
	}
}

func TestWrappers_UnauthenticatedDescribesSystem(t *testing.T) {
	logger, store := newTestLogger(t)

	logger.EntityDeleted(context.Background(), Ref{Entity: EntityDocument, ID: "doc-1"})
	r := onlyRecord(t, store)
	if r.Description != "Document doc-1 deleted by system" {
		t.Errorf("description = %q", r.Description)
	}
	if r.ActorRole != RoleSystem {
		t.Errorf("role = %s", r.ActorRole)
	}
}

func TestCapitalize(t *testing.T) {
	tests := map[Entity]string{
		EntityUser:  "User",
		EntityTask:  "Task",
		"":          "",
		"Already":   "Already",
		"1password": "1password",
	}
	for in, want := range tests {
		if got := capitalize(in); got != want {
			t.Errorf("capitalize(%q) = %q, want %q", in, got, want)
		}
	}
}
