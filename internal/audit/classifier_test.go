// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package audit

import (
	"testing"

	"github.com/goccy/go-json"
)

func TestClassify_Severity(t *testing.T) {
	tests := []struct {
		action Action
		want   Severity
	}{
		{ActionLoginSuccess, SeverityLow},
		{ActionLoginFailed, SeverityMedium},
		{ActionUnauthorizedAccess, SeverityHigh},
		{ActionUserCreated, SeverityMedium},
		{ActionUserUpdated, SeverityLow},
		{ActionUserDeleted, SeverityHigh},
		{ActionDepartmentDeleted, SeverityHigh},
		{ActionTaskDeleted, SeverityMedium},
		{ActionAttendanceCheckedIn, SeverityLow},
		{ActionRequestApproved, SeverityMedium},
		{ActionRequestRejected, SeverityMedium},
		{ActionDocumentDeleted, SeverityMedium},
		{ActionSystemError, SeverityHigh},
		{ActionSystemSettingsUpdated, SeverityMedium},
		{"something_new", SeverityLow},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			_, got := Classify(tt.action, "desc", ClassifyInput{ActorID: "u1"})
			if got != tt.want {
				t.Errorf("Classify(%s) severity = %s, want %s", tt.action, got, tt.want)
			}
		})
	}
}

func TestClassify_NeverCritical(t *testing.T) {
	for _, a := range AllActions() {
		if _, sev := Classify(a, "", ClassifyInput{Metadata: Metadata{"statusCode": 500}}); sev == SeverityCritical {
			t.Errorf("action %s classified critical", a)
		}
	}
}

func TestClassify_DefaultDescription(t *testing.T) {
	desc, _ := Classify(ActionTaskCreated, "", ClassifyInput{ActorID: "mgr-7"})
	if desc != "task_created by mgr-7" {
		t.Errorf("description = %q", desc)
	}

	desc, _ = Classify(ActionTaskCreated, "", ClassifyInput{})
	if desc != "task_created by system" {
		t.Errorf("description without actor = %q", desc)
	}

	desc, _ = Classify(ActionTaskCreated, "Task Q3 plan created", ClassifyInput{})
	if desc != "Task Q3 plan created" {
		t.Errorf("explicit description replaced: %q", desc)
	}
}

func TestClassify_RequestCompleted(t *testing.T) {
	tests := []struct {
		name   string
		status any
		want   Severity
	}{
		{"ok int", 200, SeverityLow},
		{"redirect", 302, SeverityLow},
		{"boundary", 400, SeverityMedium},
		{"server error int64", int64(503), SeverityMedium},
		{"after json round trip", float64(404), SeverityMedium},
		{"json number", json.Number("500"), SeverityMedium},
		{"string", "401", SeverityMedium},
		{"garbage string", "abc", SeverityLow},
		{"wrong type", true, SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := Classify(ActionRequestCompleted, "", ClassifyInput{Metadata: Metadata{"statusCode": tt.status}})
			if got != tt.want {
				t.Errorf("severity = %s, want %s", got, tt.want)
			}
		})
	}

	if _, got := Classify(ActionRequestCompleted, "", ClassifyInput{}); got != SeverityLow {
		t.Errorf("missing status code: severity = %s, want low", got)
	}
}

func TestClassify_Deterministic(t *testing.T) {
	in := ClassifyInput{ActorID: "u1", Metadata: Metadata{"statusCode": 418}}
	d1, s1 := Classify(ActionRequestCompleted, "", in)
	d2, s2 := Classify(ActionRequestCompleted, "", in)
	if d1 != d2 || s1 != s2 {
		t.Errorf("Classify not deterministic: (%q,%s) vs (%q,%s)", d1, s1, d2, s2)
	}
}

func TestActions_Registry(t *testing.T) {
	all := AllActions()
	seen := make(map[Action]bool, len(all))
	for _, a := range all {
		if seen[a] {
			t.Errorf("duplicate action %s", a)
		}
		seen[a] = true
		if !a.Valid() {
			t.Errorf("registered action %s is not valid", a)
		}
		if a.Category() == CategoryUnknown {
			t.Errorf("registered action %s has no category", a)
		}
	}

	if Action("payroll_exported").Valid() {
		t.Error("unregistered action reported valid")
	}
	if got := Action("payroll_exported").Category(); got != CategoryUnknown {
		t.Errorf("unregistered category = %s", got)
	}
	if got := ActionRequestApproved.Category(); got != CategoryRequest {
		t.Errorf("request_approved category = %s", got)
	}
}

func TestSeverity_Valid(t *testing.T) {
	for _, s := range Severities() {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	for _, s := range []Severity{"", "urgent", "LOW"} {
		if s.Valid() {
			t.Errorf("%q should be invalid", s)
		}
	}
}
