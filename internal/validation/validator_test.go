// Nexus Audit - HR/ERP Audit Logging and Notification Core
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/nexusaudit

package validation

import (
	"strings"
	"testing"
)

type pageRequest struct {
	Action   string `validate:"omitempty,actiontag"`
	Severity string `validate:"omitempty,oneof=low medium high critical"`
	Search   string `validate:"max=10"`
	Page     int    `validate:"min=1"`
	PageSize int    `validate:"min=1,max=200"`
}

func TestGetValidator_Singleton(t *testing.T) {
	if GetValidator() != GetValidator() {
		t.Error("GetValidator() should return the same instance")
	}
}

func TestValidateStruct(t *testing.T) {
	tests := []struct {
		name      string
		req       pageRequest
		wantField string
		wantMsg   string
	}{
		{
			name: "valid",
			req:  pageRequest{Action: "login_failed", Severity: "high", Page: 1, PageSize: 50},
		},
		{
			name:      "page size too large",
			req:       pageRequest{Page: 1, PageSize: 201},
			wantField: "PageSize",
			wantMsg:   "PageSize must be at most 200",
		},
		{
			name:      "page size zero",
			req:       pageRequest{Page: 1, PageSize: 0},
			wantField: "PageSize",
			wantMsg:   "PageSize must be at least 1",
		},
		{
			name:      "bad severity",
			req:       pageRequest{Severity: "urgent", Page: 1, PageSize: 10},
			wantField: "Severity",
			wantMsg:   "Severity must be one of: low medium high critical",
		},
		{
			name:      "bad action tag",
			req:       pageRequest{Action: "Login Failed", Page: 1, PageSize: 10},
			wantField: "Action",
			wantMsg:   "Action must be a lower snake case action tag",
		},
		{
			name:      "search too long",
			req:       pageRequest{Search: "abcdefghijk", Page: 1, PageSize: 10},
			wantField: "Search",
			wantMsg:   "Search must be at most 10 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verr := ValidateStruct(&tt.req)
			if tt.wantField == "" {
				if verr != nil {
					t.Fatalf("unexpected error: %v", verr)
				}
				return
			}
			if verr == nil {
				t.Fatal("expected validation error")
			}
			if len(verr.Fields) != 1 {
				t.Fatalf("expected 1 field error, got %d: %v", len(verr.Fields), verr)
			}
			if verr.Fields[0].Field != tt.wantField {
				t.Errorf("field = %s, want %s", verr.Fields[0].Field, tt.wantField)
			}
			if verr.Fields[0].Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", verr.Fields[0].Message, tt.wantMsg)
			}
		})
	}
}

func TestRequestValidationError_JoinsMessages(t *testing.T) {
	verr := ValidateStruct(&pageRequest{Page: 0, PageSize: 0})
	if verr == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(verr.Error(), "; ") {
		t.Errorf("expected joined messages, got %q", verr.Error())
	}
}
