// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package validation

import (
	"strings"
	"testing"
)

type sample struct {
	UserID string   `validate:"required,userid"`
	Level  string   `validate:"required,role"`
	Limit  int      `validate:"min=1,max=500"`
	Tags   []string `validate:"dive,oneof=a b"`
}

func TestValidateStruct_Valid(t *testing.T) {
	t.Parallel()

	if err := ValidateStruct(&sample{UserID: "1234", Level: "Admin", Limit: 10}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateStruct_Fields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		in    sample
		field string
		tag   string
	}{
		{"missing user", sample{Level: "viewer", Limit: 1}, "UserID", "required"},
		{"user with space", sample{UserID: "a b", Level: "viewer", Limit: 1}, "UserID", "userid"},
		{"unknown role", sample{UserID: "u", Level: "owner", Limit: 1}, "Level", "role"},
		{"limit too high", sample{UserID: "u", Level: "viewer", Limit: 501}, "Limit", "max"},
		{"limit too low", sample{UserID: "u", Level: "viewer"}, "Limit", "min"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateStruct(&tt.in)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !err.Has(tt.field, tt.tag) {
				t.Errorf("error %v does not flag %s/%s", err, tt.field, tt.tag)
			}
		})
	}
}

func TestValidateStruct_Messages(t *testing.T) {
	t.Parallel()

	err := ValidateStruct(&sample{UserID: "u", Level: "boss", Limit: 0})
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "Level must be one of viewer, coordinator, admin") {
		t.Errorf("message = %q", msg)
	}
	if !strings.Contains(msg, "Limit must be at least 1") {
		t.Errorf("message = %q", msg)
	}
	if got := len(err.Fields()); got != 2 {
		t.Errorf("len(Fields) = %d, want 2", got)
	}
}

func TestValidator_Singleton(t *testing.T) {
	t.Parallel()

	if Validator() != Validator() {
		t.Error("Validator should return the same instance")
	}
}
