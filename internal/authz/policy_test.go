// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package authz

import (
	"errors"
	"testing"

	"github.com/tomtom215/rolegate/internal/roles"
)

// The casbin index and Evaluate must never disagree for an active record.
func TestCapabilityPolicy_AgreesWithEvaluate(t *testing.T) {
	t.Parallel()

	p, err := NewCapabilityPolicy()
	if err != nil {
		t.Fatalf("NewCapabilityPolicy() error = %v", err)
	}
	for _, required := range roles.All() {
		if err := p.Grant(required, "needs-"+required.String()); err != nil {
			t.Fatalf("Grant() error = %v", err)
		}
	}

	for _, held := range roles.All() {
		for _, required := range roles.All() {
			got, err := p.Allows(held, "needs-"+required.String())
			if err != nil {
				t.Fatalf("Allows() error = %v", err)
			}
			want := Evaluate(&roles.Record{UserID: "u", Role: held, Active: true}, required).Allowed
			if got != want {
				t.Errorf("policy(%s, %s) = %v, Evaluate = %v", held, required, got, want)
			}
		}
	}
}

func TestCapabilityPolicy_InvalidRoles(t *testing.T) {
	t.Parallel()

	p, err := NewCapabilityPolicy()
	if err != nil {
		t.Fatalf("NewCapabilityPolicy() error = %v", err)
	}
	if err := p.Grant(roles.Role(5), "x"); !errors.Is(err, roles.ErrUnknownRole) {
		t.Errorf("Grant(invalid) error = %v, want ErrUnknownRole", err)
	}
	if ok, err := p.Allows(roles.Role(5), "x"); ok || err != nil {
		t.Errorf("Allows(invalid) = %v, %v; want false, nil", ok, err)
	}
	if _, err := p.Capabilities(roles.Role(-1)); !errors.Is(err, roles.ErrUnknownRole) {
		t.Errorf("Capabilities(invalid) error = %v, want ErrUnknownRole", err)
	}
	caps, err := p.Capabilities(roles.Admin)
	if err != nil || len(caps) != 0 {
		t.Errorf("Capabilities(admin) on empty policy = %v, %v", caps, err)
	}
}
