// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

// Package roles defines the access tiers and the role record shared by the
// cache, the record source and the audit trail.
package roles

import (
	"errors"
	"fmt"
	"strings"
)

// Role is an ordered access tier. Higher values carry every capability of the
// lower ones.
type Role int

const (
	Viewer Role = iota
	Coordinator
	Admin
)

// ErrUnknownRole is returned when a role name does not match any tier.
var ErrUnknownRole = errors.New("unknown role")

var roleNames = [...]string{
	Viewer:      "viewer",
	Coordinator: "coordinator",
	Admin:       "admin",
}

// All returns every tier from lowest to highest.
func All() []Role {
	return []Role{Viewer, Coordinator, Admin}
}

// ParseRole maps a tier name to a Role. Matching ignores case and surrounding
// whitespace.
func ParseRole(s string) (Role, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for r, n := range roleNames {
		if n == name {
			return Role(r), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownRole, s)
}

// Valid reports whether r is one of the defined tiers.
func (r Role) Valid() bool {
	return r >= Viewer && r <= Admin
}

// Rank is the position of r in the hierarchy.
func (r Role) Rank() int {
	return int(r)
}

// AtLeast reports whether r satisfies a requirement of required.
func (r Role) AtLeast(required Role) bool {
	return r.Rank() >= required.Rank()
}

func (r Role) String() string {
	if !r.Valid() {
		return fmt.Sprintf("role(%d)", int(r))
	}
	return roleNames[r]
}

// MarshalText encodes the tier name. Encoding an invalid role is an error so
// it can never reach an audit record.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, int(r))
	}
	return []byte(roleNames[r]), nil
}

// UnmarshalText decodes a tier name.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
