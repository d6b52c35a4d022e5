// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package authz

import "github.com/tomtom215/rolegate/internal/roles"

// Reason explains a Decision.
type Reason string

const (
	ReasonGranted          Reason = "granted"
	ReasonNoRecord         Reason = "no record"
	ReasonRevoked          Reason = "revoked"
	ReasonInsufficientRole Reason = "insufficient role"
)

// Decision is the outcome of Evaluate.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Evaluate decides access for a resolved record against a required role.
// A nil record means the user has no record and is always denied, so absence
// never falls back to Viewer. Undefined roles on either side deny.
func Evaluate(resolved *roles.Record, required roles.Role) Decision {
	switch {
	case resolved == nil:
		return Decision{Reason: ReasonNoRecord}
	case !resolved.Active:
		return Decision{Reason: ReasonRevoked}
	case !resolved.Role.Valid() || !required.Valid() || !resolved.Role.AtLeast(required):
		return Decision{Reason: ReasonInsufficientRole}
	default:
		return Decision{Allowed: true, Reason: ReasonGranted}
	}
}
