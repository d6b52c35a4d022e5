// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package authz

import (
	"fmt"
	"sort"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/tomtom215/rolegate/internal/roles"
)

// capabilityModel grants a command to a role and, through g, to every role
// above it.
const capabilityModel = `
[request_definition]
r = sub, obj

[policy_definition]
p = sub, obj

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && r.obj == p.obj
`

// CapabilityPolicy answers "which commands can this role run" for listing
// and introspection. Guards do not consult it; they use Evaluate.
type CapabilityPolicy struct {
	enforcer *casbin.SyncedEnforcer
}

// NewCapabilityPolicy builds a policy with the role hierarchy loaded and no
// commands granted.
func NewCapabilityPolicy() (*CapabilityPolicy, error) {
	m, err := model.NewModelFromString(capabilityModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load capability model: %w", err)
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create capability enforcer: %w", err)
	}

	// Each role inherits from the one directly below it.
	all := roles.All()
	for i := len(all) - 1; i > 0; i-- {
		if _, err := enforcer.AddGroupingPolicy(all[i].String(), all[i-1].String()); err != nil {
			return nil, fmt.Errorf("failed to add role hierarchy %s > %s: %w", all[i], all[i-1], err)
		}
	}
	return &CapabilityPolicy{enforcer: enforcer}, nil
}

// Grant makes capability available to required and every role above it.
func (p *CapabilityPolicy) Grant(required roles.Role, capability string) error {
	if !required.Valid() {
		return fmt.Errorf("grant %s: %w", capability, roles.ErrUnknownRole)
	}
	if _, err := p.enforcer.AddPolicy(required.String(), capability); err != nil {
		return fmt.Errorf("grant %s to %s: %w", capability, required, err)
	}
	return nil
}

// Revoke undoes Grant. It is used to roll back a failed registration.
func (p *CapabilityPolicy) Revoke(required roles.Role, capability string) {
	//nolint:errcheck // RemovePolicy only fails through an adapter, and none is configured
	p.enforcer.RemovePolicy(required.String(), capability)
}

// Allows reports whether role may use capability.
func (p *CapabilityPolicy) Allows(role roles.Role, capability string) (bool, error) {
	if !role.Valid() {
		return false, nil
	}
	ok, err := p.enforcer.Enforce(role.String(), capability)
	if err != nil {
		return false, fmt.Errorf("enforcement failed: %w", err)
	}
	return ok, nil
}

// Capabilities lists every capability role holds, sorted.
func (p *CapabilityPolicy) Capabilities(role roles.Role) ([]string, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("capabilities: %w", roles.ErrUnknownRole)
	}
	perms, err := p.enforcer.GetImplicitPermissionsForUser(role.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list capabilities for %s: %w", role, err)
	}

	seen := make(map[string]struct{}, len(perms))
	out := make([]string, 0, len(perms))
	for _, perm := range perms {
		if len(perm) < 2 {
			continue
		}
		if _, dup := seen[perm[1]]; dup {
			continue
		}
		seen[perm[1]] = struct{}{}
		out = append(out, perm[1])
	}
	sort.Strings(out)
	return out, nil
}
