// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package authz

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/tomtom215/rolegate/internal/logging"
	"github.com/tomtom215/rolegate/internal/roles"
)

// Route declares a command and the minimum role it requires.
type Route struct {
	Name        string
	Required    roles.Role
	Description string
	Handler     HandlerFunc
}

// RouteInfo describes a registered command.
type RouteInfo struct {
	Name        string     `json:"name"`
	Required    roles.Role `json:"required_role"`
	Description string     `json:"description,omitempty"`
}

type registeredRoute struct {
	info    RouteInfo
	handler HandlerFunc
}

// Registry holds the guarded command table.
//
// Overrides map a command name to a role name and replace the role the route
// declares. They are applied at registration and may only raise it.
type Registry struct {
	guard     *Guard
	overrides map[string]roles.Role
	policy    *CapabilityPolicy

	mu     sync.RWMutex
	routes map[string]registeredRoute
}

// NewRegistry creates a registry. An override naming an undefined role is a
// *ConfigurationError.
func NewRegistry(guard *Guard, overrides map[string]string) (*Registry, error) {
	policy, err := NewCapabilityPolicy()
	if err != nil {
		return nil, err
	}

	parsed := make(map[string]roles.Role, len(overrides))
	for name, roleName := range overrides {
		role, err := roles.ParseRole(roleName)
		if err != nil {
			configurationErrors.Inc()
			return nil, &ConfigurationError{Handler: name, Role: roleName, Reason: "override names an unknown role"}
		}
		parsed[strings.TrimSpace(name)] = role
	}

	return &Registry{
		guard:     guard,
		overrides: parsed,
		policy:    policy,
		routes:    make(map[string]registeredRoute),
	}, nil
}

// Register guards and adds routes. Either every route is added or none is.
// An override below a route's declared role is a *ConfigurationError.
func (r *Registry) Register(routes ...Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	staged := make(map[string]registeredRoute, len(routes))
	for _, rt := range routes {
		name := strings.TrimSpace(rt.Name)
		if _, dup := r.routes[name]; dup {
			configurationErrors.Inc()
			return &ConfigurationError{Handler: name, Reason: "duplicate command"}
		}
		if _, dup := staged[name]; dup {
			configurationErrors.Inc()
			return &ConfigurationError{Handler: name, Reason: "duplicate command"}
		}

		required := rt.Required
		if o, ok := r.overrides[name]; ok {
			if rt.Required.Valid() && !o.AtLeast(rt.Required) {
				configurationErrors.Inc()
				return &ConfigurationError{
					Handler: name,
					Role:    o.String(),
					Reason:  fmt.Sprintf("override lowers the declared role %s", rt.Required),
				}
			}
			required = o
		}

		guarded, err := r.guard.Protect(name, required, rt.Handler)
		if err != nil {
			return err
		}
		staged[name] = registeredRoute{
			info:    RouteInfo{Name: name, Required: required, Description: rt.Description},
			handler: guarded,
		}
	}

	granted := make([]string, 0, len(staged))
	for name, rt := range staged {
		if err := r.policy.Grant(rt.info.Required, name); err != nil {
			for _, g := range granted {
				r.policy.Revoke(staged[g].info.Required, g)
			}
			return err
		}
		granted = append(granted, name)
	}

	for name, rt := range staged {
		r.routes[name] = rt
		logging.Debug().
			Str("command", name).
			Str("required_role", rt.info.Required.String()).
			Msg("Command registered")
	}
	return nil
}

// MustRegister is Register for static tables. It panics on error.
func (r *Registry) MustRegister(routes ...Route) {
	if err := r.Register(routes...); err != nil {
		panic(err)
	}
}

// CheckOverrides reports an override for a command that was never
// registered. Call it once every route is registered.
func (r *Registry) CheckOverrides() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.overrides))
	for name := range r.overrides {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := r.routes[name]; !ok {
			configurationErrors.Inc()
			return &ConfigurationError{
				Handler: name,
				Role:    r.overrides[name].String(),
				Reason:  "override for unregistered command",
			}
		}
	}
	return nil
}

// Invoke runs the named command through its guard.
func (r *Registry) Invoke(ctx context.Context, name string, req Request) (Response, error) {
	r.mu.RLock()
	rt, ok := r.routes[name]
	r.mu.RUnlock()
	if !ok {
		return Response{}, fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	return rt.handler(ctx, req)
}

// Routes lists registered commands sorted by name.
func (r *Registry) Routes() []RouteInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RouteInfo, 0, len(r.routes))
	for _, rt := range r.routes {
		out = append(out, rt.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Route returns the description of a registered command.
func (r *Registry) Route(name string) (RouteInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.routes[name]
	return rt.info, ok
}

// Capabilities lists the commands role may run.
func (r *Registry) Capabilities(role roles.Role) ([]string, error) {
	return r.policy.Capabilities(role)
}

// Allows reports whether role may run the named command.
func (r *Registry) Allows(role roles.Role, name string) (bool, error) {
	return r.policy.Allows(role, name)
}
