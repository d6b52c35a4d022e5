// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package commands

import (
	"context"
	"errors"

	"github.com/tomtom215/rolegate/internal/audit"
	"github.com/tomtom215/rolegate/internal/authz"
	"github.com/tomtom215/rolegate/internal/refresh"
	"github.com/tomtom215/rolegate/internal/roles"
)

// Command names.
const (
	Refresh      = "refresh"
	WhoAmI       = "whoami"
	Capabilities = "capabilities"
	Status       = "status"
	Audit        = "audit"
)

// ErrNoCaller means a handler ran without an authorization in its context.
// Handlers registered through a Registry always have one.
var ErrNoCaller = errors.New("no authorized caller in context")

// Refresher runs and reports refresh cycles. *refresh.Controller implements it.
type Refresher interface {
	Refresh(ctx context.Context, trigger audit.Trigger) (refresh.Outcome, error)
	Last() (refresh.Outcome, bool)
}

// StatsProvider reports cache state. *authz.AuthCache implements it.
type StatsProvider interface {
	Stats() authz.CacheStats
}

// Deps are the collaborators of the built-in commands.
type Deps struct {
	Refresher Refresher
	Cache     StatsProvider

	// Audit is optional. Without it the audit command reports that the log
	// cannot be queried.
	Audit audit.Querier
}

// Register adds the built-in commands to reg.
func Register(reg *authz.Registry, deps Deps) error {
	h := &handlers{deps: deps, reg: reg}
	return reg.Register(
		authz.Route{
			Name:        Refresh,
			Required:    roles.Admin,
			Description: "Reload every role record from the store now",
			Handler:     h.refresh,
		},
		authz.Route{
			Name:        WhoAmI,
			Required:    roles.Viewer,
			Description: "Show your role",
			Handler:     h.whoami,
		},
		authz.Route{
			Name:        Capabilities,
			Required:    roles.Viewer,
			Description: "List the commands you can run",
			Handler:     h.capabilities,
		},
		authz.Route{
			Name:        Status,
			Required:    roles.Coordinator,
			Description: "Show role cache and refresh status",
			Handler:     h.status,
		},
		authz.Route{
			Name:        Audit,
			Required:    roles.Admin,
			Description: "Show recent audit events: [limit=N] [type=access_attempt|sync_cycle] [user=ID]",
			Handler:     h.audit,
		},
	)
}

type handlers struct {
	deps Deps
	reg  *authz.Registry
}

func caller(ctx context.Context) (authz.Authorization, error) {
	a, ok := authz.AuthorizationFromContext(ctx)
	if !ok {
		return authz.Authorization{}, ErrNoCaller
	}
	return a, nil
}
