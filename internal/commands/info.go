// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/rolegate/internal/audit"
	"github.com/tomtom215/rolegate/internal/authz"
	"github.com/tomtom215/rolegate/internal/roles"
)

// Identity is the data returned by whoami.
type Identity struct {
	UserID     string           `json:"user_id"`
	Role       roles.Role       `json:"role"`
	CacheState audit.CacheState `json:"cache_state"`
	Stale      bool             `json:"stale"`
}

func (h *handlers) whoami(ctx context.Context, _ authz.Request) (authz.Response, error) {
	a, err := caller(ctx)
	if err != nil {
		return authz.Response{}, err
	}
	return authz.Response{
		Text: fmt.Sprintf("You are %s (%s)", a.UserID, a.Record.Role),
		Data: Identity{UserID: a.UserID, Role: a.Record.Role, CacheState: a.CacheState, Stale: a.Stale},
	}, nil
}

func (h *handlers) capabilities(ctx context.Context, _ authz.Request) (authz.Response, error) {
	a, err := caller(ctx)
	if err != nil {
		return authz.Response{}, err
	}
	caps, err := h.reg.Capabilities(a.Record.Role)
	if err != nil {
		return authz.Response{}, fmt.Errorf("list capabilities: %w", err)
	}
	return authz.Response{
		Text: fmt.Sprintf("As %s you can run: %s", a.Record.Role, strings.Join(caps, ", ")),
		Data: caps,
	}, nil
}

// StatusReport is the data returned by status.
type StatusReport struct {
	Cache       authz.CacheStats `json:"cache"`
	LastRefresh *RefreshResult   `json:"last_refresh,omitempty"`
	LastAt      *time.Time       `json:"last_refresh_at,omitempty"`
}

func (h *handlers) status(ctx context.Context, _ authz.Request) (authz.Response, error) {
	report := StatusReport{Cache: h.deps.Cache.Stats()}

	var b strings.Builder
	fmt.Fprintf(&b, "%d records (%d active), generation %d", report.Cache.Entries, report.Cache.Active, report.Cache.Generation)
	if report.Cache.Stale {
		b.WriteString(", stale")
	}

	if o, ok := h.deps.Refresher.Last(); ok {
		r := newRefreshResult(o)
		at := o.StartedAt.UTC()
		report.LastRefresh, report.LastAt = &r, &at
		if o.Swapped {
			fmt.Fprintf(&b, "; last refresh ok at %s", at.Format(time.RFC3339))
		} else {
			fmt.Fprintf(&b, "; last refresh failed at %s", at.Format(time.RFC3339))
		}
	}
	return authz.Response{Text: b.String(), Data: report}, nil
}
