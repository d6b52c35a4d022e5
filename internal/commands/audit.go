// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package commands

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tomtom215/rolegate/internal/audit"
	"github.com/tomtom215/rolegate/internal/authz"
)

const (
	defaultAuditLimit = 20
	maxAuditLimit     = 200
)

var (
	// ErrAuditUnavailable means no queryable audit store is configured.
	ErrAuditUnavailable = errors.New("audit log is not queryable")

	// ErrBadArgument is returned for malformed command arguments.
	ErrBadArgument = errors.New("bad argument")
)

// parseAuditArgs reads key=value arguments into a filter.
func parseAuditArgs(args []string) (audit.Filter, error) {
	f := audit.Filter{Limit: defaultAuditLimit}
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || value == "" {
			return f, fmt.Errorf("%w: %q, want key=value", ErrBadArgument, arg)
		}
		switch strings.ToLower(key) {
		case "limit":
			n, err := strconv.Atoi(value)
			if err != nil || n < 1 || n > maxAuditLimit {
				return f, fmt.Errorf("%w: limit must be 1-%d", ErrBadArgument, maxAuditLimit)
			}
			f.Limit = n
		case "type":
			t := audit.EventType(value)
			if t != audit.TypeAccessAttempt && t != audit.TypeSyncCycle {
				return f, fmt.Errorf("%w: unknown type %q", ErrBadArgument, value)
			}
			f.Type = t
		case "user":
			f.UserID = value
		case "result":
			r := audit.Result(value)
			if r != audit.ResultAllow && r != audit.ResultDeny {
				return f, fmt.Errorf("%w: unknown result %q", ErrBadArgument, value)
			}
			f.Result = r
		default:
			return f, fmt.Errorf("%w: unknown key %q", ErrBadArgument, key)
		}
	}
	return f, nil
}

func (h *handlers) audit(ctx context.Context, req authz.Request) (authz.Response, error) {
	if h.deps.Audit == nil {
		return authz.Response{}, ErrAuditUnavailable
	}
	filter, err := parseAuditArgs(req.Args)
	if err != nil {
		return authz.Response{}, err
	}

	events, err := h.deps.Audit.Query(ctx, filter)
	if err != nil {
		return authz.Response{}, fmt.Errorf("query audit log: %w", err)
	}
	if events == nil {
		events = []audit.Event{}
	}
	return authz.Response{
		Text: fmt.Sprintf("%d audit events", len(events)),
		Data: events,
	}, nil
}
