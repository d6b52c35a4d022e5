// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/tomtom215/rolegate/internal/audit"
	"github.com/tomtom215/rolegate/internal/authz"
	"github.com/tomtom215/rolegate/internal/logging"
	"github.com/tomtom215/rolegate/internal/refresh"
)

// RefreshResult is the data returned by the refresh command.
type RefreshResult struct {
	Trigger        audit.Trigger `json:"trigger"`
	RecordsFetched int           `json:"records_fetched"`
	RecordsFailed  int           `json:"records_failed"`
	DurationMS     int64         `json:"duration_ms"`
	Swapped        bool          `json:"swapped"`
	Shared         bool          `json:"shared"`
	Error          string        `json:"error,omitempty"`
}

func newRefreshResult(o refresh.Outcome) RefreshResult {
	r := RefreshResult{
		Trigger:        o.Trigger,
		RecordsFetched: o.RecordsFetched,
		RecordsFailed:  o.RecordsFailed,
		DurationMS:     o.Duration.Milliseconds(),
		Swapped:        o.Swapped,
		Shared:         o.Shared,
	}
	if o.Err != nil {
		r.Error = o.Err.Error()
	}
	return r
}

// refresh waits for the cycle and always answers. A failed cycle is reported
// in the response, not as a handler error.
func (h *handlers) refresh(ctx context.Context, _ authz.Request) (authz.Response, error) {
	o, err := h.deps.Refresher.Refresh(ctx, audit.TriggerManual)
	if err != nil && ctx.Err() != nil {
		return authz.Response{}, fmt.Errorf("refresh abandoned: %w", err)
	}

	result := newRefreshResult(o)
	if a, ok := authz.AuthorizationFromContext(ctx); ok {
		logging.Ctx(ctx).Info().
			Str("user_id", a.UserID).
			Bool("swapped", o.Swapped).
			Bool("shared", o.Shared).
			Msg("Manual role refresh requested")
	}

	if !o.Swapped {
		return authz.Response{Text: "Refresh failed; previous roles kept", Data: result}, nil
	}
	return authz.Response{
		Text: fmt.Sprintf("Refreshed %d role records in %s", o.RecordsFetched, o.Duration.Round(100*time.Millisecond)),
		Data: result,
	}, nil
}
