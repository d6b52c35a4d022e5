// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/rolegate/internal/roles"
)

// FullFetcher returns every record in the store.
type FullFetcher interface {
	FetchAllActive(ctx context.Context) ([]roles.Record, error)
}

// SingleFetcher looks up one user. It returns nil, nil when the user has no
// record.
type SingleFetcher interface {
	FetchOne(ctx context.Context, userID string) (*roles.Record, error)
}

// RecordSource is the read-only view of the record store.
type RecordSource interface {
	FullFetcher
	SingleFetcher
}

var (
	// ErrSourceUnavailable means the store could not serve the request.
	ErrSourceUnavailable = errors.New("record source unavailable")

	// ErrRateLimited is a SourceUnavailable caused by the store's quota.
	ErrRateLimited = fmt.Errorf("%w: rate limited", ErrSourceUnavailable)
)

// PartialSyncError reports an incomplete full fetch. Fetched counts valid rows
// returned, Failed counts rows that were invalid or never retrieved.
type PartialSyncError struct {
	Fetched int
	Failed  int

	// Invalid is the part of Failed caused by row validation.
	Invalid int

	// Err is the transport error that cut the fetch short, if any.
	Err error
}

func (e *PartialSyncError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("partial sync: %d fetched, %d failed: %v", e.Fetched, e.Failed, e.Err)
	}
	return fmt.Sprintf("partial sync: %d fetched, %d failed", e.Fetched, e.Failed)
}

func (e *PartialSyncError) Unwrap() error {
	return e.Err
}

// OnlyInvalidRows reports whether the store was reachable for the whole
// fetch and the shortfall came from row validation alone.
func (e *PartialSyncError) OnlyInvalidRows() bool {
	return e.Err == nil && e.Failed == e.Invalid
}

// IsUnavailable reports whether err means the store could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrSourceUnavailable)
}
