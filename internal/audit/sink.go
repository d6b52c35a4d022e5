// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package audit

import "context"

// Sink accepts audit events. Write must not fail from the caller's point of
// view and must not lose the event.
type Sink interface {
	Write(event Event)
}

// Store persists events for a Writer.
type Store interface {
	// Name labels the store in logs and metrics.
	Name() string
	Save(ctx context.Context, event *Event) error
}

// Querier reads back persisted events, newest first.
type Querier interface {
	Query(ctx context.Context, filter Filter) ([]Event, error)
}
