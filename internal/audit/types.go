// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package audit

import (
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/rolegate/internal/roles"
)

// EventType discriminates the Event union.
type EventType string

const (
	TypeAccessAttempt EventType = "access_attempt"
	TypeSyncCycle     EventType = "sync_cycle"
)

// CacheState describes how a role lookup was served.
type CacheState string

const (
	CacheHit             CacheState = "hit"
	CacheMiss            CacheState = "miss"
	CacheMissThenFetched CacheState = "miss_then_fetched"
)

// Result is the outcome of an access attempt.
type Result string

const (
	ResultAllow Result = "allow"
	ResultDeny  Result = "deny"
)

// Trigger names what started a refresh cycle.
type Trigger string

const (
	TriggerScheduled Trigger = "scheduled"
	TriggerManual    Trigger = "manual"
)

// ErrInvalidEvent is returned by Event.Validate.
var ErrInvalidEvent = errors.New("invalid audit event")

// AccessAttempt is emitted once per guarded invocation.
type AccessAttempt struct {
	UserID       string      `json:"user_id"`
	Handler      string      `json:"handler"`
	RequiredRole roles.Role  `json:"required_role"`
	ResolvedRole *roles.Role `json:"resolved_role,omitempty"`
	Active       *bool       `json:"active,omitempty"`
	CacheState   CacheState  `json:"cache_state"`
	Stale        bool        `json:"stale"`
	Result       Result      `json:"result"`
	Reason       string      `json:"reason"`

	// SourceVersion is the record store's version token for the resolved row.
	SourceVersion string `json:"source_version,omitempty"`

	// Error carries resolve anomalies. It is never shown to the user.
	Error string `json:"error,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

// SyncCycle is emitted once per refresh cycle.
type SyncCycle struct {
	Trigger        Trigger   `json:"trigger"`
	StartedAt      time.Time `json:"started_at"`
	DurationMS     int64     `json:"duration_ms"`
	RecordsFetched int       `json:"records_fetched"`
	RecordsFailed  int       `json:"records_failed"`
	Swapped        bool      `json:"swapped"`
	Error          string    `json:"error,omitempty"`
}

// Duration returns the cycle duration.
func (s *SyncCycle) Duration() time.Duration {
	return time.Duration(s.DurationMS) * time.Millisecond
}

// Event is the envelope written to every store. Exactly one of Access and
// Sync is set, matching Type.
type Event struct {
	ID        string         `json:"id"`
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RequestID string         `json:"request_id,omitempty"`
	Access    *AccessAttempt `json:"access,omitempty"`
	Sync      *SyncCycle     `json:"sync,omitempty"`
}

// NewAccessEvent wraps an access attempt.
func NewAccessEvent(a AccessAttempt) Event {
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now().UTC()
	}
	return Event{Type: TypeAccessAttempt, Timestamp: a.Timestamp, Access: &a}
}

// NewSyncEvent wraps a sync cycle summary.
func NewSyncEvent(s SyncCycle) Event {
	return Event{Type: TypeSyncCycle, Timestamp: time.Now().UTC(), Sync: &s}
}

// Validate checks the union invariant.
func (e *Event) Validate() error {
	switch e.Type {
	case TypeAccessAttempt:
		if e.Access == nil || e.Sync != nil {
			return fmt.Errorf("%w: access_attempt must carry only an access payload", ErrInvalidEvent)
		}
	case TypeSyncCycle:
		if e.Sync == nil || e.Access != nil {
			return fmt.Errorf("%w: sync_cycle must carry only a sync payload", ErrInvalidEvent)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	return nil
}

// UserID returns the subject of an access attempt, or "".
func (e *Event) UserID() string {
	if e.Access == nil {
		return ""
	}
	return e.Access.UserID
}

// Filter selects events for Query. Zero fields match everything.
type Filter struct {
	Type   EventType
	UserID string
	Result Result
	Since  time.Time
	Limit  int
}

// Matches reports whether e satisfies f, ignoring Limit.
func (f *Filter) Matches(e *Event) bool {
	if f.Type != "" && e.Type != f.Type {
		return false
	}
	if f.UserID != "" && e.UserID() != f.UserID {
		return false
	}
	if f.Result != "" && (e.Access == nil || e.Access.Result != f.Result) {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	return true
}
