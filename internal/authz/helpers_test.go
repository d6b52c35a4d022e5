// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package authz

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/tomtom215/rolegate/internal/audit"
	"github.com/tomtom215/rolegate/internal/roles"
)

// =====================================================
// Test Helpers
// =====================================================

// fakeFetcher serves FetchOne from a map.
type fakeFetcher struct {
	mu      sync.Mutex
	records map[string]roles.Record
	err     error
	block   bool
	calls   atomic.Int32
}

func newFakeFetcher(records ...roles.Record) *fakeFetcher {
	f := &fakeFetcher{records: make(map[string]roles.Record)}
	for _, r := range records {
		f.records[r.UserID] = r
	}
	return f
}

func (f *fakeFetcher) FetchOne(ctx context.Context, userID string) (*roles.Record, error) {
	f.calls.Add(1)
	f.mu.Lock()
	block, err := f.block, f.err
	rec, ok := f.records[userID]
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (f *fakeFetcher) set(rec roles.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[rec.UserID] = rec
}

func (f *fakeFetcher) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

// recordingSink keeps every event written to it.
type recordingSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *recordingSink) Write(ev audit.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *recordingSink) all() []audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]audit.Event(nil), s.events...)
}

// only returns the single recorded access attempt, failing if there is not
// exactly one.
func (s *recordingSink) only(t *testing.T) *audit.AccessAttempt {
	t.Helper()
	events := s.all()
	if len(events) != 1 {
		t.Fatalf("recorded %d audit events, want 1", len(events))
	}
	if events[0].Type != audit.TypeAccessAttempt || events[0].Access == nil {
		t.Fatalf("recorded event type %q, want %q", events[0].Type, audit.TypeAccessAttempt)
	}
	return events[0].Access
}

// resolverFunc adapts a function to Resolver.
type resolverFunc func(ctx context.Context, userID string) (Resolution, error)

func (f resolverFunc) Resolve(ctx context.Context, userID string) (Resolution, error) {
	return f(ctx, userID)
}

func rec(userID string, role roles.Role, active bool) roles.Record {
	return roles.Record{UserID: userID, Role: role, Active: active}
}

// warmCache returns a cache filled with records and a fetcher that serves
// misses from extra.
func warmCache(t *testing.T, records []roles.Record, extra ...roles.Record) (*AuthCache, *fakeFetcher) {
	t.Helper()
	f := newFakeFetcher(extra...)
	c := NewAuthCache(f, DefaultCacheConfig())
	c.ReplaceSnapshot(records)
	return c, f
}

// okHandler counts invocations.
func okHandler(calls *atomic.Int32) HandlerFunc {
	return func(ctx context.Context, req Request) (Response, error) {
		calls.Add(1)
		return Response{Text: "ok"}, nil
	}
}
