// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rolegate/internal/roles"
)

// =============================================================================
// Fake record store
// =============================================================================

type fakeStore struct {
	rows      []recordRow
	total     int // reported total; defaults to len(rows)
	failAfter int // fail pages whose offset is >= failAfter when > 0
	status    int // forced status for every request when non-zero
	requests  atomic.Int32
	lastAuth  atomic.Value
}

func (f *fakeStore) handler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.requests.Add(1)
		f.lastAuth.Store(r.Header.Get("Authorization"))

		if r.URL.Path != "/v1/collections/roles/records" {
			http.NotFound(w, r)
			return
		}
		if f.status != 0 {
			w.Header().Set("Retry-After", "30")
			http.Error(w, "nope", f.status)
			return
		}

		total := f.total
		if total == 0 {
			total = len(f.rows)
		}

		if uid := r.URL.Query().Get("user_id"); uid != "" {
			var match []recordRow
			for _, row := range f.rows {
				if row.UserID == uid {
					match = append(match, row)
				}
			}
			_ = json.NewEncoder(w).Encode(recordPage{Records: match, Total: len(match)})
			return
		}

		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if f.failAfter > 0 && offset >= f.failAfter {
			http.Error(w, "backend exploded", http.StatusBadGateway)
			return
		}
		end := min(offset+limit, len(f.rows))
		if offset > end {
			offset = end
		}
		_ = json.NewEncoder(w).Encode(recordPage{Records: f.rows[offset:end], Total: total})
	})
}

func makeRows(n int) []recordRow {
	rows := make([]recordRow, n)
	levels := []string{"viewer", "coordinator", "admin"}
	for i := range rows {
		rows[i] = recordRow{
			UserID:      fmt.Sprintf("user-%03d", i),
			Status:      "active",
			AccessLevel: levels[i%3],
			UpdatedAt:   "2026-01-01T00:00:00Z",
		}
	}
	return rows
}

func newTestSource(t *testing.T, store *fakeStore, pageSize int) *HTTPSource {
	t.Helper()
	srv := httptest.NewServer(store.handler(t))
	t.Cleanup(srv.Close)

	src, err := NewHTTPSource(Config{
		BaseURL:        srv.URL + "/",
		APIKey:         "secret-key",
		Collection:     "roles",
		PageSize:       pageSize,
		RequestTimeout: 2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}
	return src
}

// =============================================================================
// Construction
// =============================================================================

func TestNewHTTPSource_Validation(t *testing.T) {
	t.Parallel()

	if _, err := NewHTTPSource(Config{BaseURL: "not a url", Collection: "roles"}); err == nil {
		t.Error("expected error for invalid URL")
	}
	if _, err := NewHTTPSource(Config{BaseURL: "https://store.example.com"}); err == nil {
		t.Error("expected error for missing collection")
	}
}

// =============================================================================
// FetchAllActive
// =============================================================================

func TestFetchAllActive_Paginates(t *testing.T) {
	t.Parallel()

	store := &fakeStore{rows: makeRows(50)}
	src := newTestSource(t, store, 20)

	records, err := src.FetchAllActive(context.Background())
	if err != nil {
		t.Fatalf("FetchAllActive: %v", err)
	}
	if len(records) != 50 {
		t.Fatalf("got %d records, want 50", len(records))
	}
	if got := store.requests.Load(); got != 3 {
		t.Errorf("made %d requests, want 3", got)
	}
	if records[2].Role != roles.Admin || !records[2].Active || records[2].SourceVersion == "" {
		t.Errorf("record 2 = %+v", records[2])
	}
	if got := store.lastAuth.Load(); got != "Bearer secret-key" {
		t.Errorf("Authorization = %v", got)
	}
}

func TestFetchAllActive_InactiveRowsKept(t *testing.T) {
	t.Parallel()

	rows := makeRows(3)
	rows[1].Status = "Revoked"
	rows[2].Status = ""
	src := newTestSource(t, &fakeStore{rows: rows}, 10)

	records, err := src.FetchAllActive(context.Background())
	if err != nil {
		t.Fatalf("FetchAllActive: %v", err)
	}
	if !records[0].Active || records[1].Active || records[2].Active {
		t.Errorf("active flags = %v %v %v, want true false false", records[0].Active, records[1].Active, records[2].Active)
	}
}

func TestFetchAllActive_DuplicateRowsMatchFetchOne(t *testing.T) {
	t.Parallel()

	rows := []recordRow{
		{UserID: "carol", Status: "active", AccessLevel: "viewer", UpdatedAt: "v1"},
		{UserID: "erin", Status: "active", AccessLevel: "viewer", UpdatedAt: "v1"},
		{UserID: "carol", Status: "inactive", AccessLevel: "admin", UpdatedAt: "v2"},
		{UserID: "erin", Status: "active", AccessLevel: "coordinator", UpdatedAt: "v2"},
	}
	src := newTestSource(t, &fakeStore{rows: rows}, 3)
	ctx := context.Background()

	records, err := src.FetchAllActive(ctx)
	if err != nil {
		t.Fatalf("FetchAllActive: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2 distinct users: %+v", len(records), records)
	}

	for _, got := range records {
		one, err := src.FetchOne(ctx, got.UserID)
		if err != nil {
			t.Fatalf("FetchOne(%s): %v", got.UserID, err)
		}
		if one == nil || *one != got {
			t.Errorf("FetchAllActive row %+v, FetchOne = %+v; want the same row", got, one)
		}
	}
	if records[0].UserID != "carol" || !records[0].Active || records[0].Role != roles.Viewer {
		t.Errorf("carol = %+v, want the active viewer row", records[0])
	}
	if records[1].Role != roles.Coordinator {
		t.Errorf("erin = %+v, want the later active row", records[1])
	}
}

func TestFetchAllActive_InvalidRowsArePartial(t *testing.T) {
	t.Parallel()

	rows := makeRows(10)
	rows[3].AccessLevel = "superuser"
	rows[7].UserID = ""
	src := newTestSource(t, &fakeStore{rows: rows}, 100)

	records, err := src.FetchAllActive(context.Background())
	var partial *PartialSyncError
	if !errors.As(err, &partial) {
		t.Fatalf("error = %v, want *PartialSyncError", err)
	}
	if partial.Fetched != 8 || partial.Failed != 2 || !partial.OnlyInvalidRows() {
		t.Errorf("partial = %+v", partial)
	}
	if len(records) != 8 {
		t.Errorf("got %d records, want 8", len(records))
	}
	if IsUnavailable(err) {
		t.Error("invalid rows alone are not an availability failure")
	}
}

func TestFetchAllActive_LaterPageFails(t *testing.T) {
	t.Parallel()

	src := newTestSource(t, &fakeStore{rows: makeRows(50), failAfter: 20}, 20)

	_, err := src.FetchAllActive(context.Background())
	var partial *PartialSyncError
	if !errors.As(err, &partial) {
		t.Fatalf("error = %v, want *PartialSyncError", err)
	}
	if partial.Fetched != 20 || partial.Failed != 30 {
		t.Errorf("partial = %+v, want 20 fetched 30 failed", partial)
	}
	if !errors.Is(err, ErrSourceUnavailable) {
		t.Error("partial error should unwrap to the transport failure")
	}
}

func TestFetchAllActive_ShortRead(t *testing.T) {
	t.Parallel()

	src := newTestSource(t, &fakeStore{rows: makeRows(5), total: 8}, 10)

	_, err := src.FetchAllActive(context.Background())
	var partial *PartialSyncError
	if !errors.As(err, &partial) || partial.Failed != 3 || partial.OnlyInvalidRows() {
		t.Fatalf("error = %v, want partial with 3 missing rows", err)
	}
}

func TestFetchAllActive_Unavailable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"server error", http.StatusInternalServerError, ErrSourceUnavailable},
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"unauthorized", http.StatusUnauthorized, ErrSourceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := &fakeStore{rows: makeRows(3), status: tt.status}
			src := newTestSource(t, store, 10)

			records, err := src.FetchAllActive(context.Background())
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if records != nil {
				t.Errorf("records = %v, want nil", records)
			}
			if got := store.requests.Load(); got != 1 {
				t.Errorf("made %d requests, want exactly 1 (no retry)", got)
			}
		})
	}
}

func TestFetchAllActive_Timeout(t *testing.T) {
	t.Parallel()

	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	t.Cleanup(slow.Close)

	src, err := NewHTTPSource(Config{BaseURL: slow.URL, Collection: "roles"})
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err = src.FetchAllActive(ctx)
	if !errors.Is(err, ErrSourceUnavailable) || !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want unavailable wrapping deadline exceeded", err)
	}
}

// =============================================================================
// FetchOne
// =============================================================================

func TestFetchOne(t *testing.T) {
	t.Parallel()

	rows := []recordRow{
		{UserID: "alice", Status: "active", AccessLevel: "coordinator", UpdatedAt: "v1"},
		{UserID: "bob", Status: "inactive", AccessLevel: "admin", UpdatedAt: "v1"},
		{UserID: "carol", Status: "active", AccessLevel: "viewer", UpdatedAt: "v1"},
		{UserID: "carol", Status: "inactive", AccessLevel: "admin", UpdatedAt: "v2"},
		{UserID: "dave", Status: "active", AccessLevel: "wizard", UpdatedAt: "v1"},
	}
	src := newTestSource(t, &fakeStore{rows: rows}, 10)
	ctx := context.Background()

	tests := []struct {
		user       string
		wantNil    bool
		wantRole   roles.Role
		wantActive bool
	}{
		{"alice", false, roles.Coordinator, true},
		{"bob", false, roles.Admin, false},
		{"carol", false, roles.Viewer, true},
		{"dave", true, 0, false},
		{"nobody", true, 0, false},
	}
	for _, tt := range tests {
		rec, err := src.FetchOne(ctx, tt.user)
		if err != nil {
			t.Fatalf("FetchOne(%s): %v", tt.user, err)
		}
		if tt.wantNil {
			if rec != nil {
				t.Errorf("FetchOne(%s) = %+v, want nil", tt.user, rec)
			}
			continue
		}
		if rec == nil || rec.Role != tt.wantRole || rec.Active != tt.wantActive {
			t.Errorf("FetchOne(%s) = %+v, want role %v active %v", tt.user, rec, tt.wantRole, tt.wantActive)
		}
	}
}

func TestFetchOne_EmptyUser(t *testing.T) {
	t.Parallel()

	store := &fakeStore{rows: makeRows(1)}
	src := newTestSource(t, store, 10)

	rec, err := src.FetchOne(context.Background(), "  ")
	if rec != nil || err != nil {
		t.Errorf("FetchOne(blank) = %v, %v; want nil, nil", rec, err)
	}
	if store.requests.Load() != 0 {
		t.Error("blank user id should not reach the store")
	}
}

func TestFetchOne_RateLimiterHonoursDeadline(t *testing.T) {
	t.Parallel()

	store := &fakeStore{rows: makeRows(1)}
	srv := httptest.NewServer(store.handler(t))
	t.Cleanup(srv.Close)

	src, err := NewHTTPSource(Config{BaseURL: srv.URL, Collection: "roles", RateLimit: 0.001, Burst: 1})
	if err != nil {
		t.Fatalf("NewHTTPSource: %v", err)
	}

	if _, err := src.FetchOne(context.Background(), "user-000"); err != nil {
		t.Fatalf("first call: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := src.FetchOne(ctx, "user-000"); !errors.Is(err, ErrSourceUnavailable) {
		t.Errorf("throttled call error = %v, want ErrSourceUnavailable", err)
	}
	if got := store.requests.Load(); got != 1 {
		t.Errorf("store saw %d requests, want 1", got)
	}
}
