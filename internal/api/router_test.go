// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/rolegate/internal/audit"
	"github.com/tomtom215/rolegate/internal/auth"
	"github.com/tomtom215/rolegate/internal/authz"
	"github.com/tomtom215/rolegate/internal/commands"
	"github.com/tomtom215/rolegate/internal/logging"
	"github.com/tomtom215/rolegate/internal/refresh"
	"github.com/tomtom215/rolegate/internal/roles"
)

// =====================================================
// Test Helpers
// =====================================================

const testSecret = "0123456789abcdef0123456789abcdef"

type captureSink struct {
	mu     sync.Mutex
	events []audit.Event
}

func (s *captureSink) Write(ev audit.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
}

func (s *captureSink) last() audit.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[len(s.events)-1]
}

type staticSource []roles.Record

func (s staticSource) FetchAllActive(context.Context) ([]roles.Record, error) {
	return s, nil
}

type apiFixture struct {
	handler http.Handler
	jwt     *auth.JWTManager
	sink    *captureSink
	cache   *authz.AuthCache
}

func newFixture(t *testing.T, warm bool, cfg Config) *apiFixture {
	t.Helper()

	sink := &captureSink{}
	cache := authz.NewAuthCache(nil, authz.DefaultCacheConfig())
	ctrl := refresh.New(staticSource{
		{UserID: "viewer", Role: roles.Viewer, Active: true},
		{UserID: "admin", Role: roles.Admin, Active: true},
	}, cache, sink, refresh.DefaultConfig())
	if warm {
		if _, err := ctrl.Refresh(context.Background(), audit.TriggerScheduled); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
	}

	reg, err := authz.NewRegistry(authz.NewGuard(cache, sink, authz.DefaultDenialMessages()), nil)
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if err := commands.Register(reg, commands.Deps{Refresher: ctrl, Cache: cache}); err != nil {
		t.Fatalf("commands.Register() error = %v", err)
	}
	reg.MustRegister(
		authz.Route{Name: "echo", Required: roles.Viewer, Handler: func(_ context.Context, req authz.Request) (authz.Response, error) {
			return authz.Response{Text: strings.Join(req.Args, " ")}, nil
		}},
		authz.Route{Name: "boom", Required: roles.Viewer, Handler: func(context.Context, authz.Request) (authz.Response, error) {
			return authz.Response{}, errors.New("database exploded at 10.0.0.7")
		}},
	)

	jwtManager, err := auth.NewJWTManager(auth.JWTConfig{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}

	return &apiFixture{
		handler: NewRouter(reg, cache, auth.NewMiddleware(jwtManager), cfg).Handler(),
		jwt:     jwtManager,
		sink:    sink,
		cache:   cache,
	}
}

func (f *apiFixture) do(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if user != "" {
		token, err := f.jwt.GenerateToken(user)
		if err != nil {
			t.Fatalf("GenerateToken() error = %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

// =====================================================
// Health
// =====================================================

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		warm       bool
		path       string
		wantStatus int
	}{
		{"live while cold", false, "/api/v1/health/live", http.StatusOK},
		{"ready while cold", false, "/api/v1/health/ready", http.StatusServiceUnavailable},
		{"ready once warm", true, "/api/v1/health/ready", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, tt.warm, DefaultConfig())
			rec := f.do(t, http.MethodGet, tt.path, "", "")
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if rec.Header().Get("X-Request-ID") == "" {
				t.Error("missing X-Request-ID header")
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true, DefaultConfig())
	rec := f.do(t, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "role_sync_cycles_total") {
		t.Error("metrics output missing role_sync_cycles_total")
	}
}

// =====================================================
// Commands
// =====================================================

func TestRunCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		user       string
		path       string
		body       string
		wantStatus int
		wantText   string
		wantError  string
	}{
		{"allowed", "viewer", "/api/v1/commands/echo", `{"args":["hello","there"]}`, http.StatusOK, "hello there", ""},
		{"empty body", "viewer", "/api/v1/commands/whoami", "", http.StatusOK, "You are viewer (viewer)", ""},
		{"no token", "", "/api/v1/commands/echo", `{}`, http.StatusUnauthorized, "", "unauthorized"},
		{"unknown command", "viewer", "/api/v1/commands/nope", `{}`, http.StatusNotFound, "", "unknown_command"},
		{"malformed body", "viewer", "/api/v1/commands/echo", `{"args":`, http.StatusBadRequest, "", "invalid_request"},
		{"too many args", "viewer", "/api/v1/commands/echo", `{"args":["1","2","3","4","5","6","7","8","9","10","11","12","13","14","15","16","17"]}`, http.StatusBadRequest, "", "invalid_request"},
		{"handler error is generic", "viewer", "/api/v1/commands/boom", `{}`, http.StatusInternalServerError, "", "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t, true, DefaultConfig())
			rec := f.do(t, http.MethodPost, tt.path, tt.user, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}

			if tt.wantText != "" {
				var resp CommandResponse
				decode(t, rec, &resp)
				if !resp.Allowed || resp.Text != tt.wantText {
					t.Errorf("response = %+v, want allowed with text %q", resp, tt.wantText)
				}
			}
			if tt.wantError != "" {
				var resp ErrorResponse
				decode(t, rec, &resp)
				if resp.Error != tt.wantError {
					t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
				}
				if strings.Contains(rec.Body.String(), "10.0.0.7") {
					t.Error("internal error detail leaked to the client")
				}
			}
		})
	}
}

func TestRunCommand_Denied(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true, DefaultConfig())

	for _, user := range []string{"viewer", "stranger"} {
		rec := f.do(t, http.MethodPost, "/api/v1/admin/refresh", user, "")
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s: status = %d, want 403", user, rec.Code)
		}

		var denial authz.Denial
		decode(t, rec, &denial)
		if denial.Allowed {
			t.Errorf("%s: denial.Allowed = true", user)
		}
		if denial.Message != authz.DefaultDenialMessages().Admin {
			t.Errorf("%s: message = %q", user, denial.Message)
		}

		ev := f.sink.last()
		if ev.Type != audit.TypeAccessAttempt || ev.Access.UserID != user || ev.Access.Result != audit.ResultDeny {
			t.Errorf("%s: audit event = %+v", user, ev.Access)
		}
		if ev.RequestID == "" || ev.RequestID != rec.Header().Get("X-Request-ID") {
			t.Errorf("%s: audit request id %q, header %q", user, ev.RequestID, rec.Header().Get("X-Request-ID"))
		}
	}
}

func TestAdminRefresh_Allowed(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true, DefaultConfig())
	rec := f.do(t, http.MethodPost, "/api/v1/admin/refresh", "admin", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Allowed bool                   `json:"allowed"`
		Data    commands.RefreshResult `json:"data"`
	}
	decode(t, rec, &resp)
	if !resp.Allowed || resp.Data.RecordsFetched != 2 {
		t.Errorf("response = %+v", resp)
	}
}

func TestRunCommand_ColdCacheDenies(t *testing.T) {
	t.Parallel()

	f := newFixture(t, false, DefaultConfig())
	rec := f.do(t, http.MethodPost, "/api/v1/commands/whoami", "admin", "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if f.cache.Ready() {
		t.Error("cache became ready")
	}
}

func TestListCommands(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true, DefaultConfig())
	rec := f.do(t, http.MethodGet, "/api/v1/commands", "viewer", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp struct {
		Commands []authz.RouteInfo `json:"commands"`
	}
	decode(t, rec, &resp)
	found := map[string]roles.Role{}
	for _, c := range resp.Commands {
		found[c.Name] = c.Required
	}
	if found[commands.Refresh] != roles.Admin {
		t.Errorf("refresh required = %v, want admin", found[commands.Refresh])
	}
	if _, ok := found["echo"]; !ok {
		t.Error("echo not listed")
	}
}

func TestUnmatchedRoutes(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true, DefaultConfig())
	rec := f.do(t, http.MethodGet, "/api/v1/health/ready/", "", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	rec = f.do(t, http.MethodDelete, "/api/v1/health/live", "", "")
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

// =====================================================
// Middleware
// =====================================================

func TestRateLimit(t *testing.T) {
	t.Parallel()

	f := newFixture(t, true, Config{RateLimitRequests: 2, RateLimitWindow: time.Minute})
	var codes []int
	for i := 0; i < 3; i++ {
		codes = append(codes, f.do(t, http.MethodPost, "/api/v1/commands/whoami", "viewer", "").Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want [200 200 429]", codes)
	}

	disabled := newFixture(t, true, Config{RateLimitRequests: 1, RateLimitDisabled: true})
	for i := 0; i < 3; i++ {
		if code := disabled.do(t, http.MethodPost, "/api/v1/commands/whoami", "viewer", "").Code; code != http.StatusOK {
			t.Fatalf("request %d with limiter disabled: status %d", i, code)
		}
	}
}

func TestRequestIDWithLogging(t *testing.T) {
	t.Parallel()

	var seen string
	h := RequestIDWithLogging()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = logging.RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if seen != "req-123" {
		t.Errorf("context request id = %q, want req-123", seen)
	}
	if rec.Header().Get("X-Request-ID") != "req-123" {
		t.Errorf("response header = %q", rec.Header().Get("X-Request-ID"))
	}
}
