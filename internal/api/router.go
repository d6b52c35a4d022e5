// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/rolegate/internal/auth"
	"github.com/tomtom215/rolegate/internal/authz"
)

// Config holds router settings.
type Config struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RateLimitDisabled bool

	// MaxBodyBytes caps command request bodies. Default: 64 KiB
	MaxBodyBytes int64
}

// DefaultConfig returns 100 requests per minute per IP.
func DefaultConfig() Config {
	return Config{
		RateLimitRequests: 100,
		RateLimitWindow:   time.Minute,
		MaxBodyBytes:      64 << 10,
	}
}

// Commands is the registry surface the router serves.
type Commands interface {
	Invoke(ctx context.Context, name string, req authz.Request) (authz.Response, error)
	Routes() []authz.RouteInfo
}

// Readiness reports whether the role cache has loaded.
type Readiness interface {
	Ready() bool
}

// Router serves the HTTP API.
type Router struct {
	commands  Commands
	readiness Readiness
	authn     *auth.Middleware
	config    Config
	startTime time.Time
}

// NewRouter creates a router. Zero config fields take the defaults.
func NewRouter(cmds Commands, readiness Readiness, authn *auth.Middleware, cfg Config) *Router {
	def := DefaultConfig()
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = def.RateLimitWindow
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	return &Router{
		commands:  cmds,
		readiness: readiness,
		authn:     authn,
		config:    cfg,
		startTime: time.Now(),
	}
}

// Handler builds the route tree.
func (router *Router) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDWithLogging())
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(auth.SecurityHeaders)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusNotFound, "not_found", "not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, r, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed", nil)
	})

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Get("/live", router.HealthLive)
		r.Get("/ready", router.HealthReady)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(rateLimit(router.config))
		r.Use(PrometheusMetrics)
		r.Use(router.authn.Authenticate)

		r.Get("/commands", router.ListCommands)
		r.Post("/commands/{name}", router.RunCommand)
		r.Post("/admin/refresh", router.AdminRefresh)
	})

	return r
}
