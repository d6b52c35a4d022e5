// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/tomtom215/rolegate/internal/api"
	"github.com/tomtom215/rolegate/internal/auth"
	"github.com/tomtom215/rolegate/internal/authz"
	"github.com/tomtom215/rolegate/internal/commands"
	"github.com/tomtom215/rolegate/internal/config"
	"github.com/tomtom215/rolegate/internal/logging"
	"github.com/tomtom215/rolegate/internal/metrics"
	"github.com/tomtom215/rolegate/internal/refresh"
	"github.com/tomtom215/rolegate/internal/source"
	"github.com/tomtom215/rolegate/internal/supervisor"
	"github.com/tomtom215/rolegate/internal/supervisor/services"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

//nolint:gocyclo // Sequential setup steps
func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	metrics.SetBuildInfo(version)

	logging.Info().
		Str("version", version).
		Str("source_url", cfg.Source.URL).
		Str("collection", cfg.Source.Collection).
		Dur("cache_ttl", cfg.Cache.TTL).
		Str("audit_store", cfg.Audit.Store).
		Msg("Starting Rolegate")

	// === AUDIT ===

	auditComponents, err := initAudit(&cfg.Audit)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize audit trail")
	}

	// === RECORD SOURCE ===

	httpSource, err := source.NewHTTPSource(source.Config{
		BaseURL:        cfg.Source.URL,
		APIKey:         cfg.Source.APIKey,
		Collection:     cfg.Source.Collection,
		PageSize:       cfg.Source.PageSize,
		RequestTimeout: cfg.Source.RequestTimeout,
		RateLimit:      cfg.Source.RateLimit,
		Burst:          cfg.Source.RateBurst,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize record source")
	}
	breakerCfg := source.DefaultBreakerConfig()
	if cfg.Source.BreakerTimeout > 0 {
		breakerCfg.Timeout = cfg.Source.BreakerTimeout
	}
	recordSource := source.NewCircuitBreakerSource(httpSource, breakerCfg)

	// === AUTHORIZATION ===

	cache := authz.NewAuthCache(recordSource, authz.CacheConfig{
		TTL:             cfg.Cache.TTL,
		FetchOneTimeout: cfg.Cache.FetchOneTimeout,
	})
	guard := authz.NewGuard(cache, auditComponents.writer, cfg.Denials)

	registry, err := authz.NewRegistry(guard, cfg.Commands.RequiredRoles)
	if err != nil {
		logging.Fatal().Err(err).Msg("Invalid command role overrides")
	}

	controller := refresh.New(recordSource, cache, auditComponents.writer, refresh.Config{
		Interval:        cfg.RefreshInterval(),
		FetchAllTimeout: cfg.Refresh.FetchAllTimeout,
		ColdStartRetry:  cfg.Refresh.ColdStartRetry,
	})

	if err := commands.Register(registry, commands.Deps{
		Refresher: controller,
		Cache:     cache,
		Audit:     auditComponents.querier,
	}); err != nil {
		logging.Fatal().Err(err).Msg("Failed to register commands")
	}
	if err := registry.CheckOverrides(); err != nil {
		logging.Fatal().Err(err).Msg("Invalid command role overrides")
	}
	for _, route := range registry.Routes() {
		logging.Debug().Str("command", route.Name).Stringer("required", route.Required).Msg("Command registered")
	}

	// === HTTP ===

	jwtManager, err := auth.NewJWTManager(auth.JWTConfig{
		Secret: cfg.Security.JWTSecret,
		TTL:    cfg.Security.TokenTTL,
		Issuer: cfg.Security.Issuer,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize JWT manager")
	}

	router := api.NewRouter(registry, cache, auth.NewMiddleware(jwtManager), api.Config{
		RateLimitRequests: cfg.Server.RateLimitRequests,
		RateLimitWindow:   cfg.Server.RateLimitWindow,
		RateLimitDisabled: cfg.Server.RateLimitDisabled,
	})

	server := &http.Server{
		Addr:              net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)),
		Handler:           router.Handler(),
		ReadHeaderTimeout: cfg.Server.Timeout,
		ReadTimeout:       cfg.Server.Timeout,
		// Refresh may hold a request for a full fetch.
		WriteTimeout: cfg.Server.Timeout + cfg.Refresh.FetchAllTimeout,
		IdleTimeout:  2 * cfg.Server.Timeout,
	}

	// === SUPERVISOR TREE ===

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.AddCoreService(controller)
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
		err = <-errCh
	case err = <-errCh:
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	if unstopped, err := tree.UnstoppedServiceReport(); err == nil && len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}

	// Refresh and HTTP are stopped, so no more events arrive.
	auditComponents.close()
	logging.Info().Msg("Rolegate stopped")
}
