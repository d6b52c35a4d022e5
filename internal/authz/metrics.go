// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package authz

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tomtom215/rolegate/internal/audit"
	"github.com/tomtom215/rolegate/internal/roles"
)

var (
	// Decisions

	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Authorization decisions by required role, result and reason",
		},
		[]string{"required_role", "result", "reason"},
	)

	decisionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "authz_decision_duration_seconds",
			Help: "Time spent authorizing a command, including any miss-fill fetch",
			// Hits are microseconds; miss-fills are bounded by the fetch timeout.
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		},
		[]string{"cache_state"},
	)

	resolveAnomalies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_resolve_anomalies_total",
			Help: "Role resolutions that failed and were treated as no record",
		},
		[]string{"kind"}, // not_ready, missing_user, source_error, panic
	)

	configurationErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authz_configuration_errors_total",
			Help: "Routes rejected at registration",
		},
	)

	// Cache

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_cache_lookups_total",
			Help: "Role cache lookups by cache state",
		},
		[]string{"state"},
	)

	cacheFills = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authz_cache_fills_total",
			Help: "Records patched into the snapshot after a miss",
		},
	)

	stalePatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authz_cache_stale_patches_total",
			Help: "Miss fills discarded because a full refresh published a newer snapshot",
		},
	)

	staleHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "authz_cache_stale_hits_total",
			Help: "Hits served from a snapshot older than the TTL",
		},
	)

	cacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "authz_cache_entries",
			Help: "Records in the current snapshot",
		},
	)

	cacheGeneration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "authz_cache_generation",
			Help: "Number of snapshots published since start",
		},
	)
)

func recordDecision(required roles.Role, d Decision, state audit.CacheState, elapsed time.Duration) {
	result := string(audit.ResultDeny)
	if d.Allowed {
		result = string(audit.ResultAllow)
	}
	decisionsTotal.WithLabelValues(required.String(), result, string(d.Reason)).Inc()
	decisionDuration.WithLabelValues(string(state)).Observe(elapsed.Seconds())
}
