// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Record source

	SourceRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "role_source_requests_total",
			Help: "Requests made to the role record store",
		},
		[]string{"operation", "result"}, // operation: fetch_all, fetch_one; result: success, error, rate_limited
	)

	SourceRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "role_source_request_duration_seconds",
			Help:    "Latency of record store requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"operation"},
	)

	SourceRowsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "role_source_rows_rejected_total",
			Help: "Record store rows rejected by validation",
		},
	)

	// Circuit breaker

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests passing through the circuit breaker",
		},
		[]string{"name", "result"}, // success, failure, rejected
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Refresh cycles

	SyncCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "role_sync_cycles_total",
			Help: "Completed refresh cycles",
		},
		[]string{"trigger", "result"}, // result: success, partial, failed
	)

	SyncCycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "role_sync_cycle_duration_seconds",
			Help:    "Duration of refresh cycles",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"trigger"},
	)

	SyncRecordsFetched = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "role_sync_records_fetched",
			Help: "Records fetched by the most recent refresh cycle",
		},
	)

	SyncRecordsFailed = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "role_sync_records_failed",
			Help: "Records that failed in the most recent refresh cycle",
		},
	)

	SyncLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "role_sync_last_success_timestamp_seconds",
			Help: "Unix time of the last snapshot swap",
		},
	)

	SyncSharedWaiters = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "role_sync_shared_waiters_total",
			Help: "Refresh requests that joined a cycle already in flight",
		},
	)

	// Audit

	AuditEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_events_total",
			Help: "Audit events accepted by the writer",
		},
		[]string{"type"},
	)

	AuditBackpressure = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_backpressure_total",
			Help: "Audit writes that blocked on a full buffer",
		},
	)

	AuditPersistFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "audit_persist_failures_total",
			Help: "Audit events a store failed to persist after all attempts",
		},
		[]string{"store"},
	)

	AuditQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "audit_queue_depth",
			Help: "Audit events buffered and not yet persisted",
		},
	)

	// HTTP

	APIRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "endpoint", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	BuildInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "rolegate_build_info",
			Help: "Build information; the value is always 1",
		},
		[]string{"version"},
	)
)

// RecordSourceRequest records one record store call.
func RecordSourceRequest(operation, result string, duration time.Duration) {
	SourceRequests.WithLabelValues(operation, result).Inc()
	SourceRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordSyncCycle records the outcome of one refresh cycle.
func RecordSyncCycle(trigger, result string, duration time.Duration, fetched, failed int) {
	SyncCycles.WithLabelValues(trigger, result).Inc()
	SyncCycleDuration.WithLabelValues(trigger).Observe(duration.Seconds())
	SyncRecordsFetched.Set(float64(fetched))
	SyncRecordsFailed.Set(float64(failed))
	if result == "success" {
		SyncLastSuccess.Set(float64(time.Now().Unix()))
	}
}

// RecordAPIRequest records one served HTTP request.
func RecordAPIRequest(method, endpoint string, status int, duration time.Duration) {
	APIRequests.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// SetBuildInfo publishes the running version.
func SetBuildInfo(version string) {
	BuildInfo.WithLabelValues(version).Set(1)
}
