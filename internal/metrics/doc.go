// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

// Package metrics declares the process-wide Prometheus collectors for the
// record source, the refresh cycle, the audit pipeline and the HTTP surface.
//
// Collectors are registered with the default registry through promauto and
// exposed at /metrics by the api package. Authorization decision metrics live
// next to the code that makes the decisions, in internal/authz.
//
// Series overview:
//
//	role_source_requests_total{operation,result}
//	role_source_request_duration_seconds{operation}
//	role_source_rows_rejected_total
//	circuit_breaker_state{name}
//	circuit_breaker_requests_total{name,result}
//	circuit_breaker_consecutive_failures{name}
//	circuit_breaker_state_transitions_total{name,from_state,to_state}
//	role_sync_cycles_total{trigger,result}
//	role_sync_cycle_duration_seconds{trigger}
//	role_sync_records_fetched
//	role_sync_records_failed
//	role_sync_last_success_timestamp_seconds
//	role_sync_shared_waiters_total
//	audit_events_total{type}
//	audit_backpressure_total
//	audit_persist_failures_total{store}
//	audit_queue_depth
//	api_requests_total{method,endpoint,status}
//	api_request_duration_seconds{method,endpoint}
//	rolegate_build_info{version}
package metrics
