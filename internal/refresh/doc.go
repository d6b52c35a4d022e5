// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

// Package refresh keeps the role cache in step with the record store.
//
// A Controller runs full refresh cycles on a timer and on demand. Scheduled
// and manual triggers share one single-flight key, so at most one fetch is in
// flight and a manual request made during a scheduled cycle receives that
// cycle's outcome instead of starting another.
//
// A cycle swaps the snapshot only when the fetch is complete. Partial fetches
// and store outages leave the previous snapshot serving. Each cycle writes one
// sync_cycle audit event.
//
// The Controller is a suture.Service:
//
//	ctrl := refresh.New(src, cache, auditWriter, refresh.DefaultConfig())
//	tree.AddCoreService(ctrl)
package refresh
