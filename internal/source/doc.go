// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

// Package source reads role records from the external record store.
//
// The store is a slow, rate-limited, spreadsheet-like service reached over
// HTTP. Consumers depend only on the RecordSource interface (or its
// single-method halves FullFetcher and SingleFetcher):
//
//	records, err := src.FetchAllActive(ctx)  // full refresh
//	rec, err := src.FetchOne(ctx, userID)     // cache miss; nil, nil when absent
//
// Error taxonomy:
//
//   - ErrSourceUnavailable: the store could not be reached, timed out, throttled
//     the request or answered with a server error. Callers keep whatever data
//     they already have.
//   - *PartialSyncError: a full fetch returned some rows but not all of them, or
//     some rows failed validation. The result must not replace a snapshot.
//
// HTTPSource performs exactly one attempt per call and never retries; the
// refresh schedule is the retry policy. CircuitBreakerSource stops calling a
// store that keeps failing.
package source
