// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

// Package audit records every authorization decision and every role refresh.
//
// Two event kinds flow through the package:
//
//   - access_attempt: one per guarded handler invocation, allowed or denied
//   - sync_cycle: one per refresh cycle, whatever its trigger or outcome
//
// Producers call Sink.Write, which never blocks on I/O and never discards an
// event. The Writer implementation buffers events in order, applies
// backpressure when the buffer is full, and fans each event out to one or more
// Stores:
//
//   - LogStore writes a structured zerolog line per event
//   - BadgerStore keeps an ordered durable log that can be queried
//   - MemoryStore keeps a bounded in-process history for development
//   - PublisherStore forwards events to a watermill publisher (NATS with -tags nats)
//
// A store that keeps failing after its retry budget causes the complete event
// to be logged at error level, so a lost write is always visible.
package audit
