// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

/*
Package main is the entry point for the Rolegate server.

Rolegate keeps an in-memory snapshot of user roles read from an external
record store and guards every bot command with a role check. Each decision is
written to the audit trail.

# Application Architecture

	RootSupervisor ("rolegate")
	├── CoreSupervisor ("core-layer")
	│   └── role-refresh (warm-up, then scheduled full refreshes)
	└── APISupervisor ("api-layer")
	    └── http-server (Chi router, command endpoints)

Component initialization order:

 1. Configuration: Koanf v2 with defaults, config file and environment
 2. Logging: zerolog with JSON or console output
 3. Audit: asynchronous writer over badger or memory, plus optional log
    and NATS publication
 4. Record source: HTTP client behind a circuit breaker
 5. Authorization: role cache, guard and command registry
 6. Refresh controller
 7. Supervisor tree and HTTP server

A configuration error, such as a command override naming an unknown role or
command, stops the process before anything is served.

# Configuration

	ROLE_SOURCE_URL=https://sheets.example.com
	ROLE_SOURCE_API_KEY=<key>
	ROLE_CACHE_TTL=5m
	AUDIT_STORE=badger           # badger or memory
	AUDIT_PATH=/data/audit
	AUDIT_NATS_URL=nats://nats:4222   # requires -tags nats
	JWT_SECRET=<32+ chars>
	HTTP_PORT=8080
	LOG_LEVEL=info

# Building

	go build -o rolegate ./cmd/server
	go build -tags nats -o rolegate ./cmd/server

# Shutdown

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains, the
refresh loop stops, then the audit writer flushes its queue and the badger
store is closed.
*/
package main
