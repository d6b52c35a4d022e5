// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

/*
Package api exposes the command registry over HTTP using the Chi router.

Routes:

	GET  /api/v1/health/live       liveness, always 200
	GET  /api/v1/health/ready      200 once the role cache is warm, else 503
	GET  /metrics                  Prometheus exposition
	GET  /api/v1/commands          registered commands and their required roles
	POST /api/v1/commands/{name}   run a command, body {"args":["..."]}
	POST /api/v1/admin/refresh     same as POST /api/v1/commands/refresh

Command routes require a bearer token (see package auth). The token subject is
the user id the guard resolves. Status codes:

	200  allowed; {"allowed":true,"text":"...","data":...}
	400  malformed body or command arguments
	401  missing or invalid token
	403  denied; {"allowed":false,"message":"..."}
	404  unknown command
	500  the command failed

Denial messages are the configured per-tier copy. Internal error detail is
logged, never returned.
*/
package api
