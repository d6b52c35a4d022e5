// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

// Package commands provides the built-in bot commands.
//
//	refresh       admin        run a manual role refresh and report it
//	whoami        viewer       show the caller's resolved role
//	capabilities  viewer       list the commands the caller's tier can run
//	status        coordinator  cache snapshot and last refresh
//	audit         admin        recent audit events
//
// Every command is registered through an authz.Registry, so each goes through
// its guard and emits one access_attempt event.
package commands
