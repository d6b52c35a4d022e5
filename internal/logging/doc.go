// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

// Package logging owns the process-wide zerolog logger used by every Rolegate
// component.
//
// Call Init once from main. Before that, a JSON logger at info level writing
// to stderr is installed so early startup messages are not lost.
//
//	logging.Init(logging.Config{Level: "debug", Format: "console"})
//	logging.Info().Str("collection", name).Msg("Record source configured")
//
// Request-scoped code should log through Ctx so request and correlation ids
// are attached automatically:
//
//	logging.Ctx(ctx).Warn().Err(err).Msg("Role lookup failed")
//
// Long-lived components take a child logger from WithComponent.
//
// Libraries that only speak log/slog (sutureslog) are bridged with
// NewSlogLogger, which forwards records into the same zerolog output.
//
// Always finish an event chain with Msg or Send; an unfinished chain is
// silently discarded by zerolog.
package logging
