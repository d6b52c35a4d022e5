// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

// Package authz decides whether a user may invoke a bot command.
//
// # Components
//
//   - AuthCache holds an immutable snapshot of role records behind an atomic
//     pointer. Lookups are lock-free; full refreshes swap the pointer; a miss
//     triggers one bounded single-user fetch whose result is patched in.
//   - Evaluate is the pure decision function: no record, revoked, insufficient
//     role, or granted.
//   - Guard wraps a handler with a required role. Every invocation resolves,
//     evaluates, writes exactly one access_attempt audit event, and then either
//     calls the handler or returns a *Denial.
//   - Registry composes guards at registration time and dispatches commands by
//     name. It rejects misconfigured routes with *ConfigurationError before
//     the bot starts serving.
//   - CapabilityPolicy is a casbin role-inheritance index built from the
//     registered routes, used to list what each tier may run.
//
// # Fail-closed rules
//
// A user is denied when the cache has never been filled, when the record
// store cannot be reached on a miss, when the resolver returns an error or
// panics, and when no user id is present. Denials carry only the configured
// per-tier message; the cause goes to the audit event and the log.
//
// # Usage
//
//	cache := authz.NewAuthCache(src, authz.DefaultCacheConfig())
//	guard := authz.NewGuard(cache, auditWriter, authz.DefaultDenialMessages())
//	reg, _ := authz.NewRegistry(guard, nil)
//	reg.MustRegister(authz.Route{Name: "export", Required: roles.Coordinator, Handler: exportHandler})
//
//	resp, err := reg.Invoke(ctx, "export", authz.Request{UserID: "1234"})
//	if d, ok := authz.AsDenial(err); ok {
//	    reply(d.Message)
//	}
package authz
