// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

/*
Package auth identifies callers of the HTTP command surface.

A caller presents an HS256 JWT whose subject is their user id, either as an
Authorization: Bearer header or as a "token" cookie. The Middleware verifies
the token and places the subject in the request context with
authz.ContextWithUserID. Identity is all this package establishes: what the
caller may do is decided by authz guards from the role cache, never from
token claims.

Usage Example:

	jwtManager, err := auth.NewJWTManager(auth.JWTConfig{
	    Secret: cfg.Security.JWTSecret,
	    TTL:    cfg.Security.TokenTTL,
	})
	if err != nil {
	    log.Fatal(err)
	}
	mw := auth.NewMiddleware(jwtManager)
	r.With(mw.Authenticate).Post("/api/v1/commands/{name}", h.Invoke)

Tokens for bot integrations are minted with GenerateToken:

	token, err := jwtManager.GenerateToken("1234567890")
*/
package auth
