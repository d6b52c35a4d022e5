// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package authz

import (
	"context"

	"github.com/tomtom215/rolegate/internal/audit"
	"github.com/tomtom215/rolegate/internal/roles"
)

type contextKey int

const (
	userIDKey contextKey = iota
	authorizationKey
)

// ContextWithUserID attaches the caller's identity. Guards use it when the
// Request itself carries no user id.
func ContextWithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the identity attached by ContextWithUserID.
func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

// Authorization describes a granted invocation. Guards attach it to the
// context passed to the wrapped handler.
type Authorization struct {
	UserID     string
	Handler    string
	Required   roles.Role
	Record     roles.Record
	CacheState audit.CacheState
	Stale      bool
}

func contextWithAuthorization(ctx context.Context, a Authorization) context.Context {
	return context.WithValue(ctx, authorizationKey, a)
}

// AuthorizationFromContext returns the grant for the running handler.
func AuthorizationFromContext(ctx context.Context) (Authorization, bool) {
	a, ok := ctx.Value(authorizationKey).(Authorization)
	return a, ok
}
