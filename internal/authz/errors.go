// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package authz

import (
	"errors"
	"fmt"
)

var (
	// ErrCacheNotReady means no full refresh has succeeded yet.
	ErrCacheNotReady = errors.New("role cache not ready")

	// ErrMissingUserID means the request carried no user identity.
	ErrMissingUserID = errors.New("request has no user id")

	// ErrUnknownCommand is returned by Registry.Invoke for unregistered names.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrResolverPanic wraps a panic recovered from the role resolver.
	ErrResolverPanic = errors.New("role resolver panicked")
)

// ConfigurationError reports a route that cannot be guarded. It is raised at
// registration, never per request.
type ConfigurationError struct {
	Handler string
	Role    string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	if e.Role != "" {
		return fmt.Sprintf("authz configuration: handler %q role %q: %s", e.Handler, e.Role, e.Reason)
	}
	return fmt.Sprintf("authz configuration: handler %q: %s", e.Handler, e.Reason)
}

// IsConfigurationError reports whether err is or wraps a *ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}
