// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tomtom215/rolegate/internal/auth"
	"github.com/tomtom215/rolegate/internal/logging"
	"github.com/tomtom215/rolegate/internal/roles"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	if err := c.validateRefresh(); err != nil {
		return err
	}
	if err := c.validateAudit(); err != nil {
		return err
	}
	if err := c.validateCommands(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateSource() error {
	if c.Source.URL == "" {
		return fmt.Errorf("ROLE_SOURCE_URL is required")
	}
	u, err := url.Parse(c.Source.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("ROLE_SOURCE_URL must be an http(s) URL, got %q", c.Source.URL)
	}
	if c.Source.APIKey == "" {
		return fmt.Errorf("ROLE_SOURCE_API_KEY is required")
	}
	if strings.TrimSpace(c.Source.Collection) == "" {
		return fmt.Errorf("ROLE_SOURCE_COLLECTION must not be empty")
	}
	if c.Source.PageSize < 1 || c.Source.PageSize > 1000 {
		return fmt.Errorf("ROLE_SOURCE_PAGE_SIZE must be between 1 and 1000, got %d", c.Source.PageSize)
	}
	if err := positive("ROLE_SOURCE_TIMEOUT", c.Source.RequestTimeout); err != nil {
		return err
	}
	if c.Source.RateLimit < 0 {
		return fmt.Errorf("ROLE_SOURCE_RATE_LIMIT must not be negative")
	}
	if c.Source.RateLimit > 0 && c.Source.RateBurst < 1 {
		return fmt.Errorf("ROLE_SOURCE_RATE_BURST must be at least 1 when a rate limit is set")
	}
	return positive("ROLE_SOURCE_BREAKER_TIMEOUT", c.Source.BreakerTimeout)
}

func (c *Config) validateCache() error {
	if err := positive("ROLE_CACHE_TTL", c.Cache.TTL); err != nil {
		return err
	}
	return positive("ROLE_CACHE_FETCH_ONE_TIMEOUT", c.Cache.FetchOneTimeout)
}

func (c *Config) validateRefresh() error {
	if c.Refresh.Interval < 0 {
		return fmt.Errorf("ROLE_REFRESH_INTERVAL must not be negative")
	}
	if err := positive("ROLE_REFRESH_FETCH_ALL_TIMEOUT", c.Refresh.FetchAllTimeout); err != nil {
		return err
	}
	return positive("ROLE_REFRESH_COLD_START_RETRY", c.Refresh.ColdStartRetry)
}

func (c *Config) validateAudit() error {
	switch c.Audit.Store {
	case AuditStoreBadger:
		if c.Audit.Path == "" {
			return fmt.Errorf("AUDIT_PATH is required when AUDIT_STORE=badger")
		}
	case AuditStoreMemory:
		if c.Audit.MemoryCapacity < 1 {
			return fmt.Errorf("AUDIT_MEMORY_CAPACITY must be at least 1")
		}
	default:
		return fmt.Errorf("AUDIT_STORE must be %q or %q, got %q", AuditStoreBadger, AuditStoreMemory, c.Audit.Store)
	}
	if c.Audit.Retention < 0 {
		return fmt.Errorf("AUDIT_RETENTION must not be negative")
	}
	if c.Audit.BufferSize < 1 {
		return fmt.Errorf("AUDIT_BUFFER_SIZE must be at least 1")
	}
	if c.Audit.MaxAttempts < 1 {
		return fmt.Errorf("AUDIT_MAX_ATTEMPTS must be at least 1")
	}
	if err := positive("AUDIT_SAVE_TIMEOUT", c.Audit.SaveTimeout); err != nil {
		return err
	}
	if c.Audit.NATSURL != "" && strings.TrimSpace(c.Audit.NATSTopicPrefix) == "" {
		return fmt.Errorf("AUDIT_NATS_TOPIC_PREFIX is required when AUDIT_NATS_URL is set")
	}
	return nil
}

// validateCommands checks override role names. Whether each named command
// exists is checked once commands are registered.
func (c *Config) validateCommands() error {
	names := make([]string, 0, len(c.Commands.RequiredRoles))
	for name := range c.Commands.RequiredRoles {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, err := roles.ParseRole(c.Commands.RequiredRoles[name]); err != nil {
			return fmt.Errorf("commands.required_roles.%s: %w", name, err)
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if err := positive("HTTP_TIMEOUT", c.Server.Timeout); err != nil {
		return err
	}
	if err := positive("HTTP_SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout); err != nil {
		return err
	}
	if c.Server.RateLimitDisabled {
		return nil
	}
	if c.Server.RateLimitRequests < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
	}
	return positive("RATE_LIMIT_WINDOW", c.Server.RateLimitWindow)
}

func (c *Config) validateSecurity() error {
	if len(c.Security.JWTSecret) < auth.MinSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters", auth.MinSecretLength)
	}
	return positive("TOKEN_TTL", c.Security.TokenTTL)
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}

func positive(name string, d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", name, d)
	}
	return nil
}
