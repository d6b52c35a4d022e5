// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package config

import (
	"time"

	"github.com/tomtom215/rolegate/internal/authz"
)

// Config holds all application configuration
type Config struct {
	Source   SourceConfig         `koanf:"source"`
	Cache    CacheConfig          `koanf:"cache"`
	Refresh  RefreshConfig        `koanf:"refresh"`
	Audit    AuditConfig          `koanf:"audit"`
	Denials  authz.DenialMessages `koanf:"denials"`
	Commands CommandsConfig       `koanf:"commands"`
	Server   ServerConfig         `koanf:"server"`
	Security SecurityConfig       `koanf:"security"`
	Logging  LoggingConfig        `koanf:"logging"`
}

// SourceConfig describes the record store.
type SourceConfig struct {
	URL            string        `koanf:"url"`
	APIKey         string        `koanf:"api_key"`
	Collection     string        `koanf:"collection"`
	PageSize       int           `koanf:"page_size"`
	RequestTimeout time.Duration `koanf:"request_timeout"`

	// RateLimit is outbound requests per second; 0 disables throttling.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	// BreakerTimeout is how long the circuit stays open before probing.
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

// CacheConfig configures the role cache.
type CacheConfig struct {
	TTL             time.Duration `koanf:"ttl"`
	FetchOneTimeout time.Duration `koanf:"fetch_one_timeout"`
}

// RefreshConfig configures refresh cycles. A zero Interval uses Cache.TTL.
type RefreshConfig struct {
	Interval        time.Duration `koanf:"interval"`
	FetchAllTimeout time.Duration `koanf:"fetch_all_timeout"`
	ColdStartRetry  time.Duration `koanf:"cold_start_retry"`
}

// Audit store kinds.
const (
	AuditStoreBadger = "badger"
	AuditStoreMemory = "memory"
)

// AuditConfig configures audit persistence.
type AuditConfig struct {
	Store string `koanf:"store"`
	Path  string `koanf:"path"`

	// Retention expires badger entries; 0 keeps them forever.
	Retention time.Duration `koanf:"retention"`

	MemoryCapacity int           `koanf:"memory_capacity"`
	BufferSize     int           `koanf:"buffer_size"`
	SaveTimeout    time.Duration `koanf:"save_timeout"`
	MaxAttempts    int           `koanf:"max_attempts"`

	// LogEvents also writes every event to the application log.
	LogEvents bool `koanf:"log_events"`

	NATSURL         string `koanf:"nats_url"`
	NATSJetStream   bool   `koanf:"nats_jetstream"`
	NATSTopicPrefix string `koanf:"nats_topic_prefix"`
}

// CommandsConfig holds per-command settings.
type CommandsConfig struct {
	// RequiredRoles overrides the role a command declares, by name.
	RequiredRoles map[string]string `koanf:"required_roles"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Host              string        `koanf:"host"`
	Port              int           `koanf:"port"`
	Timeout           time.Duration `koanf:"timeout"`
	ShutdownTimeout   time.Duration `koanf:"shutdown_timeout"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// SecurityConfig holds token settings.
type SecurityConfig struct {
	JWTSecret string        `koanf:"jwt_secret"`
	TokenTTL  time.Duration `koanf:"token_ttl"`
	Issuer    string        `koanf:"issuer"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// RefreshInterval returns the effective scheduled refresh interval.
func (c *Config) RefreshInterval() time.Duration {
	if c.Refresh.Interval > 0 {
		return c.Refresh.Interval
	}
	return c.Cache.TTL
}
