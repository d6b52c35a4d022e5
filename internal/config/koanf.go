// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/rolegate/internal/authz"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/rolegate/config.yaml",
	"/etc/rolegate/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config struct with all sensible default values.
// These defaults are applied first, then overridden by config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Source: SourceConfig{
			Collection:     "roles",
			PageSize:       200,
			RequestTimeout: 10 * time.Second,
			RateLimit:      5,
			RateBurst:      5,
			BreakerTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			TTL:             5 * time.Minute,
			FetchOneTimeout: 2 * time.Second,
		},
		Refresh: RefreshConfig{
			Interval:        0, // follows cache.ttl
			FetchAllTimeout: 30 * time.Second,
			ColdStartRetry:  15 * time.Second,
		},
		Audit: AuditConfig{
			Store:           AuditStoreBadger,
			Path:            "/data/audit",
			Retention:       90 * 24 * time.Hour,
			MemoryCapacity:  10000,
			BufferSize:      1024,
			SaveTimeout:     5 * time.Second,
			MaxAttempts:     3,
			LogEvents:       true,
			NATSTopicPrefix: "rolegate.audit",
		},
		Denials: authz.DefaultDenialMessages(),
		Commands: CommandsConfig{
			RequiredRoles: map[string]string{},
		},
		Server: ServerConfig{
			Host:              "0.0.0.0",
			Port:              8080,
			Timeout:           30 * time.Second,
			ShutdownTimeout:   10 * time.Second,
			RateLimitRequests: 60,
			RateLimitWindow:   time.Minute,
		},
		Security: SecurityConfig{
			TokenTTL: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from defaults, the config file and the
// environment, then validates it.
func Load() (*Config, error) {
	return load(findConfigFile())
}

// LoadFile is Load with an explicit config file path.
func LoadFile(path string) (*Config, error) {
	return load(path)
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envMappings maps environment variables (lowercased) to koanf paths.
var envMappings = map[string]string{
	"role_source_url":             "source.url",
	"role_source_api_key":         "source.api_key",
	"role_source_collection":      "source.collection",
	"role_source_page_size":       "source.page_size",
	"role_source_timeout":         "source.request_timeout",
	"role_source_rate_limit":      "source.rate_limit",
	"role_source_rate_burst":      "source.rate_burst",
	"role_source_breaker_timeout": "source.breaker_timeout",

	"role_cache_ttl":               "cache.ttl",
	"role_cache_fetch_one_timeout": "cache.fetch_one_timeout",

	"role_refresh_interval":          "refresh.interval",
	"role_refresh_fetch_all_timeout": "refresh.fetch_all_timeout",
	"role_refresh_cold_start_retry":  "refresh.cold_start_retry",

	"audit_store":             "audit.store",
	"audit_path":              "audit.path",
	"audit_retention":         "audit.retention",
	"audit_memory_capacity":   "audit.memory_capacity",
	"audit_buffer_size":       "audit.buffer_size",
	"audit_save_timeout":      "audit.save_timeout",
	"audit_max_attempts":      "audit.max_attempts",
	"audit_log_events":        "audit.log_events",
	"audit_nats_url":          "audit.nats_url",
	"audit_nats_jetstream":    "audit.nats_jetstream",
	"audit_nats_topic_prefix": "audit.nats_topic_prefix",

	"denial_viewer":      "denials.viewer",
	"denial_coordinator": "denials.coordinator",
	"denial_admin":       "denials.admin",

	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",
	"rate_limit_requests":   "server.rate_limit_requests",
	"rate_limit_window":     "server.rate_limit_window",
	"disable_rate_limit":    "server.rate_limit_disabled",

	"jwt_secret":   "security.jwt_secret",
	"token_ttl":    "security.token_ttl",
	"token_issuer": "security.issuer",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to koanf paths.
// Unmapped keys return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
