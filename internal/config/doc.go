// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

/*
Package config loads Rolegate configuration.

Configuration is layered with koanf, later layers overriding earlier ones:

 1. Built-in defaults (defaultConfig)
 2. An optional YAML file: $CONFIG_PATH, ./config.yaml, ./config.yml,
    /etc/rolegate/config.yaml or /etc/rolegate/config.yml
 3. Environment variables listed in envTransformFunc

Unlisted environment variables are ignored. Per-command role overrides
(commands.required_roles) can only be set in the file, and may only raise
the role a command declares:

	commands:
	  required_roles:
	    capabilities: coordinator
	    status: admin

Environment Variables:

	ROLE_SOURCE_URL          record store base URL (required)
	ROLE_SOURCE_API_KEY      record store API key (required)
	ROLE_SOURCE_COLLECTION   collection holding role rows (default: roles)
	ROLE_CACHE_TTL           snapshot staleness threshold (default: 5m)
	ROLE_REFRESH_INTERVAL    scheduled refresh interval (default: cache TTL)
	AUDIT_STORE              badger or memory (default: badger)
	AUDIT_PATH               badger directory (default: /data/audit)
	AUDIT_NATS_URL           publish audit events to NATS when set
	HTTP_HOST, HTTP_PORT     listen address (default: 0.0.0.0:8080)
	JWT_SECRET               token signing secret, 32+ characters (required)
	LOG_LEVEL, LOG_FORMAT    trace|debug|info|warn|error, json|console

Load validates the result; an invalid configuration is an error.
*/
package config
