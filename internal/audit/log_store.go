// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package audit

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// LogStore writes each event as one structured log line. Denials and failed
// refreshes are logged at warn level.
type LogStore struct {
	logger zerolog.Logger
}

// NewLogStore creates a LogStore writing to logger.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewLogStore(logger zerolog.Logger) *LogStore {
	return &LogStore{logger: logger}
}

// Name implements Store.
func (s *LogStore) Name() string { return "log" }

// Save implements Store.
func (s *LogStore) Save(_ context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	level, msg := zerolog.InfoLevel, "Audit event"
	switch {
	case event.Access != nil && event.Access.Result == ResultDeny:
		level, msg = zerolog.WarnLevel, "Access denied"
	case event.Access != nil:
		msg = "Access allowed"
	case event.Sync != nil && event.Sync.Error != "":
		level, msg = zerolog.WarnLevel, "Role refresh failed"
	case event.Sync != nil:
		msg = "Role refresh completed"
	}

	s.logger.WithLevel(level).
		Str("audit_type", string(event.Type)).
		Str("event_id", event.ID).
		RawJSON("audit", data).
		Msg(msg)
	return nil
}
