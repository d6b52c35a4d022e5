// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package main

import (
	"errors"
	"fmt"

	"github.com/tomtom215/rolegate/internal/audit"
	"github.com/tomtom215/rolegate/internal/config"
	"github.com/tomtom215/rolegate/internal/logging"
)

// auditComponents is the audit pipeline and what must be closed after it.
type auditComponents struct {
	writer  *audit.Writer
	querier audit.Querier
	closers []func() error
}

// initAudit builds the configured stores and starts the writer. The primary
// store (badger or memory) also serves audit queries.
func initAudit(cfg *config.AuditConfig) (*auditComponents, error) {
	c := &auditComponents{}
	var stores []audit.Store

	switch cfg.Store {
	case config.AuditStoreBadger:
		db, err := audit.OpenBadger(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open audit store: %w", err)
		}
		store, err := audit.NewBadgerStore(db, cfg.Retention)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("audit store: %w", err)
		}
		stores = append(stores, store)
		c.querier = store
		// Closed in reverse: sequence lease first, then the database.
		c.closers = append(c.closers, db.Close, store.Close)
		logging.Info().Str("path", cfg.Path).Dur("retention", cfg.Retention).Msg("Audit events persisted to badger")
	default:
		store := audit.NewMemoryStore(cfg.MemoryCapacity)
		stores = append(stores, store)
		c.querier = store
		logging.Warn().Int("capacity", cfg.MemoryCapacity).Msg("Audit events kept in memory only")
	}

	if cfg.LogEvents {
		stores = append(stores, audit.NewLogStore(logging.WithComponent("audit")))
	}

	if cfg.NATSURL != "" {
		pub, err := audit.NewNATSPublisher(audit.NATSConfig{URL: cfg.NATSURL, JetStream: cfg.NATSJetStream})
		switch {
		case errors.Is(err, audit.ErrNATSUnavailable):
			logging.Warn().Msg("AUDIT_NATS_URL is set but NATS support is not compiled (build with -tags nats)")
		case err != nil:
			c.close()
			return nil, fmt.Errorf("audit publisher: %w", err)
		default:
			store := audit.NewPublisherStore(pub, cfg.NATSTopicPrefix)
			stores = append(stores, store)
			c.closers = append(c.closers, store.Close)
			logging.Info().Str("url", cfg.NATSURL).Bool("jetstream", cfg.NATSJetStream).Msg("Audit events published to NATS")
		}
	}

	wcfg := audit.DefaultWriterConfig()
	if cfg.BufferSize > 0 {
		wcfg.BufferSize = cfg.BufferSize
	}
	if cfg.SaveTimeout > 0 {
		wcfg.SaveTimeout = cfg.SaveTimeout
	}
	if cfg.MaxAttempts > 0 {
		wcfg.MaxAttempts = cfg.MaxAttempts
	}
	c.writer = audit.NewWriter(wcfg, stores...)
	return c, nil
}

// close drains the writer, then closes the stores.
func (c *auditComponents) close() {
	if c.writer != nil {
		if err := c.writer.Close(); err != nil {
			logging.Error().Err(err).Msg("Audit writer close failed")
		}
	}
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			logging.Error().Err(err).Msg("Audit store close failed")
		}
	}
}
