// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package audit

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/rolegate/internal/logging"
	"github.com/tomtom215/rolegate/internal/metrics"
)

// WriterConfig tunes the asynchronous writer.
type WriterConfig struct {
	// BufferSize is the number of events held before Write starts blocking.
	BufferSize int

	// SaveTimeout bounds a single Store.Save call.
	SaveTimeout time.Duration

	// MaxAttempts is the number of Save attempts per store and event.
	MaxAttempts int

	// RetryBackoff is multiplied by the attempt number between attempts.
	RetryBackoff time.Duration
}

// DefaultWriterConfig returns defaults suited to a single bot process.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BufferSize:   1024,
		SaveTimeout:  5 * time.Second,
		MaxAttempts:  3,
		RetryBackoff: 100 * time.Millisecond,
	}
}

// Writer is the production Sink. Events are persisted in Write order by a
// single goroutine. A full buffer blocks the producer instead of dropping.
type Writer struct {
	cfg    WriterConfig
	stores []Store
	logger zerolog.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan *Event
	done   chan struct{}
	once   sync.Once
}

// NewWriter starts a writer that fans out to stores.
func NewWriter(cfg WriterConfig, stores ...Store) *Writer {
	def := DefaultWriterConfig()
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = def.BufferSize
	}
	if cfg.SaveTimeout <= 0 {
		cfg.SaveTimeout = def.SaveTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = 0
	}

	w := &Writer{
		cfg:    cfg,
		stores: stores,
		logger: logging.WithComponent("audit"),
		queue:  make(chan *Event, cfg.BufferSize),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

// Write implements Sink. Missing ids and timestamps are filled in.
func (w *Writer) Write(event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if err := event.Validate(); err != nil {
		// Still persisted: a malformed event is a bug worth keeping evidence of.
		w.logger.Error().Err(err).Str("event_id", event.ID).Msg("Malformed audit event")
	}
	metrics.AuditEvents.WithLabelValues(string(event.Type)).Inc()

	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		w.persist(&event)
		return
	}
	select {
	case w.queue <- &event:
	default:
		metrics.AuditBackpressure.Inc()
		w.queue <- &event
	}
	metrics.AuditQueueDepth.Set(float64(len(w.queue)))
	w.mu.RUnlock()
}

// Close stops accepting buffered writes and waits until every queued event has
// been handed to the stores. Later Writes are persisted synchronously.
func (w *Writer) Close() error {
	w.once.Do(func() {
		w.mu.Lock()
		w.closed = true
		close(w.queue)
		w.mu.Unlock()
	})
	<-w.done
	return nil
}

func (w *Writer) run() {
	defer close(w.done)
	for event := range w.queue {
		w.persist(event)
		metrics.AuditQueueDepth.Set(float64(len(w.queue)))
	}
}

func (w *Writer) persist(event *Event) {
	for _, store := range w.stores {
		w.save(store, event)
	}
}

func (w *Writer) save(store Store, event *Event) {
	var err error
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), w.cfg.SaveTimeout)
		err = store.Save(ctx, event)
		cancel()
		if err == nil {
			return
		}
		if attempt < w.cfg.MaxAttempts {
			time.Sleep(time.Duration(attempt) * w.cfg.RetryBackoff)
		}
	}

	metrics.AuditPersistFailures.WithLabelValues(store.Name()).Inc()
	data, mErr := json.Marshal(event)
	if mErr != nil {
		w.logger.Error().Err(err).AnErr("marshal_error", mErr).
			Str("store", store.Name()).
			Str("event_id", event.ID).
			Msg("Audit event could not be persisted")
		return
	}
	w.logger.Error().Err(err).
		Str("store", store.Name()).
		Int("attempts", w.cfg.MaxAttempts).
		RawJSON("event", data).
		Msg("Audit event could not be persisted")
}
