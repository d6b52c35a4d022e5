// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package refresh

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/rolegate/internal/audit"
	"github.com/tomtom215/rolegate/internal/logging"
	"github.com/tomtom215/rolegate/internal/metrics"
	"github.com/tomtom215/rolegate/internal/roles"
	"github.com/tomtom215/rolegate/internal/source"
)

const flightKey = "full-refresh"

// SnapshotTarget receives complete snapshots. *authz.AuthCache implements it.
type SnapshotTarget interface {
	ReplaceSnapshot(records []roles.Record) int
	Ready() bool
}

// Config controls cycle timing.
type Config struct {
	// Interval between scheduled cycles once the cache is warm.
	Interval time.Duration

	// FetchAllTimeout bounds one full fetch.
	FetchAllTimeout time.Duration

	// ColdStartRetry replaces Interval until the first successful cycle.
	ColdStartRetry time.Duration
}

// DefaultConfig returns a 5 minute interval, a 30 second fetch budget and a
// 15 second cold start retry.
func DefaultConfig() Config {
	return Config{
		Interval:        5 * time.Minute,
		FetchAllTimeout: 30 * time.Second,
		ColdStartRetry:  15 * time.Second,
	}
}

// Outcome summarizes one cycle.
type Outcome struct {
	Trigger        audit.Trigger
	StartedAt      time.Time
	Duration       time.Duration
	RecordsFetched int
	RecordsFailed  int
	Swapped        bool

	// Shared is set for callers that joined a cycle started by someone else.
	Shared bool

	Err error
}

// Controller runs refresh cycles.
type Controller struct {
	src   source.FullFetcher
	cache SnapshotTarget
	sink  audit.Sink
	cfg   Config
	now   func() time.Time

	group singleflight.Group

	mu      sync.RWMutex
	last    Outcome
	hasLast bool
}

// New creates a controller. Zero config fields take their defaults.
func New(src source.FullFetcher, cache SnapshotTarget, sink audit.Sink, cfg Config) *Controller {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.FetchAllTimeout <= 0 {
		cfg.FetchAllTimeout = def.FetchAllTimeout
	}
	if cfg.ColdStartRetry <= 0 {
		cfg.ColdStartRetry = def.ColdStartRetry
	}
	return &Controller{src: src, cache: cache, sink: sink, cfg: cfg, now: time.Now}
}

// Refresh runs a cycle, or waits for the one already in flight.
//
// The cycle does not inherit ctx cancellation. If ctx ends first, Refresh
// returns ctx.Err() and the cycle carries on for everyone else.
func (c *Controller) Refresh(ctx context.Context, trigger audit.Trigger) (Outcome, error) {
	var led bool
	ch := c.group.DoChan(flightKey, func() (interface{}, error) {
		led = true
		return c.cycle(ctx, trigger), nil
	})

	select {
	case <-ctx.Done():
		return Outcome{Trigger: trigger, Err: ctx.Err()}, ctx.Err()
	case r := <-ch:
		o := r.Val.(Outcome)
		if !led {
			o.Shared = true
			metrics.SyncSharedWaiters.Inc()
		}
		return o, o.Err
	}
}

// cycle performs one fetch-validate-swap pass and records it.
func (c *Controller) cycle(parent context.Context, trigger audit.Trigger) Outcome {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), c.cfg.FetchAllTimeout)
	defer cancel()

	start := c.now()
	records, err := c.src.FetchAllActive(ctx)
	o := Outcome{Trigger: trigger, StartedAt: start, Err: err}

	result := "success"
	var partial *source.PartialSyncError
	switch {
	case err == nil:
		c.cache.ReplaceSnapshot(records)
		o.RecordsFetched = len(records)
		o.Swapped = true
	case errors.As(err, &partial):
		result = "partial"
		o.RecordsFetched = partial.Fetched
		o.RecordsFailed = partial.Failed
	default:
		result = "failed"
	}
	o.Duration = c.now().Sub(start)

	ev := audit.NewSyncEvent(audit.SyncCycle{
		Trigger:        trigger,
		StartedAt:      start.UTC(),
		DurationMS:     o.Duration.Milliseconds(),
		RecordsFetched: o.RecordsFetched,
		RecordsFailed:  o.RecordsFailed,
		Swapped:        o.Swapped,
	})
	if err != nil {
		ev.Sync.Error = err.Error()
	}
	ev.RequestID = logging.RequestIDFromContext(parent)
	c.sink.Write(ev)

	metrics.RecordSyncCycle(string(trigger), result, o.Duration, o.RecordsFetched, o.RecordsFailed)
	c.log(parent, o, result)

	c.mu.Lock()
	c.last, c.hasLast = o, true
	c.mu.Unlock()
	return o
}

func (c *Controller) log(ctx context.Context, o Outcome, result string) {
	level := zerolog.InfoLevel
	if o.Err != nil {
		level = zerolog.WarnLevel
	}
	logging.Ctx(ctx).WithLevel(level).
		Err(o.Err).
		Str("component", "refresh").
		Str("trigger", string(o.Trigger)).
		Str("result", result).
		Int("records_fetched", o.RecordsFetched).
		Int("records_failed", o.RecordsFailed).
		Bool("swapped", o.Swapped).
		Dur("duration", o.Duration).
		Msg("Role refresh cycle finished")
}

// Last returns the most recent completed cycle.
func (c *Controller) Last() (Outcome, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.last, c.hasLast
}

// Serve implements suture.Service. It refreshes immediately, then on a timer
// until ctx is canceled.
func (c *Controller) Serve(ctx context.Context) error {
	logging.Info().
		Dur("interval", c.cfg.Interval).
		Dur("cold_start_retry", c.cfg.ColdStartRetry).
		Msg("Role refresh controller started")

	_, _ = c.Refresh(ctx, audit.TriggerScheduled)

	timer := time.NewTimer(c.nextDelay())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Role refresh controller stopped")
			return ctx.Err()
		case <-timer.C:
			_, _ = c.Refresh(ctx, audit.TriggerScheduled)
			timer.Reset(c.nextDelay())
		}
	}
}

func (c *Controller) nextDelay() time.Duration {
	if !c.cache.Ready() {
		return c.cfg.ColdStartRetry
	}
	return c.cfg.Interval
}

// String implements fmt.Stringer for suture logs.
func (c *Controller) String() string {
	return "role-refresh"
}
