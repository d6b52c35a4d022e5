// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/rolegate/internal/logging"
	"github.com/tomtom215/rolegate/internal/metrics"
	"github.com/tomtom215/rolegate/internal/roles"
)

// BreakerConfig tunes CircuitBreakerSource.
type BreakerConfig struct {
	Name string

	// MinRequests must be observed in a window before the breaker may open.
	MinRequests uint32

	// FailureRatio at or above which the breaker opens.
	FailureRatio float64

	// Interval resets the closed-state counts.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration
}

// DefaultBreakerConfig returns the production breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "role-source",
		MinRequests:  5,
		FailureRatio: 0.6,
		Interval:     time.Minute,
		Timeout:      30 * time.Second,
	}
}

// CircuitBreakerSource wraps a RecordSource with a circuit breaker. While the
// breaker is open, calls fail fast with ErrSourceUnavailable.
//
// A PartialSyncError whose only problem is invalid rows counts as a success:
// the store answered, the data was bad.
type CircuitBreakerSource struct {
	next RecordSource
	cb   *gobreaker.CircuitBreaker[interface{}]
	name string
}

// NewCircuitBreakerSource wraps next.
func NewCircuitBreakerSource(next RecordSource, cfg BreakerConfig) *CircuitBreakerSource {
	def := DefaultBreakerConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.MinRequests == 0 {
		cfg.MinRequests = def.MinRequests
	}
	if cfg.FailureRatio <= 0 {
		cfg.FailureRatio = def.FailureRatio
	}
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}

	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cfg.Name).Set(0)

	cb := gobreaker.NewCircuitBreaker[interface{}](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			if ratio >= cfg.FailureRatio {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", ratio*100).
					Msg("[CIRCUIT BREAKER] Opening record source circuit")
				return true
			}
			return false
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var partial *PartialSyncError
			return errors.As(err, &partial) && partial.OnlyInvalidRows()
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).
				Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},
	})

	return &CircuitBreakerSource{next: next, cb: cb, name: cfg.Name}
}

// State returns the breaker state name: closed, half-open or open.
func (c *CircuitBreakerSource) State() string {
	return stateToString(c.cb.State())
}

// FetchAllActive implements FullFetcher.
func (c *CircuitBreakerSource) FetchAllActive(ctx context.Context) ([]roles.Record, error) {
	res, err := c.execute(func() (interface{}, error) {
		return c.next.FetchAllActive(ctx)
	})
	records, _ := res.([]roles.Record)
	return records, err
}

// FetchOne implements SingleFetcher.
func (c *CircuitBreakerSource) FetchOne(ctx context.Context, userID string) (*roles.Record, error) {
	res, err := c.execute(func() (interface{}, error) {
		return c.next.FetchOne(ctx, userID)
	})
	rec, _ := res.(*roles.Record)
	return rec, err
}

// execute runs fn through the breaker. Unlike a plain breaker call, the
// result is returned alongside the error so partial fetches keep their rows.
func (c *CircuitBreakerSource) execute(fn func() (interface{}, error)) (interface{}, error) {
	res, err := c.cb.Execute(fn)
	if err == nil {
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "success").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(c.name).Set(0)
		return res, nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.CircuitBreakerRequests.WithLabelValues(c.name, "rejected").Inc()
		return nil, fmt.Errorf("%w: circuit %s", ErrSourceUnavailable, err)
	}

	metrics.CircuitBreakerRequests.WithLabelValues(c.name, "failure").Inc()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(c.name).
		Set(float64(c.cb.Counts().ConsecutiveFailures))
	return res, err
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
