// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package authz

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/rolegate/internal/audit"
	"github.com/tomtom215/rolegate/internal/logging"
	"github.com/tomtom215/rolegate/internal/roles"
	"github.com/tomtom215/rolegate/internal/source"
)

// CacheConfig configures an AuthCache.
type CacheConfig struct {
	// TTL is the snapshot age after which hits are flagged stale. Stale
	// records are still served until the next successful refresh.
	TTL time.Duration

	// FetchOneTimeout bounds the synchronous lookup made on a miss.
	FetchOneTimeout time.Duration
}

// DefaultCacheConfig returns a 5 minute TTL and a 2 second miss budget.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		TTL:             5 * time.Minute,
		FetchOneTimeout: 2 * time.Second,
	}
}

// snapshot is immutable once published.
type snapshot struct {
	records     map[string]roles.Record
	refreshedAt time.Time
	warm        bool
	generation  uint64
}

// Resolution is the result of a cache lookup.
type Resolution struct {
	// Record is nil when the user has no record.
	Record *roles.Record
	State  audit.CacheState

	// Stale is set on hits served from a snapshot older than the TTL.
	Stale bool

	// RefreshedAt and Generation identify the snapshot the lookup was
	// served from.
	RefreshedAt time.Time
	Generation  uint64
}

// CacheStats describes the current snapshot.
type CacheStats struct {
	Ready       bool      `json:"ready"`
	Entries     int       `json:"entries"`
	Active      int       `json:"active"`
	RefreshedAt time.Time `json:"refreshed_at"`
	AgeSeconds  float64   `json:"age_seconds"`
	Stale       bool      `json:"stale"`
	Generation  uint64    `json:"generation"`
}

// AuthCache serves role lookups from an in-memory snapshot.
//
// Readers never lock. Writers (ReplaceSnapshot and miss-fill patches) are
// serialized and publish a fresh copy, so a reader sees either the old or the
// new snapshot, never a mixture.
type AuthCache struct {
	fetcher      source.SingleFetcher
	ttl          time.Duration
	fetchTimeout time.Duration
	now          func() time.Time

	current atomic.Pointer[snapshot]
	writeMu sync.Mutex
}

// NewAuthCache creates an empty, cold cache. fetcher serves misses.
func NewAuthCache(fetcher source.SingleFetcher, cfg CacheConfig) *AuthCache {
	def := DefaultCacheConfig()
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.FetchOneTimeout <= 0 {
		cfg.FetchOneTimeout = def.FetchOneTimeout
	}

	c := &AuthCache{
		fetcher:      fetcher,
		ttl:          cfg.TTL,
		fetchTimeout: cfg.FetchOneTimeout,
		now:          time.Now,
	}
	c.current.Store(&snapshot{records: map[string]roles.Record{}})
	return c
}

// TTL returns the configured staleness threshold.
func (c *AuthCache) TTL() time.Duration {
	return c.ttl
}

// Resolve returns the role record for userID.
//
// Before the first successful full refresh it returns ErrCacheNotReady. On a
// miss it performs one bounded FetchOne: an active record is patched into the
// snapshot and returned as miss_then_fetched; an inactive record is returned
// but not cached; absence and fetch errors are returned as a nil record and
// are never cached.
func (c *AuthCache) Resolve(ctx context.Context, userID string) (Resolution, error) {
	snap := c.current.Load()
	if !snap.warm {
		cacheLookups.WithLabelValues(string(audit.CacheMiss)).Inc()
		return Resolution{State: audit.CacheMiss, Generation: snap.generation}, ErrCacheNotReady
	}

	if rec, ok := snap.records[userID]; ok {
		stale := c.now().Sub(snap.refreshedAt) > c.ttl
		cacheLookups.WithLabelValues(string(audit.CacheHit)).Inc()
		if stale {
			staleHits.Inc()
		}
		return Resolution{Record: &rec, State: audit.CacheHit, Stale: stale, RefreshedAt: snap.refreshedAt, Generation: snap.generation}, nil
	}

	return c.fill(ctx, userID, snap.generation)
}

func (c *AuthCache) fill(ctx context.Context, userID string, gen uint64) (Resolution, error) {
	if c.fetcher == nil {
		cacheLookups.WithLabelValues(string(audit.CacheMiss)).Inc()
		return Resolution{State: audit.CacheMiss, Generation: gen}, nil
	}

	fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	defer cancel()

	rec, err := c.fetcher.FetchOne(fctx, userID)
	if err != nil {
		cacheLookups.WithLabelValues(string(audit.CacheMiss)).Inc()
		return Resolution{State: audit.CacheMiss, Generation: gen}, fmt.Errorf("fetch role for %s: %w", userID, err)
	}
	if rec == nil {
		cacheLookups.WithLabelValues(string(audit.CacheMiss)).Inc()
		return Resolution{State: audit.CacheMiss, Generation: gen}, nil
	}

	cacheLookups.WithLabelValues(string(audit.CacheMissThenFetched)).Inc()
	out := *rec
	if out.UserID == "" {
		out.UserID = userID
	}
	if out.Active {
		c.Patch(out, gen)
	}
	return Resolution{Record: &out, State: audit.CacheMissThenFetched, Generation: gen}, nil
}

// Patch inserts rec into the snapshot of generation gen if the user is not
// already present. It is refused once a full refresh has published a newer
// generation, so a fill that raced a refresh never outlives it. It reports
// whether the snapshot changed.
func (c *AuthCache) Patch(rec roles.Record, gen uint64) bool {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	cur := c.current.Load()
	if !cur.warm {
		return false
	}
	if cur.generation != gen {
		stalePatches.Inc()
		return false
	}
	if _, exists := cur.records[rec.UserID]; exists {
		return false
	}

	next := &snapshot{
		records:     make(map[string]roles.Record, len(cur.records)+1),
		refreshedAt: cur.refreshedAt,
		warm:        cur.warm,
		generation:  cur.generation,
	}
	for k, v := range cur.records {
		next.records[k] = v
	}
	next.records[rec.UserID] = rec
	c.current.Store(next)

	cacheFills.Inc()
	cacheEntries.Set(float64(len(next.records)))
	logging.Debug().Str("user_id", rec.UserID).Str("role", rec.Role.String()).Msg("Role cache patched on miss")
	return true
}

// ReplaceSnapshot atomically publishes records as the new snapshot and marks
// the cache warm. Rows sharing a UserID are collapsed with roles.Dedupe.
// It returns the number of distinct users.
func (c *AuthCache) ReplaceSnapshot(records []roles.Record) int {
	next := &snapshot{
		records:     make(map[string]roles.Record, len(records)),
		refreshedAt: c.now(),
		warm:        true,
	}
	for _, r := range roles.Dedupe(records) {
		next.records[r.UserID] = r
	}

	c.writeMu.Lock()
	next.generation = c.current.Load().generation + 1
	c.current.Store(next)
	c.writeMu.Unlock()

	cacheEntries.Set(float64(len(next.records)))
	cacheGeneration.Set(float64(next.generation))
	return len(next.records)
}

// Ready reports whether a full refresh has succeeded.
func (c *AuthCache) Ready() bool {
	return c.current.Load().warm
}

// Len returns the number of records in the snapshot.
func (c *AuthCache) Len() int {
	return len(c.current.Load().records)
}

// Lookup reads the snapshot without fetching on a miss.
func (c *AuthCache) Lookup(userID string) (roles.Record, bool) {
	rec, ok := c.current.Load().records[userID]
	return rec, ok
}

// Stats summarizes the current snapshot.
func (c *AuthCache) Stats() CacheStats {
	snap := c.current.Load()
	st := CacheStats{
		Ready:       snap.warm,
		Entries:     len(snap.records),
		RefreshedAt: snap.refreshedAt,
		Generation:  snap.generation,
	}
	for _, r := range snap.records {
		if r.Active {
			st.Active++
		}
	}
	if snap.warm {
		age := c.now().Sub(snap.refreshedAt)
		st.AgeSeconds = age.Seconds()
		st.Stale = age > c.ttl
	}
	return st
}
