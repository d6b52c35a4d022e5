// Rolegate - Role-Based Authorization Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rolegate

package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
)

const (
	badgerEventPrefix = "audit:event:"
	badgerSequenceKey = "audit:seq"

	// Sequence numbers are leased in blocks; a crash skips at most one block.
	badgerSequenceLease = 256
)

// ErrStoreClosed is returned by BadgerStore after Close.
var ErrStoreClosed = errors.New("audit store closed")

// OpenBadger opens (or creates) the badger database used for audit storage.
// SyncWrites is enabled so an acknowledged Save survives a crash.
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path)
	opts.SyncWrites = true
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open audit database at %s: %w", path, err)
	}
	return db, nil
}

// BadgerStore is a durable, append-only event log. Keys embed a monotonic
// sequence number so iteration order equals write order.
type BadgerStore struct {
	db        *badger.DB
	seq       *badger.Sequence
	retention time.Duration
}

// NewBadgerStore creates a store on db. A positive retention expires events
// after that long; zero keeps them forever. The caller owns db.
func NewBadgerStore(db *badger.DB, retention time.Duration) (*BadgerStore, error) {
	seq, err := db.GetSequence([]byte(badgerSequenceKey), badgerSequenceLease)
	if err != nil {
		return nil, fmt.Errorf("lease audit sequence: %w", err)
	}
	return &BadgerStore{db: db, seq: seq, retention: retention}, nil
}

// Name implements Store.
func (s *BadgerStore) Name() string { return "badger" }

func eventKey(n uint64) []byte {
	return []byte(fmt.Sprintf("%s%020d", badgerEventPrefix, n))
}

// Save implements Store.
func (s *BadgerStore) Save(ctx context.Context, event *Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return ErrStoreClosed
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	n, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("next audit sequence: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(eventKey(n), data)
		if s.retention > 0 {
			e = e.WithTTL(s.retention)
		}
		return txn.SetEntry(e)
	})
}

// Query implements Querier. Events are returned newest first.
func (s *BadgerStore) Query(ctx context.Context, filter Filter) ([]Event, error) {
	if s.db.IsClosed() {
		return nil, ErrStoreClosed
	}

	var out []Event
	prefix := []byte(badgerEventPrefix)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts from the largest key under the prefix.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var ev Event
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &ev)
			}); err != nil {
				return fmt.Errorf("decode audit event %s: %w", it.Item().Key(), err)
			}

			if !filter.Matches(&ev) {
				continue
			}
			out = append(out, ev)
			if filter.Limit > 0 && len(out) >= filter.Limit {
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns the number of stored events.
func (s *BadgerStore) Count(ctx context.Context) (int, error) {
	n := 0
	prefix := []byte(badgerEventPrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

// Close returns the unused part of the sequence lease. It does not close db.
func (s *BadgerStore) Close() error {
	return s.seq.Release()
}
