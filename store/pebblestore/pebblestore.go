// Package pebblestore implements store.Backend on top of Pebble.
//
// All tables share one keyspace; keys are store.Key.Bytes, values are
// store envelopes.
package pebblestore

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"slices"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"

	"github.com/andreyvit/idxtable/store"
)

type Options struct {
	// FS overrides the filesystem, e.g. vfs.NewMem() in tests.
	FS vfs.FS

	// NoSync skips fsync on writes.
	NoSync bool
}

type Store struct {
	db *pebble.DB
	wo *pebble.WriteOptions
}

var _ store.Backend = (*Store)(nil)
var _ store.Lister = (*Store)(nil)

func Open(dir string, opt Options) (*Store, error) {
	popt := &pebble.Options{}
	if opt.FS != nil {
		popt.FS = opt.FS
	}
	db, err := pebble.Open(dir, popt)
	if err != nil {
		return nil, fmt.Errorf("pebble: %w", err)
	}
	return New(db, opt.NoSync), nil
}

// New wraps an open database. Closing the Store closes db.
func New(db *pebble.DB, noSync bool) *Store {
	wo := pebble.Sync
	if noSync {
		wo = pebble.NoSync
	}
	return &Store{db: db, wo: wo}
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Get(ctx context.Context, key store.Key) (*store.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	val, closer, err := s.db.Get(key.Bytes())
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("pebble: get %v: %w", key, err)
	}
	raw := slices.Clone(val)
	if err := closer.Close(); err != nil {
		return nil, fmt.Errorf("pebble: get %v: %w", key, err)
	}
	rec, err := store.UnmarshalRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("pebble: get %v: %w", key, err)
	}
	return rec, nil
}

func (s *Store) Upsert(ctx context.Context, key store.Key, data []byte, updatedAt int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := store.MarshalRecord(data, updatedAt)
	if err != nil {
		return err
	}
	if err := s.db.Set(key.Bytes(), value, s.wo); err != nil {
		return fmt.Errorf("pebble: upsert %v: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key store.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.db.Delete(key.Bytes(), s.wo); err != nil {
		return fmt.Errorf("pebble: delete %v: %w", key, err)
	}
	return nil
}

// IDs implements store.Lister.
func (s *Store) IDs(ctx context.Context, table string) ([]uint64, error) {
	lower := append([]byte(table), 0)
	upper := append([]byte(table), 1)
	it := s.db.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: upper,
	})
	defer it.Close()

	var ids []uint64
	for valid := it.First(); valid; valid = it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		k := it.Key()
		if len(k) != len(lower)+8 {
			return nil, fmt.Errorf("pebble: list %s: %w: key %x", table, store.ErrCorruptRecord, k)
		}
		ids = append(ids, binary.BigEndian.Uint64(k[len(lower):]))
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("pebble: list %s: %w", table, err)
	}
	return ids, nil
}
