package store

import (
	"context"
	"encoding/binary"
	"fmt"
	"slices"
	"time"

	"go.etcd.io/bbolt"
)

// Bolt stores each table in its own bucket, keyed by Key.IDBytes, with
// envelope values (see MarshalRecord).
type Bolt struct {
	bdb *bbolt.DB
}

var _ Backend = (*Bolt)(nil)
var _ Lister = (*Bolt)(nil)

type BoltOptions struct {
	IsTesting bool
	MmapSize  int
	Timeout   time.Duration
}

// OpenBolt opens (creating if needed) a Bolt database file.
func OpenBolt(path string, opt BoltOptions) (*Bolt, error) {
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.Timeout != 0 {
		bopt.Timeout = opt.Timeout
	}
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.InitialMmapSize = 1024 * 1024 * 64
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, fmt.Errorf("bolt: %w", err)
	}
	return NewBolt(bdb), nil
}

// NewBolt wraps an already open database. Closing the Bolt closes bdb.
func NewBolt(bdb *bbolt.DB) *Bolt {
	return &Bolt{bdb: bdb}
}

func (b *Bolt) DB() *bbolt.DB {
	return b.bdb
}

func (b *Bolt) Close() error {
	return b.bdb.Close()
}

func (b *Bolt) Get(ctx context.Context, key Key) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var raw []byte
	err := b.bdb.View(func(btx *bbolt.Tx) error {
		buck := btx.Bucket([]byte(key.Table))
		if buck == nil {
			return nil
		}
		// bolt values are only valid within the transaction
		raw = slices.Clone(buck.Get(key.IDBytes()))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bolt: get %v: %w", key, err)
	}
	if raw == nil {
		return nil, nil
	}
	rec, err := UnmarshalRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("bolt: get %v: %w", key, err)
	}
	return rec, nil
}

func (b *Bolt) Upsert(ctx context.Context, key Key, data []byte, updatedAt int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := MarshalRecord(data, updatedAt)
	if err != nil {
		return err
	}
	err = b.bdb.Update(func(btx *bbolt.Tx) error {
		buck, err := btx.CreateBucketIfNotExists([]byte(key.Table))
		if err != nil {
			return err
		}
		return buck.Put(key.IDBytes(), value)
	})
	if err != nil {
		return fmt.Errorf("bolt: upsert %v: %w", key, err)
	}
	return nil
}

func (b *Bolt) Delete(ctx context.Context, key Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := b.bdb.Update(func(btx *bbolt.Tx) error {
		buck := btx.Bucket([]byte(key.Table))
		if buck == nil {
			return nil
		}
		return buck.Delete(key.IDBytes())
	})
	if err != nil {
		return fmt.Errorf("bolt: delete %v: %w", key, err)
	}
	return nil
}

// IDs implements Lister.
func (b *Bolt) IDs(ctx context.Context, table string) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var ids []uint64
	err := b.bdb.View(func(btx *bbolt.Tx) error {
		buck := btx.Bucket([]byte(table))
		if buck == nil {
			return nil
		}
		c := buck.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if len(k) != 8 {
				return fmt.Errorf("%w: key %x in %s", ErrCorruptRecord, k, table)
			}
			ids = append(ids, binary.BigEndian.Uint64(k))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("bolt: list %s: %w", table, err)
	}
	return ids, nil
}
