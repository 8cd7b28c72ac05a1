// Package store defines the persistence contract of index tables and provides
// its basic implementations.
//
// A backend maps a Key (a table name plus a numeric index key) to a single
// opaque blob and the time it was last written. Writes replace the whole
// blob; there is no partial update and no versioning, so concurrent writers
// of the same key race with last-write-wins semantics.
//
// Backends that store a single value per key (Bolt, Pebble, S3, MinIO) keep
// the blob and its timestamp in an envelope, see MarshalRecord.
package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrCorruptRecord is returned when a stored envelope cannot be decoded
	// or fails its checksum.
	ErrCorruptRecord = errors.New("corrupt stored record")

	// ErrNotSupported is returned by optional operations a backend does not implement.
	ErrNotSupported = errors.New("operation not supported by backend")
)

// Key identifies one stored index.
type Key struct {
	Table string
	ID    uint64
}

func (k Key) String() string {
	return k.Table + "/" + strconv.FormatUint(k.ID, 10)
}

// IDBytes returns the big-endian representation of the ID, which keeps
// byte-ordered stores sorted numerically.
func (k Key) IDBytes() []byte {
	return binary.BigEndian.AppendUint64(make([]byte, 0, 8), k.ID)
}

// Bytes returns a flat key: table name, a zero byte, then IDBytes.
func (k Key) Bytes() []byte {
	buf := make([]byte, 0, len(k.Table)+9)
	buf = append(buf, k.Table...)
	buf = append(buf, 0)
	return binary.BigEndian.AppendUint64(buf, k.ID)
}

// ParseKeyBytes is the inverse of Key.Bytes.
func ParseKeyBytes(raw []byte) (Key, error) {
	n := len(raw)
	if n < 9 || raw[n-9] != 0 {
		return Key{}, fmt.Errorf("invalid flat key %x", raw)
	}
	return Key{
		Table: string(raw[:n-9]),
		ID:    binary.BigEndian.Uint64(raw[n-8:]),
	}, nil
}

// Record is what a backend holds for a key.
type Record struct {
	Data      []byte
	UpdatedAt int64
}

// Backend is a key → blob store.
//
// Get returns nil, nil when nothing is stored under the key. Upsert inserts
// or replaces. Delete of a missing key is not an error.
type Backend interface {
	Get(ctx context.Context, key Key) (*Record, error)
	Upsert(ctx context.Context, key Key, data []byte, updatedAt int64) error
	Delete(ctx context.Context, key Key) error
}

// Lister is implemented by backends that can enumerate the keys of a table.
type Lister interface {
	IDs(ctx context.Context, table string) ([]uint64, error)
}

// Wrapper is implemented by backend decorators.
type Wrapper interface {
	Unwrap() Backend
}

// ListIDs enumerates a table using the first Lister found in the decorator chain.
func ListIDs(ctx context.Context, b Backend, table string) ([]uint64, error) {
	for b != nil {
		if l, ok := b.(Lister); ok {
			return l.IDs(ctx, table)
		}
		w, ok := b.(Wrapper)
		if !ok {
			break
		}
		b = w.Unwrap()
	}
	return nil, ErrNotSupported
}
