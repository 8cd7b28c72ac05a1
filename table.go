package idxtable

import (
	"context"
	"log/slog"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/andreyvit/idxtable/store"
)

type Options struct {
	Logger *slog.Logger
	Clock  Clock
}

func (opt Options) logger() *slog.Logger {
	if opt.Logger != nil {
		return opt.Logger
	}
	return slog.Default()
}

func (opt Options) clock() Clock {
	if opt.Clock != nil {
		return opt.Clock
	}
	return defaultClock
}

// Table binds an index type and key to a backend. It holds the decoded rows
// in memory; mutations are not persisted until Commit.
//
// The in-memory state is never refreshed from the backend behind the
// caller's back: changes made by other processes are only observed after an
// explicit Load.
type Table struct {
	typ     *Type
	id      uint64
	backend store.Backend
	logger  *slog.Logger
	clock   Clock

	set       *Set
	dirty     bool
	updatedAt int64
}

// New returns an empty, unloaded table. Most callers want Open.
func New(backend store.Backend, typ *Type, id uint64, opt Options) *Table {
	return &Table{
		typ:     typ,
		id:      id,
		backend: backend,
		logger:  opt.logger(),
		clock:   opt.clock(),
		set:     NewSet(typ),
	}
}

// Open returns a table loaded from the backend. A key that has never been
// committed yields an empty table.
func Open(ctx context.Context, backend store.Backend, typ *Type, id uint64, opt Options) (*Table, error) {
	t := New(backend, typ, id, opt)
	if err := t.Load(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Table) Type() *Type { return t.typ }
func (t *Table) ID() uint64  { return t.id }

func (t *Table) Key() store.Key {
	return store.Key{Table: t.typ.name, ID: t.id}
}

// Dirty reports whether there are uncommitted mutations.
func (t *Table) Dirty() bool { return t.dirty }

// UpdatedAt is the modification time of the last loaded or committed state,
// zero if the key was not found.
func (t *Table) UpdatedAt() int64 { return t.updatedAt }

// Load replaces the in-memory state with the stored one, discarding
// uncommitted mutations.
func (t *Table) Load(ctx context.Context) (err error) {
	defer func() { LoadCount.WithLabelValues(t.typ.name, resultLabel(err)).Inc() }()

	rec, err := t.backend.Get(ctx, t.Key())
	if err != nil {
		return indexErr(t.typ, t.id, "load", err)
	}
	if rec == nil {
		t.set = NewSet(t.typ)
		t.updatedAt = 0
	} else {
		set, err := DecodeSet(t.typ, rec.Data)
		if err != nil {
			t.logger.Error("idxtable: cannot decode stored index", "type", t.typ.name, "id", t.id, "err", err)
			return indexErr(t.typ, t.id, "load", err)
		}
		t.set = set
		t.updatedAt = rec.UpdatedAt
	}
	t.dirty = false
	t.logger.Debug("idxtable: loaded", "type", t.typ.name, "id", t.id, "rows", t.set.Count())
	return nil
}

// Commit writes the current state to the backend. A zero ts means the
// clock's current time.
func (t *Table) Commit(ctx context.Context, ts int64) (err error) {
	defer func() { CommitCount.WithLabelValues(t.typ.name, resultLabel(err)).Inc() }()

	data, err := t.set.Encode()
	if err != nil {
		return indexErr(t.typ, t.id, "commit", err)
	}
	if ts == 0 {
		ts = t.clock.Now()
	}
	err = t.backend.Upsert(ctx, t.Key(), data, ts)
	if err != nil {
		return indexErr(t.typ, t.id, "commit", err)
	}
	CommitSize.WithLabelValues(t.typ.name).Observe(float64(len(data)))
	t.dirty = false
	t.updatedAt = ts
	t.logger.Debug("idxtable: committed", "type", t.typ.name, "id", t.id, "rows", t.set.Count(), "bytes", len(data), "updated", ts)
	return nil
}

// Destroy deletes the stored index. The in-memory state is left as is.
func (t *Table) Destroy(ctx context.Context) (err error) {
	defer func() { DestroyCount.WithLabelValues(t.typ.name, resultLabel(err)).Inc() }()

	err = t.backend.Delete(ctx, t.Key())
	if err != nil {
		return indexErr(t.typ, t.id, "destroy", err)
	}
	t.logger.Debug("idxtable: destroyed", "type", t.typ.name, "id", t.id)
	return nil
}

// Append adds a record, see Set.Append.
func (t *Table) Append(rec Record) (bool, error) {
	ok, err := t.set.Append(rec)
	if ok {
		t.dirty = true
	}
	return ok, err
}

// RemoveByColumn removes rows by a column value, see Set.RemoveByColumn.
func (t *Table) RemoveByColumn(column int, value Value, limit int) (int, error) {
	n, err := t.set.RemoveByColumn(column, value, limit)
	if n > 0 {
		t.dirty = true
	}
	return n, err
}

// RemoveByColumnIn removes rows by a set of column values, see Set.RemoveByColumnIn.
func (t *Table) RemoveByColumnIn(column int, values *roaring.Bitmap, limit int) (int, error) {
	n, err := t.set.RemoveByColumnIn(column, values, limit)
	if n > 0 {
		t.dirty = true
	}
	return n, err
}

// Clean drops all rows. Commit persists an empty index; Destroy removes it.
func (t *Table) Clean() {
	if t.set.Count() > 0 {
		t.dirty = true
	}
	t.set.Clean()
}

func (t *Table) Count() int            { return t.set.Count() }
func (t *Table) Columns() [][]Value    { return t.set.Columns() }
func (t *Table) Rows() []Record        { return t.set.Rows() }
func (t *Table) Contains(k Value) bool { return t.set.Contains(k) }

func (t *Table) Slice(offset, length int) []Record {
	return t.set.Slice(offset, length)
}

func (t *Table) Column(column, offset, length int) ([]Value, error) {
	return t.set.Column(column, offset, length)
}

func (t *Table) ColumnBitmap(column int) (*roaring.Bitmap, error) {
	return t.set.ColumnBitmap(column)
}

func (t *Table) Stats() SetStats {
	return t.set.Stats()
}
