package store

import (
	"context"
	"slices"
	"sort"
	"sync"
)

// Memory is a transient in-memory Backend, intended for tests and for
// single-process tools. Safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	tables map[string]*memTable
}

var _ Backend = (*Memory)(nil)
var _ Lister = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{tables: make(map[string]*memTable)}
}

type memTable struct {
	items []memItem // sorted by id
}

type memItem struct {
	id        uint64
	data      []byte
	updatedAt int64
}

func (t *memTable) find(id uint64) (idx int, ok bool) {
	items := t.items
	i := sort.Search(len(items), func(i int) bool {
		return items[i].id >= id
	})
	if i < len(items) && items[i].id == id {
		return i, true
	}
	return i, false
}

func (m *Memory) Get(ctx context.Context, key Key) (*Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tables[key.Table]
	if t == nil {
		return nil, nil
	}
	i, ok := t.find(key.ID)
	if !ok {
		return nil, nil
	}
	item := t.items[i]
	return &Record{Data: slices.Clone(item.data), UpdatedAt: item.updatedAt}, nil
}

func (m *Memory) Upsert(ctx context.Context, key Key, data []byte, updatedAt int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tables[key.Table]
	if t == nil {
		t = &memTable{}
		m.tables[key.Table] = t
	}
	item := memItem{id: key.ID, data: slices.Clone(data), updatedAt: updatedAt}
	i, ok := t.find(key.ID)
	if ok {
		t.items[i] = item
		return nil
	}
	t.items = slices.Insert(t.items, i, item)
	return nil
}

func (m *Memory) Delete(ctx context.Context, key Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tables[key.Table]
	if t == nil {
		return nil
	}
	i, ok := t.find(key.ID)
	if !ok {
		return nil
	}
	t.items = slices.Delete(t.items, i, i+1)
	return nil
}

// IDs implements Lister.
func (m *Memory) IDs(ctx context.Context, table string) ([]uint64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	t := m.tables[table]
	if t == nil {
		return nil, nil
	}
	ids := make([]uint64, len(t.items))
	for i, item := range t.items {
		ids[i] = item.id
	}
	return ids, nil
}

// Len returns the total number of stored records.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int
	for _, t := range m.tables {
		n += len(t.items)
	}
	return n
}
