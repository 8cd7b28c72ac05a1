package idxtable

import (
	"context"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/andreyvit/idxtable/store"
)

const (
	DefaultRegistrySize      = 1024
	DefaultCommitConcurrency = 8
)

type RegistryOptions struct {
	Options

	// Size bounds the number of cached tables.
	Size int

	// CommitConcurrency bounds the number of parallel commits in CommitAll.
	CommitConcurrency int
}

// Registry caches loaded tables by (type, key), so that repeated access
// within a process reuses the same decoded state.
//
// The cache is process-local: there is no expiry and no invalidation when
// another process commits the same key. Use Forget or Purge (or Table.Load)
// to observe external changes. Evicting a table discards its uncommitted
// mutations.
//
// The Registry is safe for concurrent use; the tables it returns are not.
type Registry struct {
	backend     store.Backend
	opt         Options
	logger      *slog.Logger
	cache       *lru.Cache[instanceKey, *Table]
	concurrency int
}

type instanceKey struct {
	typ string
	id  uint64
}

func NewRegistry(backend store.Backend, opt RegistryOptions) (*Registry, error) {
	if opt.Size == 0 {
		opt.Size = DefaultRegistrySize
	}
	if opt.CommitConcurrency <= 0 {
		opt.CommitConcurrency = DefaultCommitConcurrency
	}
	r := &Registry{
		backend:     backend,
		opt:         opt.Options,
		logger:      opt.logger(),
		concurrency: opt.CommitConcurrency,
	}
	cache, err := lru.NewWithEvict[instanceKey, *Table](opt.Size, r.onEvict)
	if err != nil {
		return nil, configErrf("registry: %v", err)
	}
	r.cache = cache
	return r, nil
}

func (r *Registry) onEvict(k instanceKey, t *Table) {
	CachedTables.Dec()
	if t.Dirty() {
		r.logger.Warn("idxtable: dropping table with uncommitted changes", "type", k.typ, "id", k.id)
	}
}

// Get returns the cached table for typ and id, loading it on a miss.
func (r *Registry) Get(ctx context.Context, typ *Type, id uint64) (*Table, error) {
	k := instanceKey{typ.name, id}
	if t, ok := r.cache.Get(k); ok {
		return checkCachedType(t, typ, id)
	}

	t, err := Open(ctx, r.backend, typ, id, r.opt)
	if err != nil {
		return nil, err
	}
	// another goroutine may have loaded the same key meanwhile
	if prev, ok, _ := r.cache.PeekOrAdd(k, t); ok {
		return checkCachedType(prev, typ, id)
	}
	CachedTables.Inc()
	return t, nil
}

func checkCachedType(t *Table, typ *Type, id uint64) (*Table, error) {
	if t.typ != typ {
		return nil, indexErr(typ, id, "registry", configErrf("type %s is already cached with a different definition", typ.name))
	}
	return t, nil
}

// Peek returns a cached table without loading it or updating its recency.
func (r *Registry) Peek(typ *Type, id uint64) (*Table, bool) {
	return r.cache.Peek(instanceKey{typ.name, id})
}

// Forget drops one table from the cache.
func (r *Registry) Forget(typ *Type, id uint64) bool {
	return r.cache.Remove(instanceKey{typ.name, id})
}

// Purge drops all cached tables.
func (r *Registry) Purge() {
	r.cache.Purge()
}

func (r *Registry) Len() int {
	return r.cache.Len()
}

// CommitAll commits every cached table that has uncommitted mutations.
func (r *Registry) CommitAll(ctx context.Context, ts int64) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, k := range r.cache.Keys() {
		t, ok := r.cache.Peek(k)
		if !ok || !t.Dirty() {
			continue
		}
		g.Go(func() error {
			return t.Commit(ctx, ts)
		})
	}
	return g.Wait()
}
