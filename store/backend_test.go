package store_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
	"golang.org/x/time/rate"

	"github.com/andreyvit/idxtable/store"
	"github.com/andreyvit/idxtable/store/storetest"
)

func openBolt(t *testing.T) *store.Bolt {
	b, err := store.OpenBolt(filepath.Join(t.TempDir(), "test.db"), store.BoltOptions{IsTesting: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, b.Close())
	})
	return b
}

func TestKey(t *testing.T) {
	k := store.Key{Table: "idx_user_posts", ID: 258}
	assert.Equal(t, "idx_user_posts/258", k.String())
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 2}, k.IDBytes())

	raw := k.Bytes()
	assert.Equal(t, append([]byte("idx_user_posts\x00"), 0, 0, 0, 0, 0, 0, 1, 2), raw)
	parsed, err := store.ParseKeyBytes(raw)
	require.NoError(t, err)
	assert.Equal(t, k, parsed)

	_, err = store.ParseKeyBytes([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestMemory(t *testing.T) {
	m := store.NewMemory()
	storetest.Run(t, m, "idx_test")
	assert.Equal(t, 0, m.Len())
}

func TestMemory_CopiesData(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	k := store.Key{Table: "t", ID: 1}
	data := []byte{1, 2, 3}
	require.NoError(t, m.Upsert(ctx, k, data, 1))
	data[0] = 9

	rec, err := m.Get(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, rec.Data)
	rec.Data[1] = 9

	rec, err = m.Get(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, rec.Data)
}

func TestMemory_ListIsSorted(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	for _, id := range []uint64{30, 10, 20} {
		require.NoError(t, m.Upsert(ctx, store.Key{Table: "t", ID: id}, []byte{1}, 1))
	}
	ids, err := m.IDs(ctx, "t")
	require.NoError(t, err)
	assert.Equal(t, []uint64{10, 20, 30}, ids)
	assert.Equal(t, 3, m.Len())
}

func TestMemory_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := store.NewMemory()
	_, err := m.Get(ctx, store.Key{Table: "t", ID: 1})
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, m.Upsert(ctx, store.Key{Table: "t", ID: 1}, nil, 0), context.Canceled)
}

func TestBolt(t *testing.T) {
	storetest.Run(t, openBolt(t), "idx_test")
}

func TestBolt_Persists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "test.db")
	k := store.Key{Table: "idx_test", ID: 5}

	b, err := store.OpenBolt(path, store.BoltOptions{IsTesting: true})
	require.NoError(t, err)
	require.NoError(t, b.Upsert(ctx, k, []byte{0, 1, 0, 2, 0, 0}, 42))
	require.NoError(t, b.Close())

	b, err = store.OpenBolt(path, store.BoltOptions{IsTesting: true})
	require.NoError(t, err)
	defer b.Close()
	rec, err := b.Get(ctx, k)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(42), rec.UpdatedAt)
}

func TestBolt_CorruptValue(t *testing.T) {
	ctx := context.Background()
	b := openBolt(t)
	k := store.Key{Table: "idx_test", ID: 5}
	err := b.DB().Update(func(btx *bbolt.Tx) error {
		buck, err := btx.CreateBucketIfNotExists([]byte(k.Table))
		if err != nil {
			return err
		}
		return buck.Put(k.IDBytes(), []byte{0xc1})
	})
	require.NoError(t, err)

	_, err = b.Get(ctx, k)
	assert.ErrorIs(t, err, store.ErrCorruptRecord)
}

func TestDecorators(t *testing.T) {
	t.Run("throttle", func(t *testing.T) {
		storetest.Run(t, store.Throttle(store.NewMemory(), rate.NewLimiter(rate.Inf, 1)), "idx_test")
	})
	t.Run("instrument", func(t *testing.T) {
		storetest.Run(t, store.Instrument(store.NewMemory(), "memory"), "idx_test")
	})
	t.Run("zstd", func(t *testing.T) {
		b, err := store.Compress(openBolt(t), store.Zstd)
		require.NoError(t, err)
		t.Cleanup(func() { b.Close() })
		storetest.Run(t, b, "idx_test")
	})
	t.Run("lz4", func(t *testing.T) {
		b, err := store.Compress(store.NewMemory(), store.LZ4)
		require.NoError(t, err)
		t.Cleanup(func() { b.Close() })
		storetest.Run(t, store.Instrument(b, "memory"), "idx_test")
	})
}

func TestThrottle_HonorsContext(t *testing.T) {
	lim := rate.NewLimiter(rate.Every(1e9*3600), 1)
	b := store.Throttle(store.NewMemory(), lim)
	ctx := context.Background()
	_, err := b.Get(ctx, store.Key{Table: "t", ID: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = b.Get(ctx, store.Key{Table: "t", ID: 1})
	assert.Error(t, err)
}

type plainBackend struct {
	store.Backend
}

func TestListIDs_NotSupported(t *testing.T) {
	b := store.Instrument(plainBackend{store.NewMemory()}, "plain")
	_, err := store.ListIDs(context.Background(), b, "t")
	assert.ErrorIs(t, err, store.ErrNotSupported)
}

func TestEnvelope(t *testing.T) {
	raw, err := store.MarshalRecord([]byte{0, 1, 0, 2, 0, 0}, 77)
	require.NoError(t, err)
	rec, err := store.UnmarshalRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, &store.Record{Data: []byte{0, 1, 0, 2, 0, 0}, UpdatedAt: 77}, rec)

	raw, err = store.MarshalRecord(nil, 5)
	require.NoError(t, err)
	rec, err = store.UnmarshalRecord(raw)
	require.NoError(t, err)
	assert.Equal(t, []byte{}, rec.Data)

	_, err = store.UnmarshalRecord([]byte{0xc1})
	assert.ErrorIs(t, err, store.ErrCorruptRecord)
}

func TestEnvelope_Checksum(t *testing.T) {
	data := []byte("some index data")
	raw, err := store.MarshalRecord(data, 1)
	require.NoError(t, err)

	i := len(raw) - 1
	for ; i >= 0; i-- {
		if raw[i] == 'x' {
			break
		}
	}
	require.GreaterOrEqual(t, i, 0)
	raw[i] = 'y'

	_, err = store.UnmarshalRecord(raw)
	assert.ErrorIs(t, err, store.ErrCorruptRecord)
}
