// Package storetest checks that a store.Backend honors the backend contract.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andreyvit/idxtable/store"
)

// Run exercises b with a table name that is not used by anything else in b.
func Run(t *testing.T, b store.Backend, table string) {
	ctx := context.Background()
	k1 := store.Key{Table: table, ID: 1}
	k2 := store.Key{Table: table, ID: 1 << 40}
	k9 := store.Key{Table: table, ID: 9}
	other := store.Key{Table: table + "_other", ID: 1}

	t.Run("missing", func(t *testing.T) {
		rec, err := b.Get(ctx, k1)
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("upsert and get", func(t *testing.T) {
		require.NoError(t, b.Upsert(ctx, k1, []byte{0, 1, 0, 2, 0, 0}, 100))
		rec, err := b.Get(ctx, k1)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, []byte{0, 1, 0, 2, 0, 0}, rec.Data)
		assert.Equal(t, int64(100), rec.UpdatedAt)
	})

	t.Run("replace", func(t *testing.T) {
		data := []byte{0, 1, 0, 2, 0, 1, 0, 0, 0, 7, 0, 0, 0, 9}
		require.NoError(t, b.Upsert(ctx, k1, data, 200))
		rec, err := b.Get(ctx, k1)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, data, rec.Data)
		assert.Equal(t, int64(200), rec.UpdatedAt)
	})

	t.Run("keys are independent", func(t *testing.T) {
		require.NoError(t, b.Upsert(ctx, k2, []byte{1, 2, 3}, 300))
		rec, err := b.Get(ctx, other)
		require.NoError(t, err)
		assert.Nil(t, rec)

		rec, err = b.Get(ctx, k2)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.Equal(t, []byte{1, 2, 3}, rec.Data)
	})

	t.Run("list", func(t *testing.T) {
		ids, err := store.ListIDs(ctx, b, table)
		if errors.Is(err, store.ErrNotSupported) {
			t.Skip("backend cannot list keys")
		}
		require.NoError(t, err)
		assert.Equal(t, []uint64{k1.ID, k2.ID}, ids)

		// 9 sorts after 1099511627776 by name but before it by value
		require.NoError(t, b.Upsert(ctx, k9, []byte{9}, 400))
		ids, err = store.ListIDs(ctx, b, table)
		require.NoError(t, err)
		assert.Equal(t, []uint64{k1.ID, k9.ID, k2.ID}, ids)
		require.NoError(t, b.Delete(ctx, k9))
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, b.Delete(ctx, k1))
		rec, err := b.Get(ctx, k1)
		require.NoError(t, err)
		assert.Nil(t, rec)

		require.NoError(t, b.Delete(ctx, k1), "deleting a missing key")
		require.NoError(t, b.Delete(ctx, other), "deleting from a missing table")

		rec, err = b.Get(ctx, k2)
		require.NoError(t, err)
		assert.NotNil(t, rec)
		require.NoError(t, b.Delete(ctx, k2))
	})
}
