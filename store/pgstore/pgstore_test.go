package pgstore

import (
	"context"
	"errors"
	"math"
	"os"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/andreyvit/idxtable/store"
	"github.com/andreyvit/idxtable/store/storetest"
)

type mockQuerier struct {
	mock.Mock
}

func (m *mockQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	ret := m.Called(ctx, sql, args)
	return pgconn.CommandTag{}, ret.Error(0)
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	ret := m.Called(ctx, sql, args)
	return ret.Get(0).(pgx.Row)
}

func (m *mockQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	ret := m.Called(ctx, sql, args)
	rows, _ := ret.Get(0).(pgx.Rows)
	return rows, ret.Error(1)
}

type fakeRow struct {
	data    []byte
	updated int64
	err     error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	*dest[0].(*[]byte) = r.data
	*dest[1].(*int64) = r.updated
	return nil
}

type fakeRows struct {
	pgx.Rows
	ids []int64
	pos int
	err error
}

func (r *fakeRows) Next() bool {
	r.pos++
	return r.pos <= len(r.ids)
}

func (r *fakeRows) Scan(dest ...any) error {
	*dest[0].(*int64) = r.ids[r.pos-1]
	return nil
}

func (r *fakeRows) Err() error { return r.err }
func (r *fakeRows) Close()     {}

var errUndefinedTable = &pgconn.PgError{Code: undefinedTable, Message: `relation "idx" does not exist`}

func sqlPrefix(prefix string) any {
	return mock.MatchedBy(func(sql string) bool { return strings.HasPrefix(sql, prefix) })
}

func TestStore_Get(t *testing.T) {
	ctx := context.Background()
	k := store.Key{Table: "idx", ID: 5}

	t.Run("found", func(t *testing.T) {
		db := new(mockQuerier)
		db.On("QueryRow", mock.Anything, `SELECT data, updated FROM "idx" WHERE id = $1`, []any{int64(5)}).
			Return(fakeRow{data: []byte{0, 1, 0, 2, 0, 0}, updated: 42}).Once()

		rec, err := New(db).Get(ctx, k)
		require.NoError(t, err)
		assert.Equal(t, &store.Record{Data: []byte{0, 1, 0, 2, 0, 0}, UpdatedAt: 42}, rec)
		db.AssertExpectations(t)
	})

	t.Run("missing row", func(t *testing.T) {
		db := new(mockQuerier)
		db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(fakeRow{err: pgx.ErrNoRows}).Once()
		rec, err := New(db).Get(ctx, k)
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("missing table", func(t *testing.T) {
		db := new(mockQuerier)
		db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(fakeRow{err: errUndefinedTable}).Once()
		rec, err := New(db).Get(ctx, k)
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("failure", func(t *testing.T) {
		boom := errors.New("boom")
		db := new(mockQuerier)
		db.On("QueryRow", mock.Anything, mock.Anything, mock.Anything).Return(fakeRow{err: boom}).Once()
		_, err := New(db).Get(ctx, k)
		assert.ErrorIs(t, err, boom)
	})
}

func TestStore_UpsertCreatesTable(t *testing.T) {
	ctx := context.Background()
	db := new(mockQuerier)
	data := []byte{0, 1, 0, 2, 0, 0}
	args := []any{int64(5), data, int64(42)}

	db.On("Exec", mock.Anything, sqlPrefix(`INSERT INTO "idx"`), args).Return(errUndefinedTable).Once()
	db.On("Exec", mock.Anything, sqlPrefix(`CREATE TABLE IF NOT EXISTS "idx"`), []any(nil)).Return(nil).Once()
	db.On("Exec", mock.Anything, sqlPrefix(`INSERT INTO "idx"`), args).Return(nil).Once()

	err := New(db).Upsert(ctx, store.Key{Table: "idx", ID: 5}, data, 42)
	require.NoError(t, err)
	db.AssertExpectations(t)
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	db := new(mockQuerier)
	db.On("Exec", mock.Anything, `DELETE FROM "idx" WHERE id = $1`, []any{int64(5)}).Return(errUndefinedTable).Once()

	require.NoError(t, New(db).Delete(ctx, store.Key{Table: "idx", ID: 5}))
	db.AssertExpectations(t)
}

func TestStore_IDs(t *testing.T) {
	ctx := context.Background()
	db := new(mockQuerier)
	db.On("Query", mock.Anything, `SELECT id FROM "idx" ORDER BY id`, []any(nil)).
		Return(&fakeRows{ids: []int64{3, 7, 11}}, nil).Once()
	db.On("Query", mock.Anything, `SELECT id FROM "missing" ORDER BY id`, []any(nil)).
		Return(&fakeRows{err: errUndefinedTable}, nil).Once()

	s := New(db)
	ids, err := s.IDs(ctx, "idx")
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 7, 11}, ids)

	ids, err = s.IDs(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, ids)
	db.AssertExpectations(t)
}

func TestStore_KeyOutOfRange(t *testing.T) {
	db := new(mockQuerier)
	_, err := New(db).Get(context.Background(), store.Key{Table: "idx", ID: math.MaxInt64 + 1})
	assert.Error(t, err)
	db.AssertNotCalled(t, "QueryRow", mock.Anything, mock.Anything, mock.Anything)
}

func TestStore_Quoting(t *testing.T) {
	assert.Equal(t, `"idx_user_posts"`, tableIdent("idx_user_posts"))
	assert.Equal(t, `"a""b"`, tableIdent(`a"b`))
}

// TestStore_Integration requires a running PostgreSQL, see IDXTABLE_TEST_POSTGRES.
func TestStore_Integration(t *testing.T) {
	connString := os.Getenv("IDXTABLE_TEST_POSTGRES")
	if connString == "" {
		t.Skip("IDXTABLE_TEST_POSTGRES not set")
	}
	ctx := context.Background()
	s, pool, err := Connect(ctx, connString)
	require.NoError(t, err)
	defer pool.Close()

	_, err = pool.Exec(ctx, `DROP TABLE IF EXISTS "idx_pgstore_test"`)
	require.NoError(t, err)
	storetest.Run(t, s, "idx_pgstore_test")
}
