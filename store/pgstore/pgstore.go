// Package pgstore implements store.Backend on PostgreSQL.
//
// Each index type lives in its own table:
//
//	CREATE TABLE <name> (id BIGINT PRIMARY KEY, data BYTEA NOT NULL, updated BIGINT NOT NULL)
//
// Upsert is a single INSERT ... ON CONFLICT statement, so it is atomic per key.
// The table is created on the first Upsert if it does not exist yet.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/andreyvit/idxtable/store"
)

const undefinedTable = "42P01"

// Querier is the subset of *pgx.Conn / *pgxpool.Pool used by Store.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type Store struct {
	db Querier
}

var _ store.Backend = (*Store)(nil)
var _ store.Lister = (*Store)(nil)

func New(db Querier) *Store {
	return &Store{db: db}
}

// Connect opens a connection pool. The caller closes the returned pool.
func Connect(ctx context.Context, connString string) (*Store, *pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}
	return New(pool), pool, nil
}

func tableIdent(table string) string {
	return pgx.Identifier{table}.Sanitize()
}

func dbID(key store.Key) (int64, error) {
	if key.ID > math.MaxInt64 {
		return 0, fmt.Errorf("postgres: key %v does not fit into BIGINT", key)
	}
	return int64(key.ID), nil
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTable
}

// CreateTable creates the table of an index type if it does not exist.
func (s *Store) CreateTable(ctx context.Context, table string) error {
	sql := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (id BIGINT PRIMARY KEY, data BYTEA NOT NULL, updated BIGINT NOT NULL)", tableIdent(table))
	if _, err := s.db.Exec(ctx, sql); err != nil {
		return fmt.Errorf("postgres: create %s: %w", table, err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key store.Key) (*store.Record, error) {
	id, err := dbID(key)
	if err != nil {
		return nil, err
	}
	var rec store.Record
	sql := fmt.Sprintf("SELECT data, updated FROM %s WHERE id = $1", tableIdent(key.Table))
	err = s.db.QueryRow(ctx, sql, id).Scan(&rec.Data, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) || isUndefinedTable(err) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("postgres: get %v: %w", key, err)
	}
	if rec.Data == nil {
		rec.Data = []byte{}
	}
	return &rec, nil
}

func (s *Store) Upsert(ctx context.Context, key store.Key, data []byte, updatedAt int64) error {
	id, err := dbID(key)
	if err != nil {
		return err
	}
	if data == nil {
		data = []byte{}
	}
	sql := fmt.Sprintf("INSERT INTO %s (id, data, updated) VALUES ($1, $2, $3) ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data, updated = EXCLUDED.updated", tableIdent(key.Table))
	_, err = s.db.Exec(ctx, sql, id, data, updatedAt)
	if isUndefinedTable(err) {
		if err := s.CreateTable(ctx, key.Table); err != nil {
			return err
		}
		_, err = s.db.Exec(ctx, sql, id, data, updatedAt)
	}
	if err != nil {
		return fmt.Errorf("postgres: upsert %v: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key store.Key) error {
	id, err := dbID(key)
	if err != nil {
		return err
	}
	sql := fmt.Sprintf("DELETE FROM %s WHERE id = $1", tableIdent(key.Table))
	if _, err := s.db.Exec(ctx, sql, id); err != nil && !isUndefinedTable(err) {
		return fmt.Errorf("postgres: delete %v: %w", key, err)
	}
	return nil
}

// IDs implements store.Lister.
func (s *Store) IDs(ctx context.Context, table string) ([]uint64, error) {
	rows, err := s.db.Query(ctx, fmt.Sprintf("SELECT id FROM %s ORDER BY id", tableIdent(table)))
	if isUndefinedTable(err) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("postgres: list %s: %w", table, err)
	}
	defer rows.Close()

	var ids []uint64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("postgres: list %s: %w", table, err)
		}
		ids = append(ids, uint64(id))
	}
	if err := rows.Err(); isUndefinedTable(err) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("postgres: list %s: %w", table, err)
	}
	return ids, nil
}
