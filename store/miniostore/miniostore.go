// Package miniostore implements store.Backend for MinIO and other
// S3-compatible object stores. The object layout matches s3store.
package miniostore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/minio/minio-go/v7"

	"github.com/andreyvit/idxtable/store"
)

type Store struct {
	client *minio.Client
	bucket string
	prefix string
}

var _ store.Backend = (*Store)(nil)
var _ store.Lister = (*Store)(nil)

// New returns a MinIO store. rootPrefix is prepended to all object keys.
func New(client *minio.Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

func (s *Store) tablePrefix(table string) string {
	return path.Join(s.prefix, table) + "/"
}

func (s *Store) objectKey(key store.Key) string {
	return s.tablePrefix(key.Table) + strconv.FormatUint(key.ID, 10)
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NotFound"
}

func (s *Store) Get(ctx context.Context, key store.Key) (*store.Record, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.objectKey(key), minio.GetObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("minio: get %v: %w", key, err)
	}
	defer obj.Close()

	// minio reports a missing object on the first read
	raw, err := io.ReadAll(obj)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("minio: get %v: %w", key, err)
	}
	rec, err := store.UnmarshalRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("minio: get %v: %w", key, err)
	}
	return rec, nil
}

func (s *Store) Upsert(ctx context.Context, key store.Key, data []byte, updatedAt int64) error {
	value, err := store.MarshalRecord(data, updatedAt)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, s.bucket, s.objectKey(key), bytes.NewReader(value), int64(len(value)), minio.PutObjectOptions{
		ContentType: "application/msgpack",
		UserMetadata: map[string]string{
			"updated-at": strconv.FormatInt(updatedAt, 10),
		},
	})
	if err != nil {
		return fmt.Errorf("minio: upsert %v: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key store.Key) error {
	err := s.client.RemoveObject(ctx, s.bucket, s.objectKey(key), minio.RemoveObjectOptions{})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("minio: delete %v: %w", key, err)
	}
	return nil
}

// IDs implements store.Lister.
func (s *Store) IDs(ctx context.Context, table string) ([]uint64, error) {
	prefix := s.tablePrefix(table)
	// stops the listing goroutine on early return
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ids []uint64
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, fmt.Errorf("minio: list %s: %w", table, obj.Err)
		}
		id, err := strconv.ParseUint(strings.TrimPrefix(obj.Key, prefix), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	// object names list in lexicographic order
	slices.Sort(ids)
	return ids, nil
}
