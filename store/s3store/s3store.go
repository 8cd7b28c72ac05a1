// Package s3store implements store.Backend on S3. Every index is one
// object, <prefix>/<table>/<id>, holding a store envelope.
package s3store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/andreyvit/idxtable/store"
)

// Client is the subset of *s3.Client used by Store.
type Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

type Store struct {
	client Client
	bucket string
	prefix string
}

var _ store.Backend = (*Store)(nil)
var _ store.Lister = (*Store)(nil)

// New returns an S3 store. rootPrefix is prepended to all object keys.
func New(client Client, bucket, rootPrefix string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		prefix: rootPrefix,
	}
}

// NewFromEnv builds an S3 client from the default AWS configuration chain.
func NewFromEnv(ctx context.Context, bucket, rootPrefix string) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("s3: %w", err)
	}
	return New(s3.NewFromConfig(cfg), bucket, rootPrefix), nil
}

func (s *Store) tablePrefix(table string) string {
	return path.Join(s.prefix, table) + "/"
}

func (s *Store) objectKey(key store.Key) string {
	return s.tablePrefix(key.Table) + strconv.FormatUint(key.ID, 10)
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	return errors.As(err, &nf)
}

func (s *Store) Get(ctx context.Context, key store.Key) (*store.Record, error) {
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if isNotFound(err) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("s3: get %v: %w", key, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("s3: get %v: %w", key, err)
	}
	rec, err := store.UnmarshalRecord(raw)
	if err != nil {
		return nil, fmt.Errorf("s3: get %v: %w", key, err)
	}
	return rec, nil
}

func (s *Store) Upsert(ctx context.Context, key store.Key, data []byte, updatedAt int64) error {
	value, err := store.MarshalRecord(data, updatedAt)
	if err != nil {
		return err
	}
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.objectKey(key)),
		Body:          bytes.NewReader(value),
		ContentLength: aws.Int64(int64(len(value))),
		Metadata: map[string]string{
			"updated-at": strconv.FormatInt(updatedAt, 10),
		},
	})
	if err != nil {
		return fmt.Errorf("s3: upsert %v: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key store.Key) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("s3: delete %v: %w", key, err)
	}
	return nil
}

// IDs implements store.Lister. Objects that are not named by a numeric ID are skipped.
func (s *Store) IDs(ctx context.Context, table string) ([]uint64, error) {
	prefix := s.tablePrefix(table)
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})

	var ids []uint64
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3: list %s: %w", table, err)
		}
		for _, obj := range page.Contents {
			id, err := strconv.ParseUint(strings.TrimPrefix(aws.ToString(obj.Key), prefix), 10, 64)
			if err != nil {
				continue
			}
			ids = append(ids, id)
		}
	}
	// object names list in lexicographic order
	slices.Sort(ids)
	return ids, nil
}
