// Package ddbstore implements store.Backend on DynamoDB.
//
// All index types share one DynamoDB table with a string partition key:
//
//	aws dynamodb create-table \
//	  --table-name idxtable \
//	  --attribute-definitions AttributeName=pk,AttributeType=S \
//	  --key-schema AttributeName=pk,KeyType=HASH \
//	  --billing-mode PAY_PER_REQUEST
//
// Items hold the blob in "data" and the modification time in "updated_at".
package ddbstore

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/andreyvit/idxtable/store"
)

const (
	attrKey       = "pk"
	attrData      = "data"
	attrUpdatedAt = "updated_at"
)

// Client is the subset of *dynamodb.Client used by Store.
type Client interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

type Store struct {
	client    Client
	tableName string
}

var _ store.Backend = (*Store)(nil)

func New(client Client, tableName string) *Store {
	return &Store{client: client, tableName: tableName}
}

// NewFromEnv builds a DynamoDB client from the default AWS configuration
// chain (environment, shared config, instance role).
func NewFromEnv(ctx context.Context, tableName string) (*Store, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("dynamodb: %w", err)
	}
	return New(dynamodb.NewFromConfig(cfg), tableName), nil
}

func itemKey(key store.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrKey: &types.AttributeValueMemberS{Value: key.String()},
	}
}

func (s *Store) Get(ctx context.Context, key store.Key) (*store.Record, error) {
	resp, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            itemKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("dynamodb: get %v: %w", key, err)
	}
	if len(resp.Item) == 0 {
		return nil, nil
	}

	rec := &store.Record{Data: []byte{}}
	if attr, ok := resp.Item[attrData]; ok {
		b, ok := attr.(*types.AttributeValueMemberB)
		if !ok {
			return nil, fmt.Errorf("dynamodb: get %v: %w: %s is %T", key, store.ErrCorruptRecord, attrData, attr)
		}
		rec.Data = b.Value
	}
	n, ok := resp.Item[attrUpdatedAt].(*types.AttributeValueMemberN)
	if !ok {
		return nil, fmt.Errorf("dynamodb: get %v: %w: missing %s", key, store.ErrCorruptRecord, attrUpdatedAt)
	}
	rec.UpdatedAt, err = strconv.ParseInt(n.Value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("dynamodb: get %v: %w: %v", key, store.ErrCorruptRecord, err)
	}
	return rec, nil
}

func (s *Store) Upsert(ctx context.Context, key store.Key, data []byte, updatedAt int64) error {
	item := itemKey(key)
	item[attrUpdatedAt] = &types.AttributeValueMemberN{Value: strconv.FormatInt(updatedAt, 10)}
	// DynamoDB rejects empty binary attributes
	if len(data) > 0 {
		item[attrData] = &types.AttributeValueMemberB{Value: data}
	}
	_, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("dynamodb: upsert %v: %w", key, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key store.Key) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       itemKey(key),
	})
	if err != nil {
		return fmt.Errorf("dynamodb: delete %v: %w", key, err)
	}
	return nil
}
