/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

// Package ddbstore implements the remote tier against AWS DynamoDB. All
// entity types share one table; the registry's key maps expand entity
// keys into partition and sort keys, and the full entity travels as a
// JSON payload attribute so local and remote codecs stay aligned.
package ddbstore

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	sdk "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/scribd/Lucid-sub001/entity"
	"github.com/scribd/Lucid-sub001/errors"
	"github.com/scribd/Lucid-sub001/query"
	"github.com/scribd/Lucid-sub001/registry"
	"github.com/scribd/Lucid-sub001/store"
)

const (
	attrPK         = "PK"
	attrSK         = "SK"
	attrEntityType = "EntityType"
	attrEntityKey  = "EntityKey"
	attrPayload    = "Payload"

	// entityTypeIndex is the GSI keyed on EntityType, used for full
	// searches across one entity type.
	entityTypeIndex = "EntityTypeIndex"
)

// Store is the DynamoDB-backed remote tier for one entity type.
type Store[E entity.Entity[E]] struct {
	client     *sdk.Client
	tableName  string
	entityType string
	keyMap     registry.KeyMap
	codec      store.Codec[E]
}

// NewClient initializes a DynamoDB client using static AWS credentials.
func NewClient(awsAccessKey, awsSecretKey, awsRegion string) (*sdk.Client, error) {
	cfg, err := config.LoadDefaultConfig(context.TODO(),
		config.WithRegion(awsRegion),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(awsAccessKey, awsSecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	return sdk.NewFromConfig(cfg), nil
}

// New constructs a remote store for one entity type. The key map for E
// must already be registered.
func New[E entity.Entity[E]](awsAccessKey, awsSecretKey, awsRegion, tableName, entityType string, codec store.Codec[E]) (*Store[E], error) {
	client, err := NewClient(awsAccessKey, awsSecretKey, awsRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to create DynamoDB client: %w", err)
	}
	return NewWithClient[E](client, tableName, entityType, codec)
}

// NewWithClient wraps an existing client, for callers that share one
// client across entity types.
func NewWithClient[E entity.Entity[E]](client *sdk.Client, tableName, entityType string, codec store.Codec[E]) (*Store[E], error) {
	keyMap, ok := registry.KeyMapFor[E]()
	if !ok {
		return nil, fmt.Errorf("no key map registered for entity type %q", entityType)
	}
	return &Store[E]{
		client:     client,
		tableName:  tableName,
		entityType: entityType,
		keyMap:     keyMap,
		codec:      codec,
	}, nil
}

// Level implements store.Store.
func (s *Store[E]) Level() store.Level { return store.LevelRemote }

func (s *Store[E]) itemKey(id entity.Identifier) map[string]types.AttributeValue {
	pk, sk := s.keyMap.Expand(id.Key)
	return map[string]types.AttributeValue{
		attrPK: &types.AttributeValueMemberS{Value: pk},
		attrSK: &types.AttributeValueMemberS{Value: sk},
	}
}

func (s *Store[E]) decodeItem(item map[string]types.AttributeValue) (E, error) {
	var zero E
	payload, ok := item[attrPayload].(*types.AttributeValueMemberB)
	if !ok {
		return zero, errors.NewDeserializationError(fmt.Errorf("item missing %s attribute", attrPayload))
	}
	e, err := s.codec.Decode(payload.Value)
	if err != nil {
		return zero, errors.NewDeserializationError(err)
	}
	return e, nil
}

// wrapCallError classifies transport failures so retry policies and
// fallback logic can tell interrupts from timeouts.
func wrapCallError(call string, err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewTimeoutError(fmt.Errorf("%s timed out: %w", call, err))
	}
	return errors.NewNetworkError(fmt.Errorf("%s failed: %w", call, err))
}

// Get implements store.Store.
func (s *Store[E]) Get(ctx context.Context, id entity.Identifier) (query.Result[E], error) {
	out, err := s.client.GetItem(ctx, &sdk.GetItemInput{
		TableName: &s.tableName,
		Key:       s.itemKey(id),
	})
	if err != nil {
		return query.EmptyResult[E](), wrapCallError("GetItem", err)
	}
	if out.Item == nil {
		return query.EmptyResult[E](), nil
	}

	e, err := s.decodeItem(out.Item)
	if err != nil {
		return query.EmptyResult[E](), err
	}
	return query.NewResult([]E{e}, nil), nil
}

// Search implements store.Store. Identifier queries resolve item by
// item; everything else runs a query against the entity-type GSI and
// filters in memory. The response order is the remote's natural order.
func (s *Store[E]) Search(ctx context.Context, q query.Query) (query.Result[E], error) {
	if ids := q.Identifiers(); len(ids) > 0 {
		return s.searchByIdentifiers(ctx, ids)
	}

	keyCond := fmt.Sprintf("%s = :entityType", attrEntityType)
	input := &sdk.QueryInput{
		TableName:              &s.tableName,
		IndexName:              aws.String(entityTypeIndex),
		KeyConditionExpression: &keyCond,
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":entityType": &types.AttributeValueMemberS{Value: s.entityType},
		},
	}

	var matched []E
	for {
		out, err := s.client.Query(ctx, input)
		if err != nil {
			return query.EmptyResult[E](), wrapCallError("Query", err)
		}
		for _, item := range out.Items {
			e, err := s.decodeItem(item)
			if err != nil {
				return query.EmptyResult[E](), err
			}
			if q.Matches(e) {
				matched = append(matched, e)
			}
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = out.LastEvaluatedKey
	}

	query.Sort(matched, q.Orders)
	total := len(matched)
	matched = query.Paginate(matched, q.Page)
	return query.NewResult(matched, &query.Metadata{Total: &total}), nil
}

func (s *Store[E]) searchByIdentifiers(ctx context.Context, ids []entity.Identifier) (query.Result[E], error) {
	var matched []E
	for _, id := range ids {
		out, err := s.client.GetItem(ctx, &sdk.GetItemInput{
			TableName: &s.tableName,
			Key:       s.itemKey(id),
		})
		if err != nil {
			return query.EmptyResult[E](), wrapCallError("GetItem", err)
		}
		if out.Item == nil {
			continue
		}
		e, err := s.decodeItem(out.Item)
		if err != nil {
			return query.EmptyResult[E](), err
		}
		matched = append(matched, e)
	}
	return query.NewResult(matched, nil), nil
}

// Set implements store.Store. The entity is written twice over: native
// attributes for console and index visibility, plus the codec payload
// that reads decode from.
func (s *Store[E]) Set(ctx context.Context, entities ...E) ([]E, error) {
	for _, e := range entities {
		id := e.EntityIdentifier()
		payload, err := s.codec.Encode(e)
		if err != nil {
			return nil, errors.NewDeserializationError(err)
		}

		item, err := attributevalue.MarshalMap(e)
		if err != nil {
			return nil, errors.NewDeserializationError(fmt.Errorf("failed to marshal entity %s: %w", id, err))
		}
		pk, sk := s.keyMap.Expand(id.Key)
		item[attrPK] = &types.AttributeValueMemberS{Value: pk}
		item[attrSK] = &types.AttributeValueMemberS{Value: sk}
		item[attrEntityType] = &types.AttributeValueMemberS{Value: id.EntityType}
		item[attrEntityKey] = &types.AttributeValueMemberS{Value: id.Key}
		item[attrPayload] = &types.AttributeValueMemberB{Value: payload}

		if _, err := s.client.PutItem(ctx, &sdk.PutItemInput{
			TableName: &s.tableName,
			Item:      item,
		}); err != nil {
			return nil, wrapCallError("PutItem", err)
		}
	}
	return entities, nil
}

// Remove implements store.Store.
func (s *Store[E]) Remove(ctx context.Context, ids ...entity.Identifier) error {
	for _, id := range ids {
		if _, err := s.client.DeleteItem(ctx, &sdk.DeleteItemInput{
			TableName: &s.tableName,
			Key:       s.itemKey(id),
		}); err != nil {
			return wrapCallError("DeleteItem", err)
		}
	}
	return nil
}

// RemoveAll implements store.Store.
func (s *Store[E]) RemoveAll(ctx context.Context, q query.Query) ([]entity.Identifier, error) {
	matched, err := s.Search(ctx, query.Query{EntityType: s.entityType, Filter: q.Filter})
	if err != nil {
		return nil, err
	}
	if matched.IsEmpty() {
		return nil, nil
	}

	ids := matched.Identifiers()
	if err := s.Remove(ctx, ids...); err != nil {
		return nil, err
	}
	return ids, nil
}
