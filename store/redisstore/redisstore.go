/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

// Package redisstore implements a shared cache tier backed by Redis. It
// sits between the in-process memory tier and the remote tier when
// several processes on a host should share cached entities.
//
// Each entity type maps to one Redis hash; field names are entity keys
// and values are codec-encoded payloads. A separate list tracks
// first-insert order so natural-order fallback stays stable.
package redisstore

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/scribd/Lucid-sub001/entity"
	"github.com/scribd/Lucid-sub001/errors"
	"github.com/scribd/Lucid-sub001/query"
	"github.com/scribd/Lucid-sub001/store"
)

// Store caches one entity type in Redis at LevelDisk: durable relative
// to the process, shared across processes, slower than memory.
type Store[E entity.Entity[E]] struct {
	client     *redis.Client
	entityType string
	keyPrefix  string
	codec      store.Codec[E]
}

// New creates a Redis-backed store for one entity type.
func New[E entity.Entity[E]](addr string, db int, entityType string, codec store.Codec[E]) *Store[E] {
	return NewWithClient[E](redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	}), entityType, codec)
}

// NewWithClient wraps an existing client, for callers that share one
// client across entity types.
func NewWithClient[E entity.Entity[E]](client *redis.Client, entityType string, codec store.Codec[E]) *Store[E] {
	return &Store[E]{
		client:     client,
		entityType: entityType,
		keyPrefix:  "lucid:" + entityType,
		codec:      codec,
	}
}

// Close closes the Redis client connection.
func (s *Store[E]) Close() error {
	return s.client.Close()
}

func (s *Store[E]) hashKey() string  { return s.keyPrefix + ":entities" }
func (s *Store[E]) orderKey() string { return s.keyPrefix + ":order" }

// Level implements store.Store.
func (s *Store[E]) Level() store.Level { return store.LevelDisk }

// Get implements store.Store.
func (s *Store[E]) Get(ctx context.Context, id entity.Identifier) (query.Result[E], error) {
	payload, err := s.client.HGet(ctx, s.hashKey(), id.Key).Result()
	if err == redis.Nil {
		return query.EmptyResult[E](), nil
	}
	if err != nil {
		return query.EmptyResult[E](), errors.NewNetworkError(fmt.Errorf("failed to read entity %s: %w", id, err))
	}

	e, err := s.codec.Decode([]byte(payload))
	if err != nil {
		return query.EmptyResult[E](), errors.NewDeserializationError(err)
	}
	return query.NewResult([]E{e}, nil), nil
}

// Search implements store.Store. The whole hash for the entity type is
// fetched and filtered in memory, in first-insert order.
func (s *Store[E]) Search(ctx context.Context, q query.Query) (query.Result[E], error) {
	payloads, err := s.client.HGetAll(ctx, s.hashKey()).Result()
	if err != nil {
		return query.EmptyResult[E](), errors.NewNetworkError(fmt.Errorf("failed to search entities: %w", err))
	}
	if len(payloads) == 0 {
		return query.EmptyResult[E](), nil
	}

	order, err := s.client.LRange(ctx, s.orderKey(), 0, -1).Result()
	if err != nil {
		return query.EmptyResult[E](), errors.NewNetworkError(fmt.Errorf("failed to read entity order: %w", err))
	}

	var matched []E
	for _, key := range order {
		payload, ok := payloads[key]
		if !ok {
			continue
		}
		e, err := s.codec.Decode([]byte(payload))
		if err != nil {
			return query.EmptyResult[E](), errors.NewDeserializationError(err)
		}
		if q.Matches(e) {
			matched = append(matched, e)
		}
	}

	query.Sort(matched, q.Orders)
	matched = query.Paginate(matched, q.Page)
	return query.NewResult(matched, nil), nil
}

// Set implements store.Store.
func (s *Store[E]) Set(ctx context.Context, entities ...E) ([]E, error) {
	for _, e := range entities {
		id := e.EntityIdentifier()
		payload, err := s.codec.Encode(e)
		if err != nil {
			return nil, errors.NewDeserializationError(err)
		}

		existed, err := s.client.HExists(ctx, s.hashKey(), id.Key).Result()
		if err != nil {
			return nil, errors.NewNetworkError(fmt.Errorf("failed to check entity %s: %w", id, err))
		}
		if err := s.client.HSet(ctx, s.hashKey(), id.Key, payload).Err(); err != nil {
			return nil, errors.NewNetworkError(fmt.Errorf("failed to write entity %s: %w", id, err))
		}
		if !existed {
			if err := s.client.RPush(ctx, s.orderKey(), id.Key).Err(); err != nil {
				return nil, errors.NewNetworkError(fmt.Errorf("failed to track entity order for %s: %w", id, err))
			}
		}
	}
	return entities, nil
}

// Remove implements store.Store.
func (s *Store[E]) Remove(ctx context.Context, ids ...entity.Identifier) error {
	for _, id := range ids {
		if err := s.client.HDel(ctx, s.hashKey(), id.Key).Err(); err != nil {
			return errors.NewNetworkError(fmt.Errorf("failed to remove entity %s: %w", id, err))
		}
		if err := s.client.LRem(ctx, s.orderKey(), 0, id.Key).Err(); err != nil {
			return errors.NewNetworkError(fmt.Errorf("failed to untrack entity order for %s: %w", id, err))
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
