/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package config

import (
	"fmt"

	"github.com/scribd/Lucid-sub001/entity"
	"github.com/scribd/Lucid-sub001/store"
	"github.com/scribd/Lucid-sub001/store/ddbstore"
	"github.com/scribd/Lucid-sub001/store/memorystore"
	"github.com/scribd/Lucid-sub001/store/redisstore"
	"github.com/scribd/Lucid-sub001/store/sqlitestore"
)

// BuildStack constructs the configured tiers for one entity type, in
// document order, and composes them into a store.Stack.
func BuildStack[E entity.Entity[E]](cfg *StackConfig, entityType string, opts ...store.StackOption) (*store.Stack[E], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	codec := store.JSONCodec[E]()
	stores := make([]store.Store[E], 0, len(cfg.Tiers))
	for i, t := range cfg.Tiers {
		switch t.Kind {
		case KindMemory:
			stores = append(stores, memorystore.New[E]())

		case KindSQLite:
			db, err := sqlitestore.Open(t.Path)
			if err != nil {
				return nil, fmt.Errorf("tier %d: %w", i, err)
			}
			stores = append(stores, sqlitestore.New[E](db, entityType, codec))

		case KindRedis:
			stores = append(stores, redisstore.New[E](t.Addr, t.DB, entityType, codec))

		case KindDDB:
			s, err := ddbstore.New[E](t.AccessKey, t.SecretKey, t.Region, t.Table, entityType, codec)
			if err != nil {
				return nil, fmt.Errorf("tier %d: %w", i, err)
			}
			stores = append(stores, s)

		default:
			return nil, fmt.Errorf("tier %d: unknown tier kind %q", i, t.Kind)
		}
	}

	return store.NewStack(stores, opts...), nil
}
