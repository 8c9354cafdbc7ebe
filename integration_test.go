//go:build integration

/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package lucid_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lucid "github.com/scribd/Lucid-sub001"
	"github.com/scribd/Lucid-sub001/entity"
	"github.com/scribd/Lucid-sub001/query"
	"github.com/scribd/Lucid-sub001/store"
	"github.com/scribd/Lucid-sub001/store/memorystore"
	"github.com/scribd/Lucid-sub001/store/redisstore"
	"github.com/scribd/Lucid-sub001/store/sqlitestore"
	"github.com/scribd/Lucid-sub001/store/testmodels"
)

// TestManagerOverDurableTiers exercises the full read/write path over a
// real SQLite tier, and a Redis tier when LUCID_REDIS_ADDR is set.
func TestManagerOverDurableTiers(t *testing.T) {
	_ = godotenv.Load()

	ctx := context.Background()
	codec := store.JSONCodec[testmodels.Document]()

	db, err := sqlitestore.Open(filepath.Join(t.TempDir(), "lucid.db"))
	require.NoError(t, err)
	defer db.Close()

	tiers := []store.Store[testmodels.Document]{
		memorystore.New[testmodels.Document](),
		sqlitestore.New[testmodels.Document](db, testmodels.DocumentType, codec),
	}
	if addr := os.Getenv("LUCID_REDIS_ADDR"); addr != "" {
		redis := redisstore.New[testmodels.Document](addr, 0, testmodels.DocumentType, codec)
		defer redis.Close()
		tiers = append(tiers, redis)
	}

	m := lucid.NewCoreManager(tiers)

	d := testmodels.Document{
		ID:     "it-1",
		Title:  "durable",
		Rating: entity.Requested(5),
		State:  entity.OutOfSync,
	}
	_, err = m.Set(ctx, d, lucid.WriteContext{Target: lucid.TargetLocal})
	require.NoError(t, err)

	rc := lucid.ReadContext[testmodels.Document]{Source: lucid.LocalSource()}
	got, err := m.Get(ctx, d.EntityIdentifier(), rc)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "durable", got.Title)

	res, err := m.Search(ctx, query.All(testmodels.DocumentType).
		WithFilter(query.Where("rating", query.GreaterThan, 3)), rc)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count())

	require.NoError(t, m.Remove(ctx, d.EntityIdentifier(), lucid.WriteContext{Target: lucid.TargetLocal}))
	gone, err := m.Get(ctx, d.EntityIdentifier(), rc)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
