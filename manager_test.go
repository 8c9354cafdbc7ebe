/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package lucid_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	lucid "github.com/scribd/Lucid-sub001"
	"github.com/scribd/Lucid-sub001/entity"
	"github.com/scribd/Lucid-sub001/errors"
	"github.com/scribd/Lucid-sub001/query"
	"github.com/scribd/Lucid-sub001/queue"
	"github.com/scribd/Lucid-sub001/store"
	"github.com/scribd/Lucid-sub001/store/mockstore"
	"github.com/scribd/Lucid-sub001/store/testmodels"
)

type tiers struct {
	memory *mockstore.Store[testmodels.Document]
	remote *mockstore.Store[testmodels.Document]
}

func newManager(t *testing.T) (*lucid.CoreManager[testmodels.Document], tiers) {
	t.Helper()
	memory := mockstore.New[testmodels.Document](store.LevelMemory)
	remote := mockstore.New[testmodels.Document](store.LevelRemote)
	m := lucid.NewCoreManager([]store.Store[testmodels.Document]{memory, remote})
	return m, tiers{memory: memory, remote: remote}
}

func docID(id string) entity.Identifier {
	return entity.NewIdentifier(testmodels.DocumentType, id)
}

// mutableAccess flips its reported level partway through a call window.
type mutableAccess struct {
	mu     sync.Mutex
	levels []lucid.AccessLevel
}

func (a *mutableAccess) CurrentAccess() lucid.AccessLevel {
	a.mu.Lock()
	defer a.mu.Unlock()
	level := a.levels[0]
	if len(a.levels) > 1 {
		a.levels = a.levels[1:]
	}
	return level
}

func TestGetLocalOr(t *testing.T) {
	ctx := context.Background()
	rc := lucid.ReadContext[testmodels.Document]{
		Source: lucid.LocalOr(lucid.RemoteSource("/documents", lucid.PersistRetainExtraLocalData)),
	}

	t.Run("local hit avoids the remote tier", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.memory.Seed(testmodels.Document{ID: "1", Title: "cached"})

		got, err := m.Get(ctx, docID("1"), rc)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "cached", got.Title)
		assert.Zero(t, tiers.remote.SearchCalls(), "remote consulted despite a local hit")
	})

	t.Run("local miss falls through and writes back", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.remote.Seed(testmodels.Document{ID: "1", Title: "fetched"})

		got, err := m.Get(ctx, docID("1"), rc)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "fetched", got.Title)
		assert.True(t, tiers.memory.Contains(docID("1")), "remote result not written through")
	})

	t.Run("partial identifier hit is not trusted", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.memory.Seed(testmodels.Document{ID: "1", Title: "cached"})
		tiers.remote.Seed(
			testmodels.Document{ID: "1", Title: "remote one"},
			testmodels.Document{ID: "2", Title: "remote two"},
		)

		res, err := m.GetMany(ctx, []entity.Identifier{docID("1"), docID("2")}, rc)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Count(), "partial local hit should defer to remote")
		assert.NotZero(t, tiers.remote.SearchCalls())
	})

	t.Run("connectivity loss falls back to the local result", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.remote.WithSearchError(errors.NewNetworkError(nil))

		res, err := m.Search(ctx, query.All(testmodels.DocumentType), rc)
		require.NoError(t, err, "network failure should not surface under localOr")
		assert.True(t, res.IsEmpty())
	})

	t.Run("non-network remote failure surfaces", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.remote.WithSearchError(errors.NewStatusError(400))

		_, err := m.Search(ctx, query.All(testmodels.DocumentType), rc)
		require.Error(t, err)
		apiErr, ok := errors.AsAPIError(err)
		require.True(t, ok)
		assert.Equal(t, 400, apiErr.StatusCode)
	})
}

func TestSearchPersistence(t *testing.T) {
	ctx := context.Background()

	t.Run("retain strategy keeps fetched lazy attributes", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.memory.Seed(testmodels.Document{
			ID:     "1",
			Title:  "cached",
			Rating: entity.Requested(5),
		})
		tiers.remote.Seed(testmodels.Document{ID: "1", Title: "fresh"})

		rc := lucid.ReadContext[testmodels.Document]{
			Source: lucid.RemoteSource("/documents", lucid.PersistRetainExtraLocalData),
		}
		_, err := m.Search(ctx, query.All(testmodels.DocumentType), rc)
		require.NoError(t, err)

		local, err := tiers.memory.Get(ctx, docID("1"))
		require.NoError(t, err)
		require.NotNil(t, local.First())
		assert.Equal(t, "fresh", local.First().Title)
		rating, ok := local.First().Rating.Value()
		assert.True(t, ok, "requested lazy attribute lost by retain strategy")
		assert.Equal(t, 5, rating)
	})

	t.Run("discard strategy overwrites lazy attributes", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.memory.Seed(testmodels.Document{
			ID:     "1",
			Title:  "cached",
			Rating: entity.Requested(5),
		})
		tiers.remote.Seed(testmodels.Document{ID: "1", Title: "fresh"})

		rc := lucid.ReadContext[testmodels.Document]{
			Source: lucid.RemoteSource("/documents", lucid.PersistDiscardExtraLocalData),
		}
		_, err := m.Search(ctx, query.All(testmodels.DocumentType), rc)
		require.NoError(t, err)

		local, err := tiers.memory.Get(ctx, docID("1"))
		require.NoError(t, err)
		require.NotNil(t, local.First())
		_, ok := local.First().Rating.Value()
		assert.False(t, ok, "discard strategy should reset lazy attributes")
	})

	t.Run("do-not-persist leaves local tiers untouched", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.remote.Seed(testmodels.Document{ID: "1", Title: "fresh"})

		rc := lucid.ReadContext[testmodels.Document]{
			Source: lucid.RemoteSource("/documents", lucid.DoNotPersist),
		}
		res, err := m.Search(ctx, query.All(testmodels.DocumentType), rc)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Count())
		assert.False(t, tiers.memory.Contains(docID("1")))
	})
}

func TestStaleEviction(t *testing.T) {
	ctx := context.Background()
	rc := lucid.ReadContext[testmodels.Document]{
		Source: lucid.RemoteSource("/documents", lucid.PersistDiscardExtraLocalData),
	}

	t.Run("synced absentees are evicted", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.memory.Seed(
			testmodels.Document{ID: "1", Title: "still remote", State: entity.Synced},
			testmodels.Document{ID: "2", Title: "deleted remotely", State: entity.Synced},
		)
		tiers.remote.Seed(testmodels.Document{ID: "1", Title: "still remote", State: entity.Synced})

		_, err := m.Search(ctx, query.All(testmodels.DocumentType), rc)
		require.NoError(t, err)
		assert.True(t, tiers.memory.Contains(docID("1")))
		assert.False(t, tiers.memory.Contains(docID("2")), "stale synced record survived")
	})

	t.Run("outOfSync records are never evicted", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.memory.Seed(testmodels.Document{ID: "2", Title: "local draft", State: entity.OutOfSync})
		tiers.remote.Seed(testmodels.Document{ID: "1", Title: "remote", State: entity.Synced})

		_, err := m.Search(ctx, query.All(testmodels.DocumentType), rc)
		require.NoError(t, err)
		assert.True(t, tiers.memory.Contains(docID("2")), "unacknowledged local write evicted")
	})

	t.Run("paged results never evict", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.memory.Seed(testmodels.Document{ID: "2", Title: "beyond the page", State: entity.Synced})
		tiers.remote.Seed(testmodels.Document{ID: "1", Title: "remote", State: entity.Synced})

		_, err := m.Search(ctx, query.All(testmodels.DocumentType).WithPage(0, 1), rc)
		require.NoError(t, err)
		assert.True(t, tiers.memory.Contains(docID("2")), "incomplete result triggered eviction")
	})

	t.Run("contextual results never evict", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.memory.Seed(testmodels.Document{ID: "2", Title: "other context", State: entity.Synced})
		tiers.remote.Seed(testmodels.Document{ID: "1", Title: "remote", State: entity.Synced})

		_, err := m.Search(ctx, query.All(testmodels.DocumentType).WithContextual(), rc)
		require.NoError(t, err)
		assert.True(t, tiers.memory.Contains(docID("2")), "contextual result triggered eviction")
	})

	t.Run("identifier lookups never evict", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.memory.Seed(testmodels.Document{ID: "2", Title: "not asked about", State: entity.Synced})
		tiers.remote.Seed(testmodels.Document{ID: "1", Title: "remote", State: entity.Synced})

		_, err := m.GetMany(ctx, []entity.Identifier{docID("1")}, lucid.ReadContext[testmodels.Document]{
			Source: lucid.RemoteSource("/documents", lucid.PersistDiscardExtraLocalData),
		})
		require.NoError(t, err)
		assert.True(t, tiers.memory.Contains(docID("2")), "identifier lookup triggered eviction")
	})
}

func TestContractFiltering(t *testing.T) {
	ctx := context.Background()

	t.Run("incomplete entities are dropped, not errors", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.memory.Seed(
			testmodels.Document{ID: "a", Title: "no rating"},
			testmodels.Document{ID: "b", Title: "rated", Rating: entity.Requested(4)},
		)

		rc := lucid.ReadContext[testmodels.Document]{
			Source:   lucid.LocalSource(),
			Contract: lucid.RequestedExtrasContract[testmodels.Document](),
		}
		res, err := m.Search(ctx, query.All(testmodels.DocumentType).WithExtras("rating"), rc)
		require.NoError(t, err)
		require.Equal(t, 1, res.Count())
		assert.Equal(t, "b", res.First().ID)
	})

	t.Run("nil contract accepts everything", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.memory.Seed(testmodels.Document{ID: "a", Title: "no rating"})

		rc := lucid.ReadContext[testmodels.Document]{Source: lucid.LocalSource()}
		res, err := m.Search(ctx, query.All(testmodels.DocumentType).WithExtras("rating"), rc)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Count())
	})

	t.Run("always-valid contract is a no-op", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.memory.Seed(testmodels.Document{ID: "a"})

		rc := lucid.ReadContext[testmodels.Document]{
			Source:   lucid.LocalSource(),
			Contract: lucid.AlwaysValidContract[testmodels.Document](),
		}
		res, err := m.Search(ctx, query.All(testmodels.DocumentType), rc)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Count())
	})
}

func TestAccessValidation(t *testing.T) {
	ctx := context.Background()

	t.Run("noAccess fails every read", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.memory.Seed(testmodels.Document{ID: "1"})

		rc := lucid.ReadContext[testmodels.Document]{
			Source: lucid.LocalSource(),
			Access: lucid.StaticAccess(lucid.NoAccess),
		}
		_, err := m.Search(ctx, query.All(testmodels.DocumentType), rc)
		assert.True(t, errors.IsUserAccessInvalid(err))
	})

	t.Run("localAccess blocks the remote tier", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.remote.Seed(testmodels.Document{ID: "1"})

		rc := lucid.ReadContext[testmodels.Document]{
			Source: lucid.RemoteSource("/documents", lucid.DoNotPersist),
			Access: lucid.StaticAccess(lucid.LocalAccess),
		}
		_, err := m.Search(ctx, query.All(testmodels.DocumentType), rc)
		assert.True(t, errors.IsUserAccessInvalid(err))
		assert.Zero(t, tiers.remote.SearchCalls(), "remote tier consulted without remote access")
	})

	t.Run("localAccess still reads local tiers", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.memory.Seed(testmodels.Document{ID: "1", Title: "cached"})

		rc := lucid.ReadContext[testmodels.Document]{
			Source: lucid.LocalSource(),
			Access: lucid.StaticAccess(lucid.LocalAccess),
		}
		res, err := m.Search(ctx, query.All(testmodels.DocumentType), rc)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Count())
	})

	t.Run("access change across the call window fails the read", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.memory.Seed(testmodels.Document{ID: "1"})

		rc := lucid.ReadContext[testmodels.Document]{
			Source: lucid.LocalSource(),
			Access: &mutableAccess{levels: []lucid.AccessLevel{lucid.RemoteAccess, lucid.NoAccess}},
		}
		_, err := m.Search(ctx, query.All(testmodels.DocumentType), rc)
		assert.True(t, errors.IsUserAccessInvalid(err), "stale access window not detected")
	})

	t.Run("writes enforce access too", func(t *testing.T) {
		m, _ := newManager(t)

		_, err := m.Set(ctx, testmodels.Document{ID: "1"}, lucid.WriteContext{
			Target: lucid.TargetLocalAndRemote,
			Access: lucid.StaticAccess(lucid.LocalAccess),
		})
		assert.True(t, errors.IsUserAccessInvalid(err))
	})

	t.Run("local write access window straddles the mutation", func(t *testing.T) {
		m, tiers := newManager(t)

		_, err := m.Set(ctx, testmodels.Document{ID: "1"}, lucid.WriteContext{
			Target: lucid.TargetLocal,
			Access: &mutableAccess{levels: []lucid.AccessLevel{lucid.LocalAccess, lucid.NoAccess}},
		})
		assert.True(t, errors.IsUserAccessInvalid(err), "stale access window not detected")
		assert.Equal(t, 1, tiers.memory.SetCalls(), "local mutation ran outside the access window")
	})
}

func TestWrites(t *testing.T) {
	ctx := context.Background()

	t.Run("local write stays local", func(t *testing.T) {
		m, tiers := newManager(t)

		_, err := m.Set(ctx, testmodels.Document{ID: "1", Title: "draft", State: entity.OutOfSync},
			lucid.WriteContext{Target: lucid.TargetLocal})
		require.NoError(t, err)
		assert.True(t, tiers.memory.Contains(docID("1")))
		assert.False(t, tiers.remote.Contains(docID("1")), "local-only write reached remote")
	})

	t.Run("local-and-remote write reaches both", func(t *testing.T) {
		m, tiers := newManager(t)

		_, err := m.Set(ctx, testmodels.Document{ID: "1", Title: "published", State: entity.Synced},
			lucid.WriteContext{Target: lucid.TargetLocalAndRemote})
		require.NoError(t, err)
		assert.True(t, tiers.memory.Contains(docID("1")))
		assert.True(t, tiers.remote.Contains(docID("1")))
	})

	t.Run("write merges into the local copy", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.memory.Seed(testmodels.Document{
			ID:     "1",
			Title:  "old",
			Rating: entity.Requested(3),
		})

		_, err := m.Set(ctx, testmodels.Document{ID: "1", Title: "new"},
			lucid.WriteContext{Target: lucid.TargetLocal})
		require.NoError(t, err)

		local, err := tiers.memory.Get(ctx, docID("1"))
		require.NoError(t, err)
		require.NotNil(t, local.First())
		assert.Equal(t, "new", local.First().Title)
		rating, ok := local.First().Rating.Value()
		assert.True(t, ok, "merge dropped a requested lazy attribute")
		assert.Equal(t, 3, rating)
	})

	t.Run("remove reaches the configured target", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.memory.Seed(testmodels.Document{ID: "1"})
		tiers.remote.Seed(testmodels.Document{ID: "1"})

		err := m.Remove(ctx, docID("1"), lucid.WriteContext{Target: lucid.TargetLocal})
		require.NoError(t, err)
		assert.False(t, tiers.memory.Contains(docID("1")))
		assert.True(t, tiers.remote.Contains(docID("1")))

		err = m.Remove(ctx, docID("1"), lucid.WriteContext{Target: lucid.TargetLocalAndRemote})
		require.NoError(t, err)
		assert.False(t, tiers.remote.Contains(docID("1")))
	})

	t.Run("removeAll returns the union of removed ids", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.memory.Seed(testmodels.Document{ID: "1"})
		tiers.remote.Seed(testmodels.Document{ID: "1"}, testmodels.Document{ID: "2"})

		removed, err := m.RemoveAll(ctx, query.All(testmodels.DocumentType),
			lucid.WriteContext{Target: lucid.TargetLocalAndRemote})
		require.NoError(t, err)
		assert.Len(t, removed, 2)
	})
}

func TestLocalThenSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the remote-informed result", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.memory.Seed(testmodels.Document{ID: "1", Title: "old"})
		tiers.remote.Seed(testmodels.Document{ID: "1", Title: "new"})

		rc := lucid.ReadContext[testmodels.Document]{
			Source: lucid.LocalThen(lucid.RemoteSource("/documents", lucid.PersistRetainExtraLocalData)),
		}
		res, err := m.Search(ctx, query.All(testmodels.DocumentType), rc)
		require.NoError(t, err)
		require.NotNil(t, res.First())
		assert.Equal(t, "new", res.First().Title)
	})

	t.Run("connectivity loss returns the local result", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.memory.Seed(testmodels.Document{ID: "1", Title: "old"})
		tiers.remote.WithSearchError(errors.NewNetworkError(nil))

		rc := lucid.ReadContext[testmodels.Document]{
			Source: lucid.LocalThen(lucid.RemoteSource("/documents", lucid.PersistRetainExtraLocalData)),
		}
		res, err := m.Search(ctx, query.All(testmodels.DocumentType), rc)
		require.NoError(t, err)
		require.NotNil(t, res.First())
		assert.Equal(t, "old", res.First().Title)
	})

	t.Run("retaining persistence returns the merged truth", func(t *testing.T) {
		m, tiers := newManager(t)
		tiers.memory.Seed(testmodels.Document{ID: "1", Title: "old", Rating: entity.Requested(5)})
		tiers.remote.Seed(testmodels.Document{ID: "1", Title: "new"})

		rc := lucid.ReadContext[testmodels.Document]{
			Source: lucid.LocalThen(lucid.RemoteSource("/documents", lucid.PersistRetainExtraLocalData)),
		}
		res, err := m.Search(ctx, query.All(testmodels.DocumentType), rc)
		require.NoError(t, err)
		require.NotNil(t, res.First())
		assert.Equal(t, "new", res.First().Title)
		rating, ok := res.First().Rating.Value()
		require.True(t, ok, "returned result lost the retained lazy value")
		assert.Equal(t, 5, rating)
	})

	t.Run("the remote fetch starts during the local read", func(t *testing.T) {
		m, tiers := newManager(t)
		remoteStarted := make(chan struct{})
		tiers.remote.WithSearchFunc(func(ctx context.Context, q query.Query) (query.Result[testmodels.Document], error) {
			close(remoteStarted)
			return query.NewResult([]testmodels.Document{{ID: "1", Title: "fetched"}}, nil), nil
		})
		var sawRemoteStart bool
		tiers.memory.WithSearchFunc(func(ctx context.Context, q query.Query) (query.Result[testmodels.Document], error) {
			select {
			case <-remoteStarted:
				sawRemoteStart = true
			case <-time.After(5 * time.Second):
			}
			return query.EmptyResult[testmodels.Document](), nil
		})

		rc := lucid.ReadContext[testmodels.Document]{
			Source: lucid.LocalThen(lucid.RemoteSource("/documents", lucid.DoNotPersist)),
		}
		res, err := m.Search(ctx, query.All(testmodels.DocumentType), rc)
		require.NoError(t, err)
		require.NotNil(t, res.First())
		assert.Equal(t, "fetched", res.First().Title)
		assert.True(t, sawRemoteStart, "remote fetch had not started while the local read was running")
	})
}

func TestNoRemoteTierConfigured(t *testing.T) {
	ctx := context.Background()
	memory := mockstore.New[testmodels.Document](store.LevelMemory).
		Seed(testmodels.Document{ID: "1", Title: "cached"})
	m := lucid.NewCoreManager([]store.Store[testmodels.Document]{memory})

	rc := lucid.ReadContext[testmodels.Document]{
		Source: lucid.LocalOr(lucid.RemoteSource("/documents", lucid.PersistRetainExtraLocalData)),
	}
	res, err := m.Search(ctx, query.All(testmodels.DocumentType), rc)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Count())

	// A miss with no remote tier is an empty no-op success.
	res, err = m.GetMany(ctx, []entity.Identifier{docID("absent")}, rc)
	require.NoError(t, err)
	assert.True(t, res.IsEmpty())
}

func TestOutboundQueueWrites(t *testing.T) {
	ctx := context.Background()

	t.Run("remote mutation runs through the queue", func(t *testing.T) {
		q := queue.New()
		defer q.Close()

		memory := mockstore.New[testmodels.Document](store.LevelMemory)
		remote := mockstore.New[testmodels.Document](store.LevelRemote)
		m := lucid.NewCoreManager(
			[]store.Store[testmodels.Document]{memory, remote},
			lucid.WithOutboundQueue(q))

		_, err := m.Set(ctx, testmodels.Document{ID: "1", Title: "queued", State: entity.Synced},
			lucid.WriteContext{Target: lucid.TargetLocalAndRemote})
		require.NoError(t, err)
		assert.True(t, memory.Contains(docID("1")))
		assert.True(t, remote.Contains(docID("1")))
	})

	t.Run("non-retryable remote failure propagates", func(t *testing.T) {
		q := queue.New()
		defer q.Close()

		memory := mockstore.New[testmodels.Document](store.LevelMemory)
		remote := mockstore.New[testmodels.Document](store.LevelRemote).
			WithSetError(errors.NewStatusError(500))
		m := lucid.NewCoreManager(
			[]store.Store[testmodels.Document]{memory, remote},
			lucid.WithOutboundQueue(q))

		_, err := m.Set(ctx, testmodels.Document{ID: "1"},
			lucid.WriteContext{Target: lucid.TargetLocalAndRemote})
		require.Error(t, err)
		assert.False(t, memory.Contains(docID("1")), "failed remote write reached local tiers")
	})
}
