/*
Package lucid is a client-side entity caching and synchronization engine
for applications that read and write structured records through a
prioritized chain of storage tiers: a fast in-memory cache, a durable
local store, and a remote service.

Callers get one uniform query interface. Each read carries a DataSource
strategy deciding which tiers to consult (local, remote, localOr,
localThen); remote truth is validated, merged, and written back into
faster tiers; and every query can be observed continuously, re-emitting
whenever a mutation through the same manager changes the matching truth.

Key Features:
  - Type-safe managers using Go generics, one CoreManager per entity type
  - Ordered tier stacks with fallback, write aggregation, and composite errors
  - Lazy attributes with explicit requested/unrequested states and merge rules
  - Pluggable data-completeness contracts and access validation
  - Continuous subscriptions with deduplicated, strictly ordered emissions
  - Stale-record eviction keyed on complete authoritative results

Basic Usage:

	stores := []store.Store[Book]{
		memorystore.New[Book](),
		diskTier,
		remoteTier,
	}
	manager := lucid.NewCoreManager(stores)

	rc := lucid.ReadContext[Book]{
		Source: lucid.LocalOr(lucid.RemoteSource("/books", lucid.PersistRetainExtraLocalData)),
	}
	book, err := manager.Get(ctx, entity.NewIdentifier("Book", "b-1"), rc)

	sub := manager.Observe(ctx, query.All("Book"), rc)
	defer sub.Dispose()
	for result := range sub.Updates() {
		render(result.Entities)
	}

For more information, see the documentation at https://github.com/scribd/Lucid-sub001
*/
package lucid
