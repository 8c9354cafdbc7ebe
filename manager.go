/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package lucid

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/scribd/Lucid-sub001/entity"
	"github.com/scribd/Lucid-sub001/errors"
	"github.com/scribd/Lucid-sub001/query"
	"github.com/scribd/Lucid-sub001/queue"
	"github.com/scribd/Lucid-sub001/store"
)

// CoreManager is the façade per entity type. It owns the store stack,
// resolves the DataSource strategy of each read, performs write-through
// caching and stale-record eviction, runs contract and access validation,
// and maintains the continuous-subscription registry.
//
// Exactly one CoreManager must own a given tier triple; all writes to the
// local truth go through it so the eviction and diffing invariants hold.
type CoreManager[E entity.Entity[E]] struct {
	stack  *store.Stack[E]
	local  *store.Stack[E]
	remote *store.Stack[E]

	// mu is the single critical section serializing write-through,
	// eviction, and subscription re-emission.
	mu   sync.Mutex
	subs map[uuid.UUID]*Subscription[E]

	outbound queue.Queue
	logger   *slog.Logger
}

type managerConfig struct {
	outbound queue.Queue
	logger   *slog.Logger
}

// ManagerOption configures a CoreManager.
type ManagerOption func(*managerConfig)

// WithLogger sets the manager's logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(c *managerConfig) {
		c.logger = logger
	}
}

// WithOutboundQueue routes remote mutations through q as barrier requests,
// picking up the queue's retry policy and journaling. Without a queue,
// remote mutations run inline.
func WithOutboundQueue(q queue.Queue) ManagerOption {
	return func(c *managerConfig) {
		c.outbound = q
	}
}

// NewCoreManager builds a manager over the given tier stores, earliest =
// highest priority.
func NewCoreManager[E entity.Entity[E]](stores []store.Store[E], opts ...ManagerOption) *CoreManager[E] {
	cfg := managerConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	stack := store.NewStack(stores, store.WithLogger(cfg.logger))
	return &CoreManager[E]{
		stack:    stack,
		local:    stack.Local(),
		remote:   stack.Remote(),
		subs:     make(map[uuid.UUID]*Subscription[E]),
		outbound: cfg.outbound,
		logger:   cfg.logger,
	}
}

// dispatchRemote runs one remote mutation, through the outbound queue when
// one is configured. Barrier scheduling keeps remote mutations in submit
// order.
func (m *CoreManager[E]) dispatchRemote(ctx context.Context, label string, run func(ctx context.Context) error) error {
	if m.outbound == nil {
		return run(ctx)
	}
	return <-m.outbound.Enqueue(ctx, queue.NewRequest(label, queue.Barrier, run))
}

// Get retrieves a single entity, nil when absent.
func (m *CoreManager[E]) Get(ctx context.Context, id entity.Identifier, rc ReadContext[E]) (*E, error) {
	res, err := m.GetMany(ctx, []entity.Identifier{id}, rc)
	if err != nil {
		return nil, err
	}
	return res.First(), nil
}

// GetMany retrieves the entities with the given identifiers. Local
// results are trusted only when every requested identifier was found;
// a partial local hit falls through to remote under localOr/localThen.
func (m *CoreManager[E]) GetMany(ctx context.Context, ids []entity.Identifier, rc ReadContext[E]) (query.Result[E], error) {
	return m.Search(ctx, query.ByIdentifiers(ids...), rc)
}

// Search retrieves the entities matching the query and returns the final
// result of the read strategy. For LocalThen the remote-informed result
// is returned, falling back to the local one on connectivity loss.
func (m *CoreManager[E]) Search(ctx context.Context, q query.Query, rc ReadContext[E]) (query.Result[E], error) {
	return m.execute(ctx, q, rc, nil)
}

// execute runs the read strategy, invoking sink for every successive best
// result, and returns the final outcome.
func (m *CoreManager[E]) execute(ctx context.Context, q query.Query, rc ReadContext[E], sink func(query.Result[E])) (query.Result[E], error) {
	emit := func(res query.Result[E]) {
		if sink != nil {
			sink(res)
		}
	}

	switch rc.Source.kind {
	case sourceLocal:
		res, err := m.readLocal(ctx, q, rc)
		if err != nil {
			return query.EmptyResult[E](), err
		}
		emit(res)
		return res, nil

	case sourceRemote:
		res, err := m.readRemote(ctx, q, rc)
		if err != nil {
			return query.EmptyResult[E](), err
		}
		emit(res)
		return res, nil

	case sourceLocalOr:
		local, lerr := m.readLocal(ctx, q, rc)
		if lerr == nil && m.trustLocal(q, local) {
			emit(local)
			return local, nil
		}
		if lerr != nil {
			if errors.IsUserAccessInvalid(lerr) {
				return query.EmptyResult[E](), lerr
			}
			local = query.EmptyResult[E]()
		}
		res, err := m.readRemote(ctx, q, rc)
		if err != nil {
			if errors.IsNetworkFailure(err) {
				// Transient connectivity loss must not erase a usable
				// cache: the local result, possibly empty, stands.
				emit(local)
				return local, nil
			}
			return query.EmptyResult[E](), err
		}
		emit(res)
		return res, nil

	case sourceLocalThen:
		// The remote fetch starts immediately; filtering and write-through
		// wait until the local result has been emitted so observers see
		// the two emissions in order.
		type remoteOutcome struct {
			res query.Result[E]
			err error
		}
		fetched := make(chan remoteOutcome, 1)
		go func() {
			res, err := m.fetchRemote(ctx, q, rc)
			fetched <- remoteOutcome{res: res, err: err}
		}()

		local, lerr := m.readLocal(ctx, q, rc)
		if lerr != nil {
			if errors.IsUserAccessInvalid(lerr) {
				return query.EmptyResult[E](), lerr
			}
			local = query.EmptyResult[E]()
		}
		emit(local)

		out := <-fetched
		if out.err != nil {
			if errors.IsNetworkFailure(out.err) {
				return local, nil
			}
			return query.EmptyResult[E](), out.err
		}
		res := m.acceptRemote(ctx, q, rc, out.res)
		emit(res)
		return res, nil

	default:
		return query.EmptyResult[E](), errors.ErrNotSupported
	}
}

func (m *CoreManager[E]) readLocal(ctx context.Context, q query.Query, rc ReadContext[E]) (query.Result[E], error) {
	res, err := m.guardAccess(rc.Access, false, func() (query.Result[E], error) {
		return m.local.Search(ctx, q)
	})
	if err != nil {
		return query.EmptyResult[E](), err
	}
	return filterResult(res, q, rc.Contract), nil
}

func (m *CoreManager[E]) readRemote(ctx context.Context, q query.Query, rc ReadContext[E]) (query.Result[E], error) {
	res, err := m.fetchRemote(ctx, q, rc)
	if err != nil {
		return query.EmptyResult[E](), err
	}
	return m.acceptRemote(ctx, q, rc, res), nil
}

// fetchRemote performs the guarded remote search without touching local
// tiers.
func (m *CoreManager[E]) fetchRemote(ctx context.Context, q query.Query, rc ReadContext[E]) (query.Result[E], error) {
	if m.remote.Len() == 0 {
		// No remote tier configured behaves like an empty stack: no-op
		// success.
		return query.EmptyResult[E](), nil
	}
	res, err := m.guardAccess(rc.Access, true, func() (query.Result[E], error) {
		return m.remote.Search(ctx, q)
	})
	if err != nil {
		return query.EmptyResult[E](), err
	}
	return res, nil
}

// acceptRemote filters a fetched remote payload and, when the strategy
// persists, merges it into the local truth. The returned result carries
// the merged copies so callers and observers see the same view the local
// tiers now hold.
func (m *CoreManager[E]) acceptRemote(ctx context.Context, q query.Query, rc ReadContext[E], res query.Result[E]) query.Result[E] {
	accepted := filterResult(res, q, rc.Contract)
	if rc.Source.persistence.ShouldPersist() {
		accepted = m.persist(ctx, q, accepted, rc.Source.persistence)
	}
	return accepted
}

// guardAccess re-checks the caller's access level before and after a
// store call. NoAccess, insufficient reach for the tier, or a change
// across the pre/post window all fail with ErrUserAccessInvalid; the
// stale window is treated as fatal, not retried.
func (m *CoreManager[E]) guardAccess(v AccessValidator, remoteTier bool, call func() (query.Result[E], error)) (query.Result[E], error) {
	if v == nil {
		return call()
	}
	pre := v.CurrentAccess()
	if pre == NoAccess || (remoteTier && pre != RemoteAccess) {
		return query.EmptyResult[E](), errors.ErrUserAccessInvalid
	}
	res, err := call()
	if post := v.CurrentAccess(); post != pre {
		return query.EmptyResult[E](), errors.ErrUserAccessInvalid
	}
	return res, err
}

// trustLocal decides whether a local result can satisfy a localOr read
// without consulting remote.
func (m *CoreManager[E]) trustLocal(q query.Query, res query.Result[E]) bool {
	if res.IsEmpty() {
		return false
	}
	if ids := q.Identifiers(); ids != nil && res.Count() != len(ids) {
		// A missing identifier is indistinguishable from "not yet
		// fetched", so a partial hit is not trusted.
		return false
	}
	return true
}

// persist merges accepted remote entities into faster tiers, evicts stale
// records where the remote result is the complete truth, and re-evaluates
// continuous subscriptions, all under the manager's critical section. The
// returned result carries the merged copies, which are the local truth
// after write-through.
func (m *CoreManager[E]) persist(ctx context.Context, q query.Query, res query.Result[E], strategy PersistenceStrategy) query.Result[E] {
	if m.local.Len() == 0 {
		return res
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	toWrite := make([]E, 0, len(res.Entities))
	for _, e := range res.Entities {
		merged := e
		if strategy == PersistRetainExtraLocalData {
			existing, err := m.local.Get(ctx, e.EntityIdentifier())
			if err == nil && !existing.IsEmpty() {
				merged = (*existing.First()).Merge(e)
			}
		}
		toWrite = append(toWrite, merged)
	}
	if len(toWrite) > 0 {
		if _, err := m.local.Set(ctx, toWrite...); err != nil {
			m.logger.Warn("write-through failed", slog.Any("error", err))
		}
	}

	if strategy == PersistDiscardExtraLocalData && q.IsComplete() && q.Identifiers() == nil {
		m.evictStaleLocked(ctx, q, res)
	}

	m.notifyLocked(ctx)
	return query.Result[E]{Entities: toWrite, Metadata: res.Metadata}
}

// evictStaleLocked removes synced local records the complete remote
// result no longer contains. OutOfSync records represent local writes the
// remote has not acknowledged and are never evicted.
func (m *CoreManager[E]) evictStaleLocked(ctx context.Context, q query.Query, remote query.Result[E]) {
	scan := q
	scan.Orders = nil
	localRes, err := m.local.Search(ctx, scan)
	if err != nil {
		m.logger.Warn("stale-record scan failed", slog.Any("error", err))
		return
	}

	remoteIDs := remote.IdentifierSet()
	var stale []entity.Identifier
	for _, e := range localRes.Entities {
		id := e.EntityIdentifier()
		if _, present := remoteIDs[id]; present {
			continue
		}
		if e.EntitySyncState() != entity.Synced {
			continue
		}
		stale = append(stale, id)
	}
	if len(stale) == 0 {
		return
	}
	if err := m.local.Remove(ctx, stale...); err != nil {
		m.logger.Warn("stale-record eviction failed", slog.Any("error", err))
		return
	}
	m.logger.Debug("evicted stale records", slog.Int("count", len(stale)))
}

// Set writes one entity.
func (m *CoreManager[E]) Set(ctx context.Context, e E, wc WriteContext) (E, error) {
	stored, err := m.SetMany(ctx, []E{e}, wc)
	if err != nil {
		var zero E
		return zero, err
	}
	return stored[0], nil
}

// SetMany writes the entities to the configured target. Remote writes run
// first so local tiers mirror the acknowledged truth; the written copies
// are merged into local tiers and continuous subscriptions re-evaluate.
func (m *CoreManager[E]) SetMany(ctx context.Context, entities []E, wc WriteContext) ([]E, error) {
	if len(entities) == 0 {
		return nil, nil
	}

	applyLocal := func(written []E) ([]E, error) {
		m.mu.Lock()
		defer m.mu.Unlock()

		merged := make([]E, 0, len(written))
		for _, e := range written {
			w := e
			existing, err := m.local.Get(ctx, e.EntityIdentifier())
			if err == nil && !existing.IsEmpty() {
				w = (*existing.First()).Merge(e)
			}
			merged = append(merged, w)
		}
		stored, err := m.local.Set(ctx, merged...)
		if err != nil {
			return nil, err
		}
		m.notifyLocked(ctx)
		return stored, nil
	}

	if wc.Target == TargetLocalAndRemote && m.remote.Len() > 0 {
		res, err := m.guardAccess(wc.Access, true, func() (query.Result[E], error) {
			var stored []E
			err := m.dispatchRemote(ctx, "set", func(ctx context.Context) error {
				var err error
				stored, err = m.remote.Set(ctx, entities...)
				return err
			})
			if err != nil {
				return query.EmptyResult[E](), err
			}
			return query.NewResult(stored, nil), nil
		})
		if err != nil {
			return nil, err
		}
		written := entities
		if !res.IsEmpty() {
			written = res.Entities
		}
		return applyLocal(written)
	}

	var stored []E
	if _, err := m.guardAccess(wc.Access, false, func() (query.Result[E], error) {
		var err error
		stored, err = applyLocal(entities)
		return query.EmptyResult[E](), err
	}); err != nil {
		return nil, err
	}
	return stored, nil
}

// Remove deletes one entity.
func (m *CoreManager[E]) Remove(ctx context.Context, id entity.Identifier, wc WriteContext) error {
	return m.RemoveMany(ctx, []entity.Identifier{id}, wc)
}

// RemoveMany deletes the entities with the given identifiers from the
// configured target.
func (m *CoreManager[E]) RemoveMany(ctx context.Context, ids []entity.Identifier, wc WriteContext) error {
	if len(ids) == 0 {
		return nil
	}

	applyLocal := func() error {
		m.mu.Lock()
		defer m.mu.Unlock()

		if err := m.local.Remove(ctx, ids...); err != nil {
			return err
		}
		m.notifyLocked(ctx)
		return nil
	}

	if wc.Target == TargetLocalAndRemote && m.remote.Len() > 0 {
		_, err := m.guardAccess(wc.Access, true, func() (query.Result[E], error) {
			return query.EmptyResult[E](), m.dispatchRemote(ctx, "remove", func(ctx context.Context) error {
				return m.remote.Remove(ctx, ids...)
			})
		})
		if err != nil {
			return err
		}
		return applyLocal()
	}

	_, err := m.guardAccess(wc.Access, false, func() (query.Result[E], error) {
		return query.EmptyResult[E](), applyLocal()
	})
	return err
}

// RemoveAll deletes every entity matching the query from the configured
// target and returns the removed identifiers.
func (m *CoreManager[E]) RemoveAll(ctx context.Context, q query.Query, wc WriteContext) ([]entity.Identifier, error) {
	var removed []entity.Identifier
	seen := make(map[entity.Identifier]struct{})
	collect := func(ids []entity.Identifier) {
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			removed = append(removed, id)
		}
	}

	applyLocal := func() error {
		m.mu.Lock()
		defer m.mu.Unlock()

		ids, err := m.local.RemoveAll(ctx, q)
		if err != nil {
			return err
		}
		collect(ids)
		m.notifyLocked(ctx)
		return nil
	}

	if wc.Target == TargetLocalAndRemote && m.remote.Len() > 0 {
		_, err := m.guardAccess(wc.Access, true, func() (query.Result[E], error) {
			err := m.dispatchRemote(ctx, "removeAll", func(ctx context.Context) error {
				ids, err := m.remote.RemoveAll(ctx, q)
				if err != nil {
					return err
				}
				collect(ids)
				return nil
			})
			return query.EmptyResult[E](), err
		})
		if err != nil {
			return nil, err
		}
		if err := applyLocal(); err != nil {
			return nil, err
		}
		return removed, nil
	}

	if _, err := m.guardAccess(wc.Access, false, func() (query.Result[E], error) {
		return query.EmptyResult[E](), applyLocal()
	}); err != nil {
		return nil, err
	}
	return removed, nil
}

// filterResult drops entities failing contract validation. A nil contract
// accepts everything; filtering is idempotent.
func filterResult[E entity.Entity[E]](res query.Result[E], q query.Query, c EntityContract[E]) query.Result[E] {
	if c == nil {
		return res
	}
	kept := make([]E, 0, len(res.Entities))
	for _, e := range res.Entities {
		if !c.ShouldValidate(e.EntityIdentifier().EntityType) || c.IsEntityValid(e, q) {
			kept = append(kept, e)
		}
	}
	return query.Result[E]{Entities: kept, Metadata: res.Metadata}
}
