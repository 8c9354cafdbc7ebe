/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package store

import (
	"context"
	"log/slog"

	"github.com/scribd/Lucid-sub001/entity"
	"github.com/scribd/Lucid-sub001/errors"
	"github.com/scribd/Lucid-sub001/query"
)

// Stack composes an ordered list of tier stores into one Store. The
// earliest store has the highest priority; the last one is treated as the
// authoritative tier for natural-order queries.
//
// Reads cascade: a tier's failure or empty result falls through to the
// next tier, and an error surfaces only when every consulted tier failed,
// composed in consultation order. Writes aggregate: every tier is written,
// and the call fails only when every tier failed.
type Stack[E entity.Entity[E]] struct {
	stores []Store[E]
	logger *slog.Logger
}

type stackConfig struct {
	logger *slog.Logger
}

// StackOption configures a Stack.
type StackOption func(*stackConfig)

// WithLogger sets the logger used for fallback and partial-failure
// reporting. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) StackOption {
	return func(c *stackConfig) {
		c.logger = logger
	}
}

// NewStack builds a Stack over the given tier stores, earliest first.
func NewStack[E entity.Entity[E]](stores []Store[E], opts ...StackOption) *Stack[E] {
	cfg := stackConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Stack[E]{stores: stores, logger: cfg.logger}
}

// Len returns the number of tiers in the stack.
func (s *Stack[E]) Len() int { return len(s.stores) }

// Level returns the level of the highest-priority tier, LevelMemory for an
// empty stack.
func (s *Stack[E]) Level() Level {
	if len(s.stores) == 0 {
		return LevelMemory
	}
	return s.stores[0].Level()
}

// Local returns the sub-stack of tiers holding data on the local device,
// in priority order.
func (s *Stack[E]) Local() *Stack[E] {
	var local []Store[E]
	for _, st := range s.stores {
		if st.Level().IsLocal() {
			local = append(local, st)
		}
	}
	return &Stack[E]{stores: local, logger: s.logger}
}

// Remote returns the sub-stack of remote tiers, in priority order.
func (s *Stack[E]) Remote() *Stack[E] {
	var remote []Store[E]
	for _, st := range s.stores {
		if !st.Level().IsLocal() {
			remote = append(remote, st)
		}
	}
	return &Stack[E]{stores: remote, logger: s.logger}
}

// Fastest returns the highest-priority tier, nil for an empty stack. The
// fastest local tier holds the truth continuous subscriptions diff
// against.
func (s *Stack[E]) Fastest() Store[E] {
	if len(s.stores) == 0 {
		return nil
	}
	return s.stores[0]
}

// Get retrieves the entity with the given identifier from the first tier
// able to serve it.
func (s *Stack[E]) Get(ctx context.Context, id entity.Identifier) (query.Result[E], error) {
	return s.cascade(ctx, func(st Store[E]) (query.Result[E], error) {
		return st.Get(ctx, id)
	}, s.stores)
}

// Search retrieves the entities matching the query from the first tier
// able to serve them. Queries carrying natural order are routed straight
// to the last (authoritative) tier, since only that tier defines the
// order.
func (s *Stack[E]) Search(ctx context.Context, q query.Query) (query.Result[E], error) {
	stores := s.stores
	if q.HasNaturalOrder() && len(stores) > 1 {
		stores = stores[len(stores)-1:]
	}
	return s.cascade(ctx, func(st Store[E]) (query.Result[E], error) {
		return st.Search(ctx, q)
	}, stores)
}

func (s *Stack[E]) cascade(ctx context.Context, call func(Store[E]) (query.Result[E], error), stores []Store[E]) (query.Result[E], error) {
	var aggErr error
	anySucceeded := len(stores) == 0
	var lastResult query.Result[E]

	for _, st := range stores {
		res, err := call(st)
		if err != nil {
			aggErr = errors.Compose(aggErr, err)
			s.logger.Debug("store tier read failed, falling through",
				slog.String("level", st.Level().String()),
				slog.Any("error", err))
			continue
		}
		if !res.IsEmpty() {
			return res, nil
		}
		anySucceeded = true
		lastResult = res
	}

	if anySucceeded {
		return lastResult, nil
	}
	return query.EmptyResult[E](), aggErr
}

// Set writes the entities to every tier. The write succeeds when at least
// one tier accepted it; partial failures are swallowed (and logged) so a
// usable faster tier keeps the cache alive. The entities returned come
// from the highest-priority tier that succeeded.
func (s *Stack[E]) Set(ctx context.Context, entities ...E) ([]E, error) {
	if len(s.stores) == 0 {
		return entities, nil
	}

	var aggErr error
	var stored []E
	succeeded := false

	for _, st := range s.stores {
		res, err := st.Set(ctx, entities...)
		if err != nil {
			aggErr = errors.Compose(aggErr, err)
			s.logger.Warn("store tier write failed",
				slog.String("level", st.Level().String()),
				slog.Any("error", err))
			continue
		}
		if !succeeded {
			stored = res
		}
		succeeded = true
	}

	if !succeeded {
		return nil, aggErr
	}
	return stored, nil
}

// Remove deletes the identifiers from every tier, with the same
// aggregation rule as Set.
func (s *Stack[E]) Remove(ctx context.Context, ids ...entity.Identifier) error {
	if len(s.stores) == 0 {
		return nil
	}

	var aggErr error
	succeeded := false

	for _, st := range s.stores {
		if err := st.Remove(ctx, ids...); err != nil {
			aggErr = errors.Compose(aggErr, err)
			s.logger.Warn("store tier remove failed",
				slog.String("level", st.Level().String()),
				slog.Any("error", err))
			continue
		}
		succeeded = true
	}

	if !succeeded {
		return aggErr
	}
	return nil
}

// RemoveAll deletes every entity matching the query from every tier, with
// the same aggregation rule as Set. The returned identifiers are the union
// of what the tiers removed, in first-seen order.
func (s *Stack[E]) RemoveAll(ctx context.Context, q query.Query) ([]entity.Identifier, error) {
	if len(s.stores) == 0 {
		return nil, nil
	}

	var aggErr error
	succeeded := false
	seen := make(map[entity.Identifier]struct{})
	var removed []entity.Identifier

	for _, st := range s.stores {
		ids, err := st.RemoveAll(ctx, q)
		if err != nil {
			aggErr = errors.Compose(aggErr, err)
			s.logger.Warn("store tier removeAll failed",
				slog.String("level", st.Level().String()),
				slog.Any("error", err))
			continue
		}
		succeeded = true
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			removed = append(removed, id)
		}
	}

	if !succeeded {
		return nil, aggErr
	}
	return removed, nil
}
