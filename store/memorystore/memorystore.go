/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

// Package memorystore implements the in-process memory tier. It is the
// fastest tier in a stack and holds the truth continuous subscriptions
// diff against.
package memorystore

import (
	"context"
	"sort"
	"sync"

	"github.com/scribd/Lucid-sub001/entity"
	"github.com/scribd/Lucid-sub001/query"
	"github.com/scribd/Lucid-sub001/store"
)

// Store is a map-backed Store implementation at LevelMemory. All methods
// are safe for concurrent use.
type Store[E entity.Entity[E]] struct {
	mu       sync.RWMutex
	entities map[entity.Identifier]E
	// seq preserves insertion order so an all-local stack still has a
	// stable fallback for natural-order queries.
	seq     map[entity.Identifier]int64
	nextSeq int64
}

// New creates an empty memory store.
func New[E entity.Entity[E]]() *Store[E] {
	return &Store[E]{
		entities: make(map[entity.Identifier]E),
		seq:      make(map[entity.Identifier]int64),
	}
}

// Level implements store.Store.
func (s *Store[E]) Level() store.Level { return store.LevelMemory }

// Get implements store.Store.
func (s *Store[E]) Get(ctx context.Context, id entity.Identifier) (query.Result[E], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entities[id]
	if !ok {
		return query.EmptyResult[E](), nil
	}
	return query.NewResult([]E{e}, nil), nil
}

// Search implements store.Store.
func (s *Store[E]) Search(ctx context.Context, q query.Query) (query.Result[E], error) {
	type row struct {
		e   E
		seq int64
	}

	s.mu.RLock()
	rows := make([]row, 0)
	for id, e := range s.entities {
		if q.Matches(e) {
			rows = append(rows, row{e: e, seq: s.seq[id]})
		}
	}
	s.mu.RUnlock()

	// Insertion order first, then any requested attribute ordering.
	sort.Slice(rows, func(i, j int) bool { return rows[i].seq < rows[j].seq })
	matched := make([]E, len(rows))
	for i, r := range rows {
		matched[i] = r.e
	}
	query.Sort(matched, q.Orders)
	matched = query.Paginate(matched, q.Page)

	return query.NewResult(matched, nil), nil
}

// Set implements store.Store.
func (s *Store[E]) Set(ctx context.Context, entities ...E) ([]E, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entities {
		id := e.EntityIdentifier()
		if _, exists := s.entities[id]; !exists {
			s.nextSeq++
			s.seq[id] = s.nextSeq
		}
		s.entities[id] = e
	}
	return entities, nil
}

// Remove implements store.Store.
func (s *Store[E]) Remove(ctx context.Context, ids ...entity.Identifier) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range ids {
		delete(s.entities, id)
		delete(s.seq, id)
	}
	return nil
}

// RemoveAll implements store.Store.
func (s *Store[E]) RemoveAll(ctx context.Context, q query.Query) ([]entity.Identifier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []entity.Identifier
	for id, e := range s.entities {
		if q.Matches(e) {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		delete(s.entities, id)
		delete(s.seq, id)
	}
	return removed, nil
}

// Len returns the number of stored entities.
func (s *Store[E]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entities)
}
