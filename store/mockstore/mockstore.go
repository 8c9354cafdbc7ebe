/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

// Package mockstore provides a configurable in-memory implementation of
// the Store interface for testing stacks and managers.
package mockstore

import (
	"context"
	"sync"

	"github.com/scribd/Lucid-sub001/entity"
	"github.com/scribd/Lucid-sub001/query"
	"github.com/scribd/Lucid-sub001/store"
)

// Store is a mock implementation of store.Store[E] for testing. Errors
// can be scripted per operation and every call is counted.
type Store[E entity.Entity[E]] struct {
	mu    sync.RWMutex
	level store.Level

	data  map[entity.Identifier]E
	order []entity.Identifier

	getErr       error
	searchErr    error
	setErr       error
	removeErr    error
	removeAllErr error

	searchFunc func(ctx context.Context, q query.Query) (query.Result[E], error)
	metadata   *query.Metadata

	getCalls       int
	searchCalls    int
	setCalls       int
	removeCalls    int
	removeAllCalls int
}

// New creates a mock store at the given level.
func New[E entity.Entity[E]](level store.Level) *Store[E] {
	return &Store[E]{
		level: level,
		data:  make(map[entity.Identifier]E),
	}
}

// Seed pre-populates the store, bypassing scripted errors and counters.
func (m *Store[E]) Seed(entities ...E) *Store[E] {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entities {
		m.insertLocked(e)
	}
	return m
}

// WithGetError makes Get operations return an error
func (m *Store[E]) WithGetError(err error) *Store[E] {
	m.getErr = err
	return m
}

// WithSearchError makes Search operations return an error
func (m *Store[E]) WithSearchError(err error) *Store[E] {
	m.searchErr = err
	return m
}

// WithSetError makes Set operations return an error
func (m *Store[E]) WithSetError(err error) *Store[E] {
	m.setErr = err
	return m
}

// WithRemoveError makes Remove operations return an error
func (m *Store[E]) WithRemoveError(err error) *Store[E] {
	m.removeErr = err
	return m
}

// WithRemoveAllError makes RemoveAll operations return an error
func (m *Store[E]) WithRemoveAllError(err error) *Store[E] {
	m.removeAllErr = err
	return m
}

// WithSearchFunc replaces Search with a custom function for testing
func (m *Store[E]) WithSearchFunc(f func(ctx context.Context, q query.Query) (query.Result[E], error)) *Store[E] {
	m.searchFunc = f
	return m
}

// WithMetadata attaches metadata to every search result
func (m *Store[E]) WithMetadata(md *query.Metadata) *Store[E] {
	m.metadata = md
	return m
}

// Level implements store.Store.
func (m *Store[E]) Level() store.Level { return m.level }

// Get implements store.Store.
func (m *Store[E]) Get(ctx context.Context, id entity.Identifier) (query.Result[E], error) {
	m.mu.Lock()
	m.getCalls++
	err := m.getErr
	e, ok := m.data[id]
	m.mu.Unlock()

	if err != nil {
		return query.EmptyResult[E](), err
	}
	if !ok {
		return query.EmptyResult[E](), nil
	}
	return query.NewResult([]E{e}, nil), nil
}

// Search implements store.Store.
func (m *Store[E]) Search(ctx context.Context, q query.Query) (query.Result[E], error) {
	m.mu.Lock()
	m.searchCalls++
	err := m.searchErr
	custom := m.searchFunc
	var matched []E
	if err == nil && custom == nil {
		for _, id := range m.order {
			if e, ok := m.data[id]; ok && q.Matches(e) {
				matched = append(matched, e)
			}
		}
	}
	md := m.metadata
	m.mu.Unlock()

	if err != nil {
		return query.EmptyResult[E](), err
	}
	if custom != nil {
		return custom(ctx, q)
	}
	query.Sort(matched, q.Orders)
	matched = query.Paginate(matched, q.Page)
	return query.NewResult(matched, md), nil
}

// Set implements store.Store.
func (m *Store[E]) Set(ctx context.Context, entities ...E) ([]E, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.setCalls++
	if m.setErr != nil {
		return nil, m.setErr
	}
	for _, e := range entities {
		m.insertLocked(e)
	}
	return entities, nil
}

// Remove implements store.Store.
func (m *Store[E]) Remove(ctx context.Context, ids ...entity.Identifier) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeCalls++
	if m.removeErr != nil {
		return m.removeErr
	}
	for _, id := range ids {
		m.deleteLocked(id)
	}
	return nil
}

// RemoveAll implements store.Store.
func (m *Store[E]) RemoveAll(ctx context.Context, q query.Query) ([]entity.Identifier, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.removeAllCalls++
	if m.removeAllErr != nil {
		return nil, m.removeAllErr
	}
	var removed []entity.Identifier
	for _, id := range m.order {
		if e, ok := m.data[id]; ok && q.Matches(e) {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		m.deleteLocked(id)
	}
	return removed, nil
}

func (m *Store[E]) insertLocked(e E) {
	id := e.EntityIdentifier()
	if _, exists := m.data[id]; !exists {
		m.order = append(m.order, id)
	}
	m.data[id] = e
}

func (m *Store[E]) deleteLocked(id entity.Identifier) {
	if _, exists := m.data[id]; !exists {
		return
	}
	delete(m.data, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// GetCalls returns how many times Get was invoked.
func (m *Store[E]) GetCalls() int { m.mu.RLock(); defer m.mu.RUnlock(); return m.getCalls }

// SearchCalls returns how many times Search was invoked.
func (m *Store[E]) SearchCalls() int { m.mu.RLock(); defer m.mu.RUnlock(); return m.searchCalls }

// SetCalls returns how many times Set was invoked.
func (m *Store[E]) SetCalls() int { m.mu.RLock(); defer m.mu.RUnlock(); return m.setCalls }

// RemoveCalls returns how many times Remove was invoked.
func (m *Store[E]) RemoveCalls() int { m.mu.RLock(); defer m.mu.RUnlock(); return m.removeCalls }

// RemoveAllCalls returns how many times RemoveAll was invoked.
func (m *Store[E]) RemoveAllCalls() int { m.mu.RLock(); defer m.mu.RUnlock(); return m.removeAllCalls }

// Contains reports whether the store currently holds the identifier.
func (m *Store[E]) Contains(id entity.Identifier) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[id]
	return ok
}
