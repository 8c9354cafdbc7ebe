/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package lucid

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/scribd/Lucid-sub001/entity"
)

// ManagerRegistry tracks the CoreManager owning each entity type. Exactly
// one manager must own a given tier triple, so registering a second
// manager for a type is an error.
// Note that its lookup is not generic; ManagerFor performs the typed
// retrieval.
type ManagerRegistry struct {
	mu       sync.RWMutex
	managers map[reflect.Type]any
}

// NewManagerRegistry creates an empty registry.
func NewManagerRegistry() *ManagerRegistry {
	return &ManagerRegistry{
		managers: make(map[reflect.Type]any),
	}
}

// RegisterManager records the manager owning entity type E.
func RegisterManager[E entity.Entity[E]](r *ManagerRegistry, m *CoreManager[E]) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var zero E
	typ := reflect.TypeOf(zero)
	if _, exists := r.managers[typ]; exists {
		return fmt.Errorf("manager for type %v already registered", typ)
	}
	r.managers[typ] = m
	return nil
}

// ManagerFor retrieves the manager owning entity type E.
func ManagerFor[E entity.Entity[E]](r *ManagerRegistry) (*CoreManager[E], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var zero E
	typ := reflect.TypeOf(zero)
	m, exists := r.managers[typ]
	if !exists {
		return nil, fmt.Errorf("no manager registered for type %v", typ)
	}
	return m.(*CoreManager[E]), nil
}
