/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package query

import "github.com/scribd/Lucid-sub001/entity"

// Metadata carries pagination and endpoint information reported by the
// authoritative tier alongside a result set.
type Metadata struct {
	Total      *int
	NextOffset *int
	Endpoint   string
}

// Result is an ordered, identifier-deduplicated sequence of entities plus
// optional authoritative metadata.
type Result[E Record] struct {
	Entities []E
	Metadata *Metadata
}

// NewResult builds a Result, dropping all but the first occurrence of each
// identifier while preserving order.
func NewResult[E Record](entities []E, metadata *Metadata) Result[E] {
	seen := make(map[entity.Identifier]struct{}, len(entities))
	deduped := make([]E, 0, len(entities))
	for _, e := range entities {
		id := e.EntityIdentifier()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		deduped = append(deduped, e)
	}
	return Result[E]{Entities: deduped, Metadata: metadata}
}

// EmptyResult returns a result with no entities and no metadata.
func EmptyResult[E Record]() Result[E] {
	return Result[E]{}
}

// IsEmpty reports whether the result contains no entities.
func (r Result[E]) IsEmpty() bool { return len(r.Entities) == 0 }

// Count returns the number of entities in the result.
func (r Result[E]) Count() int { return len(r.Entities) }

// Identifiers returns the identifiers of the result in order.
func (r Result[E]) Identifiers() []entity.Identifier {
	ids := make([]entity.Identifier, len(r.Entities))
	for i, e := range r.Entities {
		ids[i] = e.EntityIdentifier()
	}
	return ids
}

// IdentifierSet returns the identifiers of the result as a set.
func (r Result[E]) IdentifierSet() map[entity.Identifier]struct{} {
	set := make(map[entity.Identifier]struct{}, len(r.Entities))
	for _, e := range r.Entities {
		set[e.EntityIdentifier()] = struct{}{}
	}
	return set
}

// Paginate applies an offset page to a slice, returning the slice
// unchanged for a nil page.
func Paginate[E Record](items []E, p *Page) []E {
	if p == nil {
		return items
	}
	if p.Offset >= len(items) {
		return nil
	}
	end := len(items)
	if p.Size > 0 && p.Offset+p.Size < end {
		end = p.Offset + p.Size
	}
	return items[p.Offset:end]
}

// First returns a pointer to the first entity, or nil when empty.
func (r Result[E]) First() *E {
	if len(r.Entities) == 0 {
		return nil
	}
	return &r.Entities[0]
}
