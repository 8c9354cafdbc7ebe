/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package query

import "github.com/scribd/Lucid-sub001/entity"

// Page describes offset pagination requested from the authoritative tier.
type Page struct {
	Offset int
	Size   int
}

// Query selects entities of one type: a filter expression tree, an
// ordering spec, the lazy attributes the caller needs populated, and
// optional pagination. Queries are immutable value types; the With*
// helpers return modified copies.
type Query struct {
	EntityType string
	Filter     Filter
	Orders     []Order
	Extras     []string
	Page       *Page

	// Contextual marks queries whose result set depends on caller context
	// (for example personalized endpoints). Contextual results are never
	// treated as the complete truth for eviction purposes.
	Contextual bool
}

// All selects every entity of the given type.
func All(entityType string) Query {
	return Query{EntityType: entityType}
}

// ByIdentifiers selects the entities with exactly the given identifiers.
func ByIdentifiers(ids ...entity.Identifier) Query {
	q := Query{Filter: IdentifierIn(ids...)}
	if len(ids) > 0 {
		q.EntityType = ids[0].EntityType
	}
	return q
}

// WithFilter returns a copy restricted by the given filter.
func (q Query) WithFilter(f Filter) Query {
	q.Filter = f
	return q
}

// WithOrder returns a copy ordered by the given spec.
func (q Query) WithOrder(orders ...Order) Query {
	q.Orders = orders
	return q
}

// WithExtras returns a copy requesting the given lazy attributes.
func (q Query) WithExtras(extras ...string) Query {
	q.Extras = extras
	return q
}

// WithPage returns a copy requesting one page of results.
func (q Query) WithPage(offset, size int) Query {
	q.Page = &Page{Offset: offset, Size: size}
	return q
}

// WithContextual returns a copy marked as context-dependent.
func (q Query) WithContextual() Query {
	q.Contextual = true
	return q
}

// Identifiers returns the identifier restriction when the query is an
// identifier lookup, nil otherwise.
func (q Query) Identifiers() []entity.Identifier {
	if f, ok := q.Filter.(identifierFilter); ok {
		return f.order
	}
	return nil
}

// IsComplete reports whether a successful authoritative result for this
// query is the whole truth for it: no pagination and no caller context.
// Complete results are what stale-record eviction keys on.
func (q Query) IsComplete() bool {
	return q.Page == nil && !q.Contextual
}

// HasNaturalOrder reports whether any ordering element is natural.
func (q Query) HasNaturalOrder() bool {
	for _, o := range q.Orders {
		if o.IsNatural() {
			return true
		}
	}
	return false
}

// Matches evaluates the filter against a record. A nil filter matches all
// records of the query's entity type.
func (q Query) Matches(r Record) bool {
	if q.EntityType != "" && r.EntityIdentifier().EntityType != q.EntityType {
		return false
	}
	if q.Filter == nil {
		return true
	}
	return q.Filter.Matches(r)
}
