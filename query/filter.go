/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package query

import (
	"strings"

	"github.com/scribd/Lucid-sub001/entity"
)

// Record is the view of an entity a filter needs: its identifier and its
// named attribute values. Every type satisfying entity.Entity satisfies
// Record.
type Record interface {
	EntityIdentifier() entity.Identifier
	Attribute(name string) (any, bool)
}

// Operator is a comparison operator in a filter leaf.
type Operator int

const (
	Equal Operator = iota
	NotEqual
	LessThan
	GreaterThan
	Contains
)

// Filter is a node in a filter expression tree evaluated against a Record.
type Filter interface {
	Matches(r Record) bool
}

type compareFilter struct {
	attr  string
	op    Operator
	value any
}

// Where builds a leaf filter comparing a named attribute against a value.
// Entities lacking the attribute never match.
func Where(attr string, op Operator, value any) Filter {
	return compareFilter{attr: attr, op: op, value: value}
}

func (f compareFilter) Matches(r Record) bool {
	got, ok := r.Attribute(f.attr)
	if !ok {
		return false
	}
	switch f.op {
	case Equal:
		c, ok := compareValues(got, f.value)
		return ok && c == 0
	case NotEqual:
		c, ok := compareValues(got, f.value)
		return ok && c != 0
	case LessThan:
		c, ok := compareValues(got, f.value)
		return ok && c < 0
	case GreaterThan:
		c, ok := compareValues(got, f.value)
		return ok && c > 0
	case Contains:
		s, sok := got.(string)
		sub, vok := f.value.(string)
		return sok && vok && strings.Contains(s, sub)
	default:
		return false
	}
}

type andFilter []Filter

// And matches when every child filter matches. And() matches everything.
func And(filters ...Filter) Filter { return andFilter(filters) }

func (f andFilter) Matches(r Record) bool {
	for _, child := range f {
		if !child.Matches(r) {
			return false
		}
	}
	return true
}

type orFilter []Filter

// Or matches when at least one child filter matches. Or() matches nothing.
func Or(filters ...Filter) Filter { return orFilter(filters) }

func (f orFilter) Matches(r Record) bool {
	for _, child := range f {
		if child.Matches(r) {
			return true
		}
	}
	return false
}

type notFilter struct{ inner Filter }

// Not inverts a filter.
func Not(f Filter) Filter { return notFilter{inner: f} }

func (f notFilter) Matches(r Record) bool { return !f.inner.Matches(r) }

type identifierFilter struct {
	ids map[entity.Identifier]struct{}
	// order preserves the identifiers as requested, for completeness checks.
	order []entity.Identifier
}

// IdentifierIn matches entities whose identifier is one of the given set.
func IdentifierIn(ids ...entity.Identifier) Filter {
	set := make(map[entity.Identifier]struct{}, len(ids))
	order := make([]entity.Identifier, 0, len(ids))
	for _, id := range ids {
		if _, seen := set[id]; seen {
			continue
		}
		set[id] = struct{}{}
		order = append(order, id)
	}
	return identifierFilter{ids: set, order: order}
}

func (f identifierFilter) Matches(r Record) bool {
	_, ok := f.ids[r.EntityIdentifier()]
	return ok
}

// compareValues compares two attribute values of compatible kinds.
// Numeric values are normalized to float64 before comparison.
func compareValues(a, b any) (int, bool) {
	if af, aok := toFloat(a); aok {
		bf, bok := toFloat(b)
		if !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(av, bv), true
	case bool:
		bv, ok := b.(bool)
		if !ok {
			return 0, false
		}
		if av == bv {
			return 0, true
		}
		if !av {
			return -1, true
		}
		return 1, true
	default:
		return 0, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
