/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package query

import "sort"

type orderKind int

const (
	orderNatural orderKind = iota
	orderAsc
	orderDesc
)

// Order is one element of a query's ordering spec. Natural order means "as
// returned by the authoritative tier, do not locally re-sort".
type Order struct {
	kind orderKind
	attr string
}

// Natural returns the natural ordering marker.
func Natural() Order { return Order{kind: orderNatural} }

// Asc orders ascending by a named attribute.
func Asc(attr string) Order { return Order{kind: orderAsc, attr: attr} }

// Desc orders descending by a named attribute.
func Desc(attr string) Order { return Order{kind: orderDesc, attr: attr} }

// IsNatural reports whether this element is the natural ordering marker.
func (o Order) IsNatural() bool { return o.kind == orderNatural }

// Attribute returns the attribute this element orders by, empty for natural.
func (o Order) Attribute() string { return o.attr }

// Sort orders the slice in place by the given ordering spec. Natural
// elements are skipped: natural order is preserved input order here, since
// only the authoritative tier can define it.
func Sort[E Record](items []E, orders []Order) {
	effective := make([]Order, 0, len(orders))
	for _, o := range orders {
		if !o.IsNatural() {
			effective = append(effective, o)
		}
	}
	if len(effective) == 0 {
		return
	}
	sort.SliceStable(items, func(i, j int) bool {
		for _, o := range effective {
			av, aok := items[i].Attribute(o.attr)
			bv, bok := items[j].Attribute(o.attr)
			if !aok || !bok {
				continue
			}
			c, ok := compareValues(av, bv)
			if !ok || c == 0 {
				continue
			}
			if o.kind == orderDesc {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
