/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package entity

import (
	"bytes"
	"encoding/json"
)

// Extra is a lazy attribute: a field that may be unrequested (never
// fetched) or requested with a value. The zero value is unrequested.
type Extra[T any] struct {
	requested bool
	value     T
}

// Requested returns an Extra carrying a fetched value.
func Requested[T any](value T) Extra[T] {
	return Extra[T]{requested: true, value: value}
}

// Unrequested returns an Extra marking the attribute as never fetched.
func Unrequested[T any]() Extra[T] {
	return Extra[T]{}
}

// IsRequested reports whether the attribute has been fetched.
func (x Extra[T]) IsRequested() bool {
	return x.requested
}

// Value returns the fetched value and true, or the zero value and false
// when the attribute is unrequested.
func (x Extra[T]) Value() (T, bool) {
	return x.value, x.requested
}

// Merge resolves the receiver (the updated copy) against an older copy.
// A requested update always wins; an unrequested update preserves a
// previously fetched value, because "not fetched this time" carries no
// information about the attribute itself.
func (x Extra[T]) Merge(older Extra[T]) Extra[T] {
	if x.requested {
		return x
	}
	return older
}

type extraEnvelope[T any] struct {
	Value T `json:"value"`
}

// MarshalJSON encodes an unrequested attribute as null and a requested one
// as {"value": ...}, so requested-with-zero-value round-trips.
func (x Extra[T]) MarshalJSON() ([]byte, error) {
	if !x.requested {
		return []byte("null"), nil
	}
	return json.Marshal(extraEnvelope[T]{Value: x.value})
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (x *Extra[T]) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*x = Extra[T]{}
		return nil
	}
	var env extraEnvelope[T]
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	*x = Extra[T]{requested: true, value: env.Value}
	return nil
}
