/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotSupported is returned when a tier cannot serve an operation
	ErrNotSupported = errors.New("operation not supported by store")

	// ErrEmptyResponse is returned when a tier answered with no payload
	ErrEmptyResponse = errors.New("empty response")

	// ErrInvalidLocalEntity is returned when a local tier fails to decode a stored entity
	ErrInvalidLocalEntity = errors.New("invalid local entity")

	// ErrUserAccessInvalid is returned when access validation fails before or after a store call
	ErrUserAccessInvalid = errors.New("user access invalid")
)

// APIErrorKind classifies transport failures from a remote tier.
type APIErrorKind int

const (
	// APIErrorNetwork marks connectivity loss or interrupted transfers.
	APIErrorNetwork APIErrorKind = iota
	// APIErrorTimeout marks a request that exceeded its deadline.
	APIErrorTimeout
	// APIErrorDeserialization marks an unreadable remote payload.
	APIErrorDeserialization
	// APIErrorStatus marks a non-success HTTP status code.
	APIErrorStatus
)

func (k APIErrorKind) String() string {
	switch k {
	case APIErrorNetwork:
		return "network"
	case APIErrorTimeout:
		return "timeout"
	case APIErrorDeserialization:
		return "deserialization"
	case APIErrorStatus:
		return "status"
	default:
		return "unknown"
	}
}

// APIError represents a transport-level failure from a remote tier
type APIError struct {
	Kind       APIErrorKind
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	if e.Kind == APIErrorStatus {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	if e.Err != nil {
		return fmt.Sprintf("api error (%s): %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("api error (%s)", e.Kind)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// CompositeError aggregates sequential tier failures: Current is the
// latest failure, Previous the chain of failures before it.
type CompositeError struct {
	Current  error
	Previous error
}

func (e *CompositeError) Error() string {
	return fmt.Sprintf("%v (previous: %v)", e.Current, e.Previous)
}

func (e *CompositeError) Unwrap() []error {
	return []error{e.Current, e.Previous}
}

// Helper functions for creating errors

// NewNetworkError wraps a connectivity failure
func NewNetworkError(err error) error {
	return &APIError{Kind: APIErrorNetwork, Err: err}
}

// NewTimeoutError wraps a request deadline failure
func NewTimeoutError(err error) error {
	return &APIError{Kind: APIErrorTimeout, Err: err}
}

// NewDeserializationError wraps an unreadable remote payload
func NewDeserializationError(err error) error {
	return &APIError{Kind: APIErrorDeserialization, Err: err}
}

// NewStatusError creates an APIError for a non-success HTTP status
func NewStatusError(statusCode int) error {
	return &APIError{Kind: APIErrorStatus, StatusCode: statusCode}
}

// Compose chains a new failure onto the failures seen so far. With no
// prior failure the new error is returned unwrapped, so a single-tier
// failure surfaces verbatim.
func Compose(previous, current error) error {
	if current == nil {
		return previous
	}
	if previous == nil {
		return current
	}
	return &CompositeError{Current: current, Previous: previous}
}

// IsNotSupported checks if an error marks an unsupported operation
func IsNotSupported(err error) bool {
	return errors.Is(err, ErrNotSupported)
}

// IsEmptyResponse checks if an error marks an empty tier response
func IsEmptyResponse(err error) bool {
	return errors.Is(err, ErrEmptyResponse)
}

// IsInvalidLocalEntity checks if an error marks a local decode failure
func IsInvalidLocalEntity(err error) bool {
	return errors.Is(err, ErrInvalidLocalEntity)
}

// IsUserAccessInvalid checks if an error marks failed access validation
func IsUserAccessInvalid(err error) bool {
	return errors.Is(err, ErrUserAccessInvalid)
}

// AsAPIError extracts an APIError from anywhere in the chain
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// AsComposite extracts a CompositeError from anywhere in the chain
func AsComposite(err error) (*CompositeError, bool) {
	var composite *CompositeError
	if errors.As(err, &composite) {
		return composite, true
	}
	return nil, false
}

// IsNetworkFailure reports whether the error chain contains a
// connectivity-class transport failure (network interrupt or timeout).
// The manager treats these as "no new truth available" during cache
// fallback instead of hard failures.
func IsNetworkFailure(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	return apiErr.Kind == APIErrorNetwork || apiErr.Kind == APIErrorTimeout
}
