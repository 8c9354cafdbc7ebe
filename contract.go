/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package lucid

import (
	"github.com/scribd/Lucid-sub001/entity"
	"github.com/scribd/Lucid-sub001/query"
)

// EntityContract decides whether an individual entity satisfies the
// caller's data-completeness requirements for a query. Entities failing
// validation are dropped from results, never surfaced as errors.
type EntityContract[E entity.Entity[E]] interface {
	// ShouldValidate lets a contract opt out for entity types it does not
	// govern.
	ShouldValidate(entityType string) bool

	// IsEntityValid reports whether the entity is complete enough for the
	// query.
	IsEntityValid(e E, q query.Query) bool
}

type alwaysValidContract[E entity.Entity[E]] struct{}

// AlwaysValidContract accepts every entity.
func AlwaysValidContract[E entity.Entity[E]]() EntityContract[E] {
	return alwaysValidContract[E]{}
}

func (alwaysValidContract[E]) ShouldValidate(string) bool        { return true }
func (alwaysValidContract[E]) IsEntityValid(E, query.Query) bool { return true }

type requestedExtrasContract[E entity.Entity[E]] struct{}

// RequestedExtrasContract accepts an entity only when every lazy
// attribute the query asks for has actually been fetched. Entities that
// cannot report lazy-attribute state are accepted as-is.
func RequestedExtrasContract[E entity.Entity[E]]() EntityContract[E] {
	return requestedExtrasContract[E]{}
}

func (requestedExtrasContract[E]) ShouldValidate(string) bool { return true }

func (requestedExtrasContract[E]) IsEntityValid(e E, q query.Query) bool {
	aware, ok := any(e).(entity.ExtraAware)
	if !ok {
		return true
	}
	for _, extra := range q.Extras {
		if !aware.ExtraRequested(extra) {
			return false
		}
	}
	return true
}

// AccessLevel is the caller's current data reach.
type AccessLevel int

const (
	// RemoteAccess permits both remote and local data.
	RemoteAccess AccessLevel = iota
	// LocalAccess permits cached local data only.
	LocalAccess
	// NoAccess permits nothing.
	NoAccess
)

func (l AccessLevel) String() string {
	switch l {
	case RemoteAccess:
		return "remoteAccess"
	case LocalAccess:
		return "localAccess"
	case NoAccess:
		return "noAccess"
	default:
		return "unknown"
	}
}

// AccessValidator reports the caller's current access level. The manager
// re-checks it before and after each store call; a change across that
// window fails the call rather than retrying it.
type AccessValidator interface {
	CurrentAccess() AccessLevel
}

type staticAccess AccessLevel

// StaticAccess returns a validator that always reports the given level.
func StaticAccess(level AccessLevel) AccessValidator {
	return staticAccess(level)
}

func (a staticAccess) CurrentAccess() AccessLevel { return AccessLevel(a) }
