/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package store

import (
	"context"
	"encoding/json"

	"github.com/scribd/Lucid-sub001/entity"
	"github.com/scribd/Lucid-sub001/query"
)

// Level tags a storage tier for stack ordering and routing decisions.
type Level int

const (
	// LevelMemory is the fastest, in-process tier.
	LevelMemory Level = iota
	// LevelDisk is a durable local tier.
	LevelDisk
	// LevelRemote is the authoritative remote service.
	LevelRemote
)

func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "memory"
	case LevelDisk:
		return "disk"
	case LevelRemote:
		return "remote"
	default:
		return "unknown"
	}
}

// IsLocal reports whether the tier holds data on the local device.
func (l Level) IsLocal() bool { return l != LevelRemote }

// Store is the capability every storage tier implements. Operations
// return errors from the StoreError taxonomy in the errors package.
//
// Get and Search return an empty result, not an error, when nothing
// matches.
type Store[E entity.Entity[E]] interface {
	// Level returns the tier tag used for stack ordering.
	Level() Level

	// Get retrieves the entity with the given identifier.
	Get(ctx context.Context, id entity.Identifier) (query.Result[E], error)

	// Search retrieves the entities matching the query.
	Search(ctx context.Context, q query.Query) (query.Result[E], error)

	// Set writes the given entities and returns them as stored.
	Set(ctx context.Context, entities ...E) ([]E, error)

	// Remove deletes the entities with the given identifiers.
	Remove(ctx context.Context, ids ...entity.Identifier) error

	// RemoveAll deletes every entity matching the query and returns the
	// removed identifiers.
	RemoveAll(ctx context.Context, q query.Query) ([]entity.Identifier, error)
}

// Codec serializes entities for tiers that persist bytes.
type Codec[E entity.Entity[E]] interface {
	Encode(e E) ([]byte, error)
	Decode(data []byte) (E, error)
}

type jsonCodec[E entity.Entity[E]] struct{}

// JSONCodec returns a Codec using encoding/json. Lazy attributes keep
// their requested/unrequested distinction through entity.Extra's JSON
// round-trip.
func JSONCodec[E entity.Entity[E]]() Codec[E] {
	return jsonCodec[E]{}
}

func (jsonCodec[E]) Encode(e E) ([]byte, error) {
	return json.Marshal(e)
}

func (jsonCodec[E]) Decode(data []byte) (E, error) {
	var e E
	err := json.Unmarshal(data, &e)
	return e, err
}
