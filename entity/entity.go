/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package entity

// SyncState records whether the remote tier is known to agree with the
// local copy of an entity.
type SyncState int

const (
	// Synced means the remote tier has acknowledged this exact copy.
	Synced SyncState = iota
	// OutOfSync means the entity carries local changes the remote tier
	// has not acknowledged yet. OutOfSync entities are never evicted by
	// stale-record cleanup.
	OutOfSync
)

// String returns a human-readable name for the sync state.
func (s SyncState) String() string {
	switch s {
	case Synced:
		return "synced"
	case OutOfSync:
		return "outOfSync"
	default:
		return "unknown"
	}
}

// Entity is the constraint every record type managed by a CoreManager must
// satisfy. The self-referential type parameter keeps Merge fully typed.
//
// Attribute exposes named attribute values so query filters and ordering
// can be evaluated locally without reflection on the concrete type.
type Entity[E any] interface {
	// EntityIdentifier returns the unique identifier of the record.
	EntityIdentifier() Identifier

	// EntitySyncState reports whether the remote tier agrees with this copy.
	EntitySyncState() SyncState

	// Merge folds an updated copy into the receiver and returns the
	// result. Implementations must preserve requested lazy values the
	// update leaves unrequested (see Extra.Merge) and adopt the update's
	// sync state. Merging the same update repeatedly is idempotent.
	Merge(newer E) E

	// Attribute returns the value of a named attribute, or false when the
	// entity has no such attribute.
	Attribute(name string) (any, bool)
}

// ExtraAware is implemented by entities that can report whether a lazy
// attribute has been fetched. Contracts use it to gate completeness.
type ExtraAware interface {
	ExtraRequested(name string) bool
}
