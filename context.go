/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package lucid

import "github.com/scribd/Lucid-sub001/entity"

// PersistenceStrategy controls whether and how a remote result is written
// back into faster tiers.
type PersistenceStrategy int

const (
	// DoNotPersist leaves faster tiers untouched.
	DoNotPersist PersistenceStrategy = iota
	// PersistRetainExtraLocalData merges the remote payload into the
	// local copy, keeping previously fetched lazy attributes the payload
	// does not carry.
	PersistRetainExtraLocalData
	// PersistDiscardExtraLocalData overwrites the local copy with the
	// remote payload as-is, resetting absent lazy attributes to
	// unrequested. Complete searches under this strategy also evict stale
	// synced records.
	PersistDiscardExtraLocalData
)

// ShouldPersist reports whether the strategy writes through at all.
func (s PersistenceStrategy) ShouldPersist() bool { return s != DoNotPersist }

type dataSourceKind int

const (
	sourceLocal dataSourceKind = iota
	sourceRemote
	sourceLocalOr
	sourceLocalThen
)

// DataSource is the strategy describing which tiers a read consults and
// in what order.
type DataSource struct {
	kind        dataSourceKind
	endpoint    string
	persistence PersistenceStrategy
}

// LocalSource queries local tiers only and never writes through.
func LocalSource() DataSource {
	return DataSource{kind: sourceLocal}
}

// RemoteSource queries the remote tier only, optionally writing results
// through into faster tiers.
func RemoteSource(endpoint string, persistence PersistenceStrategy) DataSource {
	return DataSource{kind: sourceRemote, endpoint: endpoint, persistence: persistence}
}

// LocalOr queries local tiers first and falls through to the remote
// source only when the local result is empty or incomplete.
func LocalOr(remote DataSource) DataSource {
	return DataSource{kind: sourceLocalOr, endpoint: remote.endpoint, persistence: remote.persistence}
}

// LocalThen emits the local result immediately and follows up with the
// remote outcome as a second emission to the same logical request.
func LocalThen(remote DataSource) DataSource {
	return DataSource{kind: sourceLocalThen, endpoint: remote.endpoint, persistence: remote.persistence}
}

// Endpoint returns the remote endpoint hint carried by the source.
func (d DataSource) Endpoint() string { return d.endpoint }

// Persistence returns the write-through strategy of the source.
func (d DataSource) Persistence() PersistenceStrategy { return d.persistence }

func (d DataSource) String() string {
	switch d.kind {
	case sourceLocal:
		return "local"
	case sourceRemote:
		return "remote"
	case sourceLocalOr:
		return "localOr(remote)"
	case sourceLocalThen:
		return "localThen(remote)"
	default:
		return "unknown"
	}
}

// ReadContext bundles the configuration of a single read: the DataSource
// strategy, an optional data-completeness contract, and an optional
// access validator. Contexts are single-use value types.
type ReadContext[E entity.Entity[E]] struct {
	Source   DataSource
	Contract EntityContract[E]
	Access   AccessValidator
}

// WriteTarget selects the tiers a mutation reaches.
type WriteTarget int

const (
	// TargetLocal writes to local tiers only, marking entities OutOfSync
	// territory for the caller to reconcile later.
	TargetLocal WriteTarget = iota
	// TargetLocalAndRemote writes to the remote tier and mirrors the
	// outcome into local tiers.
	TargetLocalAndRemote
)

// WriteContext bundles the configuration of a single mutation.
type WriteContext struct {
	Target WriteTarget
	Access AccessValidator
}
