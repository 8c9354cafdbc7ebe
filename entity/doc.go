/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

// Package entity defines the value types every managed record is built
// from: typed identifiers, lazy attributes with explicit requested and
// unrequested states, and the remote synchronization marker used by
// stale-record eviction.
package entity
