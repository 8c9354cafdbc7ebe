/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

// Package store defines the Store capability every storage tier
// implements and the Stack that composes an ordered list of tiers into a
// single Store with fallback, write aggregation, and error composition.
//
// Concrete tiers live in subpackages: memorystore (in-process),
// sqlitestore (durable local), redisstore (shared cache), ddbstore
// (remote, DynamoDB-backed), and mockstore (configurable test double).
package store
