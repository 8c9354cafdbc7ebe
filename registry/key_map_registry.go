/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package registry

import (
	"reflect"
	"strings"
	"sync"
)

// KeyMap describes how an entity key expands into DynamoDB partition and
// sort keys. Templates use the {Key} macro, e.g. "DOC#{Key}".
type KeyMap struct {
	PK string
	SK string
}

// Expand substitutes the entity key into both templates.
func (m KeyMap) Expand(key string) (pk, sk string) {
	pk = strings.ReplaceAll(m.PK, "{Key}", key)
	sk = strings.ReplaceAll(m.SK, "{Key}", key)
	return pk, sk
}

var (
	keyMapRegistry = make(map[reflect.Type]KeyMap)
	mu             sync.RWMutex
)

// RegisterKeyMap associates a Go type E with its DynamoDB key pattern.
// Call during initialization, before any remote tier is constructed.
func RegisterKeyMap[E any](m KeyMap) {
	var zero E
	t := reflect.TypeOf(zero)

	mu.Lock()
	defer mu.Unlock()
	keyMapRegistry[t] = m
}

// KeyMapFor retrieves the key map registered for type E, if any.
func KeyMapFor[E any]() (KeyMap, bool) {
	var zero E
	t := reflect.TypeOf(zero)

	mu.RLock()
	defer mu.RUnlock()
	m, ok := keyMapRegistry[t]
	return m, ok
}
