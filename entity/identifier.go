/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

package entity

import "fmt"

// Identifier uniquely names an entity within a tier. EntityType scopes the
// key space so that different entity types sharing a backing table never
// collide.
type Identifier struct {
	EntityType string
	Key        string
}

// NewIdentifier builds an Identifier from an entity type and a key.
func NewIdentifier(entityType, key string) Identifier {
	return Identifier{EntityType: entityType, Key: key}
}

// String renders the identifier in its canonical "type#key" form.
func (i Identifier) String() string {
	return fmt.Sprintf("%s#%s", i.EntityType, i.Key)
}

// IsZero reports whether the identifier has no type and no key.
func (i Identifier) IsZero() bool {
	return i.EntityType == "" && i.Key == ""
}
