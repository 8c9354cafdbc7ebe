/*
 * Copyright © 2025 Scribd Inc., All rights reserved.
 */

/*
Package errors provides the closed StoreError taxonomy shared by all
storage tiers.

The package defines sentinel errors for tier-level conditions
(ErrNotSupported, ErrEmptyResponse, ErrInvalidLocalEntity,
ErrUserAccessInvalid), a typed APIError for transport failures from the
remote tier, and CompositeError for aggregating sequential tier failures.

Errors compose with the standard library:

	_, err := stack.Get(ctx, id)
	if composite, ok := errors.AsComposite(err); ok {
		log.Printf("all tiers failed: %v", composite.Current)
	}
	if errors.IsNetworkFailure(err) {
		// transient connectivity loss; the cached result is still usable
	}

Compose builds the failure chain a StoreStack reports when every tier
fails: the latest failure becomes Current, everything before it Previous.
*/
package errors
