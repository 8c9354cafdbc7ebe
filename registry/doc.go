/*
Package registry associates entity types with DynamoDB key patterns.

Key patterns let heterogeneous entity types share a single table. Each
type registers a KeyMap whose templates expand the entity key through the
{Key} macro:

	registry.RegisterKeyMap[Document](registry.KeyMap{
	    PK: "DOC#{Key}",
	    SK: "DOC#{Key}",
	})

The registry is thread-safe and should be populated during
initialization, typically in init() functions, before the remote tier is
constructed.
*/
package registry
