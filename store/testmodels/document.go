package testmodels

import (
	"github.com/go-openapi/strfmt"

	"github.com/scribd/Lucid-sub001/entity"
)

// DocumentType is the entity type name of Document.
const DocumentType = "Document"

// Document is the entity used across the test suites: a couple of
// always-present attributes, two lazy attributes, and a timestamp.
type Document struct {

	// Unique identifier for the document.
	// Required: true
	ID string `json:"Id"`

	// Title of the document.
	// Required: true
	Title string `json:"Title"`

	// Body text.
	Body string `json:"Body,omitempty"`

	// Reader rating, fetched lazily.
	Rating entity.Extra[int] `json:"Rating"`

	// Machine summary, fetched lazily.
	Summary entity.Extra[string] `json:"Summary"`

	// Timestamp when the document was created.
	// Format: date-time
	CreatedAt *strfmt.DateTime `json:"CreatedAt,omitempty"`

	// State tracks agreement with the remote tier.
	State entity.SyncState `json:"State"`
}

// EntityIdentifier implements entity.Entity.
func (d Document) EntityIdentifier() entity.Identifier {
	return entity.NewIdentifier(DocumentType, d.ID)
}

// EntitySyncState implements entity.Entity.
func (d Document) EntitySyncState() entity.SyncState {
	return d.State
}

// Merge folds an updated copy into the receiver, preserving lazy values
// the update left unrequested.
func (d Document) Merge(newer Document) Document {
	merged := newer
	merged.Rating = newer.Rating.Merge(d.Rating)
	merged.Summary = newer.Summary.Merge(d.Summary)
	return merged
}

// Attribute implements query evaluation over document fields. Lazy
// attributes resolve only when requested.
func (d Document) Attribute(name string) (any, bool) {
	switch name {
	case "id":
		return d.ID, true
	case "title":
		return d.Title, true
	case "body":
		return d.Body, true
	case "rating":
		return d.Rating.Value()
	case "summary":
		return d.Summary.Value()
	default:
		return nil, false
	}
}

// ExtraRequested implements entity.ExtraAware.
func (d Document) ExtraRequested(name string) bool {
	switch name {
	case "rating":
		return d.Rating.IsRequested()
	case "summary":
		return d.Summary.IsRequested()
	default:
		return false
	}
}
