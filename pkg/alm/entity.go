// Package alm provides the client for the external change-management platform
package alm

// FileRef is a pointer to an uploaded file entity. A nil Version means
// "link to the latest version".
type FileRef struct {
	ID      string `json:"id"`
	Version *int   `json:"version"`
}

// Field is one field on an entity. Only REFERENCE fields are read or
// written by this system.
type Field struct {
	Type  string    `json:"type"`
	Value []FileRef `json:"value"`
}

// FieldTypeReference is the field type holding ordered FileRef lists.
const FieldTypeReference = "REFERENCE"

// Entity is a record on the ALM platform. Read-only to this system except
// for one reference field, whose value is overwritten wholesale.
type Entity struct {
	ID         string
	Title      string
	TemplateID string
	Fields     map[string]Field
}

// EntitySummary is the search-result projection of an entity.
type EntitySummary struct {
	ID         string
	Title      string
	TemplateID string
}

// searchEntity is the wire shape of one search result element.
type searchEntity struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	SourceInfo struct {
		Template struct {
			ID string `json:"id"`
		} `json:"template"`
	} `json:"sourceInfo"`
}

// entityDetail is the wire shape of an entity detail response.
type entityDetail struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	SourceInfo struct {
		Template struct {
			ID string `json:"id"`
		} `json:"template"`
	} `json:"sourceInfo"`
	Fields  map[string]Field `json:"fields"`
	Version *int             `json:"version"`
}

// changeSetResponse is the wire shape of a changeset lookup response.
type changeSetResponse struct {
	Index string `json:"index"`
}

// uploadResponse is the wire shape of a file upload response.
type uploadResponse struct {
	ID string `json:"id"`
}
