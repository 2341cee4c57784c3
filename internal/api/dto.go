package api

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/notewright/internal/noteservice"
)

// AddEntryRequest is the request body for adding an index entry.
type AddEntryRequest struct {
	Name   string `json:"name" example:"Rome"`
	Parent string `json:"parent,omitempty" example:"Italy"`
}

// Validate implements validation.Validatable.
func (r *AddEntryRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required, validation.Length(1, 256)),
		validation.Field(&r.Parent, validation.Length(0, 256)),
	)
}

// ConfigureIndexRequest is the request body for setting index hierarchy.
type ConfigureIndexRequest struct {
	Nested   bool     `json:"nested"`
	Level    int      `json:"level" example:"1"`
	Parents  []string `json:"parents,omitempty" example:"country"`
	Children []string `json:"children,omitempty"`
}

// Validate implements validation.Validatable.
func (r *ConfigureIndexRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Level, validation.Min(0)),
		validation.Field(&r.Parents, validation.Each(validation.Required)),
		validation.Field(&r.Children, validation.Each(validation.Required)),
	)
}

// NoteTypesResponse wraps the note type listing.
type NoteTypesResponse struct {
	Types []noteservice.NoteTypeSummary `json:"types"`
}

// IndicesResponse wraps the index listing.
type IndicesResponse struct {
	Indices []noteservice.IndexSummary `json:"indices"`
}

// EntriesResponse wraps an entry listing.
type EntriesResponse struct {
	Index   string                  `json:"index"`
	Parent  string                  `json:"parent,omitempty"`
	Entries []noteservice.EntryItem `json:"entries"`
}

// DocumentListResponse wraps a document listing.
type DocumentListResponse struct {
	Documents []noteservice.DocumentItem `json:"documents"`
	Total     int                        `json:"total"`
}
