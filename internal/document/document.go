// Package document loads and saves the configuration document: the note
// configuration plus the persisted global index.
package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/starford/notewright/internal/apperr"
	"github.com/starford/notewright/internal/models"
	"github.com/starford/notewright/internal/storage"
)

// Document is the on-disk configuration document.
type Document struct {
	NoteConfig  models.NoteConfig  `json:"noteConfig"`
	IndexConfig models.GlobalIndex `json:"indexConfig"`
}

// New returns an empty document.
func New() *Document {
	return &Document{
		NoteConfig:  models.NoteConfig{NoteTypes: []models.NoteType{}, Questions: []models.Question{}},
		IndexConfig: models.NewGlobalIndex(),
	}
}

// Decode parses data into a Document without validating the note config.
func Decode(data []byte) (*Document, error) {
	doc := New()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("document: decode: %w", err)
	}
	if doc.IndexConfig.Indices == nil {
		doc.IndexConfig.Indices = map[string]*models.Index{}
	}
	return doc, nil
}

// Read returns the raw document bytes, or nil when the file does not exist.
func Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("document: read %s: %w", path, err)
	}
	return data, nil
}

// Load reads and validates the document at path. A missing file yields an
// empty document.
func Load(path string) (*Document, error) {
	data, err := Read(path)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return New(), nil
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, err
	}
	if err := doc.NoteConfig.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrInvalidConfig, err)
	}
	return doc, nil
}

// Encode renders the document as indented JSON with a trailing newline.
func (d *Document) Encode() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("document: encode: %w", err)
	}
	return append(data, '\n'), nil
}

// Save writes the document atomically.
func (d *Document) Save(path string) error {
	data, err := d.Encode()
	if err != nil {
		return err
	}
	return storage.WriteFileAtomic(path, data)
}
