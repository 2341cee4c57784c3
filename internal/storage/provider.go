// Package storage defines the vault file-system abstraction documents are
// written through.
package storage

import "github.com/starford/notewright/internal/models"

// Provider is the interface for vault file operations. Paths are relative to
// the vault root and use forward slashes.
type Provider interface {
	// Exists reports whether a file or folder exists at path.
	Exists(path string) (bool, error)
	// MakeFolder creates the folder at path and any missing parents.
	MakeFolder(path string) error
	// ReadFile returns the raw bytes of the file at path.
	ReadFile(path string) ([]byte, error)
	// CreateFile writes a new file; it fails with apperr.ErrAlreadyExists
	// when path is taken.
	CreateFile(path string, content []byte) error
	// OpenFile hands the file to the configured opener (editor, viewer).
	OpenFile(path string) error
	// List returns metadata for every .md file under dir.
	List(dir string) ([]models.DocumentMeta, error)
}
