package index

import (
	"context"
	"fmt"
	"sync"

	"github.com/starford/notewright/internal/checksum"
	"github.com/starford/notewright/internal/document"
	"github.com/starford/notewright/internal/models"
	"github.com/starford/notewright/internal/storage"
)

// DocumentPersister keeps the index in the indexConfig section of the
// configuration document. The note config section is preserved as found on
// disk at save time.
type DocumentPersister struct {
	path string

	mu      sync.Mutex
	lastSum string
}

// NewDocumentPersister returns a persister for the document at path.
func NewDocumentPersister(path string) *DocumentPersister {
	return &DocumentPersister{path: path}
}

// Path returns the document path.
func (p *DocumentPersister) Path() string {
	return p.path
}

// Load reads the index section. A missing document yields an empty index.
func (p *DocumentPersister) Load(_ context.Context) (models.GlobalIndex, error) {
	data, err := document.Read(p.path)
	if err != nil {
		return models.GlobalIndex{}, err
	}
	p.mu.Lock()
	p.lastSum = sumOrEmpty(data)
	p.mu.Unlock()
	if data == nil {
		return models.NewGlobalIndex(), nil
	}
	doc, err := document.Decode(data)
	if err != nil {
		return models.GlobalIndex{}, err
	}
	return doc.IndexConfig, nil
}

// Save rewrites the document with g as its index section.
func (p *DocumentPersister) Save(ctx context.Context, g models.GlobalIndex) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	data, err := document.Read(p.path)
	if err != nil {
		return err
	}
	doc := document.New()
	if data != nil {
		if doc, err = document.Decode(data); err != nil {
			return err
		}
	}
	doc.IndexConfig = g
	out, err := doc.Encode()
	if err != nil {
		return err
	}
	if err := storage.WriteFileAtomic(p.path, out); err != nil {
		return fmt.Errorf("index: write %s: %w", p.path, err)
	}
	p.lastSum = checksum.Sum(out)
	return nil
}

// Changed reports whether the document on disk differs from what this
// persister last read or wrote.
func (p *DocumentPersister) Changed() (bool, error) {
	data, err := document.Read(p.path)
	if err != nil {
		return false, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return sumOrEmpty(data) != p.lastSum, nil
}

func sumOrEmpty(data []byte) string {
	if data == nil {
		return ""
	}
	return checksum.Sum(data)
}

// MemoryPersister keeps the index in memory. It is used for dry runs and
// tests.
type MemoryPersister struct {
	mu    sync.Mutex
	g     models.GlobalIndex
	saves int
}

// NewMemoryPersister returns a persister seeded with a copy of g.
func NewMemoryPersister(g models.GlobalIndex) *MemoryPersister {
	if g.Indices == nil {
		g = models.NewGlobalIndex()
	}
	return &MemoryPersister{g: g.Clone()}
}

func (p *MemoryPersister) Load(_ context.Context) (models.GlobalIndex, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.g.Clone(), nil
}

func (p *MemoryPersister) Save(_ context.Context, g models.GlobalIndex) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.g = g.Clone()
	p.saves++
	return nil
}

// Saves returns how many times Save was called.
func (p *MemoryPersister) Saves() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saves
}
