// Package noteservice is the read and update facade over the note
// configuration, the index store and the vault. The HTTP API and the MCP
// server both go through it.
package noteservice

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/starford/notewright/internal/apperr"
	"github.com/starford/notewright/internal/checksum"
	"github.com/starford/notewright/internal/flow"
	"github.com/starford/notewright/internal/index"
	"github.com/starford/notewright/internal/models"
	"github.com/starford/notewright/internal/parser"
	"github.com/starford/notewright/internal/storage"
)

// SubtypeSummary describes one note subtype.
type SubtypeSummary struct {
	ID              string   `json:"id"`
	Folder          string   `json:"folder"`
	Title           string   `json:"title"`
	Questions       []string `json:"questions"`
	RequiredAnswers []string `json:"required_answers"`
}

// NoteTypeSummary describes one note type and its subtypes.
type NoteTypeSummary struct {
	ID       string           `json:"id"`
	Subtypes []SubtypeSummary `json:"subtypes"`
}

// IndexSummary is a lightweight item in an index listing.
type IndexSummary struct {
	Name     string   `json:"name"`
	Nested   bool     `json:"nested"`
	Level    int      `json:"level"`
	Parents  []string `json:"parents"`
	Children []string `json:"children"`
	Entries  int      `json:"entries"`
}

// EntryItem is one index entry.
type EntryItem struct {
	Name     string   `json:"name"`
	Level    int      `json:"level"`
	Parents  []string `json:"parents"`
	Children []string `json:"children"`
}

// IndexConfig is the hierarchy part of an index.
type IndexConfig struct {
	Nested   bool     `json:"nested"`
	Level    int      `json:"level"`
	Parents  []string `json:"parents"`
	Children []string `json:"children"`
}

// DocumentItem is a lightweight item in a document listing.
type DocumentItem struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	Checksum  string    `json:"checksum"`
	Tags      []string  `json:"tags"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentDetail is the full representation of a document.
type DocumentDetail struct {
	Path        string         `json:"path"`
	Title       string         `json:"title"`
	Content     string         `json:"content"`
	Checksum    string         `json:"checksum"`
	Tags        []string       `json:"tags"`
	Links       []string       `json:"links"`
	FrontMatter map[string]any `json:"frontmatter,omitempty"`
}

// Service coordinates the configuration, index and vault for outer
// surfaces.
type Service struct {
	cfg   *models.NoteConfig
	store *index.Store
	vault storage.Provider
}

// NewService creates a new note service.
func NewService(cfg *models.NoteConfig, store *index.Store, vault storage.Provider) *Service {
	return &Service{cfg: cfg, store: store, vault: vault}
}

// NoteConfig returns the note configuration the service was built with.
func (s *Service) NoteConfig() *models.NoteConfig {
	return s.cfg
}

// NoteTypes lists the configured note types in configuration order.
func (s *Service) NoteTypes(_ context.Context) []NoteTypeSummary {
	out := make([]NoteTypeSummary, 0, len(s.cfg.NoteTypes))
	for _, t := range s.cfg.NoteTypes {
		sum := NoteTypeSummary{ID: t.ID, Subtypes: make([]SubtypeSummary, 0, len(t.Subtypes))}
		for i := range t.Subtypes {
			st := &t.Subtypes[i]
			sum.Subtypes = append(sum.Subtypes, SubtypeSummary{
				ID:              st.ID,
				Folder:          st.Folder,
				Title:           st.Title,
				Questions:       nonNilSlice(st.Questions),
				RequiredAnswers: nonNilSlice(flow.RequiredAnswerIDs(s.cfg, st)),
			})
		}
		out = append(out, sum)
	}
	return out
}

// Indices lists every index by name.
func (s *Service) Indices(_ context.Context) []IndexSummary {
	g := s.store.Snapshot()
	names := s.store.Names()
	out := make([]IndexSummary, 0, len(names))
	for _, name := range names {
		ix := g.Indices[name]
		if ix == nil {
			continue
		}
		out = append(out, IndexSummary{
			Name:     name,
			Nested:   ix.Nested,
			Level:    ix.Level,
			Parents:  nonNilSlice(ix.Parents),
			Children: nonNilSlice(ix.Children),
			Entries:  len(ix.Entries),
		})
	}
	return out
}

// Index returns the summary of one index.
func (s *Service) Index(_ context.Context, name string) (*IndexSummary, error) {
	if !s.store.Has(name) {
		return nil, fmt.Errorf("index %q: %w", name, apperr.ErrNotFound)
	}
	cfg := s.store.Config(name)
	return &IndexSummary{
		Name:     name,
		Nested:   cfg.Nested,
		Level:    cfg.Level,
		Parents:  nonNilSlice(cfg.Parents),
		Children: nonNilSlice(cfg.Children),
		Entries:  len(s.store.Entries(name, "")),
	}, nil
}

// Entries returns the entries of an index sorted by name. A non-empty parent
// keeps only entries listing it among their parents.
func (s *Service) Entries(_ context.Context, name, parent string) ([]EntryItem, error) {
	if !s.store.Has(name) {
		return nil, fmt.Errorf("index %q: %w", name, apperr.ErrNotFound)
	}
	entries := s.store.Entries(name, parent)
	out := make([]EntryItem, 0, len(entries))
	for n, e := range entries {
		out = append(out, entryItem(n, e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// AddEntry upserts one entry, creating the index when needed. With a
// non-empty parent the entry is linked under it.
func (s *Service) AddEntry(ctx context.Context, name, entry, parent string) (*EntryItem, error) {
	name = strings.TrimSpace(name)
	entry = strings.TrimSpace(entry)
	if name == "" || entry == "" {
		return nil, fmt.Errorf("index and entry names are required: %w", apperr.ErrInvalidInput)
	}
	var opts []index.UpsertOption
	if parent != "" {
		opts = append(opts, index.WithParent(parent))
	}
	if err := s.store.Upsert(ctx, name, map[string]models.IndexEntry{entry: {}}, opts...); err != nil {
		return nil, err
	}
	e, ok := s.store.Entries(name, "")[entry]
	if !ok {
		return nil, fmt.Errorf("entry %q of %q vanished after upsert", entry, name)
	}
	item := entryItem(entry, e)
	return &item, nil
}

// ConfigureIndex sets the hierarchy settings of an index, keeping its
// entries.
func (s *Service) ConfigureIndex(ctx context.Context, name string, cfg IndexConfig) (*IndexSummary, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("index name is required: %w", apperr.ErrInvalidInput)
	}
	if cfg.Level < 0 {
		return nil, fmt.Errorf("level must not be negative: %w", apperr.ErrInvalidInput)
	}
	err := s.store.Configure(ctx, name, models.Index{
		Nested:   cfg.Nested,
		Level:    cfg.Level,
		Parents:  cfg.Parents,
		Children: cfg.Children,
	})
	if err != nil {
		return nil, err
	}
	return s.Index(ctx, name)
}

// ListDocuments returns every Markdown document under dir sorted by path.
func (s *Service) ListDocuments(ctx context.Context, dir string) ([]DocumentItem, error) {
	metas, err := s.vault.List(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("folder %q: %w", dir, apperr.ErrNotFound)
		}
		return nil, err
	}
	out := make([]DocumentItem, 0, len(metas))
	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, err := s.vault.ReadFile(m.Path)
		if err != nil {
			// removed since listing
			continue
		}
		res := parser.Parse(data)
		out = append(out, DocumentItem{
			Path:      m.Path,
			Title:     res.Title,
			Checksum:  m.Checksum,
			Tags:      nonNilSlice(res.Tags),
			UpdatedAt: m.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// GetDocument reads and parses one document.
func (s *Service) GetDocument(_ context.Context, path string) (*DocumentDetail, error) {
	if !strings.HasSuffix(path, ".md") {
		return nil, fmt.Errorf("document %q: %w", path, apperr.ErrNotFound)
	}
	data, err := s.vault.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("document %q: %w", path, apperr.ErrNotFound)
		}
		return nil, err
	}
	res := parser.Parse(data)
	return &DocumentDetail{
		Path:        path,
		Title:       res.Title,
		Content:     string(data),
		Checksum:    checksum.Sum(data),
		Tags:        nonNilSlice(res.Tags),
		Links:       nonNilSlice(res.Links),
		FrontMatter: res.FrontMatter,
	}, nil
}

func entryItem(name string, e models.IndexEntry) EntryItem {
	return EntryItem{
		Name:     name,
		Level:    e.Metadata.Level,
		Parents:  nonNilSlice(e.Metadata.Parents),
		Children: nonNilSlice(e.Metadata.Children),
	}
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
