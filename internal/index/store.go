// Package index holds the global index: named lists of selectable entries
// arranged in parent/child levels, persisted through a Persister.
package index

import (
	"context"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"sync"

	"github.com/starford/notewright/internal/debuglog"
	"github.com/starford/notewright/internal/models"
)

// Persister loads and saves the whole global index.
type Persister interface {
	Load(ctx context.Context) (models.GlobalIndex, error)
	Save(ctx context.Context, g models.GlobalIndex) error
}

// Event describes a committed change. Index is empty after a full reload.
type Event struct {
	Index   string
	Entries []string
}

// Observer is notified after every committed change.
type Observer func(Event)

// Store is the in-memory global index. Reads never block on persistence of
// other readers; writes are serialized and only become visible once saved.
type Store struct {
	mu        sync.RWMutex
	data      models.GlobalIndex
	persist   Persister
	log       *debuglog.Logger
	observers []Observer
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the category logger.
func WithLogger(l *debuglog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// WithObserver registers o before the initial load.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		s.observers = append(s.observers, o)
	}
}

// Open loads the index from p.
func Open(ctx context.Context, p Persister, opts ...Option) (*Store, error) {
	s := &Store{persist: p, log: debuglog.Discard()}
	for _, opt := range opts {
		opt(s)
	}
	g, err := p.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("index: load: %w", err)
	}
	if g.Indices == nil {
		g.Indices = map[string]*models.Index{}
	}
	s.data = g
	return s, nil
}

// OnUpdate registers an observer.
func (s *Store) OnUpdate(o Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, o)
	s.mu.Unlock()
}

// Entries returns a copy of the entries of indexName. With a non-empty
// parent only entries listing it among their parents are returned. An
// unknown index yields an empty map.
func (s *Store) Entries(indexName, parent string) map[string]models.IndexEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := map[string]models.IndexEntry{}
	ix := s.data.Indices[indexName]
	if ix == nil {
		return out
	}
	for name, e := range ix.Entries {
		if parent != "" && !e.Metadata.HasParent(parent) {
			continue
		}
		out[name] = e.Clone()
	}
	return out
}

// EntryNames returns the sorted names of Entries(indexName, parent).
func (s *Store) EntryNames(indexName, parent string) []string {
	entries := s.Entries(indexName, parent)
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Config returns the hierarchy settings of indexName without its entries.
// An unknown index yields a zero-level, non-nested config.
func (s *Store) Config(indexName string) models.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ix := s.data.Indices[indexName]
	if ix == nil {
		return models.Index{Entries: map[string]models.IndexEntry{}}
	}
	return models.Index{
		Nested:   ix.Nested,
		Level:    ix.Level,
		Parents:  slices.Clone(ix.Parents),
		Children: slices.Clone(ix.Children),
		Entries:  map[string]models.IndexEntry{},
	}
}

// Has reports whether indexName exists.
func (s *Store) Has(indexName string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Indices[indexName] != nil
}

// Names returns the sorted index names.
func (s *Store) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.data.Indices))
	for name := range s.data.Indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a deep copy of the whole index.
func (s *Store) Snapshot() models.GlobalIndex {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.data.Clone()
}

// UpsertOption tunes a single Upsert.
type UpsertOption func(*upsertOpts)

type upsertOpts struct {
	parent string
}

// WithParent replaces the parents of every upserted entry with [parent].
func WithParent(parent string) UpsertOption {
	return func(o *upsertOpts) {
		o.parent = parent
	}
}

// Upsert writes entries into indexName, creating the index when missing,
// and adds each entry to the children list of its parents. Each entry's
// level is set to the index level. Children already recorded for an
// overwritten entry are kept. The change is persisted before it becomes
// visible; on a persistence error the store is left unchanged.
func (s *Store) Upsert(ctx context.Context, indexName string, entries map[string]models.IndexEntry, opts ...UpsertOption) error {
	if indexName == "" {
		return fmt.Errorf("index: upsert: empty index name")
	}
	var o upsertOpts
	for _, opt := range opts {
		opt(&o)
	}

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	err := s.apply(ctx, func(next models.GlobalIndex) Event {
		ix := next.Indices[indexName]
		if ix == nil {
			ix = &models.Index{Entries: map[string]models.IndexEntry{}}
			next.Indices[indexName] = ix
			s.log.Debug(debuglog.AnswerStorage, "index created", "index", indexName)
		}
		if ix.Entries == nil {
			ix.Entries = map[string]models.IndexEntry{}
		}

		for _, name := range names {
			e := entries[name].Clone()
			e.Metadata.Level = ix.Level
			if o.parent != "" {
				e.Metadata.Parents = []string{o.parent}
			}
			if e.Metadata.Parents == nil {
				e.Metadata.Parents = []string{}
			}
			if prev, ok := ix.Entries[name]; ok {
				for _, c := range prev.Metadata.Children {
					if !slices.Contains(e.Metadata.Children, c) {
						e.Metadata.Children = append(e.Metadata.Children, c)
					}
				}
			}
			ix.Entries[name] = e

			for _, parent := range e.Metadata.Parents {
				if !linkParent(next, indexName, parent, name) {
					s.log.Debug(debuglog.AnswerStorage, "parent entry not found",
						"index", indexName, "entry", name, "parent", parent)
				}
			}
		}
		return Event{Index: indexName, Entries: names}
	})
	if err != nil {
		return err
	}
	s.log.Debug(debuglog.AnswerStorage, "index updated", "index", indexName, "entries", names)
	return nil
}

// apply runs mutate on a copy of the index, persists the copy and swaps it
// in. Observers run after the lock is released.
func (s *Store) apply(ctx context.Context, mutate func(next models.GlobalIndex) Event) error {
	s.mu.Lock()
	next := s.data.Clone()
	ev := mutate(next)
	if err := s.persist.Save(ctx, next); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("index: save: %w", err)
	}
	s.data = next
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	for _, o := range observers {
		o(ev)
	}
	return nil
}

// linkParent appends child to the children of parent. The parent entry is
// looked up in the index's first parent index, then in the index itself.
// It reports whether the parent entry was found.
func linkParent(g models.GlobalIndex, indexName, parent, child string) bool {
	ix := g.Indices[indexName]
	var candidates []string
	if p := ix.ParentIndex(); p != "" {
		candidates = append(candidates, p)
	}
	candidates = append(candidates, indexName)

	for _, name := range candidates {
		pix := g.Indices[name]
		if pix == nil {
			continue
		}
		pe, ok := pix.Entries[parent]
		if !ok {
			continue
		}
		if !slices.Contains(pe.Metadata.Children, child) {
			pe.Metadata.Children = append(pe.Metadata.Children, child)
			pix.Entries[parent] = pe
		}
		return true
	}
	return false
}

// Configure sets the hierarchy settings of indexName, keeping its entries.
func (s *Store) Configure(ctx context.Context, indexName string, cfg models.Index) error {
	if indexName == "" {
		return fmt.Errorf("index: configure: empty index name")
	}
	return s.apply(ctx, func(next models.GlobalIndex) Event {
		ix := next.Indices[indexName]
		if ix == nil {
			ix = &models.Index{Entries: map[string]models.IndexEntry{}}
			next.Indices[indexName] = ix
		}
		ix.Nested = cfg.Nested
		ix.Level = cfg.Level
		ix.Parents = slices.Clone(cfg.Parents)
		ix.Children = slices.Clone(cfg.Children)
		return Event{Index: indexName}
	})
}

// Reload replaces the in-memory index with the persisted one. It returns
// false when nothing changed.
func (s *Store) Reload(ctx context.Context) (bool, error) {
	g, err := s.persist.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("index: reload: %w", err)
	}
	if g.Indices == nil {
		g.Indices = map[string]*models.Index{}
	}

	s.mu.Lock()
	if reflect.DeepEqual(normalize(s.data), normalize(g)) {
		s.mu.Unlock()
		return false, nil
	}
	s.data = g
	observers := slices.Clone(s.observers)
	s.mu.Unlock()

	s.log.Debug(debuglog.AnswerStorage, "index reloaded", "indices", len(g.Indices))
	for _, o := range observers {
		o(Event{})
	}
	return true, nil
}

// normalize maps empty slices to nil so that equal indices compare equal
// regardless of how they were decoded.
func normalize(g models.GlobalIndex) models.GlobalIndex {
	out := g.Clone()
	for _, ix := range out.Indices {
		ix.Parents = nilIfEmpty(ix.Parents)
		ix.Children = nilIfEmpty(ix.Children)
		for name, e := range ix.Entries {
			e.Metadata.Parents = nilIfEmpty(e.Metadata.Parents)
			e.Metadata.Children = nilIfEmpty(e.Metadata.Children)
			ix.Entries[name] = e
		}
	}
	return out
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
