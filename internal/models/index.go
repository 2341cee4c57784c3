package models

import (
	"encoding/json"
	"slices"
)

// EntryMetadata places an entry in the index hierarchy.
type EntryMetadata struct {
	Level    int      `json:"level"`
	Parents  []string `json:"parents"`
	Children []string `json:"children,omitempty"`
}

// MarshalJSON always emits parents as a list.
func (m EntryMetadata) MarshalJSON() ([]byte, error) {
	type alias EntryMetadata
	if m.Parents == nil {
		m.Parents = []string{}
	}
	return json.Marshal(alias(m))
}

// HasParent reports whether parent is one of the entry's parents.
func (m EntryMetadata) HasParent(parent string) bool {
	return slices.Contains(m.Parents, parent)
}

// IndexEntry is one selectable value of an Index.
type IndexEntry struct {
	Metadata EntryMetadata `json:"metadata"`
}

// Clone returns a deep copy of e.
func (e IndexEntry) Clone() IndexEntry {
	return IndexEntry{Metadata: EntryMetadata{
		Level:    e.Metadata.Level,
		Parents:  slices.Clone(e.Metadata.Parents),
		Children: slices.Clone(e.Metadata.Children),
	}}
}

// Index is a named collection of entries. Parents and Children name other
// indices one level up or down the hierarchy.
type Index struct {
	Nested   bool                  `json:"nested"`
	Level    int                   `json:"level"`
	Parents  []string              `json:"parents,omitempty"`
	Children []string              `json:"children,omitempty"`
	Entries  map[string]IndexEntry `json:"entries"`
}

// MarshalJSON always emits entries as an object.
func (ix Index) MarshalJSON() ([]byte, error) {
	type alias Index
	if ix.Entries == nil {
		ix.Entries = map[string]IndexEntry{}
	}
	return json.Marshal(alias(ix))
}

// Clone returns a deep copy of ix.
func (ix *Index) Clone() *Index {
	out := &Index{
		Nested:   ix.Nested,
		Level:    ix.Level,
		Parents:  slices.Clone(ix.Parents),
		Children: slices.Clone(ix.Children),
		Entries:  make(map[string]IndexEntry, len(ix.Entries)),
	}
	for name, e := range ix.Entries {
		out.Entries[name] = e.Clone()
	}
	return out
}

// ParentIndex returns the first declared parent index, if any.
func (ix Index) ParentIndex() string {
	if len(ix.Parents) == 0 {
		return ""
	}
	return ix.Parents[0]
}

// ChildIndex returns the first declared child index, if any.
func (ix Index) ChildIndex() string {
	if len(ix.Children) == 0 {
		return ""
	}
	return ix.Children[0]
}

// GlobalIndex maps index names to indices.
type GlobalIndex struct {
	Indices map[string]*Index `json:"indices"`
}

// NewGlobalIndex returns an empty GlobalIndex.
func NewGlobalIndex() GlobalIndex {
	return GlobalIndex{Indices: map[string]*Index{}}
}

// Clone returns a deep copy of g.
func (g GlobalIndex) Clone() GlobalIndex {
	out := GlobalIndex{Indices: make(map[string]*Index, len(g.Indices))}
	for name, ix := range g.Indices {
		if ix == nil {
			continue
		}
		out.Indices[name] = ix.Clone()
	}
	return out
}
