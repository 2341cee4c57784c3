// Package answers holds the answer set accumulated over one flow.
package answers

import (
	"maps"
	"slices"

	"github.com/starford/notewright/internal/models"
)

// Set maps answer-ids to answers. Entries are only added or replaced; the
// insertion order of first writes is kept for stable iteration.
type Set struct {
	m     map[string]models.Answer
	order []string
}

// New returns an empty Set.
func New() *Set {
	return &Set{m: make(map[string]models.Answer)}
}

// Get returns the answer stored for id.
func (s *Set) Get(id string) (models.Answer, bool) {
	a, ok := s.m[id]
	return a, ok
}

// Has reports whether id has an answer.
func (s *Set) Has(id string) bool {
	_, ok := s.m[id]
	return ok
}

// Put stores a under id, replacing any previous answer.
func (s *Set) Put(id string, a models.Answer) {
	if _, ok := s.m[id]; !ok {
		s.order = append(s.order, id)
	}
	s.m[id] = a
}

// PutAll stores every answer of o in o's order.
func (s *Set) PutAll(o *Set) {
	if o == nil {
		return
	}
	for _, id := range o.order {
		s.Put(id, o.m[id])
	}
}

// Missing returns the ids from required that have no answer, in order.
func (s *Set) Missing(required []string) []string {
	var out []string
	for _, id := range required {
		if !s.Has(id) {
			out = append(out, id)
		}
	}
	return out
}

// IDs returns the answered ids in first-write order.
func (s *Set) IDs() []string {
	return slices.Clone(s.order)
}

// Len returns the number of answers.
func (s *Set) Len() int {
	return len(s.m)
}

// Clone returns an independent copy of s. Answers are immutable, so they are
// shared.
func (s *Set) Clone() *Set {
	return &Set{m: maps.Clone(s.m), order: slices.Clone(s.order)}
}

// Map returns a copy of the underlying mapping.
func (s *Set) Map() map[string]models.Answer {
	return maps.Clone(s.m)
}
