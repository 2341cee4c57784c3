package models

import (
	"encoding/json"
	"sort"
	"strings"
)

// Value is the payload of an Answer. It is one of Scalar, ScalarList or
// NestedMap; consumers switch on the concrete type.
type Value interface {
	isValue()
}

// Scalar is a single answered value.
type Scalar string

// ScalarList is an ordered multi-selection. Duplicates are kept.
type ScalarList []string

// NestedMap holds the per-level answers of a nested suggester, keyed by
// answer-id.
type NestedMap map[string]Answer

func (Scalar) isValue()     {}
func (ScalarList) isValue() {}
func (NestedMap) isValue()  {}

// Kind names the shape of an answer value.
type Kind string

const (
	KindScalar Kind = "scalar"
	KindArray  Kind = "array"
	KindNested Kind = "nested"
)

// Metadata describes where an answer came from.
type Metadata struct {
	QuestionType   string  `json:"questionType"`
	Indexed        bool    `json:"indexed"`
	Level          *int    `json:"level"`
	ParentAnswerID *string `json:"parentAnswerId"`
	IndexName      string  `json:"indexName,omitempty"`
}

// Answer is an immutable resolved answer.
type Answer struct {
	Value    Value
	Metadata Metadata
}

// Kind reports the shape of the answer value.
func (a Answer) Kind() Kind {
	switch a.Value.(type) {
	case ScalarList:
		return KindArray
	case NestedMap:
		return KindNested
	default:
		return KindScalar
	}
}

// Values flattens the answer into its string values. Nested maps yield their
// level values ordered by level.
func (a Answer) Values() []string {
	switch v := a.Value.(type) {
	case Scalar:
		return []string{string(v)}
	case ScalarList:
		out := make([]string, len(v))
		copy(out, v)
		return out
	case NestedMap:
		out := make([]string, 0, len(v))
		for _, id := range v.OrderedIDs() {
			out = append(out, v[id].String())
		}
		return out
	default:
		return nil
	}
}

// String renders the answer as text: lists are joined with ", " and nested
// maps are rendered as a level path joined with "/".
func (a Answer) String() string {
	switch v := a.Value.(type) {
	case Scalar:
		return string(v)
	case ScalarList:
		return strings.Join(v, ", ")
	case NestedMap:
		return strings.Join(a.Values(), "/")
	default:
		return ""
	}
}

// First returns the first value, used as the parent key of the next nesting
// level.
func (a Answer) First() string {
	vals := a.Values()
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

// OrderedIDs returns the answer-ids ordered by nesting level, ties broken by id.
func (m NestedMap) OrderedIDs() []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		li, lj := levelOf(m[ids[i]]), levelOf(m[ids[j]])
		if li != lj {
			return li < lj
		}
		return ids[i] < ids[j]
	})
	return ids
}

func levelOf(a Answer) int {
	if a.Metadata.Level == nil {
		return -1
	}
	return *a.Metadata.Level
}

type answerJSON struct {
	Value    any      `json:"value"`
	Kind     Kind     `json:"kind"`
	Metadata Metadata `json:"metadata"`
}

// MarshalJSON renders the answer with its kind. JSON log handlers use it
// for the answer dump of the answerStorage debug category.
func (a Answer) MarshalJSON() ([]byte, error) {
	var v any
	switch val := a.Value.(type) {
	case Scalar:
		v = string(val)
	case ScalarList:
		v = []string(val)
	case NestedMap:
		v = map[string]Answer(val)
	}
	return json.Marshal(answerJSON{Value: v, Kind: a.Kind(), Metadata: a.Metadata})
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}
