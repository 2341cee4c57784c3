// Package engine resolves configured questions into answers, consulting the
// index store and prompting the user.
package engine

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/starford/notewright/internal/answers"
	"github.com/starford/notewright/internal/apperr"
	"github.com/starford/notewright/internal/debuglog"
	"github.com/starford/notewright/internal/index"
	"github.com/starford/notewright/internal/models"
	"github.com/starford/notewright/internal/placeholder"
	"github.com/starford/notewright/internal/prompt"
)

// IndexStore is the part of index.Store the engine reads and writes.
type IndexStore interface {
	EntryNames(indexName, parent string) []string
	Config(indexName string) models.Index
	Upsert(ctx context.Context, indexName string, entries map[string]models.IndexEntry, opts ...index.UpsertOption) error
}

// Spawn asks the caller to create a document for a freshly created index
// entry. Seed holds the answers known when the entry was created, including
// the entry itself under the creating question's answer-id.
type Spawn struct {
	EntryName   string
	NoteType    string
	NoteSubtype string
	Seed        *answers.Set
}

// Result is the outcome of resolving one question.
type Result struct {
	Answers *answers.Set
	Spawns  []Spawn
}

// ConfigError reports a question that cannot be resolved as configured.
type ConfigError struct {
	QuestionID string
	Reason     string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("question %q: %s", e.QuestionID, e.Reason)
}

func (e *ConfigError) Unwrap() error { return apperr.ErrInvalidConfig }

// Engine resolves questions.
type Engine struct {
	store    IndexStore
	prompter prompt.Prompter
	log      *debuglog.Logger
}

// New returns an Engine. A nil logger discards output.
func New(store IndexStore, p prompt.Prompter, log *debuglog.Logger) *Engine {
	if log == nil {
		log = debuglog.Discard()
	}
	return &Engine{store: store, prompter: p, log: log}
}

// WithLogger returns a copy of e logging to log.
func (e *Engine) WithLogger(log *debuglog.Logger) *Engine {
	cp := *e
	cp.log = log
	return &cp
}

// Resolve answers q given the answers collected so far. given is not
// modified. A question whose answer-id is already answered returns the
// existing answer without prompting. User cancellation is reported as
// prompt.ErrCancelled; in that case no answers and no spawns are returned,
// though index entries created before the cancellation stay.
func (e *Engine) Resolve(ctx context.Context, q models.Question, given *answers.Set) (Result, error) {
	work := answers.New()
	if given != nil {
		work = given.Clone()
	}
	res := Result{Answers: answers.New()}

	e.log.Debug(debuglog.QuestionFlow, "resolving question", "question", q.QuestionID, "type", q.Type)

	if q.AnswerID != "" {
		if a, ok := work.Get(q.AnswerID); ok {
			e.log.Debug(debuglog.QuestionFlow, "using existing answer", "answerId", q.AnswerID, "value", a.String())
			res.Answers.Put(q.AnswerID, a)
			return res, nil
		}
	}

	switch strings.ToLower(q.Type) {
	case strings.ToLower(models.QuestionInput):
		a, err := e.input(ctx, q, work)
		if err != nil {
			return Result{}, err
		}
		res.Answers.Put(q.AnswerID, a)

	case strings.ToLower(models.QuestionSuggester):
		if q.AnswerID == "" {
			return Result{}, &ConfigError{QuestionID: q.QuestionID, Reason: "missing answerId"}
		}
		a, spawns, err := e.suggest(ctx, q, work, 0, "")
		if err != nil {
			return Result{}, err
		}
		res.Answers.Put(q.AnswerID, a)
		res.Spawns = spawns

	case strings.ToLower(models.QuestionNestedSuggester):
		out, spawns, err := e.nested(ctx, q, work)
		if err != nil {
			return Result{}, err
		}
		res.Answers = out
		res.Spawns = spawns

	default:
		return Result{}, &ConfigError{QuestionID: q.QuestionID, Reason: fmt.Sprintf("unknown question type %q", q.Type)}
	}

	for _, id := range res.Answers.IDs() {
		a, _ := res.Answers.Get(id)
		e.log.Debug(debuglog.AnswerStorage, "answer resolved", "answerId", id, "kind", string(a.Kind()), "value", a.String())
	}
	return res, nil
}

func (e *Engine) input(ctx context.Context, q models.Question, work *answers.Set) (models.Answer, error) {
	if q.AnswerID == "" {
		return models.Answer{}, &ConfigError{QuestionID: q.QuestionID, Reason: "missing answerId"}
	}
	header := placeholder.Render(q.Prompt, work)
	v, err := e.prompter.Input(ctx, header, "", "")
	if err != nil {
		return models.Answer{}, err
	}
	e.log.Debug(debuglog.General, "input answer", "answerId", q.AnswerID, "value", v)
	return models.Answer{
		Value:    models.Scalar(v),
		Metadata: models.Metadata{QuestionType: models.QuestionInput},
	}, nil
}

// suggest runs the choose loop for one suggester question at the given
// nesting level. parent filters index candidates and becomes the parent of
// new entries.
func (e *Engine) suggest(ctx context.Context, q models.Question, work *answers.Set, level int, parent string) (models.Answer, []Spawn, error) {
	if a, ok := work.Get(q.AnswerID); ok {
		e.log.Debug(debuglog.QuestionFlow, "using existing answer", "answerId", q.AnswerID)
		return a, nil, nil
	}

	header := placeholder.Render(q.Prompt, work)

	var candidates []string
	if q.IndexName != "" {
		candidates = e.store.EntryNames(q.IndexName, parent)
		e.log.Debug(debuglog.QuestionFlow, "index candidates",
			"index", q.IndexName, "parent", parent, "count", len(candidates))
	} else {
		candidates = slices.Clone(q.Choices)
	}

	options := slices.Clone(candidates)
	if q.AllowManualEntry {
		options = append(options, prompt.NewEntryOption)
	}
	if q.MultipleSelections {
		options = append(options, prompt.DoneOption)
	}
	if len(options) == 0 {
		return models.Answer{}, nil, &ConfigError{QuestionID: q.QuestionID, Reason: "no choices available and manual entry is disabled"}
	}

	var (
		selected []string
		spawns   []Spawn
	)
	for {
		pick, err := e.prompter.Choose(ctx, header, options)
		if err != nil {
			e.log.Debug(debuglog.QuestionFlow, "choice aborted", "answerId", q.AnswerID, "error", err)
			return models.Answer{}, nil, err
		}

		switch {
		case pick == prompt.DoneOption && q.MultipleSelections:
			return e.collapse(q, selected, level, parent), spawns, nil

		case pick == prompt.NewEntryOption && q.AllowManualEntry:
			name, err := e.prompter.Input(ctx, header, "New entry name", "")
			if err != nil {
				return models.Answer{}, nil, err
			}
			name = strings.TrimSpace(name)
			if name == "" {
				e.log.Debug(debuglog.QuestionFlow, "empty new entry ignored", "answerId", q.AnswerID)
				continue
			}
			selected = append(selected, name)

			if q.IndexName != "" {
				if err := e.addEntry(ctx, q.IndexName, name, level, parent); err != nil {
					return models.Answer{}, nil, err
				}
				if !slices.Contains(options, name) {
					options = slices.Insert(options, len(options)-sentinels(q), name)
				}
				if q.CreateNewEntry {
					seed := work.Clone()
					seed.Put(q.AnswerID, models.Answer{
						Value:    models.Scalar(name),
						Metadata: suggesterMetadata(true, level, parent),
					})
					spawns = append(spawns, Spawn{
						EntryName:   name,
						NoteType:    q.NewEntryNoteType,
						NoteSubtype: q.NewEntryNoteSubtype,
						Seed:        seed,
					})
					e.log.Debug(debuglog.QuestionFlow, "document creation requested",
						"entry", name, "type", q.NewEntryNoteType, "subtype", q.NewEntryNoteSubtype)
				}
			}
			if !q.MultipleSelections {
				return e.collapse(q, selected, level, parent), spawns, nil
			}

		default:
			selected = append(selected, pick)
			if !q.MultipleSelections {
				return e.collapse(q, selected, level, parent), spawns, nil
			}
		}
	}
}

func (e *Engine) addEntry(ctx context.Context, indexName, name string, level int, parent string) error {
	entry := models.IndexEntry{Metadata: models.EntryMetadata{Level: level, Parents: []string{}}}
	var opts []index.UpsertOption
	if parent != "" {
		opts = append(opts, index.WithParent(parent))
	}
	if err := e.store.Upsert(ctx, indexName, map[string]models.IndexEntry{name: entry}, opts...); err != nil {
		return fmt.Errorf("engine: add %q to %s: %w", name, indexName, err)
	}
	e.log.Debug(debuglog.AnswerStorage, "new entry saved", "index", indexName, "entry", name, "parent", parent)
	return nil
}

func (e *Engine) collapse(q models.Question, selected []string, level int, parent string) models.Answer {
	var v models.Value
	if q.MultipleSelections {
		v = models.ScalarList(append([]string{}, selected...))
	} else {
		v = models.Scalar(selected[0])
	}
	a := models.Answer{Value: v, Metadata: suggesterMetadata(q.IndexName != "", level, parent)}
	e.log.Debug(debuglog.FormatAnswer, "final answer", "answerId", q.AnswerID, "value", a.String())
	return a
}

// nested walks the nest levels of q in order. Level n > 0 queries the first
// child index of the index used at level n-1, filtered by the level n-1
// answer.
func (e *Engine) nested(ctx context.Context, q models.Question, work *answers.Set) (*answers.Set, []Spawn, error) {
	if len(q.Nest) == 0 {
		return nil, nil, &ConfigError{QuestionID: q.QuestionID, Reason: "nested question without nest levels"}
	}
	out := answers.New()
	var spawns []Spawn

	current := q.IndexName
	parent := ""
	levelIDs := make([]string, 0, len(q.Nest))

	for level, nq := range q.Nest {
		if nq.AnswerID == "" {
			return nil, nil, &ConfigError{QuestionID: q.QuestionID, Reason: fmt.Sprintf("nest level %d has no answerId", level)}
		}
		levelIDs = append(levelIDs, nq.AnswerID)

		if level > 0 && current != "" {
			if child := e.store.Config(current).ChildIndex(); child != "" {
				current = child
			}
		}
		e.log.Debug(debuglog.Nested, "nest level", "level", level, "answerId", nq.AnswerID, "index", current, "parent", parent)

		if a, ok := work.Get(nq.AnswerID); ok {
			out.Put(nq.AnswerID, a)
			parent = a.First()
			continue
		}

		lq := nq
		lq.QuestionID = q.QuestionID
		lq.IndexName = current
		a, sp, err := e.suggest(ctx, lq, work, level, parent)
		if err != nil {
			e.log.Debug(debuglog.Nested, "nested chain aborted", "level", level, "error", err)
			return nil, nil, err
		}
		a.Metadata = models.Metadata{
			QuestionType:   models.QuestionNestedSuggester,
			Indexed:        true,
			Level:          models.Ptr(level),
			ParentAnswerID: optional(parent),
			IndexName:      current,
		}
		work.Put(nq.AnswerID, a)
		out.Put(nq.AnswerID, a)
		spawns = append(spawns, sp...)
		parent = a.First()
	}

	if q.AnswerID != "" && !slices.Contains(levelIDs, q.AnswerID) {
		m := models.NestedMap{}
		for _, id := range levelIDs {
			m[id], _ = out.Get(id)
		}
		out.Put(q.AnswerID, models.Answer{
			Value: m,
			Metadata: models.Metadata{
				QuestionType: models.QuestionNestedSuggester,
				Indexed:      true,
				IndexName:    q.IndexName,
			},
		})
	}
	return out, spawns, nil
}

func suggesterMetadata(indexed bool, level int, parent string) models.Metadata {
	return models.Metadata{
		QuestionType:   models.QuestionSuggester,
		Indexed:        indexed,
		Level:          models.Ptr(level),
		ParentAnswerID: optional(parent),
	}
}

func sentinels(q models.Question) int {
	n := 0
	if q.AllowManualEntry {
		n++
	}
	if q.MultipleSelections {
		n++
	}
	return n
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
