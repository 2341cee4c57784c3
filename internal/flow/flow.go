// Package flow runs document creation end to end: type and subtype
// selection, question resolution, completeness check and assembly.
package flow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/notewright/internal/answers"
	"github.com/starford/notewright/internal/apperr"
	"github.com/starford/notewright/internal/assembler"
	"github.com/starford/notewright/internal/debuglog"
	"github.com/starford/notewright/internal/engine"
	"github.com/starford/notewright/internal/models"
	"github.com/starford/notewright/internal/prompt"
)

// DefaultMaxDepth bounds how deeply new-entry documents may spawn further
// new-entry documents.
const DefaultMaxDepth = 8

// MissingAnswersError lists required answer-ids left unanswered.
type MissingAnswersError struct {
	IDs []string
}

func (e *MissingAnswersError) Error() string {
	return "missing required answers: " + strings.Join(e.IDs, ", ")
}

func (e *MissingAnswersError) Unwrap() error { return apperr.ErrMissingAnswers }

// Outcome describes a created document and the documents spawned while
// creating it, depth first.
type Outcome struct {
	FlowID   string
	Document assembler.Document
	Answers  *answers.Set
	Spawned  []Outcome
}

// Controller drives flows over one note configuration.
type Controller struct {
	cfg       *models.NoteConfig
	engine    *engine.Engine
	assembler *assembler.Assembler
	prompter  prompt.Prompter
	notifier  prompt.Notifier
	log       *debuglog.Logger
	maxDepth  int
}

// Option configures a Controller.
type Option func(*Controller)

// WithNotifier sets where user-facing notices go.
func WithNotifier(n prompt.Notifier) Option {
	return func(c *Controller) {
		if n != nil {
			c.notifier = n
		}
	}
}

// WithLogger sets the category logger.
func WithLogger(l *debuglog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMaxDepth overrides DefaultMaxDepth.
func WithMaxDepth(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.maxDepth = n
		}
	}
}

// New returns a Controller.
func New(cfg *models.NoteConfig, eng *engine.Engine, asm *assembler.Assembler, p prompt.Prompter, opts ...Option) *Controller {
	c := &Controller{
		cfg:       cfg,
		engine:    eng,
		assembler: asm,
		prompter:  p,
		notifier:  prompt.Discard,
		log:       debuglog.Discard(),
		maxDepth:  DefaultMaxDepth,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// run carries the per-flow state.
type run struct {
	id    string
	depth int
	log   *debuglog.Logger
	eng   *engine.Engine
	asm   *assembler.Assembler
}

func (c *Controller) newRun(depth int) *run {
	id := uuid.NewString()
	l := c.log.With("flow_id", id, "depth", depth)
	return &run{id: id, depth: depth, log: l, eng: c.engine.WithLogger(l), asm: c.assembler.WithLogger(l)}
}

// Run asks for a note type and subtype, resolves the subtype's questions and
// creates the document. Cancellation returns apperr.ErrCancelled after a
// notice; no document is written.
func (c *Controller) Run(ctx context.Context) (Outcome, error) {
	r := c.newRun(0)
	out, err := c.run(ctx, r)
	return out, c.report(err, "Document creation cancelled")
}

func (c *Controller) run(ctx context.Context, r *run) (Outcome, error) {
	if len(c.cfg.NoteTypes) == 0 {
		return Outcome{}, fmt.Errorf("%w: no note types configured", apperr.ErrInvalidConfig)
	}
	typeID, err := c.prompter.Choose(ctx, "Select note type", c.cfg.TypeIDs())
	if err != nil {
		return Outcome{}, err
	}
	noteType, ok := c.cfg.FindType(typeID)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: unknown note type %q", apperr.ErrInvalidConfig, typeID)
	}
	if len(noteType.Subtypes) == 0 {
		return Outcome{}, fmt.Errorf("%w: note type %q has no subtypes", apperr.ErrInvalidConfig, typeID)
	}
	subtypeID, err := c.prompter.Choose(ctx, "Select note subtype", noteType.SubtypeIDs())
	if err != nil {
		return Outcome{}, err
	}
	subtype, ok := noteType.FindSubtype(subtypeID)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: unknown subtype %q of %q", apperr.ErrInvalidConfig, subtypeID, typeID)
	}
	r.log.Debug(debuglog.QuestionFlow, "note type selected", "type", typeID, "subtype", subtypeID)

	required := RequiredAnswerIDs(c.cfg, subtype)
	r.log.Debug(debuglog.AnswerID, "required answer ids", "ids", required)

	set := answers.New()
	out := Outcome{FlowID: r.id}
	for _, qid := range subtype.Questions {
		q, ok := c.cfg.FindQuestion(qid)
		if !ok {
			r.log.Debug(debuglog.QuestionFlow, "question not found", "question", qid)
			continue
		}
		spawned, err := c.resolve(ctx, r, *q, set)
		if err != nil {
			return Outcome{}, err
		}
		out.Spawned = append(out.Spawned, spawned...)
	}

	return c.finish(ctx, r, noteType, subtype, required, set, out)
}

// RunNewEntry creates the document for a freshly created index entry. The
// entry itself is recorded under the lower-cased subtype id; only required
// answers missing from seed are asked.
func (c *Controller) RunNewEntry(ctx context.Context, entryName, typeID, subtypeID string, seed *answers.Set) (Outcome, error) {
	r := c.newRun(0)
	out, err := c.runNewEntry(ctx, r, entryName, typeID, subtypeID, seed)
	return out, c.report(err, "New entry document creation cancelled")
}

func (c *Controller) runNewEntry(ctx context.Context, r *run, entryName, typeID, subtypeID string, seed *answers.Set) (Outcome, error) {
	if r.depth > c.maxDepth {
		return Outcome{}, fmt.Errorf("%w: new entry documents nested deeper than %d (creating %q as %s/%s)",
			apperr.ErrInvalidConfig, c.maxDepth, entryName, typeID, subtypeID)
	}
	noteType, ok := c.cfg.FindType(typeID)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: unknown note type %q", apperr.ErrInvalidConfig, typeID)
	}
	subtype, ok := noteType.FindSubtype(subtypeID)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: unknown subtype %q of %q", apperr.ErrInvalidConfig, subtypeID, typeID)
	}

	set := answers.New()
	if seed != nil {
		set = seed.Clone()
	}
	set.Put(strings.ToLower(subtype.ID), models.Answer{
		Value:    models.Scalar(entryName),
		Metadata: models.Metadata{QuestionType: models.QuestionInput, Indexed: true},
	})

	required := RequiredAnswerIDs(c.cfg, subtype)
	missing := set.Missing(required)
	r.log.Debug(debuglog.QuestionFlow, "new entry document",
		"entry", entryName, "type", typeID, "subtype", subtypeID, "missing", missing)

	out := Outcome{FlowID: r.id}
	for _, id := range missing {
		if set.Has(id) {
			continue
		}
		q, ok := c.cfg.FindQuestionForAnswer(id)
		if !ok {
			r.log.Debug(debuglog.QuestionFlow, "no question produces answer", "answerId", id)
			continue
		}
		spawned, err := c.resolve(ctx, r, *q, set)
		if err != nil {
			return Outcome{}, err
		}
		out.Spawned = append(out.Spawned, spawned...)
	}

	return c.finish(ctx, r, noteType, subtype, required, set, out)
}

// resolve answers one question, merges the result into set and runs any
// spawned new-entry flows before returning.
func (c *Controller) resolve(ctx context.Context, r *run, q models.Question, set *answers.Set) ([]Outcome, error) {
	res, err := r.eng.Resolve(ctx, q, set)
	if err != nil {
		return nil, err
	}
	set.PutAll(res.Answers)

	var spawned []Outcome
	for _, sp := range res.Spawns {
		child := c.newRun(r.depth + 1)
		r.log.Debug(debuglog.QuestionFlow, "running new entry flow", "entry", sp.EntryName, "child_flow_id", child.id)
		o, err := c.runNewEntry(ctx, child, sp.EntryName, sp.NoteType, sp.NoteSubtype, sp.Seed)
		if errors.Is(err, apperr.ErrAlreadyExists) {
			r.log.Warn("new entry document exists", "entry", sp.EntryName, "error", err)
			c.notifier.Notify("Document for " + sp.EntryName + " already exists")
			continue
		}
		// A dismissed prompt ends only the spawned flow; a cancelled context
		// ends every flow.
		if errors.Is(err, apperr.ErrCancelled) && ctx.Err() == nil {
			r.log.Debug(debuglog.QuestionFlow, "new entry flow cancelled", "entry", sp.EntryName)
			c.notifier.Notify("New entry document creation cancelled")
			continue
		}
		if err != nil {
			return nil, err
		}
		c.notifier.Notify("Created " + o.Document.Path)
		spawned = append(spawned, o)
	}
	return spawned, nil
}

func (c *Controller) finish(ctx context.Context, r *run, noteType *models.NoteType, subtype *models.NoteSubtype, required []string, set *answers.Set, out Outcome) (Outcome, error) {
	if missing := set.Missing(required); len(missing) > 0 {
		return Outcome{}, &MissingAnswersError{IDs: missing}
	}
	r.log.Debug(debuglog.AnswerStorage, "final answers", "ids", set.IDs(), "answers", set.Map())

	doc, err := r.asm.Create(ctx, noteType, subtype, set)
	if err != nil {
		return Outcome{}, err
	}
	r.log.Info("document created", "path", doc.Path)
	out.Document = doc
	out.Answers = set
	return out, nil
}

// report turns cancellation into a notice and reports missing answers by
// name. The error is returned unchanged.
func (c *Controller) report(err error, cancelled string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) && !errors.Is(err, apperr.ErrCancelled) {
		err = fmt.Errorf("%w: %w", apperr.ErrCancelled, err)
	}
	var missing *MissingAnswersError
	switch {
	case errors.Is(err, apperr.ErrCancelled):
		c.notifier.Notify(cancelled)
	case errors.As(err, &missing):
		c.notifier.Notify("Missing required answers: " + strings.Join(missing.IDs, ", "))
	default:
		c.log.Error("document creation failed", "error", err)
	}
	return err
}

// RequiredAnswerIDs lists the answer-ids the subtype's questions must
// produce: the answer-id of each plain question and one id per nest level of
// nested questions. Unknown question-ids are skipped.
func RequiredAnswerIDs(cfg *models.NoteConfig, subtype *models.NoteSubtype) []string {
	var ids []string
	for _, qid := range subtype.Questions {
		q, ok := cfg.FindQuestion(qid)
		if !ok {
			continue
		}
		if q.IsNested() {
			for _, n := range q.Nest {
				if n.AnswerID != "" {
					ids = append(ids, n.AnswerID)
				}
			}
			continue
		}
		if q.AnswerID != "" {
			ids = append(ids, q.AnswerID)
		} else {
			ids = append(ids, q.QuestionID)
		}
	}
	return ids
}
