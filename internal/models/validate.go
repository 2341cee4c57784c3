package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var questionTypes = []string{QuestionInput, QuestionSuggester, QuestionNestedSuggester}

// Validate checks the note configuration, including cross references between
// subtypes and questions.
func (c NoteConfig) Validate() error {
	if err := validation.ValidateStruct(&c,
		validation.Field(&c.NoteTypes),
		validation.Field(&c.Questions),
	); err != nil {
		return err
	}

	errs := validation.Errors{}
	for _, t := range c.NoteTypes {
		for _, s := range t.Subtypes {
			for _, qid := range s.Questions {
				if _, ok := c.FindQuestion(qid); !ok {
					errs[t.ID+"."+s.ID] = fmt.Errorf("unknown question %q", qid)
				}
			}
		}
	}
	checkTarget := func(key string, q Question) {
		if !q.CreateNewEntry {
			return
		}
		nt, ok := c.FindType(q.NewEntryNoteType)
		if !ok {
			errs[key] = fmt.Errorf("unknown newEntryNoteType %q", q.NewEntryNoteType)
			return
		}
		if _, ok := nt.FindSubtype(q.NewEntryNoteSubtype); !ok {
			errs[key] = fmt.Errorf("unknown newEntryNoteSubtype %q", q.NewEntryNoteSubtype)
		}
	}
	for _, q := range c.Questions {
		checkTarget(q.QuestionID, q)
		for i, nq := range q.Nest {
			checkTarget(fmt.Sprintf("%s.nest.%d", q.QuestionID, i), nq)
		}
	}
	return errs.Filter()
}

// Validate checks a note type.
func (t NoteType) Validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.ID, validation.Required),
		validation.Field(&t.Subtypes, validation.Required),
	)
}

// Validate checks a note subtype.
func (s NoteSubtype) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.ID, validation.Required),
		validation.Field(&s.Title, validation.Required),
		validation.Field(&s.FrontMatter),
	)
}

// Validate checks a front-matter field.
func (f FrontMatterField) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.ID, validation.Required),
	)
}

// Validate checks a top-level question.
func (q Question) Validate() error {
	nested := q.IsNested()
	return validation.ValidateStruct(&q,
		validation.Field(&q.QuestionID, validation.Required),
		validation.Field(&q.AnswerID, validation.When(!nested, validation.Required)),
		validation.Field(&q.Type, validation.Required, validation.By(knownQuestionType)),
		validation.Field(&q.Nest,
			validation.When(nested, validation.Required),
			validation.By(nestLevels),
			validation.Skip,
		),
		validation.Field(&q.NewEntryNoteType, validation.When(q.CreateNewEntry, validation.Required)),
		validation.Field(&q.NewEntryNoteSubtype, validation.When(q.CreateNewEntry, validation.Required)),
	)
}

func knownQuestionType(value any) error {
	s, _ := value.(string)
	for _, t := range questionTypes {
		if strings.EqualFold(s, t) {
			return nil
		}
	}
	return fmt.Errorf("must be one of %s", strings.Join(questionTypes, ", "))
}

// nestLevels checks the nest levels of a nested question. A level only
// needs an answerId; question id and type come from the enclosing question.
func nestLevels(value any) error {
	levels, ok := value.([]Question)
	if !ok {
		return errors.New("must be a list of questions")
	}
	errs := validation.Errors{}
	for i, nq := range levels {
		err := validation.ValidateStruct(&nq,
			validation.Field(&nq.AnswerID, validation.Required.Error("answerId is required on every nest level")),
			validation.Field(&nq.NewEntryNoteType, validation.When(nq.CreateNewEntry, validation.Required)),
			validation.Field(&nq.NewEntryNoteSubtype, validation.When(nq.CreateNewEntry, validation.Required)),
		)
		if err != nil {
			errs[strconv.Itoa(i)] = err
		}
	}
	return errs.Filter()
}
