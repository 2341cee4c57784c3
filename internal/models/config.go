// Package models defines the domain types for notewright: the note
// configuration (types, subtypes, questions), answers, and the hierarchical
// index.
package models

import "strings"

// Question types.
const (
	QuestionInput           = "inputPrompt"
	QuestionSuggester       = "tpsuggester"
	QuestionNestedSuggester = "nestedTpsuggester"
)

// FieldTypeLink renders a front-matter value as a wikilink.
const FieldTypeLink = "link"

// NoteConfig is the user-authored document configuration.
type NoteConfig struct {
	NoteTypes []NoteType `json:"noteTypes"`
	Questions []Question `json:"questions"`
}

// NoteType groups subtypes under a shared base front matter.
type NoteType struct {
	ID                  string        `json:"id"`
	Subtypes            []NoteSubtype `json:"subtypes"`
	BaseFrontMatterPath string        `json:"baseFrontMatterPath,omitempty"`
}

// NoteSubtype describes the shape of one kind of document.
type NoteSubtype struct {
	ID          string             `json:"id"`
	Folder      string             `json:"folder"`
	Template    string             `json:"template,omitempty"`
	FrontMatter []FrontMatterField `json:"frontMatter"`
	Questions   []string           `json:"questions"`
	Title       string             `json:"title"`
}

// FrontMatterField is a front-matter key with a placeholder value template.
type FrontMatterField struct {
	ID    string `json:"id"`
	Value string `json:"value"`
	Type  string `json:"type,omitempty"`
}

// Question is one configured prompt.
type Question struct {
	QuestionID          string     `json:"questionId"`
	AnswerID            string     `json:"answerId"`
	Type                string     `json:"type"`
	Prompt              string     `json:"prompt"`
	FrontMatterType     string     `json:"frontMatterType,omitempty"`
	IndexName           string     `json:"indexName,omitempty"`
	Nest                []Question `json:"nest,omitempty"`
	Choices             []string   `json:"choices,omitempty"`
	AllowManualEntry    bool       `json:"allowManualEntry,omitempty"`
	MultipleSelections  bool       `json:"multipleSelections,omitempty"`
	CreateNewEntry      bool       `json:"createNewEntry,omitempty"`
	NewEntryNoteType    string     `json:"newEntryNoteType,omitempty"`
	NewEntryNoteSubtype string     `json:"newEntryNoteSubtype,omitempty"`
	Parents             []string   `json:"parents,omitempty"`
}

// IsNested reports whether q is a nested suggester.
func (q Question) IsNested() bool {
	return strings.EqualFold(q.Type, QuestionNestedSuggester)
}

// FindType returns the note type with the given id.
func (c *NoteConfig) FindType(id string) (*NoteType, bool) {
	for i := range c.NoteTypes {
		if c.NoteTypes[i].ID == id {
			return &c.NoteTypes[i], true
		}
	}
	return nil, false
}

// FindSubtype returns the subtype with the given id.
func (t *NoteType) FindSubtype(id string) (*NoteSubtype, bool) {
	for i := range t.Subtypes {
		if t.Subtypes[i].ID == id {
			return &t.Subtypes[i], true
		}
	}
	return nil, false
}

// TypeIDs lists the configured note type ids in order.
func (c *NoteConfig) TypeIDs() []string {
	ids := make([]string, len(c.NoteTypes))
	for i, t := range c.NoteTypes {
		ids[i] = t.ID
	}
	return ids
}

// SubtypeIDs lists the subtype ids of t in order.
func (t *NoteType) SubtypeIDs() []string {
	ids := make([]string, len(t.Subtypes))
	for i, s := range t.Subtypes {
		ids[i] = s.ID
	}
	return ids
}

// FindQuestion returns the question with the given question-id.
func (c *NoteConfig) FindQuestion(questionID string) (*Question, bool) {
	for i := range c.Questions {
		if c.Questions[i].QuestionID == questionID {
			return &c.Questions[i], true
		}
	}
	return nil, false
}

// FindQuestionForAnswer returns the question that produces answerID, either
// directly or through one of its nest levels.
func (c *NoteConfig) FindQuestionForAnswer(answerID string) (*Question, bool) {
	for i := range c.Questions {
		q := &c.Questions[i]
		if q.AnswerID == answerID && !q.IsNested() {
			return q, true
		}
		if q.IsNested() {
			for _, n := range q.Nest {
				if n.AnswerID == answerID {
					return q, true
				}
			}
		}
	}
	return nil, false
}
