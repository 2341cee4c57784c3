// Package testutil provides shared test helpers for vaults, index stores and
// a sample note configuration.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/notewright/internal/index"
	"github.com/starford/notewright/internal/models"
	"github.com/starford/notewright/internal/storage"
)

// TestDB creates a temporary SQLite index database that is automatically
// cleaned up.
func TestDB(t *testing.T) *index.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "notewright-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := index.OpenDB(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestVault creates a temporary vault directory holding files.
func TestVault(t *testing.T, files map[string]string) (string, *storage.FS) {
	t.Helper()
	vaultDir := t.TempDir()
	for p, content := range files {
		abs := filepath.Join(vaultDir, filepath.FromSlash(p))
		if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(abs, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	store, err := storage.NewFS(vaultDir)
	if err != nil {
		t.Fatal(err)
	}
	return vaultDir, store
}

// TestStore opens an in-memory index store seeded with g.
func TestStore(t *testing.T, g models.GlobalIndex) (*index.Store, *index.MemoryPersister) {
	t.Helper()
	p := index.NewMemoryPersister(g)
	s, err := index.Open(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	return s, p
}

// PlacesIndex returns a two-level country → city index.
func PlacesIndex() models.GlobalIndex {
	g := models.NewGlobalIndex()
	g.Indices["country"] = &models.Index{
		Nested:   true,
		Children: []string{"city"},
		Entries: map[string]models.IndexEntry{
			"France": {Metadata: models.EntryMetadata{Parents: []string{}, Children: []string{"Lyon"}}},
			"Italy":  {Metadata: models.EntryMetadata{Parents: []string{}, Children: []string{"Rome"}}},
		},
	}
	g.Indices["city"] = &models.Index{
		Nested:  true,
		Level:   1,
		Parents: []string{"country"},
		Entries: map[string]models.IndexEntry{
			"Lyon": {Metadata: models.EntryMetadata{Level: 1, Parents: []string{"France"}}},
			"Rome": {Metadata: models.EntryMetadata{Level: 1, Parents: []string{"Italy"}}},
		},
	}
	return g
}

// VaultFiles are the templates referenced by SampleConfig.
var VaultFiles = map[string]string{
	"meta/place.md":        "---\nkind: place\n---\n",
	"templates/city.md":    "# {{city}}\n\nA city in {{country}}.\n",
	"templates/country.md": "# {{country}}\n",
}

// SampleConfig returns a note configuration exercising every question type:
//
//	note/memo    q1 (input)
//	note/trip    title (input), destination (suggester over "country" that
//	             creates place/country documents), tags (multi-select)
//	place/city   where (nested country → city)
//	place/country continent (literal choices)
func SampleConfig() *models.NoteConfig {
	return &models.NoteConfig{
		NoteTypes: []models.NoteType{
			{
				ID: "note",
				Subtypes: []models.NoteSubtype{
					{
						ID: "memo", Folder: "memos", Title: "{{q1}}",
						FrontMatter: []models.FrontMatterField{{ID: "title", Value: "{{q1}}"}},
						Questions:   []string{"q1"},
					},
					{
						ID: "trip", Folder: "trips", Title: "{{title}}",
						FrontMatter: []models.FrontMatterField{
							{ID: "destination", Value: "{{destination}}", Type: models.FieldTypeLink},
							{ID: "tags", Value: "{{tags}}"},
						},
						Questions: []string{"title", "destination", "tags"},
					},
				},
			},
			{
				ID:                  "place",
				BaseFrontMatterPath: "meta/place.md",
				Subtypes: []models.NoteSubtype{
					{
						ID: "city", Folder: "places/{{country}}", Title: "{{city}}", Template: "templates/city.md",
						FrontMatter: []models.FrontMatterField{{ID: "country", Value: "{{country}}", Type: models.FieldTypeLink}},
						Questions:   []string{"where"},
					},
					{
						ID: "country", Folder: "places", Title: "{{country}}", Template: "templates/country.md",
						FrontMatter: []models.FrontMatterField{{ID: "continent", Value: "{{continent}}"}},
						Questions:   []string{"continent"},
					},
				},
			},
		},
		Questions: []models.Question{
			{QuestionID: "q1", AnswerID: "q1", Type: models.QuestionInput, Prompt: "Title?"},
			{QuestionID: "title", AnswerID: "title", Type: models.QuestionInput, Prompt: "Trip name?"},
			{
				QuestionID: "destination", AnswerID: "destination", Type: models.QuestionSuggester,
				Prompt: "Where to?", IndexName: "country", AllowManualEntry: true,
				CreateNewEntry: true, NewEntryNoteType: "place", NewEntryNoteSubtype: "country",
			},
			{
				QuestionID: "tags", AnswerID: "tags", Type: models.QuestionSuggester,
				Prompt: "Tags?", Choices: []string{"beach", "city", "hiking"}, MultipleSelections: true,
			},
			{
				QuestionID: "where", Type: models.QuestionNestedSuggester, IndexName: "country",
				Nest: []models.Question{
					{AnswerID: "country", Prompt: "Country?", AllowManualEntry: true},
					{AnswerID: "city", Prompt: "City in {{country}}?", AllowManualEntry: true},
				},
			},
			{
				QuestionID: "continent", AnswerID: "continent", Type: models.QuestionSuggester,
				Prompt: "Continent of {{country}}?", Choices: []string{"Asia", "Europe"},
			},
		},
	}
}
