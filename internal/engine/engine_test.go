package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notewright/internal/answers"
	"github.com/starford/notewright/internal/apperr"
	"github.com/starford/notewright/internal/index"
	"github.com/starford/notewright/internal/models"
	"github.com/starford/notewright/internal/prompt"
)

func placesStore(t *testing.T) *index.Store {
	t.Helper()
	g := models.NewGlobalIndex()
	g.Indices["country"] = &models.Index{
		Nested:   true,
		Children: []string{"city"},
		Entries: map[string]models.IndexEntry{
			"France": {Metadata: models.EntryMetadata{Parents: []string{}}},
			"Italy":  {Metadata: models.EntryMetadata{Parents: []string{}}},
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
	s, err := index.Open(context.Background(), index.NewMemoryPersister(g))
	require.NoError(t, err)
	return s
}

func whereQuestion() models.Question {
	return models.Question{
		QuestionID: "where",
		Type:       models.QuestionNestedSuggester,
		IndexName:  "country",
		Nest: []models.Question{
			{AnswerID: "country", Prompt: "Country?", AllowManualEntry: true},
			{AnswerID: "city", Prompt: "City in {{country}}?", AllowManualEntry: true},
		},
	}
}

func TestInputPrompt(t *testing.T) {
	script := prompt.NewScript("Hello")
	e := New(placesStore(t), script, nil)

	res, err := e.Resolve(context.Background(), models.Question{
		QuestionID: "q1", AnswerID: "q1", Type: "inputPrompt", Prompt: "Title?",
	}, nil)
	require.NoError(t, err)

	a, ok := res.Answers.Get("q1")
	require.True(t, ok)
	assert.Equal(t, models.Scalar("Hello"), a.Value)
	assert.Equal(t, models.QuestionInput, a.Metadata.QuestionType)
	assert.False(t, a.Metadata.Indexed)
	assert.Nil(t, a.Metadata.Level)
	assert.Nil(t, a.Metadata.ParentAnswerID)
}

func TestTypeDispatchIsCaseInsensitive(t *testing.T) {
	e := New(placesStore(t), prompt.NewScript("x"), nil)
	_, err := e.Resolve(context.Background(), models.Question{QuestionID: "q", AnswerID: "q", Type: "INPUTPROMPT"}, nil)
	assert.NoError(t, err)
}

func TestUnknownTypeIsConfigError(t *testing.T) {
	e := New(placesStore(t), prompt.NewScript(), nil)
	_, err := e.Resolve(context.Background(), models.Question{QuestionID: "q", AnswerID: "q", Type: "slider"}, nil)

	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.True(t, errors.Is(err, apperr.ErrInvalidConfig))
}

func TestExistingAnswerShortCircuits(t *testing.T) {
	script := prompt.NewScript()
	e := New(placesStore(t), script, nil)
	given := answers.New()
	existing := models.Answer{Value: models.Scalar("France")}
	given.Put("country", existing)

	for _, typ := range []string{models.QuestionInput, models.QuestionSuggester} {
		res, err := e.Resolve(context.Background(), models.Question{
			QuestionID: "c", AnswerID: "country", Type: typ, IndexName: "country",
		}, given)
		require.NoError(t, err)
		got, _ := res.Answers.Get("country")
		assert.Equal(t, existing, got)
	}
	assert.Empty(t, script.Asked(), "no prompt expected")
}

func TestSuggesterFromIndex(t *testing.T) {
	script := prompt.NewScript("Italy")
	e := New(placesStore(t), script, nil)

	res, err := e.Resolve(context.Background(), models.Question{
		QuestionID: "c", AnswerID: "country", Type: "tpsuggester", IndexName: "country", Prompt: "Country?",
	}, nil)
	require.NoError(t, err)

	a, _ := res.Answers.Get("country")
	assert.Equal(t, models.Scalar("Italy"), a.Value)
	assert.True(t, a.Metadata.Indexed)
	require.NotNil(t, a.Metadata.Level)
	assert.Equal(t, 0, *a.Metadata.Level)
	assert.Equal(t, []string{"France", "Italy"}, script.Asked()[0].Options)
}

func TestSuggesterLiteralChoicesMultiSelect(t *testing.T) {
	script := prompt.NewScript("b", "a", "b", prompt.DoneOption)
	e := New(placesStore(t), script, nil)

	res, err := e.Resolve(context.Background(), models.Question{
		QuestionID: "tags", AnswerID: "tags", Type: "tpsuggester",
		Choices: []string{"a", "b"}, MultipleSelections: true,
	}, nil)
	require.NoError(t, err)

	a, _ := res.Answers.Get("tags")
	assert.Equal(t, models.ScalarList{"b", "a", "b"}, a.Value)
	assert.False(t, a.Metadata.Indexed)
	assert.Equal(t, []string{"a", "b", prompt.DoneOption}, script.Asked()[0].Options)
}

func TestNewEntryWritesIndex(t *testing.T) {
	store := placesStore(t)
	script := prompt.NewScript(prompt.NewEntryOption, "Spain")
	e := New(store, script, nil)

	res, err := e.Resolve(context.Background(), models.Question{
		QuestionID: "c", AnswerID: "country", Type: "tpsuggester", IndexName: "country", AllowManualEntry: true,
	}, nil)
	require.NoError(t, err)

	a, _ := res.Answers.Get("country")
	assert.Equal(t, models.Scalar("Spain"), a.Value)
	assert.Contains(t, store.EntryNames("country", ""), "Spain")
	assert.Empty(t, res.Spawns)
}

func TestNewEntryEmptyNameIsIgnored(t *testing.T) {
	script := prompt.NewScript(prompt.NewEntryOption, "  ", "France")
	e := New(placesStore(t), script, nil)

	res, err := e.Resolve(context.Background(), models.Question{
		QuestionID: "c", AnswerID: "country", Type: "tpsuggester", IndexName: "country", AllowManualEntry: true,
	}, nil)
	require.NoError(t, err)
	a, _ := res.Answers.Get("country")
	assert.Equal(t, models.Scalar("France"), a.Value)
}

func TestNewEntrySpawnsDocumentCreation(t *testing.T) {
	store := placesStore(t)
	script := prompt.NewScript(prompt.NewEntryOption, "Spain")
	e := New(store, script, nil)
	given := answers.New()
	given.Put("title", models.Answer{Value: models.Scalar("Trip")})

	res, err := e.Resolve(context.Background(), models.Question{
		QuestionID: "c", AnswerID: "country", Type: "tpsuggester", IndexName: "country",
		AllowManualEntry: true, CreateNewEntry: true,
		NewEntryNoteType: "place", NewEntryNoteSubtype: "country",
	}, given)
	require.NoError(t, err)

	require.Len(t, res.Spawns, 1)
	sp := res.Spawns[0]
	assert.Equal(t, "Spain", sp.EntryName)
	assert.Equal(t, "place", sp.NoteType)
	assert.Equal(t, "country", sp.NoteSubtype)
	seeded, ok := sp.Seed.Get("country")
	require.True(t, ok)
	assert.Equal(t, models.Scalar("Spain"), seeded.Value)
	assert.True(t, sp.Seed.Has("title"))
	assert.False(t, given.Has("country"), "caller's answers must not change")
}

func multiCountryQuestion() models.Question {
	return models.Question{
		QuestionID: "c", AnswerID: "countries", Type: "tpsuggester", IndexName: "country",
		AllowManualEntry: true, MultipleSelections: true, CreateNewEntry: true,
		NewEntryNoteType: "place", NewEntryNoteSubtype: "country",
	}
}

func TestMultiSelectSpawnsAfterDone(t *testing.T) {
	store := placesStore(t)
	script := prompt.NewScript(prompt.NewEntryOption, "Spain", "France", prompt.DoneOption)
	e := New(store, script, nil)

	res, err := e.Resolve(context.Background(), multiCountryQuestion(), nil)
	require.NoError(t, err)

	assert.Len(t, script.Asked(), 4, "picks continue before the new entry document is created")
	require.Len(t, res.Spawns, 1)
	assert.Equal(t, "Spain", res.Spawns[0].EntryName)
	a, _ := res.Answers.Get("countries")
	assert.Equal(t, models.ScalarList{"Spain", "France"}, a.Value)
}

func TestMultiSelectCancelDropsPendingSpawn(t *testing.T) {
	store := placesStore(t)
	script := prompt.NewScript(prompt.NewEntryOption, "Spain", prompt.CancelToken)
	e := New(store, script, nil)

	res, err := e.Resolve(context.Background(), multiCountryQuestion(), nil)
	require.ErrorIs(t, err, apperr.ErrCancelled)
	assert.Empty(t, res.Spawns)
	assert.Contains(t, store.EntryNames("country", ""), "Spain", "index write is kept")
}

func TestNewEntryWithoutIndexDoesNotSpawn(t *testing.T) {
	script := prompt.NewScript(prompt.NewEntryOption, "custom")
	e := New(placesStore(t), script, nil)

	res, err := e.Resolve(context.Background(), models.Question{
		QuestionID: "k", AnswerID: "kind", Type: "tpsuggester", Choices: []string{"a"},
		AllowManualEntry: true, CreateNewEntry: true, NewEntryNoteType: "x", NewEntryNoteSubtype: "y",
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Spawns)
	a, _ := res.Answers.Get("kind")
	assert.Equal(t, models.Scalar("custom"), a.Value)
}

func TestNoChoicesIsConfigError(t *testing.T) {
	e := New(placesStore(t), prompt.NewScript(), nil)
	_, err := e.Resolve(context.Background(), models.Question{
		QuestionID: "e", AnswerID: "e", Type: "tpsuggester", IndexName: "empty",
	}, nil)
	assert.ErrorIs(t, err, apperr.ErrInvalidConfig)
}

func TestNestedResolvesInOrderFilteredByParent(t *testing.T) {
	script := prompt.NewScript("Italy", "Rome")
	e := New(placesStore(t), script, nil)

	res, err := e.Resolve(context.Background(), whereQuestion(), nil)
	require.NoError(t, err)

	asked := script.Asked()
	require.Len(t, asked, 2)
	assert.Equal(t, "Country?", asked[0].Header)
	assert.Equal(t, "City in Italy?", asked[1].Header)
	assert.Equal(t, []string{"Rome", prompt.NewEntryOption}, asked[1].Options)

	assert.Equal(t, []string{"country", "city"}, res.Answers.IDs())
	city, _ := res.Answers.Get("city")
	assert.Equal(t, models.Scalar("Rome"), city.Value)
	assert.Equal(t, models.QuestionNestedSuggester, city.Metadata.QuestionType)
	assert.Equal(t, "city", city.Metadata.IndexName)
	require.NotNil(t, city.Metadata.ParentAnswerID)
	assert.Equal(t, "Italy", *city.Metadata.ParentAnswerID)
	assert.Equal(t, 1, *city.Metadata.Level)
}

func TestNestedCancelAtSecondLevel(t *testing.T) {
	script := prompt.NewScript("France", prompt.CancelToken)
	e := New(placesStore(t), script, nil)

	res, err := e.Resolve(context.Background(), whereQuestion(), nil)
	assert.ErrorIs(t, err, prompt.ErrCancelled)
	assert.Nil(t, res.Answers)
}

func TestNestedNewEntryLinksParent(t *testing.T) {
	store := placesStore(t)
	script := prompt.NewScript("France", prompt.NewEntryOption, "Paris")
	e := New(store, script, nil)

	_, err := e.Resolve(context.Background(), whereQuestion(), nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Lyon", "Paris"}, store.EntryNames("city", "France"))
	france := store.Entries("country", "")["France"]
	assert.Contains(t, france.Metadata.Children, "Paris")
}

func TestNestedCancelKeepsEarlierIndexWrites(t *testing.T) {
	store := placesStore(t)
	script := prompt.NewScript(prompt.NewEntryOption, "Spain", prompt.CancelToken)
	e := New(store, script, nil)

	_, err := e.Resolve(context.Background(), whereQuestion(), nil)
	require.ErrorIs(t, err, prompt.ErrCancelled)
	assert.Contains(t, store.EntryNames("country", ""), "Spain")
}

func TestNestedExistingLevelSkipsPrompt(t *testing.T) {
	script := prompt.NewScript("Lyon")
	e := New(placesStore(t), script, nil)
	given := answers.New()
	given.Put("country", models.Answer{Value: models.Scalar("France")})

	res, err := e.Resolve(context.Background(), whereQuestion(), given)
	require.NoError(t, err)
	require.Len(t, script.Asked(), 1)
	assert.Equal(t, []string{"Lyon", prompt.NewEntryOption}, script.Asked()[0].Options)
	city, _ := res.Answers.Get("city")
	assert.Equal(t, "city", city.Metadata.IndexName)
}

func TestNestedAggregateAnswer(t *testing.T) {
	q := whereQuestion()
	q.AnswerID = "location"
	e := New(placesStore(t), prompt.NewScript("France", "Lyon"), nil)

	res, err := e.Resolve(context.Background(), q, nil)
	require.NoError(t, err)
	loc, ok := res.Answers.Get("location")
	require.True(t, ok)
	assert.Equal(t, models.KindNested, loc.Kind())
	assert.Equal(t, "France/Lyon", loc.String())
}

func TestNestedLevelWithoutAnswerID(t *testing.T) {
	q := whereQuestion()
	q.Nest[1].AnswerID = ""
	e := New(placesStore(t), prompt.NewScript("France"), nil)
	_, err := e.Resolve(context.Background(), q, nil)
	var cfgErr *ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}
