package internal

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/notewright/internal/document"
	"github.com/starford/notewright/internal/prompt"
	"github.com/starford/notewright/internal/testutil"
)

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Vault.Path = filepath.Join(dir, "vault")
	cfg.Data.Path = filepath.Join(dir, "data.json")
	cfg.Index.SQLitePath = filepath.Join(dir, "index.db")

	doc := document.New()
	doc.NoteConfig = *testutil.SampleConfig()
	doc.IndexConfig = testutil.PlacesIndex()
	require.NoError(t, doc.Save(cfg.Data.Path))

	for p, content := range testutil.VaultFiles {
		abs := filepath.Join(cfg.Vault.Path, filepath.FromSlash(p))
		require.NoError(t, os.MkdirAll(filepath.Dir(abs), 0o755))
		require.NoError(t, os.WriteFile(abs, []byte(content), 0o644))
	}
	return cfg
}

func newTestApp(t *testing.T, cfg *Config, replies ...string) (*App, *[]string) {
	t.Helper()
	var notices []string
	app, err := New(context.Background(),
		WithConfig(cfg),
		WithPrompter(prompt.NewScript(replies...)),
		WithNotifier(prompt.NotifierFunc(func(msg string) { notices = append(notices, msg) })),
		WithLogOutput(&bytes.Buffer{}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })
	return app, &notices
}

func TestCreatePersistsNewEntryInDocument(t *testing.T) {
	cfg := testConfig(t)
	app, notices := newTestApp(t, cfg,
		"note", "trip", "Summer", prompt.NewEntryOption, "Spain", "Europe", "hiking", prompt.DoneOption,
	)

	out, err := app.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "trips/Summer.md", out.Document.Path)
	assert.Equal(t, []string{"Created places/Spain.md"}, *notices)

	_, err = os.Stat(filepath.Join(cfg.Vault.Path, "places", "Spain.md"))
	require.NoError(t, err)

	doc, err := document.Load(cfg.Data.Path)
	require.NoError(t, err)
	assert.Contains(t, doc.IndexConfig.Indices["country"].Entries, "Spain")
	assert.Len(t, doc.NoteConfig.NoteTypes, 2, "note config must survive index saves")
}

func TestCreateCancelled(t *testing.T) {
	app, notices := newTestApp(t, testConfig(t), "note", prompt.CancelToken)

	_, err := app.Create(context.Background())
	assert.True(t, IsCancelled(err))
	assert.Equal(t, []string{"Document creation cancelled"}, *notices)
}

func TestCreateEntry(t *testing.T) {
	cfg := testConfig(t)
	app, _ := newTestApp(t, cfg, "Asia")

	out, err := app.CreateEntry(context.Background(), "Japan", "place", "country")
	require.NoError(t, err)
	data, err := os.ReadFile(filepath.Join(cfg.Vault.Path, filepath.FromSlash(out.Document.Path)))
	require.NoError(t, err)
	assert.Contains(t, string(data), `continent: "Asia"`)
}

func TestSQLiteBackendSeedsFromDocument(t *testing.T) {
	cfg := testConfig(t)
	cfg.Index.Backend = IndexBackendSQLite
	app, _ := newTestApp(t, cfg)

	assert.Equal(t, []string{"France", "Italy"}, app.Store().EntryNames("country", ""))

	_, err := app.Service().AddEntry(context.Background(), "country", "Spain", "")
	require.NoError(t, err)
	require.NoError(t, app.Close())

	doc, err := document.Load(cfg.Data.Path)
	require.NoError(t, err)
	assert.NotContains(t, doc.IndexConfig.Indices["country"].Entries, "Spain", "sqlite backend leaves the document alone")

	reopened, _ := newTestApp(t, cfg)
	assert.Contains(t, reopened.Store().EntryNames("country", ""), "Spain")
}

func TestNewRequiresConfig(t *testing.T) {
	_, err := New(context.Background())
	assert.Error(t, err)
}
