package index

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/starford/notewright/internal/models"
)

func placesIndex() models.GlobalIndex {
	g := models.NewGlobalIndex()
	g.Indices["country"] = &models.Index{
		Nested:   true,
		Level:    0,
		Children: []string{"city"},
		Entries: map[string]models.IndexEntry{
			"France": {Metadata: models.EntryMetadata{Level: 0, Parents: []string{}}},
			"Italy":  {Metadata: models.EntryMetadata{Level: 0, Parents: []string{}}},
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

func testStore(t *testing.T, g models.GlobalIndex) (*Store, *MemoryPersister) {
	t.Helper()
	p := NewMemoryPersister(g)
	s, err := Open(context.Background(), p)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s, p
}

func TestEntriesFilterByParent(t *testing.T) {
	s, _ := testStore(t, placesIndex())

	got := s.EntryNames("city", "France")
	if !slices.Equal(got, []string{"Lyon"}) {
		t.Errorf("EntryNames(city, France) = %v", got)
	}
	if all := s.EntryNames("city", ""); !slices.Equal(all, []string{"Lyon", "Rome"}) {
		t.Errorf("EntryNames(city) = %v", all)
	}
	if n := len(s.Entries("missing", "")); n != 0 {
		t.Errorf("unknown index returned %d entries", n)
	}
}

func TestEntriesReturnsCopy(t *testing.T) {
	s, _ := testStore(t, placesIndex())
	e := s.Entries("city", "")
	lyon := e["Lyon"]
	lyon.Metadata.Parents[0] = "Mutated"

	if !s.Entries("city", "")["Lyon"].Metadata.HasParent("France") {
		t.Error("caller mutation leaked into the store")
	}
}

func TestConfigUnknownIndex(t *testing.T) {
	s, _ := testStore(t, placesIndex())
	cfg := s.Config("nope")
	if cfg.Level != 0 || cfg.Nested || len(cfg.Parents) != 0 {
		t.Errorf("Config(nope) = %+v", cfg)
	}
	if c := s.Config("city"); c.Level != 1 || c.ParentIndex() != "country" {
		t.Errorf("Config(city) = %+v", c)
	}
}

func TestUpsertRepairsBackLinks(t *testing.T) {
	s, p := testStore(t, placesIndex())
	ctx := context.Background()

	err := s.Upsert(ctx, "city", map[string]models.IndexEntry{"Paris": {}}, WithParent("France"))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	paris := s.Entries("city", "")["Paris"]
	if paris.Metadata.Level != 1 {
		t.Errorf("Paris level = %d, want 1", paris.Metadata.Level)
	}
	if !slices.Equal(paris.Metadata.Parents, []string{"France"}) {
		t.Errorf("Paris parents = %v", paris.Metadata.Parents)
	}
	france := s.Entries("country", "")["France"]
	if !slices.Contains(france.Metadata.Children, "Paris") {
		t.Errorf("France children = %v, want Paris", france.Metadata.Children)
	}
	if p.Saves() != 1 {
		t.Errorf("saves = %d, want 1", p.Saves())
	}

	persisted, _ := p.Load(ctx)
	if _, ok := persisted.Indices["city"].Entries["Paris"]; !ok {
		t.Error("Paris not persisted")
	}
}

func TestUpsertIsIdempotent(t *testing.T) {
	s, _ := testStore(t, placesIndex())
	ctx := context.Background()
	for range 2 {
		if err := s.Upsert(ctx, "city", map[string]models.IndexEntry{"Paris": {}}, WithParent("France")); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	france := s.Entries("country", "")["France"]
	count := 0
	for _, c := range france.Metadata.Children {
		if c == "Paris" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Paris appears %d times in France children", count)
	}
}

func TestUpsertKeepsExistingChildren(t *testing.T) {
	s, _ := testStore(t, placesIndex())
	ctx := context.Background()
	if err := s.Upsert(ctx, "city", map[string]models.IndexEntry{"Paris": {}}, WithParent("France")); err != nil {
		t.Fatal(err)
	}
	if err := s.Upsert(ctx, "country", map[string]models.IndexEntry{"France": {}}); err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(s.Entries("country", "")["France"].Metadata.Children, "Paris") {
		t.Error("overwriting France dropped its children")
	}
}

func TestUpsertCreatesIndex(t *testing.T) {
	s, _ := testStore(t, models.GlobalIndex{})
	ctx := context.Background()
	if err := s.Upsert(ctx, "author", map[string]models.IndexEntry{"Le Guin": {}}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	cfg := s.Config("author")
	if cfg.Level != 0 || cfg.Nested {
		t.Errorf("new index config = %+v", cfg)
	}
	e := s.Entries("author", "")["Le Guin"]
	if e.Metadata.Parents == nil || len(e.Metadata.Parents) != 0 {
		t.Errorf("parents = %#v, want empty list", e.Metadata.Parents)
	}
}

func TestUpsertParentInSameIndex(t *testing.T) {
	g := models.NewGlobalIndex()
	g.Indices["topic"] = &models.Index{Entries: map[string]models.IndexEntry{
		"Science": {Metadata: models.EntryMetadata{Parents: []string{}}},
	}}
	s, _ := testStore(t, g)
	if err := s.Upsert(context.Background(), "topic", map[string]models.IndexEntry{"Physics": {}}, WithParent("Science")); err != nil {
		t.Fatal(err)
	}
	if !slices.Contains(s.Entries("topic", "")["Science"].Metadata.Children, "Physics") {
		t.Error("same-index parent not linked")
	}
}

func TestUpsertMissingParentIsSkipped(t *testing.T) {
	s, _ := testStore(t, placesIndex())
	err := s.Upsert(context.Background(), "city", map[string]models.IndexEntry{"Atlantis": {}}, WithParent("Nowhere"))
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if _, ok := s.Entries("city", "Nowhere")["Atlantis"]; !ok {
		t.Error("entry not written")
	}
}

type failingPersister struct {
	*MemoryPersister
	err error
}

func (f failingPersister) Save(context.Context, models.GlobalIndex) error { return f.err }

func TestUpsertSaveFailureLeavesStateUnchanged(t *testing.T) {
	boom := errors.New("disk full")
	p := failingPersister{MemoryPersister: NewMemoryPersister(placesIndex()), err: boom}
	s, err := Open(context.Background(), p)
	if err != nil {
		t.Fatal(err)
	}
	err = s.Upsert(context.Background(), "city", map[string]models.IndexEntry{"Paris": {}}, WithParent("France"))
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if _, ok := s.Entries("city", "")["Paris"]; ok {
		t.Error("failed upsert is visible")
	}
	if slices.Contains(s.Entries("country", "")["France"].Metadata.Children, "Paris") {
		t.Error("failed upsert changed parent children")
	}
}

func TestObserversSeeCommittedState(t *testing.T) {
	s, _ := testStore(t, placesIndex())
	var got []Event
	var seen bool
	s.OnUpdate(func(ev Event) {
		got = append(got, ev)
		_, seen = s.Entries("city", "")["Paris"]
	})
	if err := s.Upsert(context.Background(), "city", map[string]models.IndexEntry{"Paris": {}}, WithParent("France")); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Index != "city" || !slices.Equal(got[0].Entries, []string{"Paris"}) {
		t.Errorf("events = %+v", got)
	}
	if !seen {
		t.Error("observer could not read the new entry")
	}
}

func TestConfigureKeepsEntries(t *testing.T) {
	s, _ := testStore(t, placesIndex())
	err := s.Configure(context.Background(), "city", models.Index{Nested: true, Level: 2, Parents: []string{"region"}})
	if err != nil {
		t.Fatal(err)
	}
	if c := s.Config("city"); c.Level != 2 || c.ParentIndex() != "region" {
		t.Errorf("Config = %+v", c)
	}
	if len(s.Entries("city", "")) != 2 {
		t.Error("Configure dropped entries")
	}
}

func TestReloadDetectsChanges(t *testing.T) {
	s, p := testStore(t, placesIndex())
	ctx := context.Background()

	changed, err := s.Reload(ctx)
	if err != nil || changed {
		t.Fatalf("Reload unchanged = %v, %v", changed, err)
	}

	g := placesIndex()
	g.Indices["city"].Entries["Milan"] = models.IndexEntry{Metadata: models.EntryMetadata{Level: 1, Parents: []string{"Italy"}}}
	_ = p.Save(ctx, g)

	changed, err = s.Reload(ctx)
	if err != nil || !changed {
		t.Fatalf("Reload changed = %v, %v", changed, err)
	}
	if _, ok := s.Entries("city", "Italy")["Milan"]; !ok {
		t.Error("reloaded entry missing")
	}
}

func TestConcurrentUpserts(t *testing.T) {
	s, _ := testStore(t, placesIndex())
	ctx := context.Background()
	names := []string{"Paris", "Nice", "Lille", "Brest", "Metz", "Caen"}

	var wg sync.WaitGroup
	for _, n := range names {
		wg.Add(1)
		go func(n string) {
			defer wg.Done()
			if err := s.Upsert(ctx, "city", map[string]models.IndexEntry{n: {}}, WithParent("France")); err != nil {
				t.Errorf("Upsert %s: %v", n, err)
			}
		}(n)
	}
	wg.Wait()

	children := s.Entries("country", "")["France"].Metadata.Children
	for _, n := range names {
		if !slices.Contains(children, n) {
			t.Errorf("France children missing %s: %v", n, children)
		}
	}
}
