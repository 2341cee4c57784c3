package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/starford/notewright/internal/index"
	"github.com/starford/notewright/internal/noteservice"
	"github.com/starford/notewright/internal/sse"
	"github.com/starford/notewright/internal/testutil"
)

var vaultFiles = map[string]string{
	"places/Italy/Rome.md": "---\ncountry: \"[[Italy]]\"\n---\n# Rome\n",
	"memos/Hello.md":       "---\ntitle: \"Hello\"\n---\n",
}

// testEnv sets up an in-memory index store, a temp vault, service and
// router. An empty authToken disables auth.
func testEnv(t *testing.T, authToken string) (*index.Store, http.Handler) {
	t.Helper()
	store, _ := testutil.TestStore(t, testutil.PlacesIndex())
	_, vault := testutil.TestVault(t, vaultFiles)
	svc := noteservice.NewService(testutil.SampleConfig(), store, vault)
	return store, NewRouter(svc, authToken != "", authToken, nil)
}

func do(t *testing.T, router http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, target, rd)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestListTypes(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/types", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[NoteTypesResponse](t, w)
	if len(resp.Types) != 2 || resp.Types[0].ID != "note" {
		t.Errorf("types = %+v", resp.Types)
	}
}

func TestListAndGetIndices(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/indices", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	if got := decode[IndicesResponse](t, w); len(got.Indices) != 2 {
		t.Errorf("indices = %+v", got.Indices)
	}

	w = do(t, router, http.MethodGet, "/indices/city", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	ix := decode[noteservice.IndexSummary](t, w)
	if ix.Level != 1 || ix.Entries != 2 {
		t.Errorf("city = %+v", ix)
	}

	w = do(t, router, http.MethodGet, "/indices/nope", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown index = %d, want 404", w.Code)
	}
}

func TestListEntriesWithParent(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/indices/city/entries?parent=France", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	resp := decode[EntriesResponse](t, w)
	if len(resp.Entries) != 1 || resp.Entries[0].Name != "Lyon" {
		t.Errorf("entries = %+v", resp.Entries)
	}
}

func TestAddEntry(t *testing.T) {
	store, router := testEnv(t, "")

	w := do(t, router, http.MethodPost, "/indices/city/entries", AddEntryRequest{Name: "Milan", Parent: "Italy"})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if e, ok := store.Entries("country", "")["Italy"]; !ok || !slices.Contains(e.Metadata.Children, "Milan") {
		t.Errorf("Italy children = %+v", e.Metadata.Children)
	}

	w = do(t, router, http.MethodPost, "/indices/city/entries", AddEntryRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty name = %d, want 400", w.Code)
	}
}

func TestAddEntryInvalidJSON(t *testing.T) {
	_, router := testEnv(t, "")

	req := httptest.NewRequest(http.MethodPost, "/indices/city/entries", strings.NewReader("{"))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestConfigureIndex(t *testing.T) {
	store, router := testEnv(t, "")

	w := do(t, router, http.MethodPut, "/indices/district", ConfigureIndexRequest{Nested: true, Level: 2, Parents: []string{"city"}})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if cfg := store.Config("district"); cfg.Level != 2 || !cfg.Nested {
		t.Errorf("config = %+v", cfg)
	}

	w = do(t, router, http.MethodPut, "/indices/district", ConfigureIndexRequest{Level: -1})
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative level = %d, want 400", w.Code)
	}
}

func TestDocuments(t *testing.T) {
	_, router := testEnv(t, "")

	w := do(t, router, http.MethodGet, "/documents", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	if resp := decode[DocumentListResponse](t, w); resp.Total != 2 {
		t.Errorf("documents = %+v", resp.Documents)
	}

	w = do(t, router, http.MethodGet, "/documents?folder=places", nil)
	if resp := decode[DocumentListResponse](t, w); resp.Total != 1 {
		t.Errorf("filtered documents = %+v", resp.Documents)
	}

	w = do(t, router, http.MethodGet, "/documents/places%2FItaly%2FRome.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	doc := decode[noteservice.DocumentDetail](t, w)
	if doc.Title != "Rome" || len(doc.Links) != 1 || doc.Links[0] != "Italy" {
		t.Errorf("doc = %+v", doc)
	}

	w = do(t, router, http.MethodGet, "/documents/places/Paris.md", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("missing doc = %d, want 404", w.Code)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/types", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	w := do(t, router, http.MethodGet, "/types", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/types", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func testEnvWithSSE(t *testing.T, authEnabled bool, token string) (*index.Store, http.Handler) {
	t.Helper()
	broker := sse.NewBroker(sse.WithHeartbeat(0))
	t.Cleanup(broker.Close)

	store, _ := testutil.TestStore(t, testutil.PlacesIndex())
	store.OnUpdate(broker.IndexObserver())
	_, vault := testutil.TestVault(t, nil)
	svc := noteservice.NewService(testutil.SampleConfig(), store, vault)
	return store, NewRouter(svc, authEnabled, token, broker)
}

func TestSSEEvents_AuthProtected(t *testing.T) {
	_, router := testEnvWithSSE(t, true, "tok")

	w := do(t, router, http.MethodGet, "/events", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("events without token = %d, want 401", w.Code)
	}
}

func TestSSEEvents_StreamsIndexUpdates(t *testing.T) {
	store, router := testEnvWithSSE(t, false, "")

	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	done := make(chan struct{})
	go func() {
		router.ServeHTTP(w, req)
		close(done)
	}()
	time.Sleep(50 * time.Millisecond)

	if err := store.Upsert(context.Background(), "country", nil); err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	if !strings.Contains(w.Body.String(), "event: index.updated") {
		t.Errorf("body = %q", w.Body.String())
	}
}
