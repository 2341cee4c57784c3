package mcpserver

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/notewright/internal/index"
	"github.com/starford/notewright/internal/noteservice"
	"github.com/starford/notewright/internal/testutil"
)

func testServer(t *testing.T) (*Server, *index.Store) {
	t.Helper()
	store, _ := testutil.TestStore(t, testutil.PlacesIndex())
	_, vault := testutil.TestVault(t, map[string]string{
		"places/Italy/Rome.md": "---\ncountry: \"[[Italy]]\"\n---\n# Rome\n",
		"memos/Hello.md":       "# Hello\n",
	})
	svc := noteservice.NewService(testutil.SampleConfig(), store, vault)
	return New(svc, "test"), store
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process call helper; dispatch to the handlers.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_note_types":
		result, err = srv.listNoteTypes(ctx, req)
	case "list_indices":
		result, err = srv.listIndices(ctx, req)
	case "get_index_entries":
		result, err = srv.getIndexEntries(ctx, req)
	case "add_index_entry":
		result, err = srv.addIndexEntry(ctx, req)
	case "list_documents":
		result, err = srv.listDocuments(ctx, req)
	case "read_document":
		result, err = srv.readDocument(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestListNoteTypes(t *testing.T) {
	srv, _ := testServer(t)
	var types []noteservice.NoteTypeSummary
	if err := json.Unmarshal([]byte(resultText(callTool(t, srv, "list_note_types", nil))), &types); err != nil {
		t.Fatal(err)
	}
	if len(types) != 2 || types[1].Subtypes[0].ID != "city" {
		t.Errorf("types = %+v", types)
	}
}

func TestGetIndexEntriesWithParent(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "get_index_entries", map[string]any{"index": "city", "parent": "Italy"})
	var entries []noteservice.EntryItem
	if err := json.Unmarshal([]byte(resultText(r)), &entries); err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name != "Rome" {
		t.Errorf("entries = %+v", entries)
	}

	r = callTool(t, srv, "get_index_entries", map[string]any{"index": "nope"})
	if !r.IsError || !strings.HasPrefix(resultText(r), "not found") {
		t.Errorf("unknown index = %q", resultText(r))
	}

	r = callTool(t, srv, "get_index_entries", map[string]any{})
	if !r.IsError {
		t.Error("expected error without index argument")
	}
}

func TestAddIndexEntry(t *testing.T) {
	srv, store := testServer(t)

	r := callTool(t, srv, "add_index_entry", map[string]any{"index": "city", "name": "Paris", "parent": "France"})
	if r.IsError {
		t.Fatalf("add = %q", resultText(r))
	}
	if got := store.EntryNames("city", "France"); len(got) != 2 || got[1] != "Paris" {
		t.Errorf("France cities = %v", got)
	}

	r = callTool(t, srv, "list_indices", nil)
	if !strings.Contains(resultText(r), `"name": "city"`) {
		t.Errorf("indices = %q", resultText(r))
	}
}

func TestListAndReadDocuments(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "list_documents", map[string]any{})
	if got := resultText(r); got != "memos/Hello.md\nplaces/Italy/Rome.md" {
		t.Errorf("list = %q", got)
	}

	r = callTool(t, srv, "read_document", map[string]any{"path": "places/Italy/Rome.md"})
	var doc noteservice.DocumentDetail
	if err := json.Unmarshal([]byte(resultText(r)), &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Title != "Rome" || doc.FrontMatter["country"] != "[[Italy]]" {
		t.Errorf("doc = %+v", doc)
	}

	r = callTool(t, srv, "read_document", map[string]any{"path": "nope.md"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
}

func TestNoteConfigResource(t *testing.T) {
	srv, _ := testServer(t)
	contents, err := srv.readNoteConfig(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("contents = %T", contents[0])
	}
	if tc.URI != NoteConfigURI || !strings.Contains(tc.Text, `"noteTypes"`) {
		t.Errorf("resource = %+v", tc)
	}
}
