// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes notewright's indices, note types and documents over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/notewright/internal/apperr"
	"github.com/starford/notewright/internal/noteservice"
)

// Resource URIs.
const (
	NoteConfigURI     = "notewright://note-config"
	DocumentFormatURI = "notewright://document-format"
)

// Server wraps the MCP server with notewright tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all tools and resources registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"notewright",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_note_types",
		mcp.WithDescription("List the configured note types, their subtypes and the answer ids each subtype requires."),
	), s.listNoteTypes)

	s.mcp.AddTool(mcp.NewTool("list_indices",
		mcp.WithDescription("List every index with its hierarchy settings and entry count."),
	), s.listIndices)

	s.mcp.AddTool(mcp.NewTool("get_index_entries",
		mcp.WithDescription("List the entries of an index, optionally only those under a parent entry."),
		mcp.WithString("index", mcp.Required(), mcp.Description("Index name (e.g. country)")),
		mcp.WithString("parent", mcp.Description("Optional parent entry name")),
	), s.getIndexEntries)

	s.mcp.AddTool(mcp.NewTool("add_index_entry",
		mcp.WithDescription("Add an entry to an index, creating the index when missing. "+
			"With a parent the entry is linked under that parent entry."),
		mcp.WithString("index", mcp.Required(), mcp.Description("Index name")),
		mcp.WithString("name", mcp.Required(), mcp.Description("Entry name")),
		mcp.WithString("parent", mcp.Description("Optional parent entry name")),
	), s.addIndexEntry)

	s.mcp.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List vault documents, or those in a specific folder."),
		mcp.WithString("folder", mcp.Description("Optional folder to list (empty for all)")),
	), s.listDocuments)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read a vault document with its parsed front matter, links and tags."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. places/Rome.md)")),
	), s.readDocument)

	s.mcp.AddResource(
		mcp.NewResource(NoteConfigURI, "Note configuration",
			mcp.WithResourceDescription("Note types, subtypes and questions driving document creation."),
			mcp.WithMIMEType("application/json"),
		),
		s.readNoteConfig,
	)
	s.mcp.AddResource(
		mcp.NewResource(DocumentFormatURI, "Document format",
			mcp.WithResourceDescription("How generated documents are laid out."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readDocumentFormat,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError("not found: " + strings.TrimSuffix(err.Error(), ": "+apperr.ErrNotFound.Error()))
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) listNoteTypes(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.NoteTypes(ctx))
}

func (s *Server) listIndices(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.svc.Indices(ctx))
}

func (s *Server) getIndexEntries(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries, err := s.svc.Entries(ctx, name, req.GetString("parent", ""))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(entries)
}

func (s *Server) addIndexEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entry, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	item, err := s.svc.AddEntry(ctx, name, entry, req.GetString("parent", ""))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(item)
}

func (s *Server) listDocuments(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := s.svc.ListDocuments(ctx, req.GetString("folder", ""))
	if err != nil {
		return errorResult(err), nil
	}
	paths := make([]string, 0, len(docs))
	for _, d := range docs {
		paths = append(paths, d.Path)
	}
	return mcp.NewToolResultText(strings.Join(paths, "\n")), nil
}

func (s *Server) readDocument(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	doc, err := s.svc.GetDocument(ctx, path)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(doc)
}

func (s *Server) readNoteConfig(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	out, err := json.MarshalIndent(s.svc.NoteConfig(), "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      NoteConfigURI,
			MIMEType: "application/json",
			Text:     string(out),
		},
	}, nil
}

func (s *Server) readDocumentFormat(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      DocumentFormatURI,
			MIMEType: "text/markdown",
			Text:     DocumentFormat,
		},
	}, nil
}
