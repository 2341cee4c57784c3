package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notewright/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// documentPath extracts the document path from the URL (everything after
// /documents/). Encoded slashes are accepted.
func documentPath(r *http.Request) string {
	raw := strings.TrimPrefix(chi.URLParam(r, "*"), "/")
	if raw == "" {
		return ""
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListTypes handles GET /types.
//
//	@Summary	List note types and subtypes
//	@Tags		types
//	@Produce	json
//	@Success	200	{object}	NoteTypesResponse
//	@Security	BearerAuth
//	@Router		/types [get]
func (h *Handler) ListTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, NoteTypesResponse{Types: h.svc.NoteTypes(r.Context())})
}

// ListIndices handles GET /indices.
//
//	@Summary	List indices
//	@Tags		indices
//	@Produce	json
//	@Success	200	{object}	IndicesResponse
//	@Security	BearerAuth
//	@Router		/indices [get]
func (h *Handler) ListIndices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, IndicesResponse{Indices: h.svc.Indices(r.Context())})
}

// GetIndex handles GET /indices/{name}.
//
//	@Summary	Get one index
//	@Tags		indices
//	@Produce	json
//	@Param		name	path		string	true	"Index name"
//	@Success	200		{object}	noteservice.IndexSummary
//	@Failure	404		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/indices/{name} [get]
func (h *Handler) GetIndex(w http.ResponseWriter, r *http.Request) {
	ix, err := h.svc.Index(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, "get index", err)
		return
	}
	writeJSON(w, http.StatusOK, ix)
}

// ConfigureIndex handles PUT /indices/{name}.
//
//	@Summary	Set the hierarchy of an index, creating it when missing
//	@Tags		indices
//	@Accept		json
//	@Produce	json
//	@Param		name	path		string					true	"Index name"
//	@Param		body	body		ConfigureIndexRequest	true	"Hierarchy"
//	@Success	200		{object}	noteservice.IndexSummary
//	@Failure	400		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/indices/{name} [put]
func (h *Handler) ConfigureIndex(w http.ResponseWriter, r *http.Request) {
	var req ConfigureIndexRequest
	if !decodeBody(w, r, &req) {
		return
	}
	ix, err := h.svc.ConfigureIndex(r.Context(), chi.URLParam(r, "name"), noteservice.IndexConfig{
		Nested:   req.Nested,
		Level:    req.Level,
		Parents:  req.Parents,
		Children: req.Children,
	})
	if err != nil {
		writeError(w, "configure index", err)
		return
	}
	writeJSON(w, http.StatusOK, ix)
}

// ListEntries handles GET /indices/{name}/entries.
//
//	@Summary	List the entries of an index
//	@Tags		indices
//	@Produce	json
//	@Param		name	path		string	true	"Index name"
//	@Param		parent	query		string	false	"Only entries under this parent"
//	@Success	200		{object}	EntriesResponse
//	@Failure	404		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/indices/{name}/entries [get]
func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	parent := r.URL.Query().Get("parent")
	entries, err := h.svc.Entries(r.Context(), name, parent)
	if err != nil {
		writeError(w, "list entries", err)
		return
	}
	writeJSON(w, http.StatusOK, EntriesResponse{Index: name, Parent: parent, Entries: entries})
}

// AddEntry handles POST /indices/{name}/entries.
//
//	@Summary	Add an entry to an index
//	@Tags		indices
//	@Accept		json
//	@Produce	json
//	@Param		name	path		string			true	"Index name"
//	@Param		body	body		AddEntryRequest	true	"Entry"
//	@Success	201		{object}	noteservice.EntryItem
//	@Failure	400		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/indices/{name}/entries [post]
func (h *Handler) AddEntry(w http.ResponseWriter, r *http.Request) {
	var req AddEntryRequest
	if !decodeBody(w, r, &req) {
		return
	}
	item, err := h.svc.AddEntry(r.Context(), chi.URLParam(r, "name"), req.Name, req.Parent)
	if err != nil {
		writeError(w, "add entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// ListDocuments handles GET /documents.
//
//	@Summary	List vault documents
//	@Tags		documents
//	@Produce	json
//	@Param		folder	query		string	false	"Only documents under this folder"
//	@Success	200		{object}	DocumentListResponse
//	@Security	BearerAuth
//	@Router		/documents [get]
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.svc.ListDocuments(r.Context(), r.URL.Query().Get("folder"))
	if err != nil {
		writeError(w, "list documents", err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: docs, Total: len(docs)})
}

// GetDocument handles GET /documents/*.
//
//	@Summary	Get a single document by path
//	@Tags		documents
//	@Produce	json
//	@Param		path	path		string	true	"Document path"
//	@Success	200		{object}	noteservice.DocumentDetail
//	@Failure	404		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/documents/{path} [get]
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	path := documentPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	doc, err := h.svc.GetDocument(r.Context(), path)
	if err != nil {
		writeError(w, "get document", err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}
