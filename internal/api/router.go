package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/notewright/internal/noteservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events behind the same auth.
func NewRouter(svc *noteservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/types", h.ListTypes)

	r.Route("/indices", func(r chi.Router) {
		r.Get("/", h.ListIndices)
		r.Get("/{name}", h.GetIndex)
		r.Put("/{name}", h.ConfigureIndex)
		r.Get("/{name}/entries", h.ListEntries)
		r.Post("/{name}/entries", h.AddEntry)
	})

	r.Get("/documents", h.ListDocuments)
	r.Get("/documents/*", h.GetDocument)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
