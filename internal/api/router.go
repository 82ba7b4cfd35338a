package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ideacards/internal/ideaservice"
)

// NewRouter creates a chi router with all idea routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *ideaservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/ideas", func(r chi.Router) {
		r.Get("/random", h.Random)
		r.Get("/search", h.Search)
		r.Get("/suggest", h.Suggest)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Post("/{id}/status", h.UpdateStatus)
	})

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
