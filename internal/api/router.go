package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// idem, if non-nil, deduplicates requests carrying an Idempotency-Key.
func NewRouter(svc *Service, authEnabled bool, token string, sseHandler http.Handler, idem *Idempotency) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))
	if idem != nil {
		r.Use(idem.Middleware)
	}

	// Settings.
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.PutSettings)
	r.Post("/settings/pick-directory", h.PickDirectory)

	// Threads.
	r.Get("/threads", h.ListThreads)
	r.Put("/threads", h.SaveThreads)
	r.Post("/threads", h.CreateThread)
	r.Patch("/threads/{id}", h.RenameThread)
	r.Delete("/threads/{id}", h.DeleteThread)
	r.Post("/threads/{id}/items", h.AddItem)
	r.Delete("/threads/{id}/items/{pairID}", h.RemoveItem)
	r.Post("/threads/{id}/items/{pairID}/move", h.MoveItem)

	// Pairs.
	r.Get("/qa", h.ListPairs)
	r.Post("/qa", h.CreatePair)
	r.Get("/qa/{id}", h.GetPair)
	r.Patch("/qa/{id}", h.UpdatePair)
	r.Delete("/qa/{id}", h.DeletePair)

	// Search.
	r.Get("/search", h.Search)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
