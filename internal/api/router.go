package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Get("/logs/check", h.CheckLogs)

	r.Post("/notes/publish", h.PublishNote)
	r.Post("/notes/publish-missing", h.PublishMissing)

	r.Post("/drafts/generate", h.GenerateDraft)
	r.Get("/drafts", h.ListDrafts)
	r.Get("/drafts/*", h.GetDraft)
	r.Delete("/drafts/*", h.DeleteDraft)

	r.Get("/syncs", h.ListSyncs)
	r.Put("/settings/{key}", h.PutSetting)
	r.Post("/browser/close", h.CloseBrowser)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
