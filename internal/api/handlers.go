package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/starford/worklog/internal/apperr"
	"github.com/starford/worklog/internal/models"
	"github.com/starford/worklog/internal/worklog"
)

// Service is the part of worklog.Service the API exposes.
type Service interface {
	CheckLogs(ctx context.Context, headless bool) (*models.CheckReport, error)
	PublishNote(ctx context.Context, req worklog.PublishRequest) (*worklog.PublishResponse, error)
	PublishMissing(ctx context.Context, headless bool) ([]models.SyncResult, error)
	GenerateDraft(ctx context.Context, req worklog.GenerateRequest) (*models.Draft, error)
	ListDrafts(dir string) ([]models.DraftMetadata, error)
	ReadDraft(path string) (*models.Draft, error)
	DeleteDraft(path string) error
	SyncHistory(limit, offset int) ([]models.SyncResult, int, error)
	SetSetting(key, value string) error
	CloseBrowser()
	Options() worklog.Options
}

var _ Service = (*worklog.Service)(nil)

// Handler holds API route handlers.
type Handler struct {
	svc Service
}

// NewHandler creates a new Handler.
func NewHandler(svc Service) *Handler {
	return &Handler{svc: svc}
}

// draftPath extracts the draft path from the URL (everything after /api/drafts/).
// Supports encoded slashes from OpenAPI clients (e.g. daily%2F2026-01-28.md).
func draftPath(r *http.Request) string {
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

// headless resolves an optional headless flag against the configured default.
func (h *Handler) headless(v *bool) bool {
	if v != nil {
		return *v
	}
	return h.svc.Options().Headless
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body", apperr.ErrInvalidInput)
	}
	return nil
}

// CheckLogs handles GET /api/logs/check.
//
//	@Summary		Report workdays of the current week without a log
//	@Tags			logs
//	@Produce		json
//	@Param			headless	query		bool	false	"Run the browser headless"
//	@Success		200			{object}	models.CheckReport
//	@Failure		412			{object}	errResponse
//	@Failure		502			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/logs/check [get]
func (h *Handler) CheckLogs(w http.ResponseWriter, r *http.Request) {
	var headless *bool
	if raw := r.URL.Query().Get("headless"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("headless must be a boolean"))
			return
		}
		headless = &v
	}
	report, err := h.svc.CheckLogs(r.Context(), h.headless(headless))
	if err != nil {
		writeError(w, "check logs", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// PublishNote handles POST /api/notes/publish.
//
//	@Summary		Publish one work log
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PublishNoteRequest	true	"Note to publish"
//	@Success		200		{object}	worklog.PublishResponse
//	@Failure		400		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/publish [post]
func (h *Handler) PublishNote(w http.ResponseWriter, r *http.Request) {
	var req PublishNoteRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, "publish note", err)
		return
	}
	resp, err := h.svc.PublishNote(r.Context(), worklog.PublishRequest{
		Content:      req.Content,
		Title:        req.Title,
		Date:         req.Date,
		Headless:     h.headless(req.Headless),
		SilentNotify: req.SilentNotify,
	})
	if err != nil {
		writeError(w, "publish note", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// PublishMissing handles POST /api/notes/publish-missing.
//
//	@Summary		Generate and publish every missing log of the current week
//	@Tags			notes
//	@Accept			json
//	@Produce		json
//	@Param			body	body		PublishMissingRequest	false	"Browser options"
//	@Success		200		{object}	PublishMissingResponse
//	@Failure		412		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/publish-missing [post]
func (h *Handler) PublishMissing(w http.ResponseWriter, r *http.Request) {
	var req PublishMissingRequest
	if r.ContentLength != 0 {
		if err := decode(w, r, &req); err != nil {
			writeError(w, "publish missing", err)
			return
		}
	}
	results, err := h.svc.PublishMissing(r.Context(), h.headless(req.Headless))
	if err != nil {
		writeError(w, "publish missing", err)
		return
	}
	resp := PublishMissingResponse{Results: results, Total: len(results)}
	if resp.Results == nil {
		resp.Results = []models.SyncResult{}
	}
	for _, res := range results {
		if res.Success {
			resp.Succeeded++
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// GenerateDraft handles POST /api/drafts/generate.
//
//	@Summary		Generate a daily or weekly draft from git history
//	@Tags			drafts
//	@Accept			json
//	@Produce		json
//	@Param			body	body		GenerateDraftRequest	true	"What to generate"
//	@Success		201		{object}	models.Draft
//	@Failure		409		{object}	errResponse
//	@Failure		412		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/drafts/generate [post]
func (h *Handler) GenerateDraft(w http.ResponseWriter, r *http.Request) {
	var req GenerateDraftRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, "generate draft", err)
		return
	}
	draft, err := h.svc.GenerateDraft(r.Context(), worklog.GenerateRequest{
		Kind:      req.Kind,
		Date:      req.Date,
		Overwrite: req.Overwrite,
	})
	if err != nil {
		writeError(w, "generate draft", err)
		return
	}
	writeJSON(w, http.StatusCreated, draft)
}

// ListDrafts handles GET /api/drafts.
//
//	@Summary		List stored drafts, newest first
//	@Tags			drafts
//	@Produce		json
//	@Param			dir	query		string	false	"Subdirectory"	Enums(daily, weekly)
//	@Success		200	{object}	DraftListResponse
//	@Security		BearerAuth
//	@Router			/drafts [get]
func (h *Handler) ListDrafts(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListDrafts(r.URL.Query().Get("dir"))
	if err != nil {
		writeError(w, "list drafts", err)
		return
	}
	if items == nil {
		items = []models.DraftMetadata{}
	}
	writeJSON(w, http.StatusOK, DraftListResponse{Drafts: items})
}

// GetDraft handles GET /api/drafts/*.
//
//	@Summary		Get a single draft by path
//	@Tags			drafts
//	@Produce		json
//	@Param			path	path		string	true	"Draft path"
//	@Success		200		{object}	models.Draft
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/drafts/{path} [get]
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	path := draftPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	draft, err := h.svc.ReadDraft(path)
	if err != nil {
		writeError(w, "read draft", err)
		return
	}
	writeJSON(w, http.StatusOK, draft)
}

// DeleteDraft handles DELETE /api/drafts/*.
//
//	@Summary		Delete a draft
//	@Tags			drafts
//	@Param			path	path	string	true	"Draft path"
//	@Success		204
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/drafts/{path} [delete]
func (h *Handler) DeleteDraft(w http.ResponseWriter, r *http.Request) {
	path := draftPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	if err := h.svc.DeleteDraft(path); err != nil {
		writeError(w, "delete draft", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListSyncs handles GET /api/syncs.
//
//	@Summary		List publish history, newest first
//	@Tags			syncs
//	@Produce		json
//	@Param			limit	query		int	false	"Page size"
//	@Param			offset	query		int	false	"Page offset"
//	@Success		200		{object}	SyncListResponse
//	@Security		BearerAuth
//	@Router			/syncs [get]
func (h *Handler) ListSyncs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.SyncHistory(limit, offset)
	if err != nil {
		writeError(w, "list syncs", err)
		return
	}
	if items == nil {
		items = []models.SyncResult{}
	}
	writeJSON(w, http.StatusOK, SyncListResponse{Syncs: items, Total: total})
}

// PutSetting handles PUT /api/settings/{key}. An empty value removes the
// override.
//
//	@Summary		Override a configuration value
//	@Tags			settings
//	@Accept			json
//	@Param			key		path	string			true	"Setting key"
//	@Param			body	body	SettingRequest	true	"New value"
//	@Success		204
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings/{key} [put]
func (h *Handler) PutSetting(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req SettingRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, "put setting", err)
		return
	}
	if err := h.svc.SetSetting(key, req.Value); err != nil {
		writeError(w, "put setting", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CloseBrowser handles POST /api/browser/close.
//
//	@Summary		Shut the automation browser down
//	@Tags			browser
//	@Produce		json
//	@Success		200	{object}	map[string]bool
//	@Security		BearerAuth
//	@Router			/browser/close [post]
func (h *Handler) CloseBrowser(w http.ResponseWriter, _ *http.Request) {
	h.svc.CloseBrowser()
	writeJSON(w, http.StatusOK, map[string]bool{"closed": true})
}
