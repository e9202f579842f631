package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/starford/worklog/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error string `json:"error" validate:"required"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// writeError maps domain errors to HTTP statuses. Browser flow failures
// carry their cause to the client; anything unrecognised is logged and
// reported as an internal error.
func writeError(w http.ResponseWriter, op string, err error) {
	var (
		launchErr *apperr.LaunchError
		authErr   *apperr.AuthenticationError
		editorErr *apperr.EditorUnreachableError
		pubErr    *apperr.PublishError
	)
	switch {
	case errors.Is(err, apperr.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrMissingCredentials), errors.Is(err, apperr.ErrNotConfigured):
		writeJSON(w, http.StatusPreconditionFailed, errorBody(err.Error()))
	case errors.As(err, &launchErr):
		writeJSON(w, http.StatusServiceUnavailable, errorBody(err.Error()))
	case errors.As(err, &authErr), errors.As(err, &editorErr), errors.As(err, &pubErr):
		writeJSON(w, http.StatusBadGateway, errorBody(err.Error()))
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, errorBody(err.Error()))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
