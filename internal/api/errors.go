package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/munzgen/munzgen-agent/internal/genai"
	"github.com/munzgen/munzgen-agent/internal/library"
	"github.com/munzgen/munzgen-agent/internal/media"
	"github.com/munzgen/munzgen-agent/internal/project"
	"github.com/munzgen/munzgen-agent/internal/router"
	"github.com/munzgen/munzgen-agent/internal/settings"
	"github.com/munzgen/munzgen-agent/internal/studio"
	"github.com/munzgen/munzgen-agent/internal/templates"
)

// errorStatus maps a service error onto an HTTP status and error code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, router.ErrInvalidRequest),
		errors.Is(err, library.ErrInvalidInput),
		errors.Is(err, library.ErrInvalidTab),
		errors.Is(err, project.ErrInvalidKind),
		errors.Is(err, studio.ErrEmptyIdea),
		errors.Is(err, studio.ErrNoScript),
		errors.Is(err, settings.ErrUnknownProvider),
		errors.Is(err, media.ErrEmpty):
		return http.StatusBadRequest, "BAD_REQUEST"
	case errors.Is(err, project.ErrPanelMinimized),
		errors.Is(err, project.ErrNotResizing):
		return http.StatusConflict, "INVALID_STATE"
	case errors.Is(err, project.ErrTrackNotFound),
		errors.Is(err, library.ErrNotFound),
		errors.Is(err, templates.ErrNotFound),
		errors.Is(err, media.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, studio.ErrKeyRequired):
		return http.StatusPreconditionRequired, "API_KEY_REQUIRED"
	case errors.Is(err, studio.ErrBusy):
		return http.StatusConflict, "BUSY"
	case errors.Is(err, media.ErrStoreFull):
		return http.StatusInsufficientStorage, "STORE_FULL"
	case genai.IsCredentialError(err):
		return http.StatusBadGateway, "SESSION_EXPIRED"
	}
	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return http.StatusBadGateway, "UPSTREAM_ERROR"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

// writeServiceError writes err with its mapped status. Internal errors are
// logged and reported without detail.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status, code := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "error", err)
		WriteError(w, status, "internal error", code)
		return
	}
	WriteError(w, status, err.Error(), code)
}

// decodeJSON reads a JSON body into v, writing a 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid request body", "BAD_REQUEST")
		return false
	}
	return true
}
