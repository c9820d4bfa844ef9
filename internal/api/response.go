package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/store"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("error encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// errorStatus maps domain errors to HTTP status codes.
// A stored row that fails to decode is a server fault, even though it may
// wrap model.ErrInvalid.
func errorStatus(err error) int {
	var rowErr store.RowError
	switch {
	case errors.As(err, &rowErr):
		return http.StatusInternalServerError
	case errors.Is(err, model.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidTransition), errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// serviceError writes err with its mapped status. Internal errors are logged
// and replaced by fallback so storage details do not leak.
func serviceError(w http.ResponseWriter, err error, fallback string) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		slog.Error(fallback, "error", err)
		jsonError(w, status, fallback)
		return
	}
	if errors.Is(err, store.ErrConflict) {
		jsonError(w, status, "transfer was changed by someone else, reload and try again")
		return
	}
	jsonError(w, status, err.Error())
}
