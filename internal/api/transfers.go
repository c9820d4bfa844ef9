package api

import (
	"bytes"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/prenos/internal/export"
	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/transfer"
)

// TransfersHandler serves the transfer list view, single transfers and
// their status actions.
type TransfersHandler struct {
	Service *transfer.Service
}

// parseFilter reads search, status and tab from the query string.
func parseFilter(r *http.Request) (transfer.Filter, error) {
	q := r.URL.Query()
	return transfer.ParseFilter(q.Get("search"), q.Get("status"), q.Get("tab"))
}

// List handles GET /api/transfers.
func (h *TransfersHandler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.Service.List(r.Context(), f)
	if err != nil {
		serviceError(w, err, "failed to list transfers")
		return
	}
	jsonResponse(w, http.StatusOK, view)
}

// Create handles POST /api/transfers.
func (h *TransfersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req transfer.CreateRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	created, err := h.Service.Create(r.Context(), req, claims.Username, &claims.UserID)
	if err != nil {
		serviceError(w, err, "failed to create transfer")
		return
	}

	w.Header().Set("Location", "/api/transfers/"+created.ID)
	jsonResponse(w, http.StatusCreated, created)
}

// Get handles GET /api/transfers/{id}.
func (h *TransfersHandler) Get(w http.ResponseWriter, r *http.Request) {
	t, err := h.Service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		serviceError(w, err, "failed to get transfer")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"transfer": t,
		"actions":  nonNilActions(model.AvailableActions(t.Status)),
	})
}

// Edit handles PUT /api/transfers/{id}. Only pending transfers can be edited.
func (h *TransfersHandler) Edit(w http.ResponseWriter, r *http.Request) {
	var req transfer.EditRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := r.PathValue("id")
	updated, err := h.Service.Edit(r.Context(), id, req)
	if err != nil {
		serviceError(w, err, "failed to edit transfer")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("transfer edited via api", "user", claims.Username, "id", id)
	jsonResponse(w, http.StatusOK, updated)
}

// Action handles POST /api/transfers/{id}/{action}. Approving and cancelling
// need at least the manager role.
func (h *TransfersHandler) Action(w http.ResponseWriter, r *http.Request) {
	action, err := model.ParseAction(r.PathValue("action"))
	if err != nil || action == model.ActionEdit {
		jsonError(w, http.StatusNotFound, "unknown action")
		return
	}

	claims := GetClaims(r.Context())
	if !CanPerform(claims.Role, action) {
		jsonError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	id := r.PathValue("id")
	updated, err := h.Service.Transition(r.Context(), id, action)
	if err != nil {
		serviceError(w, err, "failed to update transfer")
		return
	}

	slog.Info("transfer action", "user", claims.Username, "id", id, "action", action, "status", updated.Status)
	jsonResponse(w, http.StatusOK, map[string]any{
		"transfer": updated,
		"actions":  nonNilActions(model.AvailableActions(updated.Status)),
	})
}

// Export handles GET /api/transfers/export. It serializes the filtered list.
func (h *TransfersHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}
	f, err := parseFilter(r)
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	view, err := h.Service.List(r.Context(), f)
	if err != nil {
		serviceError(w, err, "failed to list transfers")
		return
	}

	WriteExport(w, format, view.Transfers, time.Now())
}

// WriteExport renders transfers in format as a download. The body is built
// in memory first so a failure can still produce an error status.
func WriteExport(w http.ResponseWriter, format export.Format, transfers []model.Transfer, now time.Time) {
	var buf bytes.Buffer
	if err := export.Write(&buf, format, transfers); err != nil {
		slog.Error("failed to export transfers", "format", format, "error", err)
		http.Error(w, "failed to export transfers", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+export.Filename(format, now)+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// CanPerform reports whether role may invoke action. Approve and cancel are
// manager decisions; moving stock is open to everyone.
func CanPerform(role string, action model.Action) bool {
	switch action {
	case model.ActionApprove, model.ActionCancel:
		return model.RoleAtLeast(role, model.RoleManager)
	}
	return model.RoleAtLeast(role, model.RoleUser)
}

func nonNilActions(actions []model.Action) []model.Action {
	if actions == nil {
		return []model.Action{}
	}
	return actions
}
