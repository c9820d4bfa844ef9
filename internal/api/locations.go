package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/store"
	"github.com/erazemk/prenos/internal/transfer"
)

// LocationsHandler handles the warehouse and store registry.
type LocationsHandler struct {
	DB      *sql.DB
	Service *transfer.Service
}

type locationRequest struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// List handles GET /api/locations.
func (h *LocationsHandler) List(w http.ResponseWriter, r *http.Request) {
	kind := r.URL.Query().Get("kind")
	if kind != "" && !model.ValidLocationKind(kind) {
		jsonError(w, http.StatusBadRequest, "kind must be 'warehouse' or 'store'")
		return
	}

	locations, err := store.ListLocations(r.Context(), h.DB, kind)
	if err != nil {
		slog.Error("failed to list locations", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list locations")
		return
	}
	if locations == nil {
		locations = []model.Location{}
	}
	jsonResponse(w, http.StatusOK, locations)
}

// Create handles POST /api/locations.
func (h *LocationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || req.Kind == "" {
		jsonError(w, http.StatusBadRequest, "name and kind required")
		return
	}
	if !model.ValidLocationKind(req.Kind) {
		jsonError(w, http.StatusBadRequest, "kind must be 'warehouse' or 'store'")
		return
	}

	existing, err := store.GetLocationByName(r.Context(), h.DB, req.Name)
	if err != nil {
		slog.Error("failed to look up location", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create location")
		return
	}
	if existing != nil {
		jsonError(w, http.StatusConflict, "location already exists")
		return
	}

	loc, err := store.CreateLocation(r.Context(), h.DB, req.Name, req.Kind)
	if err != nil {
		slog.Error("failed to create location", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create location")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("location created", "user", claims.Username, "location", loc.Name, "kind", loc.Kind)
	jsonResponse(w, http.StatusCreated, loc)
}

// Update handles PUT /api/locations/{id}. Only the name can change.
func (h *LocationsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid location id")
		return
	}

	var req locationRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}

	loc, err := store.GetLocation(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get location", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update location")
		return
	}
	if loc == nil || loc.DeletedAt != nil {
		jsonError(w, http.StatusNotFound, "location not found")
		return
	}

	if err := h.Service.RenameLocation(r.Context(), id, req.Name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "location not found")
			return
		}
		slog.Error("failed to update location", "error", err)
		jsonError(w, http.StatusConflict, "location name already in use")
		return
	}

	updated, _ := store.GetLocation(r.Context(), h.DB, id)
	claims := GetClaims(r.Context())
	slog.Info("location renamed", "user", claims.Username, "from", loc.Name, "to", req.Name)
	jsonResponse(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/locations/{id}.
func (h *LocationsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid location id")
		return
	}

	if err := store.DeleteLocation(r.Context(), h.DB, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "location not found")
			return
		}
		jsonError(w, http.StatusConflict, err.Error())
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("location deleted", "user", claims.Username, "id", id)
	jsonResponse(w, http.StatusOK, map[string]string{"message": "location deleted"})
}
