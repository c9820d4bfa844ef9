package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/erazemk/prenos/internal/imaging"
	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/store"
)

// CatalogHandler handles the item catalog that line items reference.
type CatalogHandler struct {
	DB *sql.DB
}

type catalogRequest struct {
	Code     string          `json:"code"`
	Name     string          `json:"name"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// List handles GET /api/catalog.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListCatalogItems(r.Context(), h.DB)
	if err != nil {
		slog.Error("failed to list catalog", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to list catalog")
		return
	}
	if items == nil {
		items = []model.CatalogItem{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Create handles POST /api/catalog.
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req catalogRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.Code = strings.TrimSpace(req.Code)
	req.Name = strings.TrimSpace(req.Name)
	if req.Code == "" || req.Name == "" {
		jsonError(w, http.StatusBadRequest, "code and name required")
		return
	}
	if req.UnitCost.IsNegative() {
		jsonError(w, http.StatusBadRequest, "unit cost must not be negative")
		return
	}

	existing, err := store.GetCatalogItemByCode(r.Context(), h.DB, req.Code)
	if err != nil {
		slog.Error("failed to look up catalog item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create catalog item")
		return
	}
	if existing != nil {
		jsonError(w, http.StatusConflict, "item code already exists")
		return
	}

	item, err := store.CreateCatalogItem(r.Context(), h.DB, req.Code, req.Name, req.UnitCost)
	if err != nil {
		slog.Error("failed to create catalog item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to create catalog item")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("catalog item created", "user", claims.Username, "code", item.Code, "unit_cost", item.UnitCost.StringFixed(2))
	jsonResponse(w, http.StatusCreated, item)
}

// Get handles GET /api/catalog/{id}.
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, ok := h.lookup(w, r)
	if !ok {
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// Update handles PUT /api/catalog/{id}. The code is immutable.
func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	item, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req catalogRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		jsonError(w, http.StatusBadRequest, "name required")
		return
	}
	if req.UnitCost.IsNegative() {
		jsonError(w, http.StatusBadRequest, "unit cost must not be negative")
		return
	}

	if err := store.UpdateCatalogItem(r.Context(), h.DB, item.ID, req.Name, req.UnitCost); err != nil {
		slog.Error("failed to update catalog item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to update catalog item")
		return
	}

	updated, _ := store.GetCatalogItem(r.Context(), h.DB, item.ID)
	jsonResponse(w, http.StatusOK, updated)
}

// UploadImage handles PUT /api/catalog/{id}/image.
func (h *CatalogHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	item, ok := h.lookup(w, r)
	if !ok {
		return
	}

	img, err := imaging.Process(http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+1))
	if err != nil {
		status := http.StatusBadRequest
		var maxErr *http.MaxBytesError
		if errors.Is(err, imaging.ErrTooLarge) || errors.As(err, &maxErr) {
			status = http.StatusRequestEntityTooLarge
		}
		jsonError(w, status, err.Error())
		return
	}

	if err := store.SetCatalogItemImage(r.Context(), h.DB, item.ID, img.Data, img.MIME); err != nil {
		slog.Error("failed to store catalog image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to store image")
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("catalog image uploaded", "user", claims.Username, "code", item.Code, "width", img.Width, "height", img.Height)
	jsonResponse(w, http.StatusOK, map[string]any{"width": img.Width, "height": img.Height, "mime": img.MIME})
}

// GetImage handles GET /api/catalog/{id}/image. ?size=thumb returns a
// thumbnail.
func (h *CatalogHandler) GetImage(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return
	}

	data, mime, err := store.GetCatalogItemImage(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get catalog image", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get image")
		return
	}
	if len(data) == 0 {
		jsonError(w, http.StatusNotFound, "no image")
		return
	}

	if r.URL.Query().Get("size") == "thumb" {
		thumb, err := imaging.Thumbnail(data)
		if err != nil {
			slog.Error("failed to build thumbnail", "id", id, "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to build thumbnail")
			return
		}
		data, mime = thumb.Data, thumb.MIME
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "private, max-age=300")
	w.Write(data)
}

// lookup resolves the {id} path value, writing the error response itself
// when the item cannot be returned.
func (h *CatalogHandler) lookup(w http.ResponseWriter, r *http.Request) (*model.CatalogItem, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid item id")
		return nil, false
	}

	item, err := store.GetCatalogItem(r.Context(), h.DB, id)
	if err != nil {
		slog.Error("failed to get catalog item", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to get catalog item")
		return nil, false
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "catalog item not found")
		return nil, false
	}
	return item, true
}
