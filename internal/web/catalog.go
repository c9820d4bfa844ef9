package web

import (
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

// CatalogPage handles GET /catalog.
func (s *Server) CatalogPage(w http.ResponseWriter, r *http.Request) {
	items, err := store.ListCatalogItems(r.Context(), s.DB)
	if err != nil {
		slog.Error("failed to list catalog", "error", err)
	}

	page := s.page(r, "Katalog")
	page.Error = popFlash(w, r)
	s.Templates.Render(w, "catalog.html", &struct {
		PageData
		Items []model.CatalogItem
	}{
		PageData: page,
		Items:    items,
	})
}

// CatalogCreateSubmit handles POST /catalog.
func (s *Server) CatalogCreateSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	if !model.RoleAtLeast(claims.Role, model.RoleManager) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	code := strings.TrimSpace(r.FormValue("code"))
	name := strings.TrimSpace(r.FormValue("name"))
	cost, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(r.FormValue("unit_cost")), ",", "."))
	if code == "" || name == "" || err != nil || cost.IsNegative() {
		setFlash(w, "Vnesite šifro, naziv in nenegativno ceno.")
		http.Redirect(w, r, "/catalog", http.StatusSeeOther)
		return
	}

	if _, err := store.CreateCatalogItem(r.Context(), s.DB, code, name, cost); err != nil {
		slog.Error("failed to create catalog item", "error", err)
		setFlash(w, "Artikel s šifro "+code+" že obstaja.")
	} else {
		slog.Info("catalog item created", "user", claims.Username, "code", code, "name", name)
	}
	http.Redirect(w, r, "/catalog", http.StatusSeeOther)
}

// CatalogImageSubmit handles POST /catalog/{id}/image.
func (s *Server) CatalogImageSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	if !model.RoleAtLeast(claims.Role, model.RoleManager) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadSize+(1<<20))
	if err := r.ParseMultipartForm(imaging.MaxUploadSize); err != nil {
		setFlash(w, "Slika je prevelika.")
		http.Redirect(w, r, "/catalog", http.StatusSeeOther)
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		http.Error(w, "image required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	img, err := imaging.Process(file)
	if err != nil {
		msg := "Slika ni v podprtem formatu (JPEG ali PNG)."
		if errors.Is(err, imaging.ErrTooLarge) {
			msg = "Slika je prevelika."
		}
		setFlash(w, msg)
		http.Redirect(w, r, "/catalog", http.StatusSeeOther)
		return
	}

	if err := store.SetCatalogItemImage(r.Context(), s.DB, id, img.Data, img.MIME); err != nil {
		slog.Error("failed to save image", "error", err)
		http.Error(w, "failed to save image", http.StatusInternalServerError)
		return
	}

	slog.Info("catalog image uploaded", "user", claims.Username, "id", id)
	http.Redirect(w, r, "/catalog", http.StatusSeeOther)
}

// CatalogImageGet handles GET /catalog/{id}/image (web route, cookie-authenticated).
// ?size=thumb returns the list thumbnail.
func (s *Server) CatalogImageGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	data, mime, err := store.GetCatalogItemImage(r.Context(), s.DB, id)
	if err != nil {
		slog.Error("failed to get image", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if len(data) == 0 {
		http.NotFound(w, r)
		return
	}

	if r.URL.Query().Get("size") == "thumb" {
		thumb, err := imaging.Thumbnail(data)
		if err != nil {
			slog.Error("failed to build thumbnail", "id", id, "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		data, mime = thumb.Data, thumb.MIME
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", "inline")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := w.Write(data); err != nil {
		slog.Error("failed to write image response", "error", err)
	}
}
