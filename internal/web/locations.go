package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/store"
)

// LocationsPage handles GET /locations.
func (s *Server) LocationsPage(w http.ResponseWriter, r *http.Request) {
	locations, err := store.ListLocations(r.Context(), s.DB, "")
	if err != nil {
		slog.Error("failed to list locations", "error", err)
	}

	page := s.page(r, "Lokacije")
	page.Error = popFlash(w, r)
	s.Templates.Render(w, "locations.html", &struct {
		PageData
		Locations []model.Location
	}{
		PageData:  page,
		Locations: locations,
	})
}

// LocationCreateSubmit handles POST /locations.
func (s *Server) LocationCreateSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	if !model.RoleAtLeast(claims.Role, model.RoleManager) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	kind := r.FormValue("kind")

	if name == "" || !model.ValidLocationKind(kind) {
		setFlash(w, "Vnesite ime in vrsto lokacije.")
		http.Redirect(w, r, "/locations", http.StatusSeeOther)
		return
	}

	if existing, _ := store.GetLocationByName(r.Context(), s.DB, name); existing != nil {
		setFlash(w, "Lokacija "+existing.Name+" že obstaja.")
		http.Redirect(w, r, "/locations", http.StatusSeeOther)
		return
	}

	if _, err := store.CreateLocation(r.Context(), s.DB, name, kind); err != nil {
		slog.Error("failed to create location", "error", err)
	} else {
		slog.Info("location created", "user", claims.Username, "location", name, "kind", kind)
	}
	http.Redirect(w, r, "/locations", http.StatusSeeOther)
}

// LocationDeleteSubmit handles POST /locations/{id}/delete. Locations with
// open transfers stay.
func (s *Server) LocationDeleteSubmit(w http.ResponseWriter, r *http.Request) {
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

	if err := store.DeleteLocation(r.Context(), s.DB, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		slog.Warn("location delete refused", "id", id, "error", err)
		setFlash(w, "Lokacije z odprtimi prenosi ni mogoče izbrisati.")
	} else {
		slog.Info("location deleted", "user", claims.Username, "id", id)
	}
	http.Redirect(w, r, "/locations", http.StatusSeeOther)
}
