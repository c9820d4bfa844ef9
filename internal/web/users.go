package web

import (
	"log/slog"
	"net/http"
	"strconv"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/store"
)

// UsersPage handles GET /users (admin only).
func (s *Server) UsersPage(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	if !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	users, err := store.ListUsers(r.Context(), s.DB)
	if err != nil {
		slog.Error("failed to list users", "error", err)
	}

	page := s.page(r, "Uporabniki")
	page.Error = popFlash(w, r)
	s.Templates.Render(w, "users.html", &struct {
		PageData
		Users []model.User
		Roles []string
	}{
		PageData: page,
		Users:    users,
		Roles:    []string{model.RoleUser, model.RoleManager, model.RoleAdmin},
	})
}

// UserCreateSubmit handles POST /users (admin only).
func (s *Server) UserCreateSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	if !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")
	role := r.FormValue("role")

	if username == "" || !model.ValidRole(role) {
		setFlash(w, "Vnesite uporabniško ime in vlogo.")
		http.Redirect(w, r, "/users", http.StatusSeeOther)
		return
	}
	if err := model.ValidatePassword(password); err != nil {
		setFlash(w, "Geslo mora imeti vsaj 8 znakov.")
		http.Redirect(w, r, "/users", http.StatusSeeOther)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "failed to hash password", http.StatusInternalServerError)
		return
	}

	if _, err := store.CreateUser(r.Context(), s.DB, username, string(hash), role); err != nil {
		slog.Error("failed to create user", "error", err)
		setFlash(w, "Uporabnik "+username+" že obstaja.")
	} else {
		slog.Info("user created", "admin", claims.Username, "user", username, "role", role)
	}
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

// UserResetPasswordSubmit handles POST /users/{id}/password (admin only).
func (s *Server) UserResetPasswordSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	if !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Redirect(w, r, "/users", http.StatusSeeOther)
		return
	}

	newPassword := r.FormValue("new_password")
	if err := model.ValidatePassword(newPassword); err != nil {
		setFlash(w, "Geslo mora imeti vsaj 8 znakov.")
		http.Redirect(w, r, "/users", http.StatusSeeOther)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "failed to hash password", http.StatusInternalServerError)
		return
	}

	if err := store.UpdateUserPassword(r.Context(), s.DB, id, string(hash)); err != nil {
		slog.Error("failed to reset password", "error", err)
		setFlash(w, "Ponastavitev gesla ni uspela.")
	} else {
		slog.Info("user password reset", "admin", claims.Username, "id", id)
	}
	http.Redirect(w, r, "/users", http.StatusSeeOther)
}

// SettingsPage handles GET /settings.
func (s *Server) SettingsPage(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	s.Templates.Render(w, "settings.html", &PageData{
		Title: "Nastavitve",
		User:  claims,
	})
}

// SettingsSubmit handles POST /settings (change own password).
func (s *Server) SettingsSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	currentPassword := r.FormValue("current_password")
	newPassword := r.FormValue("new_password")

	if currentPassword == "" || newPassword == "" {
		s.Templates.Render(w, "settings.html", &PageData{
			Title: "Nastavitve",
			User:  claims,
			Error: "Vnesite trenutno in novo geslo.",
		})
		return
	}
	if err := model.ValidatePassword(newPassword); err != nil {
		s.Templates.Render(w, "settings.html", &PageData{
			Title: "Nastavitve",
			User:  claims,
			Error: "Novo geslo mora imeti vsaj 8 znakov.",
		})
		return
	}

	user, err := store.GetUser(r.Context(), s.DB, claims.UserID)
	if err != nil || user == nil {
		s.Templates.Render(w, "settings.html", &PageData{
			Title: "Nastavitve",
			User:  claims,
			Error: "Napaka pri pridobivanju uporabnika.",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		s.Templates.Render(w, "settings.html", &PageData{
			Title: "Nastavitve",
			User:  claims,
			Error: "Trenutno geslo ni pravilno.",
		})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		s.Templates.Render(w, "settings.html", &PageData{
			Title: "Nastavitve",
			User:  claims,
			Error: "Napaka pri shranjevanju gesla.",
		})
		return
	}

	if err := store.UpdateUserPassword(r.Context(), s.DB, claims.UserID, string(hash)); err != nil {
		s.Templates.Render(w, "settings.html", &PageData{
			Title: "Nastavitve",
			User:  claims,
			Error: "Napaka pri posodabljanju gesla.",
		})
		return
	}

	slog.Info("user changed own password", "user", claims.Username)
	s.Templates.Render(w, "settings.html", &PageData{
		Title:   "Nastavitve",
		User:    claims,
		Success: "Geslo uspešno spremenjeno.",
	})
}
