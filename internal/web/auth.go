package web

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/prenos/internal/api"
	"github.com/erazemk/prenos/internal/auth"
	"github.com/erazemk/prenos/internal/store"
)

// LoginPage handles GET /login.
func (s *Server) LoginPage(w http.ResponseWriter, r *http.Request) {
	s.Templates.Render(w, "login.html", &PageData{Title: "Prijava"})
}

// LoginSubmit handles POST /login.
func (s *Server) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if s.Limiter != nil && !s.Limiter.Allow(api.ClientIP(r)) {
		slog.Warn("login rate limited", "ip", api.ClientIP(r))
		s.Templates.RenderStatus(w, http.StatusTooManyRequests, "login.html", &PageData{
			Title: "Prijava",
			Error: "Preveč poskusov prijave. Poskusite znova čez minuto.",
		})
		return
	}

	username := r.FormValue("username")
	password := r.FormValue("password")

	if username == "" || password == "" {
		s.Templates.Render(w, "login.html", &PageData{
			Title: "Prijava",
			Error: "Vnesite uporabniško ime in geslo.",
		})
		return
	}

	user, err := store.GetUserByUsername(r.Context(), s.DB, username)
	if err != nil || user == nil || user.DeletedAt != nil {
		s.Templates.Render(w, "login.html", &PageData{
			Title: "Prijava",
			Error: "Napačno uporabniško ime ali geslo.",
		})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		slog.Warn("failed web login", "user", username, "ip", api.ClientIP(r))
		s.Templates.Render(w, "login.html", &PageData{
			Title: "Prijava",
			Error: "Napačno uporabniško ime ali geslo.",
		})
		return
	}

	token, err := auth.GenerateToken(s.JWTSecret, user.ID, user.Username, user.Role)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		s.Templates.Render(w, "login.html", &PageData{
			Title: "Prijava",
			Error: "Napaka pri prijavi.",
		})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(auth.TokenExpiry / time.Second),
	})

	slog.Info("user logged in", "user", user.Username)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Logout handles POST /logout. A valid session token is revoked so it cannot
// be replayed.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie("token"); err == nil && cookie.Value != "" {
		if claims, err := auth.ValidateToken(s.JWTSecret, cookie.Value); err == nil {
			if err := store.RevokeToken(r.Context(), s.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
				slog.Error("failed to revoke token", "error", err)
			} else {
				slog.Info("user logged out", "user", claims.Username)
			}
		}
	}

	clearAuthCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
