package web

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/prenos/internal/auth"
	"github.com/erazemk/prenos/internal/transfer"
	webembed "github.com/erazemk/prenos/web"
)

// NewRouter creates the web page router with all page routes registered.
func NewRouter(db *sql.DB, jwtSecret string, svc *transfer.Service, limiter *auth.LoginLimiter) (http.Handler, error) {
	templates, err := LoadTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		DB:        db,
		Templates: templates,
		JWTSecret: jwtSecret,
		Service:   svc,
		Limiter:   limiter,
	}

	mux := http.NewServeMux()
	cookieAuth := CookieAuthMiddleware(jwtSecret, db)

	// Static assets.
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.FS(webembed.StaticFS()))))

	// Public routes.
	mux.HandleFunc("GET /login", s.LoginPage)
	mux.HandleFunc("POST /login", s.LoginSubmit)
	mux.HandleFunc("POST /logout", s.Logout)

	// Authenticated routes.
	mux.Handle("GET /{$}", cookieAuth(http.HandlerFunc(s.Dashboard)))

	mux.Handle("GET /transfers", cookieAuth(http.HandlerFunc(s.TransfersPage)))
	mux.Handle("GET /transfers/export", cookieAuth(http.HandlerFunc(s.TransfersExport)))
	mux.Handle("GET /transfers/new", cookieAuth(http.HandlerFunc(s.TransferNewPage)))
	mux.Handle("POST /transfers/new", cookieAuth(http.HandlerFunc(s.TransferCreateSubmit)))
	mux.Handle("GET /transfers/{id}", cookieAuth(http.HandlerFunc(s.TransferDetailPage)))
	mux.Handle("GET /transfers/{id}/edit", cookieAuth(http.HandlerFunc(s.TransferEditPage)))
	mux.Handle("POST /transfers/{id}/edit", cookieAuth(http.HandlerFunc(s.TransferEditSubmit)))
	mux.Handle("POST /transfers/{id}/{action}", cookieAuth(http.HandlerFunc(s.TransferActionSubmit)))

	mux.Handle("GET /catalog", cookieAuth(http.HandlerFunc(s.CatalogPage)))
	mux.Handle("POST /catalog", cookieAuth(http.HandlerFunc(s.CatalogCreateSubmit)))
	mux.Handle("POST /catalog/{id}/image", cookieAuth(http.HandlerFunc(s.CatalogImageSubmit)))
	mux.Handle("GET /catalog/{id}/image", cookieAuth(http.HandlerFunc(s.CatalogImageGet)))

	mux.Handle("GET /locations", cookieAuth(http.HandlerFunc(s.LocationsPage)))
	mux.Handle("POST /locations", cookieAuth(http.HandlerFunc(s.LocationCreateSubmit)))
	mux.Handle("POST /locations/{id}/delete", cookieAuth(http.HandlerFunc(s.LocationDeleteSubmit)))

	mux.Handle("GET /users", cookieAuth(http.HandlerFunc(s.UsersPage)))
	mux.Handle("POST /users", cookieAuth(http.HandlerFunc(s.UserCreateSubmit)))
	mux.Handle("POST /users/{id}/password", cookieAuth(http.HandlerFunc(s.UserResetPasswordSubmit)))

	mux.Handle("GET /settings", cookieAuth(http.HandlerFunc(s.SettingsPage)))
	mux.Handle("POST /settings", cookieAuth(http.HandlerFunc(s.SettingsSubmit)))

	return mux, nil
}
