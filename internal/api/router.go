package api

import (
	"database/sql"
	"net/http"

	"github.com/erazemk/prenos/internal/auth"
	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/transfer"
)

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, svc *transfer.Service, limiter *auth.LoginLimiter) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret}
	usersHandler := &UsersHandler{DB: db}
	locationsHandler := &LocationsHandler{DB: db, Service: svc}
	catalogHandler := &CatalogHandler{DB: db}
	transfersHandler := &TransfersHandler{Service: svc}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	// Public: login, throttled per client.
	mux.Handle("POST /api/auth/login", RateLimit(limiter)(http.HandlerFunc(authHandler.Login)))

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))
	mux.Handle("GET /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Get))))
	mux.Handle("PUT /api/users/{id}/password", authMW(requireAdmin(http.HandlerFunc(usersHandler.ResetPassword))))
	mux.Handle("DELETE /api/users/{id}", authMW(requireAdmin(http.HandlerFunc(usersHandler.Delete))))

	// Locations: read (all roles), write (manager+).
	mux.Handle("GET /api/locations", authMW(http.HandlerFunc(locationsHandler.List)))
	mux.Handle("POST /api/locations", authMW(requireManager(http.HandlerFunc(locationsHandler.Create))))
	mux.Handle("PUT /api/locations/{id}", authMW(requireManager(http.HandlerFunc(locationsHandler.Update))))
	mux.Handle("DELETE /api/locations/{id}", authMW(requireManager(http.HandlerFunc(locationsHandler.Delete))))

	// Catalog: read (all roles), write (manager+).
	mux.Handle("GET /api/catalog", authMW(http.HandlerFunc(catalogHandler.List)))
	mux.Handle("POST /api/catalog", authMW(requireManager(http.HandlerFunc(catalogHandler.Create))))
	mux.Handle("GET /api/catalog/{id}", authMW(http.HandlerFunc(catalogHandler.Get)))
	mux.Handle("PUT /api/catalog/{id}", authMW(requireManager(http.HandlerFunc(catalogHandler.Update))))
	mux.Handle("PUT /api/catalog/{id}/image", authMW(requireManager(http.HandlerFunc(catalogHandler.UploadImage))))
	mux.Handle("GET /api/catalog/{id}/image", authMW(http.HandlerFunc(catalogHandler.GetImage)))

	// Transfers: all roles; approve and cancel are checked per action.
	mux.Handle("GET /api/transfers", authMW(http.HandlerFunc(transfersHandler.List)))
	mux.Handle("POST /api/transfers", authMW(http.HandlerFunc(transfersHandler.Create)))
	mux.Handle("GET /api/transfers/export", authMW(http.HandlerFunc(transfersHandler.Export)))
	mux.Handle("GET /api/transfers/{id}", authMW(http.HandlerFunc(transfersHandler.Get)))
	mux.Handle("PUT /api/transfers/{id}", authMW(http.HandlerFunc(transfersHandler.Edit)))
	mux.Handle("POST /api/transfers/{id}/{action}", authMW(http.HandlerFunc(transfersHandler.Action)))

	return mux
}
