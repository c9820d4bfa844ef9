package web

import (
	"database/sql"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/erazemk/prenos/internal/api"
	"github.com/erazemk/prenos/internal/auth"
	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/transfer"
	webembed "github.com/erazemk/prenos/web"
)

// Templates holds parsed HTML templates.
type Templates struct {
	templates map[string]*template.Template
}

// StatusName returns the display label for a transfer status.
func StatusName(s model.Status) string {
	switch s {
	case model.StatusPending:
		return "V čakanju"
	case model.StatusApproved:
		return "Odobren"
	case model.StatusInTransit:
		return "Na poti"
	case model.StatusCompleted:
		return "Zaključen"
	case model.StatusCancelled:
		return "Preklican"
	default:
		return string(s)
	}
}

// ActionName returns the button label for an action.
func ActionName(a model.Action) string {
	switch a {
	case model.ActionApprove:
		return "Odobri"
	case model.ActionStart:
		return "Odpošlji"
	case model.ActionComplete:
		return "Zaključi"
	case model.ActionEdit:
		return "Uredi"
	case model.ActionCancel:
		return "Prekliči"
	default:
		return string(a)
	}
}

func priorityName(p model.Priority) string {
	switch p {
	case model.PriorityLow:
		return "Nizka"
	case model.PriorityMedium:
		return "Srednja"
	case model.PriorityHigh:
		return "Visoka"
	default:
		return string(p)
	}
}

func tabName(t transfer.Tab) string {
	switch t {
	case transfer.TabAll:
		return "Vsi"
	case transfer.TabPending:
		return "V čakanju"
	case transfer.TabInProgress:
		return "V teku"
	case transfer.TabCompleted:
		return "Zaključeni"
	default:
		return string(t)
	}
}

// money formats an amount with two decimals and a euro sign.
func money(d decimal.Decimal) string {
	return d.StringFixed(2) + " €"
}

func formatDate(d civil.Date) string {
	if !d.IsValid() {
		return ""
	}
	return fmt.Sprintf("%d. %d. %d", d.Day, d.Month, d.Year)
}

// FuncMap returns the template function map.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"roleAtLeast": model.RoleAtLeast,
		"roleName": func(role string) string {
			switch role {
			case model.RoleAdmin:
				return "Administrator"
			case model.RoleManager:
				return "Skladiščnik"
			case model.RoleUser:
				return "Uporabnik"
			default:
				return role
			}
		},
		"kindName": func(kind string) string {
			switch kind {
			case model.LocationKindWarehouse:
				return "Skladišče"
			case model.LocationKindStore:
				return "Trgovina"
			default:
				return kind
			}
		},
		"availableActions": model.AvailableActions,
		"statusName":       StatusName,
		"actionName":       ActionName,
		"priorityName":     priorityName,
		"tabName":          tabName,
		"money":            money,
		"date":             formatDate,
		"dateptr": func(d *civil.Date) string {
			if d == nil {
				return ""
			}
			return formatDate(*d)
		},
		"canPerform": func(claims *auth.Claims, a model.Action) bool {
			return claims != nil && api.CanPerform(claims.Role, a)
		},
	}
}

// LoadTemplates parses all page templates with the layout.
func LoadTemplates() (*Templates, error) {
	tfs := webembed.TemplatesFS()

	layoutBytes, err := fs.ReadFile(tfs, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("reading layout template: %w", err)
	}

	pages := []string{
		"login.html",
		"dashboard.html",
		"transfers.html",
		"transfer_form.html",
		"transfer_detail.html",
		"catalog.html",
		"locations.html",
		"users.html",
		"settings.html",
	}

	ts := &Templates{templates: make(map[string]*template.Template)}

	for _, page := range pages {
		pageBytes, err := fs.ReadFile(tfs, page)
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", page, err)
		}

		tmpl := template.New(page).Funcs(FuncMap())
		tmpl, err = tmpl.Parse(string(layoutBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing layout for %s: %w", page, err)
		}
		tmpl, err = tmpl.Parse(string(pageBytes))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", page, err)
		}

		ts.templates[page] = tmpl
	}

	return ts, nil
}

// Render renders a template with the given data.
func (ts *Templates) Render(w http.ResponseWriter, name string, data any) {
	ts.RenderStatus(w, http.StatusOK, name, data)
}

// RenderStatus renders a template with an explicit status code.
func (ts *Templates) RenderStatus(w http.ResponseWriter, status int, name string, data any) {
	tmpl, ok := ts.templates[name]
	if !ok {
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout", data); err != nil {
		slog.Error("failed to render template", "template", name, "error", err)
	}
}

// PageData is the base data passed to all templates.
type PageData struct {
	Title   string
	User    *auth.Claims
	Error   string
	Success string
}

// Server holds all dependencies for page handlers.
type Server struct {
	DB        *sql.DB
	Templates *Templates
	JWTSecret string
	Service   *transfer.Service
	Limiter   *auth.LoginLimiter
}

func (s *Server) page(r *http.Request, title string) PageData {
	return PageData{Title: title, User: GetWebClaims(r.Context())}
}
