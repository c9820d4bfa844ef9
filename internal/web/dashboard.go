package web

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/transfer"
)

// dashboardLimit caps each list on the dashboard.
const dashboardLimit = 10

// Dashboard handles GET /. It shows the summary cards and the transfers
// that are waiting on someone.
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	view, err := s.Service.List(r.Context(), transfer.Filter{Tab: transfer.TabPending})
	if err != nil {
		slog.Error("failed to list transfers for dashboard", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	moving, err := s.Service.List(r.Context(), transfer.Filter{Status: transfer.StatusFilter(model.StatusInTransit)})
	if err != nil {
		slog.Error("failed to list transfers for dashboard", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	s.Templates.Render(w, "dashboard.html", &struct {
		PageData
		Summary   transfer.Summary
		Pending   []model.Transfer
		InTransit []model.Transfer
	}{
		PageData:  s.page(r, "Nadzorna plošča"),
		Summary:   view.Summary,
		Pending:   limit(view.Transfers, dashboardLimit),
		InTransit: limit(moving.Transfers, dashboardLimit),
	})
}

func limit(ts []model.Transfer, n int) []model.Transfer {
	if len(ts) > n {
		return ts[:n]
	}
	return ts
}
