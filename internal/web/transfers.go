package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/erazemk/prenos/internal/api"
	"github.com/erazemk/prenos/internal/export"
	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/store"
	"github.com/erazemk/prenos/internal/transfer"
)

// minFormItems is the number of line item rows offered on an empty form.
const minFormItems = 3

type tabLink struct {
	Tab    transfer.Tab
	Count  int
	Active bool
}

// TransfersPage handles GET /transfers.
func (s *Server) TransfersPage(w http.ResponseWriter, r *http.Request) {
	page := s.page(r, "Prenosi")
	page.Error = popFlash(w, r)

	q := r.URL.Query()
	f, err := transfer.ParseFilter(q.Get("search"), q.Get("status"), q.Get("tab"))
	if err != nil {
		page.Error = "Neveljaven filter."
		f = transfer.Filter{Search: q.Get("search")}
	}

	view, err := s.Service.List(r.Context(), f)
	if err != nil {
		slog.Error("failed to list transfers", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	tabs := make([]tabLink, len(transfer.Tabs))
	for i, t := range transfer.Tabs {
		tabs[i] = tabLink{Tab: t, Count: view.Summary.TabCount(t), Active: view.Filter.Tab == t}
	}

	s.Templates.Render(w, "transfers.html", &struct {
		PageData
		View     transfer.View
		Tabs     []tabLink
		Statuses []model.Status
		Return   string
	}{
		PageData: page,
		View:     view,
		Tabs:     tabs,
		Statuses: model.Statuses,
		Return:   r.URL.RequestURI(),
	})
}

// TransferDetailPage handles GET /transfers/{id}.
func (s *Server) TransferDetailPage(w http.ResponseWriter, r *http.Request) {
	t, err := s.Service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, transfer.ErrNotFound) {
			http.Error(w, "transfer not found", http.StatusNotFound)
			return
		}
		slog.Error("failed to get transfer", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	page := s.page(r, "Prenos "+t.ID)
	page.Error = popFlash(w, r)
	s.Templates.Render(w, "transfer_detail.html", &struct {
		PageData
		Transfer *model.Transfer
		Actions  []model.Action
		Return   string
	}{
		PageData: page,
		Transfer: t,
		Actions:  model.AvailableActions(t.Status),
		Return:   r.URL.RequestURI(),
	})
}

// transferForm carries the raw form fields so a rejected submission can be
// shown again as entered.
type transferForm struct {
	ID       string
	Version  int64
	From     string
	To       string
	Expected string
	Priority string
	Reason   string
	Notes    string
	Items    []formItem
}

type formItem struct {
	Code     string
	Quantity string
}

func (f *transferForm) pad() {
	for len(f.Items) < minFormItems {
		f.Items = append(f.Items, formItem{})
	}
}

func formFromTransfer(t *model.Transfer) transferForm {
	f := transferForm{
		ID:       t.ID,
		Version:  t.Version,
		From:     t.FromLocation,
		To:       t.ToLocation,
		Expected: t.ExpectedDate.String(),
		Priority: string(t.Priority),
		Reason:   t.Reason,
		Notes:    t.Notes,
	}
	for _, li := range t.Items {
		f.Items = append(f.Items, formItem{Code: li.ItemCode, Quantity: strconv.Itoa(li.Quantity)})
	}
	f.pad()
	return f
}

// parseTransferForm reads the create/edit form. Rows without an item code
// are ignored.
func parseTransferForm(r *http.Request) (transferForm, transfer.CreateRequest, error) {
	if err := r.ParseForm(); err != nil {
		return transferForm{}, transfer.CreateRequest{}, err
	}

	f := transferForm{
		From:     strings.TrimSpace(r.FormValue("from_location")),
		To:       strings.TrimSpace(r.FormValue("to_location")),
		Expected: strings.TrimSpace(r.FormValue("expected_date")),
		Priority: r.FormValue("priority"),
		Reason:   r.FormValue("reason"),
		Notes:    r.FormValue("notes"),
	}
	f.Version, _ = strconv.ParseInt(r.FormValue("version"), 10, 64)

	codes := r.PostForm["item_code"]
	quantities := r.PostForm["quantity"]
	for i, code := range codes {
		item := formItem{Code: strings.TrimSpace(code)}
		if i < len(quantities) {
			item.Quantity = strings.TrimSpace(quantities[i])
		}
		f.Items = append(f.Items, item)
	}

	req := transfer.CreateRequest{
		FromLocation: f.From,
		ToLocation:   f.To,
		Priority:     f.Priority,
		Reason:       f.Reason,
		Notes:        f.Notes,
	}

	expected, err := civil.ParseDate(f.Expected)
	if err != nil {
		f.pad()
		return f, req, errors.New("Vnesite veljaven pričakovani datum.")
	}
	req.ExpectedDate = expected

	for _, item := range f.Items {
		if item.Code == "" {
			continue
		}
		qty, err := strconv.Atoi(item.Quantity)
		if err != nil {
			f.pad()
			return f, req, errors.New("Količina mora biti celo število.")
		}
		req.Items = append(req.Items, transfer.ItemRequest{ItemCode: item.Code, Quantity: qty})
	}

	f.pad()
	return f, req, nil
}

// renderTransferForm shows the create or edit form with the location and
// catalog pick lists.
func (s *Server) renderTransferForm(w http.ResponseWriter, r *http.Request, status int, title string, form transferForm, msg string) {
	locations, err := store.ListLocations(r.Context(), s.DB, "")
	if err != nil {
		slog.Error("failed to list locations for transfer form", "error", err)
	}
	catalog, err := store.ListCatalogItems(r.Context(), s.DB)
	if err != nil {
		slog.Error("failed to list catalog for transfer form", "error", err)
	}

	page := s.page(r, title)
	page.Error = msg
	s.Templates.RenderStatus(w, status, "transfer_form.html", &struct {
		PageData
		Form       transferForm
		Locations  []model.Location
		Catalog    []model.CatalogItem
		Priorities []model.Priority
	}{
		PageData:   page,
		Form:       form,
		Locations:  locations,
		Catalog:    catalog,
		Priorities: []model.Priority{model.PriorityLow, model.PriorityMedium, model.PriorityHigh},
	})
}

// formError turns a service error into a message for the form.
func formError(err error) string {
	switch {
	case errors.Is(err, model.ErrInvalid):
		return "Prenos ni veljaven: " + strings.TrimPrefix(err.Error(), model.ErrInvalid.Error()+": ")
	case errors.Is(err, model.ErrInvalidTransition):
		return "Urejati je mogoče le prenose v čakanju."
	case errors.Is(err, transfer.ErrConflict):
		return "Prenos je medtem spremenil nekdo drug. Osvežite stran."
	}
	return "Shranjevanje prenosa ni uspelo."
}

// TransferNewPage handles GET /transfers/new.
func (s *Server) TransferNewPage(w http.ResponseWriter, r *http.Request) {
	form := transferForm{
		Priority: string(model.PriorityMedium),
		Expected: s.Service.Today().AddDays(7).String(),
	}
	form.pad()
	s.renderTransferForm(w, r, http.StatusOK, "Nov prenos", form, "")
}

// TransferCreateSubmit handles POST /transfers/new.
func (s *Server) TransferCreateSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())

	form, req, err := parseTransferForm(r)
	if err != nil {
		s.renderTransferForm(w, r, http.StatusBadRequest, "Nov prenos", form, err.Error())
		return
	}

	userID := claims.UserID
	created, err := s.Service.Create(r.Context(), req, claims.Username, &userID)
	if err != nil {
		slog.Warn("transfer creation failed", "error", err, "user", claims.Username)
		status := http.StatusBadRequest
		if !errors.Is(err, model.ErrInvalid) {
			status = http.StatusInternalServerError
		}
		s.renderTransferForm(w, r, status, "Nov prenos", form, formError(err))
		return
	}

	http.Redirect(w, r, "/transfers/"+created.ID, http.StatusSeeOther)
}

// TransferEditPage handles GET /transfers/{id}/edit.
func (s *Server) TransferEditPage(w http.ResponseWriter, r *http.Request) {
	t, err := s.Service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, transfer.ErrNotFound) {
			http.Error(w, "transfer not found", http.StatusNotFound)
			return
		}
		slog.Error("failed to get transfer", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if !model.Allowed(t.Status, model.ActionEdit) {
		setFlash(w, formError(model.ErrInvalidTransition))
		http.Redirect(w, r, "/transfers/"+t.ID, http.StatusSeeOther)
		return
	}

	s.renderTransferForm(w, r, http.StatusOK, "Urejanje "+t.ID, formFromTransfer(t), "")
}

// TransferEditSubmit handles POST /transfers/{id}/edit.
func (s *Server) TransferEditSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id := r.PathValue("id")

	form, req, err := parseTransferForm(r)
	form.ID = id
	if err != nil {
		s.renderTransferForm(w, r, http.StatusBadRequest, "Urejanje "+id, form, err.Error())
		return
	}

	_, err = s.Service.Edit(r.Context(), id, transfer.EditRequest{CreateRequest: req, Version: form.Version})
	var rowErr store.RowError
	switch {
	case err == nil:
	case errors.Is(err, transfer.ErrNotFound):
		http.Error(w, "transfer not found", http.StatusNotFound)
		return
	case errors.As(err, &rowErr):
		slog.Error("stored transfer is malformed", "error", err, "id", id)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	case errors.Is(err, model.ErrInvalid):
		s.renderTransferForm(w, r, http.StatusBadRequest, "Urejanje "+id, form, formError(err))
		return
	default:
		slog.Warn("transfer edit failed", "error", err, "user", claims.Username, "id", id)
		setFlash(w, formError(err))
	}

	http.Redirect(w, r, "/transfers/"+id, http.StatusSeeOther)
}

// TransferActionSubmit handles POST /transfers/{id}/{action}. Rejected
// actions leave the transfer unchanged and come back as a flash message.
func (s *Server) TransferActionSubmit(w http.ResponseWriter, r *http.Request) {
	claims := GetWebClaims(r.Context())
	id := r.PathValue("id")

	back := r.FormValue("return")
	if !strings.HasPrefix(back, "/transfers") {
		back = "/transfers"
	}

	action, err := model.ParseAction(r.PathValue("action"))
	if err != nil || action == model.ActionEdit {
		http.NotFound(w, r)
		return
	}
	if !api.CanPerform(claims.Role, action) {
		setFlash(w, "Za to dejanje nimate pravic.")
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	updated, err := s.Service.Transition(r.Context(), id, action)
	switch {
	case err == nil:
		slog.Info("transfer action", "user", claims.Username, "id", id, "action", action, "status", updated.Status)
	case errors.Is(err, transfer.ErrNotFound):
		http.Error(w, "transfer not found", http.StatusNotFound)
		return
	case errors.Is(err, model.ErrInvalidTransition):
		setFlash(w, "Dejanje "+ActionName(action)+" ni dovoljeno za prenos "+id+".")
	case errors.Is(err, transfer.ErrConflict):
		setFlash(w, "Prenos "+id+" je medtem spremenil nekdo drug. Poskusite znova.")
	default:
		slog.Error("transfer action failed", "error", err, "id", id, "action", action)
		setFlash(w, "Posodobitev prenosa ni uspela.")
	}

	http.Redirect(w, r, back, http.StatusSeeOther)
}

// TransfersExport handles GET /transfers/export with the list page filters.
func (s *Server) TransfersExport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format, err := export.ParseFormat(q.Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f, err := transfer.ParseFilter(q.Get("search"), q.Get("status"), q.Get("tab"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	view, err := s.Service.List(r.Context(), f)
	if err != nil {
		slog.Error("failed to list transfers for export", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	api.WriteExport(w, format, view.Transfers, time.Now())
}
