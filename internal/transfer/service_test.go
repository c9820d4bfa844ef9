package transfer

import (
	"context"
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/erazemk/prenos/internal/db"
	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/seed"
	"github.com/erazemk/prenos/internal/store"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	database := db.NewTestDB(t)
	if err := seed.Load(context.Background(), database); err != nil {
		t.Fatalf("seed.Load: %v", err)
	}
	s := NewService(database, time.Minute)
	s.SetClock(func() time.Time { return time.Date(2024, 1, 17, 14, 30, 0, 0, time.Local) })
	return s
}

func TestServiceList(t *testing.T) {
	s := newTestService(t)

	v, err := s.List(context.Background(), Filter{Tab: TabInProgress})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := ids(v.Transfers); !equalIDs(got, []string{"TRF002", "TRF004"}) {
		t.Errorf("expected [TRF002 TRF004], got %v", got)
	}
	if v.Summary.Total != 5 || v.Summary.InProgress != 2 {
		t.Errorf("unexpected summary %+v", v.Summary)
	}
}

func TestServiceTransition(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	// Warm the cache so the transition has to invalidate it.
	if _, err := s.List(ctx, Filter{}); err != nil {
		t.Fatalf("List: %v", err)
	}

	done, err := s.Transition(ctx, "TRF004", model.ActionComplete)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	want := civil.Date{Year: 2024, Month: 1, Day: 17}
	if done.Status != model.StatusCompleted || done.CompletedDate == nil || *done.CompletedDate != want {
		t.Errorf("unexpected completed transfer %+v", done)
	}
	if done.Version != 2 {
		t.Errorf("expected version 2, got %d", done.Version)
	}

	v, _ := s.List(ctx, Filter{Tab: TabCompleted})
	if got := ids(v.Transfers); !equalIDs(got, []string{"TRF003", "TRF004"}) {
		t.Errorf("expected [TRF003 TRF004] after completing, got %v", got)
	}

	if _, err := s.Transition(ctx, "TRF004", model.ActionApprove); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
	stored, _ := s.Get(ctx, "TRF004")
	if stored.Status != model.StatusCompleted || stored.Version != 2 {
		t.Errorf("rejected approve changed stored record: %s version %d", stored.Status, stored.Version)
	}
}

func TestServiceTransitionMissing(t *testing.T) {
	s := newTestService(t)
	if _, err := s.Transition(context.Background(), "TRF404", model.ActionApprove); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestServiceListSkipsMalformedRows(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.DB.ExecContext(ctx,
		`UPDATE transfer_items SET unit_cost = 'n/a'
		 WHERE transfer_seq = (SELECT seq FROM transfers WHERE code = 'TRF003')`,
	); err != nil {
		t.Fatalf("corrupting line item: %v", err)
	}

	v, err := s.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := ids(v.Transfers); !equalIDs(got, []string{"TRF001", "TRF002", "TRF004", "TRF005"}) {
		t.Errorf("expected malformed TRF003 to be skipped, got %v", got)
	}
}

func TestServiceListSkipsMistypedColumns(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	if _, err := s.DB.ExecContext(ctx,
		`UPDATE transfer_items SET quantity = 'many'
		 WHERE transfer_seq = (SELECT seq FROM transfers WHERE code = 'TRF002')`,
	); err != nil {
		t.Fatalf("corrupting quantity: %v", err)
	}
	if _, err := s.DB.ExecContext(ctx, `UPDATE transfers SET version = 'x' WHERE code = 'TRF005'`); err != nil {
		t.Fatalf("corrupting version: %v", err)
	}

	v, err := s.List(ctx, Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := ids(v.Transfers); !equalIDs(got, []string{"TRF001", "TRF003", "TRF004"}) {
		t.Errorf("expected TRF002 and TRF005 to be skipped, got %v", got)
	}
	if v.Summary.Total != 3 {
		t.Errorf("expected summary over 3 transfers, got %d", v.Summary.Total)
	}

	var rowErr store.RowError
	if _, err := s.Get(ctx, "TRF005"); !errors.As(err, &rowErr) {
		t.Errorf("expected RowError for TRF005, got %v", err)
	}
}

func TestServiceCacheDropsSetReadBeforeWrite(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	// A list starts reading, then an approve commits before it caches.
	gen := s.generation()
	before, _, err := store.ListTransfers(ctx, s.DB)
	if err != nil {
		t.Fatalf("ListTransfers: %v", err)
	}
	if _, err := s.Transition(ctx, "TRF001", model.ActionApprove); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if s.fill(gen, before) {
		t.Fatal("stale transfer set was cached after a write")
	}

	v, err := s.List(ctx, Filter{Status: StatusFilter(model.StatusApproved)})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got := ids(v.Transfers); !equalIDs(got, []string{"TRF001", "TRF002"}) {
		t.Errorf("expected [TRF001 TRF002] approved, got %v", got)
	}
	if !s.fill(s.generation(), before) {
		t.Error("expected a set read at the current generation to be cached")
	}
}

func TestServiceCreateFillsFromCatalog(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	cost := decimal.RequireFromString("25.00")
	created, err := s.Create(ctx, CreateRequest{
		FromLocation: "warehouse b",
		ToLocation:   "Store D",
		ExpectedDate: civil.Date{Year: 2024, Month: 1, Day: 20},
		Reason:       "Restock",
		Items: []ItemRequest{
			{ItemCode: "ITM002", Quantity: 4},
			{ItemCode: "X-1", ItemName: "Cable tie", Quantity: 2, UnitCost: &cost},
		},
	}, "Ana Novak", nil)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if created.ID != "TRF006" || created.Status != model.StatusPending || created.Priority != model.PriorityMedium {
		t.Errorf("unexpected created transfer %+v", created)
	}
	if created.FromLocation != "Warehouse B" {
		t.Errorf("expected canonical location name, got %q", created.FromLocation)
	}
	if created.RequestDate != (civil.Date{Year: 2024, Month: 1, Day: 17}) {
		t.Errorf("expected request date today, got %s", created.RequestDate)
	}
	if created.Items[0].ItemName != "Mouse" || !created.Items[0].UnitCost.Equal(decimal.RequireFromString("29.99")) {
		t.Errorf("catalog values not filled in: %+v", created.Items[0])
	}
	if !created.TotalValue().Equal(decimal.RequireFromString("169.96")) {
		t.Errorf("expected total 169.96, got %s", created.TotalValue())
	}

	v, _ := s.List(ctx, Filter{Tab: TabPending})
	if got := ids(v.Transfers); !equalIDs(got, []string{"TRF001", "TRF006"}) {
		t.Errorf("expected new transfer in pending tab, got %v", got)
	}
}

func TestServiceCreateRejectsInvalid(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateRequest
	}{
		{"same locations", CreateRequest{
			FromLocation: "Store B", ToLocation: "store b",
			ExpectedDate: civil.Date{Year: 2024, Month: 1, Day: 20},
			Items:        []ItemRequest{{ItemCode: "ITM001", Quantity: 1}},
		}},
		{"unknown item without cost", CreateRequest{
			FromLocation: "Store B", ToLocation: "Store C",
			ExpectedDate: civil.Date{Year: 2024, Month: 1, Day: 20},
			Items:        []ItemRequest{{ItemCode: "NOPE", Quantity: 1}},
		}},
		{"no items", CreateRequest{
			FromLocation: "Store B", ToLocation: "Store C",
			ExpectedDate: civil.Date{Year: 2024, Month: 1, Day: 20},
		}},
		{"bad priority", CreateRequest{
			FromLocation: "Store B", ToLocation: "Store C", Priority: "urgent",
			ExpectedDate: civil.Date{Year: 2024, Month: 1, Day: 20},
			Items:        []ItemRequest{{ItemCode: "ITM001", Quantity: 1}},
		}},
		{"expected before today", CreateRequest{
			FromLocation: "Store B", ToLocation: "Store C",
			ExpectedDate: civil.Date{Year: 2024, Month: 1, Day: 10},
			Items:        []ItemRequest{{ItemCode: "ITM001", Quantity: 1}},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Create(ctx, tt.req, "Ana Novak", nil); !errors.Is(err, model.ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestServiceEdit(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	req := EditRequest{
		CreateRequest: CreateRequest{
			FromLocation: "Warehouse A",
			ToLocation:   "Store C",
			ExpectedDate: civil.Date{Year: 2024, Month: 1, Day: 19},
			Priority:     "low",
			Reason:       "Changed destination",
			Items:        []ItemRequest{{ItemCode: "ITM001", Quantity: 1}},
		},
		Version: 1,
	}

	updated, err := s.Edit(ctx, "TRF001", req)
	if err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if updated.ToLocation != "Store C" || updated.Priority != model.PriorityLow || updated.Version != 2 {
		t.Errorf("unexpected edited transfer %+v", updated)
	}
	if updated.RequestedBy != "John Smith" || updated.Status != model.StatusPending {
		t.Errorf("edit changed requester or status: %+v", updated)
	}

	// Stale version.
	if _, err := s.Edit(ctx, "TRF001", req); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	// Only pending transfers can be edited.
	req.Version = 0
	if _, err := s.Edit(ctx, "TRF002", req); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestServiceTransitionConflict(t *testing.T) {
	s := newTestService(t)
	ctx := context.Background()

	current, _ := s.Get(ctx, "TRF001")

	// Another writer approves first.
	next := current.Clone()
	next.Status = model.StatusApproved
	if _, err := store.UpdateTransferStatus(ctx, s.DB, *current, next); err != nil {
		t.Fatalf("UpdateTransferStatus: %v", err)
	}

	c, _ := NewController([]model.Transfer{*current}, storeBackend{db: s.DB})
	if _, err := c.Apply(ctx, "TRF001", model.ActionCancel, s.Today()); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	local, _ := c.Get("TRF001")
	if local.Status != model.StatusPending {
		t.Errorf("conflicting cancel changed local record to %s", local.Status)
	}
	stored, _ := s.Get(ctx, "TRF001")
	if stored.Status != model.StatusApproved {
		t.Errorf("conflicting cancel changed stored record to %s", stored.Status)
	}
}
