package store

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/erazemk/prenos/internal/db"
	"github.com/erazemk/prenos/internal/model"
)

func sampleTransfer() model.Transfer {
	return model.Transfer{
		FromLocation: "Warehouse A",
		ToLocation:   "Store B",
		RequestedBy:  "John Smith",
		RequestDate:  civil.Date{Year: 2024, Month: 1, Day: 15},
		ExpectedDate: civil.Date{Year: 2024, Month: 1, Day: 18},
		Status:       model.StatusPending,
		Priority:     model.PriorityHigh,
		Reason:       "Stock replenishment",
		Items: []model.LineItem{
			{ItemCode: "ITM001", ItemName: "Laptop", Quantity: 5, UnitCost: decimal.RequireFromString("1299.99")},
			{ItemCode: "ITM002", ItemName: "Mouse", Quantity: 10, UnitCost: decimal.RequireFromString("29.99")},
		},
	}
}

func TestCreateTransferAssignsIDAndItems(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	first, err := CreateTransfer(ctx, database, sampleTransfer(), nil)
	if err != nil {
		t.Fatalf("CreateTransfer: %v", err)
	}
	if first.ID != "TRF001" {
		t.Errorf("expected id TRF001, got %s", first.ID)
	}
	if first.Version != 1 {
		t.Errorf("expected version 1, got %d", first.Version)
	}
	if len(first.Items) != 2 || first.Items[0].ItemCode != "ITM001" || first.Items[1].ItemCode != "ITM002" {
		t.Fatalf("line items not stored in order: %+v", first.Items)
	}
	if !first.TotalValue().Equal(decimal.RequireFromString("6799.85")) {
		t.Errorf("expected total 6799.85, got %s", first.TotalValue())
	}

	second, err := CreateTransfer(ctx, database, sampleTransfer(), nil)
	if err != nil {
		t.Fatalf("CreateTransfer: %v", err)
	}
	if second.ID != "TRF002" {
		t.Errorf("expected id TRF002, got %s", second.ID)
	}
}

func TestCreateTransferRejectsInvalid(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	tr := sampleTransfer()
	tr.ToLocation = tr.FromLocation

	_, err := CreateTransfer(ctx, database, tr, nil)
	if !errors.Is(err, model.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}

	all, _, _ := ListTransfers(ctx, database)
	if len(all) != 0 {
		t.Errorf("invalid transfer was stored: %+v", all)
	}
}

func TestGetTransferMissing(t *testing.T) {
	database := db.NewTestDB(t)

	got, err := GetTransfer(context.Background(), database, "TRF999")
	if err != nil {
		t.Fatalf("GetTransfer: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestListTransfersKeepsInsertionOrder(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	for _, from := range []string{"Warehouse C", "Warehouse A", "Store B"} {
		tr := sampleTransfer()
		tr.FromLocation = from
		tr.ToLocation = "Store Z"
		if _, err := CreateTransfer(ctx, database, tr, nil); err != nil {
			t.Fatalf("CreateTransfer: %v", err)
		}
	}

	all, bad, err := ListTransfers(ctx, database)
	if err != nil {
		t.Fatalf("ListTransfers: %v", err)
	}
	if len(bad) != 0 {
		t.Errorf("unexpected malformed rows: %v", bad)
	}
	want := []string{"Warehouse C", "Warehouse A", "Store B"}
	if len(all) != len(want) {
		t.Fatalf("expected %d transfers, got %d", len(want), len(all))
	}
	for i, tr := range all {
		if tr.FromLocation != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], tr.FromLocation)
		}
	}
}

func TestListTransfersSkipsMalformedRows(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateTransfer(ctx, database, sampleTransfer(), nil)
	broken, _ := CreateTransfer(ctx, database, sampleTransfer(), nil)
	CreateTransfer(ctx, database, sampleTransfer(), nil)

	if _, err := database.ExecContext(ctx,
		`UPDATE transfers SET request_date = 'yesterday' WHERE code = ?`, broken.ID,
	); err != nil {
		t.Fatalf("corrupting row: %v", err)
	}

	all, bad, err := ListTransfers(ctx, database)
	if err != nil {
		t.Fatalf("ListTransfers: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 good transfers, got %d", len(all))
	}
	if len(bad) != 1 || bad[0].ID != broken.ID {
		t.Fatalf("expected one bad row for %s, got %v", broken.ID, bad)
	}

	var rowErr RowError
	if _, err := GetTransfer(ctx, database, broken.ID); !errors.As(err, &rowErr) {
		t.Errorf("expected RowError from GetTransfer, got %v", err)
	}
}

func TestListTransfersSkipsMistypedColumns(t *testing.T) {
	tests := []struct {
		name    string
		corrupt string
	}{
		{"quantity", `UPDATE transfer_items SET quantity = 'many'
		              WHERE transfer_seq = (SELECT seq FROM transfers WHERE code = ?)`},
		{"version", `UPDATE transfers SET version = 'x' WHERE code = ?`},
		{"created_at", `UPDATE transfers SET created_at = 'long ago' WHERE code = ?`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			database := db.NewTestDB(t)
			ctx := context.Background()

			CreateTransfer(ctx, database, sampleTransfer(), nil)
			broken, _ := CreateTransfer(ctx, database, sampleTransfer(), nil)
			CreateTransfer(ctx, database, sampleTransfer(), nil)

			if _, err := database.ExecContext(ctx, tt.corrupt, broken.ID); err != nil {
				t.Fatalf("corrupting row: %v", err)
			}

			all, bad, err := ListTransfers(ctx, database)
			if err != nil {
				t.Fatalf("ListTransfers: %v", err)
			}
			if len(all) != 2 || all[0].ID != "TRF001" || all[1].ID != "TRF003" {
				t.Errorf("expected TRF001 and TRF003 to survive, got %d transfers", len(all))
			}
			if len(bad) != 1 || bad[0].ID != broken.ID {
				t.Fatalf("expected one bad row for %s, got %v", broken.ID, bad)
			}
			if !strings.Contains(bad[0].Error(), tt.name) {
				t.Errorf("expected row error to name %s, got %v", tt.name, bad[0])
			}

			var rowErr RowError
			if _, err := GetTransfer(ctx, database, broken.ID); !errors.As(err, &rowErr) {
				t.Errorf("expected RowError from GetTransfer, got %v", err)
			}
		})
	}
}

func TestColumnConversions(t *testing.T) {
	if n, err := intColumn("42"); err != nil || n != 42 {
		t.Errorf("intColumn(\"42\") = %d, %v", n, err)
	}
	if n, err := intColumn(float64(7)); err != nil || n != 7 {
		t.Errorf("intColumn(7.0) = %d, %v", n, err)
	}
	for _, v := range []any{"many", 2.5, nil} {
		if _, err := intColumn(v); err == nil {
			t.Errorf("intColumn(%v): expected error", v)
		}
	}

	ts, err := timeColumn("2024-01-15 09:30:00")
	if err != nil || ts.Hour() != 9 || ts.Minute() != 30 {
		t.Errorf("timeColumn = %v, %v", ts, err)
	}
	if _, err := timeColumn("long ago"); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}

func TestUpdateTransferStatus(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	created, _ := CreateTransfer(ctx, database, sampleTransfer(), nil)

	next := created.Clone()
	next.Status = model.StatusApproved
	updated, err := UpdateTransferStatus(ctx, database, *created, next)
	if err != nil {
		t.Fatalf("UpdateTransferStatus: %v", err)
	}
	if updated.Status != model.StatusApproved {
		t.Errorf("expected approved, got %s", updated.Status)
	}
	if updated.Version != created.Version+1 {
		t.Errorf("expected version %d, got %d", created.Version+1, updated.Version)
	}

	// A second writer still holding the old version must be rejected.
	stale := created.Clone()
	stale.Status = model.StatusCancelled
	if _, err := UpdateTransferStatus(ctx, database, *created, stale); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}

	got, _ := GetTransfer(ctx, database, created.ID)
	if got.Status != model.StatusApproved {
		t.Errorf("conflicting write changed status to %s", got.Status)
	}
}

func TestUpdateTransferStatusMissing(t *testing.T) {
	database := db.NewTestDB(t)

	ghost := sampleTransfer()
	ghost.ID = "TRF404"
	ghost.Version = 1
	next := ghost.Clone()
	next.Status = model.StatusApproved

	if _, err := UpdateTransferStatus(context.Background(), database, ghost, next); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateTransferStatusCompletedDate(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	tr := sampleTransfer()
	tr.Status = model.StatusInTransit
	created, _ := CreateTransfer(ctx, database, tr, nil)

	done, err := model.Apply(*created, model.ActionComplete, civil.Date{Year: 2024, Month: 1, Day: 19})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	updated, err := UpdateTransferStatus(ctx, database, *created, done)
	if err != nil {
		t.Fatalf("UpdateTransferStatus: %v", err)
	}
	if updated.CompletedDate == nil || updated.CompletedDate.String() != "2024-01-19" {
		t.Errorf("expected completed date 2024-01-19, got %v", updated.CompletedDate)
	}
}

func TestUpdateTransferDetails(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	created, _ := CreateTransfer(ctx, database, sampleTransfer(), nil)

	edit := created.Clone()
	edit.Reason = "Holiday demand"
	edit.Priority = model.PriorityLow
	edit.Items = []model.LineItem{{ItemCode: "ITM003", ItemName: "Keyboard", Quantity: 3, UnitCost: decimal.RequireFromString("79.99")}}

	updated, err := UpdateTransferDetails(ctx, database, edit)
	if err != nil {
		t.Fatalf("UpdateTransferDetails: %v", err)
	}
	if updated.Reason != "Holiday demand" || updated.Priority != model.PriorityLow {
		t.Errorf("fields not updated: %+v", updated)
	}
	if len(updated.Items) != 1 || updated.Items[0].ItemCode != "ITM003" {
		t.Errorf("items not replaced: %+v", updated.Items)
	}

	// Same stale version again.
	if _, err := UpdateTransferDetails(ctx, database, edit); !errors.Is(err, ErrConflict) {
		t.Errorf("expected ErrConflict for stale edit, got %v", err)
	}
}
