// Package seed loads a small sample data set: six locations, a catalog and
// the transfers TRF001 to TRF005, one per status.
package seed

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/store"
)

type sampleLocation struct {
	name string
	kind string
}

var locations = []sampleLocation{
	{"Warehouse A", model.LocationKindWarehouse},
	{"Warehouse B", model.LocationKindWarehouse},
	{"Warehouse C", model.LocationKindWarehouse},
	{"Store B", model.LocationKindStore},
	{"Store C", model.LocationKindStore},
	{"Store D", model.LocationKindStore},
}

// Catalog returns the sample catalog entries (without database ids).
func Catalog() []model.CatalogItem {
	return []model.CatalogItem{
		{Code: "ITM001", Name: "Laptop", UnitCost: decimal.RequireFromString("1299.99")},
		{Code: "ITM002", Name: "Mouse", UnitCost: decimal.RequireFromString("29.99")},
		{Code: "ITM003", Name: "Keyboard", UnitCost: decimal.RequireFromString("79.99")},
		{Code: "ITM004", Name: "Monitor", UnitCost: decimal.RequireFromString("349.99")},
		{Code: "ITM005", Name: "Office Chair", UnitCost: decimal.RequireFromString("249.50")},
		{Code: "ITM006", Name: "HDMI Cable", UnitCost: decimal.RequireFromString("12.50")},
		{Code: "ITM007", Name: "Printer", UnitCost: decimal.RequireFromString("449.00")},
	}
}

func date(y, m, d int) civil.Date {
	return civil.Date{Year: y, Month: time.Month(m), Day: d}
}

func line(code string, qty int) model.LineItem {
	for _, c := range Catalog() {
		if c.Code == code {
			return model.LineItem{ItemCode: c.Code, ItemName: c.Name, Quantity: qty, UnitCost: c.UnitCost}
		}
	}
	panic("seed: unknown catalog code " + code)
}

// Transfers returns the five sample transfers in insertion order, with ids
// TRF001 to TRF005 already assigned.
func Transfers() []model.Transfer {
	completed := date(2024, 1, 12)
	return []model.Transfer{
		{
			ID:           "TRF001",
			FromLocation: "Warehouse A",
			ToLocation:   "Store B",
			RequestedBy:  "John Smith",
			RequestDate:  date(2024, 1, 15),
			ExpectedDate: date(2024, 1, 18),
			Status:       model.StatusPending,
			Priority:     model.PriorityHigh,
			Reason:       "Stock replenishment for weekend sale",
			Items:        []model.LineItem{line("ITM001", 2), line("ITM002", 10)},
			Version:      1,
		},
		{
			ID:           "TRF002",
			FromLocation: "Warehouse B",
			ToLocation:   "Store C",
			RequestedBy:  "Sarah Johnson",
			RequestDate:  date(2024, 1, 14),
			ExpectedDate: date(2024, 1, 17),
			Status:       model.StatusApproved,
			Priority:     model.PriorityMedium,
			Reason:       "New store opening",
			Notes:        "Deliver before 10am",
			Items:        []model.LineItem{line("ITM005", 8)},
			Version:      1,
		},
		{
			ID:            "TRF003",
			FromLocation:  "Warehouse A",
			ToLocation:    "Store D",
			RequestedBy:   "Mike Davis",
			RequestDate:   date(2024, 1, 10),
			ExpectedDate:  date(2024, 1, 12),
			CompletedDate: &completed,
			Status:        model.StatusCompleted,
			Priority:      model.PriorityLow,
			Reason:        "Display setup",
			Items:         []model.LineItem{line("ITM004", 4), line("ITM006", 20)},
			Version:       1,
		},
		{
			ID:           "TRF004",
			FromLocation: "Store B",
			ToLocation:   "Warehouse A",
			RequestedBy:  "Emily Brown",
			RequestDate:  date(2024, 1, 13),
			ExpectedDate: date(2024, 1, 16),
			Status:       model.StatusInTransit,
			Priority:     model.PriorityMedium,
			Reason:       "Return of excess stock",
			Items:        []model.LineItem{line("ITM003", 15)},
			Version:      1,
		},
		{
			ID:           "TRF005",
			FromLocation: "Warehouse C",
			ToLocation:   "Store B",
			RequestedBy:  "David Wilson",
			RequestDate:  date(2024, 1, 11),
			ExpectedDate: date(2024, 1, 14),
			Status:       model.StatusCancelled,
			Priority:     model.PriorityLow,
			Reason:       "Printer replacement",
			Notes:        "Cancelled, supplier delivers directly",
			Items:        []model.LineItem{line("ITM007", 2)},
			Version:      1,
		},
	}
}

// Load inserts the sample locations, catalog entries and transfers. Existing
// locations and catalog codes are kept; transfers are only inserted into an
// empty transfers table.
func Load(ctx context.Context, db *sql.DB) error {
	for _, l := range locations {
		existing, err := store.GetLocationByName(ctx, db, l.name)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if _, err := store.CreateLocation(ctx, db, l.name, l.kind); err != nil {
			return fmt.Errorf("seeding location %s: %w", l.name, err)
		}
	}

	for _, c := range Catalog() {
		existing, err := store.GetCatalogItemByCode(ctx, db, c.Code)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if _, err := store.CreateCatalogItem(ctx, db, c.Code, c.Name, c.UnitCost); err != nil {
			return fmt.Errorf("seeding catalog item %s: %w", c.Code, err)
		}
	}

	current, _, err := store.ListTransfers(ctx, db)
	if err != nil {
		return err
	}
	if len(current) > 0 {
		slog.Info("transfers already present, skipping sample transfers", "count", len(current))
		return nil
	}

	for _, t := range Transfers() {
		created, err := store.CreateTransfer(ctx, db, t, nil)
		if err != nil {
			return fmt.Errorf("seeding transfer %s: %w", t.ID, err)
		}
		slog.Info("seeded transfer", "id", created.ID, "status", created.Status)
	}
	return store.SetSetting(ctx, db, store.SettingSeededAt, time.Now().UTC().Format(time.RFC3339))
}
