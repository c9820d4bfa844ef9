package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/erazemk/prenos/internal/model"
)

const catalogColumns = `id, code, name, unit_cost, image_mime, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCatalogItem(s rowScanner) (*model.CatalogItem, error) {
	item := &model.CatalogItem{}
	var imageMime sql.NullString
	if err := s.Scan(&item.ID, &item.Code, &item.Name, &item.UnitCost, &imageMime, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	item.ImageMime = imageMime.String
	return item, nil
}

// CreateCatalogItem registers an article that line items can reference.
func CreateCatalogItem(ctx context.Context, db *sql.DB, code, name string, unitCost decimal.Decimal) (*model.CatalogItem, error) {
	if unitCost.IsNegative() {
		return nil, fmt.Errorf("unit cost must not be negative")
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO catalog_items (code, name, unit_cost) VALUES (?, ?, ?)`,
		code, name, unitCost.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating catalog item: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting catalog item id: %w", err)
	}

	return GetCatalogItem(ctx, db, id)
}

// GetCatalogItem returns a catalog item by ID.
func GetCatalogItem(ctx context.Context, db *sql.DB, id int64) (*model.CatalogItem, error) {
	item, err := scanCatalogItem(db.QueryRowContext(ctx,
		`SELECT `+catalogColumns+` FROM catalog_items WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting catalog item: %w", err)
	}
	return item, nil
}

// GetCatalogItemByCode returns a catalog item by its item code.
func GetCatalogItemByCode(ctx context.Context, db *sql.DB, code string) (*model.CatalogItem, error) {
	item, err := scanCatalogItem(db.QueryRowContext(ctx,
		`SELECT `+catalogColumns+` FROM catalog_items WHERE code = ?`, code,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting catalog item by code: %w", err)
	}
	return item, nil
}

// ListCatalogItems returns all catalog items ordered by code.
func ListCatalogItems(ctx context.Context, db *sql.DB) ([]model.CatalogItem, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+catalogColumns+` FROM catalog_items ORDER BY code`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing catalog items: %w", err)
	}
	defer rows.Close()

	var items []model.CatalogItem
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning catalog item: %w", err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// UpdateCatalogItem updates an item's name and default unit cost.
func UpdateCatalogItem(ctx context.Context, db *sql.DB, id int64, name string, unitCost decimal.Decimal) error {
	if unitCost.IsNegative() {
		return fmt.Errorf("unit cost must not be negative")
	}
	_, err := db.ExecContext(ctx,
		`UPDATE catalog_items SET name = ?, unit_cost = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, unitCost.String(), id,
	)
	if err != nil {
		return fmt.Errorf("updating catalog item: %w", err)
	}
	return nil
}

// SetCatalogItemImage stores an item's picture.
func SetCatalogItemImage(ctx context.Context, db *sql.DB, id int64, image []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE catalog_items SET image = ?, image_mime = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		image, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting catalog item image: %w", err)
	}
	return nil
}

// GetCatalogItemImage returns an item's picture and MIME type.
func GetCatalogItemImage(ctx context.Context, db *sql.DB, id int64) ([]byte, string, error) {
	var image []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT image, image_mime FROM catalog_items WHERE id = ?`, id,
	).Scan(&image, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting catalog item image: %w", err)
	}
	return image, mime.String, nil
}
