package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/prenos/internal/model"
)

// CreateLocation creates a new warehouse or store.
func CreateLocation(ctx context.Context, db *sql.DB, name, kind string) (*model.Location, error) {
	if !model.ValidLocationKind(kind) {
		return nil, fmt.Errorf("unknown location kind %q", kind)
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO locations (name, kind) VALUES (?, ?)`,
		name, kind,
	)
	if err != nil {
		return nil, fmt.Errorf("creating location: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting location id: %w", err)
	}

	return GetLocation(ctx, db, id)
}

// GetLocation returns a location by ID.
func GetLocation(ctx context.Context, db *sql.DB, id int64) (*model.Location, error) {
	l := &model.Location{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, kind, created_at, deleted_at
		 FROM locations WHERE id = ?`, id,
	).Scan(&l.ID, &l.Name, &l.Kind, &l.CreatedAt, &l.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting location: %w", err)
	}
	return l, nil
}

// GetLocationByName returns the active location with the given name
// (case-insensitive).
func GetLocationByName(ctx context.Context, db *sql.DB, name string) (*model.Location, error) {
	l := &model.Location{}
	err := db.QueryRowContext(ctx,
		`SELECT id, name, kind, created_at, deleted_at
		 FROM locations WHERE name = ? COLLATE NOCASE AND deleted_at IS NULL`, name,
	).Scan(&l.ID, &l.Name, &l.Kind, &l.CreatedAt, &l.DeletedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting location by name: %w", err)
	}
	return l, nil
}

// ListLocations returns all active locations, optionally filtered by kind.
func ListLocations(ctx context.Context, db *sql.DB, kind string) ([]model.Location, error) {
	query := `SELECT id, name, kind, created_at, deleted_at
	          FROM locations WHERE deleted_at IS NULL`
	var args []any
	if kind != "" {
		query += ` AND kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY name`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	defer rows.Close()

	var locations []model.Location
	for rows.Next() {
		var l model.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Kind, &l.CreatedAt, &l.DeletedAt); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// UpdateLocation renames a location. Open transfers that ship from or to it
// are moved to the new name in the same transaction, so DeleteLocation keeps
// seeing them.
func UpdateLocation(ctx context.Context, db *sql.DB, id int64, name string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var old string
	err = tx.QueryRowContext(ctx,
		`SELECT name FROM locations WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&old)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("getting location: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE locations SET name = ? WHERE id = ? AND deleted_at IS NULL`,
		name, id,
	)
	if err != nil {
		return fmt.Errorf("updating location: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}

	for _, column := range []string{"from_location", "to_location"} {
		_, err := tx.ExecContext(ctx,
			`UPDATE transfers SET `+column+` = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
			 WHERE `+column+` = ? COLLATE NOCASE AND status NOT IN ('completed', 'cancelled')`,
			name, old,
		)
		if err != nil {
			return fmt.Errorf("moving open transfers to renamed location: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing location rename: %w", err)
	}
	return nil
}

// DeleteLocation soft-deletes a location. Fails while any open (non-terminal)
// transfer still ships from or to it.
func DeleteLocation(ctx context.Context, db *sql.DB, id int64) error {
	loc, err := GetLocation(ctx, db, id)
	if err != nil {
		return err
	}
	if loc == nil || loc.DeletedAt != nil {
		return ErrNotFound
	}

	var open int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transfers
		 WHERE (from_location = ? COLLATE NOCASE OR to_location = ? COLLATE NOCASE)
		   AND status NOT IN ('completed', 'cancelled')`,
		loc.Name, loc.Name,
	).Scan(&open)
	if err != nil {
		return fmt.Errorf("checking open transfers: %w", err)
	}
	if open > 0 {
		return fmt.Errorf("cannot delete location: %d open transfers reference it", open)
	}

	_, err = db.ExecContext(ctx,
		`UPDATE locations SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`,
		id,
	)
	if err != nil {
		return fmt.Errorf("deleting location: %w", err)
	}
	return nil
}
