package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: list and filter queries walk transfers by status.
	`CREATE INDEX IF NOT EXISTS idx_transfers_status ON transfers(status)`,
	// Migration 2: item lookups by catalog code.
	`CREATE INDEX IF NOT EXISTS idx_transfer_items_code ON transfer_items(item_code)`,
}

// Migrate ensures the schema and runs the migrations.
func Migrate(db *sql.DB) error {
	if err := EnsureSchema(db); err != nil {
		return err
	}

	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}

	return nil
}
