package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/erazemk/prenos/internal/model"
)

var (
	// ErrNotFound is returned by writes that target a missing row.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a transfer changed since it was read.
	ErrConflict = errors.New("transfer was modified by someone else")
)

// RowError describes a stored transfer that could not be decoded or fails
// validation. Such rows are left out of listings.
type RowError struct {
	Seq int64
	ID  string
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("transfer row %d (%s): %v", e.Seq, e.ID, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

const transferColumns = `seq, code, from_location, to_location, requested_by,
	request_date, expected_date, completed_date, status, priority, reason, notes,
	version, created_at, updated_at`

// transferRow is the raw column set of a transfers row. Every column except
// seq stays untyped until decode so one bad row cannot abort a listing.
type transferRow struct {
	seq           int64
	code          sql.NullString
	from, to      string
	requestedBy   string
	requestDate   string
	expectedDate  string
	completedDate sql.NullString
	status        string
	priority      string
	reason        string
	notes         sql.NullString
	version       any
	createdAt     any
	updatedAt     any
}

func (r *transferRow) scan(s rowScanner) error {
	return s.Scan(&r.seq, &r.code, &r.from, &r.to, &r.requestedBy,
		&r.requestDate, &r.expectedDate, &r.completedDate, &r.status, &r.priority, &r.reason, &r.notes,
		&r.version, &r.createdAt, &r.updatedAt)
}

type itemRow struct {
	code     string
	name     string
	quantity any
	unitCost string
}

func (r *transferRow) decode(items []itemRow) (model.Transfer, error) {
	var t model.Transfer
	t.ID = r.code.String
	if t.ID == "" {
		t.ID = model.FormatTransferID(r.seq)
	}
	t.FromLocation = r.from
	t.ToLocation = r.to
	t.RequestedBy = r.requestedBy
	t.Status = model.Status(r.status)
	t.Priority = model.Priority(r.priority)
	t.Reason = r.reason
	t.Notes = r.notes.String

	var err error
	if t.Version, err = intColumn(r.version); err != nil {
		return t, fmt.Errorf("version: %w", err)
	}
	if t.CreatedAt, err = timeColumn(r.createdAt); err != nil {
		return t, fmt.Errorf("created_at: %w", err)
	}
	if t.UpdatedAt, err = timeColumn(r.updatedAt); err != nil {
		return t, fmt.Errorf("updated_at: %w", err)
	}
	if t.RequestDate, err = civil.ParseDate(r.requestDate); err != nil {
		return t, fmt.Errorf("request date: %w", err)
	}
	if t.ExpectedDate, err = civil.ParseDate(r.expectedDate); err != nil {
		return t, fmt.Errorf("expected date: %w", err)
	}
	if r.completedDate.Valid && r.completedDate.String != "" {
		d, err := civil.ParseDate(r.completedDate.String)
		if err != nil {
			return t, fmt.Errorf("completed date: %w", err)
		}
		t.CompletedDate = &d
	}

	t.Items = make([]model.LineItem, 0, len(items))
	for _, ir := range items {
		qty, err := intColumn(ir.quantity)
		if err != nil {
			return t, fmt.Errorf("item %s quantity: %w", ir.code, err)
		}
		cost, err := decimal.NewFromString(ir.unitCost)
		if err != nil {
			return t, fmt.Errorf("item %s unit cost: %w", ir.code, err)
		}
		t.Items = append(t.Items, model.LineItem{
			ItemCode: ir.code,
			ItemName: ir.name,
			Quantity: int(qty),
			UnitCost: cost,
		})
	}

	if err := t.Validate(); err != nil {
		return t, err
	}
	return t, nil
}

// intColumn converts an INTEGER column value. SQLite does not enforce column
// types, so text and real values are accepted only when they hold an integer.
func intColumn(v any) (int64, error) {
	switch v := v.(type) {
	case int64:
		return v, nil
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("not an integer: %v", v)
		}
		return int64(v), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(v), 10, 64)
	case []byte:
		return strconv.ParseInt(strings.TrimSpace(string(v)), 10, 64)
	case nil:
		return 0, errors.New("missing value")
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}

var timeLayouts = []string{
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02T15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	time.RFC3339Nano,
	time.DateOnly,
}

// timeColumn converts a DATETIME column value.
func timeColumn(v any) (time.Time, error) {
	var s string
	switch v := v.(type) {
	case time.Time:
		return v, nil
	case string:
		s = v
	case []byte:
		s = string(v)
	case nil:
		return time.Time{}, errors.New("missing value")
	default:
		return time.Time{}, fmt.Errorf("unexpected type %T", v)
	}
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as a timestamp", s)
}

// CreateTransfer stores a validated transfer with its line items in a single
// transaction and assigns its TRFnnn id. Any id on t is ignored.
func CreateTransfer(ctx context.Context, db *sql.DB, t model.Transfer, createdBy *int64) (*model.Transfer, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO transfers (from_location, to_location, requested_by, request_date, expected_date,
		                        completed_date, status, priority, reason, notes, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		strings.TrimSpace(t.FromLocation), strings.TrimSpace(t.ToLocation), strings.TrimSpace(t.RequestedBy),
		t.RequestDate.String(), t.ExpectedDate.String(), dateValue(t.CompletedDate),
		string(t.Status), string(t.Priority), t.Reason, t.Notes, createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("recording transfer: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting transfer id: %w", err)
	}
	code := model.FormatTransferID(seq)

	if _, err := tx.ExecContext(ctx, `UPDATE transfers SET code = ? WHERE seq = ?`, code, seq); err != nil {
		return nil, fmt.Errorf("assigning transfer id: %w", err)
	}

	if err := insertItems(ctx, tx, seq, t.Items); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transfer: %w", err)
	}

	return GetTransfer(ctx, db, code)
}

func insertItems(ctx context.Context, tx *sql.Tx, seq int64, items []model.LineItem) error {
	for i, li := range items {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO transfer_items (transfer_seq, position, item_code, item_name, quantity, unit_cost)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			seq, i, li.ItemCode, li.ItemName, li.Quantity, li.UnitCost.String(),
		)
		if err != nil {
			return fmt.Errorf("recording line item %s: %w", li.ItemCode, err)
		}
	}
	return nil
}

func dateValue(d *civil.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}

// GetTransfer returns a transfer by its TRFnnn id. A stored row that cannot be
// decoded is reported as a RowError.
func GetTransfer(ctx context.Context, db *sql.DB, id string) (*model.Transfer, error) {
	var r transferRow
	err := r.scan(db.QueryRowContext(ctx,
		`SELECT `+transferColumns+` FROM transfers WHERE code = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting transfer: %w", err)
	}

	items, err := queryItems(ctx, db, `WHERE transfer_seq = ?`, r.seq)
	if err != nil {
		return nil, err
	}

	t, err := r.decode(items[r.seq])
	if err != nil {
		return nil, RowError{Seq: r.seq, ID: id, Err: err}
	}
	return &t, nil
}

// ListTransfers returns every transfer in creation order. Rows that cannot be
// decoded are skipped and returned as RowErrors alongside the good ones.
func ListTransfers(ctx context.Context, db *sql.DB) ([]model.Transfer, []RowError, error) {
	headers, err := queryHeaders(ctx, db)
	if err != nil {
		return nil, nil, err
	}

	items, err := queryItems(ctx, db, ``)
	if err != nil {
		return nil, nil, err
	}

	var transfers []model.Transfer
	var bad []RowError
	for i := range headers {
		r := &headers[i]
		t, err := r.decode(items[r.seq])
		if err != nil {
			bad = append(bad, RowError{Seq: r.seq, ID: r.code.String, Err: err})
			continue
		}
		transfers = append(transfers, t)
	}
	return transfers, bad, nil
}

func queryHeaders(ctx context.Context, db *sql.DB) ([]transferRow, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+transferColumns+` FROM transfers ORDER BY seq`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing transfers: %w", err)
	}
	defer rows.Close()

	var out []transferRow
	for rows.Next() {
		var r transferRow
		if err := r.scan(rows); err != nil {
			return nil, fmt.Errorf("scanning transfer: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func queryItems(ctx context.Context, db *sql.DB, where string, args ...any) (map[int64][]itemRow, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT transfer_seq, item_code, item_name, quantity, unit_cost
		 FROM transfer_items `+where+`
		 ORDER BY transfer_seq, position`, args...,
	)
	if err != nil {
		return nil, fmt.Errorf("listing line items: %w", err)
	}
	defer rows.Close()

	items := make(map[int64][]itemRow)
	for rows.Next() {
		var seq int64
		var ir itemRow
		if err := rows.Scan(&seq, &ir.code, &ir.name, &ir.quantity, &ir.unitCost); err != nil {
			return nil, fmt.Errorf("scanning line item: %w", err)
		}
		items[seq] = append(items[seq], ir)
	}
	return items, rows.Err()
}

// UpdateTransferStatus persists a status change. The write only lands if the
// stored row still has prev's status and version; otherwise ErrConflict.
func UpdateTransferStatus(ctx context.Context, db *sql.DB, prev, next model.Transfer) (*model.Transfer, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE transfers
		 SET status = ?, completed_date = ?, version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE code = ? AND status = ? AND version = ?`,
		string(next.Status), dateValue(next.CompletedDate),
		prev.ID, string(prev.Status), prev.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("updating transfer status: %w", err)
	}

	if err := checkCAS(ctx, db, result, prev.ID); err != nil {
		return nil, err
	}
	return GetTransfer(ctx, db, prev.ID)
}

// UpdateTransferDetails rewrites the editable fields and line items of a
// pending transfer, guarded by version like UpdateTransferStatus.
func UpdateTransferDetails(ctx context.Context, db *sql.DB, t model.Transfer) (*model.Transfer, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE transfers
		 SET from_location = ?, to_location = ?, expected_date = ?, priority = ?, reason = ?, notes = ?,
		     version = version + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE code = ? AND status = 'pending' AND version = ?`,
		strings.TrimSpace(t.FromLocation), strings.TrimSpace(t.ToLocation), t.ExpectedDate.String(),
		string(t.Priority), t.Reason, t.Notes, t.ID, t.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("updating transfer: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking update: %w", err)
	}

	if n == 1 {
		var seq int64
		if err := tx.QueryRowContext(ctx, `SELECT seq FROM transfers WHERE code = ?`, t.ID).Scan(&seq); err != nil {
			return nil, fmt.Errorf("resolving transfer: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM transfer_items WHERE transfer_seq = ?`, seq); err != nil {
			return nil, fmt.Errorf("clearing line items: %w", err)
		}
		if err := insertItems(ctx, tx, seq, t.Items); err != nil {
			return nil, err
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("committing transfer update: %w", err)
		}
		return GetTransfer(ctx, db, t.ID)
	}

	tx.Rollback()
	return nil, missingOrConflict(ctx, db, t.ID)
}

func checkCAS(ctx context.Context, db *sql.DB, result sql.Result, id string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if n == 1 {
		return nil
	}
	return missingOrConflict(ctx, db, id)
}

// missingOrConflict returns ErrNotFound if id does not exist, else ErrConflict.
func missingOrConflict(ctx context.Context, db *sql.DB, id string) error {
	var exists int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transfers WHERE code = ?`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking transfer: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}
	return ErrConflict
}
