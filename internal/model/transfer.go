package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// ErrInvalid is returned (wrapped) when a transfer fails validation.
var ErrInvalid = errors.New("invalid transfer")

// Status is the lifecycle state of a transfer.
type Status string

// Transfer statuses.
const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusInTransit Status = "in_transit"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusPending, StatusApproved, StatusInTransit, StatusCompleted, StatusCancelled}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusInTransit, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transitions leave s.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// InProgress reports whether s counts as "in progress" (approved or in transit).
func (s Status) InProgress() bool {
	return s == StatusApproved || s == StatusInTransit
}

// ParseStatus parses a status name, case-insensitively.
func ParseStatus(v string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", v)
	}
	return s, nil
}

// Priority is an independent urgency marker with no transition rules.
type Priority string

// Priorities.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}

// ParsePriority parses a priority name. Empty input yields medium.
func ParsePriority(v string) (Priority, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" {
		return PriorityMedium, nil
	}
	p := Priority(v)
	if !p.Valid() {
		return "", fmt.Errorf("unknown priority %q", v)
	}
	return p, nil
}

// LineItem is one article moved by a transfer.
type LineItem struct {
	ItemCode string          `json:"item_code"`
	ItemName string          `json:"item_name"`
	Quantity int             `json:"quantity"`
	UnitCost decimal.Decimal `json:"unit_cost"`
}

// Subtotal returns quantity times unit cost.
func (li LineItem) Subtotal() decimal.Decimal {
	return li.UnitCost.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Transfer is a request to move line items from one location to another.
// The total value is always derived from the line items.
type Transfer struct {
	ID            string      `json:"id"`
	FromLocation  string      `json:"from_location"`
	ToLocation    string      `json:"to_location"`
	RequestedBy   string      `json:"requested_by"`
	RequestDate   civil.Date  `json:"request_date"`
	ExpectedDate  civil.Date  `json:"expected_date"`
	CompletedDate *civil.Date `json:"completed_date,omitempty"`
	Status        Status      `json:"status"`
	Priority      Priority    `json:"priority"`
	Reason        string      `json:"reason"`
	Notes         string      `json:"notes,omitempty"`
	Items         []LineItem  `json:"items"`
	Version       int64       `json:"version"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// TotalValue sums the line item subtotals.
func (t Transfer) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, li := range t.Items {
		total = total.Add(li.Subtotal())
	}
	return total
}

// Quantity returns the number of units across all line items.
func (t Transfer) Quantity() int {
	n := 0
	for _, li := range t.Items {
		n += li.Quantity
	}
	return n
}

// Clone returns a copy that shares no slices or pointers with t.
func (t Transfer) Clone() Transfer {
	c := t
	if t.Items != nil {
		c.Items = make([]LineItem, len(t.Items))
		copy(c.Items, t.Items)
	}
	if t.CompletedDate != nil {
		d := *t.CompletedDate
		c.CompletedDate = &d
	}
	return c
}

// MarshalJSON adds the derived total_value to the encoded transfer.
func (t Transfer) MarshalJSON() ([]byte, error) {
	type plain Transfer
	return json.Marshal(struct {
		plain
		TotalValue decimal.Decimal `json:"total_value"`
	}{plain(t), t.TotalValue()})
}

// Validate checks the transfer invariants. Errors wrap ErrInvalid.
func (t Transfer) Validate() error {
	switch {
	case strings.TrimSpace(t.FromLocation) == "":
		return fmt.Errorf("%w: from location required", ErrInvalid)
	case strings.TrimSpace(t.ToLocation) == "":
		return fmt.Errorf("%w: to location required", ErrInvalid)
	case strings.EqualFold(strings.TrimSpace(t.FromLocation), strings.TrimSpace(t.ToLocation)):
		return fmt.Errorf("%w: from and to location must differ", ErrInvalid)
	case strings.TrimSpace(t.RequestedBy) == "":
		return fmt.Errorf("%w: requester required", ErrInvalid)
	case !t.RequestDate.IsValid():
		return fmt.Errorf("%w: request date required", ErrInvalid)
	case !t.ExpectedDate.IsValid():
		return fmt.Errorf("%w: expected date required", ErrInvalid)
	case t.ExpectedDate.Before(t.RequestDate):
		return fmt.Errorf("%w: expected date before request date", ErrInvalid)
	case !t.Status.Valid():
		return fmt.Errorf("%w: unknown status %q", ErrInvalid, t.Status)
	case !t.Priority.Valid():
		return fmt.Errorf("%w: unknown priority %q", ErrInvalid, t.Priority)
	case len(t.Items) == 0:
		return fmt.Errorf("%w: at least one line item required", ErrInvalid)
	}

	if t.Status == StatusCompleted && t.CompletedDate == nil {
		return fmt.Errorf("%w: completed transfer without completion date", ErrInvalid)
	}
	if t.Status != StatusCompleted && t.CompletedDate != nil {
		return fmt.Errorf("%w: completion date on %s transfer", ErrInvalid, t.Status)
	}

	for i, li := range t.Items {
		if strings.TrimSpace(li.ItemCode) == "" {
			return fmt.Errorf("%w: item %d: code required", ErrInvalid, i+1)
		}
		if li.Quantity <= 0 {
			return fmt.Errorf("%w: item %s: quantity must be positive", ErrInvalid, li.ItemCode)
		}
		if li.UnitCost.IsNegative() {
			return fmt.Errorf("%w: item %s: unit cost must not be negative", ErrInvalid, li.ItemCode)
		}
	}
	return nil
}

// FormatTransferID renders the display id for a sequence number.
func FormatTransferID(seq int64) string {
	return fmt.Sprintf("TRF%03d", seq)
}
