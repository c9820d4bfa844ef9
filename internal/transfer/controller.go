// Package transfer holds the transfer list view logic: filtering, summary
// statistics and status transitions over an ordered set of transfers.
package transfer

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/store"
)

// Errors shared with the store so callers match a single sentinel.
var (
	ErrNotFound = store.ErrNotFound
	ErrConflict = store.ErrConflict
)

// Backend persists a status change. It returns the record as stored, which
// becomes the controller's new local copy.
type Backend interface {
	Persist(ctx context.Context, prev, next model.Transfer) (*model.Transfer, error)
}

// View is everything a list page renders from.
type View struct {
	Transfers     []model.Transfer `json:"transfers"`
	Summary       Summary          `json:"summary"`
	Filter        Filter           `json:"filter"`
	FiltersActive bool             `json:"filters_active"`
	// Empty is true when filters are active and nothing matches.
	Empty bool `json:"empty"`
	// NoRecords is true when there are no transfers at all.
	NoRecords bool `json:"no_records"`
}

// Controller owns an ordered transfer set and the current filter state for a
// single view session. It is not safe for concurrent use.
type Controller struct {
	records []model.Transfer
	index   map[string]int
	filter  Filter
	backend Backend
}

// NewController creates a controller over a copy of records. A nil backend
// makes transitions purely local.
func NewController(records []model.Transfer, backend Backend) (*Controller, error) {
	c := &Controller{
		records: make([]model.Transfer, 0, len(records)),
		index:   make(map[string]int, len(records)),
		filter:  Filter{Status: StatusAll, Tab: TabAll},
		backend: backend,
	}
	for _, r := range records {
		if err := c.Add(r); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Add appends a record, keeping insertion order.
func (c *Controller) Add(t model.Transfer) error {
	if t.ID == "" {
		return fmt.Errorf("%w: transfer without id", model.ErrInvalid)
	}
	if _, ok := c.index[t.ID]; ok {
		return fmt.Errorf("duplicate transfer %s", t.ID)
	}
	c.index[t.ID] = len(c.records)
	c.records = append(c.records, t.Clone())
	return nil
}

// SetSearch sets the free-text search term.
func (c *Controller) SetSearch(term string) { c.filter.Search = term }

// SetStatusFilter sets the status filter.
func (c *Controller) SetStatusFilter(s StatusFilter) { c.filter.Status = s }

// SetTab sets the active tab.
func (c *Controller) SetTab(t Tab) { c.filter.Tab = t }

// SetFilter replaces the whole filter state.
func (c *Controller) SetFilter(f Filter) { c.filter = f.normalize() }

// Filter returns the current filter state.
func (c *Controller) Filter() Filter { return c.filter.normalize() }

// Get returns a copy of the record with id.
func (c *Controller) Get(id string) (model.Transfer, bool) {
	i, ok := c.index[id]
	if !ok {
		return model.Transfer{}, false
	}
	return c.records[i].Clone(), true
}

// Records returns copies of all records in insertion order.
func (c *Controller) Records() []model.Transfer {
	out := make([]model.Transfer, len(c.records))
	for i, r := range c.records {
		out[i] = r.Clone()
	}
	return out
}

// Filtered returns the records matching the current filter, in insertion order.
func (c *Controller) Filtered() []model.Transfer {
	return FilterTransfers(c.Records(), c.filter)
}

// Summary aggregates all records, ignoring the filter.
func (c *Controller) Summary() Summary {
	return Summarize(c.records)
}

// View derives the full list view state.
func (c *Controller) View() View {
	filtered := c.Filtered()
	active := c.filter.Active()
	return View{
		Transfers:     filtered,
		Summary:       c.Summary(),
		Filter:        c.Filter(),
		FiltersActive: active,
		Empty:         active && len(filtered) == 0 && len(c.records) > 0,
		NoRecords:     len(c.records) == 0,
	}
}

// Apply performs action on the record with id. The local record changes only
// after the backend (if any) confirms the write; on any error it is left as
// it was. Edit is validated but carries no status change.
func (c *Controller) Apply(ctx context.Context, id string, action model.Action, today civil.Date) (model.Transfer, error) {
	i, ok := c.index[id]
	if !ok {
		return model.Transfer{}, fmt.Errorf("transfer %s: %w", id, ErrNotFound)
	}
	prev := c.records[i]

	next, err := model.Apply(prev, action, today)
	if err != nil {
		return prev.Clone(), err
	}
	if action == model.ActionEdit {
		return prev.Clone(), nil
	}

	if c.backend != nil {
		stored, err := c.backend.Persist(ctx, prev, next)
		if err != nil {
			return prev.Clone(), fmt.Errorf("persisting %s of %s: %w", action, id, err)
		}
		if stored != nil {
			next = *stored
		}
	}

	c.records[i] = next.Clone()
	return next, nil
}
