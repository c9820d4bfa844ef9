package transfer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cloud.google.com/go/civil"
	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/store"
)

const (
	transfersCacheKey = "transfers:all"

	// DefaultCacheTTL bounds how long a loaded transfer set is reused.
	DefaultCacheTTL = 30 * time.Second
)

// Service runs list views and transitions against the database. Each call
// builds its own Controller, so no view state is shared between requests.
type Service struct {
	DB *sql.DB

	cache *cache.Cache
	now   func() time.Time

	mu  sync.Mutex
	gen uint64 // bumped by every write
}

// NewService creates a Service. A ttl of zero uses DefaultCacheTTL.
func NewService(db *sql.DB, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{
		DB:    db,
		cache: cache.New(ttl, 2*ttl),
		now:   time.Now,
	}
}

// SetClock overrides the service clock (used for completion dates).
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Today returns the current calendar date in local time.
func (s *Service) Today() civil.Date { return civil.DateOf(s.now()) }

// storeBackend persists status changes through the store's compare-and-swap.
type storeBackend struct {
	db *sql.DB
}

func (b storeBackend) Persist(ctx context.Context, prev, next model.Transfer) (*model.Transfer, error) {
	return store.UpdateTransferStatus(ctx, b.db, prev, next)
}

// load returns all well-formed transfers, from cache when fresh. Malformed
// rows are logged and left out.
func (s *Service) load(ctx context.Context) ([]model.Transfer, error) {
	if cached, ok := s.cache.Get(transfersCacheKey); ok {
		return cached.([]model.Transfer), nil
	}

	gen := s.generation()
	transfers, bad, err := store.ListTransfers(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	for _, rowErr := range bad {
		slog.Warn("skipping malformed transfer", "seq", rowErr.Seq, "id", rowErr.ID, "error", rowErr.Err)
	}

	s.fill(gen, transfers)
	return transfers, nil
}

func (s *Service) generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen
}

// fill caches a set read at generation gen. A write that landed while the
// set was being read has moved the generation on, and the set is dropped.
func (s *Service) fill(gen uint64, transfers []model.Transfer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return false
	}
	s.cache.SetDefault(transfersCacheKey, transfers)
	return true
}

func (s *Service) invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.cache.Delete(transfersCacheKey)
}

// Controller returns a controller over all transfers with f applied.
func (s *Service) Controller(ctx context.Context, f Filter) (*Controller, error) {
	transfers, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	c, err := NewController(transfers, storeBackend{db: s.DB})
	if err != nil {
		return nil, err
	}
	c.SetFilter(f)
	return c, nil
}

// List returns the list view for f.
func (s *Service) List(ctx context.Context, f Filter) (View, error) {
	c, err := s.Controller(ctx, f)
	if err != nil {
		return View{}, err
	}
	return c.View(), nil
}

// Get returns a single transfer, read straight from the database.
func (s *Service) Get(ctx context.Context, id string) (*model.Transfer, error) {
	t, err := store.GetTransfer(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, fmt.Errorf("transfer %s: %w", id, ErrNotFound)
	}
	return t, nil
}

// ItemRequest is one requested line item. Name and unit cost fall back to
// the catalog entry for the code when omitted.
type ItemRequest struct {
	ItemCode string           `json:"item_code"`
	ItemName string           `json:"item_name"`
	Quantity int              `json:"quantity"`
	UnitCost *decimal.Decimal `json:"unit_cost"`
}

// CreateRequest is the input of the create-transfer action.
type CreateRequest struct {
	FromLocation string        `json:"from_location"`
	ToLocation   string        `json:"to_location"`
	ExpectedDate civil.Date    `json:"expected_date"`
	Priority     string        `json:"priority"`
	Reason       string        `json:"reason"`
	Notes        string        `json:"notes"`
	Items        []ItemRequest `json:"items"`
}

// EditRequest is the input of the edit action on a pending transfer.
// Version, when non-zero, must match the stored version.
type EditRequest struct {
	CreateRequest
	Version int64 `json:"version"`
}

// Create stores a new pending transfer requested today by requestedBy.
func (s *Service) Create(ctx context.Context, req CreateRequest, requestedBy string, createdBy *int64) (*model.Transfer, error) {
	t, err := s.build(ctx, req)
	if err != nil {
		return nil, err
	}
	t.RequestedBy = requestedBy
	t.RequestDate = s.Today()
	t.Status = model.StatusPending

	created, err := store.CreateTransfer(ctx, s.DB, t, createdBy)
	if err != nil {
		return nil, err
	}
	s.invalidate()

	slog.Info("transfer created", "id", created.ID, "from", created.FromLocation, "to", created.ToLocation,
		"items", len(created.Items), "value", created.TotalValue().StringFixed(2), "by", requestedBy)
	return created, nil
}

// Edit rewrites a pending transfer's details. Non-pending transfers are
// rejected with model.ErrInvalidTransition.
func (s *Service) Edit(ctx context.Context, id string, req EditRequest) (*model.Transfer, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := model.Transition(current.Status, model.ActionEdit); err != nil {
		return nil, fmt.Errorf("transfer %s: %w", id, err)
	}
	if req.Version != 0 && req.Version != current.Version {
		return nil, fmt.Errorf("transfer %s: %w", id, ErrConflict)
	}

	t, err := s.build(ctx, req.CreateRequest)
	if err != nil {
		return nil, err
	}
	t.ID = current.ID
	t.RequestedBy = current.RequestedBy
	t.RequestDate = current.RequestDate
	t.Status = current.Status
	t.Version = current.Version

	updated, err := store.UpdateTransferDetails(ctx, s.DB, t)
	s.invalidate()
	if err != nil {
		return nil, err
	}

	slog.Info("transfer edited", "id", id, "version", updated.Version)
	return updated, nil
}

// Transition applies action to the transfer with id and persists it. The
// record is read fresh so the write is checked against the current version.
func (s *Service) Transition(ctx context.Context, id string, action model.Action) (*model.Transfer, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	c, err := NewController([]model.Transfer{*current}, storeBackend{db: s.DB})
	if err != nil {
		return nil, err
	}

	next, err := c.Apply(ctx, id, action, s.Today())
	if err != nil {
		if errors.Is(err, ErrConflict) {
			s.invalidate()
		}
		return nil, err
	}
	s.invalidate()

	slog.Info("transfer transitioned", "id", id, "action", action, "from", current.Status, "to", next.Status)
	return &next, nil
}

// RenameLocation renames a location and the open transfers that use it.
func (s *Service) RenameLocation(ctx context.Context, id int64, name string) error {
	err := store.UpdateLocation(ctx, s.DB, id, strings.TrimSpace(name))
	s.invalidate()
	return err
}

// build turns a request into an unsaved transfer, filling line items from the
// catalog and canonicalizing known location names.
func (s *Service) build(ctx context.Context, req CreateRequest) (model.Transfer, error) {
	priority, err := model.ParsePriority(req.Priority)
	if err != nil {
		return model.Transfer{}, fmt.Errorf("%w: %v", model.ErrInvalid, err)
	}

	t := model.Transfer{
		FromLocation: s.locationName(ctx, req.FromLocation),
		ToLocation:   s.locationName(ctx, req.ToLocation),
		ExpectedDate: req.ExpectedDate,
		Priority:     priority,
		Reason:       strings.TrimSpace(req.Reason),
		Notes:        strings.TrimSpace(req.Notes),
	}

	for _, ir := range req.Items {
		li := model.LineItem{
			ItemCode: strings.TrimSpace(ir.ItemCode),
			ItemName: strings.TrimSpace(ir.ItemName),
			Quantity: ir.Quantity,
		}
		if ir.UnitCost != nil {
			li.UnitCost = *ir.UnitCost
		}

		if li.ItemName == "" || ir.UnitCost == nil {
			item, err := store.GetCatalogItemByCode(ctx, s.DB, li.ItemCode)
			if err != nil {
				return model.Transfer{}, err
			}
			if item == nil && ir.UnitCost == nil {
				return model.Transfer{}, fmt.Errorf("%w: item %s: unknown code and no unit cost", model.ErrInvalid, li.ItemCode)
			}
			if item != nil {
				if li.ItemName == "" {
					li.ItemName = item.Name
				}
				if ir.UnitCost == nil {
					li.UnitCost = item.UnitCost
				}
			}
		}
		if li.ItemName == "" {
			li.ItemName = li.ItemCode
		}
		t.Items = append(t.Items, li)
	}

	return t, nil
}

func (s *Service) locationName(ctx context.Context, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}
	loc, err := store.GetLocationByName(ctx, s.DB, name)
	if err != nil {
		slog.Warn("location lookup failed", "name", name, "error", err)
		return name
	}
	if loc == nil {
		return name
	}
	return loc.Name
}
