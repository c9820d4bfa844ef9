package transfer

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/seed"
)

type fakeBackend struct {
	calls int
	err   error
}

func (b *fakeBackend) Persist(_ context.Context, prev, next model.Transfer) (*model.Transfer, error) {
	b.calls++
	if b.err != nil {
		return nil, b.err
	}
	next.Version = prev.Version + 1
	return &next, nil
}

func newSampleController(t *testing.T, backend Backend) *Controller {
	t.Helper()
	c, err := NewController(seed.Transfers(), backend)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	return c
}

var today = civil.Date{Year: 2024, Month: 1, Day: 17}

func TestControllerInProgressTab(t *testing.T) {
	c := newSampleController(t, nil)
	c.SetTab(TabInProgress)
	c.SetStatusFilter(StatusAll)
	c.SetSearch("")

	if got := ids(c.Filtered()); !equalIDs(got, []string{"TRF002", "TRF004"}) {
		t.Errorf("expected [TRF002 TRF004], got %v", got)
	}
}

func TestControllerSearch(t *testing.T) {
	c := newSampleController(t, nil)
	c.SetSearch("warehouse a")

	if got := ids(c.Filtered()); !equalIDs(got, []string{"TRF001", "TRF003", "TRF004"}) {
		t.Errorf("expected [TRF001 TRF003 TRF004], got %v", got)
	}
}

func TestControllerCompleteThenApproveRejected(t *testing.T) {
	c := newSampleController(t, nil)

	done, err := c.Apply(context.Background(), "TRF004", model.ActionComplete, today)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != model.StatusCompleted {
		t.Errorf("expected completed, got %s", done.Status)
	}
	if done.CompletedDate == nil || *done.CompletedDate != today {
		t.Errorf("expected completed date %s, got %v", today, done.CompletedDate)
	}

	_, err = c.Apply(context.Background(), "TRF004", model.ActionApprove, today)
	if !errors.Is(err, model.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	got, _ := c.Get("TRF004")
	if got.Status != model.StatusCompleted || got.CompletedDate == nil {
		t.Errorf("rejected approve changed the record: %+v", got)
	}
}

func TestControllerSummaryIgnoresFilter(t *testing.T) {
	c := newSampleController(t, nil)
	c.SetSearch("warehouse a")
	c.SetTab(TabPending)

	s := c.Summary()
	if s.Total != 5 || s.Pending != 1 || s.InProgress != 2 || s.Completed != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestFilteredValueDivergesFromSummary(t *testing.T) {
	c := newSampleController(t, nil)
	c.SetStatusFilter(StatusFilter(model.StatusPending))

	filteredValue := decimal.Zero
	for _, r := range c.Filtered() {
		filteredValue = filteredValue.Add(r.TotalValue())
	}
	if filteredValue.Equal(c.Summary().TotalValue) {
		t.Errorf("filtered value %s should differ from global %s", filteredValue, c.Summary().TotalValue)
	}
}

func TestInvalidTransitionsLeaveRecordUnchanged(t *testing.T) {
	backend := &fakeBackend{}
	actions := []model.Action{model.ActionApprove, model.ActionCancel, model.ActionStart, model.ActionComplete, model.ActionEdit}

	for _, rec := range seed.Transfers() {
		for _, a := range actions {
			if model.Allowed(rec.Status, a) {
				continue
			}
			c := newSampleController(t, backend)
			before, _ := c.Get(rec.ID)

			_, err := c.Apply(context.Background(), rec.ID, a, today)
			if !errors.Is(err, model.ErrInvalidTransition) {
				t.Errorf("%s on %s (%s): expected ErrInvalidTransition, got %v", a, rec.ID, rec.Status, err)
			}
			after, _ := c.Get(rec.ID)
			if after.Status != before.Status || after.Version != before.Version || (after.CompletedDate == nil) != (before.CompletedDate == nil) {
				t.Errorf("%s on %s mutated the record", a, rec.ID)
			}
		}
	}
	if backend.calls != 0 {
		t.Errorf("backend called %d times for rejected transitions", backend.calls)
	}
}

func TestApplyPersistsThroughBackend(t *testing.T) {
	backend := &fakeBackend{}
	c := newSampleController(t, backend)

	next, err := c.Apply(context.Background(), "TRF001", model.ActionApprove, today)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if backend.calls != 1 {
		t.Errorf("expected one backend call, got %d", backend.calls)
	}
	if next.Status != model.StatusApproved || next.Version != 2 {
		t.Errorf("expected approved version 2, got %s version %d", next.Status, next.Version)
	}

	got, _ := c.Get("TRF001")
	if got.Status != model.StatusApproved {
		t.Errorf("local record not updated: %s", got.Status)
	}
}

func TestApplyBackendFailureKeepsRecord(t *testing.T) {
	boom := errors.New("service unavailable")
	c := newSampleController(t, &fakeBackend{err: boom})

	_, err := c.Apply(context.Background(), "TRF002", model.ActionStart, today)
	if !errors.Is(err, boom) {
		t.Fatalf("expected backend error, got %v", err)
	}

	got, _ := c.Get("TRF002")
	if got.Status != model.StatusApproved {
		t.Errorf("expected TRF002 to stay approved, got %s", got.Status)
	}
}

func TestApplyCancelFromApproved(t *testing.T) {
	c := newSampleController(t, nil)

	got, err := c.Apply(context.Background(), "TRF002", model.ActionCancel, today)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != model.StatusCancelled {
		t.Errorf("expected cancelled, got %s", got.Status)
	}
}

func TestApplyEditKeepsStatus(t *testing.T) {
	backend := &fakeBackend{}
	c := newSampleController(t, backend)

	got, err := c.Apply(context.Background(), "TRF001", model.ActionEdit, today)
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if got.Status != model.StatusPending || backend.calls != 0 {
		t.Errorf("edit should not change status or persist: %s, %d calls", got.Status, backend.calls)
	}
}

func TestApplyUnknownRecord(t *testing.T) {
	c := newSampleController(t, nil)
	if _, err := c.Apply(context.Background(), "TRF999", model.ActionApprove, today); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestViewEmptyStates(t *testing.T) {
	empty, err := NewController(nil, nil)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	v := empty.View()
	if !v.NoRecords || v.Empty {
		t.Errorf("no records: expected NoRecords only, got %+v", v)
	}

	c := newSampleController(t, nil)
	v = c.View()
	if v.NoRecords || v.Empty || v.FiltersActive || len(v.Transfers) != 5 {
		t.Errorf("unfiltered view: unexpected %+v", v)
	}

	c.SetSearch("nowhere")
	v = c.View()
	if !v.Empty || !v.FiltersActive || v.NoRecords || len(v.Transfers) != 0 {
		t.Errorf("filtered view: unexpected %+v", v)
	}
	if v.Summary.Total != 5 {
		t.Errorf("summary should stay global, got total %d", v.Summary.Total)
	}
}

func TestControllerAddKeepsOrderAndRejectsDuplicates(t *testing.T) {
	c := newSampleController(t, nil)

	extra := seed.Transfers()[0].Clone()
	extra.ID = "TRF006"
	if err := c.Add(extra); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := c.Add(extra); err == nil {
		t.Error("expected duplicate id to be rejected")
	}

	all := ids(c.Records())
	if all[len(all)-1] != "TRF006" {
		t.Errorf("expected TRF006 last, got %v", all)
	}
}

func TestControllerCopiesRecords(t *testing.T) {
	records := seed.Transfers()
	c, _ := NewController(records, nil)

	records[0].Items[0].Quantity = 999
	got, _ := c.Get("TRF001")
	if got.Items[0].Quantity == 999 {
		t.Error("controller shares line items with the caller")
	}
}
