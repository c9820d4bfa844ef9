package model

import (
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func TestTransitionTable(t *testing.T) {
	allowed := map[Status]map[Action]Status{
		StatusPending: {
			ActionApprove: StatusApproved,
			ActionCancel:  StatusCancelled,
			ActionEdit:    StatusPending,
		},
		StatusApproved: {
			ActionStart:  StatusInTransit,
			ActionCancel: StatusCancelled,
		},
		StatusInTransit: {
			ActionComplete: StatusCompleted,
		},
	}

	for _, s := range Statuses {
		for _, a := range Actions {
			want, ok := allowed[s][a]
			got, err := Transition(s, a)
			if ok {
				if err != nil {
					t.Errorf("Transition(%s, %s) unexpected error: %v", s, a, err)
				}
				if got != want {
					t.Errorf("Transition(%s, %s) = %s, want %s", s, a, got, want)
				}
				continue
			}
			if !errors.Is(err, ErrInvalidTransition) {
				t.Errorf("Transition(%s, %s) error = %v, want ErrInvalidTransition", s, a, err)
			}
			if got != s {
				t.Errorf("Transition(%s, %s) changed status to %s on rejection", s, a, got)
			}
		}
	}
}

func TestAvailableActions(t *testing.T) {
	tests := []struct {
		status Status
		want   []Action
	}{
		{StatusPending, []Action{ActionApprove, ActionEdit, ActionCancel}},
		{StatusApproved, []Action{ActionStart, ActionCancel}},
		{StatusInTransit, []Action{ActionComplete}},
		{StatusCompleted, nil},
		{StatusCancelled, nil},
	}

	for _, tt := range tests {
		got := AvailableActions(tt.status)
		if len(got) != len(tt.want) {
			t.Errorf("AvailableActions(%s) = %v, want %v", tt.status, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("AvailableActions(%s) = %v, want %v", tt.status, got, tt.want)
				break
			}
		}
	}
}

func TestApplyCompleteStampsDate(t *testing.T) {
	today := civil.Date{Year: 2024, Month: 1, Day: 20}
	tr := Transfer{
		ID:     "TRF004",
		Status: StatusInTransit,
		Items:  []LineItem{{ItemCode: "A", Quantity: 1, UnitCost: decimal.NewFromInt(5)}},
	}

	done, err := Apply(tr, ActionComplete, today)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Errorf("expected completed, got %s", done.Status)
	}
	if done.CompletedDate == nil || *done.CompletedDate != today {
		t.Errorf("expected completed date %s, got %v", today, done.CompletedDate)
	}

	// Original is untouched.
	if tr.Status != StatusInTransit || tr.CompletedDate != nil {
		t.Errorf("Apply modified its input: %+v", tr)
	}

	// Completed is terminal.
	again, err := Apply(done, ActionApprove, today)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if again.Status != StatusCompleted {
		t.Errorf("rejected apply changed status to %s", again.Status)
	}
}

func TestParseAction(t *testing.T) {
	if _, err := ParseAction("approve"); err != nil {
		t.Errorf("ParseAction(approve): %v", err)
	}
	if _, err := ParseAction("delete"); err == nil {
		t.Error("expected error for unknown action")
	}
}
