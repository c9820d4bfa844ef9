package model

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"
)

// ErrInvalidTransition is returned (wrapped) when an action is not allowed
// from a transfer's current status.
var ErrInvalidTransition = errors.New("invalid status transition")

// Action is a user operation on a single transfer.
type Action string

// Actions.
const (
	ActionApprove  Action = "approve"
	ActionCancel   Action = "cancel"
	ActionStart    Action = "start"
	ActionComplete Action = "complete"
	ActionEdit     Action = "edit"
)

// Actions lists every action in display order.
var Actions = []Action{ActionApprove, ActionStart, ActionComplete, ActionEdit, ActionCancel}

type transition struct {
	from []Status
	to   Status
}

// transitions is the complete state machine. Any (status, action) pair not
// listed here is rejected. Edit keeps the status.
var transitions = map[Action]transition{
	ActionApprove:  {from: []Status{StatusPending}, to: StatusApproved},
	ActionCancel:   {from: []Status{StatusPending, StatusApproved}, to: StatusCancelled},
	ActionStart:    {from: []Status{StatusApproved}, to: StatusInTransit},
	ActionComplete: {from: []Status{StatusInTransit}, to: StatusCompleted},
	ActionEdit:     {from: []Status{StatusPending}, to: StatusPending},
}

// ParseAction parses an action name.
func ParseAction(v string) (Action, error) {
	a := Action(v)
	if _, ok := transitions[a]; !ok {
		return "", fmt.Errorf("unknown action %q", v)
	}
	return a, nil
}

// Allowed reports whether action may be invoked from status.
func Allowed(status Status, action Action) bool {
	tr, ok := transitions[action]
	if !ok {
		return false
	}
	for _, s := range tr.from {
		if s == status {
			return true
		}
	}
	return false
}

// Transition returns the status reached by applying action to status.
func Transition(status Status, action Action) (Status, error) {
	if !Allowed(status, action) {
		return status, fmt.Errorf("%w: cannot %s a %s transfer", ErrInvalidTransition, action, status)
	}
	return transitions[action].to, nil
}

// AvailableActions returns the actions offered for a transfer in status.
// Terminal statuses offer none.
func AvailableActions(status Status) []Action {
	var out []Action
	for _, a := range Actions {
		if Allowed(status, a) {
			out = append(out, a)
		}
	}
	return out
}

// Apply returns a copy of t with action applied. Completing stamps today as
// the completion date. t itself is never modified.
func Apply(t Transfer, action Action, today civil.Date) (Transfer, error) {
	next, err := Transition(t.Status, action)
	if err != nil {
		return t, fmt.Errorf("transfer %s: %w", t.ID, err)
	}

	out := t.Clone()
	out.Status = next
	if next == StatusCompleted {
		d := today
		out.CompletedDate = &d
	}
	return out, nil
}
