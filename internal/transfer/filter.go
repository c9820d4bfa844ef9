package transfer

import (
	"fmt"
	"strings"

	"github.com/erazemk/prenos/internal/model"
)

// StatusFilter is either StatusAll or a single model.Status.
type StatusFilter string

// StatusAll disables status filtering.
const StatusAll StatusFilter = "all"

// ParseStatusFilter parses a status filter. Empty input means all.
func ParseStatusFilter(v string) (StatusFilter, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" || v == string(StatusAll) {
		return StatusAll, nil
	}
	s, err := model.ParseStatus(v)
	if err != nil {
		return "", err
	}
	return StatusFilter(s), nil
}

// Tab is a coarse grouping over statuses.
type Tab string

// Tabs.
const (
	TabAll        Tab = "all"
	TabPending    Tab = "pending"
	TabInProgress Tab = "in_progress"
	TabCompleted  Tab = "completed"
)

// Tabs lists the tabs in display order.
var Tabs = []Tab{TabAll, TabPending, TabInProgress, TabCompleted}

// ParseTab parses a tab name. Empty input means all.
func ParseTab(v string) (Tab, error) {
	t := Tab(strings.ToLower(strings.TrimSpace(v)))
	switch t {
	case "":
		return TabAll, nil
	case TabAll, TabPending, TabInProgress, TabCompleted:
		return t, nil
	}
	return "", fmt.Errorf("unknown tab %q", v)
}

// Includes reports whether a transfer in status belongs on tab. Cancelled
// transfers only appear on the all tab.
func (t Tab) Includes(s model.Status) bool {
	switch t {
	case TabAll, "":
		return true
	case TabPending:
		return s == model.StatusPending
	case TabInProgress:
		return s.InProgress()
	case TabCompleted:
		return s == model.StatusCompleted
	}
	return false
}

// Filter is the list view's filter state. The zero value filters nothing.
type Filter struct {
	Search string       `json:"search"`
	Status StatusFilter `json:"status"`
	Tab    Tab          `json:"tab"`
}

// ParseFilter builds a Filter from raw user input.
func ParseFilter(search, status, tab string) (Filter, error) {
	sf, err := ParseStatusFilter(status)
	if err != nil {
		return Filter{}, err
	}
	tb, err := ParseTab(tab)
	if err != nil {
		return Filter{}, err
	}
	return Filter{Search: search, Status: sf, Tab: tb}, nil
}

func (f Filter) normalize() Filter {
	if f.Status == "" {
		f.Status = StatusAll
	}
	if f.Tab == "" {
		f.Tab = TabAll
	}
	return f
}

// Active reports whether any predicate narrows the list.
func (f Filter) Active() bool {
	f = f.normalize()
	return f.Search != "" || f.Status != StatusAll || f.Tab != TabAll
}

// Matches reports whether t passes the search, status and tab predicates.
func Matches(t model.Transfer, f Filter) bool {
	f = f.normalize()
	return matchesSearch(t, f.Search) &&
		(f.Status == StatusAll || model.Status(f.Status) == t.Status) &&
		f.Tab.Includes(t.Status)
}

func matchesSearch(t model.Transfer, term string) bool {
	if term == "" {
		return true
	}
	term = strings.ToLower(term)
	for _, field := range []string{t.ID, t.FromLocation, t.ToLocation, t.RequestedBy} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// FilterTransfers returns the transfers matching f in their original order.
// The result is never nil.
func FilterTransfers(transfers []model.Transfer, f Filter) []model.Transfer {
	out := make([]model.Transfer, 0, len(transfers))
	for _, t := range transfers {
		if Matches(t, f) {
			out = append(out, t)
		}
	}
	return out
}
