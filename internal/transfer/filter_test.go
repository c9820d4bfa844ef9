package transfer

import (
	"strings"
	"testing"

	"github.com/erazemk/prenos/internal/model"
	"github.com/erazemk/prenos/internal/seed"
)

func ids(transfers []model.Transfer) []string {
	out := make([]string, len(transfers))
	for i, t := range transfers {
		out[i] = t.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFilterTransfersScenarios(t *testing.T) {
	records := seed.Transfers()

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"no filter", Filter{}, []string{"TRF001", "TRF002", "TRF003", "TRF004", "TRF005"}},
		{"in progress tab", Filter{Tab: TabInProgress, Status: StatusAll}, []string{"TRF002", "TRF004"}},
		{"pending tab", Filter{Tab: TabPending}, []string{"TRF001"}},
		{"completed tab", Filter{Tab: TabCompleted}, []string{"TRF003"}},
		{"search location", Filter{Search: "warehouse a"}, []string{"TRF001", "TRF003", "TRF004"}},
		{"search is case insensitive", Filter{Search: "WAREHOUSE A"}, []string{"TRF001", "TRF003", "TRF004"}},
		{"search id", Filter{Search: "trf00"}, []string{"TRF001", "TRF002", "TRF003", "TRF004", "TRF005"}},
		{"search requester", Filter{Search: "sarah"}, []string{"TRF002"}},
		{"status cancelled", Filter{Status: StatusFilter(model.StatusCancelled)}, []string{"TRF005"}},
		{"status and tab disagree", Filter{Status: StatusFilter(model.StatusCancelled), Tab: TabPending}, []string{}},
		{"search with tab", Filter{Search: "warehouse a", Tab: TabInProgress}, []string{"TRF004"}},
		{"no match", Filter{Search: "nowhere"}, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(FilterTransfers(records, tt.filter))
			if !equalIDs(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFilterTransfersNeverNil(t *testing.T) {
	if got := FilterTransfers(nil, Filter{}); got == nil {
		t.Error("expected empty slice, got nil")
	}
}

func TestSearchPredicate(t *testing.T) {
	records := seed.Transfers()

	for _, term := range []string{"", "a", "store b", "SMITH", "trf004", "c", "zzz", " "} {
		filtered := map[string]bool{}
		for _, id := range ids(FilterTransfers(records, Filter{Search: term})) {
			filtered[id] = true
		}
		lower := strings.ToLower(term)
		for _, r := range records {
			want := false
			for _, field := range []string{r.ID, r.FromLocation, r.ToLocation, r.RequestedBy} {
				if strings.Contains(strings.ToLower(field), lower) {
					want = true
				}
			}
			if filtered[r.ID] != want {
				t.Errorf("term %q, record %s: expected match=%v, got %v", term, r.ID, want, filtered[r.ID])
			}
		}
	}
}

func TestStatusPredicate(t *testing.T) {
	records := seed.Transfers()

	for _, s := range model.Statuses {
		got := FilterTransfers(records, Filter{Status: StatusFilter(s)})
		if len(got) == 0 {
			t.Errorf("status %s: expected at least one record", s)
		}
		for _, r := range got {
			if r.Status != s {
				t.Errorf("status %s: got record %s in status %s", s, r.ID, r.Status)
			}
		}
	}
}

func TestTabPredicate(t *testing.T) {
	records := seed.Transfers()

	for _, tab := range Tabs {
		filtered := map[string]bool{}
		for _, id := range ids(FilterTransfers(records, Filter{Tab: tab})) {
			filtered[id] = true
		}
		for _, r := range records {
			if filtered[r.ID] != tab.Includes(r.Status) {
				t.Errorf("tab %s, record %s (%s): included=%v", tab, r.ID, r.Status, filtered[r.ID])
			}
		}
	}
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("store", "", "")
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if f.Status != StatusAll || f.Tab != TabAll || f.Search != "store" {
		t.Errorf("unexpected filter %+v", f)
	}

	f, err = ParseFilter("", "In_Transit", "in_progress")
	if err != nil {
		t.Fatalf("ParseFilter: %v", err)
	}
	if f.Status != StatusFilter(model.StatusInTransit) || f.Tab != TabInProgress {
		t.Errorf("unexpected filter %+v", f)
	}

	if _, err := ParseFilter("", "lost", ""); err == nil {
		t.Error("expected error for unknown status")
	}
	if _, err := ParseFilter("", "", "archived"); err == nil {
		t.Error("expected error for unknown tab")
	}
}

func TestFilterActive(t *testing.T) {
	tests := []struct {
		filter Filter
		want   bool
	}{
		{Filter{}, false},
		{Filter{Status: StatusAll, Tab: TabAll}, false},
		{Filter{Search: "a"}, true},
		{Filter{Status: StatusFilter(model.StatusPending)}, true},
		{Filter{Tab: TabCompleted}, true},
	}
	for _, tt := range tests {
		if got := tt.filter.Active(); got != tt.want {
			t.Errorf("%+v: expected %v, got %v", tt.filter, tt.want, got)
		}
	}
}
