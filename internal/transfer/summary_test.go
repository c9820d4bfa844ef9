package transfer

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/erazemk/prenos/internal/seed"
)

func TestSummarizeSample(t *testing.T) {
	s := Summarize(seed.Transfers())

	if s.Total != 5 || s.Pending != 1 || s.InProgress != 2 || s.Completed != 1 || s.Cancelled != 1 {
		t.Errorf("unexpected counts %+v", s)
	}
	if !s.TotalValue.Equal(decimal.RequireFromString("8643.69")) {
		t.Errorf("expected total value 8643.69, got %s", s.TotalValue)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	if s.Total != 0 || !s.TotalValue.IsZero() {
		t.Errorf("expected zero summary, got %+v", s)
	}
}

func TestTabCount(t *testing.T) {
	s := Summarize(seed.Transfers())

	want := map[Tab]int{TabAll: 5, TabPending: 1, TabInProgress: 2, TabCompleted: 1}
	for tab, n := range want {
		if got := s.TabCount(tab); got != n {
			t.Errorf("tab %s: expected %d, got %d", tab, n, got)
		}
	}
}
