package transfer

import (
	"github.com/shopspring/decimal"

	"github.com/erazemk/prenos/internal/model"
)

// Summary aggregates the full, unfiltered transfer set.
type Summary struct {
	Total      int             `json:"total"`
	Pending    int             `json:"pending_count"`
	InProgress int             `json:"in_progress_count"`
	Completed  int             `json:"completed_count"`
	Cancelled  int             `json:"cancelled_count"`
	TotalValue decimal.Decimal `json:"total_value"`
}

// Summarize counts transfers per group and sums their line item values.
func Summarize(transfers []model.Transfer) Summary {
	s := Summary{TotalValue: decimal.Zero}
	for _, t := range transfers {
		s.Total++
		switch {
		case t.Status == model.StatusPending:
			s.Pending++
		case t.Status.InProgress():
			s.InProgress++
		case t.Status == model.StatusCompleted:
			s.Completed++
		case t.Status == model.StatusCancelled:
			s.Cancelled++
		}
		s.TotalValue = s.TotalValue.Add(t.TotalValue())
	}
	return s
}

// TabCount returns the badge count for tab.
func (s Summary) TabCount(tab Tab) int {
	switch tab {
	case TabPending:
		return s.Pending
	case TabInProgress:
		return s.InProgress
	case TabCompleted:
		return s.Completed
	}
	return s.Total
}
