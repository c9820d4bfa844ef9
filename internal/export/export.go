// Package export serializes transfer lists to CSV and XLSX downloads.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/erazemk/prenos/internal/model"
)

// Format is a download format.
type Format string

// Formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// ParseFormat parses a format name. Empty input means CSV.
func ParseFormat(v string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(v))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatXLSX:
		return f, nil
	}
	return "", fmt.Errorf("unknown export format %q", v)
}

// ContentType returns the MIME type of f.
func (f Format) ContentType() string {
	if f == FormatXLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// Filename returns the download name for an export taken at now.
func Filename(f Format, now time.Time) string {
	return fmt.Sprintf("transfers_%s.%s", now.Format("20060102_150405"), f)
}

// Write serializes transfers in format f.
func Write(w io.Writer, f Format, transfers []model.Transfer) error {
	if f == FormatXLSX {
		return WriteXLSX(w, transfers)
	}
	return WriteCSV(w, transfers)
}

var csvHeader = []string{
	"id", "from_location", "to_location", "requested_by", "request_date", "expected_date",
	"completed_date", "status", "priority", "reason", "notes",
	"item_code", "item_name", "quantity", "unit_cost", "subtotal", "transfer_total",
}

// WriteCSV writes one row per line item, repeating the transfer columns.
func WriteCSV(w io.Writer, transfers []model.Transfer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	for _, t := range transfers {
		completed := ""
		if t.CompletedDate != nil {
			completed = t.CompletedDate.String()
		}
		total := t.TotalValue().StringFixed(2)

		for _, li := range t.Items {
			record := []string{
				t.ID, t.FromLocation, t.ToLocation, t.RequestedBy,
				t.RequestDate.String(), t.ExpectedDate.String(), completed,
				string(t.Status), string(t.Priority), t.Reason, t.Notes,
				li.ItemCode, li.ItemName, strconv.Itoa(li.Quantity),
				li.UnitCost.StringFixed(2), li.Subtotal().StringFixed(2), total,
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("writing csv row for %s: %w", t.ID, err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}

const (
	transfersSheet = "Transfers"
	itemsSheet     = "Items"
)

var (
	transferHeaders = []string{"ID", "From", "To", "Requested by", "Requested", "Expected", "Completed", "Status", "Priority", "Items", "Quantity", "Total value", "Reason", "Notes"}
	transferWidths  = []float64{10, 18, 18, 18, 12, 12, 12, 12, 10, 8, 10, 14, 30, 30}
	itemHeaders     = []string{"Transfer", "Item code", "Item name", "Quantity", "Unit cost", "Subtotal"}
	itemWidths      = []float64{10, 12, 28, 10, 12, 14}
)

// WriteXLSX writes a workbook with a Transfers sheet (one row per transfer
// plus a summary row) and an Items sheet (one row per line item).
func WriteXLSX(w io.Writer, transfers []model.Transfer) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", transfersSheet)
	if _, err := f.NewSheet(itemsSheet); err != nil {
		return fmt.Errorf("creating items sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "#000000", Style: 1},
		},
	})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	summaryStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("creating summary style: %w", err)
	}

	writeHeader(f, transfersSheet, transferHeaders, transferWidths, headerStyle)
	writeHeader(f, itemsSheet, itemHeaders, itemWidths, headerStyle)

	total := decimal.Zero
	itemRow := 2
	for i, t := range transfers {
		row := i + 2
		completed := ""
		if t.CompletedDate != nil {
			completed = t.CompletedDate.String()
		}
		value := t.TotalValue()
		total = total.Add(value)

		f.SetCellValue(transfersSheet, fmt.Sprintf("A%d", row), t.ID)
		f.SetCellValue(transfersSheet, fmt.Sprintf("B%d", row), t.FromLocation)
		f.SetCellValue(transfersSheet, fmt.Sprintf("C%d", row), t.ToLocation)
		f.SetCellValue(transfersSheet, fmt.Sprintf("D%d", row), t.RequestedBy)
		f.SetCellValue(transfersSheet, fmt.Sprintf("E%d", row), t.RequestDate.String())
		f.SetCellValue(transfersSheet, fmt.Sprintf("F%d", row), t.ExpectedDate.String())
		f.SetCellValue(transfersSheet, fmt.Sprintf("G%d", row), completed)
		f.SetCellValue(transfersSheet, fmt.Sprintf("H%d", row), string(t.Status))
		f.SetCellValue(transfersSheet, fmt.Sprintf("I%d", row), string(t.Priority))
		f.SetCellValue(transfersSheet, fmt.Sprintf("J%d", row), len(t.Items))
		f.SetCellValue(transfersSheet, fmt.Sprintf("K%d", row), t.Quantity())
		f.SetCellValue(transfersSheet, fmt.Sprintf("L%d", row), value.InexactFloat64())
		f.SetCellValue(transfersSheet, fmt.Sprintf("M%d", row), t.Reason)
		f.SetCellValue(transfersSheet, fmt.Sprintf("N%d", row), t.Notes)

		for _, li := range t.Items {
			f.SetCellValue(itemsSheet, fmt.Sprintf("A%d", itemRow), t.ID)
			f.SetCellValue(itemsSheet, fmt.Sprintf("B%d", itemRow), li.ItemCode)
			f.SetCellValue(itemsSheet, fmt.Sprintf("C%d", itemRow), li.ItemName)
			f.SetCellValue(itemsSheet, fmt.Sprintf("D%d", itemRow), li.Quantity)
			f.SetCellValue(itemsSheet, fmt.Sprintf("E%d", itemRow), li.UnitCost.InexactFloat64())
			f.SetCellValue(itemsSheet, fmt.Sprintf("F%d", itemRow), li.Subtotal().InexactFloat64())
			itemRow++
		}
	}

	summaryRow := len(transfers) + 3
	f.SetCellValue(transfersSheet, fmt.Sprintf("A%d", summaryRow), "Total")
	f.SetCellValue(transfersSheet, fmt.Sprintf("B%d", summaryRow), fmt.Sprintf("%d transfers", len(transfers)))
	f.SetCellValue(transfersSheet, fmt.Sprintf("L%d", summaryRow), total.InexactFloat64())
	f.SetCellStyle(transfersSheet, fmt.Sprintf("A%d", summaryRow), fmt.Sprintf("N%d", summaryRow), summaryStyle)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string, widths []float64, style int) {
	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := fmt.Sprintf("%s1", col)
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, style)
	}
	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}
}
