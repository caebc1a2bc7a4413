package boq

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"sitecanvas/canvas"
)

const sheetName = "BOQ"

// Column order is fixed; the header row is presentation only and never parsed.
var exportHeader = []string{
	"ID", "No", "Work Item", "Unit",
	"Design Qty", "Actual Qty", "Plan Qty",
	"Unit Price", "Contract Amount", "Actual Amount", "Plan Amount",
}

func cellText(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

// cellNumber tolerates thousands separators; anything unparseable reads as zero.
func cellNumber(row []string, i int) float64 {
	raw := strings.ReplaceAll(cellText(row, i), ",", "")
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return v
}

// ParseWorkbook reads the first sheet of an xlsx bill of quantities. Row 1 is
// the header and is skipped; rows with an empty ID cell are skipped. The
// contract amount is always recomputed as designQty * unitPrice regardless of
// what the sheet carries in that column.
func ParseWorkbook(r io.Reader) ([]canvas.BOQItem, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}

	items := make([]canvas.BOQItem, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		id := cellText(row, 0)
		if id == "" {
			continue
		}
		item := canvas.BOQItem{
			ID:           id,
			Order:        int(cellNumber(row, 1)),
			Name:         cellText(row, 2),
			Unit:         cellText(row, 3),
			DesignQty:    cellNumber(row, 4),
			ActualQty:    cellNumber(row, 5),
			PlanQty:      cellNumber(row, 6),
			UnitPrice:    cellNumber(row, 7),
			ActualAmount: cellNumber(row, 9),
			PlanAmount:   cellNumber(row, 10),
		}
		item.ContractAmount = item.DesignQty * item.UnitPrice
		items = append(items, item)
	}
	return items, nil
}

// BuildWorkbook renders the master table as an xlsx file with a header row,
// one row per item, and a totals row for the three amount columns.
func BuildWorkbook(items []canvas.BOQItem) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &exportHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	var totalContract, totalActual, totalPlan float64
	for i, item := range items {
		ref, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := []any{
			item.ID, item.Order, item.Name, item.Unit,
			item.DesignQty, item.ActualQty, item.PlanQty,
			item.UnitPrice, item.ContractAmount, item.ActualAmount, item.PlanAmount,
		}
		if err := f.SetSheetRow(sheetName, ref, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
		totalContract += item.ContractAmount
		totalActual += item.ActualAmount
		totalPlan += item.PlanAmount
	}

	ref, err := excelize.CoordinatesToCellName(1, len(items)+2)
	if err != nil {
		return nil, err
	}
	totals := []any{"", "", "Total", "", "", "", "", "", totalContract, totalActual, totalPlan}
	if err := f.SetSheetRow(sheetName, ref, &totals); err != nil {
		return nil, fmt.Errorf("write totals: %w", err)
	}
	return f, nil
}
