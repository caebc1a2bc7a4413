package boq

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"

	"sitecanvas/canvas"
)

func workbookBytes(t *testing.T, rows [][]any) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	for i, row := range rows {
		ref, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("cell name: %v", err)
		}
		if err := f.SetSheetRow("Sheet1", ref, &row); err != nil {
			t.Fatalf("set row %d: %v", i+1, err)
		}
	}
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return buf
}

func TestParseWorkbookMapsFixedColumns(t *testing.T) {
	buf := workbookBytes(t, [][]any{
		{"ID", "TT", "Work Item", "Unit", "Design", "Actual", "Plan", "Price", "Contract", "ActualAmt", "PlanAmt"},
		{"B-01", 1, "Concrete C30", "m3", 120, 5, 3, 100, 999999, 500, 300},
		{"", 2, "row without id is skipped", "m", 10, 0, 0, 50, 0, 0, 0},
		{"B-02", 2, "Rebar", "t", 15, 0, 0, 900, 0, 0, 0},
	})

	items, err := ParseWorkbook(buf)
	if err != nil {
		t.Fatalf("parse workbook: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items (empty-id row skipped), got %d", len(items))
	}

	first := items[0]
	if first.ID != "B-01" || first.Order != 1 || first.Name != "Concrete C30" || first.Unit != "m3" {
		t.Fatalf("identity columns wrong: %+v", first)
	}
	if first.DesignQty != 120 || first.ActualQty != 5 || first.PlanQty != 3 || first.UnitPrice != 100 {
		t.Fatalf("quantity columns wrong: %+v", first)
	}
	if first.ContractAmount != 12000 {
		t.Fatalf("contract amount must be designQty*unitPrice, not the sheet value; got %v", first.ContractAmount)
	}
	if first.ActualAmount != 500 || first.PlanAmount != 300 {
		t.Fatalf("amount columns wrong: %+v", first)
	}
	if items[1].ContractAmount != 13500 {
		t.Fatalf("expected contract 13500 for B-02, got %v", items[1].ContractAmount)
	}
}

func TestParseWorkbookToleratesShortRowsAndJunkNumbers(t *testing.T) {
	buf := workbookBytes(t, [][]any{
		{"ID", "TT", "Name"},
		{"B-03", "n/a", "Partial row"},
		{"B-04", 4, "Formatted", "m2", "1,250.5", "", "", "2,000"},
	})

	items, err := ParseWorkbook(buf)
	if err != nil {
		t.Fatalf("parse workbook: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if items[0].Order != 0 || items[0].DesignQty != 0 || items[0].ContractAmount != 0 {
		t.Fatalf("short row should read zeros: %+v", items[0])
	}
	if items[1].DesignQty != 1250.5 || items[1].UnitPrice != 2000 {
		t.Fatalf("separators not stripped: %+v", items[1])
	}
	if items[1].ContractAmount != 1250.5*2000 {
		t.Fatalf("contract not recomputed: %v", items[1].ContractAmount)
	}
}

func TestParseWorkbookRejectsGarbage(t *testing.T) {
	if _, err := ParseWorkbook(bytes.NewBufferString("not an xlsx file")); err == nil {
		t.Fatalf("expected error for non-xlsx input")
	}
}

func TestBuildWorkbookRoundTripWithTotals(t *testing.T) {
	items := []canvas.BOQItem{
		{ID: "B-01", Order: 1, Name: "Concrete C30", Unit: "m3", DesignQty: 120, ActualQty: 5, PlanQty: 3,
			UnitPrice: 100, ContractAmount: 12000, ActualAmount: 500, PlanAmount: 300},
		{ID: "B-02", Order: 2, Name: "Rebar", Unit: "t", DesignQty: 15,
			UnitPrice: 900, ContractAmount: 13500},
	}

	f, err := BuildWorkbook(items)
	if err != nil {
		t.Fatalf("build workbook: %v", err)
	}
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		t.Fatalf("serialize workbook: %v", err)
	}
	_ = f.Close()
	data := buf.Bytes()

	out, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer out.Close()

	rows, err := out.GetRows(sheetName)
	if err != nil {
		t.Fatalf("read sheet: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 2 items + totals, got %d rows", len(rows))
	}
	if rows[0][0] != "ID" || rows[0][8] != "Contract Amount" {
		t.Fatalf("unexpected header row: %v", rows[0])
	}
	if rows[1][0] != "B-01" || rows[2][0] != "B-02" {
		t.Fatalf("item rows out of order: %v / %v", rows[1], rows[2])
	}
	totals := rows[3]
	if totals[2] != "Total" {
		t.Fatalf("expected totals label, got %v", totals)
	}
	if totals[8] != "25500" || totals[9] != "500" || totals[10] != "300" {
		t.Fatalf("unexpected totals: %v", totals)
	}

	// The exported table must parse back through the importer.
	reparsed, err := ParseWorkbook(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reparse exported workbook: %v", err)
	}
	if len(reparsed) != 2 {
		t.Fatalf("expected totals row ignored on reimport, got %d items", len(reparsed))
	}
}
