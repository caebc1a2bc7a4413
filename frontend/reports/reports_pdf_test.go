package reports

import (
	"bytes"
	"testing"
	"time"
)

func sampleProgress() ProjectProgress {
	return ProjectProgress{
		ProjectID:      1,
		ProjectName:    "Depot",
		ProjectStatus:  "active",
		DiagramCount:   2,
		Total:          5,
		Completed:      2,
		InProgress:     1,
		Planned:        1,
		NotStarted:     1,
		Percent:        40,
		ContractValue:  12000,
		CompletedValue: 500,
		PlannedValue:   500,
		RemainingValue: 11000,
		Diagrams: []DiagramProgress{
			{DiagramID: 1, Name: "Layout A", Total: 3, Completed: 1, InProgress: 1, Planned: 1, Percent: 33.3},
			{DiagramID: 2, Name: "Layout B", Total: 2, Completed: 1, NotStarted: 1, Percent: 50},
		},
	}
}

func TestRenderProgressReportPDF_GeneratesPDF(t *testing.T) {
	t.Parallel()

	pdf, err := renderProgressReportPDF(sampleProgress(), "https://sitecanvas.example/api/projects/1/progress",
		time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("renderProgressReportPDF returned error: %v", err)
	}
	if len(pdf) == 0 {
		t.Fatalf("expected non-empty pdf bytes")
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("expected a pdf header, got %q", pdf[:8])
	}
}

func TestRenderProgressReportPDF_WithoutShareURL(t *testing.T) {
	t.Parallel()

	pdf, err := renderProgressReportPDF(sampleProgress(), "", time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("renderProgressReportPDF returned error: %v", err)
	}
	if len(pdf) == 0 {
		t.Fatalf("expected non-empty pdf bytes")
	}
}
