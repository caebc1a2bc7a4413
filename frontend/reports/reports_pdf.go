package reports

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"strings"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/jung-kurt/gofpdf"
)

func renderProgressReportPDF(p ProjectProgress, shareURL string, generatedAt time.Time) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Project Progress Report", false)
	pdf.AddPage()

	name := strings.TrimSpace(p.ProjectName)
	if name == "" {
		name = "Unnamed Project"
	}

	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(0, 12, name, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, "Progress Report", "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Generated: "+generatedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 40)
	pdf.CellFormat(0, 18, fmt.Sprintf("%.1f%%", p.Percent), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("%d of %d work items completed across %d diagrams",
		p.Completed, p.Total, p.DiagramCount), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	summaryRow := func(label, value string) {
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(60, 7, label, "1", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(50, 7, value, "1", 1, "R", false, 0, "")
	}
	summaryRow("Completed", fmt.Sprintf("%d", p.Completed))
	summaryRow("In progress", fmt.Sprintf("%d", p.InProgress))
	summaryRow("Planned", fmt.Sprintf("%d", p.Planned))
	summaryRow("Not started", fmt.Sprintf("%d", p.NotStarted))
	summaryRow("Contract value", fmt.Sprintf("%.2f", p.ContractValue))
	summaryRow("Completed value", fmt.Sprintf("%.2f", p.CompletedValue))
	summaryRow("Planned value", fmt.Sprintf("%.2f", p.PlannedValue))
	summaryRow("Remaining value", fmt.Sprintf("%.2f", p.RemainingValue))
	pdf.Ln(6)

	if len(p.Diagrams) > 0 {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 8, "Diagrams", "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(70, 7, "Diagram", "1", 0, "L", false, 0, "")
		pdf.CellFormat(22, 7, "Items", "1", 0, "R", false, 0, "")
		pdf.CellFormat(22, 7, "Done", "1", 0, "R", false, 0, "")
		pdf.CellFormat(22, 7, "Active", "1", 0, "R", false, 0, "")
		pdf.CellFormat(22, 7, "Percent", "1", 1, "R", false, 0, "")

		pdf.SetFont("Helvetica", "", 10)
		for _, d := range p.Diagrams {
			title := strings.TrimSpace(d.Name)
			if title == "" {
				title = fmt.Sprintf("Diagram %d", d.DiagramID)
			}
			pdf.CellFormat(70, 7, title, "1", 0, "L", false, 0, "")
			pdf.CellFormat(22, 7, fmt.Sprintf("%d", d.Total), "1", 0, "R", false, 0, "")
			pdf.CellFormat(22, 7, fmt.Sprintf("%d", d.Completed), "1", 0, "R", false, 0, "")
			pdf.CellFormat(22, 7, fmt.Sprintf("%d", d.InProgress), "1", 0, "R", false, 0, "")
			pdf.CellFormat(22, 7, fmt.Sprintf("%.1f%%", d.Percent), "1", 1, "R", false, 0, "")
		}
	}

	if shareURL != "" {
		qrPNG, err := renderQRPNG(shareURL, 600)
		if err != nil {
			return nil, err
		}
		opt := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
		imageName := fmt.Sprintf("report-share-qr-%d", p.ProjectID)
		pdf.RegisterImageOptionsReader(imageName, opt, bytes.NewReader(qrPNG))

		pageW, pageH := pdf.GetPageSize()
		size := 34.0
		x := pageW - size - 14
		y := pageH - size - 22
		pdf.ImageOptions(imageName, x, y, size, size, false, opt, 0, "")
		pdf.SetXY(x-40, y+size+1)
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(size+40, 4, "Scan to open the live report", "", 1, "R", false, 0, "")
	}

	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func renderQRPNG(value string, size int) ([]byte, error) {
	code, err := qr.Encode(value, qr.M, qr.Auto)
	if err != nil {
		return nil, err
	}
	scaled, err := barcode.Scale(code, size, size)
	if err != nil {
		return nil, err
	}
	bounds := scaled.Bounds()
	normalized := image.NewNRGBA(bounds)
	draw.Draw(normalized, bounds, scaled, bounds.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, normalized); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
