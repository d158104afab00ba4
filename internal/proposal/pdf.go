package proposal

import (
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/spigell/bidwin/internal/tender"
	"github.com/spigell/bidwin/internal/utils"
)

const reasonPreview = 50

func writePDF(path string, rfp *tender.RFP) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 10, 10)

	// Title
	pdf.AddPage()
	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(190, 10, tr(fmt.Sprintf("Proposal for %s", orNA(rfp.ClientName))))
	pdf.Ln(12)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(190, 6, tr(fmt.Sprintf("Ref: %s", rfp.Title)))
	pdf.Ln(6)
	if rfp.Deadline != "" {
		pdf.Cell(190, 6, tr(fmt.Sprintf("Submission deadline: %s", rfp.Deadline)))
		pdf.Ln(6)
	}
	pdf.Cell(190, 6, "BidWin - Multi-SKU Response")
	pdf.Ln(12)

	// Technical scope
	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(190, 8, "Technical Scope & Matching")
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(240, 240, 240)
	pdf.CellFormat(50, 8, "Requested Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(55, 8, "Offered Solution", "1", 0, "L", true, 0, "")
	pdf.CellFormat(15, 8, "Score", "1", 0, "C", true, 0, "")
	pdf.CellFormat(70, 8, "Reasoning", "1", 1, "L", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, line := range rfp.Data.LineItems {
		solution, score, reason := "N/A", 0, line.Error
		if line.Matched() {
			solution = line.Match.ProductName
			score = line.Match.Scores.Ensemble
			reason = line.Match.Reason
		}

		pdf.CellFormat(50, 8, tr(clip(line.Requirement.ItemName, 30)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(55, 8, tr(clip(solution, 34)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(15, 8, fmt.Sprintf("%d%%", score), "1", 0, "C", false, 0, "")
		pdf.CellFormat(70, 8, tr(utils.TruncateForLog(reason, reasonPreview)), "1", 1, "L", false, 0, "")
	}
	pdf.Ln(8)

	// Commercial summary
	quote := rfp.Data.Commercial
	pdf.SetFont("Arial", "B", 13)
	pdf.Cell(190, 8, "Commercial Quote")
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(80, 8, "Item", "1", 0, "L", true, 0, "")
	pdf.CellFormat(25, 8, "Qty", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 8, "Unit Price", "1", 0, "R", true, 0, "")
	pdf.CellFormat(45, 8, "Line Total", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 9)
	for _, line := range quote.Lines {
		pdf.CellFormat(80, 8, tr(clip(line.ItemName, 48)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(25, 8, fmt.Sprintf("%.2f", line.Quantity), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 8, fmt.Sprintf("%.2f", line.UnitPrice), "1", 0, "R", false, 0, "")
		pdf.CellFormat(45, 8, fmt.Sprintf("%.2f", line.LineTotal), "1", 1, "R", false, 0, "")
	}
	for _, svc := range quote.Services {
		pdf.CellFormat(145, 8, tr(clip(fmt.Sprintf("%s (%s)", svc.TestName, svc.MatchedService), 90)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(45, 8, fmt.Sprintf("%.2f", svc.Cost), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(145, 8, "Products")
	pdf.CellFormat(45, 8, fmt.Sprintf("%.2f", quote.ProductTotal), "1", 1, "R", false, 0, "")
	pdf.Cell(145, 8, "Testing & Services")
	pdf.CellFormat(45, 8, fmt.Sprintf("%.2f", quote.ServiceTotal), "1", 1, "R", false, 0, "")
	pdf.Cell(145, 8, fmt.Sprintf("Total Project Value (%s)", quote.Currency))
	pdf.CellFormat(45, 8, fmt.Sprintf("%.2f", quote.GrandTotal), "1", 1, "R", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 9)
	pdf.MultiCell(190, 5, "Includes base price, logistics, margin and GST.", "", "L", false)

	if err := pdf.OutputFileAndClose(path); err != nil {
		return fmt.Errorf("write proposal pdf: %w", err)
	}
	return nil
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
