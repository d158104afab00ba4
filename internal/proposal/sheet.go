package proposal

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/spigell/bidwin/internal/tender"
)

const (
	linesSheet    = "Lines"
	servicesSheet = "Services"
)

func writeQuote(path string, quote *tender.CommercialQuote) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", linesSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := []any{"Item", "SKU", "Qty", "Unit Price", "Base", "Logistics", "Margin", "GST", "Line Total"}
	if err := f.SetSheetRow(linesSheet, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, line := range quote.Lines {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			line.ItemName, line.SKU, line.Quantity, line.UnitPrice,
			line.Breakdown.Base, line.Breakdown.Logistics, line.Breakdown.Margin, line.Breakdown.Tax,
			line.LineTotal,
		}
		if err := f.SetSheetRow(linesSheet, cell, &row); err != nil {
			return fmt.Errorf("write line %d: %w", i+1, err)
		}
	}

	totalRow := len(quote.Lines) + 3
	summary := [][]any{
		{"Product Total", quote.ProductTotal},
		{"Service Total", quote.ServiceTotal},
		{"Grand Total", quote.GrandTotal},
		{"Currency", quote.Currency},
	}
	for i, row := range summary {
		cell, err := excelize.CoordinatesToCellName(8, totalRow+i)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(linesSheet, cell, &row); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	if _, err := f.NewSheet(servicesSheet); err != nil {
		return fmt.Errorf("create services sheet: %w", err)
	}
	svcHeader := []any{"Test", "Matched Service", "Cost"}
	if err := f.SetSheetRow(servicesSheet, "A1", &svcHeader); err != nil {
		return fmt.Errorf("write services header: %w", err)
	}
	for i, svc := range quote.Services {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{svc.TestName, svc.MatchedService, svc.Cost}
		if err := f.SetSheetRow(servicesSheet, cell, &row); err != nil {
			return fmt.Errorf("write service %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("write quote workbook: %w", err)
	}
	return nil
}
