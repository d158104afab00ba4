package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/bidwin/internal/logger"
	"github.com/spigell/bidwin/internal/pricing"
	"github.com/spigell/bidwin/internal/tender"
)

// Price runs the commercial phase on a technically analyzed RFP. Running it
// again on the same record yields the same quote.
func (o *Orchestrator) Price(ctx context.Context, id int) (*Result, error) {
	rfp, err := o.deps.Store.GetRFP(ctx, id)
	if err != nil {
		return nil, err
	}
	log := logger.ForStage(o.deps.Logger, StageCommercial, rfp.ID, rfp.Title)

	if err := rfp.Data.RequireTechnical(); err != nil {
		return nil, err
	}

	quote := pricing.Quote(rfp.Data.LineItems, rfp.Data.RequiredTests, o.deps.RateCard)

	record := *rfp.Data
	record.Commercial = quote

	if err := o.deps.Store.SaveRecord(ctx, rfp.ID, tender.StatusPricingComplete, &record); err != nil {
		return nil, fmt.Errorf("save commercial quote: %w", err)
	}

	rfp.Data = &record
	rfp.Status = tender.StatusPricingComplete

	step := Step{
		Stage:   StageCommercial,
		Initial: len(record.LineItems),
		Matched: len(quote.Lines),
		Failed:  len(record.LineItems) - len(quote.Lines),
	}
	o.logStep(log, step)
	log.Info("quote calculated",
		zap.Float64("product_total", quote.ProductTotal),
		zap.Float64("service_total", quote.ServiceTotal),
		zap.Float64("grand_total", quote.GrandTotal),
		zap.String("currency", quote.Currency),
	)

	return &Result{RFP: rfp, Step: step}, nil
}
