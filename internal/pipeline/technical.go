package pipeline

import (
	"context"
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/bidwin/internal/logger"
	"github.com/spigell/bidwin/internal/tender"
)

// Analyze runs the technical phase: it extracts requirements from the RFP
// document, matches them against the catalog and replaces the stored record.
// Any commercial data of a previous run is discarded.
func (o *Orchestrator) Analyze(ctx context.Context, id int) (*Result, error) {
	if o.deps.Documents == nil || o.deps.Extractor == nil || o.deps.Matcher == nil {
		return nil, fmt.Errorf("technical analysis is not configured")
	}

	rfp, err := o.deps.Store.GetRFP(ctx, id)
	if err != nil {
		return nil, err
	}
	log := logger.ForStage(o.deps.Logger, StageTechnical, rfp.ID, rfp.Title)

	text, err := o.deps.Documents.Text(ctx, rfp.FileURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", tender.ErrEmptyDocument, err)
	}
	if blank(text) {
		return nil, tender.ErrEmptyDocument
	}

	if utf8.RuneCountInString(text) > o.cfg.MaxDocumentChars {
		log.Debug("document truncated",
			zap.Int("length", utf8.RuneCountInString(text)),
			zap.Int("limit", o.cfg.MaxDocumentChars),
		)
		text = truncate(text, o.cfg.MaxDocumentChars)
	}

	requirements, tests, err := o.deps.Extractor.Extract(ctx, text)
	if err != nil {
		return nil, err
	}

	catalog, err := o.deps.Store.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	lines, stats := o.deps.Matcher.MatchAll(ctx, requirements, catalog)
	// A cancelled run is discarded as a whole.
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if lines == nil {
		lines = make([]tender.LineMatch, 0)
	}
	if requirements == nil {
		requirements = make([]tender.Requirement, 0)
	}
	if tests == nil {
		tests = make([]string, 0)
	}

	record := &tender.Record{
		SchemaVersion: tender.CurrentSchemaVersion,
		Requirements:  requirements,
		LineItems:     lines,
		RequiredTests: tests,
	}

	if err := o.deps.Store.SaveRecord(ctx, rfp.ID, tender.StatusProcessed, record); err != nil {
		return nil, fmt.Errorf("save technical analysis: %w", err)
	}

	rfp.Data = record
	rfp.Status = tender.StatusProcessed

	step := Step{Stage: StageTechnical, Initial: stats.Initial, Matched: stats.Matched, Failed: stats.Failed}
	o.logStep(log, step)

	return &Result{RFP: rfp, Step: step}, nil
}
