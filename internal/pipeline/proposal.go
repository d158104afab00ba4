package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/bidwin/internal/logger"
	"github.com/spigell/bidwin/internal/tender"
)

// Propose renders the submission files of a priced RFP and marks it ready to submit.
func (o *Orchestrator) Propose(ctx context.Context, id int) (*ProposalResult, error) {
	if o.deps.Renderer == nil {
		return nil, fmt.Errorf("proposal rendering is not configured")
	}

	rfp, err := o.deps.Store.GetRFP(ctx, id)
	if err != nil {
		return nil, err
	}
	log := logger.ForStage(o.deps.Logger, StageProposal, rfp.ID, rfp.Title)

	if err := rfp.Data.RequireCommercial(); err != nil {
		return nil, err
	}

	files, err := o.deps.Renderer.Render(rfp)
	if err != nil {
		return nil, fmt.Errorf("render proposal: %w", err)
	}

	if err := o.deps.Store.SetStatus(ctx, rfp.ID, tender.StatusReadyToSubmit); err != nil {
		return nil, fmt.Errorf("update status: %w", err)
	}
	rfp.Status = tender.StatusReadyToSubmit

	log.Info("proposal ready",
		zap.String("proposal", files.Proposal),
		zap.String("quote", files.Quote),
	)

	return &ProposalResult{RFP: rfp, Files: files}, nil
}
