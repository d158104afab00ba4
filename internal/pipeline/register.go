package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/bidwin/internal/logger"
	"github.com/spigell/bidwin/internal/tender"
)

// Registration describes a tender document to track.
type Registration struct {
	Path       string
	Title      string
	ClientName string
	Deadline   string
}

// Register stores a new RFP in status New. A document that is already tracked
// is returned as is and created is false.
func (o *Orchestrator) Register(ctx context.Context, reg Registration) (rfp *tender.RFP, created bool, err error) {
	if blank(reg.Path) {
		return nil, false, fmt.Errorf("document path is required")
	}

	existing, err := o.deps.Store.FindRFPByFile(ctx, reg.Path)
	switch {
	case err == nil:
		return existing, false, nil
	case !errors.Is(err, tender.ErrNotFound):
		return nil, false, fmt.Errorf("lookup rfp: %w", err)
	}

	title := strings.TrimSpace(reg.Title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(reg.Path), filepath.Ext(reg.Path))
	}

	rfp, err = o.deps.Store.CreateRFP(ctx, &tender.RFP{
		Title:      title,
		ClientName: strings.TrimSpace(reg.ClientName),
		FileURL:    reg.Path,
		Status:     tender.StatusNew,
		Deadline:   strings.TrimSpace(reg.Deadline),
	})
	if err != nil {
		return nil, false, fmt.Errorf("create rfp: %w", err)
	}

	logger.WithFields(o.deps.Logger, logger.RFPFields(rfp.ID, rfp.Title)...).
		Info("rfp registered", zap.String("file", rfp.FileURL))

	return rfp, true, nil
}
