package extraction

import (
	"context"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/bidwin/internal/ai"
	"github.com/spigell/bidwin/internal/tender"
	"github.com/spigell/bidwin/internal/utils"
)

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

// Extractor turns tender document text into requirements using a reasoning capability.
type Extractor struct {
	reasoner  ai.Reasoner
	logger    *zap.Logger
	maxLogLen int
}

func NewExtractor(reasoner ai.Reasoner, maxLogLength int, logger *zap.Logger) *Extractor {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Extractor{
		reasoner:  reasoner,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// Extract asks the reasoning capability for requirements and normalizes the reply.
func (e *Extractor) Extract(ctx context.Context, document string) ([]tender.Requirement, []string, error) {
	if strings.TrimSpace(document) == "" {
		return nil, nil, tender.ErrEmptyDocument
	}

	e.logger.Debug("extraction request",
		zap.Int("document_length", utf8.RuneCountInString(document)),
		zap.String("document_preview", utils.TruncateForLog(document, e.maxLogLen)),
	)

	raw, err := e.reasoner.Infer(ctx, promptTemplate, document)
	if err != nil {
		return nil, nil, &tender.CapabilityError{Op: "extract requirements", Err: err}
	}

	e.logger.Debug("extraction response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, e.maxLogLen)),
	)

	requirements, tests, err := Normalize(raw)
	if err != nil {
		return nil, nil, err
	}

	e.logger.Info("requirements extracted",
		zap.Int("items", len(requirements)),
		zap.Int("tests", len(tests)),
	)

	return requirements, tests, nil
}
