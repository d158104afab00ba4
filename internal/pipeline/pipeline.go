package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/bidwin/internal/ai"
	"github.com/spigell/bidwin/internal/matching"
	"github.com/spigell/bidwin/internal/pricing"
	"github.com/spigell/bidwin/internal/proposal"
	"github.com/spigell/bidwin/internal/store"
	"github.com/spigell/bidwin/internal/tender"
)

const (
	StageTechnical  = "technical"
	StageCommercial = "commercial"
	StageProposal   = "proposal"
	StageChat       = "chat"

	DefaultMaxDocumentChars = 10000
	DefaultMaxChatChars     = 30000
)

// DocumentReader returns the text of a stored tender document.
type DocumentReader interface {
	Text(ctx context.Context, path string) (string, error)
}

// RequirementExtractor turns document text into requirements and required tests.
type RequirementExtractor interface {
	Extract(ctx context.Context, document string) ([]tender.Requirement, []string, error)
}

// LineMatcher pairs requirements with catalog products.
type LineMatcher interface {
	MatchAll(ctx context.Context, requirements []tender.Requirement, catalog []tender.Product) ([]tender.LineMatch, matching.Stats)
}

// ProposalRenderer writes the submission files of a priced RFP.
type ProposalRenderer interface {
	Render(rfp *tender.RFP) (proposal.Files, error)
}

// Deps aggregates the collaborators shared by all stages.
type Deps struct {
	Store     store.Store
	Documents DocumentReader
	Extractor RequirementExtractor
	Matcher   LineMatcher
	Renderer  ProposalRenderer
	Reasoner  ai.Reasoner
	RateCard  pricing.RateCard
	Logger    *zap.Logger
}

// Config contains the limits applied by the stages.
type Config struct {
	MaxDocumentChars int
	MaxChatChars     int
}

// Step describes the outcome of one stage run.
type Step struct {
	Stage   string
	Initial int
	Matched int
	Failed  int
}

// Result is returned by the technical and commercial stages.
type Result struct {
	RFP  *tender.RFP
	Step Step
}

// ProposalResult is returned by the rendering stage.
type ProposalResult struct {
	RFP   *tender.RFP
	Files proposal.Files
}

// Orchestrator runs the tender stages against stored RFPs. Every stage writes
// its output in a single store call, so a failing stage leaves the RFP as it was.
type Orchestrator struct {
	deps Deps
	cfg  Config
}

func New(cfg Config, deps Deps) (*Orchestrator, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.RateCard == nil {
		deps.RateCard = pricing.DefaultRateCard
	}
	if cfg.MaxDocumentChars <= 0 {
		cfg.MaxDocumentChars = DefaultMaxDocumentChars
	}
	if cfg.MaxChatChars <= 0 {
		cfg.MaxChatChars = DefaultMaxChatChars
	}

	return &Orchestrator{deps: deps, cfg: cfg}, nil
}

func (o *Orchestrator) logStep(logger *zap.Logger, step Step) {
	logger.Info("pipeline step",
		zap.String("name", step.Stage),
		zap.Int("initial", step.Initial),
		zap.Int("matched", step.Matched),
		zap.Int("failed", step.Failed),
	)
}

// truncate keeps the first n runes of s.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
