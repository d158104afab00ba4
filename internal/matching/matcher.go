package matching

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
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

const (
	defaultMaxLogLength = 200
	contextTemplate     = "Tender requirement (JSON):\n{{REQUIREMENT_JSON}}\n\nAvailable products:\n{{CATALOG}}"
)

// Matcher pairs every requirement with the best catalog product.
type Matcher struct {
	reasoner  ai.Reasoner
	logger    *zap.Logger
	maxLogLen int
}

// Stats summarises a matching run.
type Stats struct {
	Initial int
	Matched int
	Failed  int
}

func NewMatcher(reasoner ai.Reasoner, maxLogLength int, logger *zap.Logger) *Matcher {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Matcher{
		reasoner:  reasoner,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

// MatchAll evaluates requirements one by one, in order. A failing line is recorded
// with its error and never stops the batch.
func (m *Matcher) MatchAll(ctx context.Context, requirements []tender.Requirement, catalog []tender.Product) ([]tender.LineMatch, Stats) {
	summary := CatalogSummary(catalog)
	lines := make([]tender.LineMatch, 0, len(requirements))
	stats := Stats{Initial: len(requirements)}

	for i, req := range requirements {
		match, err := m.matchLine(ctx, req, catalog, summary)
		if err != nil {
			m.logger.Warn("line matching failed",
				zap.Int("line", i),
				zap.String("item_name", req.ItemName),
				zap.Error(err),
			)
			lines = append(lines, tender.NewUnmatchedLine(req, err))
			stats.Failed++
			continue
		}

		m.logger.Info("line matched",
			zap.Int("line", i),
			zap.String("item_name", req.ItemName),
			zap.String("sku", match.SKU),
			zap.Int("ensemble_score", match.Scores.Ensemble),
		)
		lines = append(lines, tender.NewMatchedLine(req, match))
		stats.Matched++
	}

	return lines, stats
}

func (m *Matcher) matchLine(ctx context.Context, req tender.Requirement, catalog []tender.Product, summary string) (tender.ProductMatch, error) {
	if err := ctx.Err(); err != nil {
		return tender.ProductMatch{}, err
	}

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return tender.ProductMatch{}, fmt.Errorf("marshal requirement: %w", err)
	}

	input := buildContext(string(reqJSON), summary)

	m.logger.Debug("match request",
		zap.String("item_name", req.ItemName),
		zap.Int("context_length", utf8.RuneCountInString(input)),
		zap.String("context_preview", utils.TruncateForLog(input, m.maxLogLen)),
	)

	raw, err := m.reasoner.Infer(ctx, promptTemplate, input)
	if err != nil {
		return tender.ProductMatch{}, &tender.CapabilityError{Op: "match requirement", Err: err}
	}

	m.logger.Debug("match response",
		zap.String("item_name", req.ItemName),
		zap.String("response_preview", utils.TruncateForLog(raw, m.maxLogLen)),
	)

	candidate, err := ParseCandidate(raw)
	if err != nil {
		return tender.ProductMatch{}, err
	}

	product, err := Resolve(catalog, candidate.ProductID)
	if err != nil {
		return tender.ProductMatch{}, err
	}

	return tender.ProductMatch{
		ProductID:   product.ID,
		ProductName: product.Name,
		SKU:         product.SKU,
		UnitPrice:   product.BasePrice,
		Reason:      candidate.Reason,
		Scores:      Score(req, product, candidate),
	}, nil
}

// ParseCandidate reads the reasoning capability's match judgment.
func ParseCandidate(raw string) (tender.MatchCandidate, error) {
	var data map[string]any
	if err := json.Unmarshal([]byte(ai.ExtractJSON(raw)), &data); err != nil {
		return tender.MatchCandidate{}, &tender.ExtractionError{Raw: raw, Err: err}
	}

	id, ok := ai.CoerceInt(data["product_id"])
	if !ok {
		return tender.MatchCandidate{}, &tender.ExtractionError{
			Raw: raw,
			Err: fmt.Errorf("product_id %v is not an integer", data["product_id"]),
		}
	}

	score := ai.CoerceFloat(data["match_score"])
	if math.IsNaN(score) {
		score = ai.CoerceFloat(data["confidence"])
	}

	return tender.MatchCandidate{
		ProductID: id,
		Semantic:  clampSemantic(score),
		Reason:    ai.CoerceString(data["reason"]),
		Raw:       raw,
	}, nil
}

// CatalogSummary renders the catalog compactly, one product per line.
func CatalogSummary(catalog []tender.Product) string {
	lines := make([]string, 0, len(catalog))
	for _, p := range catalog {
		specs, err := json.Marshal(p.Specs)
		if err != nil {
			specs = []byte(specsText(p.Specs))
		}
		lines = append(lines, fmt.Sprintf("ID:%d|Name:%s|Description:%s|Specs:%s", p.ID, p.Name, p.Description, specs))
	}
	return strings.Join(lines, "\n")
}

func buildContext(requirementJSON, catalog string) string {
	out := strings.ReplaceAll(contextTemplate, "{{REQUIREMENT_JSON}}", requirementJSON)
	return strings.ReplaceAll(out, "{{CATALOG}}", catalog)
}
