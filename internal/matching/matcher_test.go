package matching

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/bidwin/internal/tender"
)

type stubReasoner struct {
	responses []stubResponse
	contexts  []string
	prompts   []string
}

type stubResponse struct {
	text string
	err  error
}

func (s *stubReasoner) Infer(_ context.Context, prompt, input string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	s.contexts = append(s.contexts, input)
	if len(s.responses) == 0 {
		return "", errors.New("unexpected call")
	}
	res := s.responses[0]
	s.responses = s.responses[1:]
	return res.text, res.err
}

var catalog = []tender.Product{
	epoxy,
	{
		ID:          2,
		SKU:         "AP-IND-002",
		Name:        "Asian Paints Berger Epilux 4",
		Description: "High performance anti-corrosive coating for pipelines and chemical plants.",
		BasePrice:   620,
		Specs:       map[string]string{"base": "Epoxy Phenolic", "type": "Pipeline Coating"},
	},
}

func TestMatchAllIsolatesFailures(t *testing.T) {
	stub := &stubReasoner{responses: []stubResponse{
		{text: "```json\n{\"product_id\": 1, \"match_score\": 90, \"reason\": \"Epoxy build coat\"}\n```"},
		{text: `{"product_id": 42, "match_score": 95, "reason": "Hallucinated"}`},
		{text: "I think product 2 fits best."},
		{err: errors.New("upstream unavailable")},
		{text: `{"product_id": "2", "match_score": "70", "reason": "Pipeline coating"}`},
	}}

	core, observed := observer.New(zapcore.WarnLevel)
	matcher := NewMatcher(stub, 0, zap.New(core))

	reqs := []tender.Requirement{
		{ItemName: "Epoxy coating", Specs: "steel structures", Quantity: "500 L"},
		{ItemName: "Unknown item"},
		{ItemName: "Malformed reply"},
		{ItemName: "Capability down"},
		{ItemName: "Pipeline coating", Specs: "chemical plants"},
	}

	lines, stats := matcher.MatchAll(context.Background(), reqs, catalog)

	if len(lines) != len(reqs) {
		t.Fatalf("expected %d lines, got %d", len(reqs), len(lines))
	}
	for i, line := range lines {
		if line.Requirement != reqs[i] {
			t.Fatalf("line %d out of order: %+v", i, line.Requirement)
		}
		if (line.Match == nil) == (line.Error == "") {
			t.Fatalf("line %d must carry exactly one of match or error: %+v", i, line)
		}
	}

	first := lines[0].Match
	if first == nil || first.SKU != "AP-IND-001" || first.UnitPrice != 450 {
		t.Fatalf("unexpected first match: %+v", first)
	}
	if first.Reason != "Epoxy build coat" || first.Scores.Semantic != 90 || first.Scores.Rule != 100 {
		t.Fatalf("unexpected first scores: %+v", first)
	}

	if !strings.Contains(lines[1].Error, "42") {
		t.Fatalf("expected unresolved product error, got %q", lines[1].Error)
	}
	if !strings.Contains(lines[2].Error, "json") {
		t.Fatalf("expected parse error, got %q", lines[2].Error)
	}
	if !strings.Contains(lines[3].Error, "upstream unavailable") {
		t.Fatalf("expected capability error, got %q", lines[3].Error)
	}

	last := lines[4].Match
	if last == nil || last.ProductID != 2 || last.Scores.Semantic != 70 || last.Scores.Rule != 50 {
		t.Fatalf("unexpected last match: %+v", last)
	}

	if stats.Initial != 5 || stats.Matched != 2 || stats.Failed != 3 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	if got := observed.FilterMessage("line matching failed").Len(); got != 3 {
		t.Fatalf("expected 3 warnings, got %d", got)
	}
}

func TestMatchAllSendsCatalogAsContext(t *testing.T) {
	stub := &stubReasoner{responses: []stubResponse{
		{text: `{"product_id": 1, "match_score": 50, "reason": "ok"}`},
	}}

	NewMatcher(stub, 0, nil).MatchAll(context.Background(), []tender.Requirement{{ItemName: "Epoxy"}}, catalog)

	if len(stub.contexts) != 1 {
		t.Fatalf("expected one call, got %d", len(stub.contexts))
	}
	input := stub.contexts[0]
	if !strings.Contains(input, `"item_name":"Epoxy"`) {
		t.Fatalf("expected requirement json in context: %s", input)
	}
	if !strings.Contains(input, "ID:2|Name:Asian Paints Berger Epilux 4") {
		t.Fatalf("expected catalog summary in context: %s", input)
	}
	if strings.Contains(input, "{{") {
		t.Fatalf("unreplaced placeholder in context: %s", input)
	}
	if stub.prompts[0] != promptTemplate || !strings.Contains(promptTemplate, "product_id") {
		t.Fatalf("expected embedded match prompt to be sent")
	}
}

func TestMatchAllCancelledContextDegradesLines(t *testing.T) {
	stub := &stubReasoner{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lines, stats := NewMatcher(stub, 0, nil).MatchAll(ctx, []tender.Requirement{{ItemName: "a"}, {ItemName: "b"}}, catalog)

	if len(lines) != 2 || stats.Failed != 2 {
		t.Fatalf("expected both lines to fail, got %+v", stats)
	}
	if len(stub.contexts) != 0 {
		t.Fatalf("reasoning capability must not be called after cancellation")
	}
}

func TestParseCandidate(t *testing.T) {
	candidate, err := ParseCandidate(`{"product_id": 3, "confidence": "88", "reason": "fits"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if candidate.ProductID != 3 || candidate.Semantic != 88 || candidate.Reason != "fits" {
		t.Fatalf("unexpected candidate: %+v", candidate)
	}

	candidate, err = ParseCandidate(`{"product_id": 3}`)
	if err != nil || candidate.Semantic != 0 {
		t.Fatalf("expected absent score to default to 0, got %+v (%v)", candidate, err)
	}

	var extractionErr *tender.ExtractionError
	if _, err := ParseCandidate(`{"product_id": "AP-IND-001"}`); !errors.As(err, &extractionErr) {
		t.Fatalf("expected ExtractionError for non numeric id, got %v", err)
	}
	if _, err := ParseCandidate("not json"); !errors.As(err, &extractionErr) {
		t.Fatalf("expected ExtractionError for malformed reply, got %v", err)
	}
}
