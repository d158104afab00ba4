package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/bidwin/internal/ai"
	"github.com/spigell/bidwin/internal/extraction"
	"github.com/spigell/bidwin/internal/matching"
	"github.com/spigell/bidwin/internal/proposal"
	"github.com/spigell/bidwin/internal/store/memory"
	"github.com/spigell/bidwin/internal/tender"
)

const extractionReply = "```json\n" + `{
  "items": [
    {"item_name": "Epoxy primer", "specs": "zinc phosphate, 50-75 microns", "quantity": "200 Litres"},
    {"item_name": "Fire retardant paint", "specs": "intumescent", "quantity": "50"}
  ],
  "tests": ["Salt Spray Test", "Viscosity Check"]
}` + "\n```"

type documents map[string]string

func (d documents) Text(_ context.Context, path string) (string, error) {
	text, ok := d[path]
	if !ok {
		return "", fmt.Errorf("open %s: no such file", path)
	}
	return text, nil
}

// scripted answers extraction, matching and chat calls by looking at the input.
type scripted struct {
	extraction string
	extractErr error
	matches    map[string]string
	chat       string
	inputs     []string
}

func (s *scripted) Infer(_ context.Context, _ string, input string) (string, error) {
	s.inputs = append(s.inputs, input)
	switch {
	case strings.HasPrefix(input, "Tender requirement"):
		for item, reply := range s.matches {
			if strings.Contains(input, item) {
				return reply, nil
			}
		}
		return "", errors.New("no scripted match")
	case strings.Contains(input, "USER QUESTION"):
		return s.chat, nil
	default:
		return s.extraction, s.extractErr
	}
}

var products = []tender.Product{
	{SKU: "AP-IND-005", Name: "Apcodur CP 682", Description: "Epoxy Zinc Phosphate Primer for steel structures.", BasePrice: 380, Specs: map[string]string{"base": "Epoxy", "type": "Primer"}},
	{SKU: "AP-IND-015", Name: "Apcolite Premium Gloss Enamel", Description: "General purpose high gloss enamel.", BasePrice: 280},
}

type fixture struct {
	store    *memory.Store
	reasoner *scripted
	orch     *Orchestrator
	logs     *observer.ObservedLogs
	rfp      *tender.RFP
	renderer *proposal.Renderer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	st := memory.New()
	if _, err := st.SeedProducts(ctx, products); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rfp, err := st.CreateRFP(ctx, &tender.RFP{Title: "Tank coating", ClientName: "IOCL", FileURL: "tender.pdf"})
	if err != nil {
		t.Fatalf("create rfp: %v", err)
	}

	reasoner := &scripted{
		extraction: extractionReply,
		matches: map[string]string{
			"Epoxy primer":         `{"product_id": 1, "match_score": 90, "reason": "Zinc phosphate epoxy primer"}`,
			"Fire retardant paint": `{"product_id": 99, "match_score": 70, "reason": "Hallucinated"}`,
		},
		chat: "  The primer is Apcodur CP 682.  ",
	}

	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)
	renderer := proposal.NewRenderer(t.TempDir(), log)

	orch, err := New(Config{}, Deps{
		Store:     st,
		Documents: documents{"tender.pdf": "Supply of epoxy primer and fire retardant paint."},
		Extractor: extraction.NewExtractor(reasoner, 0, log),
		Matcher:   matching.NewMatcher(reasoner, 0, log),
		Renderer:  renderer,
		Reasoner:  reasoner,
		Logger:    log,
	})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	return &fixture{store: st, reasoner: reasoner, orch: orch, logs: logs, rfp: rfp, renderer: renderer}
}

func TestAnalyzeStoresRecordWithIsolatedFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.orch.Analyze(ctx, f.rfp.ID)
	if err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if res.Step.Initial != 2 || res.Step.Matched != 1 || res.Step.Failed != 1 {
		t.Fatalf("unexpected step %+v", res.Step)
	}

	stored, err := f.store.GetRFP(ctx, f.rfp.ID)
	if err != nil {
		t.Fatalf("GetRFP returned error: %v", err)
	}
	if stored.Status != tender.StatusProcessed {
		t.Fatalf("expected status %q, got %q", tender.StatusProcessed, stored.Status)
	}

	record := stored.Data
	if record.SchemaVersion != tender.CurrentSchemaVersion {
		t.Fatalf("unexpected schema version %d", record.SchemaVersion)
	}
	if len(record.Requirements) != 2 || len(record.LineItems) != 2 {
		t.Fatalf("unexpected record %+v", record)
	}
	if !record.LineItems[0].Matched() || record.LineItems[0].Match.SKU != "AP-IND-005" {
		t.Fatalf("expected first line matched to AP-IND-005, got %+v", record.LineItems[0])
	}
	if record.LineItems[1].Matched() || !strings.Contains(record.LineItems[1].Error, "99") {
		t.Fatalf("expected second line to carry the unresolved product error, got %+v", record.LineItems[1])
	}
	if strings.Join(record.RequiredTests, ",") != "Salt Spray Test,Viscosity Check" {
		t.Fatalf("unexpected tests %v", record.RequiredTests)
	}

	steps := f.logs.FilterMessage("pipeline step").All()
	if len(steps) != 1 {
		t.Fatalf("expected one pipeline step log, got %d", len(steps))
	}
	fields := steps[0].ContextMap()
	if fields["stage"] != StageTechnical || fields["rfp_id"] != int64(f.rfp.ID) {
		t.Fatalf("unexpected step fields %v", fields)
	}
}

func TestAnalyzeFailuresLeaveRecordUntouched(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(f *fixture)
		check  func(t *testing.T, err error)
	}{
		{
			name: "malformed extraction",
			mutate: func(f *fixture) {
				f.reasoner.extraction = "Sorry, I cannot read this tender."
			},
			check: func(t *testing.T, err error) {
				var extractionErr *tender.ExtractionError
				if !errors.As(err, &extractionErr) {
					t.Fatalf("expected ExtractionError, got %v", err)
				}
				if extractionErr.Raw == "" {
					t.Fatalf("expected raw output to be kept")
				}
			},
		},
		{
			name: "capability failure",
			mutate: func(f *fixture) {
				f.reasoner.extractErr = errors.New("quota exhausted")
			},
			check: func(t *testing.T, err error) {
				var capErr *tender.CapabilityError
				if !errors.As(err, &capErr) {
					t.Fatalf("expected CapabilityError, got %v", err)
				}
			},
		},
		{
			name: "empty document",
			mutate: func(f *fixture) {
				f.orch.deps.Documents = documents{"tender.pdf": "  \n "}
			},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, tender.ErrEmptyDocument) {
					t.Fatalf("expected ErrEmptyDocument, got %v", err)
				}
			},
		},
		{
			name: "missing document",
			mutate: func(f *fixture) {
				f.orch.deps.Documents = documents{}
			},
			check: func(t *testing.T, err error) {
				if !errors.Is(err, tender.ErrEmptyDocument) {
					t.Fatalf("expected ErrEmptyDocument, got %v", err)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			previous := &tender.Record{SchemaVersion: 1, Requirements: []tender.Requirement{{ItemName: "old"}}}
			if err := f.store.SaveRecord(ctx, f.rfp.ID, tender.StatusNew, previous); err != nil {
				t.Fatalf("SaveRecord returned error: %v", err)
			}

			tt.mutate(f)
			_, err := f.orch.Analyze(ctx, f.rfp.ID)
			tt.check(t, err)

			stored, _ := f.store.GetRFP(ctx, f.rfp.ID)
			if stored.Status != tender.StatusNew || stored.Data.SchemaVersion != 1 || stored.Data.Requirements[0].ItemName != "old" {
				t.Fatalf("stored rfp was modified: %+v", stored)
			}
		})
	}
}

func TestAnalyzeTruncatesDocument(t *testing.T) {
	f := newFixture(t)
	f.orch.cfg.MaxDocumentChars = 10
	f.orch.deps.Documents = documents{"tender.pdf": strings.Repeat("б", 25)}

	if _, err := f.orch.Analyze(context.Background(), f.rfp.ID); err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if f.reasoner.inputs[0] != strings.Repeat("б", 10) {
		t.Fatalf("expected document truncated to 10 runes, got %q", f.reasoner.inputs[0])
	}
}

func TestAnalyzeUnknownRFP(t *testing.T) {
	f := newFixture(t)
	if _, err := f.orch.Analyze(context.Background(), 404); !errors.Is(err, tender.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPriceComputesQuote(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.orch.Analyze(ctx, f.rfp.ID); err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}

	res, err := f.orch.Price(ctx, f.rfp.ID)
	if err != nil {
		t.Fatalf("Price returned error: %v", err)
	}
	if res.Step.Matched != 1 || res.Step.Failed != 1 {
		t.Fatalf("unexpected step %+v", res.Step)
	}

	quote := res.RFP.Data.Commercial
	// 380 * 200 = 76000; +5% = 3800; +20% = 15200; 18% of 95000 = 17100.
	if len(quote.Lines) != 1 || quote.Lines[0].LineTotal != 112100 {
		t.Fatalf("unexpected lines %+v", quote.Lines)
	}
	if len(quote.Services) != 2 || quote.ServiceTotal != 9500 {
		t.Fatalf("unexpected services %+v", quote.Services)
	}
	if quote.GrandTotal != 121600 || quote.Currency != "INR" {
		t.Fatalf("unexpected totals %+v", quote)
	}

	stored, _ := f.store.GetRFP(ctx, f.rfp.ID)
	if stored.Status != tender.StatusPricingComplete || stored.Data.Commercial == nil {
		t.Fatalf("quote not persisted: %+v", stored)
	}
	if len(stored.Data.LineItems) != 2 {
		t.Fatalf("technical data lost on pricing")
	}

	again, err := f.orch.Price(ctx, f.rfp.ID)
	if err != nil {
		t.Fatalf("second Price returned error: %v", err)
	}
	if again.RFP.Data.Commercial.GrandTotal != quote.GrandTotal {
		t.Fatalf("pricing is not idempotent")
	}
}

func TestPriceRejectsLegacyRecords(t *testing.T) {
	tests := []struct {
		name   string
		record *tender.Record
	}{
		{name: "never analyzed", record: nil},
		{name: "no line items", record: &tender.Record{Requirements: []tender.Requirement{{ItemName: "Epoxy"}}}},
		{name: "old schema", record: &tender.Record{SchemaVersion: 1, LineItems: []tender.LineMatch{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()

			if tt.record != nil {
				if err := f.store.SaveRecord(ctx, f.rfp.ID, tender.StatusProcessed, tt.record); err != nil {
					t.Fatalf("SaveRecord returned error: %v", err)
				}
			}

			_, err := f.orch.Price(ctx, f.rfp.ID)
			var schemaErr *tender.SchemaVersionError
			if !errors.As(err, &schemaErr) {
				t.Fatalf("expected SchemaVersionError, got %v", err)
			}

			stored, _ := f.store.GetRFP(ctx, f.rfp.ID)
			if stored.Data != nil && stored.Data.Commercial != nil {
				t.Fatalf("commercial data written despite failure")
			}
		})
	}
}

func TestReanalyzeClearsCommercial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.orch.Analyze(ctx, f.rfp.ID); err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if _, err := f.orch.Price(ctx, f.rfp.ID); err != nil {
		t.Fatalf("Price returned error: %v", err)
	}
	if _, err := f.orch.Analyze(ctx, f.rfp.ID); err != nil {
		t.Fatalf("second Analyze returned error: %v", err)
	}

	stored, _ := f.store.GetRFP(ctx, f.rfp.ID)
	if stored.Data.Commercial != nil || stored.Status != tender.StatusProcessed {
		t.Fatalf("expected commercial data cleared, got %+v", stored)
	}
}

func TestProposeRequiresPricing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.orch.Analyze(ctx, f.rfp.ID); err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	if _, err := f.orch.Propose(ctx, f.rfp.ID); !errors.Is(err, tender.ErrNotReady) {
		t.Fatalf("expected ErrNotReady, got %v", err)
	}

	if _, err := f.orch.Price(ctx, f.rfp.ID); err != nil {
		t.Fatalf("Price returned error: %v", err)
	}

	res, err := f.orch.Propose(ctx, f.rfp.ID)
	if err != nil {
		t.Fatalf("Propose returned error: %v", err)
	}
	if res.Files.Proposal == "" || res.Files.Quote == "" {
		t.Fatalf("unexpected files %+v", res.Files)
	}
	if _, err := f.renderer.Path(res.Files.Proposal); err != nil {
		t.Fatalf("proposal not on disk: %v", err)
	}

	stored, _ := f.store.GetRFP(ctx, f.rfp.ID)
	if stored.Status != tender.StatusReadyToSubmit {
		t.Fatalf("expected status %q, got %q", tender.StatusReadyToSubmit, stored.Status)
	}
}

func TestAsk(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.orch.Ask(ctx, f.rfp.ID, "   "); !errors.Is(err, ErrEmptyQuestion) {
		t.Fatalf("expected ErrEmptyQuestion, got %v", err)
	}

	if _, err := f.orch.Analyze(ctx, f.rfp.ID); err != nil {
		t.Fatalf("Analyze returned error: %v", err)
	}
	f.reasoner.inputs = nil

	answer, err := f.orch.Ask(ctx, f.rfp.ID, "Which primer did we offer?")
	if err != nil {
		t.Fatalf("Ask returned error: %v", err)
	}
	if answer != "The primer is Apcodur CP 682." {
		t.Fatalf("unexpected answer %q", answer)
	}

	input := f.reasoner.inputs[0]
	for _, want := range []string{"AP-IND-005", "Supply of epoxy primer", "Which primer did we offer?"} {
		if !strings.Contains(input, want) {
			t.Fatalf("expected chat context to contain %q, got %q", want, input)
		}
	}
}

func TestAskWrapsCapabilityErrors(t *testing.T) {
	f := newFixture(t)
	f.orch.deps.Reasoner = ai.ReasonerFunc(func(context.Context, string, string) (string, error) {
		return "", errors.New("unavailable")
	})

	_, err := f.orch.Ask(context.Background(), f.rfp.ID, "Deadline?")
	var capErr *tender.CapabilityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapabilityError, got %v", err)
	}
}

func TestRegisterDeduplicatesByFile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rfp, created, err := f.orch.Register(ctx, Registration{Path: "inbox/NTPC-Bridge-Painting.pdf"})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if !created || rfp.Title != "NTPC-Bridge-Painting" || rfp.Status != tender.StatusNew {
		t.Fatalf("unexpected registration %+v (created=%v)", rfp, created)
	}

	again, created, err := f.orch.Register(ctx, Registration{Path: "inbox/NTPC-Bridge-Painting.pdf", Title: "Other"})
	if err != nil {
		t.Fatalf("second Register returned error: %v", err)
	}
	if created || again.ID != rfp.ID {
		t.Fatalf("expected existing rfp to be returned, got %+v (created=%v)", again, created)
	}

	if _, _, err := f.orch.Register(ctx, Registration{}); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestAnalyzeDiscardsCancelledRun(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	f.orch.deps.Matcher = matcherFunc(func(context.Context, []tender.Requirement, []tender.Product) ([]tender.LineMatch, matching.Stats) {
		cancel()
		return []tender.LineMatch{}, matching.Stats{}
	})

	if _, err := f.orch.Analyze(ctx, f.rfp.ID); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	stored, _ := f.store.GetRFP(context.Background(), f.rfp.ID)
	if stored.Data != nil || stored.Status != tender.StatusNew {
		t.Fatalf("cancelled run was persisted: %+v", stored)
	}
}

type matcherFunc func(context.Context, []tender.Requirement, []tender.Product) ([]tender.LineMatch, matching.Stats)

func (f matcherFunc) MatchAll(ctx context.Context, reqs []tender.Requirement, catalog []tender.Product) ([]tender.LineMatch, matching.Stats) {
	return f(ctx, reqs, catalog)
}
