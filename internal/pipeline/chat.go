package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/bidwin/internal/logger"
	"github.com/spigell/bidwin/internal/tender"
)

//go:embed chat.md
var chatPrompt string

const chatTemplate = "--- INTERNAL ANALYSIS (JSON) ---\n{{ANALYSIS}}\n\n--- DOCUMENT EXCERPT ---\n{{DOCUMENT}}\n\n--- USER QUESTION ---\n{{QUESTION}}"

// ErrEmptyQuestion is returned by Ask when no question was given.
var ErrEmptyQuestion = errors.New("question is required")

// Ask answers a free-form question about an RFP using its stored analysis and
// an excerpt of its document. An unreadable document only shrinks the context.
func (o *Orchestrator) Ask(ctx context.Context, id int, question string) (string, error) {
	if o.deps.Reasoner == nil {
		return "", fmt.Errorf("chat is not configured")
	}
	if blank(question) {
		return "", ErrEmptyQuestion
	}

	rfp, err := o.deps.Store.GetRFP(ctx, id)
	if err != nil {
		return "", err
	}
	log := logger.ForStage(o.deps.Logger, StageChat, rfp.ID, rfp.Title)

	excerpt := ""
	if o.deps.Documents != nil {
		text, err := o.deps.Documents.Text(ctx, rfp.FileURL)
		if err != nil {
			log.Warn("document unavailable for chat", zap.Error(err))
		} else {
			excerpt = truncate(text, o.cfg.MaxChatChars)
		}
	}

	analysis := []byte("{}")
	if rfp.Data != nil {
		if analysis, err = json.MarshalIndent(rfp.Data, "", "  "); err != nil {
			return "", fmt.Errorf("encode analysis: %w", err)
		}
	}

	input := strings.NewReplacer(
		"{{ANALYSIS}}", string(analysis),
		"{{DOCUMENT}}", excerpt,
		"{{QUESTION}}", strings.TrimSpace(question),
	).Replace(chatTemplate)

	answer, err := o.deps.Reasoner.Infer(ctx, chatPrompt, input)
	if err != nil {
		return "", &tender.CapabilityError{Op: "chat", Err: err}
	}

	log.Info("question answered", zap.Int("answer_length", len(answer)))

	return strings.TrimSpace(answer), nil
}
