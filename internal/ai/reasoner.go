package ai

import (
	"context"
	"strings"
)

// Reasoner is a text-in/text-out reasoning capability. The prompt carries the
// instructions, the context carries the material to reason about.
type Reasoner interface {
	Infer(ctx context.Context, prompt, context string) (string, error)
}

// ReasonerFunc adapts a plain function to the Reasoner interface.
type ReasonerFunc func(ctx context.Context, prompt, context string) (string, error)

func (f ReasonerFunc) Infer(ctx context.Context, prompt, context string) (string, error) {
	return f(ctx, prompt, context)
}

// ExtractJSON strips markdown code fences that models tend to wrap JSON into.
// The content of the first fenced block wins; text without fences is only trimmed.
func ExtractJSON(raw string) string {
	if i := jsonFence(raw); i >= 0 {
		block, _, _ := strings.Cut(raw[i+len("```json"):], "```")
		return strings.TrimSpace(block)
	}
	if _, after, ok := strings.Cut(raw, "```"); ok {
		block, _, _ := strings.Cut(after, "```")
		return strings.TrimSpace(block)
	}
	return strings.TrimSpace(raw)
}

// jsonFence returns the offset of the first fence tagged json in any letter case, or -1.
func jsonFence(raw string) int {
	offset := 0
	for {
		i := strings.Index(raw[offset:], "```")
		if i < 0 {
			return -1
		}
		start := offset + i
		tag := raw[start+3:]
		if len(tag) >= 4 && strings.EqualFold(tag[:4], "json") {
			return start
		}
		offset = start + 3
	}
}
