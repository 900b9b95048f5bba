package composer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hyperjump/agentroute/internal/decision"
	"github.com/hyperjump/agentroute/internal/llm"
)

const systemPrompt = "You are a helpful assistant that produces final answers and traces."

// SuppressedKB replaces the KB section of the prompt when the catalog is
// authoritative and returned nothing.
const SuppressedKB = "KB_HITS:\nSuppressed: the product catalog (CSV) is the authoritative source for this query and returned no rows. Do not answer from knowledge base content."

// GenerationStrategy asks a generation backend for the answer.
type GenerationStrategy struct {
	provider llm.Provider
	opts     []llm.Option
}

var _ Strategy = (*GenerationStrategy)(nil)

func NewGenerationStrategy(p llm.Provider, opts ...llm.Option) *GenerationStrategy {
	return &GenerationStrategy{provider: p, opts: opts}
}

func (s *GenerationStrategy) Name() string { return s.provider.Name() }

func (s *GenerationStrategy) Compose(ctx context.Context, in Input) (string, []string, error) {
	text, err := s.provider.Generate(ctx, systemPrompt, UserPrompt(in), s.opts...)
	if err != nil {
		return "", nil, err
	}
	answer, trace := splitTrace(text)
	if answer == "" {
		return "", nil, ErrEmptyAnswer
	}
	if trace == nil {
		trace = []string{"1. Generated answer with " + s.provider.Name()}
	}
	return answer, trace, nil
}

// UserPrompt renders the composition prompt for in.
func UserPrompt(in Input) string {
	var kb string
	switch {
	case in.csvEmpty():
		kb = SuppressedKB
	case len(in.Hits) == 0:
		kb = "KB_HITS:\nNo KB hits"
	default:
		parts := make([]string, len(in.Hits))
		for i, h := range in.Hits {
			parts[i] = fmt.Sprintf("%s: %s", h.DocID, h.Text)
		}
		kb = "KB_HITS:\n" + strings.Join(parts, "\n\n")
	}

	tool := "TOOL_RESULT:\nNo tool result"
	if in.Result != nil {
		if data, err := json.MarshalIndent(in.Result, "", "  "); err == nil {
			tool = "TOOL_RESULT:\n" + string(data)
		}
	}

	ctxBlock := ""
	if in.Context != nil {
		ctxBlock = "\n" + decision.ContextBlock(in.Context)
	}
	return fmt.Sprintf("Query: %s\n\n%s\n%s%s\n\nProvide a final concise answer and a short step-by-step trace of how you arrived at it.",
		in.Query, kb, tool, ctxBlock)
}

// splitTrace separates the answer from the lines following "Trace:". trace
// is nil when there are no such lines.
func splitTrace(text string) (string, []string) {
	i := strings.Index(text, "Trace:")
	if i < 0 {
		return strings.TrimSpace(text), nil
	}
	var trace []string
	for _, line := range strings.Split(text[i+len("Trace:"):], "\n") {
		if line = strings.TrimSpace(line); line != "" {
			trace = append(trace, line)
		}
	}
	return strings.TrimSpace(text[:i]), trace
}
