package decision

import (
	"context"

	"github.com/hyperjump/agentroute/internal/llm"
)

// GenerationStrategy asks a generation backend for the decision.
type GenerationStrategy struct {
	provider     llm.Provider
	systemPrompt string
	opts         []llm.Option
}

var _ Strategy = (*GenerationStrategy)(nil)

// NewGenerationStrategy returns a strategy over p. An empty systemPrompt
// selects DefaultSystemPrompt.
func NewGenerationStrategy(p llm.Provider, systemPrompt string, opts ...llm.Option) *GenerationStrategy {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	return &GenerationStrategy{provider: p, systemPrompt: systemPrompt, opts: opts}
}

func (s *GenerationStrategy) Name() string { return s.provider.Name() }

func (s *GenerationStrategy) Decide(ctx context.Context, in Input) (Decision, error) {
	text, err := s.provider.Generate(ctx, s.systemPrompt, UserPrompt(in), s.opts...)
	if err != nil {
		return Decision{}, err
	}
	return Parse(text, in.Query)
}
