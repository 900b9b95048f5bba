package decision

import (
	"context"

	"go.uber.org/zap"

	"github.com/hyperjump/agentroute/internal/llm"
	"github.com/hyperjump/agentroute/internal/models"
)

// Input is what a strategy decides on.
type Input struct {
	Query   string
	Hits    []models.Hit
	Context *models.SessionSnapshot
}

// Strategy produces a decision or fails so the next strategy is tried.
type Strategy interface {
	Name() string
	Decide(ctx context.Context, in Input) (Decision, error)
}

// Engine runs strategies in order and returns the first decision. The rule
// strategy answers when every strategy fails.
type Engine struct {
	strategies []Strategy
	logger     *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEngine returns an engine over strategies.
func NewEngine(strategies []Strategy, opts ...Option) *Engine {
	e := &Engine{strategies: strategies, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// NewDefaultEngine chains one generation strategy per provider, in order,
// then the rule strategy.
func NewDefaultEngine(providers []llm.Provider, systemPrompt string, opts ...Option) *Engine {
	strategies := make([]Strategy, 0, len(providers)+1)
	for _, p := range providers {
		strategies = append(strategies, NewGenerationStrategy(p, systemPrompt, llm.WithMaxTokens(300)))
	}
	strategies = append(strategies, RuleStrategy{})
	return NewEngine(strategies, opts...)
}

// Decide returns the routing decision for query.
func (e *Engine) Decide(ctx context.Context, query string, hits []models.Hit, snapshot *models.SessionSnapshot) Decision {
	in := Input{Query: query, Hits: hits, Context: snapshot}
	for _, s := range e.strategies {
		d, err := s.Decide(ctx, in)
		if err != nil {
			e.logger.Warn("Decision strategy failed, trying next",
				zap.String("strategy", s.Name()), zap.Error(err))
			continue
		}
		d.Strategy = s.Name()
		e.logger.Debug("Decision made",
			zap.String("strategy", s.Name()),
			zap.String("tool", string(d.Tool)),
			zap.Float64("confidence", d.Confidence))
		return d
	}
	var r RuleStrategy
	d := r.decide(in)
	d.Strategy = r.Name()
	return d
}
