// Package composer writes the final answer and its human-readable trace.
package composer

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/hyperjump/agentroute/internal/decision"
	"github.com/hyperjump/agentroute/internal/llm"
	"github.com/hyperjump/agentroute/internal/models"
)

// ErrEmptyAnswer is returned when a backend produces no text.
var ErrEmptyAnswer = errors.New("empty answer")

// Input is everything known about a query once its tool has run.
type Input struct {
	Query    string
	Hits     []models.Hit
	Decision decision.Decision
	// Result is nil when the decision ran no tool.
	Result  *models.ToolResult
	Context *models.SessionSnapshot
}

func (in Input) rows() []models.ProductRow {
	if in.Result == nil {
		return nil
	}
	return in.Result.Rows
}

// csvEmpty reports whether the catalog was chosen and found nothing. The
// catalog is then the only authority and KB text must not be used.
func (in Input) csvEmpty() bool {
	return in.Decision.Tool == decision.ToolCSV && len(in.rows()) == 0
}

// Strategy composes an answer or fails so the next strategy is tried.
type Strategy interface {
	Name() string
	Compose(ctx context.Context, in Input) (answer string, trace []string, err error)
}

// Composer runs strategies in order. The rule strategy answers when every
// strategy fails.
type Composer struct {
	strategies []Strategy
	logger     *zap.Logger
}

// Option configures a Composer.
type Option func(*Composer)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Composer) {
		if l != nil {
			c.logger = l
		}
	}
}

func New(strategies []Strategy, opts ...Option) *Composer {
	c := &Composer{strategies: strategies, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewDefault chains one generation strategy per provider, then the rules.
func NewDefault(providers []llm.Provider, opts ...Option) *Composer {
	strategies := make([]Strategy, 0, len(providers)+1)
	for _, p := range providers {
		strategies = append(strategies, NewGenerationStrategy(p, llm.WithMaxTokens(400)))
	}
	strategies = append(strategies, RuleStrategy{})
	return New(strategies, opts...)
}

// Compose returns the final answer and its trace lines.
func (c *Composer) Compose(ctx context.Context, in Input) (string, []string) {
	for _, s := range c.strategies {
		answer, trace, err := s.Compose(ctx, in)
		if err != nil {
			c.logger.Warn("Answer strategy failed, trying next",
				zap.String("strategy", s.Name()), zap.Error(err))
			continue
		}
		return answer, trace
	}
	return RuleStrategy{}.compose(in)
}
