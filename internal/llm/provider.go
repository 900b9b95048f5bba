// Package llm provides the text generation backends used by the decision
// engine and the answer composer.
package llm

import (
	"context"
	"errors"
)

// ErrBackendUnavailable is returned when a backend is not configured or
// lacks credentials.
var ErrBackendUnavailable = errors.New("generation backend unavailable")

// Provider generates a completion for a system and user prompt pair.
type Provider interface {
	Name() string
	Generate(ctx context.Context, systemPrompt, userPrompt string, opts ...Option) (string, error)
}

// Options holds per-call generation parameters.
type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // overrides the backend default
}

// Option sets a generation parameter.
type Option func(*Options)

func WithTemperature(temp float64) Option {
	return func(o *Options) { o.Temperature = temp }
}

func WithMaxTokens(n int) Option {
	return func(o *Options) { o.MaxTokens = n }
}

func WithModel(model string) Option {
	return func(o *Options) { o.Model = model }
}

func buildOptions(defaults Options, opts []Option) Options {
	o := defaults
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func chatMessages(systemPrompt, userPrompt string) []message {
	msgs := make([]message, 0, 2)
	if systemPrompt != "" {
		msgs = append(msgs, message{Role: "system", Content: systemPrompt})
	}
	return append(msgs, message{Role: "user", Content: userPrompt})
}
