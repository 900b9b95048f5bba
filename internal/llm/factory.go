package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/hyperjump/agentroute/internal/config"
)

const (
	defaultOpenAIBaseURL      = "https://api.openai.com/v1"
	defaultHuggingFaceBaseURL = "https://router.huggingface.co/v1"
	defaultOllamaBaseURL      = "http://localhost:11434"
	defaultOpenAIModel        = "gpt-3.5-turbo"
	defaultGeminiModel        = "gemini-2.0-flash"
	defaultTimeout            = 60 * time.Second
)

// New builds the backend described by cfg. Every call on the returned
// provider is bounded by timeout. It returns ErrBackendUnavailable for "none"
// and whenever a required API key or model is missing.
func New(ctx context.Context, cfg config.BackendConfig, timeout time.Duration) (Provider, error) {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	defaults := Options{Temperature: cfg.Temperature, MaxTokens: cfg.MaxTokens, Model: cfg.Model}
	client := &http.Client{Timeout: timeout}

	var p Provider
	switch cfg.Provider {
	case "", "none":
		return nil, fmt.Errorf("%w: no provider configured", ErrBackendUnavailable)
	case "openai", "huggingface":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: %s api key missing", ErrBackendUnavailable, cfg.Provider)
		}
		base := cfg.BaseURL
		if base == "" {
			base = defaultOpenAIBaseURL
			if cfg.Provider == "huggingface" {
				base = defaultHuggingFaceBaseURL
			}
		}
		if defaults.Model == "" {
			if cfg.Provider == "huggingface" {
				return nil, fmt.Errorf("%w: huggingface model missing", ErrBackendUnavailable)
			}
			defaults.Model = defaultOpenAIModel
		}
		p = NewOpenAIProvider(cfg.Provider, base, cfg.APIKey, defaults, client)
	case "ollama":
		if defaults.Model == "" {
			return nil, fmt.Errorf("%w: ollama model missing", ErrBackendUnavailable)
		}
		base := cfg.BaseURL
		if base == "" {
			base = defaultOllamaBaseURL
		}
		p = NewOllamaProvider(base, defaults, client)
	case "gemini":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: gemini api key missing", ErrBackendUnavailable)
		}
		if defaults.Model == "" {
			defaults.Model = defaultGeminiModel
		}
		g, err := NewGeminiProvider(ctx, cfg.APIKey, defaults)
		if err != nil {
			return nil, err
		}
		p = g
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrBackendUnavailable, cfg.Provider)
	}
	return &timed{Provider: p, timeout: timeout}, nil
}

type timed struct {
	Provider
	timeout time.Duration
}

func (t *timed) Generate(ctx context.Context, systemPrompt, userPrompt string, opts ...Option) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.Provider.Generate(ctx, systemPrompt, userPrompt, opts...)
}

// Available builds each configured backend in order and skips the ones that
// are unavailable. The returned slice may be empty.
func Available(ctx context.Context, timeout time.Duration, backends ...config.BackendConfig) ([]Provider, []error) {
	var (
		out  []Provider
		errs []error
	)
	for _, b := range backends {
		p, err := New(ctx, b, timeout)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, p)
	}
	return out, errs
}
