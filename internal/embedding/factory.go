package embedding

import (
	"context"
	"fmt"

	"github.com/hyperjump/agentroute/internal/config"
)

const (
	defaultOpenAIBaseURL      = "https://api.openai.com/v1"
	defaultHuggingFaceBaseURL = "https://router.huggingface.co/v1"
	defaultOpenAIModel        = "text-embedding-3-small"
)

// New builds the embedder selected by cfg, wrapped in a cache when
// cfg.CacheSize is positive. It returns ErrBackendUnavailable for "none" and
// for remote providers without credentials.
func New(ctx context.Context, cfg config.EmbeddingConfig) (Embedder, error) {
	var (
		e   Embedder
		err error
	)
	switch cfg.Provider {
	case "", "none":
		return nil, fmt.Errorf("%w: no provider configured", ErrBackendUnavailable)
	case "mock":
		e = NewMockEmbedder(cfg.Dimensions)
	case "openai", "huggingface":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: %s api key missing", ErrBackendUnavailable, cfg.Provider)
		}
		base, model := cfg.BaseURL, cfg.Model
		if base == "" {
			base = defaultOpenAIBaseURL
			if cfg.Provider == "huggingface" {
				base = defaultHuggingFaceBaseURL
			}
		}
		if model == "" {
			if cfg.Provider == "huggingface" {
				return nil, fmt.Errorf("%w: huggingface model missing", ErrBackendUnavailable)
			}
			model = defaultOpenAIModel
		}
		e = NewOpenAIEmbedder(base, cfg.APIKey, model, 0, cfg.Timeout)
	case "genai":
		e, err = NewGenAIEmbedder(ctx, cfg.APIKey, cfg.Model, cfg.BaseURL, 0, cfg.Timeout)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unknown provider %q", ErrBackendUnavailable, cfg.Provider)
	}
	if cfg.CacheSize > 0 {
		return NewCachedEmbedder(e, cfg.CacheSize), nil
	}
	return e, nil
}
