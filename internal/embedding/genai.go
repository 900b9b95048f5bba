package embedding

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"google.golang.org/genai"
)

// GenAIEmbedder generates embeddings using the Gemini API.
type GenAIEmbedder struct {
	client     *genai.Client
	model      string
	dimensions int
	observed   atomic.Int64
	timeout    time.Duration
}

// NewGenAIEmbedder creates a Gemini embedding client. Every request is bounded
// by timeout. baseURL overrides the Gemini endpoint when set.
func NewGenAIEmbedder(ctx context.Context, apiKey, model, baseURL string, dimensions int, timeout time.Duration) (*GenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: GenAI API key is required", ErrBackendUnavailable)
	}
	if model == "" {
		model = "gemini-embedding-001"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	cc := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if baseURL != "" {
		cc.HTTPOptions.BaseURL = baseURL
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GenAIEmbedder{client: client, model: model, dimensions: dimensions, timeout: timeout}, nil
}

func (e *GenAIEmbedder) config() *genai.EmbedContentConfig {
	cfg := &genai.EmbedContentConfig{TaskType: "RETRIEVAL_DOCUMENT"}
	if e.dimensions > 0 {
		d := int32(e.dimensions)
		cfg.OutputDimensionality = &d
	}
	return cfg
}

// Embed generates an embedding for a single text.
func (e *GenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch generates embeddings for multiple texts in one call.
func (e *GenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	result, err := e.client.Models.EmbedContent(ctx, e.model, contents, e.config())
	if err != nil {
		return nil, fmt.Errorf("GenAI embed failed: %w", err)
	}
	if len(result.Embeddings) != len(texts) {
		return nil, fmt.Errorf("GenAI returned %d embeddings for %d inputs", len(result.Embeddings), len(texts))
	}
	out := make([][]float32, len(result.Embeddings))
	for i, emb := range result.Embeddings {
		out[i] = emb.Values
	}
	if len(out[0]) > 0 {
		e.observed.CompareAndSwap(0, int64(len(out[0])))
	}
	return out, nil
}

// Dimensions returns the configured or observed vector size.
func (e *GenAIEmbedder) Dimensions() int {
	if e.dimensions > 0 {
		return e.dimensions
	}
	return int(e.observed.Load())
}

// Close releases nothing; the GenAI client holds no resources that need closing.
func (e *GenAIEmbedder) Close() error {
	return nil
}
