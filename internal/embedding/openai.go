package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"sync/atomic"
	"time"
)

// OpenAIEmbedder calls an OpenAI-compatible /embeddings endpoint. It serves
// both OpenAI and the HuggingFace router.
type OpenAIEmbedder struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	observed   atomic.Int64
	client     *http.Client
}

type embeddingsRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embeddingsResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAIEmbedder returns a client for baseURL. dimensions is sent only when
// positive and is otherwise learned from the first response.
func NewOpenAIEmbedder(baseURL, apiKey, model string, dimensions int, timeout time.Duration) *OpenAIEmbedder {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIEmbedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		client:     &http.Client{Timeout: timeout},
	}
}

// Embed returns the embedding of a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one request. Results are returned in input order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	body, err := json.Marshal(embeddingsRequest{Model: e.model, Input: texts, Dimensions: e.dimensions})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embeddings request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embeddings api error (status %d): %s", resp.StatusCode, string(payload))
	}

	var er embeddingsResponse
	if err := json.Unmarshal(payload, &er); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if er.Error != nil {
		return nil, fmt.Errorf("embeddings api returned error: %s", er.Error.Message)
	}
	if len(er.Data) != len(texts) {
		return nil, fmt.Errorf("embeddings api returned %d vectors for %d inputs", len(er.Data), len(texts))
	}
	sort.Slice(er.Data, func(i, j int) bool { return er.Data[i].Index < er.Data[j].Index })

	out := make([][]float32, len(er.Data))
	for i, d := range er.Data {
		out[i] = d.Embedding
	}
	if len(out[0]) > 0 {
		e.observed.CompareAndSwap(0, int64(len(out[0])))
	}
	return out, nil
}

// Dimensions returns the configured or observed vector size.
func (e *OpenAIEmbedder) Dimensions() int {
	if e.dimensions > 0 {
		return e.dimensions
	}
	return int(e.observed.Load())
}

// Close is a no-op.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
