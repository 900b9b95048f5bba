package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// OllamaProvider calls a local Ollama server's /api/chat without streaming.
type OllamaProvider struct {
	baseURL  string
	defaults Options
	client   *http.Client
}

var _ Provider = (*OllamaProvider)(nil)

type ollamaChatRequest struct {
	Model    string         `json:"model"`
	Messages []message      `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  *ollamaOptions `json:"options,omitempty"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string  `json:"model"`
	Message message `json:"message"`
	Done    bool    `json:"done"`
}

func NewOllamaProvider(baseURL string, defaults Options, client *http.Client) *OllamaProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &OllamaProvider{baseURL: strings.TrimRight(baseURL, "/"), defaults: defaults, client: client}
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) Generate(ctx context.Context, systemPrompt, userPrompt string, opts ...Option) (string, error) {
	o := buildOptions(p.defaults, opts)
	payload, err := json.Marshal(ollamaChatRequest{
		Model:    o.Model,
		Messages: chatMessages(systemPrompt, userPrompt),
		Options:  &ollamaOptions{Temperature: o.Temperature, NumPredict: o.MaxTokens},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/chat", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var out ollamaChatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	return out.Message.Content, nil
}
