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

// OpenAIProvider talks to any OpenAI-compatible chat completions endpoint,
// which includes the HuggingFace router.
type OpenAIProvider struct {
	name     string
	baseURL  string
	apiKey   string
	defaults Options
	client   *http.Client
}

var _ Provider = (*OpenAIProvider)(nil)

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// NewOpenAIProvider returns a chat completions client for baseURL.
func NewOpenAIProvider(name, baseURL, apiKey string, defaults Options, client *http.Client) *OpenAIProvider {
	if client == nil {
		client = &http.Client{}
	}
	return &OpenAIProvider{
		name:     name,
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		defaults: defaults,
		client:   client,
	}
}

func (p *OpenAIProvider) Name() string { return p.name }

func (p *OpenAIProvider) Generate(ctx context.Context, systemPrompt, userPrompt string, opts ...Option) (string, error) {
	o := buildOptions(p.defaults, opts)
	body, err := json.Marshal(chatRequest{
		Model:       o.Model,
		Messages:    chatMessages(systemPrompt, userPrompt),
		Temperature: o.Temperature,
		MaxTokens:   o.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if p.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%s request failed: %w", p.name, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s api error (status %d): %s", p.name, resp.StatusCode, string(payload))
	}

	var cr chatResponse
	if err := json.Unmarshal(payload, &cr); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if cr.Error != nil {
		return "", fmt.Errorf("%s api returned error: %s", p.name, cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("empty choices from %s api", p.name)
	}
	return cr.Choices[0].Message.Content, nil
}
