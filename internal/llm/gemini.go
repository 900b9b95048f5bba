package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiProvider generates text with the Gemini API.
type GeminiProvider struct {
	client   *genai.Client
	defaults Options
}

var _ Provider = (*GeminiProvider)(nil)

// NewGeminiProvider creates a Gemini client authenticated with apiKey.
func NewGeminiProvider(ctx context.Context, apiKey string, defaults Options) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &GeminiProvider{client: client, defaults: defaults}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) Generate(ctx context.Context, systemPrompt, userPrompt string, opts ...Option) (string, error) {
	o := buildOptions(p.defaults, opts)
	temp := float32(o.Temperature)
	cfg := &genai.GenerateContentConfig{Temperature: &temp}
	if o.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(o.MaxTokens)
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}
	contents := []*genai.Content{genai.NewContentFromText(userPrompt, genai.RoleUser)}
	resp, err := p.client.Models.GenerateContent(ctx, o.Model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("gemini generate failed: %w", err)
	}
	return resp.Text(), nil
}
