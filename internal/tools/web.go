// Package tools implements the network actors: web search and a generic
// REST API client. Each has an offline mode.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/agentroute/internal/config"
	"github.com/hyperjump/agentroute/internal/models"
)

const (
	defaultSerpAPIURL    = "https://serpapi.com/search"
	defaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"
	defaultMaxResults    = 3
	maxBodyBytes         = 1 << 20
)

// WebSearcher returns web results for a query.
type WebSearcher interface {
	Name() string
	Search(ctx context.Context, query string) ([]models.WebResult, error)
}

// NewWebSearcher builds the searcher chain for cfg. Remote providers fall
// back to the simulated searcher when they fail.
func NewWebSearcher(cfg config.WebConfig, logger *zap.Logger) WebSearcher {
	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.Timeout <= 0 {
		client.Timeout = 10 * time.Second
	}
	var chain []WebSearcher
	switch {
	case cfg.Provider == "serpapi" && cfg.SerpAPIKey != "":
		chain = append(chain, NewSerpAPISearcher(defaultSerpAPIURL, cfg.SerpAPIKey, cfg.MaxResults, client))
	case cfg.Provider == "duckduckgo":
		chain = append(chain, NewDuckDuckGoSearcher(defaultDuckDuckGoURL, cfg.MaxResults, client))
	}
	chain = append(chain, SimulatedSearcher{})
	if len(chain) == 1 {
		return chain[0]
	}
	return NewFallbackSearcher(logger, chain...)
}

// FallbackSearcher tries each searcher in order and returns the first result
// set that did not fail.
type FallbackSearcher struct {
	chain  []WebSearcher
	logger *zap.Logger
}

func NewFallbackSearcher(logger *zap.Logger, chain ...WebSearcher) *FallbackSearcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackSearcher{chain: chain, logger: logger}
}

func (f *FallbackSearcher) Name() string {
	names := make([]string, len(f.chain))
	for i, s := range f.chain {
		names[i] = s.Name()
	}
	return strings.Join(names, ">")
}

func (f *FallbackSearcher) Search(ctx context.Context, query string) ([]models.WebResult, error) {
	var errs []error
	for _, s := range f.chain {
		results, err := s.Search(ctx, query)
		if err == nil {
			return results, nil
		}
		f.logger.Warn("Web search failed, trying next", zap.String("searcher", s.Name()), zap.Error(err))
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}
	return nil, errors.Join(errs...)
}

// SerpAPISearcher queries Google through SerpAPI.
type SerpAPISearcher struct {
	baseURL string
	apiKey  string
	num     int
	client  *http.Client
}

func NewSerpAPISearcher(baseURL, apiKey string, num int, client *http.Client) *SerpAPISearcher {
	if num <= 0 {
		num = defaultMaxResults
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &SerpAPISearcher{baseURL: baseURL, apiKey: apiKey, num: num, client: client}
}

func (s *SerpAPISearcher) Name() string { return "serpapi" }

type serpResponse struct {
	OrganicResults []struct {
		Title   string `json:"title"`
		Snippet string `json:"snippet"`
		Link    string `json:"link"`
	} `json:"organic_results"`
	Error string `json:"error,omitempty"`
}

func (s *SerpAPISearcher) Search(ctx context.Context, query string) ([]models.WebResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("api_key", s.apiKey)
	params.Set("num", fmt.Sprint(s.num))
	params.Set("engine", "google")

	body, err := get(ctx, s.client, s.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var sr serpResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, fmt.Errorf("failed to decode serpapi response: %w", err)
	}
	if sr.Error != "" {
		return nil, fmt.Errorf("serpapi returned error: %s", sr.Error)
	}
	results := make([]models.WebResult, 0, s.num)
	for i, item := range sr.OrganicResults {
		if i == s.num {
			break
		}
		results = append(results, models.WebResult{Title: item.Title, Snippet: item.Snippet, Link: item.Link, Source: "SerpAPI"})
	}
	return results, nil
}

// SimulatedSearcher returns a single canned result. It never fails.
type SimulatedSearcher struct{}

func (SimulatedSearcher) Name() string { return "simulated" }

func (SimulatedSearcher) Search(_ context.Context, query string) ([]models.WebResult, error) {
	return []models.WebResult{{
		Title:   "Search result for: " + query,
		Snippet: fmt.Sprintf("This is a simulated search result for '%s'. In a real implementation, this would fetch actual web results.", query),
		Link:    "https://example.com/search?q=" + url.QueryEscape(query),
		Source:  "DuckDuckGo (simulated)",
	}}, nil
}

func get(ctx context.Context, client *http.Client, rawURL string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
