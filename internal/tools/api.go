package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperjump/agentroute/internal/config"
)

// DefaultAPIBaseURL is used when no base URL is configured.
const DefaultAPIBaseURL = "https://jsonplaceholder.typicode.com"

const weatherEndpoint = "weather"

// APIClient calls endpoints of a JSON REST API.
type APIClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewAPIClient returns a client for cfg. The timeout defaults to 10s.
func NewAPIClient(cfg config.APIConfig) *APIClient {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultAPIBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &APIClient{
		baseURL: strings.TrimRight(base, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

// Call sends method to endpoint. GET params go in the query string, POST and
// PUT params are sent as the JSON body. A body that is not JSON is returned
// as {"text": body}. A GET of the "weather" endpoint is answered locally with
// canned data for params["city"].
func (c *APIClient) Call(ctx context.Context, endpoint, method string, params map[string]any) (any, error) {
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	if method == http.MethodGet && strings.Trim(endpoint, "/") == weatherEndpoint {
		city, _ := params["city"].(string)
		return weather(city), nil
	}
	target := c.baseURL + "/" + strings.TrimLeft(endpoint, "/")

	var body io.Reader
	switch method {
	case http.MethodGet:
		if len(params) > 0 {
			q := url.Values{}
			for k, v := range params {
				q.Set(k, fmt.Sprint(v))
			}
			target += "?" + q.Encode()
		}
	case http.MethodPost, http.MethodPut:
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		body = bytes.NewReader(data)
	case http.MethodDelete:
	default:
		return nil, fmt.Errorf("unsupported HTTP method: %s", method)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api request failed: %w", err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("api error: status %d", resp.StatusCode)
	}

	var out any
	if err := json.Unmarshal(payload, &out); err != nil {
		return map[string]any{"text": string(payload)}, nil
	}
	return out, nil
}

// weather returns canned weather for city.
func weather(city string) map[string]any {
	return map[string]any{
		"city":        city,
		"temperature": "22°C",
		"condition":   "Sunny",
		"humidity":    "65%",
		"source":      "Mock Weather API",
	}
}
