package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/agentroute/internal/config"
)

func TestOpenAIProvider_Generate(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hello"}}]}`))
	}))
	defer srv.Close()

	p, err := New(context.Background(), config.BackendConfig{
		Provider: "openai", BaseURL: srv.URL, APIKey: "sk-test", MaxTokens: 300,
	}, time.Second)
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	out, err := p.Generate(context.Background(), "sys", "user", WithTemperature(0.5))
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
	assert.Equal(t, defaultOpenAIModel, got.Model)
	assert.Equal(t, 0.5, got.Temperature)
	assert.Equal(t, 300, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "user", got.Messages[1].Content)
}

func TestOpenAIProvider_errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"status", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`},
		{"api error", http.StatusOK, `{"error":{"message":"bad model"}}`},
		{"no choices", http.StatusOK, `{"choices":[]}`},
		{"not json", http.StatusOK, `<html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()
			p := NewOpenAIProvider("huggingface", srv.URL, "k", Options{Model: "m"}, nil)
			_, err := p.Generate(context.Background(), "", "q")
			assert.Error(t, err)
		})
	}
}

func TestOllamaProvider_Generate(t *testing.T) {
	var got ollamaChatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"model":"llama3","message":{"role":"assistant","content":"hi"},"done":true}`))
	}))
	defer srv.Close()

	p, err := New(context.Background(), config.BackendConfig{Provider: "ollama", BaseURL: srv.URL, Model: "llama3"}, time.Second)
	require.NoError(t, err)
	out, err := p.Generate(context.Background(), "sys", "user", WithMaxTokens(50))
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
	assert.False(t, got.Stream)
	assert.Equal(t, "llama3", got.Model)
	assert.Equal(t, 50, got.Options.NumPredict)
}

func TestGenerate_timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	p, err := New(context.Background(), config.BackendConfig{Provider: "ollama", BaseURL: srv.URL, Model: "m"}, 50*time.Millisecond)
	require.NoError(t, err)
	_, err = p.Generate(context.Background(), "", "q")
	assert.Error(t, err)
}

func TestNew_unavailable(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.BackendConfig
	}{
		{"empty", config.BackendConfig{}},
		{"none", config.BackendConfig{Provider: "none"}},
		{"openai without key", config.BackendConfig{Provider: "openai"}},
		{"huggingface without model", config.BackendConfig{Provider: "huggingface", APIKey: "k"}},
		{"ollama without model", config.BackendConfig{Provider: "ollama"}},
		{"gemini without key", config.BackendConfig{Provider: "gemini"}},
		{"unknown", config.BackendConfig{Provider: "claude", APIKey: "k"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(context.Background(), tt.cfg, 0)
			assert.ErrorIs(t, err, ErrBackendUnavailable)
		})
	}
}

func TestAvailable(t *testing.T) {
	ps, errs := Available(context.Background(), time.Second,
		config.BackendConfig{Provider: "none"},
		config.BackendConfig{Provider: "ollama", Model: "m"},
	)
	require.Len(t, ps, 1)
	assert.Equal(t, "ollama", ps[0].Name())
	assert.Len(t, errs, 1)
}
