// Package config provides configuration loading and structs for agentroute.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Log       LogConfig       `yaml:"log"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	LLM       LLMConfig       `yaml:"llm"`
	Web       WebConfig       `yaml:"web"`
	API       APIConfig       `yaml:"api"`
	Session   SessionConfig   `yaml:"session"`
	Watch     WatchConfig     `yaml:"watch"`
}

// LogConfig holds optional rotating log file settings.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `yaml:"max_backups" validate:"gte=0"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"gte=0,lte=65535"`
}

// StorageConfig holds paths for the document store and indices.
type StorageConfig struct {
	DatabasePath     string `yaml:"database_path"`
	VectorIndexPath  string `yaml:"vector_index_path"`
	KeywordIndexPath string `yaml:"keyword_index_path"`
}

// EmbeddingConfig selects the embedding backend used by retrieval.
type EmbeddingConfig struct {
	Provider   string        `yaml:"provider" validate:"omitempty,oneof=none mock openai huggingface genai"`
	Model      string        `yaml:"model"`
	BaseURL    string        `yaml:"base_url"`
	APIKey     string        `yaml:"api_key"`
	Dimensions int           `yaml:"dimensions" validate:"gte=0"`
	CacheSize  int           `yaml:"cache_size" validate:"gte=0"`
	Timeout    time.Duration `yaml:"timeout"`
}

// RetrievalConfig holds knowledge base retrieval settings.
type RetrievalConfig struct {
	KBDir      string   `yaml:"kb_dir"`
	TopK       int      `yaml:"top_k" validate:"gte=1"`
	Metric     string   `yaml:"metric" validate:"oneof=cosine l2"`
	Extensions []string `yaml:"extensions"`
}

// CatalogConfig holds product catalog settings.
type CatalogConfig struct {
	Path string `yaml:"path"`
	// SKUThreshold is the fraction of SKU-shaped cells a column needs before it
	// is treated as the sku column when no column is named like one.
	SKUThreshold float64 `yaml:"sku_threshold" validate:"gte=0,lte=1"`
}

// BackendConfig describes one generation backend.
type BackendConfig struct {
	Provider    string  `yaml:"provider" validate:"omitempty,oneof=none openai huggingface ollama gemini"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Temperature float64 `yaml:"temperature" validate:"gte=0,lte=2"`
	MaxTokens   int     `yaml:"max_tokens" validate:"gte=0"`
}

// LLMConfig holds the two ranked generation backends.
type LLMConfig struct {
	Primary            BackendConfig `yaml:"primary"`
	Secondary          BackendConfig `yaml:"secondary"`
	Timeout            time.Duration `yaml:"timeout"`
	DecisionPromptFile string        `yaml:"decision_prompt_file"`
}

// WebConfig holds web search actor settings.
type WebConfig struct {
	Provider   string        `yaml:"provider" validate:"omitempty,oneof=simulated serpapi duckduckgo"`
	SerpAPIKey string        `yaml:"serpapi_key"`
	MaxResults int           `yaml:"max_results" validate:"gte=0"`
	Timeout    time.Duration `yaml:"timeout"`
}

// APIConfig holds REST API actor settings.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

// SessionConfig holds HTTP session store settings.
type SessionConfig struct {
	TTL             time.Duration `yaml:"ttl"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// WatchConfig holds corpus and catalog watch settings.
type WatchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Debounce time.Duration `yaml:"debounce"`
}

// Load reads and parses the config file at path, applies env overrides and defaults,
// expands paths, and validates the result.
// Returns an error if the file cannot be read, parsed, or validated.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return parse(data, filepath.Dir(path))
}

// LoadOrDefault behaves like Load, except that a missing file yields the
// defaults with relative paths resolved against the file's directory.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return parse(nil, filepath.Dir(path))
	}
	return Load(path)
}

func parse(data []byte, configDir string) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyEnv(&cfg)
	ApplyDefaults(&cfg)

	cfg.Log.File = expandPath(cfg.Log.File, configDir)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.VectorIndexPath = expandPath(cfg.Storage.VectorIndexPath, configDir)
	cfg.Storage.KeywordIndexPath = expandPath(cfg.Storage.KeywordIndexPath, configDir)
	cfg.Retrieval.KBDir = expandPath(cfg.Retrieval.KBDir, configDir)
	cfg.Catalog.Path = expandPath(cfg.Catalog.Path, configDir)
	cfg.LLM.DecisionPromptFile = expandPath(cfg.LLM.DecisionPromptFile, configDir)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field constraints declared in struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory. Empty paths stay empty.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
