package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads KEY=VALUE pairs from the given .env files into the process
// environment. Missing files are ignored; variables already set are kept.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		_ = godotenv.Load(p)
	}
}

// ApplyEnv fills secrets and a few tuning values from the environment when the
// config file leaves them empty.
func ApplyEnv(cfg *Config) {
	setFromEnv(&cfg.Web.SerpAPIKey, "SERPAPI_KEY")
	setFromEnv(&cfg.API.BaseURL, "API_BASE_URL")
	setFromEnv(&cfg.API.APIKey, "API_KEY")
	if cfg.Retrieval.TopK == 0 {
		if n, err := strconv.Atoi(os.Getenv("TOP_K")); err == nil && n > 0 {
			cfg.Retrieval.TopK = n
		}
	}
	applyBackendKey(&cfg.LLM.Primary)
	applyBackendKey(&cfg.LLM.Secondary)
	if cfg.Embedding.APIKey == "" {
		if env := keyEnvFor(cfg.Embedding.Provider); env != "" {
			cfg.Embedding.APIKey = os.Getenv(env)
		}
	}
}

func applyBackendKey(b *BackendConfig) {
	if b.APIKey != "" {
		return
	}
	if env := keyEnvFor(b.Provider); env != "" {
		b.APIKey = os.Getenv(env)
	}
}

func keyEnvFor(provider string) string {
	switch provider {
	case "openai":
		return "OPENAI_API_KEY"
	case "huggingface":
		return "HUGGINGFACE_API_TOKEN"
	case "gemini", "genai":
		return "GEMINI_API_KEY"
	default:
		return ""
	}
}

func setFromEnv(dst *string, key string) {
	if *dst != "" {
		return
	}
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
