package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Log.MaxSizeMB == 0 {
		cfg.Log.MaxSizeMB = 10
	}
	if cfg.Log.MaxBackups == 0 {
		cfg.Log.MaxBackups = 5
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "./data/agentroute.db"
	}
	if cfg.Storage.VectorIndexPath == "" {
		cfg.Storage.VectorIndexPath = "./data/index.vec"
	}
	if cfg.Storage.KeywordIndexPath == "" {
		cfg.Storage.KeywordIndexPath = "./data/bleve"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "none"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.Timeout == 0 {
		cfg.Embedding.Timeout = 30 * time.Second
	}
	if cfg.Retrieval.KBDir == "" {
		cfg.Retrieval.KBDir = "./kb"
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.Metric == "" {
		cfg.Retrieval.Metric = "cosine"
	}
	if cfg.Retrieval.Extensions == nil {
		cfg.Retrieval.Extensions = []string{".md", ".txt", ".rst"}
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = "./prices.csv"
	}
	if cfg.Catalog.SKUThreshold == 0 {
		cfg.Catalog.SKUThreshold = 0.3
	}
	if cfg.LLM.Primary.Provider == "" {
		cfg.LLM.Primary.Provider = "none"
	}
	if cfg.LLM.Secondary.Provider == "" {
		cfg.LLM.Secondary.Provider = "none"
	}
	if cfg.LLM.Timeout == 0 {
		cfg.LLM.Timeout = 60 * time.Second
	}
	if cfg.Web.Provider == "" {
		cfg.Web.Provider = "simulated"
		if cfg.Web.SerpAPIKey != "" {
			cfg.Web.Provider = "serpapi"
		}
	}
	if cfg.Web.MaxResults == 0 {
		cfg.Web.MaxResults = 3
	}
	if cfg.Web.Timeout == 0 {
		cfg.Web.Timeout = 10 * time.Second
	}
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://jsonplaceholder.typicode.com"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 10 * time.Second
	}
	if cfg.Session.TTL == 0 {
		cfg.Session.TTL = time.Hour
	}
	if cfg.Session.CleanupInterval == 0 {
		cfg.Session.CleanupInterval = 10 * time.Minute
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 400 * time.Millisecond
	}
}
