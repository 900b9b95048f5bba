// Package main is the agentroute CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hyperjump/agentroute/internal/catalog"
	"github.com/hyperjump/agentroute/internal/cli"
	"github.com/hyperjump/agentroute/internal/composer"
	"github.com/hyperjump/agentroute/internal/config"
	"github.com/hyperjump/agentroute/internal/decision"
	"github.com/hyperjump/agentroute/internal/embedding"
	"github.com/hyperjump/agentroute/internal/keyword"
	"github.com/hyperjump/agentroute/internal/llm"
	"github.com/hyperjump/agentroute/internal/mcpserver"
	"github.com/hyperjump/agentroute/internal/models"
	"github.com/hyperjump/agentroute/internal/pipeline"
	"github.com/hyperjump/agentroute/internal/retrieval"
	"github.com/hyperjump/agentroute/internal/server"
	"github.com/hyperjump/agentroute/internal/session"
	"github.com/hyperjump/agentroute/internal/storage"
	"github.com/hyperjump/agentroute/internal/tools"
	"github.com/hyperjump/agentroute/internal/vector"
	"github.com/hyperjump/agentroute/internal/watcher"
	"github.com/hyperjump/agentroute/pkg/utils"
)

var version = "dev"

const (
	defaultConfigPath = "config.yaml"
	defaultServerURL  = "http://localhost:8080"
)

// loadConfig loads .env files next to the config and in the working
// directory, then the config itself. A missing config file at the default
// path gives the defaults.
func loadConfig(path string) (*config.Config, error) {
	config.LoadDotEnv(".env", filepath.Join(filepath.Dir(path), ".env"))
	if path == defaultConfigPath {
		return config.LoadOrDefault(path)
	}
	return config.Load(path)
}

func main() {
	command := "repl"
	var args []string
	if len(os.Args) > 1 {
		command, args = os.Args[1], os.Args[2:]
	}
	if strings.HasPrefix(command, "-") && command != "-h" && command != "--help" && command != "-v" && command != "--version" {
		// Flags without a subcommand belong to the REPL.
		command, args = "repl", os.Args[1:]
	}

	var err error
	switch command {
	case "repl":
		err = runREPL(args, os.Stdin, os.Stdout)
	case "query":
		err = runQuery(args, os.Stdout)
	case "server":
		err = runServer(args)
	case "mcp":
		err = runMCP(args)
	case "index":
		err = runIndex(args, os.Stdout)
	case "kb":
		err = runKB(args, os.Stdout)
	case "stats":
		err = runStats(args, os.Stdout)
	case "init":
		err = runInit(args, os.Stdout)
	case "version", "--version", "-v":
		fmt.Printf("agentroute version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// commonFlags registers the flags every local command shares.
type commonFlags struct {
	config *string
	debug  *bool
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		config: fs.String("config", defaultConfigPath, "config file path"),
		debug:  fs.Bool("debug", false, "enable debug logging"),
	}
}

// setup loads config and logger. Interactive commands log warnings and
// above only, unless debug is on.
func (f commonFlags) setup(interactive bool) (*config.Config, *zap.Logger, error) {
	cfg, err := loadConfig(*f.config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	debugMode := cfg.Debug || *f.debug
	logger, err := utils.NewFileLogger(debugMode, cfg.Log.File, cfg.Log.MaxSizeMB, cfg.Log.MaxBackups)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if interactive && !debugMode && cfg.Log.File == "" {
		logger = logger.WithOptions(zap.IncreaseLevel(zapcore.WarnLevel))
	}
	logger.Debug("config loaded", zap.String("config_path", *f.config), zap.Bool("debug", debugMode))
	return cfg, logger, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// reorderArgs moves flags that follow positional arguments to the front so
// that flag.Parse sees them: "agentroute query price of pens --output json".
func reorderArgs(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// joinArgs joins positional args so multi-word queries work with or without quotes.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func runREPL(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("repl", flag.ExitOnError)
	common := addCommonFlags(fs)
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}
	cfg, logger, err := common.setup(true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// Ctrl-C keeps its default behavior while the loop waits on stdin.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	comps, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()
	comps.warmUp(ctx)

	if w := comps.startWatcher(ctx, cfg); w != nil {
		defer w.Stop()
	}
	return cli.NewREPL(comps.Pipeline, stdin, stdout, format).Run(ctx)
}

// runInit writes a config file holding the defaults.
func runInit(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("config", defaultConfigPath, "config file path")
	force := fs.Bool("force", false, "overwrite an existing config file")
	fs.Parse(args)

	if _, err := os.Stat(*path); err == nil && !*force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", *path)
	}
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	if err := config.Save(*path, cfg); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Wrote default config to %s\n", *path)
	return nil
}

func runQuery(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	common := addCommonFlags(fs)
	output := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: agentroute query [flags] <text>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(reorderArgs(args))

	q := joinArgs(fs.Args())
	if q == "" {
		fs.Usage()
		return errors.New("query text is required")
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}
	cfg, logger, err := common.setup(true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()
	comps, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	answer, trace := comps.Pipeline.HandleQuery(ctx, q)
	return cli.WriteAnswer(stdout, models.QueryResponse{
		Answer:    answer,
		Steps:     cli.StepsFromTrace(trace),
		Trace:     trace,
		SessionID: comps.Pipeline.Session().ID(),
	}, format)
}

func runServer(args []string) error {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	common := addCommonFlags(fs)
	_ = fs.Parse(args)

	cfg, logger, err := common.setup(false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()
	comps, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()
	comps.warmUp(ctx)

	if w := comps.startWatcher(ctx, cfg); w != nil {
		defer w.Stop()
	}

	srv := server.NewServer(server.Deps{
		Pipeline:  comps.Pipeline,
		Sessions:  session.NewStore(cfg.Session.TTL, cfg.Session.CleanupInterval),
		KB:        comps.Retrieval,
		Catalog:   comps.Catalog,
		Backends:  comps.backendNames(),
		WebSource: comps.Web.Name(),
	}, cfg, logger)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Stop(shutdownCtx)
}

func runMCP(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	common := addCommonFlags(fs)
	_ = fs.Parse(args)

	cfg, logger, err := common.setup(false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()
	comps, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()
	comps.warmUp(ctx)

	if w := comps.startWatcher(ctx, cfg); w != nil {
		defer w.Stop()
	}
	err = mcpserver.New(comps.Pipeline, version, logger).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runIndex(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	common := addCommonFlags(fs)
	_ = fs.Parse(args)

	cfg, logger, err := common.setup(false)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()
	comps, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	start := time.Now()
	if err := comps.Retrieval.Reindex(ctx); err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}
	fmt.Fprintf(stdout, "Indexed %d document(s) from %s in %s (vector index size %d)\n",
		comps.Retrieval.DocumentCount(), comps.Retrieval.Dir(),
		time.Since(start).Round(time.Millisecond), comps.Retrieval.IndexSize())
	return nil
}

func runKB(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("kb", flag.ExitOnError)
	common := addCommonFlags(fs)
	serverURL := fs.String("server", "", "server URL (empty = search the local index)")
	limit := fs.Int("limit", 10, "number of results")
	output := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: agentroute kb [flags] <query>\n\n")
		fs.PrintDefaults()
	}
	_ = fs.Parse(reorderArgs(args))

	q := joinArgs(fs.Args())
	if q == "" {
		fs.Usage()
		return errors.New("query text is required")
	}
	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}

	if *serverURL != "" {
		var out struct {
			Results []models.Hit `json:"results"`
		}
		body := map[string]any{"query": q, "limit": *limit}
		if err := doJSON(http.MethodPost, *serverURL+"/api/v1/kb/search", body, &out); err != nil {
			return fmt.Errorf("kb search failed: %w", err)
		}
		return cli.WriteHits(stdout, q, out.Results, format)
	}

	cfg, logger, err := common.setup(true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()
	comps, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	hits, err := comps.Retrieval.KeywordSearch(ctx, q, *limit)
	if err != nil {
		return fmt.Errorf("kb search failed: %w", err)
	}
	return cli.WriteHits(stdout, q, hits, format)
}

// localStatus is what "stats" reports without a server.
type localStatus struct {
	Documents       int      `json:"documents"`
	VectorIndexSize int      `json:"vector_index_size"`
	CatalogPath     string   `json:"catalog_path"`
	CatalogRows     int      `json:"catalog_rows"`
	CatalogError    string   `json:"catalog_error,omitempty"`
	Backends        []string `json:"backends"`
	WebSearch       string   `json:"web_search"`
	DiskUsageBytes  *int64   `json:"disk_usage_bytes,omitempty"`
}

func runStats(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	common := addCommonFlags(fs)
	serverURL := fs.String("server", "", "server URL; reports stats summed over its sessions (e.g. "+defaultServerURL+")")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(args)

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		return err
	}
	if *serverURL != "" {
		var agg models.AggregateStats
		if err := doJSON(http.MethodGet, *serverURL+"/api/v1/stats", nil, &agg); err != nil {
			return fmt.Errorf("stats failed: %w", err)
		}
		return cli.WriteAggregateStats(stdout, agg, format)
	}

	cfg, logger, err := common.setup(true)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signalContext()
	defer stop()
	comps, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()
	comps.warmUp(ctx)

	status := localStatus{
		Documents:       comps.Retrieval.DocumentCount(),
		VectorIndexSize: comps.Retrieval.IndexSize(),
		CatalogPath:     comps.Catalog.Path(),
		Backends:        comps.backendNames(),
		WebSearch:       comps.Web.Name(),
	}
	if t := comps.Catalog.Table(); t != nil {
		status.CatalogRows = t.Len()
	}
	if err := comps.Catalog.LoadError(); err != nil {
		status.CatalogError = err.Error()
	}
	if n, err := storage.DiskUsageBytes(cfg.Storage.DatabasePath, cfg.Storage.VectorIndexPath, cfg.Storage.KeywordIndexPath); err == nil {
		status.DiskUsageBytes = &n
	}

	if format == cli.OutputJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(status)
	}
	fmt.Fprintf(stdout, "documents:          %d   # knowledge base files\n", status.Documents)
	fmt.Fprintf(stdout, "vector_index_size:  %d   # vectors in the semantic index\n", status.VectorIndexSize)
	fmt.Fprintf(stdout, "catalog_path:       %s\n", status.CatalogPath)
	fmt.Fprintf(stdout, "catalog_rows:       %d\n", status.CatalogRows)
	if status.CatalogError != "" {
		fmt.Fprintf(stdout, "catalog_error:      %s\n", status.CatalogError)
	}
	fmt.Fprintf(stdout, "backends:           %s\n", strings.Join(append(status.Backends, "rules"), " > "))
	fmt.Fprintf(stdout, "web_search:         %s\n", status.WebSearch)
	if status.DiskUsageBytes != nil {
		fmt.Fprintf(stdout, "disk_usage_bytes:   %d   # storage + indices on disk\n", *status.DiskUsageBytes)
	}
	return nil
}

// doJSON sends body (when non-nil) as JSON and decodes a 200 response into out.
func doJSON(method, url string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Components holds initialized services.
type Components struct {
	Storage   storage.Storage
	Keyword   keyword.KeywordIndex
	Embedder  embedding.Embedder
	Retrieval *retrieval.Engine
	Catalog   *catalog.Catalog
	Providers []llm.Provider
	Web       tools.WebSearcher
	Pipeline  *pipeline.Pipeline
	logger    *zap.Logger
}

// Close releases storage and index handles.
func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Keyword != nil {
		_ = c.Keyword.Close()
	}
	if c.Storage != nil {
		_ = c.Storage.Close()
	}
}

func (c *Components) backendNames() []string {
	names := make([]string, len(c.Providers))
	for i, p := range c.Providers {
		names[i] = p.Name()
	}
	return names
}

// warmUp builds the index before the first query. Failures are logged; the
// pipeline still answers through the keyword fallback or the fixed KB answer.
func (c *Components) warmUp(ctx context.Context) {
	if err := c.Retrieval.EnsureIndex(ctx); err != nil {
		c.logger.Warn("Knowledge base index unavailable", zap.Error(err))
	}
}

func (c *Components) startWatcher(ctx context.Context, cfg *config.Config) *watcher.Watcher {
	if !cfg.Watch.Enabled {
		return nil
	}
	w := watcher.NewWatcher(cfg.Retrieval.KBDir, cfg.Catalog.Path, c.Retrieval, c.Catalog,
		watcher.WithLogger(c.logger),
		watcher.WithDebounce(cfg.Watch.Debounce),
		watcher.WithExtensions(cfg.Retrieval.Extensions...))
	if err := w.Start(ctx); err != nil {
		c.logger.Warn("Failed to start watcher", zap.Error(err))
		return nil
	}
	return w
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	if dir := filepath.Dir(cfg.Storage.DatabasePath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	comps := &Components{Storage: store, logger: logger}

	kw, err := keyword.NewBleveIndex(cfg.Storage.KeywordIndexPath)
	if err != nil {
		comps.Close()
		return nil, fmt.Errorf("failed to initialize keyword index: %w", err)
	}
	comps.Keyword = kw

	embedder, err := embedding.New(ctx, cfg.Embedding)
	switch {
	case errors.Is(err, embedding.ErrBackendUnavailable):
		logger.Info("Embeddings unavailable, using keyword fallback", zap.Error(err))
	case err != nil:
		logger.Warn("Embedding backend failed to start, using keyword fallback", zap.Error(err))
	default:
		comps.Embedder = embedder
	}

	metric, err := vector.ParseMetric(cfg.Retrieval.Metric)
	if err != nil {
		comps.Close()
		return nil, err
	}
	retrievalOpts := []retrieval.Option{
		retrieval.WithLogger(logger),
		retrieval.WithTopK(cfg.Retrieval.TopK),
		retrieval.WithMetric(metric),
		retrieval.WithIndexPath(cfg.Storage.VectorIndexPath),
		retrieval.WithKeywordIndex(kw),
	}
	if len(cfg.Retrieval.Extensions) > 0 {
		retrievalOpts = append(retrievalOpts, retrieval.WithExtensions(cfg.Retrieval.Extensions...))
	}
	comps.Retrieval = retrieval.NewEngine(cfg.Retrieval.KBDir, store, comps.Embedder, retrievalOpts...)

	comps.Catalog = catalog.New(cfg.Catalog.Path,
		catalog.WithLogger(logger),
		catalog.WithSKUThreshold(cfg.Catalog.SKUThreshold))

	providers, errs := llm.Available(ctx, cfg.LLM.Timeout, cfg.LLM.Primary, cfg.LLM.Secondary)
	for _, e := range errs {
		logger.Debug("Generation backend skipped", zap.Error(e))
	}
	comps.Providers = providers
	logger.Info("Generation backends", zap.Strings("backends", comps.backendNames()))

	prompt, err := decision.LoadSystemPrompt(cfg.LLM.DecisionPromptFile)
	if err != nil {
		logger.Warn("Using the built-in decision prompt", zap.Error(err))
	}

	comps.Web = tools.NewWebSearcher(cfg.Web, logger)
	comps.Pipeline = pipeline.New(pipeline.Deps{
		Retriever: comps.Retrieval,
		Decider:   decision.NewDefaultEngine(providers, prompt, decision.WithLogger(logger)),
		Composer:  composer.NewDefault(providers, composer.WithLogger(logger)),
		Catalog:   comps.Catalog,
		Web:       comps.Web,
		API:       tools.NewAPIClient(cfg.API),
	}, pipeline.WithLogger(logger))
	return comps, nil
}

func printUsage() {
	fmt.Println(`agentroute - Query router over a knowledge base, a product catalog, web search and REST APIs

Usage:
  agentroute [repl] [flags]          Interactive session (default). Type exit, quit or stats.
  agentroute query [flags] <text>    Answer one query
  agentroute server [flags]          Start the HTTP server
  agentroute mcp [flags]             Serve MCP tools over stdio
  agentroute index [flags]           Rebuild the knowledge base index
  agentroute kb [flags] <query>      Keyword search over the knowledge base
  agentroute stats [flags]           Show index and catalog status, or server stats
  agentroute init [--force]          Write a default config file
  agentroute version                 Show version
  agentroute help                    Show this help

Common Flags:
  --config string    Config file path (default: config.yaml; defaults apply when it is missing)
  --debug            Enable debug logging

Query / REPL Flags:
  --output string    Output format: text or json (default: text)

KB Flags:
  --server string    Server URL. Empty searches the local index.
  --limit int        Number of results (default: 10)
  --output string    Output format: text or json

Stats Flags:
  --server string    Server URL. When set, reports stats summed over the server's sessions.
  --output string    Output format: text or json

Examples:
  agentroute init
  agentroute
  agentroute query "What is the price of SKU PEN456?"
  agentroute query --output json latest AI news
  agentroute server --config ./config.yaml
  agentroute kb ink
  agentroute stats --server http://localhost:8080`)
}
