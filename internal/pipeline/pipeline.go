// Package pipeline runs a query through retrieval, routing, tool execution
// and answer composition, recording a trace of every step.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/agentroute/internal/catalog"
	"github.com/hyperjump/agentroute/internal/composer"
	"github.com/hyperjump/agentroute/internal/decision"
	"github.com/hyperjump/agentroute/internal/models"
	"github.com/hyperjump/agentroute/internal/session"
	"github.com/hyperjump/agentroute/internal/tools"
)

// Retriever returns knowledge base hits for a query.
type Retriever interface {
	Retrieve(ctx context.Context, query string) []models.Hit
}

// Decider picks the answer source.
type Decider interface {
	Decide(ctx context.Context, query string, hits []models.Hit, snapshot *models.SessionSnapshot) decision.Decision
}

// Composer writes the final answer.
type Composer interface {
	Compose(ctx context.Context, in composer.Input) (string, []string)
}

// APICaller calls a REST endpoint.
type APICaller interface {
	Call(ctx context.Context, endpoint, method string, params map[string]any) (any, error)
}

// Deps are the components a pipeline drives. Catalog, Web and API may be nil;
// the matching tool then reports a failure payload.
type Deps struct {
	Retriever Retriever
	Decider   Decider
	Composer  Composer
	Catalog   catalog.Looker
	Web       tools.WebSearcher
	API       APICaller
}

// Result is a handled query.
type Result struct {
	Answer    string
	Steps     []string
	Trace     []models.TraceEntry
	SessionID string
}

// Pipeline handles queries. It owns a default session for single-user
// surfaces and accepts explicit sessions for multi-user ones.
type Pipeline struct {
	deps    Deps
	session *session.Context
	logger  *zap.Logger
	now     func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithSession replaces the default session.
func WithSession(s *session.Context) Option {
	return func(p *Pipeline) {
		if s != nil {
			p.session = s
		}
	}
}

// New returns a pipeline over deps.
func New(deps Deps, opts ...Option) *Pipeline {
	p := &Pipeline{
		deps:    deps,
		session: session.New(),
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.deps.Composer == nil {
		p.deps.Composer = composer.New(nil)
	}
	if p.deps.Decider == nil {
		p.deps.Decider = decision.NewEngine(nil)
	}
	return p
}

// Session returns the default session.
func (p *Pipeline) Session() *session.Context { return p.session }

// HandleQuery handles query in the default session.
func (p *Pipeline) HandleQuery(ctx context.Context, query string) (string, []models.TraceEntry) {
	r := p.HandleQueryInSession(ctx, p.session, query)
	return r.Answer, r.Trace
}

// GetSessionStats summarizes the default session.
func (p *Pipeline) GetSessionStats() models.SessionStats {
	return p.session.Stats()
}

// HandleQueryInSession runs every step for query against sess. It never
// fails: a panic in any step is logged and turned into the neutral answer.
func (p *Pipeline) HandleQueryInSession(ctx context.Context, sess *session.Context, query string) (res Result) {
	res.SessionID = sess.ID()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Query handling panicked", zap.String("query", query), zap.Any("panic", r))
			res.Answer = composer.NeutralAnswer
			res.Steps = []string{"1. Internal error while handling the query; responded neutrally"}
		}
	}()

	sess.RecordQuery(query, p.now())

	start := time.Now()
	hits := p.retrieve(ctx, query)
	elapsed := time.Since(start)
	sess.AddLatency(elapsed)
	res.Trace = append(res.Trace, p.entry(models.StepRetrieval, map[string]any{
		"query":       query,
		"hits":        hits,
		"latency":     elapsed.Seconds(),
		"query_count": sess.Snapshot().HistoryLen,
	}))

	start = time.Now()
	d := p.deps.Decider.Decide(ctx, query, hits, sess.Snapshot())
	elapsed = time.Since(start)
	sess.AddLatency(elapsed)
	res.Trace = append(res.Trace, p.entry(models.StepDecision, map[string]any{
		"decision": d,
		"latency":  elapsed.Seconds(),
		"context":  map[string]any{"total_tool_calls": sess.Snapshot().TotalToolCalls()},
	}))

	var result *models.ToolResult
	if counter := d.Tool.Counter(); counter != "" {
		var took time.Duration
		result, took = p.runTool(ctx, d)
		sess.IncrementTool(counter)
		sess.AddLatency(took)
		res.Trace = append(res.Trace, p.entry(models.StepToolCall, map[string]any{
			"tool":    counter,
			"args":    d.Args,
			"result":  result,
			"latency": took.Seconds(),
			"meta":    map[string]any{"attempts": result.Attempts},
			"context": map[string]any{"tool_usage": sess.Snapshot().ToolUsage},
		}))
	}

	sess.SetLastDecision(d)

	start = time.Now()
	answer, steps := p.deps.Composer.Compose(ctx, composer.Input{
		Query:    query,
		Hits:     hits,
		Decision: d,
		Result:   result,
		Context:  sess.Snapshot(),
	})
	elapsed = time.Since(start)
	sess.AddLatency(elapsed)
	res.Answer, res.Steps = answer, steps
	res.Trace = append(res.Trace, p.entry(models.StepFinalAnswer, map[string]any{
		"answer":                answer,
		"trace":                 steps,
		"latency":               elapsed.Seconds(),
		"total_session_latency": sess.Snapshot().TotalLatency,
	}))

	p.logger.Info("Query handled",
		zap.String("session", sess.ID()),
		zap.String("tool", string(d.Tool)),
		zap.String("strategy", d.Strategy),
		zap.Int("hits", len(hits)))
	return res
}

func (p *Pipeline) retrieve(ctx context.Context, query string) []models.Hit {
	if p.deps.Retriever == nil {
		return nil
	}
	return p.deps.Retriever.Retrieve(ctx, query)
}

func (p *Pipeline) entry(step string, details map[string]any) models.TraceEntry {
	return models.TraceEntry{Step: step, Timestamp: p.now(), Details: details}
}

// runTool executes the tool selected by d. Failures are carried in the
// result's Error field.
func (p *Pipeline) runTool(ctx context.Context, d decision.Decision) (*models.ToolResult, time.Duration) {
	start := time.Now()
	result := &models.ToolResult{Tool: d.Tool.Counter()}
	switch args := d.Args.(type) {
	case decision.CSVArgs:
		if p.deps.Catalog == nil {
			result.Error = "catalog not configured"
			break
		}
		lr := catalog.LookupCandidates(p.deps.Catalog, args.Query)
		result.Rows, result.Attempts = lr.Rows, lr.Attempts
		result.LatencyS = lr.Elapsed.Seconds()
		return result, lr.Elapsed
	case decision.WebArgs:
		if p.deps.Web == nil {
			result.Error = "web search not configured"
			break
		}
		web, err := p.deps.Web.Search(ctx, args.Query)
		if err != nil {
			result.Error = err.Error()
			break
		}
		result.Web = web
	case decision.APIArgs:
		if p.deps.API == nil {
			result.Error = "api not configured"
			result.API = map[string]any{"error": result.Error}
			break
		}
		data, err := p.deps.API.Call(ctx, args.Endpoint, args.Method, args.Params)
		if err != nil {
			result.Error = err.Error()
			result.API = map[string]any{"error": result.Error}
			break
		}
		result.API = data
	default:
		result.Error = fmt.Sprintf("no arguments for tool %s", d.Tool)
	}
	took := time.Since(start)
	result.LatencyS = took.Seconds()
	if result.Error != "" {
		p.logger.Warn("Tool execution failed", zap.String("tool", result.Tool), zap.String("error", result.Error))
	}
	return result, took
}
