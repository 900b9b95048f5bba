// Package mcpserver exposes the query pipeline as MCP tools over stdio.
package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/hyperjump/agentroute/internal/models"
	"github.com/hyperjump/agentroute/internal/pipeline"
	"github.com/hyperjump/agentroute/internal/session"
)

// QueryHandler runs queries and reports on its session.
type QueryHandler interface {
	HandleQueryInSession(ctx context.Context, sess *session.Context, query string) pipeline.Result
	Session() *session.Context
}

// MetadataHandleQuery describes the handle_query tool.
var MetadataHandleQuery = &mcp.Tool{
	Name: "handle_query",
	Description: "Answer a user query. The query is matched against the knowledge base, " +
		"routed to the product catalog, web search or a REST API when needed, " +
		"and answered with a numbered trace of the steps taken.",
}

// MetadataSessionStats describes the session_stats tool.
var MetadataSessionStats = &mcp.Tool{
	Name:        "session_stats",
	Description: "Report query count, per-tool usage and total latency for the current session.",
}

// InputHandleQuery is the input for the handle_query tool.
type InputHandleQuery struct {
	Query string `json:"query" jsonschema:"the question to answer"`
}

// OutputHandleQuery is the output for the handle_query tool.
type OutputHandleQuery struct {
	Answer    string   `json:"answer"`
	Trace     []string `json:"trace"`
	Tool      string   `json:"tool"`
	SessionID string   `json:"session_id"`
}

// InputSessionStats is the input for the session_stats tool.
type InputSessionStats struct{}

// Server binds the MCP tools to a pipeline. All calls share the pipeline's
// default session.
type Server struct {
	pipeline QueryHandler
	version  string
	logger   *zap.Logger
}

// New returns a Server over p.
func New(p QueryHandler, version string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{pipeline: p, version: version, logger: logger}
}

// MCPServer builds the SDK server with both tools registered.
func (s *Server) MCPServer() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: "agentroute", Version: s.version}, nil)
	mcp.AddTool(srv, MetadataHandleQuery, s.HandleQuery)
	mcp.AddTool(srv, MetadataSessionStats, s.SessionStats)
	return srv
}

// Run serves over stdin/stdout until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("Serving MCP over stdio")
	return s.MCPServer().Run(ctx, &mcp.StdioTransport{})
}

// HandleQuery runs the query through the pipeline.
func (s *Server) HandleQuery(ctx context.Context, _ *mcp.CallToolRequest, input InputHandleQuery) (*mcp.CallToolResult, OutputHandleQuery, error) {
	q := strings.TrimSpace(input.Query)
	if q == "" {
		return nil, OutputHandleQuery{}, fmt.Errorf("query is required")
	}
	res := s.pipeline.HandleQueryInSession(ctx, s.pipeline.Session(), q)
	out := OutputHandleQuery{
		Answer:    res.Answer,
		Trace:     res.Steps,
		SessionID: res.SessionID,
	}
	if out.Trace == nil {
		out.Trace = []string{}
	}
	for _, e := range res.Trace {
		if e.Step == models.StepToolCall {
			out.Tool, _ = e.Details["tool"].(string)
		}
	}
	return nil, out, nil
}

// SessionStats reports the shared session's stats.
func (s *Server) SessionStats(ctx context.Context, _ *mcp.CallToolRequest, _ InputSessionStats) (*mcp.CallToolResult, models.SessionStats, error) {
	return nil, s.pipeline.Session().Stats(), nil
}
