package mcpserver

import (
	"context"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/agentroute/internal/catalog"
	"github.com/hyperjump/agentroute/internal/pipeline"
)

func newTestServer() *Server {
	cat := catalog.FromTable(catalog.Normalize(
		[]string{"sku", "name", "price", "currency"},
		[][]string{{"PEN456", "Pen", "1.5", "USD"}},
		catalog.NormalizeOptions{SKUThreshold: catalog.DefaultSKUThreshold},
	))
	return New(pipeline.New(pipeline.Deps{Catalog: cat}), "test", nil)
}

func TestHandleQuery(t *testing.T) {
	ctx := context.Background()
	req := &mcp.CallToolRequest{}

	tests := []struct {
		name        string
		input       InputHandleQuery
		wantErr     bool
		errContains string
		wantAnswer  string
		wantTool    string
	}{
		{
			name:        "empty query returns error",
			input:       InputHandleQuery{Query: "  "},
			wantErr:     true,
			errContains: "query is required",
		},
		{
			name:       "sku price goes to the catalog",
			input:      InputHandleQuery{Query: "What is the price of SKU PEN456?"},
			wantAnswer: "Pen: 1.5 USD\nSKU: PEN456",
			wantTool:   "csv",
		},
		{
			name:     "news goes to web search",
			input:    InputHandleQuery{Query: "Latest AI news"},
			wantTool: "web",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer()
			result, out, err := s.HandleQuery(ctx, req, tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Nil(t, result)
			if tt.wantAnswer != "" {
				assert.Equal(t, tt.wantAnswer, out.Answer)
			}
			assert.Equal(t, tt.wantTool, out.Tool)
			assert.NotEmpty(t, out.Trace)
			assert.NotEmpty(t, out.SessionID)
		})
	}
}

func TestSessionStats_sharesSession(t *testing.T) {
	ctx := context.Background()
	s := newTestServer()

	_, first, err := s.HandleQuery(ctx, nil, InputHandleQuery{Query: "What is the price of SKU PEN456?"})
	require.NoError(t, err)
	_, second, err := s.HandleQuery(ctx, nil, InputHandleQuery{Query: "Latest AI news"})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	_, stats, err := s.SessionStats(ctx, nil, InputSessionStats{})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalQueries)
	assert.Equal(t, map[string]int{"csv": 1, "web": 1, "api": 0}, stats.ToolUsage)
	assert.Equal(t, first.SessionID, stats.SessionID)
}

func TestMCPServer_listsTools(t *testing.T) {
	ctx := context.Background()
	clientTransport, serverTransport := mcp.NewInMemoryTransports()

	ss, err := newTestServer().MCPServer().Connect(ctx, serverTransport, nil)
	require.NoError(t, err)
	defer ss.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	defer cs.Close()

	tools, err := cs.ListTools(ctx, nil)
	require.NoError(t, err)
	names := make([]string, 0, len(tools.Tools))
	for _, tool := range tools.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"handle_query", "session_stats"}, names)

	res, err := cs.CallTool(ctx, &mcp.CallToolParams{
		Name:      "handle_query",
		Arguments: map[string]any{"query": "What is the price of SKU PEN456?"},
	})
	require.NoError(t, err)
	assert.False(t, res.IsError)
	require.NotEmpty(t, res.Content)
}
