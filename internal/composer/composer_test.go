package composer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyperjump/agentroute/internal/decision"
	"github.com/hyperjump/agentroute/internal/llm"
	"github.com/hyperjump/agentroute/internal/models"
)

type fakeProvider struct {
	name string
	out  string
	err  error
	user string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Generate(_ context.Context, _, user string, _ ...llm.Option) (string, error) {
	f.user = user
	return f.out, f.err
}

func csvDecision(q string) decision.Decision {
	return decision.Decision{Tool: decision.ToolCSV, Args: decision.CSVArgs{Query: q}}
}

var kbHits = []models.Hit{
	{DocID: "pricing_examples.md", Text: "Example: pens cost 2 USD each in our sample data."},
}

func TestRuleStrategy_branches(t *testing.T) {
	tests := []struct {
		name   string
		in     Input
		answer string
		trace  []string
	}{
		{
			name: "single price",
			in: Input{
				Query:    "What is the price of SKU PEN456?",
				Decision: csvDecision("What is the price of SKU PEN456?"),
				Result:   &models.ToolResult{Rows: []models.ProductRow{{"sku": "PEN456", "name": "Pen", "price": "1.5", "currency": "USD"}}},
			},
			answer: "Pen: 1.5 USD\nSKU: PEN456",
			trace: []string{
				"1. Selected CSV for pricing",
				"2. Retrieved product row from CSV",
				"3. Returned authoritative price from CSV",
			},
		},
		{
			name: "listing",
			in: Input{
				Query:    "show available products",
				Decision: csvDecision("show available products"),
				Result: &models.ToolResult{Rows: []models.ProductRow{
					{"sku": "PEN456", "name": "Pen", "price": "1.5", "currency": "USD", "stock": "100"},
					{"sku": "NB001", "name": "Notebook", "price": "3", "currency": "USD"},
					{"name": "Eraser", "price": "0.5", "stock": "0"},
				}},
			},
			answer: "Pen (SKU PEN456) - 1.5 USD - stock 100\nNotebook (SKU NB001) - 3 USD\nEraser - stock 0",
			trace: []string{
				"1. Selected CSV for catalog listing",
				"2. Retrieved product rows from CSV",
				"3. Returned authoritative catalog list from CSV",
			},
		},
		{
			name: "csv empty suppresses kb",
			in: Input{
				Query:    "price of pens",
				Hits:     kbHits,
				Decision: csvDecision("price of pens"),
				Result:   &models.ToolResult{},
			},
			answer: NotFoundAnswer,
			trace: []string{
				"1. Selected CSV for pricing",
				"2. CSV lookup returned no rows",
				"3. Enforced CSV as authoritative source for prices",
				"4. Responded with not-found",
			},
		},
		{
			name: "web headlines",
			in: Input{
				Query:    "latest AI news",
				Decision: decision.Decision{Tool: decision.ToolWeb},
				Result: &models.ToolResult{Web: []models.WebResult{
					{Title: " AI breakthrough ", Snippet: " big news "},
					{Content: "no title here"},
					{Title: "Bare"},
				}},
			},
			answer: "AI breakthrough: big news\nResult: no title here\nBare",
			trace: []string{
				"1. Selected Web Search",
				"2. Retrieved web results",
				"3. Returned summarized headlines",
			},
		},
		{
			name: "api response",
			in: Input{
				Query:    "get post",
				Decision: decision.Decision{Tool: decision.ToolAPI, Args: decision.APIArgs{Endpoint: "posts/1", Method: "GET"}},
				Result:   &models.ToolResult{API: map[string]any{"id": 1}},
			},
			answer: "API response (GET posts/1):\n{\"id\":1}",
			trace: []string{
				"1. Selected REST API",
				"2. Called GET posts/1",
				"3. Returned API response",
			},
		},
		{
			name: "relevant kb",
			in: Input{
				Query:    "how much do pens cost",
				Hits:     kbHits,
				Decision: decision.Decision{Tool: decision.ToolKB},
			},
			answer: "Based on the knowledge base:\n- " + kbHits[0].Text + "...",
			trace: []string{
				"1. Searched knowledge base and found 1 documents",
				"2. Identified 1 relevant documents",
				"3. Compiled information to provide this answer",
			},
		},
		{
			name: "irrelevant kb",
			in: Input{
				Query:    "what is kubernetes",
				Hits:     kbHits,
				Decision: decision.Decision{Tool: decision.ToolKB},
			},
			answer: "Found knowledge base documents, but none appear directly relevant to the query.",
			trace: []string{
				"1. Searched knowledge base and found 1 documents",
				"2. No relevant documents found for this query",
				"3. Provided a neutral response",
			},
		},
		{
			name: "api error falls to neutral",
			in: Input{
				Query:    "get post",
				Decision: decision.Decision{Tool: decision.ToolAPI, Args: decision.APIArgs{Endpoint: "posts/1", Method: "GET"}},
				Result:   &models.ToolResult{API: map[string]any{"error": "boom"}},
			},
			answer: NeutralAnswer,
			trace:  []string{"1. No KB hits and no tool results; responded neutrally"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			answer, trace, err := RuleStrategy{}.Compose(context.Background(), tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.answer, answer)
			if diff := cmp.Diff(tt.trace, trace); diff != "" {
				t.Errorf("trace mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestRuleStrategy_limits(t *testing.T) {
	web := make([]models.WebResult, 7)
	for i := range web {
		web[i] = models.WebResult{Title: "t"}
	}
	answer, _, _ := RuleStrategy{}.Compose(context.Background(), Input{
		Decision: decision.Decision{Tool: decision.ToolWeb},
		Result:   &models.ToolResult{Web: web},
	})
	assert.Len(t, strings.Split(answer, "\n"), 5)

	long := strings.Repeat("rate limiting ", 40)
	hits := []models.Hit{{DocID: "a", Text: long}, {DocID: "b", Text: long}, {DocID: "c", Text: long}}
	answer, trace, _ := RuleStrategy{}.Compose(context.Background(), Input{Query: "explain limiting", Hits: hits})
	lines := strings.Split(answer, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "- "+long[:200]+"...", lines[1])
	assert.Equal(t, "2. Identified 3 relevant documents", trace[1])
}

func TestComposer_chain(t *testing.T) {
	primary := &fakeProvider{name: "primary", err: errors.New("timeout")}
	secondary := &fakeProvider{name: "secondary", out: "   "}
	c := NewDefault([]llm.Provider{primary, secondary})

	answer, trace := c.Compose(context.Background(), Input{Query: "what is kubernetes"})
	assert.Equal(t, NeutralAnswer, answer)
	assert.Len(t, trace, 1)

	secondary.out = "Pens cost 1.5 USD.\n\nTrace:\n1. Looked at CSV\n\n2. Answered\n"
	answer, trace = c.Compose(context.Background(), Input{Query: "q"})
	assert.Equal(t, "Pens cost 1.5 USD.", answer)
	assert.Equal(t, []string{"1. Looked at CSV", "2. Answered"}, trace)

	secondary.out = "Just an answer"
	answer, trace = c.Compose(context.Background(), Input{Query: "q"})
	assert.Equal(t, "Just an answer", answer)
	assert.Equal(t, []string{"1. Generated answer with secondary"}, trace)
}

func TestUserPrompt_authority(t *testing.T) {
	p := &fakeProvider{name: "p", out: "No product found."}
	s := NewGenerationStrategy(p)
	_, _, err := s.Compose(context.Background(), Input{
		Query:    "price of pens",
		Hits:     kbHits,
		Decision: csvDecision("price of pens"),
		Result:   &models.ToolResult{Tool: "csv"},
	})
	require.NoError(t, err)
	assert.NotContains(t, p.user, kbHits[0].Text)
	assert.Contains(t, p.user, SuppressedKB)

	prompt := UserPrompt(Input{
		Query:    "how much do pens cost",
		Hits:     kbHits,
		Decision: decision.Decision{Tool: decision.ToolKB},
		Context:  &models.SessionSnapshot{ToolUsage: map[string]int{"csv": 0}, HistoryLen: 1},
	})
	assert.Contains(t, prompt, "pricing_examples.md: "+kbHits[0].Text)
	assert.Contains(t, prompt, "TOOL_RESULT:\nNo tool result")
	assert.Contains(t, prompt, "Query history length: 1")
	assert.True(t, strings.HasSuffix(prompt, "short step-by-step trace of how you arrived at it."))
}
