package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/hyperjump/agentroute/internal/models"
)

func init() {
	color.NoColor = true
}

type fakeHandler struct {
	queries []string
}

func (f *fakeHandler) HandleQuery(ctx context.Context, q string) (string, []models.TraceEntry) {
	f.queries = append(f.queries, q)
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return "Pen: 1.5 USD", []models.TraceEntry{
		{Step: models.StepRetrieval, Timestamp: ts, Details: map[string]any{"query": q}},
		{Step: models.StepFinalAnswer, Timestamp: ts, Details: map[string]any{
			"answer": "Pen: 1.5 USD",
			"trace":  []string{"1. Retrieved KB snippets", "2. Looked up the catalog"},
		}},
	}
}

func (f *fakeHandler) GetSessionStats() models.SessionStats {
	return models.SessionStats{
		TotalQueries: len(f.queries),
		ToolUsage:    map[string]int{"csv": len(f.queries), "web": 0, "api": 0},
		TotalLatency: 0.25,
		SessionID:    "sess-1",
	}
}

func TestParseOutputFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    OutputFormat
		wantErr bool
	}{
		{"", OutputText, false},
		{"text", OutputText, false},
		{"JSON", OutputJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseOutputFormat(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseOutputFormat(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOutputFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWriteAnswer_Text(t *testing.T) {
	h := &fakeHandler{}
	answer, trace := h.HandleQuery(context.Background(), "price of pens")
	var buf bytes.Buffer
	resp := models.QueryResponse{Answer: answer, Steps: StepsFromTrace(trace), Trace: trace}
	if err := WriteAnswer(&buf, resp, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{
		"=== FINAL ANSWER ===\nPen: 1.5 USD\n",
		"=== STEPS ===\n1. Retrieved KB snippets\n2. Looked up the catalog\n",
		"=== TRACE ===\n",
		`retrieval: {"query":"price of pens"}`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWriteAnswer_JSON(t *testing.T) {
	h := &fakeHandler{}
	answer, trace := h.HandleQuery(context.Background(), "price of pens")
	var buf bytes.Buffer
	resp := models.QueryResponse{Answer: answer, Steps: StepsFromTrace(trace), Trace: trace, SessionID: "sess-1"}
	if err := WriteAnswer(&buf, resp, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.QueryResponse
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.Answer != answer || decoded.SessionID != "sess-1" || len(decoded.Trace) != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestStepsFromTrace_noFinalAnswer(t *testing.T) {
	if got := StepsFromTrace([]models.TraceEntry{{Step: models.StepRetrieval}}); got != nil {
		t.Errorf("StepsFromTrace = %v, want nil", got)
	}
}

func TestWriteSessionStats_Text(t *testing.T) {
	var buf bytes.Buffer
	stats := models.SessionStats{TotalQueries: 3, ToolUsage: map[string]int{"web": 1, "csv": 2, "api": 0}, TotalLatency: 1.23456, SessionID: "abc"}
	if err := WriteSessionStats(&buf, stats, OutputText); err != nil {
		t.Fatal(err)
	}
	want := "\n=== SESSION STATISTICS ===\nTotal queries: 3\nTool usage: api=0 csv=2 web=1\nTotal latency: 1.235s\nSession ID: abc\n\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestWriteAggregateStats_JSON(t *testing.T) {
	var buf bytes.Buffer
	stats := models.AggregateStats{Sessions: 2, TotalQueries: 5, ToolUsage: map[string]int{"csv": 1}}
	if err := WriteAggregateStats(&buf, stats, OutputJSON); err != nil {
		t.Fatal(err)
	}
	var decoded models.AggregateStats
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded.Sessions != 2 || decoded.TotalQueries != 5 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestWriteHits(t *testing.T) {
	hits := []models.Hit{{DocID: "pens.txt", Text: "Pens use ink.", Score: 1.5}}
	var buf bytes.Buffer
	if err := WriteHits(&buf, "ink", hits, OutputText); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, `Found 1 results for "ink"`) || !strings.Contains(out, "ID: pens.txt") {
		t.Errorf("unexpected output:\n%s", out)
	}

	buf.Reset()
	if err := WriteHits(&buf, "none", nil, OutputJSON); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"results": []`) {
		t.Errorf("expected empty results array, got %s", buf.String())
	}
}

func TestREPL(t *testing.T) {
	h := &fakeHandler{}
	in := strings.NewReader("price of pens\n\nstats\nexit\nnever read\n")
	var out bytes.Buffer
	if err := NewREPL(h, in, &out, OutputText).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.queries) != 1 || h.queries[0] != "price of pens" {
		t.Errorf("queries = %v", h.queries)
	}
	s := out.String()
	if !strings.Contains(s, "=== FINAL ANSWER ===") || !strings.Contains(s, "=== SESSION STATISTICS ===") {
		t.Errorf("unexpected output:\n%s", s)
	}
}

func TestREPL_EOF(t *testing.T) {
	h := &fakeHandler{}
	var out bytes.Buffer
	if err := NewREPL(h, strings.NewReader("quit"), &out, OutputText).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := NewREPL(h, strings.NewReader("a\nb"), &out, OutputText).Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.queries) != 2 {
		t.Errorf("queries = %v", h.queries)
	}
}

func TestREPL_cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewREPL(&fakeHandler{}, strings.NewReader("q\n"), &bytes.Buffer{}, OutputText).Run(ctx)
	if err != context.Canceled {
		t.Errorf("Run err = %v, want context.Canceled", err)
	}
}
