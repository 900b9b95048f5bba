package decision

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/hyperjump/agentroute/internal/models"
)

// DefaultSystemPrompt is used when no prompt file is configured.
const DefaultSystemPrompt = `You are a controller that decides the next action for a user query.
Choose exactly one source:
- KB: the knowledge base hits answer the query.
- TOOL_CSV: product, price, SKU or stock questions, answered from the catalog.
- TOOL_WEB: current events, news or anything newer than the knowledge base.
- TOOL_API: data served by the REST API (users, posts, weather).
Respond with a single JSON object and nothing else:
{"decision": "KB|TOOL_CSV|TOOL_WEB|TOOL_API", "summary": "...", "confidence": 0.0-1.0, "reason": "...", "tool_args": {}}
tool_args holds {"query": "..."} for TOOL_CSV and TOOL_WEB, and {"endpoint": "...", "method": "GET", "params": {}} for TOOL_API.
Return compact JSON only.`

// LoadSystemPrompt reads the controller prompt from path. An empty path
// returns DefaultSystemPrompt.
func LoadSystemPrompt(path string) (string, error) {
	if path == "" {
		return DefaultSystemPrompt, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSystemPrompt, fmt.Errorf("failed to read decision prompt: %w", err)
	}
	if s := strings.TrimSpace(string(data)); s != "" {
		return s, nil
	}
	return DefaultSystemPrompt, nil
}

// UserPrompt renders the query, the KB hits and the session context.
func UserPrompt(in Input) string {
	var b strings.Builder
	b.WriteString("Query: ")
	b.WriteString(in.Query)
	b.WriteString("\n\nKB_HITS:\n")
	if len(in.Hits) == 0 {
		b.WriteString("No KB hits.")
	}
	for i, h := range in.Hits {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "ID:%s\nTEXT:%s", h.DocID, h.Text)
	}
	b.WriteString(ContextBlock(in.Context))
	b.WriteString("\n\nReturn JSON only.")
	return b.String()
}

// ContextBlock renders the session snapshot for prompts, or "" without one.
func ContextBlock(s *models.SessionSnapshot) string {
	if s == nil {
		return ""
	}
	usage, _ := json.Marshal(s.ToolUsage)
	return fmt.Sprintf("\nCONTEXT:\nTool usage so far: %s\nQuery history length: %d", usage, s.HistoryLen)
}
