package decision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

type wireDecision struct {
	Decision   *string        `json:"decision"`
	Confidence *float64       `json:"confidence"`
	Reason     *string        `json:"reason"`
	Rationale  *string        `json:"rationale"`
	Summary    string         `json:"summary"`
	ToolArgs   map[string]any `json:"tool_args"`
}

// Parse turns backend output into a Decision. The whole text is tried first,
// then the span from the first '{' to the last '}'. query fills the default
// arguments of csv and web decisions.
func Parse(text, query string) (Decision, error) {
	w, err := decodeStrict(strings.TrimSpace(text))
	if err != nil {
		start, end := strings.Index(text, "{"), strings.LastIndex(text, "}")
		if start < 0 || end <= start {
			return Decision{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		if w, err = decodeStrict(text[start : end+1]); err != nil {
			return Decision{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
	}
	return w.toDecision(query)
}

func decodeStrict(s string) (*wireDecision, error) {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.DisallowUnknownFields()
	var w wireDecision
	if err := dec.Decode(&w); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after decision object")
	}
	return &w, nil
}

func (w *wireDecision) toDecision(query string) (Decision, error) {
	if w.Decision == nil || strings.TrimSpace(*w.Decision) == "" {
		return Decision{}, fmt.Errorf("%w: missing decision", ErrMalformedResponse)
	}
	reason := w.Reason
	if reason == nil {
		reason = w.Rationale
	}
	if reason == nil {
		return Decision{}, fmt.Errorf("%w: missing reason", ErrMalformedResponse)
	}
	if w.Confidence == nil {
		return Decision{}, fmt.Errorf("%w: missing confidence", ErrMalformedResponse)
	}
	if c := *w.Confidence; c < 0 || c > 1 {
		return Decision{}, fmt.Errorf("%w: confidence %v out of range", ErrMalformedResponse, c)
	}

	name := strings.TrimSpace(*w.Decision)
	var args Args
	switch Tool(strings.ToUpper(name)) {
	case ToolKB:
		args = KBArgs{}
	case ToolCSV:
		args = CSVArgs{Query: stringArg(w.ToolArgs, "query", query)}
	case ToolWeb:
		args = WebArgs{Query: stringArg(w.ToolArgs, "query", query)}
	case ToolAPI:
		a := APIArgs{
			Endpoint: stringArg(w.ToolArgs, "endpoint", "posts"),
			Method:   strings.ToUpper(stringArg(w.ToolArgs, "method", "GET")),
		}
		if p, ok := w.ToolArgs["params"].(map[string]any); ok {
			a.Params = p
		}
		args = a
	default:
		args = UnknownArgs{Name: name, Raw: w.ToolArgs}
	}
	return newDecision(args, *w.Confidence, w.Summary, *reason), nil
}

func stringArg(m map[string]any, key, def string) string {
	if s, ok := m[key].(string); ok && strings.TrimSpace(s) != "" {
		return s
	}
	return def
}
