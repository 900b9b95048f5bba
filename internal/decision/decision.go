// Package decision selects the answer source for a query through an ordered
// chain of strategies that ends in a rule-based terminal.
package decision

import (
	"encoding/json"
	"errors"
)

// ErrMalformedResponse is returned when generated output is not a usable decision.
var ErrMalformedResponse = errors.New("malformed decision response")

// Tool names an answer source.
type Tool string

const (
	ToolKB      Tool = "KB"
	ToolCSV     Tool = "TOOL_CSV"
	ToolWeb     Tool = "TOOL_WEB"
	ToolAPI     Tool = "TOOL_API"
	ToolUnknown Tool = "unknown"
)

// Counter returns the session usage counter for t, or "" for tools that
// run nothing.
func (t Tool) Counter() string {
	switch t {
	case ToolCSV:
		return "csv"
	case ToolWeb:
		return "web"
	case ToolAPI:
		return "api"
	default:
		return ""
	}
}

// Args is implemented by the argument record of each tool.
type Args interface {
	tool() Tool
}

type KBArgs struct{}

type CSVArgs struct {
	Query string `json:"query"`
}

type WebArgs struct {
	Query string `json:"query"`
}

type APIArgs struct {
	Endpoint string         `json:"endpoint"`
	Method   string         `json:"method"`
	Params   map[string]any `json:"params,omitempty"`
}

// UnknownArgs keeps what the backend sent for a tool we do not know.
type UnknownArgs struct {
	Name string         `json:"name"`
	Raw  map[string]any `json:"raw,omitempty"`
}

func (KBArgs) tool() Tool { return ToolKB }
func (CSVArgs) tool() Tool { return ToolCSV }
func (WebArgs) tool() Tool { return ToolWeb }
func (APIArgs) tool() Tool { return ToolAPI }
func (UnknownArgs) tool() Tool { return ToolUnknown }

// Decision is the routing outcome for one query. It is not modified after
// a strategy returns it.
type Decision struct {
	Tool       Tool
	Confidence float64
	Rationale  string
	Summary    string
	Args       Args
	// Strategy names the strategy that produced the decision.
	Strategy string
}

func newDecision(args Args, confidence float64, summary, rationale string) Decision {
	return Decision{Tool: args.tool(), Confidence: confidence, Summary: summary, Rationale: rationale, Args: args}
}

// MarshalJSON renders the decision in the controller wire shape.
func (d Decision) MarshalJSON() ([]byte, error) {
	args := d.Args
	if args == nil {
		args = KBArgs{}
	}
	return json.Marshal(struct {
		Decision   Tool    `json:"decision"`
		Summary    string  `json:"summary,omitempty"`
		Confidence float64 `json:"confidence"`
		Reason     string  `json:"reason"`
		ToolArgs   Args    `json:"tool_args"`
		Strategy   string  `json:"strategy,omitempty"`
	}{d.Tool, d.Summary, d.Confidence, d.Rationale, args, d.Strategy})
}
