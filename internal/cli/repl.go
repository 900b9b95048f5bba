package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/hyperjump/agentroute/internal/models"
)

// QueryHandler answers queries in a single session.
type QueryHandler interface {
	HandleQuery(ctx context.Context, query string) (string, []models.TraceEntry)
	GetSessionStats() models.SessionStats
}

// REPL reads queries line by line and writes answers until exit, quit or EOF.
type REPL struct {
	handler QueryHandler
	in      io.Reader
	out     io.Writer
	format  OutputFormat
}

// NewREPL returns a loop over in and out.
func NewREPL(h QueryHandler, in io.Reader, out io.Writer, format OutputFormat) *REPL {
	return &REPL{handler: h, in: in, out: out, format: format}
}

// Run blocks until the input ends, the user exits or ctx is cancelled.
func (r *REPL) Run(ctx context.Context) error {
	color.New(color.FgGreen, color.Bold).Fprintln(r.out, "agentroute ready!")
	fmt.Fprintln(r.out, "Available tools: CSV lookup, Web search, REST API calls")
	fmt.Fprintln(r.out, "Type queries (or 'exit', 'quit', 'stats'):")

	prompt := color.New(color.FgYellow)
	scanner := bufio.NewScanner(r.in)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		prompt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		q := strings.TrimSpace(scanner.Text())
		switch q {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "stats":
			if err := WriteSessionStats(r.out, r.handler.GetSessionStats(), r.format); err != nil {
				return err
			}
			continue
		}

		answer, trace := r.handler.HandleQuery(ctx, q)
		stats := r.handler.GetSessionStats()
		resp := models.QueryResponse{
			Answer:    answer,
			Steps:     StepsFromTrace(trace),
			Trace:     trace,
			SessionID: stats.SessionID,
		}
		if err := WriteAnswer(r.out, resp, r.format); err != nil {
			return err
		}
	}
}
