package composer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hyperjump/agentroute/internal/decision"
	"github.com/hyperjump/agentroute/internal/models"
	"github.com/hyperjump/agentroute/pkg/utils"
)

const (
	maxWebLines      = 5
	maxKBLines       = 2
	kbSnippetRunes   = 200
	apiResponseChars = 500
)

// NotFoundAnswer is the answer when the catalog was chosen and matched nothing.
const NotFoundAnswer = "No matching product found in catalog (CSV); cannot determine price from knowledge base examples."

// NeutralAnswer is the answer when nothing was found anywhere.
const NeutralAnswer = "No relevant information found to answer the query."

// RuleStrategy composes deterministic answers. It never fails.
type RuleStrategy struct{}

var _ Strategy = RuleStrategy{}

func (RuleStrategy) Name() string { return "rules" }

func (r RuleStrategy) Compose(_ context.Context, in Input) (string, []string, error) {
	answer, trace := r.compose(in)
	return answer, trace, nil
}

func (RuleStrategy) compose(in Input) (string, []string) {
	if in.Decision.Tool == decision.ToolWeb && in.Result != nil && len(in.Result.Web) > 0 {
		return webAnswer(in.Result.Web), []string{
			"1. Selected Web Search",
			"2. Retrieved web results",
			"3. Returned summarized headlines",
		}
	}
	if in.csvEmpty() {
		return NotFoundAnswer, []string{
			"1. Selected CSV for pricing",
			"2. CSV lookup returned no rows",
			"3. Enforced CSV as authoritative source for prices",
			"4. Responded with not-found",
		}
	}
	if rows := in.rows(); len(rows) > 0 {
		if listIntent(in.Query) {
			return listAnswer(rows), []string{
				"1. Selected CSV for catalog listing",
				"2. Retrieved product rows from CSV",
				"3. Returned authoritative catalog list from CSV",
			}
		}
		return priceAnswer(rows[0]), []string{
			"1. Selected CSV for pricing",
			"2. Retrieved product row from CSV",
			"3. Returned authoritative price from CSV",
		}
	}
	if in.Decision.Tool == decision.ToolAPI && in.Result.HasAPIData() {
		args, _ := in.Decision.Args.(decision.APIArgs)
		data, err := json.Marshal(in.Result.API)
		if err == nil {
			return fmt.Sprintf("API response (%s %s):\n%s", args.Method, args.Endpoint, utils.Head(string(data), apiResponseChars)),
				[]string{
					"1. Selected REST API",
					fmt.Sprintf("2. Called %s %s", args.Method, args.Endpoint),
					"3. Returned API response",
				}
		}
	}
	return kbAnswer(in.Query, in.Hits)
}

func webAnswer(results []models.WebResult) string {
	if len(results) > maxWebLines {
		results = results[:maxWebLines]
	}
	lines := make([]string, 0, len(results))
	for _, r := range results {
		title := strings.TrimSpace(r.Title)
		if title == "" {
			title = "Result"
		}
		if snippet := strings.TrimSpace(r.Text()); snippet != "" {
			lines = append(lines, title+": "+snippet)
		} else {
			lines = append(lines, title)
		}
	}
	return strings.Join(lines, "\n")
}

func listIntent(query string) bool {
	q := strings.ToLower(query)
	verb := strings.Contains(q, "show") || strings.Contains(q, "list") || strings.Contains(q, "available")
	noun := strings.Contains(q, "product") || strings.Contains(q, "item")
	return verb && noun
}

func field(row models.ProductRow, key, missing string) string {
	if v, ok := row[key]; ok {
		return v
	}
	return missing
}

func listAnswer(rows []models.ProductRow) string {
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		var parts []string
		if name := field(row, "name", "Unknown"); name != "" {
			parts = append(parts, name)
		}
		if sku := row.Get("sku"); sku != "" {
			parts = append(parts, "(SKU "+sku+")")
		}
		price, currency := field(row, "price", "N/A"), row.Get("currency")
		if price != "" && currency != "" {
			parts = append(parts, "- "+price+" "+currency)
		}
		if stock := row.Get("stock"); stock != "" {
			parts = append(parts, "- stock "+stock)
		}
		lines = append(lines, strings.Join(parts, " "))
	}
	return strings.Join(lines, "\n")
}

func priceAnswer(row models.ProductRow) string {
	line := strings.TrimSpace(fmt.Sprintf("%s: %s %s",
		field(row, "name", "Unknown"), field(row, "price", "N/A"), row.Get("currency")))
	if sku := row.Get("sku"); sku != "" {
		line += "\nSKU: " + sku
	}
	return line
}

func kbAnswer(query string, hits []models.Hit) (string, []string) {
	if relevant := models.RelevantHits(query, hits); len(relevant) > 0 {
		lines := []string{"Based on the knowledge base:"}
		for i, h := range relevant {
			if i == maxKBLines {
				break
			}
			lines = append(lines, "- "+utils.Head(h.Text, kbSnippetRunes)+"...")
		}
		return strings.Join(lines, "\n"), []string{
			fmt.Sprintf("1. Searched knowledge base and found %d documents", len(hits)),
			fmt.Sprintf("2. Identified %d relevant documents", len(relevant)),
			"3. Compiled information to provide this answer",
		}
	}
	if len(hits) > 0 {
		return "Found knowledge base documents, but none appear directly relevant to the query.", []string{
			fmt.Sprintf("1. Searched knowledge base and found %d documents", len(hits)),
			"2. No relevant documents found for this query",
			"3. Provided a neutral response",
		}
	}
	return NeutralAnswer, []string{"1. No KB hits and no tool results; responded neutrally"}
}
