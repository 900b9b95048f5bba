package decision

import (
	"context"
	"fmt"
	"strings"

	"github.com/hyperjump/agentroute/internal/models"
)

var (
	newsKeywords    = []string{"news", "latest", "today", "headline", "headlines", "breaking", "update", "updates"}
	catalogKeywords = []string{"price", "cost", "buy", "purchase", "sku", "product", "item", "available", "stock"}
)

// RuleStrategy decides by keyword precedence: news, then catalog, then the
// knowledge base. It never fails.
type RuleStrategy struct{}

var _ Strategy = RuleStrategy{}

func (RuleStrategy) Name() string { return "rules" }

func (r RuleStrategy) Decide(_ context.Context, in Input) (Decision, error) {
	return r.decide(in), nil
}

func (RuleStrategy) decide(in Input) Decision {
	q := strings.ToLower(in.Query)
	if containsAny(q, newsKeywords) {
		return newDecision(WebArgs{Query: in.Query}, 0.9,
			"Current-events/news query detected; using Web Search",
			"Query contains terms indicating current news or updates")
	}
	if containsAny(q, catalogKeywords) {
		return newDecision(CSVArgs{Query: in.Query}, 0.9,
			"Query appears to be about pricing/product information",
			"Query contains keywords suggesting product/pricing data needed")
	}

	relevant := len(models.RelevantHits(in.Query, in.Hits))
	switch {
	case relevant > 0:
		return newDecision(KBArgs{}, 0.7,
			fmt.Sprintf("Query can be answered from knowledge base (%d relevant hits found)", relevant),
			"Query appears to be informational and relevant documents found in KB")
	case len(in.Hits) > 0:
		return newDecision(KBArgs{}, 0.3,
			fmt.Sprintf("Query may be answered from knowledge base (%d hits found, but relevance unclear)", len(in.Hits)),
			"Query appears to be informational but KB content may not be relevant")
	default:
		return newDecision(KBArgs{}, 0.1,
			"No relevant information found in knowledge base",
			"No documents found that match the query")
	}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
