package tools

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/hyperjump/agentroute/internal/models"
)

// DuckDuckGoSearcher scrapes the DuckDuckGo HTML endpoint.
type DuckDuckGoSearcher struct {
	baseURL string
	num     int
	client  *http.Client
}

func NewDuckDuckGoSearcher(baseURL string, num int, client *http.Client) *DuckDuckGoSearcher {
	if num <= 0 {
		num = defaultMaxResults
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &DuckDuckGoSearcher{baseURL: baseURL, num: num, client: client}
}

func (s *DuckDuckGoSearcher) Name() string { return "duckduckgo" }

func (s *DuckDuckGoSearcher) Search(ctx context.Context, query string) ([]models.WebResult, error) {
	header := http.Header{}
	header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	header.Set("Accept", "text/html,application/xhtml+xml")
	body, err := get(ctx, s.client, s.baseURL+"?q="+url.QueryEscape(query), header)
	if err != nil {
		return nil, err
	}
	return parseDuckDuckGo(string(body), s.num)
}

func parseDuckDuckGo(content string, limit int) ([]models.WebResult, error) {
	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	var results []models.WebResult
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if len(results) >= limit {
			return
		}
		if n.Type == html.ElementNode && n.Data == "div" && hasClass(n, "result") {
			if r := extractResult(n); r.Title != "" && r.Link != "" {
				results = append(results, r)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return results, nil
}

func extractResult(n *html.Node) models.WebResult {
	r := models.WebResult{Source: "DuckDuckGo"}
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case hasClass(n, "result__a"):
				r.Link = resolveRedirect(attr(n, "href"))
				r.Title = text(n)
			case hasClass(n, "result__snippet"):
				r.Snippet = text(n)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return r
}

// resolveRedirect unwraps DuckDuckGo's //duckduckgo.com/l/?uddg= links.
func resolveRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil || !strings.HasSuffix(u.Host, "duckduckgo.com") || u.Path != "/l/" {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(parts, " ")
}
