// Package models defines core data structures shared by retrieval, routing, and composition.
package models

import (
	"strings"
	"unicode/utf8"
)

// Document is one knowledge base file. It is immutable after the index build.
type Document struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// HitSource tells which retrieval path produced a hit.
type HitSource string

const (
	HitSourceVector  HitSource = "vector"
	HitSourceKeyword HitSource = "keyword"
)

// Hit is a scored match between a query and a document.
type Hit struct {
	DocID  string    `json:"id"`
	Text   string    `json:"text"`
	Score  float64   `json:"score"`
	Source HitSource `json:"source"`
}

// RelevantHits returns the hits whose text contains at least one query word
// longer than three characters, compared case-insensitively. Order is preserved.
func RelevantHits(query string, hits []Hit) []Hit {
	if len(hits) == 0 {
		return nil
	}
	var words []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if utf8.RuneCountInString(w) > 3 {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return nil
	}
	var out []Hit
	for _, h := range hits {
		text := strings.ToLower(h.Text)
		for _, w := range words {
			if strings.Contains(text, w) {
				out = append(out, h)
				break
			}
		}
	}
	return out
}
