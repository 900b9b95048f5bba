package keyword

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	blevequery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/hyperjump/agentroute/internal/models"
)

// BleveIndex implements KeywordIndex using Bleve.
type BleveIndex struct {
	index bleve.Index
}

var _ KeywordIndex = (*BleveIndex)(nil)

// NewBleveIndex creates or opens a Bleve index at path. An empty path gives
// an in-memory index.
func NewBleveIndex(path string) (*BleveIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer: lowercase + tokenize, no stemming, so exact words match.
	textFieldMapping.Analyzer = standard.Name
	textFieldMapping.Store = true
	textFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("text", textFieldMapping)
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("id", keywordFieldMapping)
	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping

	if path == "" {
		index, err := bleve.NewMemOnly(im)
		if err != nil {
			return nil, fmt.Errorf("failed to create Bleve index: %w", err)
		}
		return &BleveIndex{index: index}, nil
	}

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &BleveIndex{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &BleveIndex{index: index}, nil
}

// title turns a document path into searchable words.
func title(id string) string {
	return strings.NewReplacer("/", " ", "_", " ", "-", " ", ".", " ").Replace(id)
}

// Rebuild deletes every indexed document and indexes docs in one batch.
func (b *BleveIndex) Rebuild(ctx context.Context, docs []models.Document) error {
	existing, err := b.allIDs()
	if err != nil {
		return err
	}
	batch := b.index.NewBatch()
	for _, id := range existing {
		batch.Delete(id)
	}
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := batch.Index(doc.ID, map[string]interface{}{
			"id":    doc.ID,
			"title": title(doc.ID),
			"text":  doc.Text,
		}); err != nil {
			return fmt.Errorf("index %s: %w", doc.ID, err)
		}
	}
	if err := b.index.Batch(batch); err != nil {
		return fmt.Errorf("Bleve batch failed: %w", err)
	}
	return nil
}

func (b *BleveIndex) allIDs() ([]string, error) {
	n, err := b.index.DocCount()
	if err != nil {
		return nil, fmt.Errorf("failed to get doc count: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	req := bleve.NewSearchRequest(bleve.NewMatchAllQuery())
	req.Size = int(n)
	res, err := b.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("Bleve list failed: %w", err)
	}
	ids := make([]string, len(res.Hits))
	for i, hit := range res.Hits {
		ids[i] = hit.ID
	}
	return ids, nil
}

// Search runs a match query over title and text and returns up to limit results.
// With opts.FuzzyEnabled each term is matched within the configured edit distance.
func (b *BleveIndex) Search(ctx context.Context, query string, limit int, opts *SearchOptions) ([]*KeywordResult, error) {
	if limit <= 0 {
		limit = 10
	}
	var q blevequery.Query = bleve.NewMatchQuery(query)
	if opts != nil && opts.FuzzyEnabled {
		fuzziness := opts.Fuzziness
		if fuzziness <= 0 {
			fuzziness = 2
		}
		q = buildFuzzyQuery(query, fuzziness)
	}
	search := bleve.NewSearchRequest(q)
	search.Size = limit
	if opts != nil && opts.Highlight {
		search.Highlight = bleve.NewHighlight()
		search.Highlight.AddField("text")
	}
	results, err := b.index.SearchInContext(ctx, search)
	if err != nil {
		return nil, fmt.Errorf("Bleve search failed: %w", err)
	}
	out := make([]*KeywordResult, len(results.Hits))
	for i, hit := range results.Hits {
		out[i] = &KeywordResult{ID: hit.ID, Score: hit.Score, Fragments: hit.Fragments["text"]}
	}
	return out, nil
}

// buildFuzzyQuery creates a disjunction of FuzzyQueries, one per query term.
func buildFuzzyQuery(queryStr string, fuzziness int) blevequery.Query {
	terms := strings.Fields(strings.ToLower(queryStr))
	if len(terms) == 0 {
		return bleve.NewMatchQuery(queryStr)
	}
	queries := make([]blevequery.Query, 0, len(terms))
	for _, term := range terms {
		fq := bleve.NewFuzzyQuery(term)
		fq.SetFuzziness(fuzziness)
		queries = append(queries, fq)
	}
	if len(queries) == 1 {
		return queries[0]
	}
	return bleve.NewDisjunctionQuery(queries...)
}

// DocCount returns the total number of documents in the index.
func (b *BleveIndex) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the Bleve index.
func (b *BleveIndex) Close() error {
	return b.index.Close()
}
