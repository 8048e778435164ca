// Package keyword provides the Bleve-backed keyword index over book chapters
// and glossary entries.
package keyword

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
)

// Document is an indexable unit: a chapter or a glossary entry.
type Document struct {
	ID      string `json:"id"`
	Kind    string `json:"kind"` // "chapter" or "term"
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Result is a single keyword search hit.
type Result struct {
	ID    string
	Kind  string
	Title string
	Score float64
}

// Index wraps a Bleve index on disk.
type Index struct {
	index bleve.Index
}

// NewIndex creates or opens a Bleve index at path. An existing index is
// reopened as-is; delete the directory to force a rebuild after mapping
// changes.
func NewIndex(path string) (*Index, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	textFieldMapping := bleve.NewTextFieldMapping()
	// Standard analyzer (lowercase + tokenize, no stemming) so an exact
	// glossary term like "sfumato" matches verbatim.
	textFieldMapping.Analyzer = standard.Name
	docMapping.AddFieldMappingsAt("content", textFieldMapping)
	docMapping.AddFieldMappingsAt("title", textFieldMapping)
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	docMapping.AddFieldMappingsAt("id", keywordFieldMapping)
	docMapping.AddFieldMappingsAt("kind", keywordFieldMapping)
	im.AddDocumentMapping("document", docMapping)
	im.DefaultType = "document"
	im.DefaultMapping = docMapping

	if _, err := os.Stat(path); err == nil {
		index, openErr := bleve.Open(path)
		if openErr != nil {
			return nil, fmt.Errorf("failed to open Bleve index: %w", openErr)
		}
		return &Index{index: index}, nil
	}

	index, err := bleve.New(path, im)
	if err != nil {
		return nil, fmt.Errorf("failed to create Bleve index: %w", err)
	}
	return &Index{index: index}, nil
}

// Add indexes a document under its ID.
func (b *Index) Add(ctx context.Context, doc *Document) error {
	return b.index.Index(doc.ID, doc)
}

// Search runs title and content match queries and merges them additively,
// with title hits weighted by titleBoost. Glossary terms live in the title
// field, so the boost is what surfaces term entries above prose mentions.
func (b *Index) Search(ctx context.Context, query string, limit int, titleBoost float64) ([]*Result, error) {
	if titleBoost <= 0 {
		titleBoost = 1.0
	}
	reqSize := limit * 2
	if reqSize < 50 {
		reqSize = 50
	}

	tq := bleve.NewMatchQuery(query)
	tq.SetField("title")
	titleReq := bleve.NewSearchRequest(tq)
	titleReq.Size = reqSize
	titleReq.Fields = []string{"kind", "title"}

	cq := bleve.NewMatchQuery(query)
	cq.SetField("content")
	contentReq := bleve.NewSearchRequest(cq)
	contentReq.Size = reqSize
	contentReq.Fields = []string{"kind", "title"}

	titleResults, err := b.index.Search(titleReq)
	if err != nil {
		return nil, fmt.Errorf("Bleve title search failed: %w", err)
	}
	contentResults, err := b.index.Search(contentReq)
	if err != nil {
		return nil, fmt.Errorf("Bleve content search failed: %w", err)
	}

	merged := make(map[string]*Result)
	for _, hit := range titleResults.Hits {
		merged[hit.ID] = &Result{
			ID:    hit.ID,
			Kind:  fieldString(hit.Fields, "kind"),
			Title: fieldString(hit.Fields, "title"),
			Score: hit.Score * titleBoost,
		}
	}
	for _, hit := range contentResults.Hits {
		if r, ok := merged[hit.ID]; ok {
			r.Score += hit.Score
			continue
		}
		merged[hit.ID] = &Result{
			ID:    hit.ID,
			Kind:  fieldString(hit.Fields, "kind"),
			Title: fieldString(hit.Fields, "title"),
			Score: hit.Score,
		}
	}

	out := make([]*Result, 0, len(merged))
	for _, r := range merged {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func fieldString(fields map[string]interface{}, name string) string {
	if v, ok := fields[name].(string); ok {
		return v
	}
	return ""
}

// Delete removes a document from the index.
func (b *Index) Delete(ctx context.Context, id string) error {
	return b.index.Delete(id)
}

// DocCount returns the number of indexed documents.
func (b *Index) DocCount() (uint64, error) {
	return b.index.DocCount()
}

// Close closes the underlying Bleve index.
func (b *Index) Close() error {
	return b.index.Close()
}
