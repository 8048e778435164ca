package search

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/lucidpress/bindery/internal/config"
	"github.com/lucidpress/bindery/internal/embedding"
	"github.com/lucidpress/bindery/internal/enhance"
	"github.com/lucidpress/bindery/internal/keyword"
	"github.com/lucidpress/bindery/internal/vector"
)

// Default fusion weights. Keyword matches dominate; the semantic side pulls
// in glossary terms related to the query wording.
const (
	defaultKeywordWeight  = 0.7
	defaultSemanticWeight = 0.3
	defaultTitleBoost     = 3.0
)

// Engine answers hybrid queries over an enhanced book.
type Engine struct {
	keyword  *keyword.Index
	vectors  *vector.Index
	embedder embedding.Embedder
	logger   *zap.Logger
}

// Open loads the search indexes produced by the enhancement stage. The term
// vector index is loaded from its persisted form when present, otherwise
// rebuilt from terms.json.
func Open(cfg *config.Config, embedder embedding.Embedder, logger *zap.Logger) (*Engine, error) {
	kw, err := keyword.NewIndex(enhance.KeywordIndexPath(cfg))
	if err != nil {
		return nil, fmt.Errorf("open keyword index (run the pipeline first): %w", err)
	}

	vec, err := vector.NewIndex(embedder.Dimensions())
	if err != nil {
		kw.Close()
		return nil, err
	}
	if err := vec.Load(enhance.VectorIndexPath(cfg)); err != nil {
		kw.Close()
		return nil, fmt.Errorf("load vector index: %w", err)
	}
	if vec.Size() == 0 {
		if err := loadFromSidecar(vec, cfg); err != nil {
			kw.Close()
			return nil, err
		}
	}

	return &Engine{keyword: kw, vectors: vec, embedder: embedder, logger: logger}, nil
}

// loadFromSidecar rebuilds the term vectors from terms.json.
func loadFromSidecar(vec *vector.Index, cfg *config.Config) error {
	path := enhance.TermsJSONPath(cfg)
	terms, err := enhance.LoadTermsJSON(path)
	if err != nil {
		if os.IsNotExist(err) {
			// No glossary yet; keyword-only search still works.
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	for _, term := range terms {
		if len(term.Embedding) == 0 {
			continue
		}
		if err := vec.Add(context.Background(), []string{term.Term}, [][]float32{term.Embedding}); err != nil {
			return fmt.Errorf("rebuild vector index: %w", err)
		}
	}
	return nil
}

// Search runs the query through both indexes and fuses the results.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]*FusedResult, error) {
	if limit <= 0 {
		limit = 10
	}

	keywordHits, err := e.keyword.Search(ctx, query, limit*2, defaultTitleBoost)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	var semanticScores map[string]float64
	if e.vectors.Size() > 0 {
		queryVec, err := e.embedder.Embed(ctx, query)
		if err != nil {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		semanticHits, err := e.vectors.Search(ctx, queryVec, limit*2)
		if err != nil {
			return nil, fmt.Errorf("semantic search: %w", err)
		}
		semanticScores = semanticScoreMap(semanticHits)
	}

	results := fuse(normalizeKeywordScores(keywordHits), semanticScores,
		defaultKeywordWeight, defaultSemanticWeight)

	// Backfill kind/title from the keyword hits; purely semantic hits are
	// glossary terms by construction.
	meta := make(map[string]*keyword.Result, len(keywordHits))
	for _, hit := range keywordHits {
		meta[hit.ID] = hit
	}
	for _, r := range results {
		if m, ok := meta[r.ID]; ok {
			r.Kind = m.Kind
			r.Title = m.Title
		} else {
			r.Kind = "term"
			r.Title = r.ID[len("term:"):]
		}
	}

	if len(results) > limit {
		results = results[:limit]
	}
	e.logger.Debug("hybrid search",
		zap.String("query", query),
		zap.Int("keyword_hits", len(keywordHits)),
		zap.Int("results", len(results)))
	return results, nil
}

// Close releases the underlying indexes.
func (e *Engine) Close() error {
	return e.keyword.Close()
}
