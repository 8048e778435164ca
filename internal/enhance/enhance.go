package enhance

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lucidpress/bindery/internal/config"
	"github.com/lucidpress/bindery/internal/embedding"
	"github.com/lucidpress/bindery/internal/keyword"
	"github.com/lucidpress/bindery/internal/models"
	"github.com/lucidpress/bindery/internal/vector"
)

// Result summarizes an enhancement run.
type Result struct {
	Terms      []*models.GlossaryTerm
	LinksAdded int
}

// TermsJSONPath returns the location of the terms.json sidecar.
func TermsJSONPath(cfg *config.Config) string {
	return filepath.Join(cfg.BookDataDir(), "terms.json")
}

// KeywordIndexPath returns the location of the Bleve index directory.
func KeywordIndexPath(cfg *config.Config) string {
	return filepath.Join(cfg.IndexDir(), "keyword.bleve")
}

// VectorIndexPath returns the location of the persisted term-vector index.
func VectorIndexPath(cfg *config.Config) string {
	return filepath.Join(cfg.IndexDir(), "terms.vec")
}

// Run executes the enhancement stage over assembled chapters: extract
// glossary terms, embed them, rewrite cross-reference links, emit the
// glossary, timeline, and terms.json artifacts, and rebuild the search
// indexes.
func Run(ctx context.Context, cfg *config.Config, chapters []models.Chapter, embedder embedding.Embedder, logger *zap.Logger) (*Result, error) {
	if len(chapters) == 0 {
		return nil, fmt.Errorf("no chapters to enhance")
	}

	for _, dir := range []string{cfg.MarkdownDir(), cfg.SrcDir(), cfg.BookDataDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create output dir: %w", err)
		}
	}

	terms := ExtractTerms(chapters, cfg.Enhance.MinTermLength)
	logger.Info("extracted glossary terms",
		zap.Int("terms", len(terms)),
		zap.Int("chapters", len(chapters)))

	if err := embedTerms(ctx, terms, embedder, cfg.Embedding.BatchSize); err != nil {
		return nil, err
	}

	links := 0
	for i := range chapters {
		rewritten, n := RewriteLinks(chapters[i].Content, chapters[i].Filename, terms)
		chapters[i].Content = rewritten
		links += n
		for _, dir := range []string{cfg.MarkdownDir(), cfg.SrcDir()} {
			if err := os.WriteFile(filepath.Join(dir, chapters[i].Filename), []byte(rewritten), 0644); err != nil {
				return nil, fmt.Errorf("write chapter %s: %w", chapters[i].Filename, err)
			}
		}
	}
	logger.Info("rewrote cross-reference links", zap.Int("links", links))

	if err := WriteGlossary(cfg.SrcDir(), terms); err != nil {
		return nil, fmt.Errorf("write glossary: %w", err)
	}
	if err := WriteTimeline(cfg.SrcDir()); err != nil {
		return nil, fmt.Errorf("write timeline: %w", err)
	}
	if err := WriteTermsJSON(TermsJSONPath(cfg), terms); err != nil {
		return nil, fmt.Errorf("write terms sidecar: %w", err)
	}

	if err := buildIndexes(ctx, cfg, chapters, terms); err != nil {
		return nil, err
	}

	return &Result{Terms: terms, LinksAdded: links}, nil
}

// embedTerms fills in term embeddings in batches. Every vector must match the
// embedder's dimensionality.
func embedTerms(ctx context.Context, terms []*models.GlossaryTerm, embedder embedding.Embedder, batchSize int) error {
	if batchSize <= 0 {
		batchSize = 32
	}
	for start := 0; start < len(terms); start += batchSize {
		end := start + batchSize
		if end > len(terms) {
			end = len(terms)
		}
		texts := make([]string, end-start)
		for i, term := range terms[start:end] {
			texts[i] = term.Term
		}
		embeddings, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed terms: %w", err)
		}
		for i, emb := range embeddings {
			if len(emb) != embedder.Dimensions() {
				return fmt.Errorf("embedding for %q has %d dimensions, expected %d",
					texts[i], len(emb), embedder.Dimensions())
			}
			terms[start+i].Embedding = emb
		}
	}
	return nil
}

// buildIndexes rebuilds the keyword index over chapters and glossary entries
// and persists the term-vector index.
func buildIndexes(ctx context.Context, cfg *config.Config, chapters []models.Chapter, terms []*models.GlossaryTerm) error {
	keywordPath := KeywordIndexPath(cfg)
	if err := os.RemoveAll(keywordPath); err != nil {
		return fmt.Errorf("clear keyword index: %w", err)
	}
	if err := os.MkdirAll(cfg.IndexDir(), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	kw, err := keyword.NewIndex(keywordPath)
	if err != nil {
		return err
	}
	defer kw.Close()

	for _, ch := range chapters {
		doc := &keyword.Document{
			ID:      ch.Filename,
			Kind:    "chapter",
			Title:   ch.Title,
			Content: ch.Content,
		}
		if err := kw.Add(ctx, doc); err != nil {
			return fmt.Errorf("index chapter %s: %w", ch.Filename, err)
		}
	}
	for _, term := range terms {
		doc := &keyword.Document{
			ID:      "term:" + term.Term,
			Kind:    "term",
			Title:   term.Term,
			Content: term.Definition,
		}
		if err := kw.Add(ctx, doc); err != nil {
			return fmt.Errorf("index term %s: %w", term.Term, err)
		}
	}

	dims := cfg.Embedding.Dimensions
	if len(terms) > 0 && len(terms[0].Embedding) > 0 {
		dims = len(terms[0].Embedding)
	}
	vec, err := vector.NewIndex(dims)
	if err != nil {
		return err
	}
	ids := make([]string, len(terms))
	vectors := make([][]float32, len(terms))
	for i, term := range terms {
		ids[i] = term.Term
		vectors[i] = term.Embedding
	}
	if err := vec.Add(ctx, ids, vectors); err != nil {
		return fmt.Errorf("build vector index: %w", err)
	}
	return vec.Save(VectorIndexPath(cfg))
}
