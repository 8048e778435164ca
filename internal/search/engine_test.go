package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"github.com/lucidpress/bindery/internal/config"
	"github.com/lucidpress/bindery/internal/embedding"
	"github.com/lucidpress/bindery/internal/enhance"
	"github.com/lucidpress/bindery/internal/models"
)

func enhancedBook(t *testing.T) (*config.Config, embedding.Embedder) {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{}
	cfg.Book.ID = "arh1000"
	cfg.Book.Title = "Art History Survey"
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.InstancesDir = filepath.Join(root, "instances")
	cfg.Embedding.Dimensions = 16
	cfg.Embedding.BatchSize = 8
	cfg.Enhance.MinTermLength = 4

	chapters := []models.Chapter{
		{
			Sequence: 1,
			Filename: "chapter_001.md",
			Title:    "Chapter 1",
			Content:  "# Chapter 1\n\nBaroque painters used **chiaroscuro** for dramatic light.\n",
		},
		{
			Sequence: 2,
			Filename: "chapter_002.md",
			Title:    "Chapter 2",
			Content:  "# Chapter 2\n\nVenetian color and **impasto** texture. Some chiaroscuro too.\n",
		},
	}
	embedder := embedding.NewMockEmbedder(cfg.Embedding.Dimensions)
	if _, err := enhance.Run(context.Background(), cfg, chapters, embedder, zap.NewNop()); err != nil {
		t.Fatal(err)
	}
	return cfg, embedder
}

func TestEngine_Search(t *testing.T) {
	cfg, embedder := enhancedBook(t)
	engine, err := Open(cfg, embedder, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()

	results, err := engine.Search(context.Background(), "chiaroscuro", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("no results")
	}
	if results[0].ID != "term:chiaroscuro" {
		t.Errorf("top hit = %q, want term:chiaroscuro (results: %+v)", results[0].ID, results)
	}
	if results[0].Title != "chiaroscuro" {
		t.Errorf("top hit title = %q", results[0].Title)
	}

	// Chapters mentioning the word also surface.
	found := false
	for _, r := range results {
		if r.Kind == "chapter" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a chapter hit in %+v", results)
	}
}

func TestEngine_RebuildsVectorsFromSidecar(t *testing.T) {
	cfg, embedder := enhancedBook(t)
	// Drop the persisted vector index; Open must fall back to terms.json.
	if err := os.Remove(enhance.VectorIndexPath(cfg)); err != nil {
		t.Fatal(err)
	}

	engine, err := Open(cfg, embedder, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer engine.Close()
	if engine.vectors.Size() != 2 {
		t.Errorf("vector index size = %d, want 2", engine.vectors.Size())
	}
}

func TestFuse(t *testing.T) {
	keywordScores := map[string]float64{"a": 1.0, "b": 0.5}
	semanticScores := map[string]float64{"b": 1.0, "c": 0.8}

	results := fuse(keywordScores, semanticScores, 0.7, 0.3)
	if len(results) != 3 {
		t.Fatalf("results = %d, want 3", len(results))
	}
	// b: 0.7*0.5 + 0.3*1.0 = 0.65; a: 0.7; c: 0.24
	if results[0].ID != "a" || results[1].ID != "b" || results[2].ID != "c" {
		t.Errorf("order = %q, %q, %q", results[0].ID, results[1].ID, results[2].ID)
	}
}

func TestNormalizeKeywordScores_ZeroMax(t *testing.T) {
	scores := normalizeKeywordScores(nil)
	if len(scores) != 0 {
		t.Errorf("empty input should normalize to empty map")
	}
}
