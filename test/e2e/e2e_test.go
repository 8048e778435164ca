package e2e

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/lucidpress/bindery/internal/config"
	"github.com/lucidpress/bindery/internal/embedding"
	"github.com/lucidpress/bindery/internal/enhance"
	"github.com/lucidpress/bindery/internal/export"
	"github.com/lucidpress/bindery/internal/models"
	"github.com/lucidpress/bindery/internal/ocr"
	"github.com/lucidpress/bindery/internal/pipeline"
	"github.com/lucidpress/bindery/internal/search"
	"github.com/lucidpress/bindery/internal/state"
)

const e2eDimensions = 16

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func e2eConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{}
	cfg.Book.ID = "arh1000"
	cfg.Book.Title = "Art History Survey"
	cfg.Book.Author = "Faculty of Fine Arts"
	cfg.Paths.SourceDir = filepath.Join(root, "pages")
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.InstancesDir = filepath.Join(root, "instances")
	cfg.Paths.DatabasePath = filepath.Join(root, "bindery.db")
	cfg.OCR.Quality = "balanced"
	cfg.Embedding.Dimensions = e2eDimensions
	cfg.Embedding.BatchSize = 8
	cfg.Enhance.MinTermLength = 4

	if err := os.MkdirAll(cfg.Paths.SourceDir, 0755); err != nil {
		t.Fatal(err)
	}
	pages := map[string]bool{"page001.png": true, "page002.png": true, "page004.png": true}
	for name := range pages {
		data := append(append([]byte{}, pngMagic...), []byte("scan")...)
		if err := os.WriteFile(filepath.Join(cfg.Paths.SourceDir, name), data, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return cfg
}

func TestE2E_ScanToSearchableBook(t *testing.T) {
	cfg := e2eConfig(t)
	engine := ocr.NewMockEngine(map[string]string{
		"page001.png": "The Baroque Era\n\nCaravaggio staged scenes in **chiaroscuro**, spotlighting figures against darkness.",
		"page002.png": "Dutch Painting\n\nRembrandt layered **impasto** highlights over deep chiaroscuro grounds.",
		"page004.png": "Spanish Masters\n\nVelazquez handled chiaroscuro with a lighter touch.",
	})
	embedder := embedding.NewMockEmbedder(e2eDimensions)
	defer embedder.Close()

	store, err := state.NewStore(cfg.Paths.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	logger := zap.NewNop()
	p := pipeline.New(cfg, store, engine, embedder, logger)
	if err := p.Run(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	rec, err := store.Get(context.Background(), cfg.Book.ID)
	if err != nil {
		t.Fatal(err)
	}
	if rec.Stage != models.StageEnhancementComplete {
		t.Fatalf("stage = %q, want enhancement_complete", rec.Stage)
	}

	// Page 3 was never scanned; the book is simply shorter.
	if _, err := os.Stat(filepath.Join(cfg.SrcDir(), "chapter_003.md")); !os.IsNotExist(err) {
		t.Error("missing page must not produce a chapter")
	}

	summary, err := os.ReadFile(filepath.Join(cfg.SrcDir(), "SUMMARY.md"))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"chapter_001.md", "chapter_002.md", "chapter_004.md", "glossary.md", "timeline.md"} {
		if !strings.Contains(string(summary), want) {
			t.Errorf("SUMMARY.md missing %s:\n%s", want, summary)
		}
	}

	// Chapters after the defining one link back to the glossary.
	chapter2, err := os.ReadFile(filepath.Join(cfg.SrcDir(), "chapter_002.md"))
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(chapter2), "](glossary.md#impasto)") {
		t.Error("defining chapter must not link its own term")
	}

	// Hybrid search finds the glossary term first.
	eng, err := search.Open(cfg, embedder, logger)
	if err != nil {
		t.Fatal(err)
	}
	defer eng.Close()
	results, err := eng.Search(context.Background(), "chiaroscuro", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 || results[0].ID != "term:chiaroscuro" {
		t.Fatalf("unexpected search results: %+v", results)
	}

	// Glossary export round trips through xlsx.
	terms, err := enhance.LoadTermsJSON(enhance.TermsJSONPath(cfg))
	if err != nil {
		t.Fatal(err)
	}
	xlsxPath := filepath.Join(cfg.BookDataDir(), "terms.xlsx")
	if err := export.WriteTermsXLSX(xlsxPath, terms); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(xlsxPath); err != nil {
		t.Fatal(err)
	}
}

func TestE2E_InterruptedRunResumes(t *testing.T) {
	cfg := e2eConfig(t)
	embedder := embedding.NewMockEmbedder(e2eDimensions)
	defer embedder.Close()

	store, err := state.NewStore(cfg.Paths.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	logger := zap.NewNop()

	// First attempt dies during OCR.
	failing := ocr.NewMockEngine(nil)
	failing.Err = context.DeadlineExceeded
	p := pipeline.New(cfg, store, failing, embedder, logger)
	if err := p.Run(context.Background(), false); err == nil {
		t.Fatal("expected first run to fail")
	}

	rec, _ := store.Get(context.Background(), cfg.Book.ID)
	if rec.Stage != models.StageValidated {
		t.Fatalf("stage after failed OCR = %q, want validated", rec.Stage)
	}

	// Retry with a working engine resumes past intake and completes.
	working := ocr.NewMockEngine(nil)
	p = pipeline.New(cfg, store, working, embedder, logger)
	if err := p.Run(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	rec, _ = store.Get(context.Background(), cfg.Book.ID)
	if rec.Stage != models.StageEnhancementComplete {
		t.Fatalf("stage after retry = %q, want enhancement_complete", rec.Stage)
	}
}
