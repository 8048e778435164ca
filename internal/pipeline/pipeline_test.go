package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/lucidpress/bindery/internal/config"
	"github.com/lucidpress/bindery/internal/embedding"
	"github.com/lucidpress/bindery/internal/models"
	"github.com/lucidpress/bindery/internal/ocr"
	"github.com/lucidpress/bindery/internal/state"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func writeTestPages(t *testing.T, dir string, names ...string) {
	t.Helper()
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	for _, name := range names {
		data := append(append([]byte{}, pngMagic...), []byte("test-image")...)
		if err := os.WriteFile(filepath.Join(dir, name), data, 0644); err != nil {
			t.Fatal(err)
		}
	}
}

func testPipeline(t *testing.T, engine ocr.Engine) (*Pipeline, *config.Config, *state.Store) {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{}
	cfg.Book.ID = "arh1000"
	cfg.Book.Title = "Art History Survey"
	cfg.Paths.SourceDir = filepath.Join(root, "src_images")
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.InstancesDir = filepath.Join(root, "instances")
	cfg.Paths.DatabasePath = filepath.Join(root, "bindery.db")
	cfg.OCR.Quality = "balanced"
	cfg.Embedding.Dimensions = 8
	cfg.Embedding.BatchSize = 4
	cfg.Enhance.MinTermLength = 4

	store, err := state.NewStore(cfg.Paths.DatabasePath)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	p := New(cfg, store, engine, embedding.NewMockEmbedder(cfg.Embedding.Dimensions), zap.NewNop())
	return p, cfg, store
}

func TestPipeline_FullRun(t *testing.T) {
	engine := ocr.NewMockEngine(map[string]string{
		"page001.png": "The Baroque\n\nPainters used **chiaroscuro** for drama.",
		"page002.png": "The Dutch Golden Age\n\nRembrandt mastered **chiaroscuro** and **impasto**.",
	})
	p, cfg, _ := testPipeline(t, engine)
	writeTestPages(t, cfg.Paths.SourceDir, "page001.png", "page002.png")

	if err := p.Run(context.Background(), false); err != nil {
		t.Fatal(err)
	}

	rec, err := p.Status(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if rec.Stage != models.StageEnhancementComplete {
		t.Errorf("stage = %q, want enhancement_complete", rec.Stage)
	}

	for _, artifact := range []string{
		filepath.Join(cfg.SrcDir(), "chapter_001.md"),
		filepath.Join(cfg.SrcDir(), "chapter_002.md"),
		filepath.Join(cfg.SrcDir(), "SUMMARY.md"),
		filepath.Join(cfg.SrcDir(), "glossary.md"),
		filepath.Join(cfg.SrcDir(), "timeline.md"),
		filepath.Join(cfg.BookDataDir(), "terms.json"),
	} {
		if _, err := os.Stat(artifact); err != nil {
			t.Errorf("missing artifact %s: %v", artifact, err)
		}
	}

	// Second chapter mentions chiaroscuro outside its defining chapter.
	content, err := os.ReadFile(filepath.Join(cfg.SrcDir(), "chapter_002.md"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "](glossary.md#chiaroscuro)") {
		t.Errorf("cross-reference link missing:\n%s", content)
	}
}

func TestPipeline_OCRFailureAborts(t *testing.T) {
	engine := ocr.NewMockEngine(nil)
	engine.Err = errors.New("tesseract crashed")
	p, cfg, _ := testPipeline(t, engine)
	writeTestPages(t, cfg.Paths.SourceDir, "page001.png", "page002.png")

	err := p.Run(context.Background(), false)
	if err == nil {
		t.Fatal("expected OCR failure to abort the run")
	}
	// Single-page failure aborts the whole run; only one page was attempted.
	if len(engine.Calls) != 1 {
		t.Errorf("engine calls = %d, want 1", len(engine.Calls))
	}

	rec, _ := p.Status(context.Background())
	if rec.Stage != models.StageValidated {
		t.Errorf("stage after abort = %q, want validated", rec.Stage)
	}
}

func TestPipeline_ResumeSkipsOCR(t *testing.T) {
	engine := ocr.NewMockEngine(map[string]string{
		"page001.png": "Romanesque architecture used the **barrel vault** widely.",
	})
	p, cfg, _ := testPipeline(t, engine)
	writeTestPages(t, cfg.Paths.SourceDir, "page001.png")

	if err := p.Run(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	firstCalls := len(engine.Calls)

	// Completed book: a second run without force is a no-op.
	if err := p.Run(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if len(engine.Calls) != firstCalls {
		t.Errorf("completed run should not re-OCR: calls went %d -> %d", firstCalls, len(engine.Calls))
	}

	// Force reruns everything.
	if err := p.Run(context.Background(), true); err != nil {
		t.Fatal(err)
	}
	if len(engine.Calls) != firstCalls*2 {
		t.Errorf("forced run should re-OCR: calls = %d", len(engine.Calls))
	}
}

func TestPipeline_MissingPagesShortenBook(t *testing.T) {
	engine := ocr.NewMockEngine(nil)
	p, cfg, _ := testPipeline(t, engine)
	// Page 2 missing: the book simply has fewer chapters.
	writeTestPages(t, cfg.Paths.SourceDir, "page001.png", "page003.png")

	if err := p.Run(context.Background(), false); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(cfg.SrcDir(), "chapter_002.md")); !os.IsNotExist(err) {
		t.Error("no placeholder chapter should exist for a missing page")
	}
	if _, err := os.Stat(filepath.Join(cfg.SrcDir(), "chapter_003.md")); err != nil {
		t.Errorf("chapter for page 3 missing: %v", err)
	}
}
