package book

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/lucidpress/bindery/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{}
	cfg.Book.ID = "arh1000"
	cfg.Book.Title = "Art History Survey"
	cfg.Paths.DataDir = filepath.Join(root, "data")
	cfg.Paths.InstancesDir = filepath.Join(root, "instances")
	return cfg
}

func writeSrc(t *testing.T, cfg *config.Config, name, content string) {
	t.Helper()
	if err := os.MkdirAll(cfg.SrcDir(), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(cfg.SrcDir(), name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestBuildWithGoldmark(t *testing.T) {
	cfg := testConfig(t)
	writeSrc(t, cfg, "README.md", "# Art History Survey\n\nWelcome.\n")
	writeSrc(t, cfg, "chapter_001.md", "# Chapter 1\n\nSee [**chiaroscuro**](glossary.md#chiaroscuro).\n")
	writeSrc(t, cfg, "glossary.md", "# Glossary\n\n## Chiaroscuro\n\nLight and dark contrast.\n")

	if err := buildWithGoldmark(cfg, zap.NewNop()); err != nil {
		t.Fatal(err)
	}

	outDir := filepath.Join(cfg.InstanceDir(), "book")
	index, err := os.ReadFile(filepath.Join(outDir, "index.html"))
	if err != nil {
		t.Fatalf("README.md should render to index.html: %v", err)
	}
	if !strings.Contains(string(index), "<h1") {
		t.Errorf("index.html missing heading:\n%s", index)
	}

	chapter, err := os.ReadFile(filepath.Join(outDir, "chapter_001.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(chapter), `glossary.html#chiaroscuro`) {
		t.Errorf("markdown links should be rewritten to .html:\n%s", chapter)
	}

	glossary, err := os.ReadFile(filepath.Join(outDir, "glossary.html"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(glossary), `id="chiaroscuro"`) {
		t.Errorf("glossary headings need anchor ids:\n%s", glossary)
	}
}

func TestBuildWithGoldmark_EmptySrc(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.SrcDir(), 0755); err != nil {
		t.Fatal(err)
	}
	if err := buildWithGoldmark(cfg, zap.NewNop()); err == nil {
		t.Fatal("expected error for empty src dir")
	}
}
