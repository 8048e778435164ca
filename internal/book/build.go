// Package book renders the mdBook instance to HTML. It shells out to the
// mdbook binary when installed and falls back to a plain goldmark rendering
// otherwise, so the pipeline produces a browsable book either way.
package book

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"go.uber.org/zap"

	"github.com/lucidpress/bindery/internal/config"
)

const pageTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
</head>
<body>
%s
</body>
</html>
`

// mdLinkRE matches relative markdown links so the fallback renderer can point
// them at the generated .html files.
var mdLinkRE = regexp.MustCompile(`\]\(([A-Za-z0-9._\-]+)\.md(#[^)]*)?\)`)

// Build renders instances/<book-id>/src into instances/<book-id>/book.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	if _, err := os.Stat(cfg.SrcDir()); err != nil {
		return fmt.Errorf("book source missing, run the pipeline first: %w", err)
	}
	if mdbookPath, err := exec.LookPath("mdbook"); err == nil {
		return buildWithMdbook(ctx, mdbookPath, cfg, logger)
	}
	logger.Info("mdbook binary not found, rendering HTML with goldmark")
	return buildWithGoldmark(cfg, logger)
}

func buildWithMdbook(ctx context.Context, mdbookPath string, cfg *config.Config, logger *zap.Logger) error {
	cmd := exec.CommandContext(ctx, mdbookPath, "build", cfg.InstanceDir())
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("mdbook build failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	logger.Info("book built with mdbook", zap.String("out", filepath.Join(cfg.InstanceDir(), "book")))
	return nil
}

// buildWithGoldmark renders each markdown source file to a standalone HTML
// page. README.md becomes index.html, matching mdbook's landing page.
func buildWithGoldmark(cfg *config.Config, logger *zap.Logger) error {
	outDir := filepath.Join(cfg.InstanceDir(), "book")
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return fmt.Errorf("create book dir: %w", err)
	}

	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(
			// Heading IDs back the glossary.md#term anchors.
			parser.WithAutoHeadingID(),
		),
	)

	entries, err := os.ReadDir(cfg.SrcDir())
	if err != nil {
		return fmt.Errorf("read src dir: %w", err)
	}
	rendered := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".md") {
			continue
		}
		source, err := os.ReadFile(filepath.Join(cfg.SrcDir(), entry.Name()))
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		relinked := mdLinkRE.ReplaceAll(source, []byte(`]($1.html$2)`))

		var buf bytes.Buffer
		if err := md.Convert(relinked, &buf); err != nil {
			return fmt.Errorf("render %s: %w", entry.Name(), err)
		}

		outName := strings.TrimSuffix(entry.Name(), ".md") + ".html"
		if entry.Name() == "README.md" {
			outName = "index.html"
		}
		page := fmt.Sprintf(pageTemplate, cfg.Book.Title, buf.String())
		if err := os.WriteFile(filepath.Join(outDir, outName), []byte(page), 0644); err != nil {
			return fmt.Errorf("write %s: %w", outName, err)
		}
		rendered++
	}
	if rendered == 0 {
		return fmt.Errorf("no markdown files in %s", cfg.SrcDir())
	}
	logger.Info("book built with goldmark", zap.Int("pages", rendered), zap.String("out", outDir))
	return nil
}
