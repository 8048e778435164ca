package assemble

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lucidpress/bindery/internal/config"
	"github.com/lucidpress/bindery/internal/models"
)

// Run converts OCR results into chapters, writes them to the markdown dir
// and the mdBook instance src dir, and emits the manifest (SUMMARY.md),
// book.toml, README.md, and the flat book.properties descriptor. Chapters
// are ordered strictly by page sequence number; gaps shorten the book.
func Run(cfg *config.Config, results []models.OCRResult, logger *zap.Logger) (*models.Book, error) {
	if len(results) == 0 {
		return nil, fmt.Errorf("no OCR results to assemble")
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Sequence < results[j].Sequence })

	for _, dir := range []string{cfg.MarkdownDir(), cfg.SrcDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	book := &models.Book{
		ID:          cfg.Book.ID,
		Title:       cfg.Book.Title,
		Author:      cfg.Book.Author,
		Description: cfg.Book.Description,
		CourseCode:  cfg.Book.CourseCode,
		Term:        cfg.Book.Term,
		CreatedAt:   time.Now(),
	}

	for _, result := range results {
		chapter := BuildChapter(result)
		book.Chapters = append(book.Chapters, chapter)
		for _, dir := range []string{cfg.MarkdownDir(), cfg.SrcDir()} {
			path := filepath.Join(dir, chapter.Filename)
			if err := os.WriteFile(path, []byte(chapter.Content), 0644); err != nil {
				return nil, fmt.Errorf("write %s: %w", path, err)
			}
		}
		logger.Debug("chapter assembled", zap.Int("sequence", chapter.Sequence), zap.String("file", chapter.Filename))
	}

	if err := writeManifest(cfg, book); err != nil {
		return nil, err
	}
	if err := writeBookToml(cfg); err != nil {
		return nil, err
	}
	if err := writeReadme(cfg); err != nil {
		return nil, err
	}
	if err := writeDescriptor(cfg); err != nil {
		return nil, err
	}
	logger.Info("book assembled", zap.String("book", book.ID), zap.Int("chapters", len(book.Chapters)))
	return book, nil
}

// BuildChapter converts one OCR result into a chapter document. The chapter
// title comes from the page sequence number, not from the recognized text.
func BuildChapter(result models.OCRResult) models.Chapter {
	title := models.ChapterTitle(result.Sequence)
	body := ToMarkdown(Clean(result.Text))
	content := "# " + title + "\n\n" + body + "\n"
	return models.Chapter{
		Sequence: result.Sequence,
		Title:    title,
		Filename: models.ChapterFilename(result.Sequence),
		Content:  content,
	}
}

// writeManifest emits SUMMARY.md with one entry per chapter in sequence
// order, plus the glossary and timeline documents the enhancement stage
// fills in.
func writeManifest(cfg *config.Config, book *models.Book) error {
	var b strings.Builder
	b.WriteString("# Summary\n\n")
	b.WriteString("[Introduction](README.md)\n\n")
	for _, ch := range book.Chapters {
		fmt.Fprintf(&b, "- [%s](%s)\n", ch.Title, ch.Filename)
	}
	b.WriteString("\n[Timeline](timeline.md)\n")
	b.WriteString("[Glossary](glossary.md)\n")
	path := filepath.Join(cfg.SrcDir(), "SUMMARY.md")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

func writeBookToml(cfg *config.Config) error {
	var b strings.Builder
	b.WriteString("[book]\n")
	fmt.Fprintf(&b, "title = %q\n", cfg.Book.Title)
	fmt.Fprintf(&b, "authors = [%q]\n", cfg.Book.Author)
	fmt.Fprintf(&b, "description = %q\n", cfg.Book.Description)
	b.WriteString("language = \"en\"\n")
	path := filepath.Join(cfg.InstanceDir(), "book.toml")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write book.toml: %w", err)
	}
	return nil
}

func writeReadme(cfg *config.Config) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", cfg.Book.Title)
	if cfg.Book.Description != "" {
		b.WriteString(cfg.Book.Description + "\n\n")
	}
	if cfg.Book.CourseCode != "" {
		fmt.Fprintf(&b, "Course: %s", cfg.Book.CourseCode)
		if cfg.Book.Term != "" {
			fmt.Fprintf(&b, " (%s)", cfg.Book.Term)
		}
		b.WriteString("\n\n")
	}
	b.WriteString("Use the navigation panel to browse chapters.\n")
	path := filepath.Join(cfg.SrcDir(), "README.md")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write README.md: %w", err)
	}
	return nil
}

// writeDescriptor persists the book metadata as flat key/value text for
// downstream consumers.
func writeDescriptor(cfg *config.Config) error {
	var b strings.Builder
	for _, kv := range [][2]string{
		{"id", cfg.Book.ID},
		{"title", cfg.Book.Title},
		{"author", cfg.Book.Author},
		{"description", cfg.Book.Description},
		{"course_code", cfg.Book.CourseCode},
		{"term", cfg.Book.Term},
	} {
		fmt.Fprintf(&b, "%s=%s\n", kv[0], kv[1])
	}
	path := filepath.Join(cfg.BookDataDir(), "book.properties")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write book.properties: %w", err)
	}
	return nil
}
