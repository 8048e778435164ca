// Package models defines core data structures for pages, chapters, books, and glossary terms.
package models

import (
	"fmt"
	"time"
)

// Page is a validated input image, ordered by the sequence number parsed
// from its filename (page012.jpg -> 12). Immutable once validated.
type Page struct {
	Path     string
	Sequence int
	Format   ImageFormat
}

// ImageFormat identifies the sniffed content type of a page file.
type ImageFormat string

const (
	FormatPNG  ImageFormat = "image/png"
	FormatJPEG ImageFormat = "image/jpeg"
	FormatTIFF ImageFormat = "image/tiff"
	FormatPDF  ImageFormat = "application/pdf"
)

// OCRResult is the raw text extracted from exactly one page. It exists only
// between the OCR stage and markdown assembly.
type OCRResult struct {
	Sequence int
	Text     string
	// Engine names the producer ("tesseract", "pdf-text", "mock").
	Engine string
}

// Chapter is one markdown document derived from one page.
type Chapter struct {
	Sequence int
	Title    string
	Filename string
	Content  string
}

// Book is the aggregate output of one run: ordered chapters plus metadata.
// Chapter order is strictly the numeric order of page sequence numbers; gaps
// in the numbering shorten the book, they are not padded.
type Book struct {
	ID          string
	Title       string
	Author      string
	Description string
	CourseCode  string
	Term        string
	Chapters    []Chapter
	CreatedAt   time.Time
}

// GlossaryTerm is a bolded phrase extracted from chapter text.
type GlossaryTerm struct {
	Term string `json:"term"`
	// Definition is the first sentence the term appears in.
	Definition string `json:"definition"`
	// DefiningChapter is the filename of the first chapter containing the term.
	// Occurrences there are left unlinked.
	DefiningChapter string `json:"defining_chapter"`
	// Occurrences is the sorted set of chapter filenames containing the term.
	Occurrences []string `json:"occurrences"`
	// Embedding is the fixed-length vector for similarity search. All terms
	// in one run share the same dimensionality.
	Embedding []float32 `json:"embedding,omitempty"`
}

// ChapterFilename returns the canonical chapter filename for a sequence number.
func ChapterFilename(seq int) string {
	return fmt.Sprintf("chapter_%03d.md", seq)
}

// ChapterTitle returns the canonical chapter title for a sequence number.
func ChapterTitle(seq int) string {
	return fmt.Sprintf("Chapter %d", seq)
}
