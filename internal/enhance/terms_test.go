package enhance

import (
	"strings"
	"testing"

	"github.com/lucidpress/bindery/internal/models"
)

func testChapters() []models.Chapter {
	return []models.Chapter{
		{
			Sequence: 1,
			Filename: "chapter_001.md",
			Title:    "Chapter 1",
			Content: "# Chapter 1\n\n" +
				"Caravaggio relied on **chiaroscuro** to model his figures in light and shadow. " +
				"Later painters pushed the approach into **tenebrism**.\n\n" +
				"**Figure 1:** The Calling of Saint Matthew.\n",
		},
		{
			Sequence: 3,
			Filename: "chapter_003.md",
			Title:    "Chapter 3",
			Content: "# Chapter 3\n\n" +
				"Dutch painters inherited **chiaroscuro** from Italy. " +
				"A bold **orb** appears here.\n",
		},
	}
}

func TestExtractTerms(t *testing.T) {
	terms := ExtractTerms(testChapters(), 4)

	if len(terms) != 2 {
		t.Fatalf("got %d terms, want 2: %+v", len(terms), terms)
	}
	// Alphabetical order.
	if terms[0].Term != "chiaroscuro" || terms[1].Term != "tenebrism" {
		t.Fatalf("terms = %q, %q", terms[0].Term, terms[1].Term)
	}

	chiaro := terms[0]
	if chiaro.DefiningChapter != "chapter_001.md" {
		t.Errorf("defining chapter = %q, want chapter_001.md", chiaro.DefiningChapter)
	}
	if len(chiaro.Occurrences) != 2 {
		t.Errorf("occurrences = %v, want both chapters", chiaro.Occurrences)
	}
	if !strings.Contains(chiaro.Definition, "Caravaggio relied on chiaroscuro") {
		t.Errorf("definition = %q", chiaro.Definition)
	}
	if strings.Contains(chiaro.Definition, "**") {
		t.Errorf("definition should have emphasis stripped: %q", chiaro.Definition)
	}
}

func TestExtractTerms_SkipsShortAndCaptions(t *testing.T) {
	terms := ExtractTerms(testChapters(), 4)
	for _, term := range terms {
		if term.Term == "orb" {
			t.Error("three-character span should not become a term")
		}
		if strings.HasPrefix(term.Term, "figure") {
			t.Error("caption label should not become a term")
		}
	}
}

func TestExtractTerms_DefiningChapterIsFirstBySequence(t *testing.T) {
	// Pass chapters out of order; extraction must sort by sequence first.
	chapters := testChapters()
	chapters[0], chapters[1] = chapters[1], chapters[0]
	terms := ExtractTerms(chapters, 4)
	for _, term := range terms {
		if term.Term == "chiaroscuro" && term.DefiningChapter != "chapter_001.md" {
			t.Errorf("defining chapter = %q, want chapter_001.md", term.DefiningChapter)
		}
	}
}

func TestDefinitionSentence(t *testing.T) {
	content := "Intro line. The **impasto** technique uses thick paint. More text."
	got := definitionSentence(content, "impasto")
	want := "The impasto technique uses thick paint."
	if got != want {
		t.Errorf("definition = %q, want %q", got, want)
	}
}
