package enhance

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/lucidpress/bindery/internal/models"
)

// WriteGlossary writes glossary.md into dir, one section per term in
// alphabetical order. Terms arrive already sorted from ExtractTerms.
func WriteGlossary(dir string, terms []*models.GlossaryTerm) error {
	var b strings.Builder
	b.WriteString("# Glossary\n\n")
	b.WriteString("This glossary provides definitions for key terms used throughout this textbook.\n\n")
	for _, term := range terms {
		b.WriteString("## " + capitalize(term.Term) + "\n\n")
		if term.Definition != "" {
			b.WriteString(term.Definition + "\n\n")
		}
	}
	return os.WriteFile(filepath.Join(dir, "glossary.md"), []byte(b.String()), 0644)
}

type timelineEntry struct {
	period string
	span   string
}

var artPeriods = []timelineEntry{
	{"Prehistoric Art", "30,000 BCE - 2,500 BCE"},
	{"Ancient Egyptian Art", "3,100 BCE - 30 BCE"},
	{"Ancient Greek Art", "800 BCE - 31 BCE"},
	{"Roman Art", "500 BCE - 476 CE"},
	{"Byzantine Art", "330 CE - 1453 CE"},
	{"Medieval Art", "500 CE - 1400 CE"},
	{"Renaissance", "1400 CE - 1600 CE"},
	{"Baroque", "1600 CE - 1750 CE"},
	{"Neoclassicism", "1750 CE - 1850 CE"},
	{"Romanticism", "1800 CE - 1850 CE"},
	{"Impressionism", "1860 CE - 1900 CE"},
	{"Post-Impressionism", "1886 CE - 1905 CE"},
	{"Modernism", "1900 CE - 1970 CE"},
	{"Contemporary Art", "1970 CE - Present"},
}

type movementEntry struct {
	name string
	span string
	note string
}

var modernMovements = []movementEntry{
	{"Fauvism", "1905 - 1910", "Characterized by bold colors and wild brushwork"},
	{"Cubism", "1907 - 1914", "Breaking subjects into geometric shapes from multiple viewpoints"},
	{"Futurism", "1909 - 1944", "Celebrating technology, speed, youth and violence"},
	{"Dada", "1916 - 1924", "Anti-art movement born from disgust with WWI"},
	{"Surrealism", "1924 - 1966", "Exploring the unconscious mind and dreams"},
	{"Abstract Expressionism", "1946 - 1960", "Emotional, spontaneous abstract painting"},
	{"Pop Art", "1955 - 1975", "Inspired by popular culture and mass media"},
	{"Minimalism", "1960 - 1975", "Extreme simplification of form"},
	{"Conceptual Art", "1965 - Present", "Ideas take precedence over traditional aesthetics"},
}

// WriteTimeline writes timeline.md into dir: an overview table of major art
// periods plus a table of modern movements.
func WriteTimeline(dir string) error {
	var b strings.Builder
	b.WriteString("# Art History Timeline\n\n")
	b.WriteString("This timeline provides an overview of major art periods covered in this textbook.\n\n")
	b.WriteString("| Period | Time Range |\n")
	b.WriteString("|--------|------------|\n")
	for _, e := range artPeriods {
		fmt.Fprintf(&b, "| %s | %s |\n", e.period, e.span)
	}
	b.WriteString("\n## Major Movements in Modern Art\n\n")
	b.WriteString("| Movement | Time Range | Description |\n")
	b.WriteString("|----------|------------|-------------|\n")
	for _, e := range modernMovements {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", e.name, e.span, e.note)
	}
	return os.WriteFile(filepath.Join(dir, "timeline.md"), []byte(b.String()), 0644)
}

// WriteTermsJSON writes the terms.json sidecar: term name to definition,
// occurrence list, and embedding, for client-side fuzzy search.
func WriteTermsJSON(path string, terms []*models.GlossaryTerm) error {
	byName := make(map[string]*models.GlossaryTerm, len(terms))
	for _, term := range terms {
		byName[term.Term] = term
	}
	data, err := json.MarshalIndent(byName, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal terms: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LoadTermsJSON reads a terms.json sidecar back into glossary terms.
func LoadTermsJSON(path string) ([]*models.GlossaryTerm, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]*models.GlossaryTerm)
	if err := json.Unmarshal(data, &byName); err != nil {
		return nil, fmt.Errorf("parse terms file: %w", err)
	}
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	terms := make([]*models.GlossaryTerm, len(names))
	for i, name := range names {
		term := byName[name]
		if term.Term == "" {
			term.Term = name
		}
		terms[i] = term
	}
	return terms, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
