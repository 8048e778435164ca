// Package enhance implements the enhancement stage: glossary extraction from
// bolded spans, term embeddings, cross-reference links, and the glossary,
// timeline, and terms.json artifacts.
package enhance

import (
	"regexp"
	"sort"
	"strings"

	"github.com/lucidpress/bindery/internal/models"
)

var boldSpanRE = regexp.MustCompile(`\*\*([^*\n]+)\*\*`)

// ExtractTerms scans chapters in sequence order for bolded spans and returns
// glossary candidates. A span qualifies when it is at least minLen characters
// and is not a caption label. The first chapter containing a term is its
// defining chapter, and the first sentence around that occurrence becomes the
// definition.
func ExtractTerms(chapters []models.Chapter, minLen int) []*models.GlossaryTerm {
	if minLen <= 0 {
		minLen = 4
	}
	ordered := make([]models.Chapter, len(chapters))
	copy(ordered, chapters)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Sequence < ordered[j].Sequence })

	byKey := make(map[string]*models.GlossaryTerm)
	var keys []string
	for _, ch := range ordered {
		for _, match := range boldSpanRE.FindAllStringSubmatch(ch.Content, -1) {
			raw := strings.TrimSpace(match[1])
			key := strings.ToLower(raw)
			if len([]rune(key)) < minLen {
				continue
			}
			// Bolded caption labels ("Figure 3:") are not terms.
			if strings.HasSuffix(raw, ":") {
				continue
			}
			term, ok := byKey[key]
			if !ok {
				term = &models.GlossaryTerm{
					Term:            key,
					Definition:      definitionSentence(ch.Content, raw),
					DefiningChapter: ch.Filename,
				}
				byKey[key] = term
				keys = append(keys, key)
			}
			if !containsString(term.Occurrences, ch.Filename) {
				term.Occurrences = append(term.Occurrences, ch.Filename)
			}
		}
	}

	sort.Strings(keys)
	terms := make([]*models.GlossaryTerm, len(keys))
	for i, k := range keys {
		terms[i] = byKey[k]
	}
	return terms
}

// definitionSentence returns the sentence containing the first bolded
// occurrence of raw, with markdown emphasis stripped.
func definitionSentence(content, raw string) string {
	marker := "**" + raw + "**"
	idx := strings.Index(content, marker)
	if idx < 0 {
		return ""
	}
	start := idx
	for start > 0 {
		c := content[start-1]
		if c == '\n' || c == '.' || c == '!' || c == '?' {
			break
		}
		start--
	}
	end := idx + len(marker)
	for end < len(content) {
		c := content[end]
		if c == '.' || c == '!' || c == '?' {
			end++
			break
		}
		if c == '\n' {
			break
		}
		end++
	}
	sentence := content[start:end]
	sentence = strings.ReplaceAll(sentence, "**", "")
	sentence = strings.TrimLeft(sentence, "# ")
	return strings.TrimSpace(sentence)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
