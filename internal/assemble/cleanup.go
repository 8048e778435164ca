// Package assemble converts OCR results into markdown chapters and builds
// the book manifest. It is purely file-to-file; no external tools.
package assemble

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/lucidpress/bindery/pkg/utils"
)

// ocrFixes corrects typography artifacts the OCR engine commonly produces.
var ocrFixes = strings.NewReplacer(
	"''", `"`,
	"``", `"`,
	"—", "-", // em dash
	"–", "-", // en dash
	"ﬁ", "fi",
	"ﬂ", "fl",
)

var (
	chapterHeadingRE = regexp.MustCompile(`^(?i)Chapter [0-9]+`)
	numberedRE       = regexp.MustCompile(`^[0-9]+\..*$`)
	figureRE         = regexp.MustCompile(`(?i)(Figure|Fig\.)\s+([0-9]+)[.:]\s*`)
	tableRE          = regexp.MustCompile(`(?i)(Table)\s+([0-9]+)[.:]\s*`)
	spacesRE         = regexp.MustCompile(`[ \t]+`)
)

// Clean normalizes raw OCR text: control characters stripped (newlines kept),
// runs of spaces collapsed, lines trimmed, typography fixes applied.
func Clean(text string) string {
	var b strings.Builder
	for _, r := range text {
		if r == '\n' || r == '\t' || !unicode.IsControl(r) {
			b.WriteRune(r)
		}
	}
	text = ocrFixes.Replace(b.String())

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimSpace(spacesRE.ReplaceAllString(line, " "))
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// ToMarkdown applies structural heuristics to cleaned OCR text: short
// leading line becomes the page heading, "Chapter N" lines become sections,
// numbered and ALL-CAPS lines become subsections, figure and table captions
// are bolded. Body lines are joined into paragraphs separated by blanks.
func ToMarkdown(text string) string {
	lines := strings.Split(text, "\n")
	var md []string
	var para []string

	flush := func() {
		if len(para) > 0 {
			md = append(md, strings.Join(para, " "))
			para = nil
		}
	}

	for i, line := range lines {
		switch {
		case line == "":
			flush()
		case i == 0 && len(line) < 100 && !chapterHeadingRE.MatchString(line):
			md = append(md, "## "+line)
		case isHeading(line):
			flush()
			md = append(md, headingFor(line))
		default:
			para = append(para, line)
		}
	}
	flush()

	body := strings.Join(md, "\n\n")
	body = figureRE.ReplaceAllString(body, "**Figure $2:** ")
	body = tableRE.ReplaceAllString(body, "**Table $2:** ")
	return body
}

func isHeading(line string) bool {
	if len(line) >= 80 {
		return false
	}
	return isUpper(line) || numberedRE.MatchString(line) || chapterHeadingRE.MatchString(line)
}

func headingFor(line string) string {
	switch {
	case chapterHeadingRE.MatchString(line):
		return "## " + line
	case numberedRE.MatchString(line):
		return "### " + line
	case isUpper(line):
		return "### " + utils.TitleCase(line)
	default:
		return "### " + line
	}
}

// isUpper reports whether line contains letters and none of them lowercase.
func isUpper(line string) bool {
	hasLetter := false
	for _, r := range line {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			hasLetter = true
		}
	}
	return hasLetter
}
