package enhance

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lucidpress/bindery/internal/models"
	"github.com/lucidpress/bindery/pkg/utils"
)

// RewriteLinks replaces bolded term occurrences in content with links into
// glossary.md, preserving the original casing. Occurrences in the term's own
// defining chapter are left alone.
//
// The replacement matches any `**term**` span, including one that an earlier
// run already wrapped in a link, so applying the stage twice nests links. A
// known risk carried over from the original pipeline; see the regression test.
func RewriteLinks(content, filename string, terms []*models.GlossaryTerm) (string, int) {
	links := 0
	for _, term := range terms {
		if term.DefiningChapter == filename {
			continue
		}
		if !containsString(term.Occurrences, filename) {
			continue
		}
		re := regexp.MustCompile(`(?i)\*\*(` + regexp.QuoteMeta(term.Term) + `)\*\*`)
		anchor := utils.Anchor(term.Term)
		content = re.ReplaceAllStringFunc(content, func(match string) string {
			links++
			inner := strings.TrimSuffix(strings.TrimPrefix(match, "**"), "**")
			return fmt.Sprintf("[**%s**](glossary.md#%s)", inner, anchor)
		})
	}
	return content, links
}
