package assemble

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"

	"github.com/lucidpress/bindery/internal/models"
)

var chapterFileRE = regexp.MustCompile(`^chapter_(\d+)\.md$`)

// LoadChapters reads assembled chapter files back from dir, ordered by
// sequence. Used when a later stage resumes without re-running assembly.
func LoadChapters(dir string) ([]models.Chapter, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read markdown dir: %w", err)
	}
	var chapters []models.Chapter
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m := chapterFileRE.FindStringSubmatch(entry.Name())
		if m == nil {
			continue
		}
		seq, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		content, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read chapter %s: %w", entry.Name(), err)
		}
		chapters = append(chapters, models.Chapter{
			Sequence: seq,
			Title:    models.ChapterTitle(seq),
			Filename: entry.Name(),
			Content:  string(content),
		})
	}
	if len(chapters) == 0 {
		return nil, fmt.Errorf("no chapter files in %s", dir)
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].Sequence < chapters[j].Sequence })
	return chapters, nil
}
