// Package intake validates a directory of scanned page images before any
// other stage runs. It enumerates image files, parses page sequence numbers
// from filenames, and sniffs magic bytes against the expected format.
package intake

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/lucidpress/bindery/internal/config"
	"github.com/lucidpress/bindery/internal/models"
)

// pageNamePattern is the expected filename convention: pageNNN.ext.
var pageNamePattern = regexp.MustCompile(`^page(\d+)\.[A-Za-z]+$`)

// digitsPattern pulls the first digit run out of a nonconforming filename so
// loose names can still be ordered.
var digitsPattern = regexp.MustCompile(`\d+`)

var extFormats = map[string]models.ImageFormat{
	".png":  models.FormatPNG,
	".jpg":  models.FormatJPEG,
	".jpeg": models.FormatJPEG,
	".tif":  models.FormatTIFF,
	".tiff": models.FormatTIFF,
	".pdf":  models.FormatPDF,
}

// Report is the outcome of a successful intake scan.
type Report struct {
	// Pages in ascending sequence order. Gaps in the numbering are preserved;
	// no placeholder is synthesized for missing numbers.
	Pages []models.Page
	// LooseNames lists files that did not match the pageNNN.ext convention
	// but were accepted (intake.allow_loose_names).
	LooseNames []string
}

// Scan validates dir and returns the ordered page list. The run is rejected
// when dir holds no image files, when any file's magic bytes disagree with
// its extension (all offenders reported in one error), when a file exceeds
// the size limit, or when filenames are nonconforming and loose names are
// not allowed. Scan has no side effects beyond reading.
func Scan(dir string, cfg config.IntakeConfig) (*Report, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read source directory: %w", err)
	}

	var pages []models.Page
	var loose []string
	var badFormat []string
	var oversized []string

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		ext := strings.ToLower(filepath.Ext(name))
		format, ok := extFormats[ext]
		if !ok {
			continue
		}
		path := filepath.Join(dir, name)

		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", name, err)
		}
		if cfg.MaxFileBytes > 0 && info.Size() > cfg.MaxFileBytes {
			oversized = append(oversized, name)
			continue
		}

		sniffed, err := sniffFormat(path)
		if err != nil {
			return nil, fmt.Errorf("sniff %s: %w", name, err)
		}
		if sniffed != format {
			badFormat = append(badFormat, fmt.Sprintf("%s (claims %s, content is %s)", name, format, formatName(sniffed)))
			continue
		}

		seq, conforming := parseSequence(name)
		if !conforming {
			loose = append(loose, name)
		}
		pages = append(pages, models.Page{Path: path, Sequence: seq, Format: format})
	}

	if len(badFormat) > 0 {
		sort.Strings(badFormat)
		return nil, fmt.Errorf("image format mismatch: %s", strings.Join(badFormat, "; "))
	}
	if len(oversized) > 0 {
		sort.Strings(oversized)
		return nil, fmt.Errorf("files exceed size limit: %s", strings.Join(oversized, ", "))
	}
	if len(pages) == 0 {
		return nil, fmt.Errorf("no image files found in %s", dir)
	}
	if len(loose) > 0 && !cfg.AllowLooseNames {
		sort.Strings(loose)
		return nil, fmt.Errorf("filenames do not follow pageNNN.ext convention: %s (set intake.allow_loose_names to proceed)", strings.Join(loose, ", "))
	}

	sort.Slice(pages, func(i, j int) bool {
		if pages[i].Sequence != pages[j].Sequence {
			return pages[i].Sequence < pages[j].Sequence
		}
		return pages[i].Path < pages[j].Path
	})
	sort.Strings(loose)
	return &Report{Pages: pages, LooseNames: loose}, nil
}

// parseSequence returns the page sequence number for a filename and whether
// the name conforms to pageNNN.ext. Nonconforming names fall back to the
// first digit run; names with no digits sort last with sequence -1 replaced
// by a large ordinal at the caller's sort (kept simple: 1<<30).
func parseSequence(name string) (int, bool) {
	if m := pageNamePattern.FindStringSubmatch(name); m != nil {
		n, err := strconv.Atoi(m[1])
		if err == nil {
			return n, true
		}
	}
	if m := digitsPattern.FindString(name); m != "" {
		if n, err := strconv.Atoi(m); err == nil {
			return n, false
		}
	}
	return 1 << 30, false
}

var magicSignatures = []struct {
	prefix []byte
	format models.ImageFormat
}{
	{[]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, models.FormatPNG},
	{[]byte{0xff, 0xd8, 0xff}, models.FormatJPEG},
	{[]byte("II*\x00"), models.FormatTIFF},
	{[]byte("MM\x00*"), models.FormatTIFF},
	{[]byte("%PDF-"), models.FormatPDF},
}

// sniffFormat reads the first few bytes of path and returns the detected
// format, or "" when nothing matches.
func sniffFormat(path string) (models.ImageFormat, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	header := make([]byte, 8)
	n, err := io.ReadFull(f, header)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}
	header = header[:n]
	for _, sig := range magicSignatures {
		if bytes.HasPrefix(header, sig.prefix) {
			return sig.format, nil
		}
	}
	return "", nil
}

func formatName(f models.ImageFormat) string {
	if f == "" {
		return "unrecognized"
	}
	return string(f)
}
