package intake

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lucidpress/bindery/internal/config"
	"github.com/lucidpress/bindery/internal/models"
)

var (
	pngBytes  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0}
	jpegBytes = []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0x10, 'J', 'F', 'I', 'F'}
	tiffBytes = []byte("II*\x00restoffile")
)

func writeFile(t *testing.T, dir, name string, content []byte) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), content, 0600); err != nil {
		t.Fatal(err)
	}
}

func TestScan_ordersBySequence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "page003.jpg", jpegBytes)
	writeFile(t, dir, "page001.jpg", jpegBytes)
	writeFile(t, dir, "page010.png", pngBytes)

	report, err := Scan(dir, config.IntakeConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Pages) != 3 {
		t.Fatalf("pages = %d", len(report.Pages))
	}
	want := []int{1, 3, 10}
	for i, p := range report.Pages {
		if p.Sequence != want[i] {
			t.Errorf("page %d sequence = %d, want %d", i, p.Sequence, want[i])
		}
	}
}

func TestScan_gapProducesShorterSequence(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "page001.jpg", jpegBytes)
	writeFile(t, dir, "page003.jpg", jpegBytes)

	report, err := Scan(dir, config.IntakeConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.Pages) != 2 {
		t.Fatalf("gap should not synthesize a placeholder; pages = %d", len(report.Pages))
	}
	if report.Pages[0].Sequence != 1 || report.Pages[1].Sequence != 3 {
		t.Errorf("sequences = %d, %d", report.Pages[0].Sequence, report.Pages[1].Sequence)
	}
}

func TestScan_emptyDirRejected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", []byte("not an image"))
	if _, err := Scan(dir, config.IntakeConfig{}); err == nil {
		t.Fatal("empty image directory must reject the run")
	}
}

func TestScan_magicMismatchAggregated(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "page001.png", jpegBytes) // claims PNG, is JPEG
	writeFile(t, dir, "page002.jpg", []byte("plain text pretending"))
	writeFile(t, dir, "page003.jpg", jpegBytes)

	_, err := Scan(dir, config.IntakeConfig{})
	if err == nil {
		t.Fatal("expected format mismatch error")
	}
	if !strings.Contains(err.Error(), "page001.png") || !strings.Contains(err.Error(), "page002.jpg") {
		t.Errorf("error should list every offending file: %v", err)
	}
	if strings.Contains(err.Error(), "page003.jpg") {
		t.Errorf("valid file listed as offender: %v", err)
	}
}

func TestScan_looseNamesRejectedByDefault(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "scan_07.jpg", jpegBytes)
	if _, err := Scan(dir, config.IntakeConfig{}); err == nil {
		t.Fatal("loose names should be rejected without override")
	}
	report, err := Scan(dir, config.IntakeConfig{AllowLooseNames: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(report.LooseNames) != 1 || report.LooseNames[0] != "scan_07.jpg" {
		t.Errorf("loose names = %v", report.LooseNames)
	}
	if report.Pages[0].Sequence != 7 {
		t.Errorf("loose name digit run should order the page, got %d", report.Pages[0].Sequence)
	}
}

func TestScan_oversizedRejected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "page001.jpg", append(jpegBytes, make([]byte, 100)...))
	_, err := Scan(dir, config.IntakeConfig{MaxFileBytes: 16})
	if err == nil || !strings.Contains(err.Error(), "page001.jpg") {
		t.Fatalf("oversized file should be rejected: %v", err)
	}
}

func TestScan_tiffFormats(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "page001.tif", tiffBytes)
	report, err := Scan(dir, config.IntakeConfig{})
	if err != nil {
		t.Fatal(err)
	}
	if report.Pages[0].Format != models.FormatTIFF {
		t.Errorf("format = %s", report.Pages[0].Format)
	}
}
