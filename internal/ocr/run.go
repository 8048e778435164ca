package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/lucidpress/bindery/internal/config"
	"github.com/lucidpress/bindery/internal/models"
)

// Run recognizes every page in sequence order and writes one text file per
// page into cfg.OCRDir() (pageNNN.txt). A single page failure aborts the
// whole run; there is no partial-success mode. Progress is logged as a
// percentage of pages completed.
func Run(ctx context.Context, cfg *config.Config, pages []models.Page, engine Engine, logger *zap.Logger) ([]models.OCRResult, error) {
	if len(pages) == 0 {
		return nil, fmt.Errorf("no pages to recognize")
	}
	if err := os.MkdirAll(cfg.OCRDir(), 0755); err != nil {
		return nil, fmt.Errorf("create ocr dir: %w", err)
	}

	tier := TierFor(cfg.OCR.Quality)
	results := make([]models.OCRResult, 0, len(pages))
	for i, page := range pages {
		text, producer, err := recognizePage(ctx, cfg, page, engine, tier)
		if err != nil {
			return nil, fmt.Errorf("page %03d: %w", page.Sequence, err)
		}
		result := models.OCRResult{Sequence: page.Sequence, Text: text, Engine: producer}
		outPath := filepath.Join(cfg.OCRDir(), fmt.Sprintf("page%03d.txt", page.Sequence))
		if err := os.WriteFile(outPath, []byte(text), 0644); err != nil {
			return nil, fmt.Errorf("write %s: %w", outPath, err)
		}
		results = append(results, result)
		logger.Info("page recognized",
			zap.Int("sequence", page.Sequence),
			zap.String("engine", producer),
			zap.Int("percent", (i+1)*100/len(pages)),
		)
	}
	return results, nil
}

// recognizePage handles one page: the PDF text-layer fast path when present,
// otherwise optional preprocessing followed by the engine.
func recognizePage(ctx context.Context, cfg *config.Config, page models.Page, engine Engine, tier Tier) (string, string, error) {
	if page.Format == models.FormatPDF {
		text, err := ExtractPDFText(page.Path)
		if err != nil {
			return "", "", err
		}
		if text != "" {
			return text, "pdf-text", nil
		}
		// Image-only PDF: no text layer to use. The scanner pipeline rendered
		// these to images up front, so hand the file to the engine as-is.
	}

	inputPath := page.Path
	if cfg.OCR.Preprocess.Enabled() && page.Format != models.FormatPDF {
		processed, err := PreprocessFile(page.Path, page.Format, cfg.OCR.Preprocess, cfg.ProcessedDir())
		if err != nil {
			return "", "", fmt.Errorf("preprocess: %w", err)
		}
		inputPath = processed
	}

	result, err := engine.Recognize(ctx, Input{
		Path:     inputPath,
		Format:   page.Format,
		Language: cfg.OCR.Language,
		PSM:      tier.PSM,
		OEM:      tier.OEM,
		DPI:      tier.DPI,
	})
	if err != nil {
		return "", "", err
	}
	return result.Text, engine.Name(), nil
}

// LoadResults reads previously written OCR text files back from cfg.OCRDir(),
// in sequence order. Used when the assemble stage runs in a separate
// invocation from the OCR stage.
func LoadResults(cfg *config.Config) ([]models.OCRResult, error) {
	entries, err := os.ReadDir(cfg.OCRDir())
	if err != nil {
		return nil, fmt.Errorf("read ocr dir: %w", err)
	}
	var results []models.OCRResult
	for _, entry := range entries {
		var seq int
		if _, err := fmt.Sscanf(entry.Name(), "page%d.txt", &seq); err != nil {
			continue
		}
		data, err := os.ReadFile(filepath.Join(cfg.OCRDir(), entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		results = append(results, models.OCRResult{Sequence: seq, Text: string(data)})
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no OCR results in %s", cfg.OCRDir())
	}
	return results, nil
}
