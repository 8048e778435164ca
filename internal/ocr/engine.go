// Package ocr extracts text from validated page images. The engine is an
// injected capability so the stage can be tested against fakes.
package ocr

import (
	"context"

	"github.com/lucidpress/bindery/internal/models"
)

// Input is a single page submitted for recognition.
type Input struct {
	// Path is the image file to recognize (possibly a preprocessed copy).
	Path string
	// Format is the sniffed content type from intake.
	Format models.ImageFormat
	// Language is the trained-data language code (e.g. "eng").
	Language string
	// PSM is the page segmentation mode; OEM the engine mode. Both come from
	// the quality tier mapping.
	PSM int
	OEM int
	// DPI hints the scan resolution; zero means unknown.
	DPI int
}

// Result is the recognized text for one input.
type Result struct {
	Text string
}

// Engine is the OCR provider contract: one image in, one result out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (Result, error)
}

// Tier maps a quality setting to engine parameters.
type Tier struct {
	PSM int
	OEM int
	DPI int
}

// TierFor returns the engine parameters for a quality setting.
// fast trades layout analysis for speed (legacy engine, simple segmentation);
// balanced matches the scanner default (full auto segmentation with OSD);
// high additionally pins the DPI hint for dense textbook pages.
func TierFor(quality string) Tier {
	switch quality {
	case "fast":
		return Tier{PSM: 3, OEM: 0}
	case "high":
		return Tier{PSM: 1, OEM: 1, DPI: 300}
	default: // balanced
		return Tier{PSM: 1, OEM: 1}
	}
}
