package ocr

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/image/tiff"

	"github.com/lucidpress/bindery/internal/config"
	"github.com/lucidpress/bindery/internal/models"
)

// binarizeThreshold matches the scanner's fixed cutoff: pixels brighter than
// this become white, the rest black.
const binarizeThreshold = 200

// maxSkewDegrees bounds the deskew angle search.
const maxSkewDegrees = 3.0

// PreprocessFile decodes the image at path, applies the enabled filters, and
// writes the result as PNG into outDir. Returns the written path.
func PreprocessFile(path string, format models.ImageFormat, cfg config.PreprocessConfig, outDir string) (string, error) {
	img, err := decodeImage(path, format)
	if err != nil {
		return "", err
	}
	gray := toGray(img)
	if cfg.Deskew {
		gray = deskew(gray)
	}
	if cfg.Denoise {
		gray = medianFilter(gray)
	}
	if cfg.Contrast {
		gray = stretchContrast(gray)
		gray = binarize(gray, binarizeThreshold)
	}

	if err := os.MkdirAll(outDir, 0755); err != nil {
		return "", fmt.Errorf("create processed dir: %w", err)
	}
	base := filepath.Base(path)
	out := filepath.Join(outDir, base[:len(base)-len(filepath.Ext(base))]+"_processed.png")
	f, err := os.Create(out)
	if err != nil {
		return "", fmt.Errorf("create processed image: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, gray); err != nil {
		return "", fmt.Errorf("encode processed image: %w", err)
	}
	return out, nil
}

func decodeImage(path string, format models.ImageFormat) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()
	switch format {
	case models.FormatPNG:
		return png.Decode(f)
	case models.FormatJPEG:
		return jpeg.Decode(f)
	case models.FormatTIFF:
		return tiff.Decode(f)
	default:
		return nil, fmt.Errorf("cannot preprocess format %s", format)
	}
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			gray.Set(x, y, color.GrayModel.Convert(img.At(x, y)))
		}
	}
	return gray
}

// stretchContrast maps the observed intensity range linearly onto [0, 255].
func stretchContrast(g *image.Gray) *image.Gray {
	b := g.Bounds()
	min, max := uint8(255), uint8(0)
	for i := range g.Pix {
		if g.Pix[i] < min {
			min = g.Pix[i]
		}
		if g.Pix[i] > max {
			max = g.Pix[i]
		}
	}
	if min >= max {
		return g
	}
	out := image.NewGray(b)
	scale := 255.0 / float64(max-min)
	for i, p := range g.Pix {
		out.Pix[i] = uint8(float64(p-min) * scale)
	}
	return out
}

func binarize(g *image.Gray, threshold uint8) *image.Gray {
	out := image.NewGray(g.Bounds())
	for i, p := range g.Pix {
		if p > threshold {
			out.Pix[i] = 255
		} else {
			out.Pix[i] = 0
		}
	}
	return out
}

// medianFilter applies a 3x3 median, removing salt-and-pepper noise from the scan.
func medianFilter(g *image.Gray) *image.Gray {
	b := g.Bounds()
	out := image.NewGray(b)
	var window [9]byte
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					xx, yy := x+dx, y+dy
					if xx < b.Min.X || xx >= b.Max.X || yy < b.Min.Y || yy >= b.Max.Y {
						continue
					}
					window[n] = g.GrayAt(xx, yy).Y
					n++
				}
			}
			s := window[:n]
			sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
			out.SetGray(x, y, color.Gray{Y: s[n/2]})
		}
	}
	return out
}

// deskew searches small rotation angles for the one that maximizes the
// variance of the horizontal projection profile (text lines align with rows
// when the page is straight) and rotates by it.
func deskew(g *image.Gray) *image.Gray {
	best, bestScore := 0.0, projectionVariance(g, 0)
	for angle := -maxSkewDegrees; angle <= maxSkewDegrees; angle += 0.5 {
		if angle == 0 {
			continue
		}
		if score := projectionVariance(g, angle); score > bestScore {
			best, bestScore = angle, score
		}
	}
	if best == 0 {
		return g
	}
	return rotate(g, best)
}

func projectionVariance(g *image.Gray, degrees float64) float64 {
	rotated := g
	if degrees != 0 {
		rotated = rotate(g, degrees)
	}
	b := rotated.Bounds()
	h := b.Dy()
	if h == 0 {
		return 0
	}
	sums := make([]float64, h)
	for y := 0; y < h; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if rotated.GrayAt(x, b.Min.Y+y).Y < 128 {
				sums[y]++
			}
		}
	}
	var mean float64
	for _, s := range sums {
		mean += s
	}
	mean /= float64(h)
	var variance float64
	for _, s := range sums {
		d := s - mean
		variance += d * d
	}
	return variance / float64(h)
}

// rotate performs a nearest-neighbor rotation about the image center,
// filling uncovered pixels with white.
func rotate(g *image.Gray, degrees float64) *image.Gray {
	b := g.Bounds()
	out := image.NewGray(b)
	for i := range out.Pix {
		out.Pix[i] = 255
	}
	rad := degrees * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)
	cx := float64(b.Min.X+b.Max.X) / 2
	cy := float64(b.Min.Y+b.Max.Y) / 2
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			// Inverse mapping: sample the source pixel that lands here.
			dx, dy := float64(x)-cx, float64(y)-cy
			sx := int(math.Round(cx + dx*cos + dy*sin))
			sy := int(math.Round(cy - dx*sin + dy*cos))
			if sx >= b.Min.X && sx < b.Max.X && sy >= b.Min.Y && sy < b.Max.Y {
				out.SetGray(x, y, g.GrayAt(sx, sy))
			}
		}
	}
	return out
}
