package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
)

// TesseractEngine shells out to the tesseract binary.
type TesseractEngine struct {
	// Binary is the tesseract executable path or name (looked up on PATH).
	Binary string
}

// NewTesseractEngine returns an engine using the given binary path.
func NewTesseractEngine(binary string) *TesseractEngine {
	if binary == "" {
		binary = "tesseract"
	}
	return &TesseractEngine{Binary: binary}
}

// Name returns "tesseract".
func (e *TesseractEngine) Name() string { return "tesseract" }

// Available reports whether the binary can be invoked.
func (e *TesseractEngine) Available() bool {
	_, err := exec.LookPath(e.Binary)
	return err == nil
}

// Recognize runs tesseract on in.Path and returns the extracted text.
func (e *TesseractEngine) Recognize(ctx context.Context, in Input) (Result, error) {
	args := []string{in.Path, "stdout"}
	if in.Language != "" {
		args = append(args, "-l", in.Language)
	}
	args = append(args, "--psm", strconv.Itoa(in.PSM), "--oem", strconv.Itoa(in.OEM))
	if in.DPI > 0 {
		args = append(args, "--dpi", strconv.Itoa(in.DPI))
	}

	cmd := exec.CommandContext(ctx, e.Binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return Result{}, fmt.Errorf("tesseract %s: %w: %s", in.Path, err, bytes.TrimSpace(stderr.Bytes()))
	}
	return Result{Text: stdout.String()}, nil
}
