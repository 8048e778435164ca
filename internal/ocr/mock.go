package ocr

import (
	"context"
	"fmt"
	"path/filepath"
)

// MockEngine is a deterministic engine for tests. It returns canned text per
// base filename, or a derived placeholder when no canned text is registered.
type MockEngine struct {
	// Texts maps base filenames (e.g. "page001.jpg") to recognized text.
	Texts map[string]string
	// Err, when set, is returned for every call.
	Err error
	// Calls records the recognized paths in order.
	Calls []string
}

// NewMockEngine returns a mock with the given canned texts.
func NewMockEngine(texts map[string]string) *MockEngine {
	return &MockEngine{Texts: texts}
}

// Name returns "mock".
func (e *MockEngine) Name() string { return "mock" }

// Recognize returns the canned text for the input's base filename.
func (e *MockEngine) Recognize(ctx context.Context, in Input) (Result, error) {
	e.Calls = append(e.Calls, in.Path)
	if e.Err != nil {
		return Result{}, e.Err
	}
	base := filepath.Base(in.Path)
	if text, ok := e.Texts[base]; ok {
		return Result{Text: text}, nil
	}
	return Result{Text: fmt.Sprintf("Recognized text for %s.", base)}, nil
}
