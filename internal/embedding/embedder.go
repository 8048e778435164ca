// Package embedding produces vector embeddings for glossary terms, backed by
// a locally-run ONNX model. The provider is injected so the enhancement stage
// can be tested against a deterministic fake.
package embedding

import "context"

// Embedder produces vector embeddings for text. Every vector returned by one
// Embedder instance has the same dimensionality.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Close() error
}
