package embedding

import "context"

// Embedder converts free text into a numeric vector representation.
// Vectors from one Embedder are only comparable with each other.
type Embedder interface {
	Name() string
	// Dimension is zero until it is known; remote models learn it on first use.
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
