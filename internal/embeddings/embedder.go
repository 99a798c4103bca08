// Package embeddings provides the dense-vector text encoders used by both
// the ingestion pipeline and the query path. The same model identifier must
// be used at ingestion and query time; mismatched models silently degrade
// retrieval, so the engine treats the configured model as part of the index.
package embeddings

import "context"

// Embedder generates dense embeddings for text.
type Embedder interface {
	// Embed returns one vector per input text, in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector width of the model.
	Dimensions() int

	// Name returns the model identifier.
	Name() string
}
