// Package embedder provides interfaces for text embedding providers.
//
// It defines the Provider interface that embedding implementations satisfy,
// plus a caching decorator that avoids re-embedding identical text.
package embedder

import "context"

// Provider defines the interface for embedding providers.
type Provider interface {
	// Embed converts a text string into a vector embedding.
	Embed(ctx context.Context, text string) ([]float64, error)

	// EmbedBatch converts multiple texts into vectors in one request.
	// The returned slice matches the order of the input texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)

	// Dimensions returns the dimension of vectors this provider produces.
	Dimensions() int

	// Model identifies the embedding model, recorded on every stored
	// vector so vectors from different models are never compared.
	Model() string

	// Close closes the provider and releases resources.
	Close() error
}
