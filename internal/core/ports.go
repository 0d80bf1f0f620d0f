package core

import (
	"context"
)

// EmbeddingProvider defines the interface for sentence-embedding backends
type EmbeddingProvider interface {
	// Embed encodes every text into a vector, preserving input order
	Embed(ctx context.Context, texts []string) ([]Embedding, error)

	// Name identifies the loaded model
	Name() string

	// Dimension returns the vector length, or 0 when not yet known
	Dimension() int

	// Close releases the model
	Close() error
}
