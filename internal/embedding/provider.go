// Package embedding implements the pluggable text-embedding pipeline: the
// provider interface, a chunker, concrete HTTP/in-process providers, a
// bounded worker pool for fire-and-forget generate-on-save, and the startup
// backfill that keeps the vector table in sync with providers that change
// dimensionality between runs.
package embedding

import "context"

// Provider is a pluggable text-embedding backend.
type Provider interface {
	Name() string
	Model() string
	Dimensions() int
	MaxChars() int
	IsAvailable(ctx context.Context) bool
	Generate(ctx context.Context, text string) ([]float32, error)
}
