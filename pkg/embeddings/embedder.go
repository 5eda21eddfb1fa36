// Package embeddings defines the embedding provider contract consumed by the
// pipeline. Implementations turn an image reference (remote URL or local file
// path) into a fixed-length float vector.
package embeddings

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrProvider is returned when the embedding call fails: network error,
	// unparseable response, or the vector missing from the expected path.
	ErrProvider = errors.New("embedding provider failed")

	// ErrSizeLimit is the distinguished provider failure for oversized
	// images. It wraps ErrProvider, so errors.Is(err, ErrProvider) holds for
	// both; callers check ErrSizeLimit first to decide skip vs. error.
	ErrSizeLimit = fmt.Errorf("%w: image exceeds provider size limit", ErrProvider)
)

// Embedder provides image embedding capabilities.
type Embedder interface {
	// Embed converts an image reference into a vector embedding.
	// The reference is either a remote URL or a local file path.
	Embed(ctx context.Context, reference string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}

// Embedded pairs a successfully processed reference with its vector.
type Embedded struct {
	Reference string
	Vector    []float32
}

// Failure records one reference that could not be embedded.
type Failure struct {
	Reference string
	Err       error
}

// BatchResult is the outcome of embedding many references: failures are
// recorded and excluded from Embeddings rather than aborting the batch.
type BatchResult struct {
	Embeddings []Embedded
	Failures   []Failure
}
