package testutils

import (
	"context"
	"fmt"

	"github.com/canvaslab/atlas/pkg/embeddings"
)

// MockEmbedder is a test embedder that returns predictable vectors per
// reference.
type MockEmbedder struct {
	Embeddings map[string][]float32

	// Default is returned for references not in Embeddings.
	Default []float32

	// FailOn causes Embed to return a provider error for matching references.
	FailOn map[string]bool

	// SizeLimitOn causes Embed to return a size-limit error for matching
	// references.
	SizeLimitOn map[string]bool

	// Calls records every reference in call order.
	Calls []string
}

func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{
		Embeddings:  make(map[string][]float32),
		Default:     []float32{0.1, 0.2, 0.3, 0.4},
		FailOn:      make(map[string]bool),
		SizeLimitOn: make(map[string]bool),
	}
}

func (m *MockEmbedder) Embed(_ context.Context, reference string) ([]float32, error) {
	m.Calls = append(m.Calls, reference)

	if m.SizeLimitOn[reference] {
		return nil, fmt.Errorf("%w: %s", embeddings.ErrSizeLimit, reference)
	}
	if m.FailOn[reference] {
		return nil, fmt.Errorf("%w: mock failure for %s", embeddings.ErrProvider, reference)
	}

	if emb, ok := m.Embeddings[reference]; ok {
		return emb, nil
	}
	return m.Default, nil
}

func (m *MockEmbedder) Close() error {
	return nil
}

// Ensure MockEmbedder implements embeddings.Embedder.
var _ embeddings.Embedder = (*MockEmbedder)(nil)
