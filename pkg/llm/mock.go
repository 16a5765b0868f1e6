package llm

import (
	"context"
	"hash/fnv"
	"math"
)

// MockEmbedder is a deterministic Embedder for tests and local development
// without an embedding endpoint. Identical inputs produce identical vectors.
type MockEmbedder struct {
	Dims int
	Err  error
}

var _ Embedder = (*MockEmbedder)(nil)

// NewMockEmbedder creates a mock embedder producing vectors of the given size.
func NewMockEmbedder(dims int) *MockEmbedder {
	return &MockEmbedder{Dims: dims}
}

// EmbedText derives a unit vector from a hash of the input text.
func (m *MockEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	if m.Err != nil {
		return nil, m.Err
	}

	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	seed := h.Sum64()

	vec := make([]float32, m.Dims)
	var norm float64
	for i := range vec {
		// xorshift64 keeps the sequence cheap and reproducible.
		seed ^= seed << 13
		seed ^= seed >> 7
		seed ^= seed << 17
		v := float64(int64(seed%2000)-1000) / 1000.0
		vec[i] = float32(v)
		norm += v * v
	}

	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec, nil
}

// Dimensions returns the configured vector size.
func (m *MockEmbedder) Dimensions() int {
	return m.Dims
}
