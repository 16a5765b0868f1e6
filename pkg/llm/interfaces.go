package llm

import "context"

// Embedder produces a fixed-dimension vector for arbitrary text. This is
// the external collaborator boundary: embedding failures propagate to the
// caller as upstream errors, never as empty results.
type Embedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the vector size this embedder produces.
	Dimensions() int
}
