package models

import (
	"time"

	"github.com/google/uuid"
)

// Chunk is a unit of retrievable text with its embedding and metadata.
// (project_id, path, content_hash) is unique: re-ingesting identical content
// is a no-op, not a duplicate.
type Chunk struct {
	ID          uuid.UUID `json:"id"`
	ProjectID   uuid.UUID `json:"project_id"`
	Path        string    `json:"path"`
	Content     string    `json:"content"`
	Embedding   []float32 `json:"-"`
	Tags        []string  `json:"tags"`
	Category    string    `json:"category,omitempty"`
	Component   string    `json:"component,omitempty"`
	ContentHash string    `json:"content_hash"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ScoredChunk is a chunk annotated with its individual ranking signals and
// the combined hybrid score.
type ScoredChunk struct {
	Chunk
	VectorScore   float64 `json:"vector_score"`
	TextScore     float64 `json:"text_score"`
	TimeScore     float64 `json:"time_score"`
	FeedbackScore float64 `json:"feedback_score"`
	Score         float64 `json:"score"`
}

// RankWeights are the combination weights for hybrid search. The three base
// weights apply to vector, text and recency signals. FeedbackBonus is
// additive on top of the base-weighted sum, so a combined score can exceed
// 1.0 — this is intentional ranking-boost behavior, not a probability.
type RankWeights struct {
	Vector        float64 `json:"vector"`
	Text          float64 `json:"text"`
	Recency       float64 `json:"recency"`
	FeedbackBonus float64 `json:"feedback_bonus"`
}

// DefaultRankWeights returns the standard hybrid search weights.
func DefaultRankWeights() RankWeights {
	return RankWeights{
		Vector:        0.6,
		Text:          0.3,
		Recency:       0.1,
		FeedbackBonus: 0.15,
	}
}

// ChunkCandidate is a raw hybrid-search candidate as returned by the store:
// the chunk plus its store-computed signals. The combined score is computed
// in the ranking engine, not in SQL.
type ChunkCandidate struct {
	Chunk
	VectorScore    float64
	TextRank       float64
	HelpfulCount   int
	UnhelpfulCount int
}
