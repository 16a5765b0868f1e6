package models

import (
	"time"

	"github.com/google/uuid"
)

// Feedback is a single helpful/unhelpful judgment on a chunk. At most one
// row exists per chunk — a later judgment overwrites the earlier one rather
// than accumulating history.
type Feedback struct {
	ChunkID   uuid.UUID `json:"chunk_id"`
	Helpful   bool      `json:"helpful"`
	Context   string    `json:"context,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FeedbackStats are the aggregated feedback counts for a chunk.
type FeedbackStats struct {
	ChunkID        uuid.UUID `json:"chunk_id"`
	HelpfulCount   int       `json:"helpful_count"`
	UnhelpfulCount int       `json:"unhelpful_count"`
	HelpfulRatio   float64   `json:"helpful_ratio"`
}

// HelpfulPath is a (project, path) group of judged chunks, surfaced by the
// top-helpful query. Grouping by path rather than by chunk is what makes the
// ≥2-judgment noise threshold meaningful, since each chunk carries at most
// one judgment.
type HelpfulPath struct {
	ProjectID      uuid.UUID `json:"project_id"`
	Path           string    `json:"path"`
	HelpfulCount   int       `json:"helpful_count"`
	UnhelpfulCount int       `json:"unhelpful_count"`
	HelpfulRatio   float64   `json:"helpful_ratio"`
	LatestChunkID  uuid.UUID `json:"latest_chunk_id"`
}
