package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/memloop-ai/memloop-engine/pkg/apperrors"
	"github.com/memloop-ai/memloop-engine/pkg/database"
	"github.com/memloop-ai/memloop-engine/pkg/models"
)

// CandidateQuery describes one hybrid-search candidate fetch. A nil
// ProjectID searches globally across all projects. When Text is non-empty it
// acts as a filter (rows must match the text query), not just a scorer.
type CandidateQuery struct {
	ProjectID *uuid.UUID
	Embedding []float32
	Text      string
	Limit     int
}

// ChunkRepository provides data access for chunks.
type ChunkRepository interface {
	// Upsert inserts the chunk or, when (project_id, path, content_hash)
	// already exists, refreshes its metadata without touching updated_at.
	// Returns true when a new row was inserted.
	Upsert(ctx context.Context, chunk *models.Chunk) (bool, error)

	// Candidates returns hybrid-search candidates ordered by vector
	// distance, each carrying the store-computed signals (vector score, raw
	// text rank, feedback counts). Scoring happens in the ranking engine.
	Candidates(ctx context.Context, q CandidateQuery) ([]models.ChunkCandidate, error)

	Get(ctx context.Context, id uuid.UUID) (*models.Chunk, error)
}

type chunkRepository struct {
	db *database.DB
}

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(db *database.DB) ChunkRepository {
	return &chunkRepository{db: db}
}

var _ ChunkRepository = (*chunkRepository)(nil)

func (r *chunkRepository) Upsert(ctx context.Context, chunk *models.Chunk) (bool, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	// Identical content re-ingested is a no-op on the row itself: only the
	// mutable metadata is refreshed, updated_at stays put. (xmax = 0)
	// distinguishes a fresh insert from a conflict-update.
	query := `
		INSERT INTO chunks (project_id, path, content, embedding, tags, category, component, content_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (project_id, path, content_hash)
		DO UPDATE SET
			tags = EXCLUDED.tags,
			category = EXCLUDED.category,
			component = EXCLUDED.component
		RETURNING id, created_at, updated_at, (xmax = 0) AS inserted`

	var inserted bool
	err := r.db.QueryRow(ctx, query,
		chunk.ProjectID, chunk.Path, chunk.Content, pgvector.NewVector(chunk.Embedding),
		chunk.Tags, chunk.Category, chunk.Component, chunk.ContentHash,
	).Scan(&chunk.ID, &chunk.CreatedAt, &chunk.UpdatedAt, &inserted)
	if err != nil {
		return false, fmt.Errorf("failed to upsert chunk: %w", err)
	}
	return inserted, nil
}

func (r *chunkRepository) Candidates(ctx context.Context, q CandidateQuery) ([]models.ChunkCandidate, error) {
	query := `
		SELECT c.id, c.project_id, c.path, c.content, c.tags, c.category, c.component,
		       c.content_hash, c.created_at, c.updated_at,
		       1 - (c.embedding <=> $1) AS vector_score,
		       CASE WHEN $2 = ''
		            THEN 0
		            ELSE ts_rank_cd(c.content_tsv, plainto_tsquery('simple', $2))
		       END AS text_rank,
		       COALESCE((fb.helpful)::int, 0) AS helpful_count,
		       COALESCE((NOT fb.helpful)::int, 0) AS unhelpful_count
		FROM chunks c
		LEFT JOIN chunk_feedback fb ON fb.chunk_id = c.id
		WHERE ($2 = '' OR c.content_tsv @@ plainto_tsquery('simple', $2))`

	args := []any{pgvector.NewVector(q.Embedding), q.Text}
	if q.ProjectID != nil {
		query += fmt.Sprintf(" AND c.project_id = $%d", len(args)+1)
		args = append(args, *q.ProjectID)
	}
	query += fmt.Sprintf(" ORDER BY c.embedding <=> $1 LIMIT $%d", len(args)+1)
	args = append(args, q.Limit)

	var candidates []models.ChunkCandidate
	err := r.db.ReadOnly(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var c models.ChunkCandidate
			if err := rows.Scan(
				&c.ID, &c.ProjectID, &c.Path, &c.Content, &c.Tags, &c.Category, &c.Component,
				&c.ContentHash, &c.CreatedAt, &c.UpdatedAt,
				&c.VectorScore, &c.TextRank, &c.HelpfulCount, &c.UnhelpfulCount,
			); err != nil {
				return err
			}
			candidates = append(candidates, c)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query chunk candidates: %w", err)
	}
	return candidates, nil
}

func (r *chunkRepository) Get(ctx context.Context, id uuid.UUID) (*models.Chunk, error) {
	var c models.Chunk
	err := r.db.ReadOnly(ctx, func(ctx context.Context, tx pgx.Tx) error {
		query := `
			SELECT id, project_id, path, content, tags, category, component,
			       content_hash, created_at, updated_at
			FROM chunks WHERE id = $1`
		return tx.QueryRow(ctx, query, id).Scan(
			&c.ID, &c.ProjectID, &c.Path, &c.Content, &c.Tags, &c.Category, &c.Component,
			&c.ContentHash, &c.CreatedAt, &c.UpdatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chunk: %w", err)
	}
	return &c, nil
}
