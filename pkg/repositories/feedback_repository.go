package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/memloop-ai/memloop-engine/pkg/apperrors"
	"github.com/memloop-ai/memloop-engine/pkg/database"
	"github.com/memloop-ai/memloop-engine/pkg/models"
)

// pgForeignKeyViolation is the SQLSTATE class for FK violations; the only
// way feedback hits it is an unknown chunk id.
const pgForeignKeyViolation = "23503"

// FeedbackRepository provides data access for the feedback ledger.
type FeedbackRepository interface {
	// Upsert records a judgment; a second call for the same chunk
	// overwrites the previous one rather than appending.
	Upsert(ctx context.Context, fb *models.Feedback) error

	Stats(ctx context.Context, chunkID uuid.UUID) (*models.FeedbackStats, error)

	// TopHelpful returns (project, path) groups with at least two judged
	// chunks, ordered by helpful ratio then judgment count.
	TopHelpful(ctx context.Context, limit int) ([]models.HelpfulPath, error)
}

type feedbackRepository struct {
	db *database.DB
}

// NewFeedbackRepository creates a new FeedbackRepository.
func NewFeedbackRepository(db *database.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

var _ FeedbackRepository = (*feedbackRepository)(nil)

func (r *feedbackRepository) Upsert(ctx context.Context, fb *models.Feedback) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO chunk_feedback (chunk_id, helpful, context, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (chunk_id)
		DO UPDATE SET
			helpful = EXCLUDED.helpful,
			context = EXCLUDED.context,
			created_at = EXCLUDED.created_at
		RETURNING created_at`

	err := r.db.QueryRow(ctx, query, fb.ChunkID, fb.Helpful, fb.Context).Scan(&fb.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return apperrors.ErrNotFound
		}
		return fmt.Errorf("failed to upsert feedback: %w", err)
	}
	return nil
}

func (r *feedbackRepository) Stats(ctx context.Context, chunkID uuid.UUID) (*models.FeedbackStats, error) {
	stats := &models.FeedbackStats{ChunkID: chunkID}
	err := r.db.ReadOnly(ctx, func(ctx context.Context, tx pgx.Tx) error {
		var helpful bool
		err := tx.QueryRow(ctx, `SELECT helpful FROM chunk_feedback WHERE chunk_id = $1`, chunkID).Scan(&helpful)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil // no feedback recorded: all counts zero
		}
		if err != nil {
			return err
		}
		if helpful {
			stats.HelpfulCount = 1
			stats.HelpfulRatio = 1
		} else {
			stats.UnhelpfulCount = 1
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get feedback stats: %w", err)
	}
	return stats, nil
}

func (r *feedbackRepository) TopHelpful(ctx context.Context, limit int) ([]models.HelpfulPath, error) {
	// Each chunk carries at most one judgment, so the ≥2 noise threshold is
	// applied per (project, path) group of judged chunks.
	query := `
		SELECT c.project_id, c.path,
		       SUM((fb.helpful)::int) AS helpful_count,
		       SUM((NOT fb.helpful)::int) AS unhelpful_count,
		       AVG((fb.helpful)::int)::float8 AS helpful_ratio,
		       (array_agg(c.id ORDER BY c.updated_at DESC))[1] AS latest_chunk_id
		FROM chunk_feedback fb
		JOIN chunks c ON c.id = fb.chunk_id
		GROUP BY c.project_id, c.path
		HAVING COUNT(*) >= 2
		ORDER BY helpful_ratio DESC, COUNT(*) DESC
		LIMIT $1`

	var results []models.HelpfulPath
	err := r.db.ReadOnly(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var hp models.HelpfulPath
			if err := rows.Scan(&hp.ProjectID, &hp.Path, &hp.HelpfulCount, &hp.UnhelpfulCount,
				&hp.HelpfulRatio, &hp.LatestChunkID); err != nil {
				return err
			}
			results = append(results, hp)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query top helpful: %w", err)
	}
	return results, nil
}
