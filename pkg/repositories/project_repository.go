// Package repositories provides data access over PostgreSQL. Every write is
// a single conflict-tolerant statement so concurrent callers never lose an
// update or create duplicate rows; every ranking read runs in a read-only
// transaction.
package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/memloop-ai/memloop-engine/pkg/apperrors"
	"github.com/memloop-ai/memloop-engine/pkg/database"
	"github.com/memloop-ai/memloop-engine/pkg/models"
)

// ProjectRepository provides data access for projects (tenant boundaries).
type ProjectRepository interface {
	// UpsertByRoot returns the project for the given root identifier,
	// creating it on first reference.
	UpsertByRoot(ctx context.Context, root, label string) (*models.Project, error)
	GetByRoot(ctx context.Context, root string) (*models.Project, error)
	// Delete removes a project; chunks and feedback cascade.
	Delete(ctx context.Context, id uuid.UUID) error
}

type projectRepository struct {
	db *database.DB
}

// NewProjectRepository creates a new ProjectRepository.
func NewProjectRepository(db *database.DB) ProjectRepository {
	return &projectRepository{db: db}
}

var _ ProjectRepository = (*projectRepository)(nil)

func (r *projectRepository) UpsertByRoot(ctx context.Context, root, label string) (*models.Project, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO projects (root, label)
		VALUES ($1, $2)
		ON CONFLICT (root)
		DO UPDATE SET label = CASE WHEN EXCLUDED.label = '' THEN projects.label ELSE EXCLUDED.label END
		RETURNING id, root, label, created_at`

	var p models.Project
	err := r.db.QueryRow(ctx, query, root, label).Scan(&p.ID, &p.Root, &p.Label, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert project: %w", err)
	}
	return &p, nil
}

func (r *projectRepository) GetByRoot(ctx context.Context, root string) (*models.Project, error) {
	var p models.Project
	err := r.db.ReadOnly(ctx, func(ctx context.Context, tx pgx.Tx) error {
		query := `SELECT id, root, label, created_at FROM projects WHERE root = $1`
		return tx.QueryRow(ctx, query, root).Scan(&p.ID, &p.Root, &p.Label, &p.CreatedAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return &p, nil
}

func (r *projectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	result, err := r.db.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	if result.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
