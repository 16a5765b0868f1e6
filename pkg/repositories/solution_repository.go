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

// FoundSolution is a matching candidate: the solution plus the cosine
// distance of its nearest signature to the query embedding.
type FoundSolution struct {
	models.Solution
	Distance float64
}

// SolutionRepository provides data access for solutions and their owned
// signatures, steps and checks.
type SolutionRepository interface {
	// Upsert creates or redefines a solution keyed on (title, category).
	// Signatures, steps and checks replace the previous definition; an
	// existing solution keeps its counters and application timestamps.
	Upsert(ctx context.Context, in *models.SolutionInput, signatureEmbeddings [][]float32) (*models.SolutionDetails, error)

	Get(ctx context.Context, id uuid.UUID, withDetails bool) (*models.SolutionDetails, error)

	// Find returns candidate solutions whose signatures are nearest to the
	// query embedding, under permissive scope filters: a NULL qualifier on
	// the solution passes any filter, a set qualifier must match exactly.
	// Ordering: distance ASC, success_count DESC, verified_on DESC NULLS
	// LAST. The query is stateless; scope relaxation is the caller's retry
	// policy.
	Find(ctx context.Context, embedding []float32, filters models.MatchFilters, limit int) ([]FoundSolution, error)

	// RecordApplication atomically increments the outcome counter. Success
	// stamps last_applied_at and verified_on; failure stamps only
	// last_applied_at.
	RecordApplication(ctx context.Context, id uuid.UUID, success bool) (*models.Solution, error)
}

type solutionRepository struct {
	db *database.DB
}

// NewSolutionRepository creates a new SolutionRepository.
func NewSolutionRepository(db *database.DB) SolutionRepository {
	return &solutionRepository{db: db}
}

var _ SolutionRepository = (*solutionRepository)(nil)

const solutionColumns = `id, title, description, category, component, project_scope,
	package_manager, build_tool, tags, success_count, failure_count,
	last_applied_at, verified_on, created_at, updated_at`

func (r *solutionRepository) Upsert(ctx context.Context, in *models.SolutionInput, signatureEmbeddings [][]float32) (*models.SolutionDetails, error) {
	if len(signatureEmbeddings) != len(in.Signatures) {
		return nil, fmt.Errorf("signature embedding count mismatch: %d signatures, %d embeddings",
			len(in.Signatures), len(signatureEmbeddings))
	}

	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := `
		INSERT INTO solutions (title, description, category, component, project_scope, package_manager, build_tool, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (title, category)
		DO UPDATE SET
			description = EXCLUDED.description,
			component = EXCLUDED.component,
			project_scope = EXCLUDED.project_scope,
			package_manager = EXCLUDED.package_manager,
			build_tool = EXCLUDED.build_tool,
			tags = EXCLUDED.tags,
			updated_at = NOW()
		RETURNING ` + solutionColumns

	sol, err := scanSolution(tx.QueryRow(ctx, query,
		in.Title, in.Description, in.Category, in.Component, in.ProjectScope,
		in.PackageManager, in.BuildTool, in.Tags))
	if err != nil {
		return nil, fmt.Errorf("failed to upsert solution: %w", err)
	}

	// Redefinition replaces the owned rows wholesale; counters above are
	// untouched because the solution row is updated, not replaced.
	for _, table := range []string{"solution_signatures", "solution_steps", "solution_checks"} {
		if _, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE solution_id = $1", table), sol.ID); err != nil {
			return nil, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	details := &models.SolutionDetails{Solution: *sol}
	for i, sig := range in.Signatures {
		row := tx.QueryRow(ctx, `
			INSERT INTO solution_signatures (solution_id, description, patterns, embedding)
			VALUES ($1, $2, $3, $4)
			RETURNING id`,
			sol.ID, sig.Description, sig.Patterns, pgvector.NewVector(signatureEmbeddings[i]))
		stored := models.Signature{SolutionID: sol.ID, Description: sig.Description, Patterns: sig.Patterns}
		if err := row.Scan(&stored.ID); err != nil {
			return nil, fmt.Errorf("failed to insert signature: %w", err)
		}
		details.Signatures = append(details.Signatures, stored)
	}

	for i, step := range in.Steps {
		row := tx.QueryRow(ctx, `
			INSERT INTO solution_steps (solution_id, position, kind, payload, timeout_seconds)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			sol.ID, i+1, step.Kind, step.Payload, step.TimeoutSeconds)
		stored := models.Step{SolutionID: sol.ID, Position: i + 1, Kind: step.Kind,
			Payload: step.Payload, TimeoutSeconds: step.TimeoutSeconds}
		if err := row.Scan(&stored.ID); err != nil {
			return nil, fmt.Errorf("failed to insert step: %w", err)
		}
		details.Steps = append(details.Steps, stored)
	}

	for i, check := range in.Checks {
		row := tx.QueryRow(ctx, `
			INSERT INTO solution_checks (solution_id, position, command, expect_exit, expect_output, timeout_seconds)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id`,
			sol.ID, i+1, check.Command, check.ExpectExit, check.ExpectOutput, check.TimeoutSeconds)
		stored := models.Check{SolutionID: sol.ID, Position: i + 1, Command: check.Command,
			ExpectExit: check.ExpectExit, ExpectOutput: check.ExpectOutput, TimeoutSeconds: check.TimeoutSeconds}
		if err := row.Scan(&stored.ID); err != nil {
			return nil, fmt.Errorf("failed to insert check: %w", err)
		}
		details.Checks = append(details.Checks, stored)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit solution upsert: %w", err)
	}
	return details, nil
}

func (r *solutionRepository) Get(ctx context.Context, id uuid.UUID, withDetails bool) (*models.SolutionDetails, error) {
	details := &models.SolutionDetails{}
	err := r.db.ReadOnly(ctx, func(ctx context.Context, tx pgx.Tx) error {
		sol, err := scanSolution(tx.QueryRow(ctx,
			`SELECT `+solutionColumns+` FROM solutions WHERE id = $1`, id))
		if err != nil {
			return err
		}
		details.Solution = *sol

		if !withDetails {
			return nil
		}

		rows, err := tx.Query(ctx, `
			SELECT id, solution_id, description, patterns
			FROM solution_signatures WHERE solution_id = $1 ORDER BY id`, id)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var sig models.Signature
			if err := rows.Scan(&sig.ID, &sig.SolutionID, &sig.Description, &sig.Patterns); err != nil {
				return err
			}
			details.Signatures = append(details.Signatures, sig)
		}
		if err := rows.Err(); err != nil {
			return err
		}

		stepRows, err := tx.Query(ctx, `
			SELECT id, solution_id, position, kind, payload, timeout_seconds
			FROM solution_steps WHERE solution_id = $1 ORDER BY position`, id)
		if err != nil {
			return err
		}
		defer stepRows.Close()
		for stepRows.Next() {
			var step models.Step
			if err := stepRows.Scan(&step.ID, &step.SolutionID, &step.Position, &step.Kind,
				&step.Payload, &step.TimeoutSeconds); err != nil {
				return err
			}
			details.Steps = append(details.Steps, step)
		}
		if err := stepRows.Err(); err != nil {
			return err
		}

		checkRows, err := tx.Query(ctx, `
			SELECT id, solution_id, position, command, expect_exit, expect_output, timeout_seconds
			FROM solution_checks WHERE solution_id = $1 ORDER BY position`, id)
		if err != nil {
			return err
		}
		defer checkRows.Close()
		for checkRows.Next() {
			var check models.Check
			if err := checkRows.Scan(&check.ID, &check.SolutionID, &check.Position, &check.Command,
				&check.ExpectExit, &check.ExpectOutput, &check.TimeoutSeconds); err != nil {
				return err
			}
			details.Checks = append(details.Checks, check)
		}
		return checkRows.Err()
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get solution: %w", err)
	}
	return details, nil
}

func (r *solutionRepository) Find(ctx context.Context, embedding []float32, filters models.MatchFilters, limit int) ([]FoundSolution, error) {
	query := `
		SELECT s.id, s.title, s.description, s.category, s.component, s.project_scope,
		       s.package_manager, s.build_tool, s.tags, s.success_count, s.failure_count,
		       s.last_applied_at, s.verified_on, s.created_at, s.updated_at,
		       MIN(sig.embedding <=> $1) AS distance
		FROM solution_signatures sig
		JOIN solutions s ON s.id = sig.solution_id
		WHERE TRUE`

	args := []any{pgvector.NewVector(embedding)}
	addFilter := func(column, value string) {
		if value == "" {
			return
		}
		// NULL qualifier means "applies regardless"; a set qualifier must
		// match the filter exactly.
		query += fmt.Sprintf(" AND (s.%s IS NULL OR s.%s = $%d)", column, column, len(args)+1)
		args = append(args, value)
	}
	addFilter("category", filters.Category)
	addFilter("component", filters.Component)
	addFilter("project_scope", filters.ProjectScope)
	addFilter("package_manager", filters.PackageManager)
	addFilter("build_tool", filters.BuildTool)

	query += fmt.Sprintf(`
		GROUP BY s.id
		ORDER BY distance ASC, s.success_count DESC, s.verified_on DESC NULLS LAST
		LIMIT $%d`, len(args)+1)
	args = append(args, limit)

	var found []FoundSolution
	err := r.db.ReadOnly(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var fs FoundSolution
			if err := rows.Scan(
				&fs.ID, &fs.Title, &fs.Description, &fs.Category, &fs.Component, &fs.ProjectScope,
				&fs.PackageManager, &fs.BuildTool, &fs.Tags, &fs.SuccessCount, &fs.FailureCount,
				&fs.LastAppliedAt, &fs.VerifiedOn, &fs.CreatedAt, &fs.UpdatedAt, &fs.Distance,
			); err != nil {
				return err
			}
			found = append(found, fs)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find solutions: %w", err)
	}
	return found, nil
}

func (r *solutionRepository) RecordApplication(ctx context.Context, id uuid.UUID, success bool) (*models.Solution, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	// Counter increments are SQL-side so concurrent callers never lose an
	// update. verified_on is only stamped on success; a regression leaves
	// the last verification timestamp intact.
	query := `
		UPDATE solutions SET
			success_count = success_count + CASE WHEN $2 THEN 1 ELSE 0 END,
			failure_count = failure_count + CASE WHEN $2 THEN 0 ELSE 1 END,
			last_applied_at = NOW(),
			verified_on = CASE WHEN $2 THEN NOW() ELSE verified_on END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING ` + solutionColumns

	sol, err := scanSolution(r.db.QueryRow(ctx, query, id, success))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to record application: %w", err)
	}
	return sol, nil
}

func scanSolution(row pgx.Row) (*models.Solution, error) {
	var s models.Solution
	err := row.Scan(
		&s.ID, &s.Title, &s.Description, &s.Category, &s.Component, &s.ProjectScope,
		&s.PackageManager, &s.BuildTool, &s.Tags, &s.SuccessCount, &s.FailureCount,
		&s.LastAppliedAt, &s.VerifiedOn, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
