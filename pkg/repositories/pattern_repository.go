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

// PatternSolutionRow joins a pattern-solution link with its solution. The
// learning loop computes ranking scores from these aggregates.
type PatternSolutionRow struct {
	models.Solution
	PatternTag      string
	PatternCategory string
	SuccessCount    int
	FailureCount    int
	AvgHelpfulness  float64
}

// GoldenPathRow is one (pattern, solution) pair that passed the golden-path
// evidence filter (more successes than failures, enough applications).
type GoldenPathRow struct {
	PatternTag      string
	PatternCategory string
	SolutionID      uuid.UUID
	SolutionTitle   string
	SuccessCount    int
	FailureCount    int
}

// PatternRepository provides data access for the pattern-solution learning
// loop. Patterns are derived on the fly from tag co-occurrence across
// chunks; only the pattern→solution links are persisted.
type PatternRepository interface {
	// DetectPatterns groups chunks by (category, tag), keeping groups with
	// at least minOccurrences chunks spanning at least two distinct
	// projects. Examples hold up to three most-recent chunk texts.
	DetectPatterns(ctx context.Context, minOccurrences int, category string) ([]models.Pattern, error)

	// Link upserts the pattern→solution association, incrementing the
	// matching outcome counter.
	Link(ctx context.Context, tag, category string, solutionID uuid.UUID, success bool) (*models.PatternSolution, error)

	// SolutionsForPattern returns solutions linked to the pattern with at
	// least one recorded application.
	SolutionsForPattern(ctx context.Context, tag, category string) ([]PatternSolutionRow, error)

	// GoldenPaths returns pairs with success_count > failure_count and at
	// least minApplications applications.
	GoldenPaths(ctx context.Context, minApplications int) ([]GoldenPathRow, error)

	// RefreshHelpfulness recomputes every link's average helpfulness from
	// feedback on chunks sharing the pattern's tag and category. One
	// statement; safe to run concurrently with live queries.
	RefreshHelpfulness(ctx context.Context) (int64, error)
}

type patternRepository struct {
	db *database.DB
}

// NewPatternRepository creates a new PatternRepository.
func NewPatternRepository(db *database.DB) PatternRepository {
	return &patternRepository{db: db}
}

var _ PatternRepository = (*patternRepository)(nil)

func (r *patternRepository) DetectPatterns(ctx context.Context, minOccurrences int, category string) ([]models.Pattern, error) {
	query := `
		WITH tagged AS (
			SELECT c.id, c.project_id, c.category, c.content, c.updated_at, unnest(c.tags) AS tag
			FROM chunks c
			WHERE ($2 = '' OR c.category = $2)
		)
		SELECT t.tag, t.category,
		       COUNT(*) AS occurrences,
		       COUNT(DISTINCT t.project_id) AS project_count,
		       COALESCE(AVG(CASE WHEN fb.helpful IS NULL THEN NULL WHEN fb.helpful THEN 1.0 ELSE 0.0 END), 0) AS avg_helpfulness,
		       (array_agg(t.content ORDER BY t.updated_at DESC))[1:3] AS examples
		FROM tagged t
		LEFT JOIN chunk_feedback fb ON fb.chunk_id = t.id
		GROUP BY t.tag, t.category
		HAVING COUNT(*) >= $1 AND COUNT(DISTINCT t.project_id) >= 2
		ORDER BY occurrences DESC, project_count DESC`

	var patterns []models.Pattern
	err := r.db.ReadOnly(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, minOccurrences, category)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var p models.Pattern
			if err := rows.Scan(&p.Tag, &p.Category, &p.Occurrences, &p.ProjectCount,
				&p.AvgHelpfulness, &p.Examples); err != nil {
				return err
			}
			patterns = append(patterns, p)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to detect patterns: %w", err)
	}
	return patterns, nil
}

func (r *patternRepository) Link(ctx context.Context, tag, category string, solutionID uuid.UUID, success bool) (*models.PatternSolution, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO pattern_solutions (pattern_tag, pattern_category, solution_id, success_count, failure_count)
		VALUES ($1, $2, $3, CASE WHEN $4 THEN 1 ELSE 0 END, CASE WHEN $4 THEN 0 ELSE 1 END)
		ON CONFLICT (pattern_tag, pattern_category, solution_id)
		DO UPDATE SET
			success_count = pattern_solutions.success_count + EXCLUDED.success_count,
			failure_count = pattern_solutions.failure_count + EXCLUDED.failure_count,
			updated_at = NOW()
		RETURNING pattern_tag, pattern_category, solution_id, success_count, failure_count, avg_helpfulness, updated_at`

	var ps models.PatternSolution
	err := r.db.QueryRow(ctx, query, tag, category, solutionID, success).Scan(
		&ps.PatternTag, &ps.PatternCategory, &ps.SolutionID,
		&ps.SuccessCount, &ps.FailureCount, &ps.AvgHelpfulness, &ps.UpdatedAt)
	if err != nil {
		// The only FK on pattern_solutions is solution_id: an unknown
		// solution is an explicit miss, not a store fault.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolation {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to link pattern to solution: %w", err)
	}
	return &ps, nil
}

func (r *patternRepository) SolutionsForPattern(ctx context.Context, tag, category string) ([]PatternSolutionRow, error) {
	query := `
		SELECT s.id, s.title, s.description, s.category, s.component, s.project_scope,
		       s.package_manager, s.build_tool, s.tags, s.success_count, s.failure_count,
		       s.last_applied_at, s.verified_on, s.created_at, s.updated_at,
		       ps.pattern_tag, ps.pattern_category, ps.success_count, ps.failure_count, ps.avg_helpfulness
		FROM pattern_solutions ps
		JOIN solutions s ON s.id = ps.solution_id
		WHERE ps.pattern_tag = $1
		  AND ($2 = '' OR ps.pattern_category = $2)
		  AND ps.success_count + ps.failure_count >= 1`

	var results []PatternSolutionRow
	err := r.db.ReadOnly(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, tag, category)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var row PatternSolutionRow
			if err := rows.Scan(
				&row.ID, &row.Title, &row.Description, &row.Category, &row.Component, &row.ProjectScope,
				&row.PackageManager, &row.BuildTool, &row.Tags, &row.Solution.SuccessCount, &row.Solution.FailureCount,
				&row.LastAppliedAt, &row.VerifiedOn, &row.CreatedAt, &row.UpdatedAt,
				&row.PatternTag, &row.PatternCategory, &row.SuccessCount, &row.FailureCount, &row.AvgHelpfulness,
			); err != nil {
				return err
			}
			results = append(results, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query pattern solutions: %w", err)
	}
	return results, nil
}

func (r *patternRepository) GoldenPaths(ctx context.Context, minApplications int) ([]GoldenPathRow, error) {
	query := `
		SELECT ps.pattern_tag, ps.pattern_category, ps.solution_id, s.title,
		       ps.success_count, ps.failure_count
		FROM pattern_solutions ps
		JOIN solutions s ON s.id = ps.solution_id
		WHERE ps.success_count > ps.failure_count
		  AND ps.success_count + ps.failure_count >= $1`

	var results []GoldenPathRow
	err := r.db.ReadOnly(ctx, func(ctx context.Context, tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, minApplications)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var row GoldenPathRow
			if err := rows.Scan(&row.PatternTag, &row.PatternCategory, &row.SolutionID,
				&row.SolutionTitle, &row.SuccessCount, &row.FailureCount); err != nil {
				return err
			}
			results = append(results, row)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query golden paths: %w", err)
	}
	return results, nil
}

func (r *patternRepository) RefreshHelpfulness(ctx context.Context) (int64, error) {
	ctx, cancel := r.db.WithTimeout(ctx)
	defer cancel()

	query := `
		UPDATE pattern_solutions ps
		SET avg_helpfulness = COALESCE((
			SELECT AVG(CASE WHEN fb.helpful THEN 1.0 ELSE 0.0 END)
			FROM chunk_feedback fb
			JOIN chunks c ON c.id = fb.chunk_id
			WHERE ps.pattern_tag = ANY(c.tags)
			  AND c.category = ps.pattern_category
		), 0)`

	result, err := r.db.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to refresh helpfulness: %w", err)
	}
	return result.RowsAffected(), nil
}
