package services

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/memloop-ai/memloop-engine/pkg/apperrors"
	"github.com/memloop-ai/memloop-engine/pkg/models"
	"github.com/memloop-ai/memloop-engine/pkg/repositories"
)

// PatternService is the learning loop: it discovers recurring (category,
// tag) patterns across projects, accumulates evidence linking them to
// solutions, and surfaces the pairings that generalize.
type PatternService interface {
	// DetectPatterns derives patterns from tag co-occurrence: groups of
	// at least minOccurrences chunks sharing a (category, tag), spanning
	// at least two distinct projects.
	DetectPatterns(ctx context.Context, minOccurrences int, category string) ([]models.Pattern, error)

	// Link records an application outcome for a pattern→solution pairing,
	// accumulating evidence distinct from the solution's global counters.
	Link(ctx context.Context, tag, category string, solutionID uuid.UUID, success bool) (*models.PatternSolution, error)

	// RankSolutionsForPattern ranks solutions linked to a pattern by their
	// per-pattern track record. Only solutions with at least one recorded
	// application appear.
	RankSolutionsForPattern(ctx context.Context, tag, category string, limit int) ([]models.RankedSolution, error)

	// GoldenPaths surfaces the globally best pattern→solution pairs:
	// more successes than failures and enough applications to trust.
	GoldenPaths(ctx context.Context, minApplications, limit int) ([]models.GoldenPath, error)

	// RefreshHelpfulness recomputes each link's average helpfulness from
	// chunk feedback. Runs on the background ticker; also callable
	// on demand.
	RefreshHelpfulness(ctx context.Context) (int64, error)
}

type patternService struct {
	repo           repositories.PatternRepository
	minOccurrences int
	logger         *zap.Logger
}

// NewPatternService creates a new pattern service. minOccurrences is the
// default detection threshold for calls that don't specify one; values
// below 1 fall back to 3.
func NewPatternService(repo repositories.PatternRepository, minOccurrences int, logger *zap.Logger) PatternService {
	if minOccurrences < 1 {
		minOccurrences = 3
	}
	return &patternService{
		repo:           repo,
		minOccurrences: minOccurrences,
		logger:         logger.Named("pattern"),
	}
}

var _ PatternService = (*patternService)(nil)

func (s *patternService) DetectPatterns(ctx context.Context, minOccurrences int, category string) ([]models.Pattern, error) {
	if minOccurrences < 1 {
		minOccurrences = s.minOccurrences
	}
	patterns, err := s.repo.DetectPatterns(ctx, minOccurrences, category)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Pattern detection completed",
		zap.Int("min_occurrences", minOccurrences),
		zap.String("category", category),
		zap.Int("patterns", len(patterns)))

	return patterns, nil
}

func (s *patternService) Link(ctx context.Context, tag, category string, solutionID uuid.UUID, success bool) (*models.PatternSolution, error) {
	if tag == "" {
		return nil, apperrors.NewValidation("pattern_tag", "pattern tag is required")
	}
	if category == "" {
		return nil, apperrors.NewValidation("pattern_category", "pattern category is required")
	}

	ps, err := s.repo.Link(ctx, tag, category, solutionID, success)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Pattern linked to solution",
		zap.String("tag", tag),
		zap.String("category", category),
		zap.String("solution_id", solutionID.String()),
		zap.Bool("success", success))

	return ps, nil
}

func (s *patternService) RankSolutionsForPattern(ctx context.Context, tag, category string, limit int) ([]models.RankedSolution, error) {
	if tag == "" {
		return nil, apperrors.NewValidation("pattern_tag", "pattern tag is required")
	}
	if limit <= 0 {
		limit = 5
	}

	rows, err := s.repo.SolutionsForPattern(ctx, tag, category)
	if err != nil {
		return nil, err
	}

	ranked := make([]models.RankedSolution, 0, len(rows))
	for _, row := range rows {
		applications := row.SuccessCount + row.FailureCount
		successRate := float64(row.SuccessCount) / float64(applications)
		ranked = append(ranked, models.RankedSolution{
			Solution:        row.Solution,
			PatternTag:      row.PatternTag,
			PatternCategory: row.PatternCategory,
			SuccessRate:     successRate,
			Applications:    applications,
			AvgHelpfulness:  row.AvgHelpfulness,
			Score:           patternSolutionScore(successRate, applications, row.AvgHelpfulness),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (s *patternService) GoldenPaths(ctx context.Context, minApplications, limit int) ([]models.GoldenPath, error) {
	if minApplications < 1 {
		minApplications = 3
	}
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.repo.GoldenPaths(ctx, minApplications)
	if err != nil {
		return nil, err
	}

	paths := make([]models.GoldenPath, 0, len(rows))
	for _, row := range rows {
		applications := row.SuccessCount + row.FailureCount
		successRate := float64(row.SuccessCount) / float64(applications)
		paths = append(paths, models.GoldenPath{
			PatternTag:      row.PatternTag,
			PatternCategory: row.PatternCategory,
			SolutionID:      row.SolutionID,
			SolutionTitle:   row.SolutionTitle,
			SuccessRate:     successRate,
			Applications:    applications,
			Score:           goldenPathScore(successRate, applications),
		})
	}
	sort.SliceStable(paths, func(i, j int) bool {
		return paths[i].Score > paths[j].Score
	})
	if len(paths) > limit {
		paths = paths[:limit]
	}
	return paths, nil
}

func (s *patternService) RefreshHelpfulness(ctx context.Context) (int64, error) {
	updated, err := s.repo.RefreshHelpfulness(ctx)
	if err != nil {
		s.logger.Error("Helpfulness refresh failed", zap.Error(err))
		return 0, err
	}
	s.logger.Debug("Helpfulness refreshed", zap.Int64("links_updated", updated))
	return updated, nil
}
