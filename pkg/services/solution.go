package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/memloop-ai/memloop-engine/pkg/apperrors"
	"github.com/memloop-ai/memloop-engine/pkg/llm"
	"github.com/memloop-ai/memloop-engine/pkg/models"
	"github.com/memloop-ai/memloop-engine/pkg/repositories"
)

// minMatchResults is the satisfaction threshold for staged scope
// relaxation: while a match returns fewer results and droppable filters
// remain, the next filter in relaxationOrder is cleared and the query
// retried.
const minMatchResults = 3

// relaxationOrder lists the filters dropped between retries, most specific
// first. Category and component are never relaxed; they describe what the
// problem is, not where it occurred.
var relaxationOrder = []func(*models.MatchFilters){
	func(f *models.MatchFilters) { f.PackageManager = "" },
	func(f *models.MatchFilters) { f.BuildTool = "" },
	func(f *models.MatchFilters) { f.ProjectScope = "" },
}

// SolutionService is the fixpack surface: signature-based matching with
// staged scope relaxation, previews, outcome recording and definitions.
type SolutionService interface {
	// Match embeds the error text and returns ranked solutions whose
	// signatures are nearest to it, relaxing scope filters in a fixed
	// order while fewer than three results come back. Read-only; an empty
	// result is a valid outcome, not an error.
	Match(ctx context.Context, errorText string, filters models.MatchFilters, limit int) ([]models.ScoredSolution, error)

	// Preview returns a solution with its ordered steps and checks for
	// caller inspection. Pure read, no state transition.
	Preview(ctx context.Context, id uuid.UUID) (*models.SolutionDetails, error)

	// Apply records the outcome of a caller-executed application:
	// success increments success_count and stamps verified_on, failure
	// increments failure_count and leaves verified_on untouched.
	Apply(ctx context.Context, id uuid.UUID, success bool) (*models.Solution, error)

	// Upsert creates or redefines a solution keyed on (title, category),
	// embedding each signature. Counters on an existing solution survive
	// redefinition.
	Upsert(ctx context.Context, in *models.SolutionInput) (*models.SolutionDetails, error)
}

type solutionService struct {
	repo     repositories.SolutionRepository
	embedder llm.Embedder
	logger   *zap.Logger
}

// NewSolutionService creates a new solution service.
func NewSolutionService(repo repositories.SolutionRepository, embedder llm.Embedder, logger *zap.Logger) SolutionService {
	return &solutionService{
		repo:     repo,
		embedder: embedder,
		logger:   logger.Named("solution"),
	}
}

var _ SolutionService = (*solutionService)(nil)

func (s *solutionService) Match(ctx context.Context, errorText string, filters models.MatchFilters, limit int) ([]models.ScoredSolution, error) {
	if errorText == "" {
		return nil, apperrors.NewValidation("error_text", "error text is required")
	}
	if limit <= 0 {
		limit = 5
	}

	embedding, err := s.embedder.EmbedText(ctx, errorText)
	if err != nil {
		s.logger.Error("Failed to embed error text", zap.Error(err))
		return nil, err
	}

	// Dropping a filter can only widen the candidate set, so each retry
	// replaces the previous result wholesale.
	found, err := s.repo.Find(ctx, embedding, filters, limit)
	if err != nil {
		return nil, err
	}
	relaxed := 0
	for _, drop := range relaxationOrder {
		if len(found) >= minMatchResults {
			break
		}
		before := filters
		drop(&filters)
		if filters == before {
			continue
		}
		relaxed++
		found, err = s.repo.Find(ctx, embedding, filters, limit)
		if err != nil {
			return nil, err
		}
	}

	results := make([]models.ScoredSolution, 0, len(found))
	for _, f := range found {
		results = append(results, models.ScoredSolution{
			Solution:    f.Solution,
			Confidence:  1 - f.Distance,
			SuccessRate: f.Solution.SuccessRate(),
		})
	}

	s.logger.Debug("Solution match completed",
		zap.Int("results", len(results)),
		zap.Int("filters_relaxed", relaxed))

	return results, nil
}

func (s *solutionService) Preview(ctx context.Context, id uuid.UUID) (*models.SolutionDetails, error) {
	return s.repo.Get(ctx, id, true)
}

func (s *solutionService) Apply(ctx context.Context, id uuid.UUID, success bool) (*models.Solution, error) {
	sol, err := s.repo.RecordApplication(ctx, id, success)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Solution application recorded",
		zap.String("solution_id", id.String()),
		zap.Bool("success", success),
		zap.Int("success_count", sol.SuccessCount),
		zap.Int("failure_count", sol.FailureCount))

	return sol, nil
}

func (s *solutionService) Upsert(ctx context.Context, in *models.SolutionInput) (*models.SolutionDetails, error) {
	if err := in.Validate(); err != nil {
		return nil, apperrors.NewValidation("solution", err.Error())
	}

	embeddings := make([][]float32, len(in.Signatures))
	for i, sig := range in.Signatures {
		embedding, err := s.embedder.EmbedText(ctx, sig.Description)
		if err != nil {
			s.logger.Error("Failed to embed signature",
				zap.String("title", in.Title),
				zap.Int("signature", i),
				zap.Error(err))
			return nil, err
		}
		embeddings[i] = embedding
	}

	details, err := s.repo.Upsert(ctx, in, embeddings)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Solution upserted",
		zap.String("solution_id", details.ID.String()),
		zap.String("title", details.Title),
		zap.String("category", details.Category),
		zap.Int("signatures", len(details.Signatures)),
		zap.Int("steps", len(details.Steps)))

	return details, nil
}
