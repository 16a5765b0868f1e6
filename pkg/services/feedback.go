package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/memloop-ai/memloop-engine/pkg/models"
	"github.com/memloop-ai/memloop-engine/pkg/repositories"
)

// FeedbackService is the judgment ledger: one helpful/unhelpful verdict per
// chunk, consumed by the ranking engine and the learning loop.
type FeedbackService interface {
	// Record stores a judgment for a chunk. A second call for the same
	// chunk overwrites the previous judgment and timestamp.
	Record(ctx context.Context, chunkID uuid.UUID, helpful bool, context string) (*models.Feedback, error)

	// Stats returns aggregated counts for one chunk; zero counts when the
	// chunk has never been judged.
	Stats(ctx context.Context, chunkID uuid.UUID) (*models.FeedbackStats, error)

	// TopHelpful returns the best-judged (project, path) groups, requiring
	// at least two judged chunks per group to keep single votes from
	// dominating.
	TopHelpful(ctx context.Context, limit int) ([]models.HelpfulPath, error)
}

type feedbackService struct {
	repo   repositories.FeedbackRepository
	logger *zap.Logger
}

// NewFeedbackService creates a new feedback service.
func NewFeedbackService(repo repositories.FeedbackRepository, logger *zap.Logger) FeedbackService {
	return &feedbackService{
		repo:   repo,
		logger: logger.Named("feedback"),
	}
}

var _ FeedbackService = (*feedbackService)(nil)

func (s *feedbackService) Record(ctx context.Context, chunkID uuid.UUID, helpful bool, contextInfo string) (*models.Feedback, error) {
	fb := &models.Feedback{
		ChunkID: chunkID,
		Helpful: helpful,
		Context: contextInfo,
	}

	if err := s.repo.Upsert(ctx, fb); err != nil {
		s.logger.Error("Failed to record feedback",
			zap.String("chunk_id", chunkID.String()),
			zap.Error(err))
		return nil, err
	}

	s.logger.Info("Feedback recorded",
		zap.String("chunk_id", chunkID.String()),
		zap.Bool("helpful", helpful))

	return fb, nil
}

func (s *feedbackService) Stats(ctx context.Context, chunkID uuid.UUID) (*models.FeedbackStats, error) {
	return s.repo.Stats(ctx, chunkID)
}

func (s *feedbackService) TopHelpful(ctx context.Context, limit int) ([]models.HelpfulPath, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.TopHelpful(ctx, limit)
}
