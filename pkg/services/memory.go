package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/memloop-ai/memloop-engine/pkg/apperrors"
	"github.com/memloop-ai/memloop-engine/pkg/llm"
	"github.com/memloop-ai/memloop-engine/pkg/models"
	"github.com/memloop-ai/memloop-engine/pkg/repositories"
)

// minCandidates is the floor on oversampled candidate fetches. The store
// orders candidates by vector distance only; the combined score can promote
// rows from deeper in that ordering, so we always rank a wider pool than
// the caller asked for.
const minCandidates = 50

// IngestInput is one chunk to store. ProjectRoot identifies the tenant and
// creates the project on first reference.
type IngestInput struct {
	ProjectRoot  string
	ProjectLabel string
	Path         string
	Content      string
	Tags         []string
	Category     string
	Component    string
}

// Validate checks required fields before any embedding or store access.
func (in *IngestInput) Validate() error {
	if in.ProjectRoot == "" {
		return apperrors.NewValidation("project", "project root is required")
	}
	if in.Path == "" {
		return apperrors.NewValidation("path", "path is required")
	}
	if in.Content == "" {
		return apperrors.NewValidation("content", "content is required")
	}
	return nil
}

// SearchInput is one hybrid search. Global searches across all projects;
// otherwise ProjectRoot scopes results to one tenant. Weights override the
// defaults when non-nil. IncludeFeedback toggles the additive feedback
// bonus.
type SearchInput struct {
	ProjectRoot     string
	Global          bool
	Query           string
	Limit           int
	Weights         *models.RankWeights
	IncludeFeedback bool
}

// MemoryService is the ingestion and hybrid retrieval surface for chunks.
type MemoryService interface {
	// Ingest embeds and stores one chunk, creating the project on first
	// reference. Re-ingesting identical (project, path, content) is a
	// no-op; the returned bool reports whether a new chunk was created.
	Ingest(ctx context.Context, in *IngestInput) (*models.Chunk, bool, error)

	// Search runs the hybrid ranking engine: embed the query, fetch an
	// oversampled candidate set, combine the four signals per candidate
	// and return the top K by combined score.
	Search(ctx context.Context, in *SearchInput) ([]models.ScoredChunk, error)

	// DeleteProject removes a project and, by cascade, its chunks and
	// their feedback.
	DeleteProject(ctx context.Context, root string) error
}

type memoryService struct {
	chunks   repositories.ChunkRepository
	projects repositories.ProjectRepository
	embedder llm.Embedder
	defaults models.RankWeights
	logger   *zap.Logger
}

// NewMemoryService creates a new memory service. The defaults are the
// server-side ranking weights applied to searches without per-call
// overrides; a zero value falls back to the standard weights.
func NewMemoryService(
	chunks repositories.ChunkRepository,
	projects repositories.ProjectRepository,
	embedder llm.Embedder,
	defaults models.RankWeights,
	logger *zap.Logger,
) MemoryService {
	if defaults == (models.RankWeights{}) {
		defaults = models.DefaultRankWeights()
	}
	return &memoryService{
		chunks:   chunks,
		projects: projects,
		embedder: embedder,
		defaults: defaults,
		logger:   logger.Named("memory"),
	}
}

var _ MemoryService = (*memoryService)(nil)

func (s *memoryService) Ingest(ctx context.Context, in *IngestInput) (*models.Chunk, bool, error) {
	if err := in.Validate(); err != nil {
		return nil, false, err
	}

	embedding, err := s.embedder.EmbedText(ctx, in.Content)
	if err != nil {
		s.logger.Error("Failed to embed chunk content",
			zap.String("project_root", in.ProjectRoot),
			zap.String("path", in.Path),
			zap.Error(err))
		return nil, false, err
	}

	project, err := s.projects.UpsertByRoot(ctx, in.ProjectRoot, in.ProjectLabel)
	if err != nil {
		return nil, false, err
	}

	chunk := &models.Chunk{
		ProjectID:   project.ID,
		Path:        in.Path,
		Content:     in.Content,
		Embedding:   embedding,
		Tags:        in.Tags,
		Category:    in.Category,
		Component:   in.Component,
		ContentHash: contentHash(in.Content),
	}

	inserted, err := s.chunks.Upsert(ctx, chunk)
	if err != nil {
		s.logger.Error("Failed to upsert chunk",
			zap.String("project_id", project.ID.String()),
			zap.String("path", in.Path),
			zap.Error(err))
		return nil, false, err
	}

	s.logger.Info("Chunk ingested",
		zap.String("project_id", project.ID.String()),
		zap.String("path", in.Path),
		zap.Bool("inserted", inserted))

	return chunk, inserted, nil
}

func (s *memoryService) Search(ctx context.Context, in *SearchInput) ([]models.ScoredChunk, error) {
	if in.Query == "" {
		return nil, apperrors.NewValidation("query", "query is required")
	}
	if !in.Global && in.ProjectRoot == "" {
		return nil, apperrors.NewValidation("project", "project root is required unless searching globally")
	}
	limit := in.Limit
	if limit <= 0 {
		limit = 10
	}

	weights := s.defaults
	if in.Weights != nil {
		weights = *in.Weights
	}
	if !in.IncludeFeedback {
		weights.FeedbackBonus = 0
	}

	embedding, err := s.embedder.EmbedText(ctx, in.Query)
	if err != nil {
		s.logger.Error("Failed to embed search query", zap.Error(err))
		return nil, err
	}

	query := repositories.CandidateQuery{
		Embedding: embedding,
		Text:      in.Query,
		Limit:     candidateLimit(limit),
	}
	if !in.Global {
		project, err := s.projects.GetByRoot(ctx, in.ProjectRoot)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				// An unreferenced project has no chunks; not an error.
				return []models.ScoredChunk{}, nil
			}
			return nil, err
		}
		query.ProjectID = &project.ID
	}

	candidates, err := s.chunks.Candidates(ctx, query)
	if err != nil {
		return nil, err
	}

	scored := rankCandidates(candidates, weights, time.Now())
	if len(scored) > limit {
		scored = scored[:limit]
	}

	s.logger.Debug("Hybrid search completed",
		zap.String("project_root", in.ProjectRoot),
		zap.Bool("global", in.Global),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(scored)))

	return scored, nil
}

func (s *memoryService) DeleteProject(ctx context.Context, root string) error {
	if root == "" {
		return apperrors.NewValidation("project", "project root is required")
	}
	project, err := s.projects.GetByRoot(ctx, root)
	if err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, project.ID); err != nil {
		return err
	}
	s.logger.Info("Project deleted", zap.String("root", root))
	return nil
}

// rankCandidates turns store candidates into scored results ordered by
// descending combined score. Floating scores are effectively unique, so no
// further tie-break is applied.
func rankCandidates(candidates []models.ChunkCandidate, weights models.RankWeights, now time.Time) []models.ScoredChunk {
	scored := make([]models.ScoredChunk, 0, len(candidates))
	for _, c := range candidates {
		sc := models.ScoredChunk{
			Chunk:         c.Chunk,
			VectorScore:   c.VectorScore,
			TextScore:     normalizeTextRank(c.TextRank),
			TimeScore:     timeScore(c.UpdatedAt, now),
			FeedbackScore: feedbackRatio(c.HelpfulCount, c.UnhelpfulCount),
		}
		sc.Score = hybridScore(sc.VectorScore, sc.TextScore, sc.TimeScore, sc.FeedbackScore, weights)
		scored = append(scored, sc)
	}
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	return scored
}

func candidateLimit(limit int) int {
	n := limit * 4
	if n < minCandidates {
		n = minCandidates
	}
	return n
}

func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}
