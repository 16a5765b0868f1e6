package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/memloop-ai/memloop-engine/pkg/apperrors"
	"github.com/memloop-ai/memloop-engine/pkg/models"
	"github.com/memloop-ai/memloop-engine/pkg/repositories"
)

// mockChunkRepository implements repositories.ChunkRepository for testing.
type mockChunkRepository struct {
	candidates []models.ChunkCandidate
	upserted   []*models.Chunk
	lastQuery  repositories.CandidateQuery
	err        error
}

func (m *mockChunkRepository) Upsert(ctx context.Context, chunk *models.Chunk) (bool, error) {
	if m.err != nil {
		return false, m.err
	}
	chunk.ID = uuid.New()
	m.upserted = append(m.upserted, chunk)
	return true, nil
}

func (m *mockChunkRepository) Candidates(ctx context.Context, q repositories.CandidateQuery) ([]models.ChunkCandidate, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.lastQuery = q
	return m.candidates, nil
}

func (m *mockChunkRepository) Get(ctx context.Context, id uuid.UUID) (*models.Chunk, error) {
	return nil, apperrors.ErrNotFound
}

// mockProjectRepository implements repositories.ProjectRepository for testing.
type mockProjectRepository struct {
	projects map[string]*models.Project
	err      error
}

func newMockProjectRepository() *mockProjectRepository {
	return &mockProjectRepository{projects: make(map[string]*models.Project)}
}

func (m *mockProjectRepository) UpsertByRoot(ctx context.Context, root, label string) (*models.Project, error) {
	if m.err != nil {
		return nil, m.err
	}
	if p, ok := m.projects[root]; ok {
		return p, nil
	}
	p := &models.Project{ID: uuid.New(), Root: root, Label: label}
	m.projects[root] = p
	return p, nil
}

func (m *mockProjectRepository) GetByRoot(ctx context.Context, root string) (*models.Project, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.projects[root]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return p, nil
}

func (m *mockProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	for root, p := range m.projects {
		if p.ID == id {
			delete(m.projects, root)
			return nil
		}
	}
	return apperrors.ErrNotFound
}

// mockSolutionRepository implements repositories.SolutionRepository for
// testing. findCalls records the filters of each Find invocation so
// relaxation ordering can be asserted.
type mockSolutionRepository struct {
	results     map[models.MatchFilters][]repositories.FoundSolution
	findCalls   []models.MatchFilters
	recorded    *models.Solution
	lastSuccess bool
	err         error
}

func (m *mockSolutionRepository) Upsert(ctx context.Context, in *models.SolutionInput, embeddings [][]float32) (*models.SolutionDetails, error) {
	if m.err != nil {
		return nil, m.err
	}
	details := &models.SolutionDetails{
		Solution: models.Solution{
			ID:       uuid.New(),
			Title:    in.Title,
			Category: in.Category,
		},
	}
	for range in.Signatures {
		details.Signatures = append(details.Signatures, models.Signature{ID: uuid.New()})
	}
	for range in.Steps {
		details.Steps = append(details.Steps, models.Step{ID: uuid.New()})
	}
	return details, nil
}

func (m *mockSolutionRepository) Get(ctx context.Context, id uuid.UUID, withDetails bool) (*models.SolutionDetails, error) {
	if m.err != nil {
		return nil, m.err
	}
	return nil, apperrors.ErrNotFound
}

func (m *mockSolutionRepository) Find(ctx context.Context, embedding []float32, filters models.MatchFilters, limit int) ([]repositories.FoundSolution, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.findCalls = append(m.findCalls, filters)
	return m.results[filters], nil
}

func (m *mockSolutionRepository) RecordApplication(ctx context.Context, id uuid.UUID, success bool) (*models.Solution, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.recorded == nil {
		return nil, apperrors.ErrNotFound
	}
	m.lastSuccess = success
	if success {
		m.recorded.SuccessCount++
	} else {
		m.recorded.FailureCount++
	}
	return m.recorded, nil
}

// mockPatternRepository implements repositories.PatternRepository for testing.
type mockPatternRepository struct {
	patterns  []models.Pattern
	links     map[string]*models.PatternSolution
	rows      []repositories.PatternSolutionRow
	golden    []repositories.GoldenPathRow
	refreshed int64
	lastMin   int
	err       error
}

func newMockPatternRepository() *mockPatternRepository {
	return &mockPatternRepository{links: make(map[string]*models.PatternSolution)}
}

func (m *mockPatternRepository) DetectPatterns(ctx context.Context, minOccurrences int, category string) ([]models.Pattern, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.lastMin = minOccurrences
	return m.patterns, nil
}

func (m *mockPatternRepository) Link(ctx context.Context, tag, category string, solutionID uuid.UUID, success bool) (*models.PatternSolution, error) {
	if m.err != nil {
		return nil, m.err
	}
	key := tag + "/" + category + "/" + solutionID.String()
	ps, ok := m.links[key]
	if !ok {
		ps = &models.PatternSolution{PatternTag: tag, PatternCategory: category, SolutionID: solutionID}
		m.links[key] = ps
	}
	if success {
		ps.SuccessCount++
	} else {
		ps.FailureCount++
	}
	return ps, nil
}

func (m *mockPatternRepository) SolutionsForPattern(ctx context.Context, tag, category string) ([]repositories.PatternSolutionRow, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.rows, nil
}

func (m *mockPatternRepository) GoldenPaths(ctx context.Context, minApplications int) ([]repositories.GoldenPathRow, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.golden, nil
}

func (m *mockPatternRepository) RefreshHelpfulness(ctx context.Context) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.refreshed, nil
}
