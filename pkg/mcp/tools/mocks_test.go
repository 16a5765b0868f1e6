package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/require"

	"github.com/memloop-ai/memloop-engine/pkg/models"
	"github.com/memloop-ai/memloop-engine/pkg/services"
)

// mockMemoryService implements services.MemoryService for testing.
type mockMemoryService struct {
	lastIngest *services.IngestInput
	lastSearch *services.SearchInput
	chunk      *models.Chunk
	inserted   bool
	scored     []models.ScoredChunk
	deleted    []string
	err        error
}

func (m *mockMemoryService) Ingest(ctx context.Context, in *services.IngestInput) (*models.Chunk, bool, error) {
	if m.err != nil {
		return nil, false, m.err
	}
	m.lastIngest = in
	return m.chunk, m.inserted, nil
}

func (m *mockMemoryService) Search(ctx context.Context, in *services.SearchInput) ([]models.ScoredChunk, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.lastSearch = in
	return m.scored, nil
}

func (m *mockMemoryService) DeleteProject(ctx context.Context, root string) error {
	if m.err != nil {
		return m.err
	}
	m.deleted = append(m.deleted, root)
	return nil
}

// mockFeedbackService implements services.FeedbackService for testing.
type mockFeedbackService struct {
	recorded  []*models.Feedback
	stats     *models.FeedbackStats
	top       []models.HelpfulPath
	lastLimit int
	err       error
}

func (m *mockFeedbackService) Record(ctx context.Context, chunkID uuid.UUID, helpful bool, context string) (*models.Feedback, error) {
	if m.err != nil {
		return nil, m.err
	}
	fb := &models.Feedback{ChunkID: chunkID, Helpful: helpful, Context: context}
	m.recorded = append(m.recorded, fb)
	return fb, nil
}

func (m *mockFeedbackService) Stats(ctx context.Context, chunkID uuid.UUID) (*models.FeedbackStats, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.stats != nil {
		return m.stats, nil
	}
	return &models.FeedbackStats{ChunkID: chunkID}, nil
}

func (m *mockFeedbackService) TopHelpful(ctx context.Context, limit int) ([]models.HelpfulPath, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.lastLimit = limit
	return m.top, nil
}

// mockSolutionService implements services.SolutionService for testing.
type mockSolutionService struct {
	lastErrorText string
	lastFilters   models.MatchFilters
	matches       []models.ScoredSolution
	details       *models.SolutionDetails
	applied       *models.Solution
	lastSuccess   bool
	lastInput     *models.SolutionInput
	err           error
}

func (m *mockSolutionService) Match(ctx context.Context, errorText string, filters models.MatchFilters, limit int) ([]models.ScoredSolution, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.lastErrorText = errorText
	m.lastFilters = filters
	return m.matches, nil
}

func (m *mockSolutionService) Preview(ctx context.Context, id uuid.UUID) (*models.SolutionDetails, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.details, nil
}

func (m *mockSolutionService) Apply(ctx context.Context, id uuid.UUID, success bool) (*models.Solution, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.lastSuccess = success
	return m.applied, nil
}

func (m *mockSolutionService) Upsert(ctx context.Context, in *models.SolutionInput) (*models.SolutionDetails, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.lastInput = in
	return m.details, nil
}

// mockPatternService implements services.PatternService for testing.
type mockPatternService struct {
	patterns  []models.Pattern
	link      *models.PatternSolution
	ranked    []models.RankedSolution
	golden    []models.GoldenPath
	refreshed int64
	lastMin   int
	err       error
}

func (m *mockPatternService) DetectPatterns(ctx context.Context, minOccurrences int, category string) ([]models.Pattern, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.lastMin = minOccurrences
	return m.patterns, nil
}

func (m *mockPatternService) Link(ctx context.Context, tag, category string, solutionID uuid.UUID, success bool) (*models.PatternSolution, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.link, nil
}

func (m *mockPatternService) RankSolutionsForPattern(ctx context.Context, tag, category string, limit int) ([]models.RankedSolution, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.ranked, nil
}

func (m *mockPatternService) GoldenPaths(ctx context.Context, minApplications, limit int) ([]models.GoldenPath, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.golden, nil
}

func (m *mockPatternService) RefreshHelpfulness(ctx context.Context) (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.refreshed, nil
}

// newTestServer creates an MCP server for tool tests.
func newTestServer(t *testing.T) *server.MCPServer {
	t.Helper()
	return server.NewMCPServer("test", "1.0.0", server.WithToolCapabilities(true))
}

// callTool invokes a registered tool through the JSON-RPC surface and returns
// the text content of the result plus the isError flag.
func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) (string, bool) {
	t.Helper()

	argsJSON, err := json.Marshal(args)
	require.NoError(t, err)

	request := fmt.Sprintf(
		`{"jsonrpc":"2.0","method":"tools/call","params":{"name":%q,"arguments":%s},"id":1}`,
		name, string(argsJSON))

	raw := s.HandleMessage(context.Background(), []byte(request))
	rawJSON, err := json.Marshal(raw)
	require.NoError(t, err)

	var response struct {
		Result struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
			IsError bool `json:"isError"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rawJSON, &response))
	if response.Error != nil {
		return response.Error.Message, true
	}
	require.NotEmpty(t, response.Result.Content, "tool %s returned no content", name)
	return response.Result.Content[0].Text, response.Result.IsError
}

// listToolNames returns the names of all registered tools.
func listToolNames(t *testing.T, s *server.MCPServer) map[string]bool {
	t.Helper()

	raw := s.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","method":"tools/list","id":1}`))
	rawJSON, err := json.Marshal(raw)
	require.NoError(t, err)

	var response struct {
		Result struct {
			Tools []struct {
				Name string `json:"name"`
			} `json:"tools"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(rawJSON, &response))

	names := make(map[string]bool)
	for _, tool := range response.Result.Tools {
		names[tool.Name] = true
	}
	return names
}
