// Package tools provides MCP tool implementations for memloop-engine.
package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/memloop-ai/memloop-engine/pkg/models"
	"github.com/memloop-ai/memloop-engine/pkg/services"
)

// RegisterMemoryTools registers chunk ingestion, hybrid search and feedback
// MCP tools.
func RegisterMemoryTools(s *server.MCPServer, deps *MemoryToolDeps) {
	registerMemoryIngestTool(s, deps)
	registerMemorySearchTool(s, deps)
	registerMemoryFeedbackTool(s, deps)
	registerMemoryTopHelpfulTool(s, deps)
	registerMemoryDeleteProjectTool(s, deps)
}

func registerMemoryIngestTool(s *server.MCPServer, deps *MemoryToolDeps) {
	tool := mcp.NewTool(
		"memory_ingest",
		mcp.WithDescription(
			"Store a text chunk in cross-project memory. The project is created on first "+
				"reference. Re-ingesting identical content for the same project and path is a "+
				"no-op, not a duplicate. Tags and category feed pattern detection; pick them "+
				"consistently (e.g. tags=['pnpm','workspace'], category='workspace').",
		),
		mcp.WithString("project", mcp.Required(),
			mcp.Description("Project root identifier (e.g. repository root path or slug)")),
		mcp.WithString("path", mcp.Required(),
			mcp.Description("Source path of the chunk within the project")),
		mcp.WithString("content", mcp.Required(),
			mcp.Description("The text to store")),
		mcp.WithString("label",
			mcp.Description("Optional - human-readable project label, set on first reference")),
		mcp.WithArray("tags",
			mcp.Description("Optional - tags for pattern detection"),
			mcp.Items(map[string]any{"type": "string"})),
		mcp.WithString("category",
			mcp.Description("Optional - chunk category (e.g. 'workspace', 'build', 'runtime')")),
		mcp.WithString("component",
			mcp.Description("Optional - component the chunk describes")),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		project, err := req.RequireString("project")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		path, err := req.RequireString("path")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		content, err := req.RequireString("content")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		in := &services.IngestInput{
			ProjectRoot:  trimString(project),
			ProjectLabel: getOptionalString(req, "label"),
			Path:         trimString(path),
			Content:      content,
			Tags:         getOptionalStringSlice(req, "tags"),
			Category:     getOptionalString(req, "category"),
			Component:    getOptionalString(req, "component"),
		}

		chunk, inserted, err := deps.MemoryService.Ingest(ctx, in)
		if err != nil {
			return HandleServiceError(err, "memory_ingest_failed")
		}

		result := memoryIngestResponse{
			ChunkID:   chunk.ID.String(),
			ProjectID: chunk.ProjectID.String(),
			Path:      chunk.Path,
			Inserted:  inserted,
		}
		jsonResult, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

func registerMemoryDeleteProjectTool(s *server.MCPServer, deps *MemoryToolDeps) {
	tool := mcp.NewTool(
		"memory_delete_project",
		mcp.WithDescription(
			"Delete a project and everything it owns: its chunks and their feedback go "+
				"with it by cascade. Solutions and pattern links survive; they are not "+
				"project-owned.",
		),
		mcp.WithString("project", mcp.Required(),
			mcp.Description("Project root identifier to delete")),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		project, err := req.RequireString("project")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		root := trimString(project)
		if err := deps.MemoryService.DeleteProject(ctx, root); err != nil {
			return HandleServiceError(err, "memory_delete_project_failed")
		}

		jsonResult, err := json.Marshal(map[string]any{"project": root, "deleted": true})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

func registerMemorySearchTool(s *server.MCPServer, deps *MemoryToolDeps) {
	tool := mcp.NewTool(
		"memory_search",
		mcp.WithDescription(
			"Hybrid search over stored chunks. Combines semantic similarity, keyword match, "+
				"recency and feedback into one combined score per chunk and returns the top K. "+
				"Scope to one project or search globally across all projects.",
		),
		mcp.WithString("query", mcp.Required(),
			mcp.Description("Free-text query; used for both the embedding and keyword signals")),
		mcp.WithString("project",
			mcp.Description("Project root identifier; required unless global=true")),
		mcp.WithBoolean("global",
			mcp.Description("Search across all projects instead of one (default false)")),
		mcp.WithNumber("k",
			mcp.Description("Number of results to return (default 10)")),
		mcp.WithBoolean("include_feedback",
			mcp.Description("Apply the feedback score bonus (default true)")),
		mcp.WithNumber("vector_weight",
			mcp.Description("Override the semantic-similarity weight (default 0.6)")),
		mcp.WithNumber("text_weight",
			mcp.Description("Override the keyword-match weight (default 0.3)")),
		mcp.WithNumber("recency_weight",
			mcp.Description("Override the recency weight (default 0.1)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		in := &services.SearchInput{
			ProjectRoot:     trimString(getOptionalString(req, "project")),
			Global:          getOptionalBool(req, "global", false),
			Query:           trimString(query),
			IncludeFeedback: getOptionalBool(req, "include_feedback", true),
		}
		if k, ok := getOptionalInt(req, "k"); ok {
			in.Limit = k
		}
		if weights, ok := weightOverrides(req); ok {
			in.Weights = weights
		}

		scored, err := deps.MemoryService.Search(ctx, in)
		if err != nil {
			return HandleServiceError(err, "memory_search_failed")
		}

		results := make([]memorySearchResult, 0, len(scored))
		for _, sc := range scored {
			results = append(results, memorySearchResult{
				ChunkID:       sc.ID.String(),
				ProjectID:     sc.ProjectID.String(),
				Path:          sc.Path,
				Content:       sc.Content,
				Tags:          sc.Tags,
				Category:      sc.Category,
				Score:         sc.Score,
				VectorScore:   sc.VectorScore,
				TextScore:     sc.TextScore,
				TimeScore:     sc.TimeScore,
				FeedbackScore: sc.FeedbackScore,
			})
		}
		jsonResult, err := json.Marshal(memorySearchResponse{Results: results})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

// weightOverrides builds a RankWeights from any per-call weight arguments,
// starting from the defaults so unspecified weights keep their standard values.
func weightOverrides(req mcp.CallToolRequest) (*models.RankWeights, bool) {
	weights := models.DefaultRankWeights()
	overridden := false
	if v, ok := getOptionalFloat(req, "vector_weight"); ok {
		weights.Vector = v
		overridden = true
	}
	if v, ok := getOptionalFloat(req, "text_weight"); ok {
		weights.Text = v
		overridden = true
	}
	if v, ok := getOptionalFloat(req, "recency_weight"); ok {
		weights.Recency = v
		overridden = true
	}
	if !overridden {
		return nil, false
	}
	return &weights, true
}

func registerMemoryFeedbackTool(s *server.MCPServer, deps *MemoryToolDeps) {
	tool := mcp.NewTool(
		"memory_feedback",
		mcp.WithDescription(
			"Record whether a retrieved chunk was helpful. One judgment per chunk: a second "+
				"call overwrites the first. Feedback boosts or demotes the chunk in future "+
				"searches and feeds the pattern learning loop.",
		),
		mcp.WithString("chunk_id", mcp.Required(),
			mcp.Description("UUID of the judged chunk")),
		mcp.WithBoolean("helpful", mcp.Required(),
			mcp.Description("Whether the chunk helped")),
		mcp.WithString("context",
			mcp.Description("Optional - what the chunk was used for")),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		chunkIDStr, err := req.RequireString("chunk_id")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		chunkID, err := uuid.Parse(trimString(chunkIDStr))
		if err != nil {
			return NewErrorResult("invalid_parameters",
				fmt.Sprintf("invalid chunk_id format: %q is not a valid UUID", chunkIDStr)), nil
		}
		helpful, err := req.RequireBool("helpful")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		if _, err := deps.FeedbackService.Record(ctx, chunkID, helpful, getOptionalString(req, "context")); err != nil {
			return HandleServiceError(err, "memory_feedback_failed")
		}

		stats, err := deps.FeedbackService.Stats(ctx, chunkID)
		if err != nil {
			return HandleServiceError(err, "memory_feedback_failed")
		}

		result := memoryFeedbackResponse{
			ChunkID:        chunkID.String(),
			Helpful:        helpful,
			HelpfulCount:   stats.HelpfulCount,
			UnhelpfulCount: stats.UnhelpfulCount,
			HelpfulRatio:   stats.HelpfulRatio,
		}
		jsonResult, err := json.Marshal(result)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

func registerMemoryTopHelpfulTool(s *server.MCPServer, deps *MemoryToolDeps) {
	tool := mcp.NewTool(
		"memory_top_helpful",
		mcp.WithDescription(
			"List the (project, path) groups whose chunks received the best feedback. Groups "+
				"need at least two judged chunks so single votes cannot dominate.",
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum groups to return (default 10)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit, _ := getOptionalInt(req, "limit")

		paths, err := deps.FeedbackService.TopHelpful(ctx, limit)
		if err != nil {
			return HandleServiceError(err, "memory_top_helpful_failed")
		}
		if paths == nil {
			paths = []models.HelpfulPath{}
		}
		jsonResult, err := json.Marshal(map[string]any{"paths": paths})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

// memoryIngestResponse is the response format for the memory_ingest tool.
type memoryIngestResponse struct {
	ChunkID   string `json:"chunk_id"`
	ProjectID string `json:"project_id"`
	Path      string `json:"path"`
	Inserted  bool   `json:"inserted"`
}

// memorySearchResponse is the response format for the memory_search tool.
type memorySearchResponse struct {
	Results []memorySearchResult `json:"results"`
}

type memorySearchResult struct {
	ChunkID       string   `json:"chunk_id"`
	ProjectID     string   `json:"project_id"`
	Path          string   `json:"path"`
	Content       string   `json:"content"`
	Tags          []string `json:"tags,omitempty"`
	Category      string   `json:"category,omitempty"`
	Score         float64  `json:"score"`
	VectorScore   float64  `json:"vector_score"`
	TextScore     float64  `json:"text_score"`
	TimeScore     float64  `json:"time_score"`
	FeedbackScore float64  `json:"feedback_score"`
}

// memoryFeedbackResponse is the response format for the memory_feedback tool.
type memoryFeedbackResponse struct {
	ChunkID        string  `json:"chunk_id"`
	Helpful        bool    `json:"helpful"`
	HelpfulCount   int     `json:"helpful_count"`
	UnhelpfulCount int     `json:"unhelpful_count"`
	HelpfulRatio   float64 `json:"helpful_ratio"`
}
