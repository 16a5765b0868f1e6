package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/memloop-ai/memloop-engine/pkg/models"
)

// RegisterPatternTools registers learning-loop MCP tools.
func RegisterPatternTools(s *server.MCPServer, deps *PatternToolDeps) {
	registerPatternDetectTool(s, deps)
	registerPatternLinkTool(s, deps)
	registerPatternSolutionsTool(s, deps)
	registerGoldenPathsTool(s, deps)
	registerPatternRefreshTool(s, deps)
}

func registerPatternDetectTool(s *server.MCPServer, deps *PatternToolDeps) {
	tool := mcp.NewTool(
		"pattern_detect",
		mcp.WithDescription(
			"Discover recurring (category, tag) patterns across projects. A pattern is a "+
				"tag appearing in at least min_occurrences chunks of the same category, "+
				"spanning at least two distinct projects; patterns found in a single project "+
				"are noise, not knowledge.",
		),
		mcp.WithNumber("min_occurrences",
			mcp.Description("Minimum chunks sharing the tag (default 3)")),
		mcp.WithString("category",
			mcp.Description("Optional - restrict detection to one chunk category")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		minOccurrences, _ := getOptionalInt(req, "min_occurrences")
		category := getOptionalString(req, "category")

		patterns, err := deps.PatternService.DetectPatterns(ctx, minOccurrences, category)
		if err != nil {
			return HandleServiceError(err, "pattern_detect_failed")
		}
		if patterns == nil {
			patterns = []models.Pattern{}
		}
		jsonResult, err := json.Marshal(map[string]any{"patterns": patterns})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

func registerPatternLinkTool(s *server.MCPServer, deps *PatternToolDeps) {
	tool := mcp.NewTool(
		"pattern_link",
		mcp.WithDescription(
			"Record that a solution was applied to a problem matching a pattern, with its "+
				"outcome. Evidence accumulates per (pattern, solution) pairing, separate "+
				"from the solution's global counters, so the same fix can prove itself "+
				"differently on different patterns.",
		),
		mcp.WithString("pattern_tag", mcp.Required(),
			mcp.Description("Tag of the pattern")),
		mcp.WithString("pattern_category", mcp.Required(),
			mcp.Description("Category of the pattern")),
		mcp.WithString("solution_id", mcp.Required(),
			mcp.Description("UUID of the solution that was applied")),
		mcp.WithBoolean("success", mcp.Required(),
			mcp.Description("Whether the solution worked for this pattern")),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tag, err := req.RequireString("pattern_tag")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		category, err := req.RequireString("pattern_category")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		solutionID, result := requireUUID(req, "solution_id")
		if result != nil {
			return result, nil
		}
		success, err := req.RequireBool("success")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		ps, err := deps.PatternService.Link(ctx, trimString(tag), trimString(category), solutionID, success)
		if err != nil {
			return HandleServiceError(err, "pattern_link_failed")
		}

		jsonResult, err := json.Marshal(ps)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

func registerPatternRefreshTool(s *server.MCPServer, deps *PatternToolDeps) {
	tool := mcp.NewTool(
		"pattern_refresh",
		mcp.WithDescription(
			"Recompute average helpfulness for every pattern-solution pairing from chunk "+
				"feedback. Runs periodically in the background; call this to force a "+
				"recomputation after a burst of feedback.",
		),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		updated, err := deps.PatternService.RefreshHelpfulness(ctx)
		if err != nil {
			return HandleServiceError(err, "pattern_refresh_failed")
		}
		jsonResult, err := json.Marshal(map[string]any{"links_updated": updated})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

func registerPatternSolutionsTool(s *server.MCPServer, deps *PatternToolDeps) {
	tool := mcp.NewTool(
		"pattern_solutions",
		mcp.WithDescription(
			"Rank solutions for a pattern by their per-pattern track record: success rate "+
				"dominates, application volume adds confidence, chunk feedback breaks "+
				"near-ties. Only solutions with at least one recorded application appear.",
		),
		mcp.WithString("pattern_tag", mcp.Required(),
			mcp.Description("Tag of the pattern")),
		mcp.WithString("pattern_category",
			mcp.Description("Optional - category of the pattern")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum solutions to return (default 5)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tag, err := req.RequireString("pattern_tag")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		category := getOptionalString(req, "pattern_category")
		limit, _ := getOptionalInt(req, "limit")

		ranked, err := deps.PatternService.RankSolutionsForPattern(ctx, trimString(tag), category, limit)
		if err != nil {
			return HandleServiceError(err, "pattern_solutions_failed")
		}
		if ranked == nil {
			ranked = []models.RankedSolution{}
		}
		jsonResult, err := json.Marshal(map[string]any{"solutions": ranked})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

func registerGoldenPathsTool(s *server.MCPServer, deps *PatternToolDeps) {
	tool := mcp.NewTool(
		"golden_paths",
		mcp.WithDescription(
			"Surface the globally best pattern→solution pairings: pairs with more "+
				"successes than failures and enough applications to trust, ranked by "+
				"success rate and volume. These are the fixes that generalize.",
		),
		mcp.WithNumber("min_applications",
			mcp.Description("Minimum recorded applications per pairing (default 3)")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum pairings to return (default 10)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		minApplications, _ := getOptionalInt(req, "min_applications")
		limit, _ := getOptionalInt(req, "limit")

		paths, err := deps.PatternService.GoldenPaths(ctx, minApplications, limit)
		if err != nil {
			return HandleServiceError(err, "golden_paths_failed")
		}
		if paths == nil {
			paths = []models.GoldenPath{}
		}
		jsonResult, err := json.Marshal(map[string]any{"golden_paths": paths})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}
