package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/memloop-ai/memloop-engine/pkg/models"
)

// RegisterSolutionTools registers fixpack matching and lifecycle MCP tools.
func RegisterSolutionTools(s *server.MCPServer, deps *SolutionToolDeps) {
	registerSolutionSearchTool(s, deps)
	registerSolutionPreviewTool(s, deps)
	registerSolutionApplyTool(s, deps)
	registerSolutionUpsertTool(s, deps)
}

func registerSolutionSearchTool(s *server.MCPServer, deps *SolutionToolDeps) {
	tool := mcp.NewTool(
		"solution_search",
		mcp.WithDescription(
			"Match an error message against the fixpack library. Signatures are ranked by "+
				"semantic similarity to the error text; scope filters are permissive (an "+
				"unscoped solution matches any filter) and are relaxed automatically in the "+
				"order package_manager, build_tool, project_scope while fewer than three "+
				"results come back. No results is a valid outcome.",
		),
		mcp.WithString("error_text", mcp.Required(),
			mcp.Description("The error output or failure description to match")),
		mcp.WithString("category",
			mcp.Description("Optional - solution category filter (never relaxed)")),
		mcp.WithString("component",
			mcp.Description("Optional - component filter (never relaxed)")),
		mcp.WithString("project_scope",
			mcp.Description("Optional - project the error occurred in")),
		mcp.WithString("package_manager",
			mcp.Description("Optional - package manager in use (e.g. 'pnpm')")),
		mcp.WithString("build_tool",
			mcp.Description("Optional - build tool in use (e.g. 'vite')")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum solutions to return (default 5)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		errorText, err := req.RequireString("error_text")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}
		errorText = trimString(errorText)
		if errorText == "" {
			return NewErrorResult("invalid_parameters", "parameter 'error_text' cannot be empty"), nil
		}

		filters := models.MatchFilters{
			Category:       getOptionalString(req, "category"),
			Component:      getOptionalString(req, "component"),
			ProjectScope:   getOptionalString(req, "project_scope"),
			PackageManager: getOptionalString(req, "package_manager"),
			BuildTool:      getOptionalString(req, "build_tool"),
		}
		limit, _ := getOptionalInt(req, "limit")

		matches, err := deps.SolutionService.Match(ctx, errorText, filters, limit)
		if err != nil {
			return HandleServiceError(err, "solution_search_failed")
		}

		results := make([]solutionSearchResult, 0, len(matches))
		for _, m := range matches {
			results = append(results, solutionSearchResult{
				SolutionID:   m.ID.String(),
				Title:        m.Title,
				Description:  m.Description,
				Category:     m.Category,
				Confidence:   m.Confidence,
				SuccessRate:  m.SuccessRate,
				SuccessCount: m.SuccessCount,
				FailureCount: m.FailureCount,
				VerifiedOn:   m.VerifiedOn,
			})
		}
		jsonResult, err := json.Marshal(solutionSearchResponse{Results: results})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

func registerSolutionPreviewTool(s *server.MCPServer, deps *SolutionToolDeps) {
	tool := mcp.NewTool(
		"solution_preview",
		mcp.WithDescription(
			"Inspect a solution's ordered steps and verification checks before applying it. "+
				"Pure read; records nothing.",
		),
		mcp.WithString("solution_id", mcp.Required(),
			mcp.Description("UUID of the solution")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, result := requireUUID(req, "solution_id")
		if result != nil {
			return result, nil
		}

		details, err := deps.SolutionService.Preview(ctx, id)
		if err != nil {
			return HandleServiceError(err, "solution_preview_failed")
		}

		jsonResult, err := json.Marshal(details)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

func registerSolutionApplyTool(s *server.MCPServer, deps *SolutionToolDeps) {
	tool := mcp.NewTool(
		"solution_apply",
		mcp.WithDescription(
			"Record the outcome after executing a solution's steps yourself. Success marks "+
				"the solution verified; failure records a regression without clearing the "+
				"last verification. The engine never executes steps.",
		),
		mcp.WithString("solution_id", mcp.Required(),
			mcp.Description("UUID of the applied solution")),
		mcp.WithBoolean("success", mcp.Required(),
			mcp.Description("Whether the applied solution fixed the problem")),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, result := requireUUID(req, "solution_id")
		if result != nil {
			return result, nil
		}
		success, err := req.RequireBool("success")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		sol, err := deps.SolutionService.Apply(ctx, id, success)
		if err != nil {
			return HandleServiceError(err, "solution_apply_failed")
		}

		response := solutionApplyResponse{
			SolutionID:    sol.ID.String(),
			Success:       success,
			SuccessCount:  sol.SuccessCount,
			FailureCount:  sol.FailureCount,
			SuccessRate:   sol.SuccessRate(),
			LastAppliedAt: sol.LastAppliedAt,
			VerifiedOn:    sol.VerifiedOn,
		}
		jsonResult, err := json.Marshal(response)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

func registerSolutionUpsertTool(s *server.MCPServer, deps *SolutionToolDeps) {
	tool := mcp.NewTool(
		"solution_upsert",
		mcp.WithDescription(
			"Create or redefine a fixpack. Solutions are keyed on (title, category): "+
				"upserting an existing pair replaces its signatures, steps and checks while "+
				"preserving its success/failure record. Provide the definition as a JSON "+
				"object with title, description, category, optional scope qualifiers "+
				"(component, project_scope, package_manager, build_tool), tags, signatures "+
				"[{description, patterns}], steps [{kind, payload, timeout_seconds}] where "+
				"kind is one of command|patch|copy|script|env, and checks "+
				"[{command, expect_exit, expect_output, timeout_seconds}].",
		),
		mcp.WithString("definition", mcp.Required(),
			mcp.Description("JSON object describing the solution")),
		mcp.WithReadOnlyHintAnnotation(false),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(true),
		mcp.WithOpenWorldHintAnnotation(false),
	)

	s.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		definition, err := req.RequireString("definition")
		if err != nil {
			return NewErrorResult("invalid_parameters", err.Error()), nil
		}

		var in models.SolutionInput
		if err := json.Unmarshal([]byte(definition), &in); err != nil {
			return NewErrorResult("invalid_parameters",
				fmt.Sprintf("definition is not valid JSON: %v", err)), nil
		}

		details, err := deps.SolutionService.Upsert(ctx, &in)
		if err != nil {
			return HandleServiceError(err, "solution_upsert_failed")
		}

		response := solutionUpsertResponse{
			SolutionID: details.ID.String(),
			Title:      details.Title,
			Category:   details.Category,
			Signatures: len(details.Signatures),
			Steps:      len(details.Steps),
			Checks:     len(details.Checks),
		}
		jsonResult, err := json.Marshal(response)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal result: %w", err)
		}
		return mcp.NewToolResultText(string(jsonResult)), nil
	})
}

// requireUUID parses a required UUID parameter, returning an error result on
// failure.
func requireUUID(req mcp.CallToolRequest, key string) (uuid.UUID, *mcp.CallToolResult) {
	raw, err := req.RequireString(key)
	if err != nil {
		return uuid.Nil, NewErrorResult("invalid_parameters", err.Error())
	}
	id, err := uuid.Parse(trimString(raw))
	if err != nil {
		return uuid.Nil, NewErrorResult("invalid_parameters",
			fmt.Sprintf("invalid %s format: %q is not a valid UUID", key, raw))
	}
	return id, nil
}

// solutionSearchResponse is the response format for the solution_search tool.
type solutionSearchResponse struct {
	Results []solutionSearchResult `json:"results"`
}

type solutionSearchResult struct {
	SolutionID   string     `json:"solution_id"`
	Title        string     `json:"title"`
	Description  string     `json:"description"`
	Category     string     `json:"category"`
	Confidence   float64    `json:"confidence"`
	SuccessRate  float64    `json:"success_rate"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	VerifiedOn   *time.Time `json:"verified_on,omitempty"`
}

// solutionApplyResponse is the response format for the solution_apply tool.
type solutionApplyResponse struct {
	SolutionID    string     `json:"solution_id"`
	Success       bool       `json:"success"`
	SuccessCount  int        `json:"success_count"`
	FailureCount  int        `json:"failure_count"`
	SuccessRate   float64    `json:"success_rate"`
	LastAppliedAt *time.Time `json:"last_applied_at,omitempty"`
	VerifiedOn    *time.Time `json:"verified_on,omitempty"`
}

// solutionUpsertResponse is the response format for the solution_upsert tool.
type solutionUpsertResponse struct {
	SolutionID string `json:"solution_id"`
	Title      string `json:"title"`
	Category   string `json:"category"`
	Signatures int    `json:"signatures"`
	Steps      int    `json:"steps"`
	Checks     int    `json:"checks"`
}
