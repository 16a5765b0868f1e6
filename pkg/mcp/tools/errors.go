package tools

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/memloop-ai/memloop-engine/pkg/apperrors"
)

// ErrorResponse represents a structured error in tool results. Actionable
// errors come back as successful tool results carrying this payload so the
// calling agent can see the details and adjust, rather than having them
// swallowed by the MCP client.
type ErrorResponse struct {
	Error   bool   `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// NewErrorResult creates a tool result containing a structured error.
// Use this for recoverable/actionable errors the caller can fix (invalid
// parameters, unknown ids). System failures (store down, embedding endpoint
// unreachable) should still return Go errors.
func NewErrorResult(code, message string) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// NewErrorResultWithDetails creates an error result with additional context.
func NewErrorResultWithDetails(code, message string, details any) *mcp.CallToolResult {
	resp := ErrorResponse{
		Error:   true,
		Code:    code,
		Message: message,
		Details: details,
	}
	jsonBytes, _ := json.Marshal(resp)
	result := mcp.NewToolResultText(string(jsonBytes))
	result.IsError = true
	return result
}

// HandleServiceError translates a service error into a tool result or a Go
// error. Validation failures and misses are actionable and become JSON
// error results; upstream and unknown failures stay Go errors so the
// transport reports a system fault.
func HandleServiceError(err error, fallbackCode string) (*mcp.CallToolResult, error) {
	var vErr *apperrors.ValidationError
	if errors.As(err, &vErr) {
		return NewErrorResultWithDetails("validation_error", vErr.Reason,
			map[string]any{"field": vErr.Field}), nil
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return NewErrorResult("not_found", "no such resource"), nil
	}
	if errors.Is(err, apperrors.ErrConflict) {
		// Conflicts never surface through conflict-tolerant upserts; one
		// reaching here is a schema invariant defect.
		return nil, err
	}
	if apperrors.IsUpstream(err) {
		return nil, err
	}
	return nil, fmt.Errorf("%s: %w", fallbackCode, err)
}
