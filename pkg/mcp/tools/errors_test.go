package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/memloop-ai/memloop-engine/pkg/apperrors"
)

// getTextContent extracts the text string from the first content item.
func getTextContent(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()

	require.NotEmpty(t, result.Content)
	jsonBytes, err := json.Marshal(result.Content[0])
	require.NoError(t, err)

	var textContent struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(jsonBytes, &textContent))
	return textContent.Text
}

func decodeErrorResult(t *testing.T, result *mcp.CallToolResult) ErrorResponse {
	t.Helper()

	require.NotNil(t, result)
	require.True(t, result.IsError)

	var response ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(getTextContent(t, result)), &response))
	return response
}

func TestNewErrorResult(t *testing.T) {
	result := NewErrorResult("invalid_parameters", "parameter 'query' is required")

	response := decodeErrorResult(t, result)
	assert.True(t, response.Error)
	assert.Equal(t, "invalid_parameters", response.Code)
	assert.Equal(t, "parameter 'query' is required", response.Message)
	assert.Nil(t, response.Details)
}

func TestNewErrorResultWithDetails(t *testing.T) {
	result := NewErrorResultWithDetails("validation_error", "content is required",
		map[string]any{"field": "content"})

	response := decodeErrorResult(t, result)
	assert.Equal(t, "validation_error", response.Code)
	details, ok := response.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "content", details["field"])
}

func TestHandleServiceError_Validation(t *testing.T) {
	err := apperrors.NewValidation("query", "query is required")

	result, handlerErr := HandleServiceError(err, "memory_search_failed")
	require.NoError(t, handlerErr)

	response := decodeErrorResult(t, result)
	assert.Equal(t, "validation_error", response.Code)
	assert.Equal(t, "query is required", response.Message)
	details, ok := response.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "query", details["field"])
}

func TestHandleServiceError_WrappedValidation(t *testing.T) {
	err := fmt.Errorf("ingest: %w", apperrors.NewValidation("path", "path is required"))

	result, handlerErr := HandleServiceError(err, "memory_ingest_failed")
	require.NoError(t, handlerErr)

	response := decodeErrorResult(t, result)
	assert.Equal(t, "validation_error", response.Code)
}

func TestHandleServiceError_NotFound(t *testing.T) {
	result, handlerErr := HandleServiceError(apperrors.ErrNotFound, "solution_preview_failed")
	require.NoError(t, handlerErr)

	response := decodeErrorResult(t, result)
	assert.Equal(t, "not_found", response.Code)
}

func TestHandleServiceError_Conflict(t *testing.T) {
	result, handlerErr := HandleServiceError(apperrors.ErrConflict, "solution_upsert_failed")

	assert.Nil(t, result, "conflicts are system faults, not actionable results")
	assert.ErrorIs(t, handlerErr, apperrors.ErrConflict)
}

func TestHandleServiceError_Upstream(t *testing.T) {
	upstream := apperrors.NewUpstream("embeddings", errors.New("connection refused"))

	result, handlerErr := HandleServiceError(upstream, "memory_search_failed")

	assert.Nil(t, result)
	require.Error(t, handlerErr)
	assert.True(t, apperrors.IsUpstream(handlerErr))
}

func TestHandleServiceError_Unknown(t *testing.T) {
	unknown := errors.New("write: broken pipe")

	result, handlerErr := HandleServiceError(unknown, "memory_ingest_failed")

	assert.Nil(t, result)
	require.Error(t, handlerErr)
	assert.Contains(t, handlerErr.Error(), "memory_ingest_failed")
	assert.ErrorIs(t, handlerErr, unknown)
}
