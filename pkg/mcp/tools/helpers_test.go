package tools

import (
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
)

func requestWithArgs(args map[string]any) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

func TestGetOptionalString(t *testing.T) {
	req := requestWithArgs(map[string]any{"name": "pnpm", "count": float64(3)})

	assert.Equal(t, "pnpm", getOptionalString(req, "name"))
	assert.Equal(t, "", getOptionalString(req, "missing"))
	assert.Equal(t, "", getOptionalString(req, "count"), "non-string values are ignored")
}

func TestGetOptionalInt(t *testing.T) {
	req := requestWithArgs(map[string]any{"limit": float64(7), "name": "pnpm"})

	val, ok := getOptionalInt(req, "limit")
	assert.True(t, ok)
	assert.Equal(t, 7, val)

	_, ok = getOptionalInt(req, "missing")
	assert.False(t, ok)

	_, ok = getOptionalInt(req, "name")
	assert.False(t, ok, "non-numeric values are ignored")
}

func TestGetOptionalFloat(t *testing.T) {
	req := requestWithArgs(map[string]any{"weight": 0.6})

	val, ok := getOptionalFloat(req, "weight")
	assert.True(t, ok)
	assert.Equal(t, 0.6, val)

	_, ok = getOptionalFloat(req, "missing")
	assert.False(t, ok)
}

func TestGetOptionalBool(t *testing.T) {
	req := requestWithArgs(map[string]any{"global": true, "other": "yes"})

	assert.True(t, getOptionalBool(req, "global", false))
	assert.True(t, getOptionalBool(req, "missing", true), "default applies when absent")
	assert.False(t, getOptionalBool(req, "other", false), "non-bool values fall back to default")
}

func TestGetOptionalStringSlice(t *testing.T) {
	req := requestWithArgs(map[string]any{
		"tags":  []any{"pnpm", "workspace", float64(3)},
		"plain": "pnpm",
	})

	assert.Equal(t, []string{"pnpm", "workspace"}, getOptionalStringSlice(req, "tags"),
		"non-string elements are skipped")
	assert.Nil(t, getOptionalStringSlice(req, "missing"))
	assert.Nil(t, getOptionalStringSlice(req, "plain"))
}

func TestTrimString(t *testing.T) {
	assert.Equal(t, "pnpm", trimString("  pnpm\n"))
	assert.Equal(t, "", trimString("   "))
}
