package tools

import (
	"go.uber.org/zap"

	"github.com/memloop-ai/memloop-engine/pkg/services"
)

// BaseMCPToolDeps contains dependencies common to every tool group.
type BaseMCPToolDeps struct {
	Logger *zap.Logger
}

// MemoryToolDeps contains dependencies for memory tools.
type MemoryToolDeps struct {
	BaseMCPToolDeps
	MemoryService   services.MemoryService
	FeedbackService services.FeedbackService
}

// SolutionToolDeps contains dependencies for solution tools.
type SolutionToolDeps struct {
	BaseMCPToolDeps
	SolutionService services.SolutionService
}

// PatternToolDeps contains dependencies for learning-loop tools.
type PatternToolDeps struct {
	BaseMCPToolDeps
	PatternService services.PatternService
}
