// Package mcp assembles the engine's MCP tool surface.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/memloop-ai/memloop-engine/pkg/mcp/tools"
	"github.com/memloop-ai/memloop-engine/pkg/services"
)

// serverName identifies this engine to MCP clients.
const serverName = "memloop-engine"

// ToolDeps bundles the services behind the tool surface.
type ToolDeps struct {
	Memory   services.MemoryService
	Feedback services.FeedbackService
	Solution services.SolutionService
	Pattern  services.PatternService
	Logger   *zap.Logger
}

// Server owns the MCP server with every engine tool registered.
type Server struct {
	mcp    *server.MCPServer
	logger *zap.Logger
}

// NewServer builds the MCP server and registers the memory, solution and
// learning-loop tool groups.
func NewServer(version string, deps ToolDeps) *Server {
	mcpServer := server.NewMCPServer(
		serverName,
		version,
		server.WithToolCapabilities(true),
	)

	base := tools.BaseMCPToolDeps{Logger: deps.Logger}
	tools.RegisterMemoryTools(mcpServer, &tools.MemoryToolDeps{
		BaseMCPToolDeps: base,
		MemoryService:   deps.Memory,
		FeedbackService: deps.Feedback,
	})
	tools.RegisterSolutionTools(mcpServer, &tools.SolutionToolDeps{
		BaseMCPToolDeps: base,
		SolutionService: deps.Solution,
	})
	tools.RegisterPatternTools(mcpServer, &tools.PatternToolDeps{
		BaseMCPToolDeps: base,
		PatternService:  deps.Pattern,
	})

	return &Server{mcp: mcpServer, logger: deps.Logger}
}

// NewStreamableHTTPServer creates the HTTP transport for this server.
// All engine state lives in the store, so the transport runs stateless;
// routing to /mcp is the mux's job.
func (s *Server) NewStreamableHTTPServer() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s.mcp,
		server.WithStateLess(true),
	)
}
