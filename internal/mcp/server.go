package mcp

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Jonathanferreras/watch-the-hutch/internal/model"
)

// ServerName is reported to MCP clients in the initialize handshake.
const ServerName = "Watch the Hutch"

// StateReader is the read-only view of the event service the MCP tools use.
type StateReader interface {
	CurrentState(ctx context.Context) (*model.CurrentState, error)
	ListEvents(ctx context.Context, limit int) ([]model.Event, error)
	GetEvent(ctx context.Context, eventID string) (*model.Event, error)
}

// MCPServer wraps the mcp-go server with the hutch tools and resources. It
// exposes the bridge state and event log to AI agents without any way to
// change them.
type MCPServer struct {
	events StateReader
	logger *slog.Logger
	server *server.MCPServer
}

// NewMCPServer creates an MCPServer pre-loaded with all tools and resources.
// The returned server is ready to serve over stdio or HTTP.
func NewMCPServer(events StateReader, version string, logger *slog.Logger) *MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	if version == "" {
		version = "dev"
	}
	s := &MCPServer{
		events: events,
		logger: logger,
	}

	mcpServer := server.NewMCPServer(
		ServerName,
		version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio starts the MCP server in stdio mode, for clients that launch
// hutch as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP starts a standalone Streamable HTTP MCP server on addr
// (e.g. ":3001").
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

// Handler returns a stateless Streamable HTTP handler answering at path, for
// mounting inside the main HTTP server.
func (s *MCPServer) Handler(path string) http.Handler {
	return server.NewStreamableHTTPServer(s.server,
		server.WithEndpointPath(path),
		server.WithStateLess(true),
	)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint:   boolPtr(true),
		IdempotentHint: boolPtr(true),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
