package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// StateResourceURI names the current-state resource.
const StateResourceURI = "hutch://state"

// registerResources adds MCP resource definitions to the server.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			StateResourceURI,
			"Current Bridge State",
			mcp.WithResourceDescription(
				"The latest reconciled bridge state, or null before the first event.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleStateResource,
	)
}

func (s *MCPServer) handleStateResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	state, err := s.events.CurrentState(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read current state: %w", err)
	}

	b, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      StateResourceURI,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
