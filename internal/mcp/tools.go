package mcp

import (
	"context"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/Jonathanferreras/watch-the-hutch/internal/store"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// registerTools registers the read-only hutch tools on srv.
func (s *MCPServer) registerTools(srv *server.MCPServer) {
	srv.AddTool(
		mcp.NewTool("get_current_state",
			mcp.WithDescription(
				"Get the current reconciled bridge state: CLOSED, OPENING, OPEN, CLOSING or UNKNOWN, "+
					"with the timestamp and id of the event that set it. Returns null if no "+
					"event has been recorded yet.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleGetCurrentState,
	)

	srv.AddTool(
		mcp.NewTool("list_events",
			mcp.WithDescription(
				"List the most recent bridge events reported by cameras, newest first. "+
					"Each event carries the source device, the detected bridge state and "+
					"the detector confidence.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of events to return (1-500, default 50)"),
				mcp.Min(1),
				mcp.Max(maxEventLimit),
			),
		),
		s.handleListEvents,
	)

	srv.AddTool(
		mcp.NewTool("get_event",
			mcp.WithDescription("Get a single bridge event by its event_id."),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("event_id",
				mcp.Required(),
				mcp.Description("The event_id assigned by the reporting device"),
			),
		),
		s.handleGetEvent,
	)
}

func (s *MCPServer) handleGetCurrentState(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	state, err := s.events.CurrentState(ctx)
	if err != nil {
		s.logger.Error("mcp: read current state", "error", err)
		return toolError("Failed to read current state: %v", err)
	}
	return successJSON(state)
}

func (s *MCPServer) handleListEvents(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	limit := clamp(optionalInt(request, "limit", defaultEventLimit), 1, maxEventLimit)

	events, err := s.events.ListEvents(ctx, limit)
	if err != nil {
		s.logger.Error("mcp: list events", "error", err)
		return toolError("Failed to list events: %v", err)
	}
	return successJSON(map[string]interface{}{
		"events": events,
		"count":  len(events),
		"limit":  limit,
	})
}

func (s *MCPServer) handleGetEvent(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	eventID, err := requireString(request, "event_id")
	if err != nil {
		return toolError("%v", err)
	}

	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return toolError("Event %q not found", eventID)
		}
		s.logger.Error("mcp: get event", "event_id", eventID, "error", err)
		return toolError("Failed to get event: %v", err)
	}
	return successJSON(event)
}
