package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Jonathanferreras/watch-the-hutch/internal/model"
	"github.com/Jonathanferreras/watch-the-hutch/internal/service"
)

// EventHandler serves event ingestion and the reconciled current state.
type EventHandler struct {
	events *service.EventService
	logger *slog.Logger
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(events *service.EventService, logger *slog.Logger) *EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{events: events, logger: logger}
}

// ListEvents returns recorded events, newest first. An optional limit query
// parameter caps the result.
// GET /api/v1/events
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 0)
	if limit < 0 {
		limit = 0
	}

	events, err := h.events.ListEvents(r.Context(), limit)
	if err != nil {
		h.logger.Error("list events failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list events")
		return
	}
	writeJSON(w, http.StatusOK, events)
}

// CreateEvent records an event and reconciles the current state. A replayed
// event id answers 200 with the originally stored event.
// POST /api/v1/events
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var e model.Event
	if err := readJSON(w, r, &e); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	stored, created, err := h.events.RecordEvent(r.Context(), e)
	if err != nil {
		if errors.Is(err, service.ErrValidation) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.logger.Error("record event failed", "event_id", e.EventID, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to record event")
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, stored)
}

// CurrentState returns the reconciled bridge state, or JSON null before any
// event has been recorded.
// GET /api/v1/state
func (h *EventHandler) CurrentState(w http.ResponseWriter, r *http.Request) {
	state, err := h.events.CurrentState(r.Context())
	if err != nil {
		h.logger.Error("get current state failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to get current state")
		return
	}
	writeJSON(w, http.StatusOK, state)
}
