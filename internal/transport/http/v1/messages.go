package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// GetSessionMessages retrieves the stored history for a session.
// GET /v1/sessions/:session_id/messages
func (h *Handler) GetSessionMessages(c echo.Context) error {
	sessionID := c.Param("session_id")

	ctx := c.Request().Context()

	messages, err := h.service.History(ctx, sessionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"messages": messages,
	})
}

// GetTurnEvents retrieves the trace events for a turn.
// GET /v1/turns/:turn_id/events
func (h *Handler) GetTurnEvents(c echo.Context) error {
	turnID := c.Param("turn_id")

	ctx := c.Request().Context()

	events, err := h.service.TurnEvents(ctx, turnID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"events": events,
	})
}
