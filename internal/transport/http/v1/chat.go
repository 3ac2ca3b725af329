package v1

import (
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/manualmate/orchestrator/internal/domain"
	"github.com/manualmate/orchestrator/internal/service"
)

// PostChat runs one chat turn.
// POST /chat
func (h *Handler) PostChat(c echo.Context) error {
	var req domain.ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Question) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "question is required"})
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = "default"
	}

	ctx := c.Request().Context()

	answer, err := h.service.CompleteTurn(ctx, sessionID, req.Question)
	if err != nil {
		// Provider detail stays in the logs; the client only ever sees the
		// generic apology.
		log.Printf("ERROR: chat turn failed for session %s: %v", sessionID, err)
		return c.JSON(http.StatusInternalServerError, domain.ChatResponse{
			Answer: service.ApologyMessage,
		})
	}

	return c.JSON(http.StatusOK, domain.ChatResponse{Answer: answer})
}
