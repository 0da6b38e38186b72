package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusgigs/campusgigs-backend/internal/assistant"
)

type AssistantHandler struct {
	Assistant assistant.Assistant
}

func NewAssistantHandler(a assistant.Assistant) *AssistantHandler {
	return &AssistantHandler{Assistant: a}
}

type askRequest struct {
	Question string `json:"question" binding:"required"`
}

// Ask is POST /assistant/ask. Returns 503 when the assistant is not
// configured so clients can hide the feature.
func (h *AssistantHandler) Ask(c *gin.Context) {
	if _, ok := identity(c); !ok {
		return
	}
	if h.Assistant == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "assistant is not enabled"})
		return
	}
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	answer, err := h.Assistant.Reply(c.Request.Context(), req.Question)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "assistant is unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"answer": answer})
}
