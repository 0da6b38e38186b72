package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusgigs/campusgigs-backend/internal/dtos"
	"github.com/campusgigs/campusgigs-backend/internal/services"
	"github.com/campusgigs/campusgigs-backend/internal/ws"
)

// ChatHandler is the HTTP side of messaging: conversation management plus
// the fallback send path. The websocket path lives in internal/ws and
// shares the same ChatService, so both paths have identical side effects.
type ChatHandler struct {
	Chat      *services.ChatService
	Responder *ws.AssistantResponder
}

func NewChatHandler(chat *services.ChatService, responder *ws.AssistantResponder) *ChatHandler {
	return &ChatHandler{Chat: chat, Responder: responder}
}

// OpenConversation is POST /conversations. Get-or-create, safe to retry.
func (h *ChatHandler) OpenConversation(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req dtos.OpenConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	conv, err := h.Chat.GetOrCreateConversation(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, conv)
}

// List is GET /conversations
func (h *ChatHandler) List(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	result, err := h.Chat.ListConversations(c.Request.Context(), actor, pageQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Messages is GET /conversations/:id/messages
func (h *ChatHandler) Messages(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	result, err := h.Chat.GetMessages(c.Request.Context(), actor, id, pageQuery(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Send is POST /messages, the fallback path when the push channel is down.
// It persists with the same side effects as the push path but does not fan
// out; the recipient discovers the message on the next poll or reconnect.
func (h *ChatHandler) Send(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	var req dtos.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	outcome, err := h.Chat.SendMessage(c.Request.Context(), actor, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	if outcome.Duplicate {
		c.JSON(http.StatusOK, outcome.Message)
		return
	}
	h.Responder.Notify(outcome.Message)
	c.JSON(http.StatusCreated, outcome.Message)
}

// MarkAsRead is POST /conversations/:id/read. Safe to call repeatedly.
func (h *ChatHandler) MarkAsRead(c *gin.Context) {
	actor, ok := identity(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	if err := h.Chat.MarkAsRead(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
