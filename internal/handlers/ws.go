package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/campusgigs/campusgigs-backend/internal/auth"
	"github.com/campusgigs/campusgigs-backend/internal/services"
	"github.com/campusgigs/campusgigs-backend/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Cross-origin policy is enforced at the CORS layer.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHandler upgrades GET /ws into a push-channel connection. Browsers
// cannot set headers on websocket dials, so the token rides in the query.
type WSHandler struct {
	Hub       *ws.Hub
	Chat      *services.ChatService
	Responder *ws.AssistantResponder
	Tokens    *auth.TokenProvider
}

func NewWSHandler(hub *ws.Hub, chat *services.ChatService, responder *ws.AssistantResponder, tokens *auth.TokenProvider) *WSHandler {
	return &WSHandler{Hub: hub, Chat: chat, Responder: responder, Tokens: tokens}
}

func (h *WSHandler) Connect(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	actor, err := h.Tokens.Parse(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		jww.WARN.Printf("ws upgrade failed for user %d: %v", actor.UserID, err)
		return
	}
	client := ws.NewClient(h.Hub, h.Chat, h.Responder, *actor, conn)
	client.Start()
}
