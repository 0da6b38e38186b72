package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	jww "github.com/spf13/jwalterweatherman"

	"github.com/campusgigs/campusgigs-backend/internal/apperr"
	"github.com/campusgigs/campusgigs-backend/internal/auth"
	"github.com/campusgigs/campusgigs-backend/internal/dtos"
	"github.com/campusgigs/campusgigs-backend/internal/services"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// sendBuffer bounds the per-connection queue; a consumer slower than
	// this loses frames instead of stalling fan-out.
	sendBuffer = 64
)

// socket is the subset of *websocket.Conn the client uses; tests substitute
// an in-memory implementation.
type socket interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(string) error)
	Close() error
}

// Client is one live push-channel connection for one authenticated user.
type Client struct {
	hub       *Hub
	chat      *services.ChatService
	responder *AssistantResponder
	identity  auth.Identity
	userID    uint
	conn      socket
	send      chan []byte
}

func NewClient(hub *Hub, chat *services.ChatService, responder *AssistantResponder, identity auth.Identity, conn socket) *Client {
	return &Client{
		hub:       hub,
		chat:      chat,
		responder: responder,
		identity:  identity,
		userID:    identity.UserID,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
	}
}

// Start registers the client with the hub and runs the pumps. Blocks until
// the connection drops.
func (c *Client) Start() {
	c.hub.register(c)
	go c.writePump()
	c.readPump()
}

// inbound is the client-to-server frame. Type selects which fields apply.
type inbound struct {
	Type           string `json:"type"`
	ConversationID uint   `json:"conversation_id"`
	Content        string `json:"content"`
	ClientMsgID    string `json:"client_msg_id"`
	IsTyping       bool   `json:"is_typing"`
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame inbound
		if err := json.Unmarshal(raw, &frame); err != nil {
			c.reply(Envelope{Type: "error", Error: "malformed frame"})
			continue
		}
		c.handle(&frame)
	}
}

func (c *Client) handle(frame *inbound) {
	ctx := context.Background()
	switch frame.Type {
	case "message":
		c.handleMessage(ctx, frame)
	case "typing":
		c.handleTyping(ctx, frame)
	case "read":
		c.handleRead(ctx, frame)
	default:
		c.reply(Envelope{Type: "error", Error: "unknown frame type"})
	}
}

// handleMessage persists the message, acks the sender, fans out to the
// recipient's connections and mirrors to the sender's other connections.
// Fan-out failure is not an error: the row is committed and the recipient
// catches up over HTTP.
func (c *Client) handleMessage(ctx context.Context, frame *inbound) {
	outcome, err := c.chat.SendMessage(ctx, c.identity, &dtos.SendMessageRequest{
		ConversationID: frame.ConversationID,
		Content:        frame.Content,
		ClientMsgID:    frame.ClientMsgID,
	})
	if err != nil {
		c.reply(Envelope{Type: "error", Error: apperr.MessageOf(err)})
		return
	}

	ack, err := NewEnvelope("ack", outcome.Message)
	if err == nil {
		c.reply(ack)
	}
	if outcome.Duplicate {
		return
	}

	env, err := NewEnvelope("message", outcome.Message)
	if err != nil {
		return
	}
	if err := c.hub.SendToUser(outcome.RecipientID, env); err != nil {
		jww.DEBUG.Printf("ws: recipient %d offline, message %d waits for poll", outcome.RecipientID, outcome.Message.ID)
	}
	c.hub.SendToUserExcept(c.userID, c, env)
	c.responder.Notify(outcome.Message)
}

// handleTyping is best-effort presence: no persistence, no retry, no error
// back to the sender. Clients clear their own indicator after a short idle
// window.
func (c *Client) handleTyping(ctx context.Context, frame *inbound) {
	recipientID, err := c.chat.Counterpart(ctx, c.identity, frame.ConversationID)
	if err != nil {
		return
	}
	env, err := NewEnvelope("typing", dtos.TypingEvent{
		ConversationID: frame.ConversationID,
		UserID:         c.userID,
		IsTyping:       frame.IsTyping,
	})
	if err != nil {
		return
	}
	_ = c.hub.SendToUser(recipientID, env)
}

// handleRead acknowledges the conversation; the server state is the source
// of truth, so a reconnecting client just re-issues the call and converges.
func (c *Client) handleRead(ctx context.Context, frame *inbound) {
	if err := c.chat.MarkAsRead(ctx, c.identity, frame.ConversationID); err != nil {
		c.reply(Envelope{Type: "error", Error: apperr.MessageOf(err)})
		return
	}
	env, err := NewEnvelope("read", map[string]uint{
		"conversation_id": frame.ConversationID,
		"reader_id":       c.userID,
	})
	if err != nil {
		return
	}
	recipientID, err := c.chat.Counterpart(ctx, c.identity, frame.ConversationID)
	if err != nil {
		return
	}
	_ = c.hub.SendToUser(recipientID, env)
	c.hub.SendToUserExcept(c.userID, c, env)
}

func (c *Client) reply(env Envelope) {
	frame, err := json.Marshal(env)
	if err != nil {
		return
	}
	select {
	case c.send <- frame:
	default:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
