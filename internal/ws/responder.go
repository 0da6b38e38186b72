package ws

import (
	"context"
	"time"

	jww "github.com/spf13/jwalterweatherman"

	"github.com/campusgigs/campusgigs-backend/internal/assistant"
	"github.com/campusgigs/campusgigs-backend/internal/auth"
	"github.com/campusgigs/campusgigs-backend/internal/dtos"
	"github.com/campusgigs/campusgigs-backend/internal/models"
	"github.com/campusgigs/campusgigs-backend/internal/services"
)

const replyTimeout = 30 * time.Second

// AssistantResponder answers messages addressed to the reserved assistant
// user. Both delivery paths hand it every freshly persisted message; it
// ignores everything not addressed to the assistant. A nil responder
// (assistant disabled) ignores all of them, so callers never nil-check.
type AssistantResponder struct {
	hub       *Hub
	chat      *services.ChatService
	assistant assistant.Assistant
	identity  auth.Identity
}

func NewAssistantResponder(hub *Hub, chat *services.ChatService, a assistant.Assistant, identity auth.Identity) *AssistantResponder {
	if a == nil {
		return nil
	}
	return &AssistantResponder{hub: hub, chat: chat, assistant: a, identity: identity}
}

// Notify offers one persisted message to the responder. The reply is
// generated off the caller's goroutine and arrives like any counterpart
// message: persisted first, then pushed if the asker is connected.
func (r *AssistantResponder) Notify(msg *models.Message) {
	if r == nil || msg == nil || msg.RecipientID != r.identity.UserID {
		return
	}
	go r.respond(msg)
}

func (r *AssistantResponder) respond(in *models.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), replyTimeout)
	defer cancel()

	answer, err := r.assistant.Reply(ctx, in.Content)
	if err != nil {
		jww.WARN.Printf("assistant reply failed for conversation %d: %v", in.ConversationID, err)
		return
	}
	outcome, err := r.chat.SendMessage(ctx, r.identity, &dtos.SendMessageRequest{
		ConversationID: in.ConversationID,
		Content:        answer,
	})
	if err != nil {
		jww.WARN.Printf("assistant send failed for conversation %d: %v", in.ConversationID, err)
		return
	}
	env, err := NewEnvelope("message", outcome.Message)
	if err != nil {
		return
	}
	if err := r.hub.SendToUser(outcome.RecipientID, env); err != nil {
		jww.DEBUG.Printf("ws: recipient %d offline, assistant reply %d waits for poll", outcome.RecipientID, outcome.Message.ID)
	}
}
