package dtos

import (
	"time"

	"github.com/campusgigs/campusgigs-backend/internal/models"
)

type OpenConversationRequest struct {
	RecipientID uint  `json:"recipient_id" binding:"required"`
	JobPostID   *uint `json:"job_post_id"`
}

type SendMessageRequest struct {
	ConversationID uint   `json:"conversation_id" binding:"required"`
	Content        string `json:"content" binding:"required"`
	// ClientMsgID is the idempotency key for retries across delivery paths.
	// Optional; the server generates one when absent.
	ClientMsgID string `json:"client_msg_id"`
}

// ConversationSummary is one row of the conversation list: the counterpart's
// display name resolved by role, and the caller's own unread count (never
// the counterpart's).
type ConversationSummary struct {
	ID              uint       `json:"id"`
	JobPostID       *uint      `json:"job_post_id,omitempty"`
	CounterpartID   uint       `json:"counterpart_id"`
	CounterpartName string     `json:"counterpart_name"`
	LastMessage     string     `json:"last_message"`
	LastMessageAt   *time.Time `json:"last_message_at,omitempty"`
	UnreadCount     int        `json:"unread_count"`
}

// SendOutcome reports where a persisted message must still be delivered.
type SendOutcome struct {
	Message     *models.Message `json:"message"`
	RecipientID uint            `json:"recipient_id"`
	// Duplicate is true when the idempotency key matched an existing row;
	// no side effects were applied and no fan-out should happen.
	Duplicate bool `json:"duplicate"`
}

type TypingEvent struct {
	ConversationID uint `json:"conversation_id"`
	UserID         uint `json:"user_id"`
	IsTyping       bool `json:"is_typing"`
}
