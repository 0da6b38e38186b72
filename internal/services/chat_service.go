package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campusgigs/campusgigs-backend/internal/apperr"
	"github.com/campusgigs/campusgigs-backend/internal/auth"
	"github.com/campusgigs/campusgigs-backend/internal/dtos"
	"github.com/campusgigs/campusgigs-backend/internal/models"
)

// ChatService owns conversation identity and message persistence. Delivery
// (websocket fan-out vs HTTP polling) is the caller's concern; both paths
// call the same persistence methods, so a logical send produces exactly one
// message row regardless of which path carried it.
type ChatService struct {
	DB *gorm.DB
}

func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{DB: db}
}

// GetOrCreateConversation returns the single thread between the caller and
// the recipient, creating it on first contact. Idempotent under concurrent
// first contact from both sides: the unique pair index plus a re-fetch on
// duplicate-key closes the check-then-insert race.
func (s *ChatService) GetOrCreateConversation(ctx context.Context, actor auth.Identity, req *dtos.OpenConversationRequest) (*models.Conversation, error) {
	if req.RecipientID == actor.UserID {
		return nil, apperr.InvalidInput("cannot open a conversation with yourself")
	}

	caller, err := s.loadUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	recipient, err := s.loadUser(ctx, req.RecipientID)
	if err != nil {
		return nil, err
	}

	employerID, studentID, err := pairByRole(caller, recipient)
	if err != nil {
		return nil, err
	}

	var conv models.Conversation
	err = s.DB.WithContext(ctx).
		Where("employer_id = ? AND student_id = ?", employerID, studentID).
		First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.Internal("failed to load conversation", err)
	}

	conv = models.Conversation{
		EmployerID: employerID,
		StudentID:  studentID,
		JobPostID:  req.JobPostID,
	}
	writeCtx := context.WithoutCancel(ctx)
	if err := s.DB.WithContext(writeCtx).Create(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race to the other side; theirs is the conversation.
			var existing models.Conversation
			if err := s.DB.WithContext(ctx).
				Where("employer_id = ? AND student_id = ?", employerID, studentID).
				First(&existing).Error; err != nil {
				return nil, apperr.Internal("failed to load conversation", err)
			}
			return &existing, nil
		}
		return nil, apperr.Internal("failed to create conversation", err)
	}
	return &conv, nil
}

// SendMessage persists one message and updates the conversation's
// last-message cache and the recipient's unread counter in the same
// transaction. A resend carrying an already-seen client_msg_id returns the
// existing row with no side effects.
func (s *ChatService) SendMessage(ctx context.Context, actor auth.Identity, req *dtos.SendMessageRequest) (*dtos.SendOutcome, error) {
	conv, err := s.loadConversation(ctx, req.ConversationID)
	if err != nil {
		return nil, err
	}
	recipientID, err := counterpart(conv, actor.UserID)
	if err != nil {
		return nil, err
	}
	if req.Content == "" {
		return nil, apperr.InvalidInput("message content is required")
	}

	clientMsgID := req.ClientMsgID
	if clientMsgID == "" {
		clientMsgID = uuid.NewString()
	}

	msg := models.Message{
		ConversationID: conv.ID,
		SenderID:       actor.UserID,
		RecipientID:    recipientID,
		Content:        req.Content,
		ClientMsgID:    clientMsgID,
	}

	now := time.Now().UTC()
	unreadColumn := "student_unread"
	if recipientID == conv.EmployerID {
		unreadColumn = "employer_unread"
	}

	writeCtx := context.WithoutCancel(ctx)
	err = s.DB.WithContext(writeCtx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).Where("id = ?", conv.ID).Updates(map[string]interface{}{
			"last_message":    req.Content,
			"last_message_at": now,
			unreadColumn:      gorm.Expr(unreadColumn+" + ?", 1),
		}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			var existing models.Message
			if err := s.DB.WithContext(ctx).Where("client_msg_id = ?", clientMsgID).First(&existing).Error; err != nil {
				return nil, apperr.Internal("failed to load message", err)
			}
			if existing.SenderID != actor.UserID || existing.ConversationID != conv.ID {
				return nil, apperr.Conflict("client message id already used")
			}
			return &dtos.SendOutcome{Message: &existing, RecipientID: recipientID, Duplicate: true}, nil
		}
		return nil, apperr.Internal("failed to send message", err)
	}
	return &dtos.SendOutcome{Message: &msg, RecipientID: recipientID}, nil
}

// MarkAsRead flips every unread message addressed to the caller in this
// conversation and resets the caller's unread counter. Idempotent; the
// counterpart's counter is never touched.
func (s *ChatService) MarkAsRead(ctx context.Context, actor auth.Identity, conversationID uint) error {
	conv, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		return err
	}
	if _, err := counterpart(conv, actor.UserID); err != nil {
		return err
	}

	unreadColumn := "student_unread"
	if actor.UserID == conv.EmployerID {
		unreadColumn = "employer_unread"
	}

	writeCtx := context.WithoutCancel(ctx)
	err = s.DB.WithContext(writeCtx).Transaction(func(tx *gorm.DB) error {
		err := tx.Model(&models.Message{}).
			Where("conversation_id = ? AND recipient_id = ? AND is_read = ?", conv.ID, actor.UserID, false).
			UpdateColumn("is_read", true).Error
		if err != nil {
			return err
		}
		return tx.Model(&models.Conversation{}).Where("id = ?", conv.ID).
			UpdateColumn(unreadColumn, 0).Error
	})
	if err != nil {
		return apperr.Internal("failed to mark conversation as read", err)
	}
	return nil
}

// ListConversations pages the caller's threads by recency, with the
// counterpart's display name and the caller's own unread count.
func (s *ChatService) ListConversations(ctx context.Context, actor auth.Identity, page dtos.PageRequest) (*dtos.PagedResult[dtos.ConversationSummary], error) {
	base := s.DB.WithContext(ctx).Model(&models.Conversation{}).
		Where("employer_id = ? OR student_id = ?", actor.UserID, actor.UserID)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, apperr.Internal("failed to count conversations", err)
	}

	pageNum, limit := page.Normalize()
	var convs []models.Conversation
	err := s.DB.WithContext(ctx).
		Where("employer_id = ? OR student_id = ?", actor.UserID, actor.UserID).
		Order("last_message_at DESC NULLS LAST, id DESC").
		Limit(limit).
		Offset(page.Offset()).
		Find(&convs).Error
	if err != nil {
		return nil, apperr.Internal("failed to list conversations", err)
	}

	counterpartIDs := make([]uint, 0, len(convs))
	for _, conv := range convs {
		id, _ := counterpart(&conv, actor.UserID)
		counterpartIDs = append(counterpartIDs, id)
	}
	names := map[uint]string{}
	if len(counterpartIDs) > 0 {
		var users []models.User
		if err := s.DB.WithContext(ctx).Where("id IN ?", counterpartIDs).Find(&users).Error; err != nil {
			return nil, apperr.Internal("failed to load conversation users", err)
		}
		for _, u := range users {
			names[u.ID] = u.DisplayName
		}
	}

	items := make([]dtos.ConversationSummary, 0, len(convs))
	for _, conv := range convs {
		counterpartID, _ := counterpart(&conv, actor.UserID)
		unread := conv.StudentUnread
		if actor.UserID == conv.EmployerID {
			unread = conv.EmployerUnread
		}
		items = append(items, dtos.ConversationSummary{
			ID:              conv.ID,
			JobPostID:       conv.JobPostID,
			CounterpartID:   counterpartID,
			CounterpartName: names[counterpartID],
			LastMessage:     conv.LastMessage,
			LastMessageAt:   conv.LastMessageAt,
			UnreadCount:     unread,
		})
	}
	return &dtos.PagedResult[dtos.ConversationSummary]{Items: items, Total: total, Page: pageNum, Limit: limit}, nil
}

// GetMessages pages a conversation's messages, newest first. Only
// participants may read.
func (s *ChatService) GetMessages(ctx context.Context, actor auth.Identity, conversationID uint, page dtos.PageRequest) (*dtos.PagedResult[models.Message], error) {
	conv, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if _, err := counterpart(conv, actor.UserID); err != nil {
		return nil, err
	}

	var total int64
	if err := s.DB.WithContext(ctx).Model(&models.Message{}).Where("conversation_id = ?", conv.ID).Count(&total).Error; err != nil {
		return nil, apperr.Internal("failed to count messages", err)
	}
	pageNum, limit := page.Normalize()
	var items []models.Message
	err = s.DB.WithContext(ctx).
		Where("conversation_id = ?", conv.ID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(page.Offset()).
		Find(&items).Error
	if err != nil {
		return nil, apperr.Internal("failed to list messages", err)
	}
	return &dtos.PagedResult[models.Message]{Items: items, Total: total, Page: pageNum, Limit: limit}, nil
}

// Counterpart resolves the other participant for presence broadcasts
// (typing, read receipts). Fails if the caller is not a participant.
func (s *ChatService) Counterpart(ctx context.Context, actor auth.Identity, conversationID uint) (uint, error) {
	conv, err := s.loadConversation(ctx, conversationID)
	if err != nil {
		return 0, err
	}
	return counterpart(conv, actor.UserID)
}

func (s *ChatService) loadConversation(ctx context.Context, id uint) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.DB.WithContext(ctx).First(&conv, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("conversation not found")
		}
		return nil, apperr.Internal("failed to load conversation", err)
	}
	return &conv, nil
}

func (s *ChatService) loadUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.DB.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("failed to load user", err)
	}
	return &u, nil
}

// pairByRole orders the two users as (employer, student); a conversation
// needs exactly one of each.
func pairByRole(a, b *models.User) (employerID, studentID uint, err error) {
	switch {
	case a.Role == models.RoleEmployer && b.Role == models.RoleSeeker:
		return a.ID, b.ID, nil
	case a.Role == models.RoleSeeker && b.Role == models.RoleEmployer:
		return b.ID, a.ID, nil
	default:
		return 0, 0, apperr.InvalidInput("a conversation requires one employer and one seeker")
	}
}

func counterpart(conv *models.Conversation, userID uint) (uint, error) {
	switch userID {
	case conv.EmployerID:
		return conv.StudentID, nil
	case conv.StudentID:
		return conv.EmployerID, nil
	default:
		return 0, apperr.Forbidden("you are not a participant in this conversation")
	}
}
