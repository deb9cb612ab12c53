package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"schoolhub/internal/common"
	"schoolhub/internal/models"
	"schoolhub/internal/repositories"

	"github.com/google/uuid"
)

type MessageService interface {
	Send(ctx context.Context, schoolID, senderID uuid.UUID, req *SendMessageRequest) (*models.Message, error)
	ListConversations(ctx context.Context, schoolID, userID uuid.UUID) ([]*models.Conversation, error)
	ListMessages(ctx context.Context, schoolID, userID, conversationID uuid.UUID, limit, offset int) ([]*models.Message, error)
	MarkRead(ctx context.Context, schoolID, userID, conversationID uuid.UUID) (int64, error)
}

type messageService struct {
	messages repositories.MessageRepository
	users    repositories.UserRepository
	now      func() time.Time
}

func NewMessageService(messages repositories.MessageRepository, users repositories.UserRepository) MessageService {
	return &messageService{messages: messages, users: users, now: time.Now}
}

type SendMessageRequest struct {
	RecipientID uuid.UUID `json:"recipient_id" validate:"required"`
	Body        string    `json:"body" validate:"required,max=5000"`
}

func (s *messageService) Send(ctx context.Context, schoolID, senderID uuid.UUID, req *SendMessageRequest) (*models.Message, error) {
	if schoolID == uuid.Nil {
		return nil, common.ErrUnscoped
	}
	if req.RecipientID == senderID {
		return nil, fmt.Errorf("cannot message yourself: %w", common.ErrValidation)
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, fmt.Errorf("body is required: %w", common.ErrValidation)
	}

	recipientSchool, ok, err := s.users.GetSchoolID(ctx, req.RecipientID)
	if err != nil {
		return nil, err
	}
	if !ok || recipientSchool != schoolID {
		return nil, fmt.Errorf("recipient: %w", common.ErrNotFound)
	}

	conv, err := s.messages.GetOrCreateConversation(ctx, schoolID, senderID, req.RecipientID)
	if err != nil {
		return nil, err
	}
	msg := &models.Message{
		ID:             uuid.New(),
		SchoolID:       schoolID,
		ConversationID: conv.ID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      s.now().UTC(),
	}
	if err := s.messages.AddMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *messageService) ListConversations(ctx context.Context, schoolID, userID uuid.UUID) ([]*models.Conversation, error) {
	return s.messages.ListConversations(ctx, schoolID, userID)
}

// participant loads the conversation and checks userID is one of its two
// parties.
func (s *messageService) participant(ctx context.Context, schoolID, userID, conversationID uuid.UUID) error {
	conv, err := s.messages.GetConversation(ctx, schoolID, conversationID)
	if err != nil {
		return err
	}
	if conv.ParticipantA != userID && conv.ParticipantB != userID {
		return fmt.Errorf("not a participant: %w", common.ErrForbidden)
	}
	return nil
}

func (s *messageService) ListMessages(ctx context.Context, schoolID, userID, conversationID uuid.UUID, limit, offset int) ([]*models.Message, error) {
	if err := s.participant(ctx, schoolID, userID, conversationID); err != nil {
		return nil, err
	}
	limit, offset = common.ValidatePaginationParams(limit, offset)
	return s.messages.ListMessages(ctx, schoolID, conversationID, limit, offset)
}

func (s *messageService) MarkRead(ctx context.Context, schoolID, userID, conversationID uuid.UUID) (int64, error) {
	if err := s.participant(ctx, schoolID, userID, conversationID); err != nil {
		return 0, err
	}
	return s.messages.MarkRead(ctx, schoolID, conversationID, userID, s.now().UTC())
}
