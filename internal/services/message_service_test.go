package services

import (
	"context"
	"testing"
	"time"

	"schoolhub/internal/common"
	"schoolhub/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newMessageFixture() (*messageService, *MockMessageRepository, *MockUserRepository) {
	messages := new(MockMessageRepository)
	users := new(MockUserRepository)
	svc := NewMessageService(messages, users).(*messageService)
	svc.now = fixedClock(time.Date(2026, 1, 5, 8, 0, 0, 0, time.UTC))
	return svc, messages, users
}

func TestMessageService_Send(t *testing.T) {
	ctx := context.Background()
	schoolID, sender, recipient := uuid.New(), uuid.New(), uuid.New()

	t.Run("delivers inside the school", func(t *testing.T) {
		svc, messages, users := newMessageFixture()
		conv := &models.Conversation{ID: uuid.New()}
		users.On("GetSchoolID", ctx, recipient).Return(schoolID, true, nil)
		messages.On("GetOrCreateConversation", ctx, schoolID, sender, recipient).Return(conv, nil)
		messages.On("AddMessage", ctx, mock.MatchedBy(func(m *models.Message) bool {
			return m.ConversationID == conv.ID && m.Body == "hello"
		})).Return(nil)

		msg, err := svc.Send(ctx, schoolID, sender, &SendMessageRequest{RecipientID: recipient, Body: " hello "})

		require.NoError(t, err)
		assert.Equal(t, schoolID, msg.SchoolID)
		messages.AssertExpectations(t)
	})

	t.Run("recipient in another school", func(t *testing.T) {
		svc, messages, users := newMessageFixture()
		users.On("GetSchoolID", ctx, recipient).Return(uuid.New(), true, nil)

		_, err := svc.Send(ctx, schoolID, sender, &SendMessageRequest{RecipientID: recipient, Body: "hi"})

		assert.ErrorIs(t, err, common.ErrNotFound)
		messages.AssertNotCalled(t, "GetOrCreateConversation", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("to yourself", func(t *testing.T) {
		svc, _, _ := newMessageFixture()
		_, err := svc.Send(ctx, schoolID, sender, &SendMessageRequest{RecipientID: sender, Body: "hi"})
		assert.ErrorIs(t, err, common.ErrValidation)
	})

	t.Run("unscoped", func(t *testing.T) {
		svc, _, _ := newMessageFixture()
		_, err := svc.Send(ctx, uuid.Nil, sender, &SendMessageRequest{RecipientID: recipient, Body: "hi"})
		assert.ErrorIs(t, err, common.ErrUnscoped)
	})
}

func TestMessageService_ParticipantsOnly(t *testing.T) {
	ctx := context.Background()
	schoolID, a, b := uuid.New(), uuid.New(), uuid.New()
	conv := &models.Conversation{ID: uuid.New(), ParticipantA: a, ParticipantB: b}
	svc, messages, _ := newMessageFixture()
	messages.On("GetConversation", ctx, schoolID, conv.ID).Return(conv, nil)
	messages.On("ListMessages", ctx, schoolID, conv.ID, 50, 0).Return([]*models.Message{{ID: uuid.New()}}, nil)
	messages.On("MarkRead", ctx, schoolID, conv.ID, b, svc.now()).Return(int64(2), nil)

	_, err := svc.ListMessages(ctx, schoolID, uuid.New(), conv.ID, 0, 0)
	assert.ErrorIs(t, err, common.ErrForbidden)

	list, err := svc.ListMessages(ctx, schoolID, a, conv.ID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	n, err := svc.MarkRead(ctx, schoolID, b, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
