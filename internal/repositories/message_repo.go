package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"schoolhub/internal/common"
	"schoolhub/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type MessageRepository interface {
	GetOrCreateConversation(ctx context.Context, schoolID, a, b uuid.UUID) (*models.Conversation, error)
	GetConversation(ctx context.Context, schoolID, id uuid.UUID) (*models.Conversation, error)
	ListConversations(ctx context.Context, schoolID, userID uuid.UUID) ([]*models.Conversation, error)
	AddMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, schoolID, conversationID uuid.UUID, limit, offset int) ([]*models.Message, error)
	MarkRead(ctx context.Context, schoolID, conversationID, readerID uuid.UUID, at time.Time) (int64, error)
}

type messageRepo struct {
	db Database
}

func NewMessageRepo(db Database) MessageRepository {
	return &messageRepo{db: db}
}

const conversationColumns = `id, school_id, participant_a, participant_b, last_message_at, created_at`

// orderedPair stores participants smallest first so a pair maps to one row.
func orderedPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if a.String() > b.String() {
		return b, a
	}
	return a, b
}

func (r *messageRepo) GetOrCreateConversation(ctx context.Context, schoolID, a, b uuid.UUID) (*models.Conversation, error) {
	if schoolID == uuid.Nil {
		return nil, common.ErrUnscoped
	}
	first, second := orderedPair(a, b)
	rows, err := r.db.Query(ctx, `
		INSERT INTO conversations (id, school_id, participant_a, participant_b, last_message_at, created_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		ON CONFLICT (school_id, participant_a, participant_b) DO UPDATE SET participant_a = EXCLUDED.participant_a
		RETURNING `+conversationColumns, uuid.New(), schoolID, first, second)
	if err != nil {
		return nil, err
	}
	return pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.Conversation])
}

func (r *messageRepo) GetConversation(ctx context.Context, schoolID, id uuid.UUID) (*models.Conversation, error) {
	if schoolID == uuid.Nil {
		return nil, common.ErrUnscoped
	}
	rows, err := r.db.Query(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE school_id = $1 AND id = $2`, schoolID, id)
	if err != nil {
		return nil, err
	}
	conv, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.Conversation])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("conversation: %w", common.ErrNotFound)
	}
	return conv, err
}

func (r *messageRepo) ListConversations(ctx context.Context, schoolID, userID uuid.UUID) ([]*models.Conversation, error) {
	if schoolID == uuid.Nil {
		return nil, common.ErrUnscoped
	}
	rows, err := r.db.Query(ctx, `
		SELECT `+conversationColumns+`
		FROM conversations
		WHERE school_id = $1 AND (participant_a = $2 OR participant_b = $2)
		ORDER BY last_message_at DESC
	`, schoolID, userID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.Conversation])
}

// AddMessage stores msg and bumps the conversation's last_message_at.
func (r *messageRepo) AddMessage(ctx context.Context, msg *models.Message) error {
	if msg.SchoolID == uuid.Nil {
		return common.ErrUnscoped
	}
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO messages (id, school_id, conversation_id, sender_id, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, msg.ID, msg.SchoolID, msg.ConversationID, msg.SenderID, msg.Body, msg.CreatedAt)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `UPDATE conversations SET last_message_at = $1 WHERE school_id = $2 AND id = $3`,
		msg.CreatedAt, msg.SchoolID, msg.ConversationID)
	if err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *messageRepo) ListMessages(ctx context.Context, schoolID, conversationID uuid.UUID, limit, offset int) ([]*models.Message, error) {
	if schoolID == uuid.Nil {
		return nil, common.ErrUnscoped
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, school_id, conversation_id, sender_id, body, read_at, created_at
		FROM messages
		WHERE school_id = $1 AND conversation_id = $2
		ORDER BY created_at ASC
		LIMIT $3 OFFSET $4
	`, schoolID, conversationID, limit, offset)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.Message])
}

// MarkRead marks messages sent to reader in the conversation as read.
func (r *messageRepo) MarkRead(ctx context.Context, schoolID, conversationID, readerID uuid.UUID, at time.Time) (int64, error) {
	if schoolID == uuid.Nil {
		return 0, common.ErrUnscoped
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE messages SET read_at = $1
		WHERE school_id = $2 AND conversation_id = $3 AND sender_id <> $4 AND read_at IS NULL
	`, at, schoolID, conversationID, readerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
