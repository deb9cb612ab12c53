package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is a two-party thread between users of the same school.
type Conversation struct {
	ID            uuid.UUID `json:"id" db:"id"`
	SchoolID      uuid.UUID `json:"school_id" db:"school_id"`
	ParticipantA  uuid.UUID `json:"participant_a" db:"participant_a"`
	ParticipantB  uuid.UUID `json:"participant_b" db:"participant_b"`
	LastMessageAt time.Time `json:"last_message_at" db:"last_message_at"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type Message struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	SchoolID       uuid.UUID  `json:"school_id" db:"school_id"`
	ConversationID uuid.UUID  `json:"conversation_id" db:"conversation_id"`
	SenderID       uuid.UUID  `json:"sender_id" db:"sender_id"`
	Body           string     `json:"body" db:"body"`
	ReadAt         *time.Time `json:"read_at,omitempty" db:"read_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}
