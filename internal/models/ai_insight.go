package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	InsightTimetable    = "timetable"
	InsightPerformance  = "performance"
	InsightChat         = "chat"
	InsightFeeAnalytics = "fee_analytics"
)

// AIInsight is the persisted output of one AI feature call.
type AIInsight struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	SchoolID    uuid.UUID       `json:"school_id" db:"school_id"`
	Kind        string          `json:"kind" db:"kind"`
	SubjectID   *uuid.UUID      `json:"subject_id,omitempty" db:"subject_id"`
	RequestedBy uuid.UUID       `json:"requested_by" db:"requested_by"`
	Result      json.RawMessage `json:"result" db:"result"`
	Model       string          `json:"model" db:"model"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
}
