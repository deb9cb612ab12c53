package models

import (
	"time"

	"github.com/google/uuid"
)

type Assignment struct {
	ID          uuid.UUID `json:"id" db:"id"`
	SchoolID    uuid.UUID `json:"school_id" db:"school_id"`
	ClassID     uuid.UUID `json:"class_id" db:"class_id"`
	SubjectID   uuid.UUID `json:"subject_id" db:"subject_id"`
	TeacherID   uuid.UUID `json:"teacher_id" db:"teacher_id"`
	Title       string    `json:"title" db:"title"`
	Description *string   `json:"description,omitempty" db:"description"`
	DueDate     time.Time `json:"due_date" db:"due_date"`
	MaxScore    int       `json:"max_score" db:"max_score"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

const (
	SubmissionSubmitted = "submitted"
	SubmissionGraded    = "graded"
)

type Submission struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	SchoolID     uuid.UUID  `json:"school_id" db:"school_id"`
	AssignmentID uuid.UUID  `json:"assignment_id" db:"assignment_id"`
	StudentID    uuid.UUID  `json:"student_id" db:"student_id"`
	Content      *string    `json:"content,omitempty" db:"content"`
	FileKey      *string    `json:"file_key,omitempty" db:"file_key"`
	FileURL      string     `json:"file_url,omitempty" db:"-"`
	Status       string     `json:"status" db:"status"`
	Late         bool       `json:"late" db:"late"`
	Score        *int       `json:"score,omitempty" db:"score"`
	Feedback     *string    `json:"feedback,omitempty" db:"feedback"`
	SubmittedAt  time.Time  `json:"submitted_at" db:"submitted_at"`
	GradedAt     *time.Time `json:"graded_at,omitempty" db:"graded_at"`
}

// GradedResult is a graded submission joined with its assignment, used as AI
// prediction input.
type GradedResult struct {
	Subject  string    `json:"subject" db:"subject"`
	Title    string    `json:"title" db:"title"`
	Score    int       `json:"score" db:"score"`
	MaxScore int       `json:"max_score" db:"max_score"`
	Late     bool      `json:"late" db:"late"`
	DueDate  time.Time `json:"due_date" db:"due_date"`
}
