package models

import (
	"time"

	"github.com/google/uuid"
)

type Class struct {
	ID             uuid.UUID  `json:"id" db:"id"`
	SchoolID       uuid.UUID  `json:"school_id" db:"school_id"`
	Name           string     `json:"name" db:"name"`
	GradeLevel     *string    `json:"grade_level,omitempty" db:"grade_level"`
	ClassTeacherID *uuid.UUID `json:"class_teacher_id,omitempty" db:"class_teacher_id"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

type Subject struct {
	ID        uuid.UUID  `json:"id" db:"id"`
	SchoolID  uuid.UUID  `json:"school_id" db:"school_id"`
	Name      string     `json:"name" db:"name"`
	Code      *string    `json:"code,omitempty" db:"code"`
	TeacherID *uuid.UUID `json:"teacher_id,omitempty" db:"teacher_id"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}
