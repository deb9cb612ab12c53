package models

import (
	"time"

	"github.com/google/uuid"
)

// Weekdays a timetable slot may fall on.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// IsWeekday reports whether day names a schedulable day.
func IsWeekday(day string) bool {
	for _, d := range Weekdays {
		if d == day {
			return true
		}
	}
	return false
}

// TimetableEntry is one lesson slot. Times are HH:MM wall-clock strings.
type TimetableEntry struct {
	ID        uuid.UUID `json:"id" db:"id"`
	SchoolID  uuid.UUID `json:"school_id" db:"school_id"`
	ClassID   uuid.UUID `json:"class_id" db:"class_id"`
	SubjectID uuid.UUID `json:"subject_id" db:"subject_id"`
	TeacherID uuid.UUID `json:"teacher_id" db:"teacher_id"`
	Day       string    `json:"day" db:"day"`
	StartTime string    `json:"start_time" db:"start_time"`
	EndTime   string    `json:"end_time" db:"end_time"`
	Room      *string   `json:"room,omitempty" db:"room"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Conflict describes why an entry cannot be placed.
type Conflict struct {
	Kind    string     `json:"kind"` // "teacher" or "class"
	Day     string     `json:"day"`
	Start   string     `json:"start_time"`
	End     string     `json:"end_time"`
	EntryID *uuid.UUID `json:"conflicting_entry_id,omitempty"`
	Message string     `json:"message"`
}
