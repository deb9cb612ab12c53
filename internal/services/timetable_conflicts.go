package services

import (
	"fmt"

	"schoolhub/internal/common"
	"schoolhub/internal/models"

	"github.com/google/uuid"
)

// ScheduleConflictError carries every clash found for a proposed entry.
type ScheduleConflictError struct {
	Conflicts []models.Conflict
}

func (e *ScheduleConflictError) Error() string {
	return fmt.Sprintf("timetable entry conflicts with %d existing slot(s)", len(e.Conflicts))
}

func (e *ScheduleConflictError) Unwrap() error {
	return common.ErrConflict
}

type slot struct {
	start   int
	end     int
	entryID uuid.UUID
	label   string
}

// ConflictChecker indexes booked slots by teacher and by class per day.
// Slots are half-open, so back-to-back lessons do not clash.
type ConflictChecker struct {
	teacher map[string][]slot
	class   map[string][]slot
}

func NewConflictChecker(entries []*models.TimetableEntry) *ConflictChecker {
	c := &ConflictChecker{teacher: map[string][]slot{}, class: map[string][]slot{}}
	for _, e := range entries {
		c.Add(e)
	}
	return c
}

func dayKey(id uuid.UUID, day string) string {
	return id.String() + "|" + day
}

// clockMinutes converts HH:MM to minutes after midnight.
func clockMinutes(s string) (int, error) {
	if !common.IsClock(s) {
		return 0, fmt.Errorf("time %q must be HH:MM: %w", s, common.ErrValidation)
	}
	return int(s[0]-'0')*600 + int(s[1]-'0')*60 + int(s[3]-'0')*10 + int(s[4]-'0'), nil
}

// ValidateSlot checks the day and the start/end times of an entry.
func ValidateSlot(e *models.TimetableEntry) (int, int, error) {
	if !models.IsWeekday(e.Day) {
		return 0, 0, fmt.Errorf("day %q must be one of Monday..Saturday: %w", e.Day, common.ErrValidation)
	}
	start, err := clockMinutes(e.StartTime)
	if err != nil {
		return 0, 0, err
	}
	end, err := clockMinutes(e.EndTime)
	if err != nil {
		return 0, 0, err
	}
	if start >= end {
		return 0, 0, fmt.Errorf("start_time must be before end_time: %w", common.ErrValidation)
	}
	return start, end, nil
}

// Add books e. Invalid entries are ignored.
func (c *ConflictChecker) Add(e *models.TimetableEntry) {
	start, end, err := ValidateSlot(e)
	if err != nil {
		return
	}
	label := e.StartTime + "-" + e.EndTime
	tk, ck := dayKey(e.TeacherID, e.Day), dayKey(e.ClassID, e.Day)
	c.teacher[tk] = append(c.teacher[tk], slot{start: start, end: end, entryID: e.ID, label: label})
	c.class[ck] = append(c.class[ck], slot{start: start, end: end, entryID: e.ID, label: label})
}

// Check returns the clashes e would cause, or an error when e itself is
// malformed.
func (c *ConflictChecker) Check(e *models.TimetableEntry) ([]models.Conflict, error) {
	start, end, err := ValidateSlot(e)
	if err != nil {
		return nil, err
	}
	var conflicts []models.Conflict
	collect := func(kind string, booked []slot) {
		for _, s := range booked {
			if start < s.end && s.start < end {
				id := s.entryID
				conflicts = append(conflicts, models.Conflict{
					Kind:    kind,
					Day:     e.Day,
					Start:   e.StartTime,
					End:     e.EndTime,
					EntryID: &id,
					Message: fmt.Sprintf("%s is already booked on %s %s", kind, e.Day, s.label),
				})
			}
		}
	}
	collect("teacher", c.teacher[dayKey(e.TeacherID, e.Day)])
	collect("class", c.class[dayKey(e.ClassID, e.Day)])
	return conflicts, nil
}
