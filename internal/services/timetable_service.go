package services

import (
	"context"
	"errors"

	"schoolhub/internal/common"
	"schoolhub/internal/models"
	"schoolhub/internal/repositories"

	"github.com/google/uuid"
)

type TimetableService interface {
	List(ctx context.Context, schoolID uuid.UUID, filter repositories.TimetableFilter) ([]*models.TimetableEntry, error)
	Create(ctx context.Context, schoolID uuid.UUID, req *TimetableEntryRequest) (*models.TimetableEntry, error)
	// CheckAndCreate places each entry that fits and reports the conflicts of
	// those that do not. Entries in the batch are checked against each other
	// and an entry naming an unknown class, subject or teacher is reported as
	// invalid. With apply, all accepted entries are stored together.
	CheckAndCreate(ctx context.Context, schoolID uuid.UUID, entries []*models.TimetableEntry, apply bool) ([]*models.TimetableEntry, []models.Conflict, error)
	Delete(ctx context.Context, schoolID, id uuid.UUID) error
}

type timetableService struct {
	timetable repositories.TimetableRepository
	classes   repositories.ClassRepository
	people    repositories.PeopleRepository
}

func NewTimetableService(timetable repositories.TimetableRepository, classes repositories.ClassRepository, people repositories.PeopleRepository) TimetableService {
	return &timetableService{timetable: timetable, classes: classes, people: people}
}

type TimetableEntryRequest struct {
	ClassID   uuid.UUID `json:"class_id" validate:"required"`
	SubjectID uuid.UUID `json:"subject_id" validate:"required"`
	TeacherID uuid.UUID `json:"teacher_id" validate:"required"`
	Day       string    `json:"day" validate:"required"`
	StartTime string    `json:"start_time" validate:"required,clock"`
	EndTime   string    `json:"end_time" validate:"required,clock"`
	Room      *string   `json:"room"`
}

func (s *timetableService) List(ctx context.Context, schoolID uuid.UUID, filter repositories.TimetableFilter) ([]*models.TimetableEntry, error) {
	return s.timetable.List(ctx, schoolID, filter)
}

// checkRefs confirms the class, subject and teacher all belong to the school.
func (s *timetableService) checkRefs(ctx context.Context, schoolID uuid.UUID, e *models.TimetableEntry) error {
	if _, err := s.classes.GetClass(ctx, schoolID, e.ClassID); err != nil {
		return err
	}
	if _, err := s.classes.GetSubject(ctx, schoolID, e.SubjectID); err != nil {
		return err
	}
	if _, err := s.people.GetTeacher(ctx, schoolID, e.TeacherID); err != nil {
		return err
	}
	return nil
}

func (s *timetableService) Create(ctx context.Context, schoolID uuid.UUID, req *TimetableEntryRequest) (*models.TimetableEntry, error) {
	entry := &models.TimetableEntry{
		ID:        uuid.New(),
		SchoolID:  schoolID,
		ClassID:   req.ClassID,
		SubjectID: req.SubjectID,
		TeacherID: req.TeacherID,
		Day:       req.Day,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Room:      req.Room,
	}
	if _, _, err := ValidateSlot(entry); err != nil {
		return nil, err
	}
	if err := s.checkRefs(ctx, schoolID, entry); err != nil {
		return nil, err
	}

	booked, err := s.timetable.List(ctx, schoolID, repositories.TimetableFilter{Day: entry.Day})
	if err != nil {
		return nil, err
	}
	conflicts, err := NewConflictChecker(booked).Check(entry)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		return nil, &ScheduleConflictError{Conflicts: conflicts}
	}

	if err := s.timetable.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *timetableService) CheckAndCreate(ctx context.Context, schoolID uuid.UUID, entries []*models.TimetableEntry, apply bool) ([]*models.TimetableEntry, []models.Conflict, error) {
	booked, err := s.timetable.List(ctx, schoolID, repositories.TimetableFilter{})
	if err != nil {
		return nil, nil, err
	}
	checker := NewConflictChecker(booked)

	var (
		accepted  []*models.TimetableEntry
		conflicts []models.Conflict
	)
	for _, e := range entries {
		e.SchoolID = schoolID
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		found, err := checker.Check(e)
		if err != nil {
			conflicts = append(conflicts, invalidEntry(e, err))
			continue
		}
		if len(found) > 0 {
			conflicts = append(conflicts, found...)
			continue
		}
		if err := s.checkRefs(ctx, schoolID, e); err != nil {
			if !errors.Is(err, common.ErrNotFound) {
				return nil, nil, err
			}
			conflicts = append(conflicts, invalidEntry(e, err))
			continue
		}
		checker.Add(e)
		accepted = append(accepted, e)
	}

	if apply {
		if err := s.timetable.CreateBatch(ctx, schoolID, accepted); err != nil {
			return nil, nil, err
		}
	}
	return accepted, conflicts, nil
}

func invalidEntry(e *models.TimetableEntry, err error) models.Conflict {
	return models.Conflict{Kind: "invalid", Day: e.Day, Start: e.StartTime, End: e.EndTime, Message: err.Error()}
}

func (s *timetableService) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	return s.timetable.Delete(ctx, schoolID, id)
}
