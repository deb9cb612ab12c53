package repositories

import (
	"context"

	"schoolhub/internal/common"
	"schoolhub/internal/models"

	"github.com/google/uuid"
)

// TimetableFilter narrows a timetable listing. Nil fields are ignored.
type TimetableFilter struct {
	ClassID   *uuid.UUID
	TeacherID *uuid.UUID
	Day       string
}

type TimetableRepository interface {
	Create(ctx context.Context, entry *models.TimetableEntry) error
	// CreateBatch inserts all entries in one transaction, or none of them.
	CreateBatch(ctx context.Context, schoolID uuid.UUID, entries []*models.TimetableEntry) error
	List(ctx context.Context, schoolID uuid.UUID, filter TimetableFilter) ([]*models.TimetableEntry, error)
	Delete(ctx context.Context, schoolID, id uuid.UUID) error
}

type timetableRepo struct {
	db     Database
	scoped *Scoped
}

func NewTimetableRepo(db Database) TimetableRepository {
	return &timetableRepo{db: db, scoped: NewScoped(db)}
}

func (r *timetableRepo) Create(ctx context.Context, entry *models.TimetableEntry) error {
	return insertEntry(ctx, r.scoped, entry.SchoolID, entry)
}

func (r *timetableRepo) CreateBatch(ctx context.Context, schoolID uuid.UUID, entries []*models.TimetableEntry) error {
	if schoolID == uuid.Nil {
		return common.ErrUnscoped
	}
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	scoped := r.scoped.WithTx(tx)
	for _, entry := range entries {
		if err := insertEntry(ctx, scoped, schoolID, entry); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func insertEntry(ctx context.Context, scoped *Scoped, schoolID uuid.UUID, entry *models.TimetableEntry) error {
	id, err := scoped.Insert(ctx, "timetable_entries", schoolID, map[string]interface{}{
		"id":         entry.ID,
		"class_id":   entry.ClassID,
		"subject_id": entry.SubjectID,
		"teacher_id": entry.TeacherID,
		"day":        entry.Day,
		"start_time": entry.StartTime,
		"end_time":   entry.EndTime,
		"room":       entry.Room,
	})
	if err != nil {
		return err
	}
	entry.ID = id
	entry.SchoolID = schoolID
	return nil
}

func (r *timetableRepo) List(ctx context.Context, schoolID uuid.UUID, filter TimetableFilter) ([]*models.TimetableEntry, error) {
	f := Filter{}
	if filter.ClassID != nil {
		f["class_id"] = *filter.ClassID
	}
	if filter.TeacherID != nil {
		f["teacher_id"] = *filter.TeacherID
	}
	if filter.Day != "" {
		f["day"] = filter.Day
	}
	return ScopedList[models.TimetableEntry](ctx, r.scoped, "timetable_entries", schoolID, f, Page{OrderBy: "start_time"})
}

func (r *timetableRepo) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	return r.scoped.Delete(ctx, "timetable_entries", schoolID, id)
}
