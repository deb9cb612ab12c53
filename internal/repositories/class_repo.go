package repositories

import (
	"context"

	"schoolhub/internal/models"

	"github.com/google/uuid"
)

type ClassRepository interface {
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, schoolID, id uuid.UUID) (*models.Class, error)
	ListClasses(ctx context.Context, schoolID uuid.UUID) ([]*models.Class, error)
	UpdateClass(ctx context.Context, class *models.Class) error
	DeleteClass(ctx context.Context, schoolID, id uuid.UUID) error

	CreateSubject(ctx context.Context, subject *models.Subject) error
	GetSubject(ctx context.Context, schoolID, id uuid.UUID) (*models.Subject, error)
	ListSubjects(ctx context.Context, schoolID uuid.UUID) ([]*models.Subject, error)
	UpdateSubject(ctx context.Context, subject *models.Subject) error
	DeleteSubject(ctx context.Context, schoolID, id uuid.UUID) error
}

type classRepo struct {
	scoped *Scoped
}

func NewClassRepo(db DBTX) ClassRepository {
	return &classRepo{scoped: NewScoped(db)}
}

func (r *classRepo) CreateClass(ctx context.Context, class *models.Class) error {
	id, err := r.scoped.Insert(ctx, "classes", class.SchoolID, map[string]interface{}{
		"id":               class.ID,
		"name":             class.Name,
		"grade_level":      class.GradeLevel,
		"class_teacher_id": class.ClassTeacherID,
	})
	if err != nil {
		return err
	}
	class.ID = id
	return nil
}

func (r *classRepo) GetClass(ctx context.Context, schoolID, id uuid.UUID) (*models.Class, error) {
	return ScopedGet[models.Class](ctx, r.scoped, "classes", schoolID, id)
}

func (r *classRepo) ListClasses(ctx context.Context, schoolID uuid.UUID) ([]*models.Class, error) {
	return ScopedList[models.Class](ctx, r.scoped, "classes", schoolID, nil, Page{OrderBy: "name"})
}

func (r *classRepo) UpdateClass(ctx context.Context, class *models.Class) error {
	return r.scoped.Update(ctx, "classes", class.SchoolID, class.ID, map[string]interface{}{
		"name":             class.Name,
		"grade_level":      class.GradeLevel,
		"class_teacher_id": class.ClassTeacherID,
	})
}

func (r *classRepo) DeleteClass(ctx context.Context, schoolID, id uuid.UUID) error {
	return r.scoped.Delete(ctx, "classes", schoolID, id)
}

func (r *classRepo) CreateSubject(ctx context.Context, subject *models.Subject) error {
	id, err := r.scoped.Insert(ctx, "subjects", subject.SchoolID, map[string]interface{}{
		"id":         subject.ID,
		"name":       subject.Name,
		"code":       subject.Code,
		"teacher_id": subject.TeacherID,
	})
	if err != nil {
		return err
	}
	subject.ID = id
	return nil
}

func (r *classRepo) GetSubject(ctx context.Context, schoolID, id uuid.UUID) (*models.Subject, error) {
	return ScopedGet[models.Subject](ctx, r.scoped, "subjects", schoolID, id)
}

func (r *classRepo) ListSubjects(ctx context.Context, schoolID uuid.UUID) ([]*models.Subject, error) {
	return ScopedList[models.Subject](ctx, r.scoped, "subjects", schoolID, nil, Page{OrderBy: "name"})
}

func (r *classRepo) UpdateSubject(ctx context.Context, subject *models.Subject) error {
	return r.scoped.Update(ctx, "subjects", subject.SchoolID, subject.ID, map[string]interface{}{
		"name":       subject.Name,
		"code":       subject.Code,
		"teacher_id": subject.TeacherID,
	})
}

func (r *classRepo) DeleteSubject(ctx context.Context, schoolID, id uuid.UUID) error {
	return r.scoped.Delete(ctx, "subjects", schoolID, id)
}
