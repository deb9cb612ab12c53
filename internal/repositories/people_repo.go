package repositories

import (
	"context"
	"errors"
	"fmt"

	"schoolhub/internal/common"
	"schoolhub/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type PeopleRepository interface {
	CreateTeacher(ctx context.Context, schoolID uuid.UUID, teacher *models.Teacher) error
	GetTeacher(ctx context.Context, schoolID, id uuid.UUID) (*models.Teacher, error)
	TeacherByUser(ctx context.Context, schoolID, userID uuid.UUID) (*models.Teacher, error)
	ListTeachers(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*models.Teacher, error)

	CreateStudent(ctx context.Context, schoolID uuid.UUID, student *models.Student) error
	GetStudent(ctx context.Context, schoolID, id uuid.UUID) (*models.Student, error)
	StudentByUser(ctx context.Context, schoolID, userID uuid.UUID) (*models.Student, error)
	ListStudents(ctx context.Context, schoolID uuid.UUID, classID *uuid.UUID, limit, offset int) ([]*models.Student, error)

	CreateParent(ctx context.Context, schoolID uuid.UUID, parent *models.Parent, studentIDs []uuid.UUID) error
	ParentByUser(ctx context.Context, schoolID, userID uuid.UUID) (*models.Parent, error)
	ChildrenOf(ctx context.Context, schoolID, parentID uuid.UUID) ([]*models.Student, error)
}

type peopleRepo struct {
	db     Database
	scoped *Scoped
}

func NewPeopleRepo(db Database) PeopleRepository {
	return &peopleRepo{db: db, scoped: NewScoped(db)}
}

func (r *peopleRepo) CreateTeacher(ctx context.Context, schoolID uuid.UUID, teacher *models.Teacher) error {
	id, err := r.scoped.Insert(ctx, "teachers", schoolID, map[string]interface{}{
		"id":             teacher.ID,
		"user_id":        teacher.UserID,
		"full_name":      teacher.FullName,
		"email":          teacher.Email,
		"specialization": teacher.Specialization,
	})
	if err != nil {
		return err
	}
	teacher.ID = id
	teacher.SchoolID = schoolID
	return nil
}

func (r *peopleRepo) GetTeacher(ctx context.Context, schoolID, id uuid.UUID) (*models.Teacher, error) {
	return ScopedGet[models.Teacher](ctx, r.scoped, "teachers", schoolID, id)
}

func (r *peopleRepo) TeacherByUser(ctx context.Context, schoolID, userID uuid.UUID) (*models.Teacher, error) {
	return ScopedFind[models.Teacher](ctx, r.scoped, "teachers", schoolID, Filter{"user_id": userID})
}

func (r *peopleRepo) ListTeachers(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*models.Teacher, error) {
	return ScopedList[models.Teacher](ctx, r.scoped, "teachers", schoolID, nil, Page{OrderBy: "full_name", Limit: limit, Offset: offset})
}

// CreateStudent inserts the student and binds a linked identity to the
// school in one transaction.
func (r *peopleRepo) CreateStudent(ctx context.Context, schoolID uuid.UUID, student *models.Student) error {
	if schoolID == uuid.Nil {
		return common.ErrUnscoped
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := linkUser(ctx, tx, schoolID, student.UserID); err != nil {
		return err
	}
	id, err := r.scoped.WithTx(tx).Insert(ctx, "students", schoolID, map[string]interface{}{
		"id":            student.ID,
		"user_id":       student.UserID,
		"full_name":     student.FullName,
		"email":         student.Email,
		"class_id":      student.ClassID,
		"admission_no":  student.AdmissionNo,
		"date_of_birth": student.DateOfBirth,
	})
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	student.ID = id
	student.SchoolID = schoolID
	return nil
}

func (r *peopleRepo) GetStudent(ctx context.Context, schoolID, id uuid.UUID) (*models.Student, error) {
	return ScopedGet[models.Student](ctx, r.scoped, "students", schoolID, id)
}

func (r *peopleRepo) StudentByUser(ctx context.Context, schoolID, userID uuid.UUID) (*models.Student, error) {
	return ScopedFind[models.Student](ctx, r.scoped, "students", schoolID, Filter{"user_id": userID})
}

func (r *peopleRepo) ListStudents(ctx context.Context, schoolID uuid.UUID, classID *uuid.UUID, limit, offset int) ([]*models.Student, error) {
	filter := Filter{}
	if classID != nil {
		filter["class_id"] = *classID
	}
	return ScopedList[models.Student](ctx, r.scoped, "students", schoolID, filter, Page{OrderBy: "full_name", Limit: limit, Offset: offset})
}

// CreateParent inserts the parent and its links to students of the same
// school. A student id from another school fails the whole insert.
func (r *peopleRepo) CreateParent(ctx context.Context, schoolID uuid.UUID, parent *models.Parent, studentIDs []uuid.UUID) error {
	if schoolID == uuid.Nil {
		return common.ErrUnscoped
	}
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := linkUser(ctx, tx, schoolID, parent.UserID); err != nil {
		return err
	}
	id, err := r.scoped.WithTx(tx).Insert(ctx, "parents", schoolID, map[string]interface{}{
		"id":        parent.ID,
		"user_id":   parent.UserID,
		"full_name": parent.FullName,
		"email":     parent.Email,
		"phone":     parent.Phone,
	})
	if err != nil {
		return err
	}

	for _, studentID := range studentIDs {
		tag, err := tx.Exec(ctx, `
			INSERT INTO parent_students (parent_id, student_id, school_id)
			SELECT $1, s.id, s.school_id FROM students s WHERE s.id = $2 AND s.school_id = $3
		`, id, studentID, schoolID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("student %s: %w", studentID, common.ErrNotFound)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	parent.ID = id
	parent.SchoolID = schoolID
	return nil
}

func (r *peopleRepo) ParentByUser(ctx context.Context, schoolID, userID uuid.UUID) (*models.Parent, error) {
	return ScopedFind[models.Parent](ctx, r.scoped, "parents", schoolID, Filter{"user_id": userID})
}

func (r *peopleRepo) ChildrenOf(ctx context.Context, schoolID, parentID uuid.UUID) ([]*models.Student, error) {
	rows, err := r.db.Query(ctx, `
		SELECT s.id, s.school_id, s.user_id, s.full_name, s.email, s.class_id, s.admission_no, s.date_of_birth, s.created_at
		FROM students s
		JOIN parent_students ps ON ps.student_id = s.id
		WHERE ps.parent_id = $1 AND s.school_id = $2
		ORDER BY s.full_name
	`, parentID, schoolID)
	if err != nil {
		return nil, err
	}
	students, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.Student])
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}
	return students, nil
}

const (
	lockUserSQL  = `SELECT school_id FROM users WHERE id = $1 FOR UPDATE`
	claimUserSQL = `UPDATE users SET school_id = $1, updated_at = NOW() WHERE id = $2 AND school_id IS NULL`
)

// linkUser checks that an identity may take a new profile in schoolID and
// stores the school on it when it has none yet. An identity bound to another
// school, or one that already holds a profile anywhere, is a conflict.
func linkUser(ctx context.Context, db DBTX, schoolID uuid.UUID, userID *uuid.UUID) error {
	if userID == nil {
		return nil
	}
	var stored *uuid.UUID
	err := db.QueryRow(ctx, lockUserSQL, *userID).Scan(&stored)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("user %s: %w", *userID, common.ErrNotFound)
	}
	if err != nil {
		return err
	}
	if stored != nil && *stored != schoolID {
		return fmt.Errorf("user %s belongs to another school: %w", *userID, common.ErrConflict)
	}

	held, err := holdsProfile(ctx, db, *userID)
	if err != nil {
		return err
	}
	if held {
		return fmt.Errorf("user %s already has a profile: %w", *userID, common.ErrConflict)
	}

	if stored == nil {
		if _, err := db.Exec(ctx, claimUserSQL, schoolID, *userID); err != nil {
			return err
		}
	}
	return nil
}
