package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"schoolhub/internal/common"
	"schoolhub/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type AssignmentRepository interface {
	Create(ctx context.Context, assignment *models.Assignment) error
	Get(ctx context.Context, schoolID, id uuid.UUID) (*models.Assignment, error)
	ListByClass(ctx context.Context, schoolID, classID uuid.UUID) ([]*models.Assignment, error)
	ListByTeacher(ctx context.Context, schoolID, teacherID uuid.UUID) ([]*models.Assignment, error)
	Delete(ctx context.Context, schoolID, id uuid.UUID) error

	// FindSubmission returns the student's submission for an assignment.
	FindSubmission(ctx context.Context, schoolID, assignmentID, studentID uuid.UUID) (*models.Submission, error)
	// UpsertSubmission records a student's submission. Resubmitting replaces
	// the previous one unless it was already graded.
	UpsertSubmission(ctx context.Context, submission *models.Submission) error
	GetSubmission(ctx context.Context, schoolID, id uuid.UUID) (*models.Submission, error)
	ListSubmissions(ctx context.Context, schoolID, assignmentID uuid.UUID) ([]*models.Submission, error)
	ListStudentSubmissions(ctx context.Context, schoolID, studentID uuid.UUID) ([]*models.Submission, error)
	Grade(ctx context.Context, schoolID, id uuid.UUID, score int, feedback *string, at time.Time) error
	GradedResults(ctx context.Context, schoolID, studentID uuid.UUID) ([]*models.GradedResult, error)
}

type assignmentRepo struct {
	db     DBTX
	scoped *Scoped
}

func NewAssignmentRepo(db DBTX) AssignmentRepository {
	return &assignmentRepo{db: db, scoped: NewScoped(db)}
}

func (r *assignmentRepo) Create(ctx context.Context, a *models.Assignment) error {
	id, err := r.scoped.Insert(ctx, "assignments", a.SchoolID, map[string]interface{}{
		"id":          a.ID,
		"class_id":    a.ClassID,
		"subject_id":  a.SubjectID,
		"teacher_id":  a.TeacherID,
		"title":       a.Title,
		"description": a.Description,
		"due_date":    a.DueDate,
		"max_score":   a.MaxScore,
	})
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}

func (r *assignmentRepo) Get(ctx context.Context, schoolID, id uuid.UUID) (*models.Assignment, error) {
	return ScopedGet[models.Assignment](ctx, r.scoped, "assignments", schoolID, id)
}

func (r *assignmentRepo) ListByClass(ctx context.Context, schoolID, classID uuid.UUID) ([]*models.Assignment, error) {
	return ScopedList[models.Assignment](ctx, r.scoped, "assignments", schoolID, Filter{"class_id": classID}, Page{OrderBy: "due_date"})
}

func (r *assignmentRepo) ListByTeacher(ctx context.Context, schoolID, teacherID uuid.UUID) ([]*models.Assignment, error) {
	return ScopedList[models.Assignment](ctx, r.scoped, "assignments", schoolID, Filter{"teacher_id": teacherID}, Page{OrderBy: "due_date"})
}

func (r *assignmentRepo) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	return r.scoped.Delete(ctx, "assignments", schoolID, id)
}

const submissionColumns = `id, school_id, assignment_id, student_id, content, file_key, status, late, score, feedback, submitted_at, graded_at`

func (r *assignmentRepo) UpsertSubmission(ctx context.Context, s *models.Submission) error {
	if s.SchoolID == uuid.Nil {
		return common.ErrUnscoped
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	query := `
		INSERT INTO submissions (id, school_id, assignment_id, student_id, content, file_key, status, late, submitted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (assignment_id, student_id) DO UPDATE
		SET content = EXCLUDED.content, file_key = EXCLUDED.file_key, late = EXCLUDED.late, submitted_at = EXCLUDED.submitted_at
		WHERE submissions.status <> 'graded' AND submissions.school_id = EXCLUDED.school_id
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		s.ID, s.SchoolID, s.AssignmentID, s.StudentID, s.Content, s.FileKey,
		models.SubmissionSubmitted, s.Late, s.SubmittedAt,
	).Scan(&s.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("submission already graded: %w", common.ErrConflict)
	}
	if err != nil {
		return err
	}
	s.Status = models.SubmissionSubmitted
	return nil
}

func (r *assignmentRepo) GetSubmission(ctx context.Context, schoolID, id uuid.UUID) (*models.Submission, error) {
	return r.oneSubmission(ctx, schoolID, `id = $2`, id)
}

func (r *assignmentRepo) FindSubmission(ctx context.Context, schoolID, assignmentID, studentID uuid.UUID) (*models.Submission, error) {
	return r.oneSubmission(ctx, schoolID, `assignment_id = $2 AND student_id = $3`, assignmentID, studentID)
}

func (r *assignmentRepo) oneSubmission(ctx context.Context, schoolID uuid.UUID, where string, args ...interface{}) (*models.Submission, error) {
	if schoolID == uuid.Nil {
		return nil, common.ErrUnscoped
	}
	rows, err := r.db.Query(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE school_id = $1 AND `+where, append([]interface{}{schoolID}, args...)...)
	if err != nil {
		return nil, err
	}
	sub, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[models.Submission])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("submission: %w", common.ErrNotFound)
	}
	return sub, err
}

func (r *assignmentRepo) listSubmissions(ctx context.Context, schoolID uuid.UUID, column string, value uuid.UUID) ([]*models.Submission, error) {
	if schoolID == uuid.Nil {
		return nil, common.ErrUnscoped
	}
	query := fmt.Sprintf(`SELECT %s FROM submissions WHERE school_id = $1 AND %s = $2 ORDER BY submitted_at DESC`, submissionColumns, ident(column))
	rows, err := r.db.Query(ctx, query, schoolID, value)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.Submission])
}

func (r *assignmentRepo) ListSubmissions(ctx context.Context, schoolID, assignmentID uuid.UUID) ([]*models.Submission, error) {
	return r.listSubmissions(ctx, schoolID, "assignment_id", assignmentID)
}

func (r *assignmentRepo) ListStudentSubmissions(ctx context.Context, schoolID, studentID uuid.UUID) ([]*models.Submission, error) {
	return r.listSubmissions(ctx, schoolID, "student_id", studentID)
}

func (r *assignmentRepo) Grade(ctx context.Context, schoolID, id uuid.UUID, score int, feedback *string, at time.Time) error {
	if schoolID == uuid.Nil {
		return common.ErrUnscoped
	}
	tag, err := r.db.Exec(ctx, `
		UPDATE submissions
		SET score = $1, feedback = $2, status = $3, graded_at = $4
		WHERE school_id = $5 AND id = $6
	`, score, feedback, models.SubmissionGraded, at, schoolID, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("submission %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *assignmentRepo) GradedResults(ctx context.Context, schoolID, studentID uuid.UUID) ([]*models.GradedResult, error) {
	if schoolID == uuid.Nil {
		return nil, common.ErrUnscoped
	}
	rows, err := r.db.Query(ctx, `
		SELECT sub.name AS subject, a.title, s.score, a.max_score, s.late, a.due_date
		FROM submissions s
		JOIN assignments a ON a.id = s.assignment_id AND a.school_id = s.school_id
		JOIN subjects sub ON sub.id = a.subject_id AND sub.school_id = a.school_id
		WHERE s.school_id = $1 AND s.student_id = $2 AND s.status = 'graded' AND s.score IS NOT NULL
		ORDER BY a.due_date
	`, schoolID, studentID)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.GradedResult])
}
