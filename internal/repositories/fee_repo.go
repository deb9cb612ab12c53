package repositories

import (
	"context"
	"time"

	"schoolhub/internal/common"
	"schoolhub/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type FeeRepository interface {
	Create(ctx context.Context, fee *models.Fee) error
	Get(ctx context.Context, schoolID, id uuid.UUID) (*models.Fee, error)
	List(ctx context.Context, schoolID uuid.UUID, status string, limit, offset int) ([]*models.Fee, error)
	ListForStudents(ctx context.Context, schoolID uuid.UUID, studentIDs []uuid.UUID) ([]*models.Fee, error)
	MarkPaid(ctx context.Context, schoolID, id uuid.UUID, at time.Time) error
	Summary(ctx context.Context, schoolID uuid.UUID) (*models.FeeSummary, error)

	// MarkOverdue flips unpaid fees due before asOf to overdue in every school
	// and returns the ids it changed.
	MarkOverdue(ctx context.Context, asOf time.Time) ([]uuid.UUID, error)
	OverdueReminders(ctx context.Context, feeIDs []uuid.UUID) ([]*models.OverdueReminder, error)
}

type feeRepo struct {
	db     DBTX
	scoped *Scoped
}

func NewFeeRepo(db DBTX) FeeRepository {
	return &feeRepo{db: db, scoped: NewScoped(db)}
}

func (r *feeRepo) Create(ctx context.Context, fee *models.Fee) error {
	if fee.Status == "" {
		fee.Status = models.FeePending
	}
	id, err := r.scoped.Insert(ctx, "fees", fee.SchoolID, map[string]interface{}{
		"id":         fee.ID,
		"student_id": fee.StudentID,
		"title":      fee.Title,
		"amount":     fee.Amount,
		"due_date":   fee.DueDate,
		"status":     fee.Status,
	})
	if err != nil {
		return err
	}
	fee.ID = id
	return nil
}

func (r *feeRepo) Get(ctx context.Context, schoolID, id uuid.UUID) (*models.Fee, error) {
	return ScopedGet[models.Fee](ctx, r.scoped, "fees", schoolID, id)
}

func (r *feeRepo) List(ctx context.Context, schoolID uuid.UUID, status string, limit, offset int) ([]*models.Fee, error) {
	filter := Filter{}
	if status != "" {
		filter["status"] = status
	}
	return ScopedList[models.Fee](ctx, r.scoped, "fees", schoolID, filter, Page{OrderBy: "due_date", Limit: limit, Offset: offset})
}

func (r *feeRepo) ListForStudents(ctx context.Context, schoolID uuid.UUID, studentIDs []uuid.UUID) ([]*models.Fee, error) {
	if schoolID == uuid.Nil {
		return nil, common.ErrUnscoped
	}
	if len(studentIDs) == 0 {
		return []*models.Fee{}, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT id, school_id, student_id, title, amount, due_date, status, paid_at, created_at
		FROM fees
		WHERE school_id = $1 AND student_id = ANY($2)
		ORDER BY due_date
	`, schoolID, studentIDs)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.Fee])
}

func (r *feeRepo) MarkPaid(ctx context.Context, schoolID, id uuid.UUID, at time.Time) error {
	return r.scoped.Update(ctx, "fees", schoolID, id, map[string]interface{}{
		"status":  models.FeePaid,
		"paid_at": at,
	})
}

func (r *feeRepo) Summary(ctx context.Context, schoolID uuid.UUID) (*models.FeeSummary, error) {
	if schoolID == uuid.Nil {
		return nil, common.ErrUnscoped
	}
	s := &models.FeeSummary{}
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'paid'),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'overdue'),
			COALESCE(SUM(amount), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'paid'), 0),
			COALESCE(SUM(amount) FILTER (WHERE status = 'overdue'), 0)
		FROM fees
		WHERE school_id = $1
	`, schoolID).Scan(&s.TotalCount, &s.PaidCount, &s.PendingCount, &s.OverdueCount, &s.TotalAmount, &s.PaidAmount, &s.OverdueAmount)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *feeRepo) MarkOverdue(ctx context.Context, asOf time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, `
		UPDATE fees SET status = 'overdue'
		WHERE status = 'pending' AND due_date < $1
		RETURNING id
	`, asOf)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}

func (r *feeRepo) OverdueReminders(ctx context.Context, feeIDs []uuid.UUID) ([]*models.OverdueReminder, error) {
	if len(feeIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT f.id AS fee_id, f.school_id, sc.name AS school_name, s.full_name AS student_name,
			f.title, f.amount, f.due_date, p.full_name AS parent_name, p.email AS parent_email
		FROM fees f
		JOIN schools sc ON sc.id = f.school_id
		JOIN students s ON s.id = f.student_id AND s.school_id = f.school_id
		JOIN parent_students ps ON ps.student_id = s.id AND ps.school_id = f.school_id
		JOIN parents p ON p.id = ps.parent_id AND p.school_id = f.school_id
		WHERE f.id = ANY($1) AND p.email IS NOT NULL
		ORDER BY f.school_id, p.email
	`, feeIDs)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[models.OverdueReminder])
}
