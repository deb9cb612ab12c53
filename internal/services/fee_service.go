package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"schoolhub/internal/common"
	"schoolhub/internal/models"
	"schoolhub/internal/notify"
	"schoolhub/internal/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FeeAnalyticsInvalidator drops the cached AI fee analytics of a school.
type FeeAnalyticsInvalidator interface {
	InvalidateFeeAnalytics(ctx context.Context, schoolID uuid.UUID) error
}

// OverdueRun is the outcome of one overdue sweep.
type OverdueRun struct {
	Marked        int `json:"marked"`
	RemindersSent int `json:"reminders_sent"`
	Failed        int `json:"failed"`
}

type FeeService interface {
	Create(ctx context.Context, schoolID uuid.UUID, req *CreateFeeRequest) (*models.Fee, error)
	// List returns all fees for admins and the caller's own or children's
	// fees for students and parents.
	List(ctx context.Context, schoolID, userID uuid.UUID, role models.Role, status string, limit, offset int) ([]*models.Fee, error)
	MarkPaid(ctx context.Context, schoolID, id uuid.UUID) (*models.Fee, error)
	Summary(ctx context.Context, schoolID uuid.UUID) (*models.FeeSummary, error)
	// ProcessOverdue marks unpaid fees due before today overdue and emails
	// the linked parents.
	ProcessOverdue(ctx context.Context) (*OverdueRun, error)
}

type feeService struct {
	fees   repositories.FeeRepository
	people repositories.PeopleRepository
	access PeopleService
	sender notify.Sender
	cache  FeeAnalyticsInvalidator
	log    logrus.FieldLogger
	now    func() time.Time
}

func NewFeeService(fees repositories.FeeRepository, people repositories.PeopleRepository, access PeopleService, sender notify.Sender, cache FeeAnalyticsInvalidator, log logrus.FieldLogger) FeeService {
	return &feeService{fees: fees, people: people, access: access, sender: sender, cache: cache, log: log, now: time.Now}
}

type CreateFeeRequest struct {
	StudentID uuid.UUID `json:"student_id" validate:"required"`
	Title     string    `json:"title" validate:"required,max=200"`
	Amount    float64   `json:"amount" validate:"gt=0"`
	DueDate   string    `json:"due_date" validate:"required"`
}

var feeStatuses = map[string]bool{models.FeePending: true, models.FeePaid: true, models.FeeOverdue: true}

func (s *feeService) invalidate(ctx context.Context, schoolID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFeeAnalytics(ctx, schoolID); err != nil {
		s.log.WithError(err).WithField("school_id", schoolID).Warn("fee analytics cache invalidation failed")
	}
}

func (s *feeService) Create(ctx context.Context, schoolID uuid.UUID, req *CreateFeeRequest) (*models.Fee, error) {
	due, err := common.ValidateDateFormat(req.DueDate, "due_date")
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, common.ErrValidation)
	}
	if _, err := s.people.GetStudent(ctx, schoolID, req.StudentID); err != nil {
		return nil, err
	}

	fee := &models.Fee{
		ID:        uuid.New(),
		SchoolID:  schoolID,
		StudentID: req.StudentID,
		Title:     strings.TrimSpace(req.Title),
		Amount:    req.Amount,
		DueDate:   due,
		Status:    models.FeePending,
		CreatedAt: s.now().UTC(),
	}
	if err := s.fees.Create(ctx, fee); err != nil {
		return nil, err
	}
	s.invalidate(ctx, schoolID)
	return fee, nil
}

func (s *feeService) List(ctx context.Context, schoolID, userID uuid.UUID, role models.Role, status string, limit, offset int) ([]*models.Fee, error) {
	if status != "" && !feeStatuses[status] {
		return nil, fmt.Errorf("unknown status %q: %w", status, common.ErrValidation)
	}
	if role == models.RoleAdmin {
		limit, offset = common.ValidatePaginationParams(limit, offset)
		return s.fees.List(ctx, schoolID, status, limit, offset)
	}

	students, err := s.access.VisibleStudents(ctx, schoolID, userID, role)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(students))
	for i, st := range students {
		ids[i] = st.ID
	}
	fees, err := s.fees.ListForStudents(ctx, schoolID, ids)
	if err != nil {
		return nil, err
	}
	if status == "" {
		return fees, nil
	}
	filtered := make([]*models.Fee, 0, len(fees))
	for _, f := range fees {
		if f.Status == status {
			filtered = append(filtered, f)
		}
	}
	return filtered, nil
}

func (s *feeService) MarkPaid(ctx context.Context, schoolID, id uuid.UUID) (*models.Fee, error) {
	fee, err := s.fees.Get(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	if fee.Status == models.FeePaid {
		return nil, fmt.Errorf("fee already paid: %w", common.ErrConflict)
	}
	now := s.now().UTC()
	if err := s.fees.MarkPaid(ctx, schoolID, id, now); err != nil {
		return nil, err
	}
	fee.Status = models.FeePaid
	fee.PaidAt = &now
	s.invalidate(ctx, schoolID)
	return fee, nil
}

func (s *feeService) Summary(ctx context.Context, schoolID uuid.UUID) (*models.FeeSummary, error) {
	return s.fees.Summary(ctx, schoolID)
}

func (s *feeService) ProcessOverdue(ctx context.Context) (*OverdueRun, error) {
	now := s.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	ids, err := s.fees.MarkOverdue(ctx, today)
	if err != nil {
		return nil, err
	}
	run := &OverdueRun{Marked: len(ids)}
	if len(ids) == 0 {
		return run, nil
	}

	reminders, err := s.fees.OverdueReminders(ctx, ids)
	if err != nil {
		return run, err
	}
	schools := map[uuid.UUID]bool{}
	for _, r := range reminders {
		schools[r.SchoolID] = true
		msg, err := notify.FeeReminder(r)
		if err == nil {
			err = s.sender.Send(ctx, msg)
		}
		if err != nil {
			run.Failed++
			s.log.WithError(err).WithField("fee_id", r.FeeID).Warn("fee reminder not sent")
			continue
		}
		run.RemindersSent++
	}
	for schoolID := range schools {
		s.invalidate(ctx, schoolID)
	}
	return run, nil
}
