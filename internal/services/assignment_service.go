package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"schoolhub/internal/common"
	"schoolhub/internal/models"
	"schoolhub/internal/repositories"
	"schoolhub/internal/storage"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const fileURLExpiry = 15 * time.Minute

// Upload is an attachment streamed from a multipart form.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Reader      io.Reader
}

type AssignmentService interface {
	Create(ctx context.Context, schoolID, userID uuid.UUID, req *CreateAssignmentRequest) (*models.Assignment, error)
	// List returns the assignments relevant to the caller: a teacher's own, a
	// student's class, a parent's children's classes, or classID for admins.
	List(ctx context.Context, schoolID, userID uuid.UUID, role models.Role, classID *uuid.UUID) ([]*models.Assignment, error)
	// Delete removes a teacher's own assignment with its submissions and
	// their attachments.
	Delete(ctx context.Context, schoolID, userID, assignmentID uuid.UUID) error
	Submit(ctx context.Context, schoolID, userID, assignmentID uuid.UUID, content *string, file *Upload) (*models.Submission, error)
	ListSubmissions(ctx context.Context, schoolID, userID uuid.UUID, role models.Role, assignmentID uuid.UUID) ([]*models.Submission, error)
	Grade(ctx context.Context, schoolID, userID, submissionID uuid.UUID, req *GradeRequest) (*models.Submission, error)
}

type assignmentService struct {
	assignments repositories.AssignmentRepository
	classes     repositories.ClassRepository
	people      PeopleService
	peopleRepo  repositories.PeopleRepository
	store       storage.ObjectStore
	log         logrus.FieldLogger
	now         func() time.Time
}

func NewAssignmentService(assignments repositories.AssignmentRepository, classes repositories.ClassRepository, peopleRepo repositories.PeopleRepository, people PeopleService, store storage.ObjectStore, log logrus.FieldLogger) AssignmentService {
	return &assignmentService{
		assignments: assignments,
		classes:     classes,
		people:      people,
		peopleRepo:  peopleRepo,
		store:       store,
		log:         log,
		now:         time.Now,
	}
}

type CreateAssignmentRequest struct {
	ClassID     uuid.UUID `json:"class_id" validate:"required"`
	SubjectID   uuid.UUID `json:"subject_id" validate:"required"`
	Title       string    `json:"title" validate:"required,max=200"`
	Description *string   `json:"description"`
	DueDate     time.Time `json:"due_date" validate:"required"`
	MaxScore    int       `json:"max_score" validate:"omitempty,min=1,max=1000"`
}

type GradeRequest struct {
	Score    int     `json:"score" validate:"min=0"`
	Feedback *string `json:"feedback"`
}

func (s *assignmentService) Create(ctx context.Context, schoolID, userID uuid.UUID, req *CreateAssignmentRequest) (*models.Assignment, error) {
	teacher, err := s.peopleRepo.TeacherByUser(ctx, schoolID, userID)
	if err != nil {
		return nil, err
	}
	if _, err := s.classes.GetClass(ctx, schoolID, req.ClassID); err != nil {
		return nil, err
	}
	if _, err := s.classes.GetSubject(ctx, schoolID, req.SubjectID); err != nil {
		return nil, err
	}

	maxScore := req.MaxScore
	if maxScore == 0 {
		maxScore = 100
	}
	assignment := &models.Assignment{
		ID:          uuid.New(),
		SchoolID:    schoolID,
		ClassID:     req.ClassID,
		SubjectID:   req.SubjectID,
		TeacherID:   teacher.ID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		DueDate:     req.DueDate.UTC(),
		MaxScore:    maxScore,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

func (s *assignmentService) List(ctx context.Context, schoolID, userID uuid.UUID, role models.Role, classID *uuid.UUID) ([]*models.Assignment, error) {
	switch role {
	case models.RoleTeacher:
		teacher, err := s.peopleRepo.TeacherByUser(ctx, schoolID, userID)
		if err != nil {
			return nil, err
		}
		return s.assignments.ListByTeacher(ctx, schoolID, teacher.ID)
	case models.RoleStudent, models.RoleParent:
		students, err := s.people.VisibleStudents(ctx, schoolID, userID, role)
		if err != nil {
			return nil, err
		}
		seen := map[uuid.UUID]bool{}
		out := []*models.Assignment{}
		for _, st := range students {
			if st.ClassID == nil || seen[*st.ClassID] {
				continue
			}
			seen[*st.ClassID] = true
			items, err := s.assignments.ListByClass(ctx, schoolID, *st.ClassID)
			if err != nil {
				return nil, err
			}
			out = append(out, items...)
		}
		return out, nil
	}
	if classID == nil {
		return nil, fmt.Errorf("class_id is required: %w", common.ErrValidation)
	}
	return s.assignments.ListByClass(ctx, schoolID, *classID)
}

func (s *assignmentService) Delete(ctx context.Context, schoolID, userID, assignmentID uuid.UUID) error {
	teacher, err := s.peopleRepo.TeacherByUser(ctx, schoolID, userID)
	if err != nil {
		return err
	}
	assignment, err := s.assignments.Get(ctx, schoolID, assignmentID)
	if err != nil {
		return err
	}
	if assignment.TeacherID != teacher.ID {
		return fmt.Errorf("not your assignment: %w", common.ErrForbidden)
	}
	subs, err := s.assignments.ListSubmissions(ctx, schoolID, assignment.ID)
	if err != nil {
		return err
	}
	if err := s.assignments.Delete(ctx, schoolID, assignment.ID); err != nil {
		return err
	}
	for _, sub := range subs {
		if sub.FileKey != nil {
			s.removeObject(ctx, *sub.FileKey)
		}
	}
	return nil
}

func (s *assignmentService) Submit(ctx context.Context, schoolID, userID, assignmentID uuid.UUID, content *string, file *Upload) (*models.Submission, error) {
	student, err := s.peopleRepo.StudentByUser(ctx, schoolID, userID)
	if err != nil {
		return nil, err
	}
	assignment, err := s.assignments.Get(ctx, schoolID, assignmentID)
	if err != nil {
		return nil, err
	}
	if student.ClassID == nil || *student.ClassID != assignment.ClassID {
		return nil, fmt.Errorf("assignment is not set for your class: %w", common.ErrForbidden)
	}
	if (content == nil || strings.TrimSpace(*content) == "") && file == nil {
		return nil, fmt.Errorf("content or file is required: %w", common.ErrValidation)
	}

	now := s.now().UTC()
	sub := &models.Submission{
		ID:           uuid.New(),
		SchoolID:     schoolID,
		AssignmentID: assignment.ID,
		StudentID:    student.ID,
		Content:      content,
		Late:         now.After(assignment.DueDate),
		SubmittedAt:  now,
	}

	// A resubmission keeps the row id, so its attachment key stays stable.
	previous, err := s.assignments.FindSubmission(ctx, schoolID, assignment.ID, student.ID)
	switch {
	case errors.Is(err, common.ErrNotFound):
		previous = nil
	case err != nil:
		return nil, err
	case previous.Status == models.SubmissionGraded:
		return nil, fmt.Errorf("submission already graded: %w", common.ErrConflict)
	default:
		sub.ID = previous.ID
	}

	if file != nil {
		key := storage.SubmissionKey(schoolID, sub.ID, file.Filename)
		if err := s.store.Upload(ctx, key, file.Reader, file.Size, file.ContentType); err != nil {
			return nil, fmt.Errorf("upload attachment: %w", err)
		}
		sub.FileKey = &key
	}

	if err := s.assignments.UpsertSubmission(ctx, sub); err != nil {
		if sub.FileKey != nil {
			s.removeObject(ctx, *sub.FileKey)
		}
		return nil, err
	}
	if previous != nil && previous.FileKey != nil && (sub.FileKey == nil || *sub.FileKey != *previous.FileKey) {
		s.removeObject(ctx, *previous.FileKey)
	}
	s.attachURL(ctx, sub)
	return sub, nil
}

// removeObject deletes an attachment that no row points at any more.
func (s *assignmentService) removeObject(ctx context.Context, key string) {
	if err := s.store.Delete(ctx, key); err != nil {
		s.log.WithError(err).WithField("key", key).Warn("delete attachment failed")
	}
}

func (s *assignmentService) attachURL(ctx context.Context, sub *models.Submission) {
	if sub.FileKey == nil {
		return
	}
	url, err := s.store.PresignedURL(ctx, *sub.FileKey, fileURLExpiry)
	if err != nil {
		s.log.WithError(err).WithField("submission_id", sub.ID).Warn("presign attachment failed")
		return
	}
	sub.FileURL = url
}

func (s *assignmentService) ListSubmissions(ctx context.Context, schoolID, userID uuid.UUID, role models.Role, assignmentID uuid.UUID) ([]*models.Submission, error) {
	assignment, err := s.assignments.Get(ctx, schoolID, assignmentID)
	if err != nil {
		return nil, err
	}

	var subs []*models.Submission
	switch role {
	case models.RoleTeacher:
		teacher, err := s.peopleRepo.TeacherByUser(ctx, schoolID, userID)
		if err != nil {
			return nil, err
		}
		if assignment.TeacherID != teacher.ID {
			return nil, fmt.Errorf("not your assignment: %w", common.ErrForbidden)
		}
		subs, err = s.assignments.ListSubmissions(ctx, schoolID, assignment.ID)
		if err != nil {
			return nil, err
		}
	case models.RoleAdmin:
		subs, err = s.assignments.ListSubmissions(ctx, schoolID, assignment.ID)
		if err != nil {
			return nil, err
		}
	default:
		students, err := s.people.VisibleStudents(ctx, schoolID, userID, role)
		if err != nil {
			return nil, err
		}
		for _, st := range students {
			own, err := s.assignments.ListStudentSubmissions(ctx, schoolID, st.ID)
			if err != nil {
				return nil, err
			}
			for _, sub := range own {
				if sub.AssignmentID == assignment.ID {
					subs = append(subs, sub)
				}
			}
		}
	}

	for _, sub := range subs {
		s.attachURL(ctx, sub)
	}
	if subs == nil {
		subs = []*models.Submission{}
	}
	return subs, nil
}

func (s *assignmentService) Grade(ctx context.Context, schoolID, userID, submissionID uuid.UUID, req *GradeRequest) (*models.Submission, error) {
	teacher, err := s.peopleRepo.TeacherByUser(ctx, schoolID, userID)
	if err != nil {
		return nil, err
	}
	sub, err := s.assignments.GetSubmission(ctx, schoolID, submissionID)
	if err != nil {
		return nil, err
	}
	assignment, err := s.assignments.Get(ctx, schoolID, sub.AssignmentID)
	if err != nil {
		return nil, err
	}
	if assignment.TeacherID != teacher.ID {
		return nil, fmt.Errorf("not your assignment: %w", common.ErrForbidden)
	}
	if req.Score < 0 || req.Score > assignment.MaxScore {
		return nil, fmt.Errorf("score must be between 0 and %d: %w", assignment.MaxScore, common.ErrValidation)
	}

	now := s.now().UTC()
	if err := s.assignments.Grade(ctx, schoolID, sub.ID, req.Score, req.Feedback, now); err != nil {
		return nil, err
	}
	score := req.Score
	sub.Score = &score
	sub.Feedback = req.Feedback
	sub.Status = models.SubmissionGraded
	sub.GradedAt = &now
	s.attachURL(ctx, sub)
	return sub, nil
}
