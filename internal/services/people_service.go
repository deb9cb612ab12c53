package services

import (
	"context"
	"fmt"
	"strings"

	"schoolhub/internal/common"
	"schoolhub/internal/models"
	"schoolhub/internal/repositories"

	"github.com/google/uuid"
)

type PeopleService interface {
	CreateStudent(ctx context.Context, schoolID uuid.UUID, req *CreateStudentRequest) (*models.Student, error)
	GetStudent(ctx context.Context, schoolID, id uuid.UUID) (*models.Student, error)
	ListStudents(ctx context.Context, schoolID uuid.UUID, classID *uuid.UUID, limit, offset int) ([]*models.Student, error)
	CreateParent(ctx context.Context, schoolID uuid.UUID, req *CreateParentRequest) (*models.Parent, error)
	ListTeachers(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*models.Teacher, error)
	// VisibleStudents lists the students whose records the caller may see as
	// a student or parent: themselves, or their children.
	VisibleStudents(ctx context.Context, schoolID, userID uuid.UUID, role models.Role) ([]*models.Student, error)
}

type peopleService struct {
	people  repositories.PeopleRepository
	classes repositories.ClassRepository
}

func NewPeopleService(people repositories.PeopleRepository, classes repositories.ClassRepository) PeopleService {
	return &peopleService{people: people, classes: classes}
}

type CreateStudentRequest struct {
	FullName    string     `json:"full_name" validate:"required,max=200"`
	Email       *string    `json:"email" validate:"omitempty,email"`
	UserID      *uuid.UUID `json:"user_id"`
	ClassID     *uuid.UUID `json:"class_id"`
	AdmissionNo *string    `json:"admission_no"`
	DateOfBirth string     `json:"date_of_birth"`
}

type CreateParentRequest struct {
	FullName   string      `json:"full_name" validate:"required,max=200"`
	Email      *string     `json:"email" validate:"omitempty,email"`
	Phone      *string     `json:"phone"`
	UserID     *uuid.UUID  `json:"user_id"`
	StudentIDs []uuid.UUID `json:"student_ids" validate:"required,min=1"`
}

func (s *peopleService) CreateStudent(ctx context.Context, schoolID uuid.UUID, req *CreateStudentRequest) (*models.Student, error) {
	student := &models.Student{
		ID:          uuid.New(),
		UserID:      req.UserID,
		FullName:    strings.TrimSpace(req.FullName),
		Email:       req.Email,
		ClassID:     req.ClassID,
		AdmissionNo: req.AdmissionNo,
	}
	if req.DateOfBirth != "" {
		dob, err := common.ValidateDateFormat(req.DateOfBirth, "date_of_birth")
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, common.ErrValidation)
		}
		student.DateOfBirth = &dob
	}
	if req.ClassID != nil {
		if _, err := s.classes.GetClass(ctx, schoolID, *req.ClassID); err != nil {
			return nil, err
		}
	}
	if err := s.people.CreateStudent(ctx, schoolID, student); err != nil {
		return nil, err
	}
	return student, nil
}

func (s *peopleService) GetStudent(ctx context.Context, schoolID, id uuid.UUID) (*models.Student, error) {
	return s.people.GetStudent(ctx, schoolID, id)
}

func (s *peopleService) ListStudents(ctx context.Context, schoolID uuid.UUID, classID *uuid.UUID, limit, offset int) ([]*models.Student, error) {
	limit, offset = common.ValidatePaginationParams(limit, offset)
	return s.people.ListStudents(ctx, schoolID, classID, limit, offset)
}

func (s *peopleService) CreateParent(ctx context.Context, schoolID uuid.UUID, req *CreateParentRequest) (*models.Parent, error) {
	parent := &models.Parent{
		ID:       uuid.New(),
		UserID:   req.UserID,
		FullName: strings.TrimSpace(req.FullName),
		Email:    req.Email,
		Phone:    req.Phone,
	}
	if err := s.people.CreateParent(ctx, schoolID, parent, req.StudentIDs); err != nil {
		return nil, err
	}
	return parent, nil
}

func (s *peopleService) ListTeachers(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*models.Teacher, error) {
	limit, offset = common.ValidatePaginationParams(limit, offset)
	return s.people.ListTeachers(ctx, schoolID, limit, offset)
}

func (s *peopleService) VisibleStudents(ctx context.Context, schoolID, userID uuid.UUID, role models.Role) ([]*models.Student, error) {
	switch role {
	case models.RoleStudent:
		student, err := s.people.StudentByUser(ctx, schoolID, userID)
		if err != nil {
			return nil, err
		}
		return []*models.Student{student}, nil
	case models.RoleParent:
		parent, err := s.people.ParentByUser(ctx, schoolID, userID)
		if err != nil {
			return nil, err
		}
		return s.people.ChildrenOf(ctx, schoolID, parent.ID)
	}
	return nil, fmt.Errorf("role %q has no linked students: %w", role, common.ErrForbidden)
}
