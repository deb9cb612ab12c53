package services

import (
	"context"
	"strings"

	"schoolhub/internal/models"
	"schoolhub/internal/repositories"

	"github.com/google/uuid"
)

type ClassService interface {
	CreateClass(ctx context.Context, schoolID uuid.UUID, req *ClassRequest) (*models.Class, error)
	GetClass(ctx context.Context, schoolID, id uuid.UUID) (*models.Class, error)
	ListClasses(ctx context.Context, schoolID uuid.UUID) ([]*models.Class, error)
	UpdateClass(ctx context.Context, schoolID, id uuid.UUID, req *ClassRequest) (*models.Class, error)
	DeleteClass(ctx context.Context, schoolID, id uuid.UUID) error

	CreateSubject(ctx context.Context, schoolID uuid.UUID, req *SubjectRequest) (*models.Subject, error)
	ListSubjects(ctx context.Context, schoolID uuid.UUID) ([]*models.Subject, error)
	UpdateSubject(ctx context.Context, schoolID, id uuid.UUID, req *SubjectRequest) (*models.Subject, error)
	DeleteSubject(ctx context.Context, schoolID, id uuid.UUID) error
}

type classService struct {
	classes repositories.ClassRepository
	people  repositories.PeopleRepository
}

func NewClassService(classes repositories.ClassRepository, people repositories.PeopleRepository) ClassService {
	return &classService{classes: classes, people: people}
}

type ClassRequest struct {
	Name           string     `json:"name" validate:"required,max=100"`
	GradeLevel     *string    `json:"grade_level"`
	ClassTeacherID *uuid.UUID `json:"class_teacher_id"`
}

type SubjectRequest struct {
	Name      string     `json:"name" validate:"required,max=100"`
	Code      *string    `json:"code"`
	TeacherID *uuid.UUID `json:"teacher_id"`
}

// checkTeacher confirms an optional teacher reference points into the school.
func (s *classService) checkTeacher(ctx context.Context, schoolID uuid.UUID, teacherID *uuid.UUID) error {
	if teacherID == nil {
		return nil
	}
	_, err := s.people.GetTeacher(ctx, schoolID, *teacherID)
	return err
}

func (s *classService) CreateClass(ctx context.Context, schoolID uuid.UUID, req *ClassRequest) (*models.Class, error) {
	if err := s.checkTeacher(ctx, schoolID, req.ClassTeacherID); err != nil {
		return nil, err
	}
	class := &models.Class{
		ID:             uuid.New(),
		SchoolID:       schoolID,
		Name:           strings.TrimSpace(req.Name),
		GradeLevel:     req.GradeLevel,
		ClassTeacherID: req.ClassTeacherID,
	}
	if err := s.classes.CreateClass(ctx, class); err != nil {
		return nil, err
	}
	return class, nil
}

func (s *classService) GetClass(ctx context.Context, schoolID, id uuid.UUID) (*models.Class, error) {
	return s.classes.GetClass(ctx, schoolID, id)
}

func (s *classService) ListClasses(ctx context.Context, schoolID uuid.UUID) ([]*models.Class, error) {
	return s.classes.ListClasses(ctx, schoolID)
}

func (s *classService) UpdateClass(ctx context.Context, schoolID, id uuid.UUID, req *ClassRequest) (*models.Class, error) {
	if err := s.checkTeacher(ctx, schoolID, req.ClassTeacherID); err != nil {
		return nil, err
	}
	class := &models.Class{
		ID:             id,
		SchoolID:       schoolID,
		Name:           strings.TrimSpace(req.Name),
		GradeLevel:     req.GradeLevel,
		ClassTeacherID: req.ClassTeacherID,
	}
	if err := s.classes.UpdateClass(ctx, class); err != nil {
		return nil, err
	}
	return s.classes.GetClass(ctx, schoolID, id)
}

func (s *classService) DeleteClass(ctx context.Context, schoolID, id uuid.UUID) error {
	return s.classes.DeleteClass(ctx, schoolID, id)
}

func (s *classService) CreateSubject(ctx context.Context, schoolID uuid.UUID, req *SubjectRequest) (*models.Subject, error) {
	if err := s.checkTeacher(ctx, schoolID, req.TeacherID); err != nil {
		return nil, err
	}
	subject := &models.Subject{
		ID:        uuid.New(),
		SchoolID:  schoolID,
		Name:      strings.TrimSpace(req.Name),
		Code:      req.Code,
		TeacherID: req.TeacherID,
	}
	if err := s.classes.CreateSubject(ctx, subject); err != nil {
		return nil, err
	}
	return subject, nil
}

func (s *classService) ListSubjects(ctx context.Context, schoolID uuid.UUID) ([]*models.Subject, error) {
	return s.classes.ListSubjects(ctx, schoolID)
}

func (s *classService) UpdateSubject(ctx context.Context, schoolID, id uuid.UUID, req *SubjectRequest) (*models.Subject, error) {
	if err := s.checkTeacher(ctx, schoolID, req.TeacherID); err != nil {
		return nil, err
	}
	subject := &models.Subject{
		ID:        id,
		SchoolID:  schoolID,
		Name:      strings.TrimSpace(req.Name),
		Code:      req.Code,
		TeacherID: req.TeacherID,
	}
	if err := s.classes.UpdateSubject(ctx, subject); err != nil {
		return nil, err
	}
	return s.classes.GetSubject(ctx, schoolID, id)
}

func (s *classService) DeleteSubject(ctx context.Context, schoolID, id uuid.UUID) error {
	return s.classes.DeleteSubject(ctx, schoolID, id)
}
