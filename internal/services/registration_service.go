package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"schoolhub/internal/common"
	"schoolhub/internal/models"
	"schoolhub/internal/repositories"

	"github.com/google/uuid"
)

// RegistrationService manages pre-approved teacher emails and teacher
// self-registration against them.
type RegistrationService interface {
	AddToWhitelist(ctx context.Context, schoolID, invitedBy uuid.UUID, req *WhitelistRequest) (*models.WhitelistedTeacher, error)
	ListWhitelist(ctx context.Context, schoolID uuid.UUID) ([]*models.WhitelistedTeacher, error)
	RemoveFromWhitelist(ctx context.Context, schoolID, id uuid.UUID) error
	RegisterTeacher(ctx context.Context, schoolID, userID uuid.UUID, email string, req *RegisterTeacherRequest) (*models.Teacher, error)
	PurgeExpired(ctx context.Context) (int64, error)
}

type registrationService struct {
	whitelist repositories.WhitelistRepository
	people    repositories.PeopleRepository
	users     repositories.UserRepository
	roles     RoleResolver
	now       func() time.Time
}

func NewRegistrationService(whitelist repositories.WhitelistRepository, people repositories.PeopleRepository, users repositories.UserRepository, roles RoleResolver) RegistrationService {
	return &registrationService{whitelist: whitelist, people: people, users: users, roles: roles, now: time.Now}
}

type WhitelistRequest struct {
	Email         string `json:"email" validate:"required,email"`
	ExpiresInDays int    `json:"expires_in_days" validate:"omitempty,min=1,max=365"`
}

type RegisterTeacherRequest struct {
	FullName       string  `json:"full_name" validate:"required,max=200"`
	Specialization *string `json:"specialization"`
}

func (s *registrationService) AddToWhitelist(ctx context.Context, schoolID, invitedBy uuid.UUID, req *WhitelistRequest) (*models.WhitelistedTeacher, error) {
	now := s.now().UTC()
	entry := &models.WhitelistedTeacher{
		ID:        uuid.New(),
		SchoolID:  schoolID,
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		InvitedBy: &invitedBy,
		CreatedAt: now,
	}
	if req.ExpiresInDays > 0 {
		expires := now.AddDate(0, 0, req.ExpiresInDays)
		entry.ExpiresAt = &expires
	}
	if err := s.whitelist.Create(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *registrationService) ListWhitelist(ctx context.Context, schoolID uuid.UUID) ([]*models.WhitelistedTeacher, error) {
	return s.whitelist.List(ctx, schoolID)
}

func (s *registrationService) RemoveFromWhitelist(ctx context.Context, schoolID, id uuid.UUID) error {
	return s.whitelist.Delete(ctx, schoolID, id)
}

// RegisterTeacher creates the caller's teacher profile in the resolved school
// when their verified email is whitelisted there.
func (s *registrationService) RegisterTeacher(ctx context.Context, schoolID, userID uuid.UUID, email string, req *RegisterTeacherRequest) (*models.Teacher, error) {
	if schoolID == uuid.Nil {
		return nil, common.ErrUnscoped
	}
	if email == "" {
		return nil, fmt.Errorf("token carries no email: %w", common.ErrForbidden)
	}
	if held, err := s.roles.HoldsAnyRole(ctx, userID); err != nil {
		return nil, err
	} else if held {
		return nil, fmt.Errorf("user already has a role: %w", common.ErrConflict)
	}

	now := s.now().UTC()
	entry, err := s.whitelist.FindUsable(ctx, schoolID, email, now)
	if errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("email %s is not whitelisted for this school: %w", email, common.ErrForbidden)
	}
	if err != nil {
		return nil, err
	}

	teacher := &models.Teacher{
		ID:             uuid.New(),
		UserID:         &userID,
		FullName:       req.FullName,
		Email:          &entry.Email,
		Specialization: req.Specialization,
	}
	if err := s.people.CreateTeacher(ctx, schoolID, teacher); err != nil {
		return nil, err
	}
	if err := s.whitelist.MarkUsed(ctx, schoolID, entry.ID, now); err != nil {
		return nil, err
	}
	if err := s.users.SetSchool(ctx, userID, schoolID); err != nil {
		return nil, err
	}
	s.roles.Invalidate(userID)
	return teacher, nil
}

func (s *registrationService) PurgeExpired(ctx context.Context) (int64, error) {
	return s.whitelist.DeleteExpired(ctx, s.now().UTC())
}
