package services

import (
	"context"

	"schoolhub/internal/models"
	"schoolhub/internal/permissions"
	"schoolhub/internal/repositories"

	"github.com/google/uuid"
)

// Me describes the caller: who they are, where and what they may do.
type Me struct {
	User    *models.User   `json:"user"`
	Role    models.Role    `json:"role,omitempty"`
	School  *models.School `json:"school,omitempty"`
	Actions []string       `json:"actions"`
}

type AccountService interface {
	Me(ctx context.Context, userID, schoolID uuid.UUID, role models.Role) (*Me, error)
}

type accountService struct {
	userRepo   repositories.UserRepository
	schoolRepo repositories.SchoolRepository
}

func NewAccountService(userRepo repositories.UserRepository, schoolRepo repositories.SchoolRepository) AccountService {
	return &accountService{userRepo: userRepo, schoolRepo: schoolRepo}
}

// Me tolerates an unscoped or roleless caller; the result then has no school
// and an empty action list.
func (s *accountService) Me(ctx context.Context, userID, schoolID uuid.UUID, role models.Role) (*Me, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	me := &Me{User: user, Role: role, Actions: permissions.Actions(role)}
	if schoolID != uuid.Nil {
		school, err := s.schoolRepo.GetByID(ctx, schoolID)
		if err != nil {
			return nil, err
		}
		me.School = school
	}
	return me, nil
}
