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

type SchoolService interface {
	// Onboard creates a school with the caller as its founding admin.
	Onboard(ctx context.Context, userID uuid.UUID, email string, req *CreateSchoolRequest) (*models.School, error)
	Get(ctx context.Context, schoolID uuid.UUID) (*models.School, error)
	Update(ctx context.Context, schoolID uuid.UUID, req *UpdateSchoolRequest) (*models.School, error)
}

// SchoolCacheInvalidator drops cached subdomain lookups.
type SchoolCacheInvalidator interface {
	DeleteSchool(ctx context.Context, subdomain string) error
}

type schoolService struct {
	schoolRepo repositories.SchoolRepository
	userRepo   repositories.UserRepository
	roles      RoleResolver
	cache      SchoolCacheInvalidator
}

func NewSchoolService(schoolRepo repositories.SchoolRepository, userRepo repositories.UserRepository, roles RoleResolver, cache SchoolCacheInvalidator) SchoolService {
	return &schoolService{schoolRepo: schoolRepo, userRepo: userRepo, roles: roles, cache: cache}
}

type CreateSchoolRequest struct {
	Name      string  `json:"name" validate:"required,max=200"`
	Subdomain string  `json:"subdomain" validate:"required,subdomain"`
	Address   *string `json:"address"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email" validate:"omitempty,email"`
	AdminName string  `json:"admin_name" validate:"required,max=200"`
}

type UpdateSchoolRequest struct {
	Name    string  `json:"name" validate:"required,max=200"`
	Address *string `json:"address"`
	Phone   *string `json:"phone"`
	Email   *string `json:"email" validate:"omitempty,email"`
}

func (s *schoolService) Onboard(ctx context.Context, userID uuid.UUID, email string, req *CreateSchoolRequest) (*models.School, error) {
	if held, err := s.roles.HoldsAnyRole(ctx, userID); err != nil {
		return nil, err
	} else if held {
		return nil, fmt.Errorf("user already belongs to a school: %w", common.ErrConflict)
	}
	if _, ok, err := s.userRepo.GetSchoolID(ctx, userID); err != nil {
		return nil, err
	} else if ok {
		return nil, fmt.Errorf("user already belongs to a school: %w", common.ErrConflict)
	}

	subdomain := strings.ToLower(strings.TrimSpace(req.Subdomain))
	if subdomain == "" || subdomain == "www" {
		return nil, fmt.Errorf("subdomain %q is not allowed: %w", req.Subdomain, common.ErrValidation)
	}

	school := &models.School{
		ID:        uuid.New(),
		Name:      strings.TrimSpace(req.Name),
		Subdomain: subdomain,
		Address:   req.Address,
		Phone:     req.Phone,
		Email:     req.Email,
		Status:    "active",
	}
	admin := &models.Profile{
		ID:       uuid.New(),
		UserID:   &userID,
		FullName: req.AdminName,
	}
	if email != "" {
		admin.Email = &email
	}

	if err := s.schoolRepo.CreateWithAdmin(ctx, school, admin); err != nil {
		return nil, err
	}
	s.roles.Invalidate(userID)
	return school, nil
}

func (s *schoolService) Get(ctx context.Context, schoolID uuid.UUID) (*models.School, error) {
	if schoolID == uuid.Nil {
		return nil, common.ErrUnscoped
	}
	return s.schoolRepo.GetByID(ctx, schoolID)
}

func (s *schoolService) Update(ctx context.Context, schoolID uuid.UUID, req *UpdateSchoolRequest) (*models.School, error) {
	existing, err := s.Get(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	existing.Name = strings.TrimSpace(req.Name)
	existing.Address = req.Address
	existing.Phone = req.Phone
	existing.Email = req.Email
	if err := s.schoolRepo.Update(ctx, existing); err != nil {
		return nil, err
	}

	if s.cache != nil {
		_ = s.cache.DeleteSchool(ctx, existing.Subdomain)
	}
	return existing, nil
}
