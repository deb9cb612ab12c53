package services

import (
	"context"
	"testing"

	"schoolhub/internal/common"
	"schoolhub/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestSchoolService_Onboard(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	req := &CreateSchoolRequest{Name: " Alpha High ", Subdomain: "Alpha", AdminName: "Ada"}

	t.Run("creates school with founding admin", func(t *testing.T) {
		schools := new(MockSchoolRepository)
		users := new(MockUserRepository)
		roles := new(MockRoleResolver)
		svc := NewSchoolService(schools, users, roles, nil)

		roles.On("HoldsAnyRole", ctx, userID).Return(false, nil)
		roles.On("Invalidate", userID).Return()
		users.On("GetSchoolID", ctx, userID).Return(uuid.Nil, false, nil)
		schools.On("CreateWithAdmin", ctx, mock.MatchedBy(func(s *models.School) bool {
			return s.Subdomain == "alpha" && s.Name == "Alpha High" && s.Status == "active"
		}), mock.MatchedBy(func(p *models.Profile) bool {
			return *p.UserID == userID && *p.Email == "ada@alpha.test"
		})).Return(nil)

		school, err := svc.Onboard(ctx, userID, "ada@alpha.test", req)

		require.NoError(t, err)
		assert.Equal(t, "alpha", school.Subdomain)
		roles.AssertCalled(t, "Invalidate", userID)
		schools.AssertExpectations(t)
	})

	t.Run("rejects a user who already has a role", func(t *testing.T) {
		schools := new(MockSchoolRepository)
		roles := new(MockRoleResolver)
		svc := NewSchoolService(schools, new(MockUserRepository), roles, nil)
		roles.On("HoldsAnyRole", ctx, userID).Return(true, nil)

		_, err := svc.Onboard(ctx, userID, "", req)

		assert.ErrorIs(t, err, common.ErrConflict)
		schools.AssertNotCalled(t, "CreateWithAdmin", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("rejects the www label", func(t *testing.T) {
		users := new(MockUserRepository)
		roles := new(MockRoleResolver)
		svc := NewSchoolService(new(MockSchoolRepository), users, roles, nil)
		roles.On("HoldsAnyRole", ctx, userID).Return(false, nil)
		users.On("GetSchoolID", ctx, userID).Return(uuid.Nil, false, nil)

		_, err := svc.Onboard(ctx, userID, "", &CreateSchoolRequest{Name: "x", Subdomain: "www", AdminName: "y"})

		assert.ErrorIs(t, err, common.ErrValidation)
	})
}

func TestSchoolService_UpdateDropsCachedSubdomain(t *testing.T) {
	ctx := context.Background()
	schoolID := uuid.New()
	schools := new(MockSchoolRepository)
	cache := new(MockCache)
	svc := NewSchoolService(schools, new(MockUserRepository), new(MockRoleResolver), cache)

	schools.On("GetByID", ctx, schoolID).Return(&models.School{ID: schoolID, Name: "Old", Subdomain: "alpha"}, nil)
	schools.On("Update", ctx, mock.AnythingOfType("*models.School")).Return(nil)
	cache.On("DeleteSchool", ctx, "alpha").Return(nil)

	school, err := svc.Update(ctx, schoolID, &UpdateSchoolRequest{Name: "New"})

	require.NoError(t, err)
	assert.Equal(t, "New", school.Name)
	cache.AssertExpectations(t)
}

func TestSchoolService_GetUnscoped(t *testing.T) {
	svc := NewSchoolService(new(MockSchoolRepository), new(MockUserRepository), new(MockRoleResolver), nil)
	_, err := svc.Get(context.Background(), uuid.Nil)
	assert.ErrorIs(t, err, common.ErrUnscoped)
}
