package services

import (
	"context"
	"testing"
	"time"

	"schoolhub/internal/common"
	"schoolhub/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type RegistrationServiceTestSuite struct {
	suite.Suite
	whitelist *MockWhitelistRepository
	people    *MockPeopleRepository
	users     *MockUserRepository
	roles     *MockRoleResolver
	svc       *registrationService
	ctx       context.Context
	schoolID  uuid.UUID
	userID    uuid.UUID
	now       time.Time
}

func (s *RegistrationServiceTestSuite) SetupTest() {
	s.whitelist = new(MockWhitelistRepository)
	s.people = new(MockPeopleRepository)
	s.users = new(MockUserRepository)
	s.roles = new(MockRoleResolver)
	s.svc = NewRegistrationService(s.whitelist, s.people, s.users, s.roles).(*registrationService)
	s.now = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	s.svc.now = fixedClock(s.now)
	s.ctx = context.Background()
	s.schoolID = uuid.New()
	s.userID = uuid.New()
}

func (s *RegistrationServiceTestSuite) TestAddToWhitelistNormalizesEmail() {
	admin := uuid.New()
	s.whitelist.On("Create", s.ctx, mock.MatchedBy(func(e *models.WhitelistedTeacher) bool {
		return e.Email == "grace@alpha.test" && e.SchoolID == s.schoolID && e.ExpiresAt.Equal(s.now.AddDate(0, 0, 7))
	})).Return(nil)

	entry, err := s.svc.AddToWhitelist(s.ctx, s.schoolID, admin, &WhitelistRequest{Email: " Grace@Alpha.test ", ExpiresInDays: 7})

	s.NoError(err)
	s.Equal(admin, *entry.InvitedBy)
	s.whitelist.AssertExpectations(s.T())
}

func (s *RegistrationServiceTestSuite) TestRegisterTeacher() {
	entryID := uuid.New()
	s.roles.On("HoldsAnyRole", s.ctx, s.userID).Return(false, nil)
	s.roles.On("Invalidate", s.userID).Return()
	s.whitelist.On("FindUsable", s.ctx, s.schoolID, "grace@alpha.test", s.now).
		Return(&models.WhitelistedTeacher{ID: entryID, SchoolID: s.schoolID, Email: "grace@alpha.test"}, nil)
	s.people.On("CreateTeacher", s.ctx, s.schoolID, mock.MatchedBy(func(t *models.Teacher) bool {
		return *t.UserID == s.userID && t.FullName == "Grace Hopper"
	})).Return(nil)
	s.whitelist.On("MarkUsed", s.ctx, s.schoolID, entryID, s.now).Return(nil)
	s.users.On("SetSchool", s.ctx, s.userID, s.schoolID).Return(nil)

	teacher, err := s.svc.RegisterTeacher(s.ctx, s.schoolID, s.userID, "grace@alpha.test", &RegisterTeacherRequest{FullName: "Grace Hopper"})

	s.NoError(err)
	s.Equal("grace@alpha.test", *teacher.Email)
	s.whitelist.AssertExpectations(s.T())
	s.users.AssertExpectations(s.T())
	s.roles.AssertCalled(s.T(), "Invalidate", s.userID)
}

func (s *RegistrationServiceTestSuite) TestRegisterTeacherNotWhitelisted() {
	s.roles.On("HoldsAnyRole", s.ctx, s.userID).Return(false, nil)
	s.whitelist.On("FindUsable", s.ctx, s.schoolID, "eve@evil.test", s.now).Return(nil, common.ErrNotFound)

	_, err := s.svc.RegisterTeacher(s.ctx, s.schoolID, s.userID, "eve@evil.test", &RegisterTeacherRequest{FullName: "Eve"})

	s.ErrorIs(err, common.ErrForbidden)
	s.people.AssertNotCalled(s.T(), "CreateTeacher", mock.Anything, mock.Anything, mock.Anything)
}

func (s *RegistrationServiceTestSuite) TestRegisterTeacherRejectsExistingRole() {
	s.roles.On("HoldsAnyRole", s.ctx, s.userID).Return(true, nil)

	_, err := s.svc.RegisterTeacher(s.ctx, s.schoolID, s.userID, "grace@alpha.test", &RegisterTeacherRequest{FullName: "Grace"})

	s.ErrorIs(err, common.ErrConflict)
}

func (s *RegistrationServiceTestSuite) TestRegisterTeacherUnscoped() {
	_, err := s.svc.RegisterTeacher(s.ctx, uuid.Nil, s.userID, "grace@alpha.test", &RegisterTeacherRequest{FullName: "Grace"})
	s.ErrorIs(err, common.ErrUnscoped)
}

func (s *RegistrationServiceTestSuite) TestRegisterTeacherWithoutEmail() {
	_, err := s.svc.RegisterTeacher(s.ctx, s.schoolID, s.userID, "", &RegisterTeacherRequest{FullName: "Grace"})
	s.ErrorIs(err, common.ErrForbidden)
}

func (s *RegistrationServiceTestSuite) TestPurgeExpired() {
	s.whitelist.On("DeleteExpired", s.ctx, s.now).Return(int64(3), nil)

	n, err := s.svc.PurgeExpired(s.ctx)

	s.NoError(err)
	s.Equal(int64(3), n)
}

func TestRegistrationServiceTestSuite(t *testing.T) {
	suite.Run(t, new(RegistrationServiceTestSuite))
}
