package services

import (
	"context"
	"fmt"
	"testing"

	"schoolhub/internal/common"
	"schoolhub/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestPeopleService_LinkingUserOfAnotherSchool(t *testing.T) {
	ctx := context.Background()
	schoolB, userID := uuid.New(), uuid.New()
	linkErr := fmt.Errorf("user %s belongs to another school: %w", userID, common.ErrConflict)

	t.Run("student", func(t *testing.T) {
		people := new(MockPeopleRepository)
		svc := NewPeopleService(people, new(MockClassRepository))
		people.On("CreateStudent", ctx, schoolB, mock.MatchedBy(func(s *models.Student) bool {
			return s.UserID != nil && *s.UserID == userID
		})).Return(linkErr)

		student, err := svc.CreateStudent(ctx, schoolB, &CreateStudentRequest{FullName: "Tom", UserID: &userID})

		assert.ErrorIs(t, err, common.ErrConflict)
		assert.Nil(t, student)
	})

	t.Run("parent", func(t *testing.T) {
		people := new(MockPeopleRepository)
		svc := NewPeopleService(people, new(MockClassRepository))
		studentID := uuid.New()
		people.On("CreateParent", ctx, schoolB, mock.AnythingOfType("*models.Parent"), []uuid.UUID{studentID}).Return(linkErr)

		parent, err := svc.CreateParent(ctx, schoolB, &CreateParentRequest{FullName: "Mara", UserID: &userID, StudentIDs: []uuid.UUID{studentID}})

		assert.ErrorIs(t, err, common.ErrConflict)
		assert.Nil(t, parent)
	})
}

func TestPeopleService_CreateStudentChecksClass(t *testing.T) {
	ctx := context.Background()
	schoolID, classID := uuid.New(), uuid.New()
	people, classes := new(MockPeopleRepository), new(MockClassRepository)
	svc := NewPeopleService(people, classes)
	classes.On("GetClass", ctx, schoolID, classID).Return(nil, common.ErrNotFound)

	_, err := svc.CreateStudent(ctx, schoolID, &CreateStudentRequest{FullName: "Tom", ClassID: &classID})

	assert.ErrorIs(t, err, common.ErrNotFound)
	people.AssertNotCalled(t, "CreateStudent", mock.Anything, mock.Anything, mock.Anything)
}

func TestPeopleService_VisibleStudentsForParent(t *testing.T) {
	ctx := context.Background()
	schoolID, userID, parentID := uuid.New(), uuid.New(), uuid.New()
	people := new(MockPeopleRepository)
	svc := NewPeopleService(people, new(MockClassRepository))
	children := []*models.Student{{ID: uuid.New(), SchoolID: schoolID, FullName: "Tom"}}
	people.On("ParentByUser", ctx, schoolID, userID).Return(&models.Parent{ID: parentID, SchoolID: schoolID}, nil)
	people.On("ChildrenOf", ctx, schoolID, parentID).Return(children, nil)

	got, err := svc.VisibleStudents(ctx, schoolID, userID, models.RoleParent)

	require.NoError(t, err)
	assert.Equal(t, children, got)

	_, err = svc.VisibleStudents(ctx, schoolID, userID, models.RoleTeacher)
	assert.ErrorIs(t, err, common.ErrForbidden)
}
