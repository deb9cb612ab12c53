package repositories

import (
	"context"
	"errors"
	"testing"

	"schoolhub/internal/models"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type RoleRepoTestSuite struct {
	suite.Suite
	mock     pgxmock.PgxPoolIface
	repo     RoleRepository
	userID   uuid.UUID
	schoolID uuid.UUID
	context  context.Context
}

func (suite *RoleRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherEqual))
	assert.NoError(suite.T(), err)
	suite.mock = mock
	suite.repo = NewRoleRepo(mock)
	suite.userID = uuid.New()
	suite.schoolID = uuid.New()
	suite.context = context.Background()
}

func (suite *RoleRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestRoleRepoTestSuite(t *testing.T) {
	suite.Run(t, new(RoleRepoTestSuite))
}

func (suite *RoleRepoTestSuite) TestLookupRole_Found() {
	role := "teacher"
	suite.mock.ExpectQuery(`SELECT get_user_role($1, $2)`).
		WithArgs(suite.userID, suite.schoolID).
		WillReturnRows(pgxmock.NewRows([]string{"get_user_role"}).AddRow(&role))

	got, err := suite.repo.LookupRole(suite.context, suite.userID, suite.schoolID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), "teacher", got)
}

func (suite *RoleRepoTestSuite) TestLookupRole_Null() {
	suite.mock.ExpectQuery(`SELECT get_user_role($1, $2)`).
		WithArgs(suite.userID, suite.schoolID).
		WillReturnRows(pgxmock.NewRows([]string{"get_user_role"}).AddRow((*string)(nil)))

	got, err := suite.repo.LookupRole(suite.context, suite.userID, suite.schoolID)
	assert.NoError(suite.T(), err)
	assert.Empty(suite.T(), got)
}

func (suite *RoleRepoTestSuite) TestLookupRole_Error() {
	suite.mock.ExpectQuery(`SELECT get_user_role($1, $2)`).
		WithArgs(suite.userID, suite.schoolID).
		WillReturnError(errors.New("function get_user_role does not exist"))

	_, err := suite.repo.LookupRole(suite.context, suite.userID, suite.schoolID)
	assert.Error(suite.T(), err)
}

func (suite *RoleRepoTestSuite) TestHasProfile_ScopedToSchool() {
	suite.mock.ExpectQuery(`SELECT EXISTS (SELECT 1 FROM "parents" WHERE user_id = $1 AND school_id = $2)`).
		WithArgs(suite.userID, suite.schoolID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := suite.repo.HasProfile(suite.context, models.RoleParent, suite.userID, suite.schoolID)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), ok)
}

func (suite *RoleRepoTestSuite) TestHasProfile_UnknownRole() {
	_, err := suite.repo.HasProfile(suite.context, models.Role("janitor"), suite.userID, suite.schoolID)
	assert.Error(suite.T(), err)
}

func (suite *RoleRepoTestSuite) TestHoldsProfile() {
	suite.mock.ExpectQuery(anyProfileSQL).
		WithArgs(suite.userID).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	ok, err := suite.repo.HoldsProfile(suite.context, suite.userID)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), ok)
}
