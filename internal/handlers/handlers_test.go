package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"schoolhub/internal/common"
	"schoolhub/internal/models"
	"schoolhub/internal/repositories"
	"schoolhub/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSchoolService struct{ mock.Mock }

func (m *MockSchoolService) Onboard(ctx context.Context, userID uuid.UUID, email string, req *services.CreateSchoolRequest) (*models.School, error) {
	args := m.Called(ctx, userID, email, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.School), args.Error(1)
}

func (m *MockSchoolService) Get(ctx context.Context, schoolID uuid.UUID) (*models.School, error) {
	args := m.Called(ctx, schoolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.School), args.Error(1)
}

func (m *MockSchoolService) Update(ctx context.Context, schoolID uuid.UUID, req *services.UpdateSchoolRequest) (*models.School, error) {
	args := m.Called(ctx, schoolID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.School), args.Error(1)
}

type MockTimetableService struct{ mock.Mock }

func (m *MockTimetableService) List(ctx context.Context, schoolID uuid.UUID, filter repositories.TimetableFilter) ([]*models.TimetableEntry, error) {
	args := m.Called(ctx, schoolID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.TimetableEntry), args.Error(1)
}

func (m *MockTimetableService) Create(ctx context.Context, schoolID uuid.UUID, req *services.TimetableEntryRequest) (*models.TimetableEntry, error) {
	args := m.Called(ctx, schoolID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TimetableEntry), args.Error(1)
}

func (m *MockTimetableService) CheckAndCreate(ctx context.Context, schoolID uuid.UUID, entries []*models.TimetableEntry, apply bool) ([]*models.TimetableEntry, []models.Conflict, error) {
	args := m.Called(ctx, schoolID, entries, apply)
	return args.Get(0).([]*models.TimetableEntry), args.Get(1).([]models.Conflict), args.Error(2)
}

func (m *MockTimetableService) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	return m.Called(ctx, schoolID, id).Error(0)
}

type MockAssignmentService struct{ mock.Mock }

func (m *MockAssignmentService) Create(ctx context.Context, schoolID, userID uuid.UUID, req *services.CreateAssignmentRequest) (*models.Assignment, error) {
	args := m.Called(ctx, schoolID, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Assignment), args.Error(1)
}

func (m *MockAssignmentService) List(ctx context.Context, schoolID, userID uuid.UUID, role models.Role, classID *uuid.UUID) ([]*models.Assignment, error) {
	args := m.Called(ctx, schoolID, userID, role, classID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Assignment), args.Error(1)
}

func (m *MockAssignmentService) Delete(ctx context.Context, schoolID, userID, assignmentID uuid.UUID) error {
	return m.Called(ctx, schoolID, userID, assignmentID).Error(0)
}

func (m *MockAssignmentService) Submit(ctx context.Context, schoolID, userID, assignmentID uuid.UUID, content *string, file *services.Upload) (*models.Submission, error) {
	args := m.Called(ctx, schoolID, userID, assignmentID, content, file)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Submission), args.Error(1)
}

func (m *MockAssignmentService) ListSubmissions(ctx context.Context, schoolID, userID uuid.UUID, role models.Role, assignmentID uuid.UUID) ([]*models.Submission, error) {
	args := m.Called(ctx, schoolID, userID, role, assignmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Submission), args.Error(1)
}

func (m *MockAssignmentService) Grade(ctx context.Context, schoolID, userID, submissionID uuid.UUID, req *services.GradeRequest) (*models.Submission, error) {
	args := m.Called(ctx, schoolID, userID, submissionID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Submission), args.Error(1)
}

var (
	testUser   = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testSchool = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

// newServer wires a route behind a stub of the auth and tenant middleware.
// A nil school leaves the request unscoped.
func newServer(method, path string, school *uuid.UUID, role models.Role, h echo.HandlerFunc) *echo.Echo {
	e := echo.New()
	log := logrus.New()
	log.SetOutput(io.Discard)
	e.HTTPErrorHandler = common.NewHTTPErrorHandler(log)
	e.Validator = common.NewRequestValidator()
	e.Add(method, path, h, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := common.WithUser(c.Request().Context(), testUser, "kim@alpha.edu")
			if school != nil {
				ctx = common.WithSchool(ctx, *school)
				ctx = common.WithRole(ctx, role)
			}
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	return e
}

func doJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) common.ErrorResponse {
	t.Helper()
	var resp common.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestCreateSchool_Validation(t *testing.T) {
	schools := new(MockSchoolService)
	h := NewSchoolHandlers(schools, nil)
	e := newServer(http.MethodPost, "/v1/schools", nil, "", h.CreateSchool)

	tests := []struct {
		name string
		body string
	}{
		{name: "missing name", body: `{"subdomain":"alpha","admin_name":"Kim"}`},
		{name: "uppercase subdomain", body: `{"name":"Alpha","subdomain":"Alpha","admin_name":"Kim"}`},
		{name: "www subdomain", body: `{"name":"Alpha","subdomain":"www","admin_name":"Kim"}`},
		{name: "malformed json", body: `{"name":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(e, http.MethodPost, "/v1/schools", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	schools.AssertNotCalled(t, "Onboard")
}

func TestCreateSchool_AllowedWithoutSchool(t *testing.T) {
	schools := new(MockSchoolService)
	school := &models.School{ID: testSchool, Name: "Alpha", Subdomain: "alpha"}
	schools.On("Onboard", mock.Anything, testUser, "kim@alpha.edu", mock.MatchedBy(func(r *services.CreateSchoolRequest) bool {
		return r.Subdomain == "alpha"
	})).Return(school, nil)

	h := NewSchoolHandlers(schools, nil)
	e := newServer(http.MethodPost, "/v1/schools", nil, "", h.CreateSchool)

	rec := doJSON(e, http.MethodPost, "/v1/schools", `{"name":"Alpha","subdomain":"alpha","admin_name":"Kim"}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	schools.AssertExpectations(t)
}

func TestGetSchool_UnscopedIsForbidden(t *testing.T) {
	schools := new(MockSchoolService)
	h := NewSchoolHandlers(schools, nil)
	e := newServer(http.MethodGet, "/v1/school", nil, "", h.GetSchool)

	rec := doJSON(e, http.MethodGet, "/v1/school", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, common.ErrUnscoped.Error(), decodeError(t, rec).Error)
	schools.AssertNotCalled(t, "Get")
}

func TestCreateTimetableEntry_Conflict(t *testing.T) {
	entryID := uuid.New()
	conflicts := []models.Conflict{{Kind: "teacher", Day: "Monday", Start: "09:00", End: "09:45", EntryID: &entryID, Message: "teacher is already teaching"}}

	timetable := new(MockTimetableService)
	timetable.On("Create", mock.Anything, testSchool, mock.Anything).
		Return(nil, &services.ScheduleConflictError{Conflicts: conflicts})

	h := NewTimetableHandlers(timetable)
	e := newServer(http.MethodPost, "/v1/timetable", &testSchool, models.RoleAdmin, h.CreateTimetableEntry)

	body := `{"class_id":"` + uuid.NewString() + `","subject_id":"` + uuid.NewString() + `","teacher_id":"` + uuid.NewString() + `","day":"Monday","start_time":"09:30","end_time":"10:15"}`
	rec := doJSON(e, http.MethodPost, "/v1/timetable", body)

	require.Equal(t, http.StatusConflict, rec.Code)
	var resp ConflictResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Conflicts, 1)
	assert.Equal(t, "teacher", resp.Conflicts[0].Kind)
	assert.Equal(t, &entryID, resp.Conflicts[0].EntryID)
	assert.NotEmpty(t, resp.Error)
}

func TestCreateTimetableEntry_BadClock(t *testing.T) {
	timetable := new(MockTimetableService)
	h := NewTimetableHandlers(timetable)
	e := newServer(http.MethodPost, "/v1/timetable", &testSchool, models.RoleAdmin, h.CreateTimetableEntry)

	body := `{"class_id":"` + uuid.NewString() + `","subject_id":"` + uuid.NewString() + `","teacher_id":"` + uuid.NewString() + `","day":"Monday","start_time":"9am","end_time":"10:15"}`
	rec := doJSON(e, http.MethodPost, "/v1/timetable", body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	timetable.AssertNotCalled(t, "Create")
}

func TestListTimetable_Filters(t *testing.T) {
	classID := uuid.New()
	timetable := new(MockTimetableService)
	timetable.On("List", mock.Anything, testSchool, repositories.TimetableFilter{ClassID: &classID, Day: "Friday"}).
		Return([]*models.TimetableEntry{}, nil)

	h := NewTimetableHandlers(timetable)
	e := newServer(http.MethodGet, "/v1/timetable", &testSchool, models.RoleStudent, h.ListTimetable)

	rec := doJSON(e, http.MethodGet, "/v1/timetable?class_id="+classID.String()+"&day=Friday", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/v1/timetable?day=Sunday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(e, http.MethodGet, "/v1/timetable?teacher_id=nope", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	timetable.AssertNumberOfCalls(t, "List", 1)
}

func TestSubmitAssignment_Multipart(t *testing.T) {
	assignmentID := uuid.New()
	assignments := new(MockAssignmentService)
	assignments.On("Submit", mock.Anything, testSchool, testUser, assignmentID,
		mock.MatchedBy(func(content *string) bool { return content != nil && *content == "see attached" }),
		mock.MatchedBy(func(u *services.Upload) bool {
			return u != nil && u.Filename == "essay.txt" && u.Size == int64(len("four score")) && u.Reader != nil
		}),
	).Return(&models.Submission{ID: uuid.New(), AssignmentID: assignmentID}, nil)

	h := NewAssignmentHandlers(assignments)
	e := newServer(http.MethodPost, "/v1/assignments/:id/submissions", &testSchool, models.RoleStudent, h.SubmitAssignment)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	require.NoError(t, w.WriteField("content", "  see attached  "))
	part, err := w.CreateFormFile("file", "essay.txt")
	require.NoError(t, err)
	_, err = part.Write([]byte("four score"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/assignments/"+assignmentID.String()+"/submissions", &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assignments.AssertExpectations(t)
}

func TestSubmitAssignment_TextOnly(t *testing.T) {
	assignmentID := uuid.New()
	assignments := new(MockAssignmentService)
	assignments.On("Submit", mock.Anything, testSchool, testUser, assignmentID, mock.Anything, (*services.Upload)(nil)).
		Return(&models.Submission{ID: uuid.New()}, nil)

	h := NewAssignmentHandlers(assignments)
	e := newServer(http.MethodPost, "/v1/assignments/:id/submissions", &testSchool, models.RoleStudent, h.SubmitAssignment)

	req := httptest.NewRequest(http.MethodPost, "/v1/assignments/"+assignmentID.String()+"/submissions", strings.NewReader("content=my+answer"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assignments.AssertExpectations(t)
}

func TestSubmitAssignment_ServiceError(t *testing.T) {
	assignments := new(MockAssignmentService)
	assignments.On("Submit", mock.Anything, testSchool, testUser, mock.Anything, mock.Anything, mock.Anything).
		Return(nil, common.ErrForbidden)

	h := NewAssignmentHandlers(assignments)
	e := newServer(http.MethodPost, "/v1/assignments/:id/submissions", &testSchool, models.RoleStudent, h.SubmitAssignment)

	req := httptest.NewRequest(http.MethodPost, "/v1/assignments/"+uuid.NewString()+"/submissions", strings.NewReader("content=x"))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "FORBIDDEN", decodeError(t, rec).Code)
}

func TestDeleteAssignment(t *testing.T) {
	assignmentID := uuid.New()
	assignments := new(MockAssignmentService)
	assignments.On("Delete", mock.Anything, testSchool, testUser, assignmentID).Return(nil)

	h := NewAssignmentHandlers(assignments)
	e := newServer(http.MethodDelete, "/v1/assignments/:id", &testSchool, models.RoleTeacher, h.DeleteAssignment)

	rec := doJSON(e, http.MethodDelete, "/v1/assignments/"+assignmentID.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assignments.AssertExpectations(t)
}

func TestDeleteAssignment_NotOwner(t *testing.T) {
	assignments := new(MockAssignmentService)
	assignments.On("Delete", mock.Anything, testSchool, testUser, mock.Anything).Return(common.ErrForbidden)

	h := NewAssignmentHandlers(assignments)
	e := newServer(http.MethodDelete, "/v1/assignments/:id", &testSchool, models.RoleTeacher, h.DeleteAssignment)

	rec := doJSON(e, http.MethodDelete, "/v1/assignments/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestPathID_Invalid(t *testing.T) {
	timetable := new(MockTimetableService)
	h := NewTimetableHandlers(timetable)
	e := newServer(http.MethodDelete, "/v1/timetable/:id", &testSchool, models.RoleAdmin, h.DeleteTimetableEntry)

	rec := doJSON(e, http.MethodDelete, "/v1/timetable/not-a-uuid", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	timetable.AssertNotCalled(t, "Delete")
}
