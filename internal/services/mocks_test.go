package services

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"schoolhub/internal/ai"
	"schoolhub/internal/models"
	"schoolhub/internal/notify"
	"schoolhub/internal/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
)

type MockRoleRepository struct {
	mock.Mock
}

func (m *MockRoleRepository) LookupRole(ctx context.Context, userID, schoolID uuid.UUID) (string, error) {
	args := m.Called(ctx, userID, schoolID)
	return args.String(0), args.Error(1)
}

func (m *MockRoleRepository) HasProfile(ctx context.Context, role models.Role, userID, schoolID uuid.UUID) (bool, error) {
	args := m.Called(ctx, role, userID, schoolID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoleRepository) HoldsProfile(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type MockRoleResolver struct {
	mock.Mock
}

func (m *MockRoleResolver) Resolve(ctx context.Context, userID, schoolID uuid.UUID) (models.Role, bool, error) {
	args := m.Called(ctx, userID, schoolID)
	return args.Get(0).(models.Role), args.Bool(1), args.Error(2)
}

func (m *MockRoleResolver) HoldsAnyRole(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRoleResolver) Invalidate(userID uuid.UUID) {
	m.Called(userID)
}

type MockSchoolRepository struct {
	mock.Mock
}

func (m *MockSchoolRepository) CreateWithAdmin(ctx context.Context, school *models.School, admin *models.Profile) error {
	args := m.Called(ctx, school, admin)
	return args.Error(0)
}

func (m *MockSchoolRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.School, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.School), args.Error(1)
}

func (m *MockSchoolRepository) GetBySubdomain(ctx context.Context, subdomain string) (*models.School, error) {
	args := m.Called(ctx, subdomain)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.School), args.Error(1)
}

func (m *MockSchoolRepository) Update(ctx context.Context, school *models.School) error {
	args := m.Called(ctx, school)
	return args.Error(0)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Upsert(ctx context.Context, user *models.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetSchoolID(ctx context.Context, id uuid.UUID) (uuid.UUID, bool, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(uuid.UUID), args.Bool(1), args.Error(2)
}

func (m *MockUserRepository) SetSchool(ctx context.Context, id, schoolID uuid.UUID) error {
	args := m.Called(ctx, id, schoolID)
	return args.Error(0)
}

type MockPeopleRepository struct {
	mock.Mock
}

func (m *MockPeopleRepository) CreateTeacher(ctx context.Context, schoolID uuid.UUID, teacher *models.Teacher) error {
	args := m.Called(ctx, schoolID, teacher)
	return args.Error(0)
}

func (m *MockPeopleRepository) GetTeacher(ctx context.Context, schoolID, id uuid.UUID) (*models.Teacher, error) {
	args := m.Called(ctx, schoolID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Teacher), args.Error(1)
}

func (m *MockPeopleRepository) TeacherByUser(ctx context.Context, schoolID, userID uuid.UUID) (*models.Teacher, error) {
	args := m.Called(ctx, schoolID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Teacher), args.Error(1)
}

func (m *MockPeopleRepository) ListTeachers(ctx context.Context, schoolID uuid.UUID, limit, offset int) ([]*models.Teacher, error) {
	args := m.Called(ctx, schoolID, limit, offset)
	return args.Get(0).([]*models.Teacher), args.Error(1)
}

func (m *MockPeopleRepository) CreateStudent(ctx context.Context, schoolID uuid.UUID, student *models.Student) error {
	args := m.Called(ctx, schoolID, student)
	return args.Error(0)
}

func (m *MockPeopleRepository) GetStudent(ctx context.Context, schoolID, id uuid.UUID) (*models.Student, error) {
	args := m.Called(ctx, schoolID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Student), args.Error(1)
}

func (m *MockPeopleRepository) StudentByUser(ctx context.Context, schoolID, userID uuid.UUID) (*models.Student, error) {
	args := m.Called(ctx, schoolID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Student), args.Error(1)
}

func (m *MockPeopleRepository) ListStudents(ctx context.Context, schoolID uuid.UUID, classID *uuid.UUID, limit, offset int) ([]*models.Student, error) {
	args := m.Called(ctx, schoolID, classID, limit, offset)
	return args.Get(0).([]*models.Student), args.Error(1)
}

func (m *MockPeopleRepository) CreateParent(ctx context.Context, schoolID uuid.UUID, parent *models.Parent, studentIDs []uuid.UUID) error {
	args := m.Called(ctx, schoolID, parent, studentIDs)
	return args.Error(0)
}

func (m *MockPeopleRepository) ParentByUser(ctx context.Context, schoolID, userID uuid.UUID) (*models.Parent, error) {
	args := m.Called(ctx, schoolID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Parent), args.Error(1)
}

func (m *MockPeopleRepository) ChildrenOf(ctx context.Context, schoolID, parentID uuid.UUID) ([]*models.Student, error) {
	args := m.Called(ctx, schoolID, parentID)
	return args.Get(0).([]*models.Student), args.Error(1)
}

type MockClassRepository struct {
	mock.Mock
}

func (m *MockClassRepository) CreateClass(ctx context.Context, class *models.Class) error {
	args := m.Called(ctx, class)
	return args.Error(0)
}

func (m *MockClassRepository) GetClass(ctx context.Context, schoolID, id uuid.UUID) (*models.Class, error) {
	args := m.Called(ctx, schoolID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Class), args.Error(1)
}

func (m *MockClassRepository) ListClasses(ctx context.Context, schoolID uuid.UUID) ([]*models.Class, error) {
	args := m.Called(ctx, schoolID)
	return args.Get(0).([]*models.Class), args.Error(1)
}

func (m *MockClassRepository) UpdateClass(ctx context.Context, class *models.Class) error {
	args := m.Called(ctx, class)
	return args.Error(0)
}

func (m *MockClassRepository) DeleteClass(ctx context.Context, schoolID, id uuid.UUID) error {
	args := m.Called(ctx, schoolID, id)
	return args.Error(0)
}

func (m *MockClassRepository) CreateSubject(ctx context.Context, subject *models.Subject) error {
	args := m.Called(ctx, subject)
	return args.Error(0)
}

func (m *MockClassRepository) GetSubject(ctx context.Context, schoolID, id uuid.UUID) (*models.Subject, error) {
	args := m.Called(ctx, schoolID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subject), args.Error(1)
}

func (m *MockClassRepository) ListSubjects(ctx context.Context, schoolID uuid.UUID) ([]*models.Subject, error) {
	args := m.Called(ctx, schoolID)
	return args.Get(0).([]*models.Subject), args.Error(1)
}

func (m *MockClassRepository) UpdateSubject(ctx context.Context, subject *models.Subject) error {
	args := m.Called(ctx, subject)
	return args.Error(0)
}

func (m *MockClassRepository) DeleteSubject(ctx context.Context, schoolID, id uuid.UUID) error {
	args := m.Called(ctx, schoolID, id)
	return args.Error(0)
}

type MockTimetableRepository struct {
	mock.Mock
}

func (m *MockTimetableRepository) Create(ctx context.Context, entry *models.TimetableEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockTimetableRepository) CreateBatch(ctx context.Context, schoolID uuid.UUID, entries []*models.TimetableEntry) error {
	args := m.Called(ctx, schoolID, entries)
	return args.Error(0)
}

func (m *MockTimetableRepository) List(ctx context.Context, schoolID uuid.UUID, filter repositories.TimetableFilter) ([]*models.TimetableEntry, error) {
	args := m.Called(ctx, schoolID, filter)
	return args.Get(0).([]*models.TimetableEntry), args.Error(1)
}

func (m *MockTimetableRepository) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	args := m.Called(ctx, schoolID, id)
	return args.Error(0)
}

type MockAssignmentRepository struct {
	mock.Mock
}

func (m *MockAssignmentRepository) Create(ctx context.Context, assignment *models.Assignment) error {
	args := m.Called(ctx, assignment)
	return args.Error(0)
}

func (m *MockAssignmentRepository) Get(ctx context.Context, schoolID, id uuid.UUID) (*models.Assignment, error) {
	args := m.Called(ctx, schoolID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Assignment), args.Error(1)
}

func (m *MockAssignmentRepository) ListByClass(ctx context.Context, schoolID, classID uuid.UUID) ([]*models.Assignment, error) {
	args := m.Called(ctx, schoolID, classID)
	return args.Get(0).([]*models.Assignment), args.Error(1)
}

func (m *MockAssignmentRepository) ListByTeacher(ctx context.Context, schoolID, teacherID uuid.UUID) ([]*models.Assignment, error) {
	args := m.Called(ctx, schoolID, teacherID)
	return args.Get(0).([]*models.Assignment), args.Error(1)
}

func (m *MockAssignmentRepository) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	args := m.Called(ctx, schoolID, id)
	return args.Error(0)
}

func (m *MockAssignmentRepository) FindSubmission(ctx context.Context, schoolID, assignmentID, studentID uuid.UUID) (*models.Submission, error) {
	args := m.Called(ctx, schoolID, assignmentID, studentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Submission), args.Error(1)
}

func (m *MockAssignmentRepository) UpsertSubmission(ctx context.Context, submission *models.Submission) error {
	args := m.Called(ctx, submission)
	return args.Error(0)
}

func (m *MockAssignmentRepository) GetSubmission(ctx context.Context, schoolID, id uuid.UUID) (*models.Submission, error) {
	args := m.Called(ctx, schoolID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Submission), args.Error(1)
}

func (m *MockAssignmentRepository) ListSubmissions(ctx context.Context, schoolID, assignmentID uuid.UUID) ([]*models.Submission, error) {
	args := m.Called(ctx, schoolID, assignmentID)
	return args.Get(0).([]*models.Submission), args.Error(1)
}

func (m *MockAssignmentRepository) ListStudentSubmissions(ctx context.Context, schoolID, studentID uuid.UUID) ([]*models.Submission, error) {
	args := m.Called(ctx, schoolID, studentID)
	return args.Get(0).([]*models.Submission), args.Error(1)
}

func (m *MockAssignmentRepository) Grade(ctx context.Context, schoolID, id uuid.UUID, score int, feedback *string, at time.Time) error {
	args := m.Called(ctx, schoolID, id, score, feedback, at)
	return args.Error(0)
}

func (m *MockAssignmentRepository) GradedResults(ctx context.Context, schoolID, studentID uuid.UUID) ([]*models.GradedResult, error) {
	args := m.Called(ctx, schoolID, studentID)
	return args.Get(0).([]*models.GradedResult), args.Error(1)
}

type MockFeeRepository struct {
	mock.Mock
}

func (m *MockFeeRepository) Create(ctx context.Context, fee *models.Fee) error {
	args := m.Called(ctx, fee)
	return args.Error(0)
}

func (m *MockFeeRepository) Get(ctx context.Context, schoolID, id uuid.UUID) (*models.Fee, error) {
	args := m.Called(ctx, schoolID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Fee), args.Error(1)
}

func (m *MockFeeRepository) List(ctx context.Context, schoolID uuid.UUID, status string, limit, offset int) ([]*models.Fee, error) {
	args := m.Called(ctx, schoolID, status, limit, offset)
	return args.Get(0).([]*models.Fee), args.Error(1)
}

func (m *MockFeeRepository) ListForStudents(ctx context.Context, schoolID uuid.UUID, studentIDs []uuid.UUID) ([]*models.Fee, error) {
	args := m.Called(ctx, schoolID, studentIDs)
	return args.Get(0).([]*models.Fee), args.Error(1)
}

func (m *MockFeeRepository) MarkPaid(ctx context.Context, schoolID, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, schoolID, id, at)
	return args.Error(0)
}

func (m *MockFeeRepository) Summary(ctx context.Context, schoolID uuid.UUID) (*models.FeeSummary, error) {
	args := m.Called(ctx, schoolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.FeeSummary), args.Error(1)
}

func (m *MockFeeRepository) MarkOverdue(ctx context.Context, asOf time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, asOf)
	return args.Get(0).([]uuid.UUID), args.Error(1)
}

func (m *MockFeeRepository) OverdueReminders(ctx context.Context, feeIDs []uuid.UUID) ([]*models.OverdueReminder, error) {
	args := m.Called(ctx, feeIDs)
	return args.Get(0).([]*models.OverdueReminder), args.Error(1)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) GetOrCreateConversation(ctx context.Context, schoolID, a, b uuid.UUID) (*models.Conversation, error) {
	args := m.Called(ctx, schoolID, a, b)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockMessageRepository) GetConversation(ctx context.Context, schoolID, id uuid.UUID) (*models.Conversation, error) {
	args := m.Called(ctx, schoolID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Conversation), args.Error(1)
}

func (m *MockMessageRepository) ListConversations(ctx context.Context, schoolID, userID uuid.UUID) ([]*models.Conversation, error) {
	args := m.Called(ctx, schoolID, userID)
	return args.Get(0).([]*models.Conversation), args.Error(1)
}

func (m *MockMessageRepository) AddMessage(ctx context.Context, msg *models.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) ListMessages(ctx context.Context, schoolID, conversationID uuid.UUID, limit, offset int) ([]*models.Message, error) {
	args := m.Called(ctx, schoolID, conversationID, limit, offset)
	return args.Get(0).([]*models.Message), args.Error(1)
}

func (m *MockMessageRepository) MarkRead(ctx context.Context, schoolID, conversationID, readerID uuid.UUID, at time.Time) (int64, error) {
	args := m.Called(ctx, schoolID, conversationID, readerID, at)
	return args.Get(0).(int64), args.Error(1)
}

type MockWhitelistRepository struct {
	mock.Mock
}

func (m *MockWhitelistRepository) Create(ctx context.Context, entry *models.WhitelistedTeacher) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockWhitelistRepository) List(ctx context.Context, schoolID uuid.UUID) ([]*models.WhitelistedTeacher, error) {
	args := m.Called(ctx, schoolID)
	return args.Get(0).([]*models.WhitelistedTeacher), args.Error(1)
}

func (m *MockWhitelistRepository) Delete(ctx context.Context, schoolID, id uuid.UUID) error {
	args := m.Called(ctx, schoolID, id)
	return args.Error(0)
}

func (m *MockWhitelistRepository) FindUsable(ctx context.Context, schoolID uuid.UUID, email string, now time.Time) (*models.WhitelistedTeacher, error) {
	args := m.Called(ctx, schoolID, email, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WhitelistedTeacher), args.Error(1)
}

func (m *MockWhitelistRepository) MarkUsed(ctx context.Context, schoolID, id uuid.UUID, at time.Time) error {
	args := m.Called(ctx, schoolID, id, at)
	return args.Error(0)
}

func (m *MockWhitelistRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

type MockAIInsightRepository struct {
	mock.Mock
}

func (m *MockAIInsightRepository) Save(ctx context.Context, insight *models.AIInsight) error {
	args := m.Called(ctx, insight)
	return args.Error(0)
}

func (m *MockAIInsightRepository) List(ctx context.Context, schoolID uuid.UUID, kind string, limit int) ([]*models.AIInsight, error) {
	args := m.Called(ctx, schoolID, kind, limit)
	return args.Get(0).([]*models.AIInsight), args.Error(1)
}

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, key, reader, size, contentType)
	return args.Error(0)
}

func (m *MockObjectStore) PresignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockObjectStore) EnsureBucketExists(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

type MockSender struct {
	mock.Mock
}

func (m *MockSender) Send(ctx context.Context, msg notify.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) GetFeeAnalytics(ctx context.Context, schoolID uuid.UUID) (json.RawMessage, error) {
	args := m.Called(ctx, schoolID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

func (m *MockCache) SetFeeAnalytics(ctx context.Context, schoolID uuid.UUID, result json.RawMessage, ttl time.Duration) error {
	args := m.Called(ctx, schoolID, result, ttl)
	return args.Error(0)
}

func (m *MockCache) InvalidateFeeAnalytics(ctx context.Context, schoolID uuid.UUID) error {
	args := m.Called(ctx, schoolID)
	return args.Error(0)
}

func (m *MockCache) DeleteSchool(ctx context.Context, subdomain string) error {
	args := m.Called(ctx, subdomain)
	return args.Error(0)
}

// fakeCompleter replays a canned reply and records the prompt it was sent.
type fakeCompleter struct {
	reply string
	err   error
	sent  []ai.Message
}

func (f *fakeCompleter) Complete(ctx context.Context, messages []ai.Message) (string, error) {
	f.sent = messages
	return f.reply, f.err
}

func (f *fakeCompleter) Model() string {
	return "test-model"
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
