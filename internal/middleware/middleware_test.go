package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"schoolhub/internal/caching"
	"schoolhub/internal/common"
	"schoolhub/internal/metrics"
	"schoolhub/internal/models"
	"schoolhub/internal/permissions"
	"schoolhub/internal/tenancy"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type MockUsers struct {
	mock.Mock
}

func (m *MockUsers) Upsert(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUsers) GetSchoolID(ctx context.Context, userID uuid.UUID) (uuid.UUID, bool, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(uuid.UUID), args.Bool(1), args.Error(2)
}

type MockResolver struct {
	mock.Mock
}

func (m *MockResolver) Resolve(ctx context.Context, host string, userID uuid.UUID) (tenancy.Resolution, error) {
	args := m.Called(ctx, host, userID)
	return args.Get(0).(tenancy.Resolution), args.Error(1)
}

type MockRoles struct {
	mock.Mock
}

func (m *MockRoles) Resolve(ctx context.Context, userID, schoolID uuid.UUID) (models.Role, bool, error) {
	args := m.Called(ctx, userID, schoolID)
	return args.Get(0).(models.Role), args.Bool(1), args.Error(2)
}

func signToken(t *testing.T, claims jwt.Claims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func validClaims(sub string) *Claims {
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Email:        "Ada@Alpha.test",
		UserMetadata: map[string]interface{}{"full_name": "Ada"},
	}
}

func serve(mw echo.MiddlewareFunc, build func(*http.Request), handler echo.HandlerFunc) *httptest.ResponseRecorder {
	e := echo.New()
	e.HTTPErrorHandler = common.NewHTTPErrorHandler(quietLogger())
	e.GET("/v1/test", handler, mw)
	req := httptest.NewRequest(http.MethodGet, "/v1/test", nil)
	if build != nil {
		build(req)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusNoContent)
}

func TestAuthenticator(t *testing.T) {
	userID := uuid.New()

	tests := []struct {
		name   string
		header func(t *testing.T) string
		status int
	}{
		{"missing header", func(*testing.T) string { return "" }, http.StatusUnauthorized},
		{"not bearer", func(*testing.T) string { return "Basic abc" }, http.StatusUnauthorized},
		{"garbage", func(*testing.T) string { return "Bearer nope" }, http.StatusUnauthorized},
		{"wrong audience", func(t *testing.T) string {
			c := validClaims(userID.String())
			c.Audience = jwt.ClaimStrings{"other"}
			return "Bearer " + signToken(t, c)
		}, http.StatusUnauthorized},
		{"expired", func(t *testing.T) string {
			c := validClaims(userID.String())
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
			return "Bearer " + signToken(t, c)
		}, http.StatusUnauthorized},
		{"subject not a uuid", func(t *testing.T) string {
			return "Bearer " + signToken(t, validClaims("alice"))
		}, http.StatusUnauthorized},
		{"valid", func(t *testing.T) string {
			return "Bearer " + signToken(t, validClaims(userID.String()))
		}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUsers)
			users.On("Upsert", mock.Anything, mock.MatchedBy(func(u *models.User) bool {
				return u.ID == userID && u.Email == "ada@alpha.test" && u.FullName == "Ada"
			})).Return(nil)
			auth, err := NewAuthenticator(JWTConfig{Secret: testSecret, Audience: "authenticated"}, users, quietLogger())
			require.NoError(t, err)

			header := tt.header(t)
			rec := serve(auth.Middleware(), func(r *http.Request) {
				if header != "" {
					r.Header.Set("Authorization", header)
				}
			}, func(c echo.Context) error {
				id, ok := common.GetUserIDFromContext(c.Request().Context())
				assert.True(t, ok)
				assert.Equal(t, userID, id)
				return okHandler(c)
			})

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestAuthenticator_RejectsOtherAlgorithms(t *testing.T) {
	auth, err := NewAuthenticator(JWTConfig{Secret: testSecret}, new(MockUsers), quietLogger())
	require.NoError(t, err)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, validClaims(uuid.NewString())).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = auth.parse(token)
	assert.Error(t, err)
}

func withUser(userID uuid.UUID) func(*http.Request) {
	return func(r *http.Request) {
		r.Host = "alpha.example.com"
		*r = *r.WithContext(common.WithUser(r.Context(), userID, "ada@alpha.test"))
	}
}

func TestTenantMiddleware(t *testing.T) {
	userID, schoolA, schoolB := uuid.New(), uuid.New(), uuid.New()
	subdomainA := tenancy.Resolution{SchoolID: schoolA, Slug: "alpha", Source: tenancy.SourceSubdomain}

	t.Run("sets school and role", func(t *testing.T) {
		resolver, users, roles := new(MockResolver), new(MockUsers), new(MockRoles)
		resolver.On("Resolve", mock.Anything, "alpha.example.com", userID).Return(subdomainA, nil)
		users.On("GetSchoolID", mock.Anything, userID).Return(schoolA, true, nil)
		roles.On("Resolve", mock.Anything, userID, schoolA).Return(models.RoleTeacher, true, nil)
		mw := NewTenantMiddleware(resolver, users, roles, quietLogger()).Resolve()

		rec := serve(mw, withUser(userID), func(c echo.Context) error {
			school, ok := common.GetSchoolIDFromContext(c.Request().Context())
			assert.True(t, ok)
			assert.Equal(t, schoolA, school)
			role, _ := common.GetRoleFromContext(c.Request().Context())
			assert.Equal(t, models.RoleTeacher, role)
			return okHandler(c)
		})
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("user stored under another school", func(t *testing.T) {
		resolver, users, roles := new(MockResolver), new(MockUsers), new(MockRoles)
		resolver.On("Resolve", mock.Anything, "alpha.example.com", userID).Return(subdomainA, nil)
		users.On("GetSchoolID", mock.Anything, userID).Return(schoolB, true, nil)
		mw := NewTenantMiddleware(resolver, users, roles, quietLogger()).Resolve()

		rec := serve(mw, withUser(userID), okHandler)

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "tenant mismatch")
		roles.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unresolved passes through unscoped", func(t *testing.T) {
		resolver, users, roles := new(MockResolver), new(MockUsers), new(MockRoles)
		resolver.On("Resolve", mock.Anything, "alpha.example.com", userID).Return(tenancy.Resolution{}, nil)
		mw := NewTenantMiddleware(resolver, users, roles, quietLogger()).Resolve()

		rec := serve(mw, withUser(userID), func(c echo.Context) error {
			_, ok := common.GetSchoolIDFromContext(c.Request().Context())
			assert.False(t, ok)
			_, ok = common.GetRoleFromContext(c.Request().Context())
			assert.False(t, ok)
			return okHandler(c)
		})
		assert.Equal(t, http.StatusNoContent, rec.Code)
		roles.AssertNotCalled(t, "Resolve", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("resolver failure", func(t *testing.T) {
		resolver := new(MockResolver)
		resolver.On("Resolve", mock.Anything, mock.Anything, mock.Anything).Return(tenancy.Resolution{}, errors.New("db down"))
		mw := NewTenantMiddleware(resolver, new(MockUsers), new(MockRoles), quietLogger()).Resolve()

		rec := serve(mw, withUser(userID), okHandler)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func scoped(role models.Role, school uuid.UUID) func(*http.Request) {
	return func(r *http.Request) {
		ctx := common.WithUser(r.Context(), uuid.New(), "")
		if school != uuid.Nil {
			ctx = common.WithSchool(ctx, school)
		}
		if role != "" {
			ctx = common.WithRole(ctx, role)
		}
		*r = *r.WithContext(ctx)
	}
}

func TestRequirePermission(t *testing.T) {
	school := uuid.New()
	tests := []struct {
		name   string
		role   models.Role
		school uuid.UUID
		action permissions.Action
		status int
	}{
		{"admin manages fees", models.RoleAdmin, school, permissions.ManageFees, http.StatusNoContent},
		{"teacher cannot manage fees", models.RoleTeacher, school, permissions.ManageFees, http.StatusForbidden},
		{"student submits", models.RoleStudent, school, permissions.SubmitAssignment, http.StatusNoContent},
		{"roleless denied", "", school, permissions.ViewSchool, http.StatusForbidden},
		{"unscoped denied", models.RoleAdmin, uuid.Nil, permissions.ViewSchool, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(RequirePermission(tt.action), scoped(tt.role, tt.school), okHandler)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestAIRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := caching.NewRedisCacheService(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	m := metrics.NewMetrics(prometheus.NewRegistry())
	school := uuid.New()
	mw := NewAIRateLimit(cache, 2, m, quietLogger()).Middleware("chat")

	for i := 0; i < 2; i++ {
		rec := serve(mw, scoped(models.RoleStudent, school), okHandler)
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
	rec := serve(mw, scoped(models.RoleStudent, school), okHandler)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.AIRateLimitedTotal.WithLabelValues("chat")))

	other := serve(mw, scoped(models.RoleStudent, uuid.New()), okHandler)
	assert.Equal(t, http.StatusNoContent, other.Code)

	mr.FastForward(time.Hour + time.Second)
	rec = serve(mw, scoped(models.RoleStudent, school), okHandler)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestAIRateLimit_FailsOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := caching.NewRedisCacheService(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	mr.Close()
	mw := NewAIRateLimit(cache, 1, nil, quietLogger()).Middleware("chat")

	rec := serve(mw, scoped(models.RoleAdmin, uuid.New()), okHandler)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}
