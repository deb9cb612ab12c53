package middleware

import (
	"context"
	"net/http"

	"schoolhub/internal/common"
	"schoolhub/internal/models"
	"schoolhub/internal/tenancy"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type TenantResolver interface {
	Resolve(ctx context.Context, host string, userID uuid.UUID) (tenancy.Resolution, error)
}

type RoleLookup interface {
	Resolve(ctx context.Context, userID, schoolID uuid.UUID) (models.Role, bool, error)
}

// TenantMiddleware resolves the school and the caller's role once per
// request. Handlers read both from the context and never from input.
type TenantMiddleware struct {
	resolver TenantResolver
	users    tenancy.UserSchoolLookup
	roles    RoleLookup
	log      logrus.FieldLogger
}

func NewTenantMiddleware(resolver TenantResolver, users tenancy.UserSchoolLookup, roles RoleLookup, log logrus.FieldLogger) *TenantMiddleware {
	return &TenantMiddleware{resolver: resolver, users: users, roles: roles, log: log}
}

// Resolve never rejects an unscoped request; RequirePermission does.
func (m *TenantMiddleware) Resolve() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			userID, _ := common.GetUserIDFromContext(ctx)

			res, err := m.resolver.Resolve(ctx, c.Request().Host, userID)
			if err != nil {
				return err
			}

			if res.Source == tenancy.SourceSubdomain && userID != uuid.Nil {
				stored, ok, err := m.users.GetSchoolID(ctx, userID)
				if err != nil {
					return err
				}
				if ok && stored != res.SchoolID {
					m.log.WithFields(logrus.Fields{
						"user_id":   userID,
						"subdomain": res.Slug,
					}).Warn("tenant mismatch")
					return echo.NewHTTPError(http.StatusForbidden, "tenant mismatch")
				}
			}

			if res.Resolved() {
				ctx = common.WithSchool(ctx, res.SchoolID)
				c.Set("school_id", res.SchoolID.String())
			}
			if userID != uuid.Nil && res.Resolved() {
				role, ok, err := m.roles.Resolve(ctx, userID, res.SchoolID)
				if err != nil {
					return err
				}
				if ok {
					ctx = common.WithRole(ctx, role)
				}
			}

			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
