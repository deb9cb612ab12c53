package middleware

import (
	"net/http"

	"schoolhub/internal/common"
	"schoolhub/internal/permissions"

	"github.com/labstack/echo/v4"
)

// RequirePermission admits callers whose role in the resolved school grants
// action. Unscoped and roleless requests are refused.
func RequirePermission(action permissions.Action) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			if _, ok := common.GetUserIDFromContext(ctx); !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
			}
			if _, ok := common.GetSchoolIDFromContext(ctx); !ok {
				return echo.NewHTTPError(http.StatusForbidden, common.ErrUnscoped.Error())
			}
			role, ok := common.GetRoleFromContext(ctx)
			if !ok || !permissions.Can(role, action) {
				return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
			}
			return next(c)
		}
	}
}
