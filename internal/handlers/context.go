package handlers

import (
	"net/http"
	"strconv"

	"schoolhub/internal/common"
	"schoolhub/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// requestScope is the caller identity and tenant resolved by middleware.
// The school always comes from here, never from the request body or query.
type requestScope struct {
	UserID   uuid.UUID
	Email    string
	SchoolID uuid.UUID
	Role     models.Role
}

func scopeOf(c echo.Context) (requestScope, error) {
	ctx := c.Request().Context()
	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return requestScope{}, echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	schoolID, ok := common.GetSchoolIDFromContext(ctx)
	if !ok {
		return requestScope{}, common.ErrUnscoped
	}
	email, _ := common.GetUserEmailFromContext(ctx)
	role, _ := common.GetRoleFromContext(ctx)
	return requestScope{UserID: userID, Email: email, SchoolID: schoolID, Role: role}, nil
}

func pathID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := common.ValidateUUID(c.Param(name), name)
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return id, nil
}

func optionalQueryID(c echo.Context, name string) (*uuid.UUID, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	id, err := common.ValidateUUID(raw, name)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return &id, nil
}

func pagination(c echo.Context) (int, int) {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	return common.ValidatePaginationParams(limit, offset)
}
