package handlers

import (
	"net/http"

	"schoolhub/internal/common"
	"schoolhub/internal/services"

	"github.com/labstack/echo/v4"
)

// SchoolHandlers serves onboarding, the current school and the caller profile.
type SchoolHandlers struct {
	schoolService  services.SchoolService
	accountService services.AccountService
}

func NewSchoolHandlers(schoolService services.SchoolService, accountService services.AccountService) *SchoolHandlers {
	return &SchoolHandlers{schoolService: schoolService, accountService: accountService}
}

// CreateSchool godoc
// @Summary      Onboard a school
// @Description  Creates a school with the caller as its founding admin
// @Tags         schools
// @Accept       json
// @Produce      json
// @Param        body  body      services.CreateSchoolRequest  true  "School"
// @Success      201   {object}  models.School
// @Failure      409   {object}  common.ErrorResponse
// @Security     BearerAuth
// @Router       /schools [post]
func (h *SchoolHandlers) CreateSchool(c echo.Context) error {
	ctx := c.Request().Context()
	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	email, _ := common.GetUserEmailFromContext(ctx)

	var req services.CreateSchoolRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return err
	}

	school, err := h.schoolService.Onboard(ctx, userID, email, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, school)
}

// GetSchool godoc
// @Summary  Current school
// @Tags     schools
// @Produce  json
// @Success  200  {object}  models.School
// @Failure  403  {object}  common.ErrorResponse
// @Security BearerAuth
// @Router   /school [get]
func (h *SchoolHandlers) GetSchool(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	school, err := h.schoolService.Get(c.Request().Context(), scope.SchoolID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, school)
}

// UpdateSchool godoc
// @Summary  Update the current school
// @Tags     schools
// @Accept   json
// @Produce  json
// @Param    body  body      services.UpdateSchoolRequest  true  "School"
// @Success  200   {object}  models.School
// @Security BearerAuth
// @Router   /school [put]
func (h *SchoolHandlers) UpdateSchool(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req services.UpdateSchoolRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return err
	}
	school, err := h.schoolService.Update(c.Request().Context(), scope.SchoolID, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, school)
}

// Me godoc
// @Summary      Caller profile
// @Description  Returns the user, role, school and permitted actions. Works before onboarding.
// @Tags         account
// @Produce      json
// @Success      200  {object}  services.Me
// @Security     BearerAuth
// @Router       /me [get]
func (h *SchoolHandlers) Me(c echo.Context) error {
	ctx := c.Request().Context()
	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "User not authenticated")
	}
	schoolID, _ := common.GetSchoolIDFromContext(ctx)
	role, _ := common.GetRoleFromContext(ctx)

	me, err := h.accountService.Me(ctx, userID, schoolID, role)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, me)
}
