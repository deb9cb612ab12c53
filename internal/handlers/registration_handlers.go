package handlers

import (
	"net/http"

	"schoolhub/internal/common"
	"schoolhub/internal/services"

	"github.com/labstack/echo/v4"
)

// RegistrationHandlers serves the teacher whitelist and self-registration.
type RegistrationHandlers struct {
	registrationService services.RegistrationService
}

func NewRegistrationHandlers(registrationService services.RegistrationService) *RegistrationHandlers {
	return &RegistrationHandlers{registrationService: registrationService}
}

// AddToWhitelist godoc
// @Summary  Pre-approve a teacher email
// @Tags     whitelist
// @Accept   json
// @Produce  json
// @Param    body  body      services.WhitelistRequest  true  "Entry"
// @Success  201   {object}  models.WhitelistedTeacher
// @Failure  409   {object}  common.ErrorResponse
// @Security BearerAuth
// @Router   /whitelist [post]
func (h *RegistrationHandlers) AddToWhitelist(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req services.WhitelistRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return err
	}
	entry, err := h.registrationService.AddToWhitelist(c.Request().Context(), scope.SchoolID, scope.UserID, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, entry)
}

// @Router /whitelist [get]
func (h *RegistrationHandlers) ListWhitelist(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	entries, err := h.registrationService.ListWhitelist(c.Request().Context(), scope.SchoolID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

// @Router /whitelist/{id} [delete]
func (h *RegistrationHandlers) RemoveFromWhitelist(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.registrationService.RemoveFromWhitelist(c.Request().Context(), scope.SchoolID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// RegisterTeacher godoc
// @Summary      Register as a teacher
// @Description  Creates the caller's teacher profile when their token email is whitelisted for the school of the request host
// @Tags         whitelist
// @Accept       json
// @Produce      json
// @Param        body  body      services.RegisterTeacherRequest  true  "Profile"
// @Success      201   {object}  models.Teacher
// @Failure      403   {object}  common.ErrorResponse
// @Security     BearerAuth
// @Router       /register/teacher [post]
func (h *RegistrationHandlers) RegisterTeacher(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req services.RegisterTeacherRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return err
	}
	teacher, err := h.registrationService.RegisterTeacher(c.Request().Context(), scope.SchoolID, scope.UserID, scope.Email, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, teacher)
}
