package handlers

import (
	"errors"
	"net/http"

	"schoolhub/internal/common"
	"schoolhub/internal/models"
	"schoolhub/internal/repositories"
	"schoolhub/internal/services"

	"github.com/labstack/echo/v4"
)

// TimetableHandlers handles timetable endpoints
type TimetableHandlers struct {
	timetableService services.TimetableService
}

func NewTimetableHandlers(timetableService services.TimetableService) *TimetableHandlers {
	return &TimetableHandlers{timetableService: timetableService}
}

// ConflictResponse is returned with 409 when an entry clashes with booked slots.
type ConflictResponse struct {
	Error     string            `json:"error"`
	Conflicts []models.Conflict `json:"conflicts"`
}

// ListTimetable godoc
// @Summary  List timetable entries
// @Tags     timetable
// @Produce  json
// @Param    class_id    query  string  false  "Class ID"
// @Param    teacher_id  query  string  false  "Teacher ID"
// @Param    day         query  string  false  "Weekday"
// @Success  200  {array}  models.TimetableEntry
// @Security BearerAuth
// @Router   /timetable [get]
func (h *TimetableHandlers) ListTimetable(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var filter repositories.TimetableFilter
	if filter.ClassID, err = optionalQueryID(c, "class_id"); err != nil {
		return err
	}
	if filter.TeacherID, err = optionalQueryID(c, "teacher_id"); err != nil {
		return err
	}
	if day := c.QueryParam("day"); day != "" {
		if !models.IsWeekday(day) {
			return echo.NewHTTPError(http.StatusBadRequest, "day must be Monday through Saturday")
		}
		filter.Day = day
	}
	entries, err := h.timetableService.List(c.Request().Context(), scope.SchoolID, filter)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entries)
}

// CreateTimetableEntry godoc
// @Summary  Book a timetable slot
// @Tags     timetable
// @Accept   json
// @Produce  json
// @Param    body  body      services.TimetableEntryRequest  true  "Slot"
// @Success  201   {object}  models.TimetableEntry
// @Failure  409   {object}  ConflictResponse
// @Security BearerAuth
// @Router   /timetable [post]
func (h *TimetableHandlers) CreateTimetableEntry(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req services.TimetableEntryRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return err
	}
	entry, err := h.timetableService.Create(c.Request().Context(), scope.SchoolID, &req)
	if err != nil {
		var conflictErr *services.ScheduleConflictError
		if errors.As(err, &conflictErr) {
			return c.JSON(http.StatusConflict, ConflictResponse{Error: conflictErr.Error(), Conflicts: conflictErr.Conflicts})
		}
		return err
	}
	return c.JSON(http.StatusCreated, entry)
}

// @Router /timetable/{id} [delete]
func (h *TimetableHandlers) DeleteTimetableEntry(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.timetableService.Delete(c.Request().Context(), scope.SchoolID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
