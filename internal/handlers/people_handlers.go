package handlers

import (
	"net/http"

	"schoolhub/internal/common"
	"schoolhub/internal/services"

	"github.com/labstack/echo/v4"
)

// PeopleHandlers handles students, parents and the teacher directory
type PeopleHandlers struct {
	peopleService services.PeopleService
}

func NewPeopleHandlers(peopleService services.PeopleService) *PeopleHandlers {
	return &PeopleHandlers{peopleService: peopleService}
}

// CreateStudent handles POST /students
func (h *PeopleHandlers) CreateStudent(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req services.CreateStudentRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return err
	}
	student, err := h.peopleService.CreateStudent(c.Request().Context(), scope.SchoolID, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, student)
}

// ListStudents handles GET /students?class_id=
func (h *PeopleHandlers) ListStudents(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	classID, err := optionalQueryID(c, "class_id")
	if err != nil {
		return err
	}
	limit, offset := pagination(c)
	students, err := h.peopleService.ListStudents(c.Request().Context(), scope.SchoolID, classID, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, students)
}

// GetStudent handles GET /students/:id
func (h *PeopleHandlers) GetStudent(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	student, err := h.peopleService.GetStudent(c.Request().Context(), scope.SchoolID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, student)
}

// CreateParent handles POST /parents
func (h *PeopleHandlers) CreateParent(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req services.CreateParentRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return err
	}
	parent, err := h.peopleService.CreateParent(c.Request().Context(), scope.SchoolID, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, parent)
}

// ListTeachers handles GET /teachers
func (h *PeopleHandlers) ListTeachers(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	limit, offset := pagination(c)
	teachers, err := h.peopleService.ListTeachers(c.Request().Context(), scope.SchoolID, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, teachers)
}
