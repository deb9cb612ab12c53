package handlers

import (
	"net/http"

	"schoolhub/internal/common"
	"schoolhub/internal/services"

	"github.com/labstack/echo/v4"
)

type ClassHandlers struct {
	classService services.ClassService
}

func NewClassHandlers(classService services.ClassService) *ClassHandlers {
	return &ClassHandlers{classService: classService}
}

func (h *ClassHandlers) CreateClass(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req services.ClassRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return err
	}
	class, err := h.classService.CreateClass(c.Request().Context(), scope.SchoolID, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, class)
}

func (h *ClassHandlers) ListClasses(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	classes, err := h.classService.ListClasses(c.Request().Context(), scope.SchoolID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, classes)
}

func (h *ClassHandlers) GetClass(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	class, err := h.classService.GetClass(c.Request().Context(), scope.SchoolID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, class)
}

func (h *ClassHandlers) UpdateClass(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req services.ClassRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return err
	}
	class, err := h.classService.UpdateClass(c.Request().Context(), scope.SchoolID, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, class)
}

func (h *ClassHandlers) DeleteClass(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.classService.DeleteClass(c.Request().Context(), scope.SchoolID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *ClassHandlers) CreateSubject(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req services.SubjectRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return err
	}
	subject, err := h.classService.CreateSubject(c.Request().Context(), scope.SchoolID, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, subject)
}

func (h *ClassHandlers) ListSubjects(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	subjects, err := h.classService.ListSubjects(c.Request().Context(), scope.SchoolID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, subjects)
}

func (h *ClassHandlers) UpdateSubject(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req services.SubjectRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return err
	}
	subject, err := h.classService.UpdateSubject(c.Request().Context(), scope.SchoolID, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, subject)
}

func (h *ClassHandlers) DeleteSubject(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.classService.DeleteSubject(c.Request().Context(), scope.SchoolID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
