package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"schoolhub/internal/common"
	"schoolhub/internal/services"

	"github.com/labstack/echo/v4"
)

// maxUploadSize caps a submission attachment.
const maxUploadSize = 20 << 20

// AssignmentHandlers handles assignments, submissions and grading
type AssignmentHandlers struct {
	assignmentService services.AssignmentService
}

func NewAssignmentHandlers(assignmentService services.AssignmentService) *AssignmentHandlers {
	return &AssignmentHandlers{assignmentService: assignmentService}
}

// CreateAssignment handles POST /assignments
func (h *AssignmentHandlers) CreateAssignment(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req services.CreateAssignmentRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return err
	}
	assignment, err := h.assignmentService.Create(c.Request().Context(), scope.SchoolID, scope.UserID, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, assignment)
}

// ListAssignments handles GET /assignments?class_id=
func (h *AssignmentHandlers) ListAssignments(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	classID, err := optionalQueryID(c, "class_id")
	if err != nil {
		return err
	}
	assignments, err := h.assignmentService.List(c.Request().Context(), scope.SchoolID, scope.UserID, scope.Role, classID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, assignments)
}

// DeleteAssignment godoc
// @Summary      Delete an assignment with its submissions
// @Tags         assignments
// @Produce      json
// @Param        id   path  string  true  "Assignment ID"
// @Success      204
// @Failure      403  {object}  common.ErrorResponse
// @Failure      404  {object}  common.ErrorResponse
// @Security     BearerAuth
// @Router       /assignments/{id} [delete]
func (h *AssignmentHandlers) DeleteAssignment(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	if err := h.assignmentService.Delete(c.Request().Context(), scope.SchoolID, scope.UserID, id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// SubmitAssignment godoc
// @Summary      Submit work for an assignment
// @Description  Multipart form with an optional "content" text field and an optional "file" attachment
// @Tags         assignments
// @Accept       multipart/form-data
// @Produce      json
// @Param        id       path      string  true   "Assignment ID"
// @Param        content  formData  string  false  "Answer text"
// @Param        file     formData  file    false  "Attachment"
// @Success      201      {object}  models.Submission
// @Security     BearerAuth
// @Router       /assignments/{id}/submissions [post]
func (h *AssignmentHandlers) SubmitAssignment(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}

	var content *string
	if text := strings.TrimSpace(c.FormValue("content")); text != "" {
		content = &text
	}

	var upload *services.Upload
	fileHeader, err := c.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart):
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid file upload")
	default:
		if fileHeader.Size > maxUploadSize {
			return echo.NewHTTPError(http.StatusRequestEntityTooLarge, fmt.Sprintf("file exceeds %d MB", maxUploadSize>>20))
		}
		file, err := fileHeader.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Failed to open uploaded file")
		}
		defer file.Close()
		upload = &services.Upload{
			Filename:    fileHeader.Filename,
			ContentType: fileHeader.Header.Get("Content-Type"),
			Size:        fileHeader.Size,
			Reader:      file,
		}
	}

	submission, err := h.assignmentService.Submit(c.Request().Context(), scope.SchoolID, scope.UserID, id, content, upload)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, submission)
}

// ListSubmissions handles GET /assignments/:id/submissions
func (h *AssignmentHandlers) ListSubmissions(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	submissions, err := h.assignmentService.ListSubmissions(c.Request().Context(), scope.SchoolID, scope.UserID, scope.Role, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, submissions)
}

// GradeSubmission handles PUT /submissions/:id/grade
func (h *AssignmentHandlers) GradeSubmission(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	var req services.GradeRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return err
	}
	submission, err := h.assignmentService.Grade(c.Request().Context(), scope.SchoolID, scope.UserID, id, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, submission)
}
