package handlers

import (
	"net/http"
	"strconv"

	"schoolhub/internal/common"
	"schoolhub/internal/services"

	"github.com/labstack/echo/v4"
)

// AIHandlers exposes the AI assisted features. Every route is rate limited
// per school by middleware.
type AIHandlers struct {
	aiService services.AIService
}

func NewAIHandlers(aiService services.AIService) *AIHandlers {
	return &AIHandlers{aiService: aiService}
}

// ProposeTimetable godoc
// @Summary      Generate a timetable proposal for a class
// @Description  Proposed entries are run through the conflict checker; with apply=true the accepted ones are booked
// @Tags         ai
// @Accept       json
// @Produce      json
// @Param        body  body      services.AITimetableRequest  true  "Generation parameters"
// @Success      200   {object}  services.TimetableProposal
// @Failure      429   {object}  common.ErrorResponse
// @Failure      502   {object}  common.ErrorResponse
// @Security     BearerAuth
// @Router       /ai/timetable [post]
func (h *AIHandlers) ProposeTimetable(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req services.AITimetableRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return err
	}
	proposal, err := h.aiService.ProposeTimetable(c.Request().Context(), scope.SchoolID, scope.UserID, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, proposal)
}

// PredictPerformance godoc
// @Summary  Predict a student's performance from graded work
// @Tags     ai
// @Accept   json
// @Produce  json
// @Param    body  body      services.AIPerformanceRequest  true  "Student"
// @Success  200   {object}  services.PerformancePrediction
// @Security BearerAuth
// @Router   /ai/performance [post]
func (h *AIHandlers) PredictPerformance(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req services.AIPerformanceRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return err
	}
	prediction, err := h.aiService.PredictPerformance(c.Request().Context(), scope.SchoolID, scope.UserID, scope.Role, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, prediction)
}

// @Router /ai/chat [post]
func (h *AIHandlers) Chat(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req services.AIChatRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return err
	}
	reply, err := h.aiService.Chat(c.Request().Context(), scope.SchoolID, scope.UserID, scope.Role, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, reply)
}

// @Router /ai/fee-analytics [post]
func (h *AIHandlers) FeeAnalytics(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	analytics, err := h.aiService.FeeAnalytics(c.Request().Context(), scope.SchoolID, scope.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, analytics)
}

// @Router /ai/insights [get]
func (h *AIHandlers) ListInsights(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	limit, _ = common.ValidatePaginationParams(limit, 0)
	insights, err := h.aiService.ListInsights(c.Request().Context(), scope.SchoolID, c.QueryParam("kind"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, insights)
}
