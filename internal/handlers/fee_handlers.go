package handlers

import (
	"net/http"

	"schoolhub/internal/common"
	"schoolhub/internal/services"

	"github.com/labstack/echo/v4"
)

type FeeHandlers struct {
	feeService services.FeeService
}

func NewFeeHandlers(feeService services.FeeService) *FeeHandlers {
	return &FeeHandlers{feeService: feeService}
}

// @Router /fees [post]
func (h *FeeHandlers) CreateFee(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req services.CreateFeeRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return err
	}
	fee, err := h.feeService.Create(c.Request().Context(), scope.SchoolID, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, fee)
}

// ListFees godoc
// @Summary      List fees
// @Description  Admins see every fee; students and parents see their own
// @Tags         fees
// @Produce      json
// @Param        status  query  string  false  "pending, paid or overdue"
// @Param        limit   query  int     false  "Page size"
// @Param        offset  query  int     false  "Offset"
// @Success      200     {array}  models.Fee
// @Security     BearerAuth
// @Router       /fees [get]
func (h *FeeHandlers) ListFees(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	limit, offset := pagination(c)
	fees, err := h.feeService.List(c.Request().Context(), scope.SchoolID, scope.UserID, scope.Role, c.QueryParam("status"), limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, fees)
}

// @Router /fees/{id}/pay [put]
func (h *FeeHandlers) MarkFeePaid(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	fee, err := h.feeService.MarkPaid(c.Request().Context(), scope.SchoolID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, fee)
}

// @Router /fees/summary [get]
func (h *FeeHandlers) FeeSummary(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	summary, err := h.feeService.Summary(c.Request().Context(), scope.SchoolID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summary)
}
