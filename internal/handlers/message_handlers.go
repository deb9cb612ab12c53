package handlers

import (
	"net/http"

	"schoolhub/internal/common"
	"schoolhub/internal/services"

	"github.com/labstack/echo/v4"
)

// MessageHandlers handles direct messaging between users of one school
type MessageHandlers struct {
	messageService services.MessageService
}

func NewMessageHandlers(messageService services.MessageService) *MessageHandlers {
	return &MessageHandlers{messageService: messageService}
}

// SendMessage godoc
// @Summary  Send a direct message
// @Tags     messages
// @Accept   json
// @Produce  json
// @Param    body  body      services.SendMessageRequest  true  "Message"
// @Success  201   {object}  models.Message
// @Security BearerAuth
// @Router   /messages [post]
func (h *MessageHandlers) SendMessage(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	var req services.SendMessageRequest
	if err := common.BindAndValidate(c, &req); err != nil {
		return err
	}
	msg, err := h.messageService.Send(c.Request().Context(), scope.SchoolID, scope.UserID, &req)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, msg)
}

// @Router /conversations [get]
func (h *MessageHandlers) ListConversations(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	conversations, err := h.messageService.ListConversations(c.Request().Context(), scope.SchoolID, scope.UserID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, conversations)
}

// @Router /conversations/{id}/messages [get]
func (h *MessageHandlers) ListMessages(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	limit, offset := pagination(c)
	messages, err := h.messageService.ListMessages(c.Request().Context(), scope.SchoolID, scope.UserID, id, limit, offset)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messages)
}

// @Router /conversations/{id}/read [put]
func (h *MessageHandlers) MarkRead(c echo.Context) error {
	scope, err := scopeOf(c)
	if err != nil {
		return err
	}
	id, err := pathID(c, "id")
	if err != nil {
		return err
	}
	n, err := h.messageService.MarkRead(c.Request().Context(), scope.SchoolID, scope.UserID, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int64{"marked_read": n})
}
