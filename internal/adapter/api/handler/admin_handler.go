package handler

import (
	"github.com/labstack/echo/v4"

	"resaleo/internal/usecase"
	"resaleo/pkg/logger"
	"resaleo/pkg/response"
)

type AdminHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewAdminHandler(chatUseCase *usecase.ChatUseCase) *AdminHandler {
	return &AdminHandler{
		chatUseCase: chatUseCase,
	}
}

// DeleteChat removes a conversation and all of its messages. Moderation
// only; regular users cannot delete chats.
func (h *AdminHandler) DeleteChat(c echo.Context) error {
	chatID := c.Param("id")
	adminID := c.Get("uid").(string)

	if err := h.chatUseCase.DeleteChat(c.Request().Context(), chatID); err != nil {
		return response.Error(c, err)
	}

	logger.Info("Chat %s deleted by admin %s", chatID, adminID)
	return response.Success(c, map[string]string{"status": "deleted"})
}
