package handler

import (
	"github.com/labstack/echo/v4"

	"resaleo/internal/usecase"
	"resaleo/pkg/response"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type startChatRequest struct {
	ListingID  string `json:"listing_id" validate:"required"`
	ReceiverID string `json:"receiver_id" validate:"required"`
}

type sendMessageRequest struct {
	ChatID      string `json:"chat_id" validate:"required"`
	Content     string `json:"content"`
	MessageType string `json:"message_type" validate:"omitempty,oneof=text image"`
	MediaURL    string `json:"media_url,omitempty" validate:"omitempty,url"`
}

// StartChat opens the conversation for a listing between the caller and
// the receiver, creating it on first contact. Returns 201 when a chat was
// created and 200 when an existing one was reused.
func (h *ChatHandler) StartChat(c echo.Context) error {
	var req startChatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	chat, created, err := h.chatUseCase.StartOrGetChat(c.Request().Context(), userID, usecase.StartChatInput{
		ListingID:  req.ListingID,
		ReceiverID: req.ReceiverID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	if created {
		return response.Created(c, chat)
	}
	return response.Success(c, chat)
}

// GetUserChats lists the caller's chats, most recently active first.
func (h *ChatHandler) GetUserChats(c echo.Context) error {
	userID := c.Get("uid").(string)

	chats, err := h.chatUseCase.ListUserChats(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chats)
}

// GetChatMessages returns the full ordered history of one chat.
func (h *ChatHandler) GetChatMessages(c echo.Context) error {
	chatID := c.Param("id")
	userID := c.Get("uid").(string)

	messages, err := h.chatUseCase.ListMessages(c.Request().Context(), userID, chatID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, messages)
}

// SendMessage persists a message. Live delivery is not triggered here; the
// sender's client announces the stored message over its socket afterwards.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	message, err := h.chatUseCase.SendMessage(c.Request().Context(), userID, usecase.SendMessageInput{
		ChatID:      req.ChatID,
		Content:     req.Content,
		MessageType: req.MessageType,
		MediaURL:    req.MediaURL,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// MarkChatAsRead marks every message of the chat as read by the caller.
func (h *ChatHandler) MarkChatAsRead(c echo.Context) error {
	chatID := c.Param("id")
	userID := c.Get("uid").(string)

	if err := h.chatUseCase.MarkChatAsRead(c.Request().Context(), chatID, userID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "read"})
}
