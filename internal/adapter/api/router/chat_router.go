package router

import (
	"github.com/labstack/echo/v4"

	"resaleo/internal/adapter/api/handler"
	"resaleo/internal/adapter/api/middleware"
)

// SetupChatRouter sets up all chat-related routes (excluding WebSocket)
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, uploadHandler *handler.UploadHandler, authMiddleware *middleware.AuthMiddleware) {
	chatGroup := e.Group("/v1/chats")
	chatGroup.Use(authMiddleware.Authenticate) // All chat endpoints require authentication

	// Chat management
	chatGroup.POST("", chatHandler.StartChat)              // POST /v1/chats - Start or reopen a chat for a listing
	chatGroup.GET("", chatHandler.GetUserChats)            // GET /v1/chats - Get user's chats
	chatGroup.PUT("/:id/read", chatHandler.MarkChatAsRead) // PUT /v1/chats/:id/read - Mark chat as read

	// Message management
	chatGroup.POST("/messages", chatHandler.SendMessage)        // POST /v1/chats/messages - Persist a message
	chatGroup.GET("/:id/messages", chatHandler.GetChatMessages) // GET /v1/chats/:id/messages - Get chat history

	// Image upload for chat messages
	chatGroup.POST("/upload", uploadHandler.UploadImage) // POST /v1/chats/upload - Upload chat image
}
