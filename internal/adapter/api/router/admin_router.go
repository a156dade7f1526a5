package router

import (
	"github.com/labstack/echo/v4"

	"resaleo/internal/adapter/api/handler"
	"resaleo/internal/adapter/api/middleware"
)

// SetupAdminRouter sets up moderation routes.
func SetupAdminRouter(e *echo.Echo, adminHandler *handler.AdminHandler, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	adminGroup := e.Group("/v1/admin")
	adminGroup.Use(authMiddleware.Authenticate)
	adminGroup.Use(adminMiddleware.AdminOnly)

	adminGroup.DELETE("/chats/:id", adminHandler.DeleteChat) // DELETE /v1/admin/chats/:id - Remove a chat and its messages
}
