package router

import (
	"github.com/labstack/echo/v4"

	"resaleo/internal/adapter/api/handler"
	"resaleo/internal/adapter/api/middleware"
)

type Handlers struct {
	Chat      *handler.ChatHandler
	Upload    *handler.UploadHandler
	Admin     *handler.AdminHandler
	WebSocket *handler.WebSocketHandler
	Health    *handler.HealthHandler
}

func Setup(e *echo.Echo, h Handlers, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	SetupChatRouter(e, h.Chat, h.Upload, authMiddleware)
	SetupAdminRouter(e, h.Admin, authMiddleware, adminMiddleware)
	SetupWebSocketRouter(e, h.WebSocket)
	SetupHealthRouter(e, h.Health)
}
