package notifications

import (
	"github.com/labstack/echo/v4"

	"github.com/forgehub/platform/pkg/auth"
)

// RegisterRoutes registers the notifications routes.
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/api/notifications")
	g.Use(authMiddleware.RequireAuth())

	g.GET("", h.List)
	g.POST("/read-all", h.MarkAllRead)
	g.POST("/:id/read", h.MarkRead)
}
