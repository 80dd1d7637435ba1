package users

import (
	"github.com/labstack/echo/v4"

	"github.com/forgehub/platform/pkg/auth"
)

// RegisterRoutes registers the users routes.
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/api/users")
	g.Use(authMiddleware.RequireAuth())

	g.GET("/me", h.Me)

	admin := g.Group("")
	admin.Use(authMiddleware.RequireScopes("admin:users"))
	admin.POST("", h.Create)
	admin.GET("/:id", h.Get)
	admin.DELETE("/:id", h.Deactivate)
}
