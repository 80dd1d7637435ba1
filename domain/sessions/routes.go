package sessions

import (
	"github.com/labstack/echo/v4"

	"github.com/forgehub/platform/pkg/auth"
)

// RegisterRoutes registers the auth session routes.
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/api/auth")
	g.POST("/login", h.Login)

	protected := g.Group("")
	protected.Use(authMiddleware.RequireAuth())
	protected.POST("/logout", h.Logout)
}
