package secrets

import (
	"github.com/labstack/echo/v4"

	"github.com/forgehub/platform/pkg/auth"
)

// RegisterRoutes registers secret management routes.
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/api/projects/:projectId/secrets")
	g.Use(authMiddleware.RequireAuth())
	g.Use(authMiddleware.RequireScopes("secret:write"))

	g.PUT("", h.Upsert)
	g.GET("", h.List)
	g.DELETE("/:name", h.Delete)
}
