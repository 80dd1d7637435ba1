package agentsessions

import (
	"github.com/labstack/echo/v4"

	"github.com/forgehub/platform/pkg/auth"
)

// RegisterRoutes registers the project-scoped agent-session routes.
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/api/projects/:projectId/agent-sessions")
	g.Use(authMiddleware.RequireAuth())

	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/stop", h.Stop)
	g.GET("/:id/progress", h.Progress)
}
