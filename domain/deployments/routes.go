package deployments

import (
	"github.com/labstack/echo/v4"

	"github.com/forgehub/platform/pkg/auth"
)

// RegisterRoutes registers the project-scoped deployment routes.
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/api/projects/:projectId/deployments")
	g.Use(authMiddleware.RequireAuth())

	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/history", h.History)
	g.POST("/:id/deploy", h.Deploy)
	g.POST("/:id/stop", h.Stop)
	g.POST("/:id/resume", h.Resume)
	g.POST("/:id/rollback", h.Rollback)
}
