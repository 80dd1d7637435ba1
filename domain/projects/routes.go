package projects

import (
	"github.com/labstack/echo/v4"

	"github.com/forgehub/platform/pkg/auth"
)

// RegisterRoutes registers the projects routes. Fine-grained
// authorization (project:read/write/delete) happens inside the
// handler via domain/permissions, since it depends on the specific
// project scope in the path rather than a static scope list.
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/api/projects")
	g.Use(authMiddleware.RequireAuth())

	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}
