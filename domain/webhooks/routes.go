package webhooks

import (
	"github.com/labstack/echo/v4"

	"github.com/forgehub/platform/pkg/auth"
)

// RegisterRoutes registers the project-scoped webhook routes. Unlike
// domain/projects, every route here depends on the projectId path
// parameter for its permission check, so there is no static-scope
// sub-group: authentication is gated at the group, authorization inline
// in each handler.
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/api/projects/:projectId/webhooks")
	g.Use(authMiddleware.RequireAuth())

	g.POST("", h.Create)
	g.GET("", h.List)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/deliveries", h.Deliveries)
}
