package permissions

import (
	"github.com/labstack/echo/v4"

	"github.com/forgehub/platform/pkg/auth"
)

// RegisterRoutes registers delegation and role-assignment routes.
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/api/permissions")
	g.Use(authMiddleware.RequireAuth())

	g.GET("/me", h.Me)
	g.POST("/delegations", h.Delegate)
	g.DELETE("/delegations/:id", h.Revoke)

	admin := g.Group("")
	admin.Use(authMiddleware.RequireScopes("admin:roles"))
	admin.POST("/role-assignments", h.AssignRole)
}
