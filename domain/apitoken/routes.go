package apitoken

import (
	"github.com/labstack/echo/v4"

	"github.com/forgehub/platform/pkg/auth"
)

// RegisterRoutes registers API token routes.
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/api/tokens")
	g.Use(authMiddleware.RequireAuth())

	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:tokenId", h.Get)
}
