package telemetry

import (
	"github.com/labstack/echo/v4"

	"github.com/forgehub/platform/pkg/auth"
)

// RegisterRoutes registers the OTLP/HTTP ingest endpoints. These sit
// outside /api: they implement the OTLP collector's standard HTTP paths
// so off-the-shelf OTLP exporters can point at this service unmodified.
func RegisterRoutes(e *echo.Echo, h *Handler, authMiddleware *auth.Middleware) {
	g := e.Group("/v1")
	g.Use(authMiddleware.RequireAuth())

	g.POST("/traces", h.Traces)
	g.POST("/logs", h.Logs)
	g.POST("/metrics", h.Metrics)
}
