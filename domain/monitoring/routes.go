package monitoring

import (
	"github.com/labstack/echo/v4"
)

const alertStreamPath = "/api/monitoring/alerts/stream"

// RegisterRoutes registers monitoring routes with fx
func RegisterRoutes(e *echo.Echo, h *Handler) {
	monitoring := e.Group("/api/monitoring")

	monitoring.GET("/performance", h.GetPerformance)
	monitoring.GET("/cache", h.GetCache)
	monitoring.GET("/cache/:name", h.GetCacheByName)
	monitoring.GET("/health", h.GetHealth)
	monitoring.GET("/alerts", h.GetAlerts)

	// GET kept alongside POST for dashboards that can only issue GETs
	monitoring.POST("/monitor/cache", h.TriggerCacheMonitor)
	monitoring.GET("/monitor/cache", h.TriggerCacheMonitor)
}

// RegisterStreamRoutes registers the live alert stream
func RegisterStreamRoutes(e *echo.Echo, h *StreamHandler) {
	e.GET(alertStreamPath, h.StreamAlerts)
}
