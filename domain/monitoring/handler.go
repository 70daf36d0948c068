package monitoring

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/emergent-company/salon-monitor/pkg/apperror"
	"github.com/emergent-company/salon-monitor/pkg/perfmon"
)

// ChannelLister reports the configured alert delivery channels.
type ChannelLister interface {
	Channels() []string
}

// Handler handles HTTP requests for monitoring endpoints
type Handler struct {
	monitor  *perfmon.Monitor
	channels ChannelLister
	now      func() time.Time
}

// NewHandler creates a new monitoring handler
func NewHandler(monitor *perfmon.Monitor, channels ChannelLister) *Handler {
	return &Handler{monitor: monitor, channels: channels, now: time.Now}
}

// GetPerformance handles GET /api/monitoring/performance
// @Summary      Performance statistics
// @Description  Uptime, memory usage, alert thresholds and cache statistics
// @Tags         monitoring
// @Produce      json
// @Success      200 {object} perfmon.PerformanceSnapshot
// @Router       /api/monitoring/performance [get]
func (h *Handler) GetPerformance(c echo.Context) error {
	return c.JSON(http.StatusOK, h.monitor.GetPerformanceStatistics(c.Request().Context()))
}

// GetCache handles GET /api/monitoring/cache
// @Summary      Cache statistics
// @Description  Per-cache and aggregate hit rates
// @Tags         monitoring
// @Produce      json
// @Success      200 {object} perfmon.AggregateCacheStats
// @Router       /api/monitoring/cache [get]
func (h *Handler) GetCache(c echo.Context) error {
	return c.JSON(http.StatusOK, h.monitor.GetCacheStatistics(c.Request().Context()))
}

// GetCacheByName handles GET /api/monitoring/cache/:name
// @Summary      Statistics of one cache
// @Tags         monitoring
// @Produce      json
// @Param        name path string true "Cache name"
// @Success      200 {object} perfmon.CacheSnapshot
// @Failure      404 {object} apperror.Error "Unknown cache"
// @Failure      503 {object} apperror.Error "Cache provider unavailable"
// @Router       /api/monitoring/cache/{name} [get]
func (h *Handler) GetCacheByName(c echo.Context) error {
	name := c.Param("name")
	stats := h.monitor.GetCacheStatistics(c.Request().Context())
	if !stats.ProviderAvailable {
		return apperror.ErrCacheUnavailable
	}

	for _, snap := range stats.PerCache {
		if snap.Name == name {
			return c.JSON(http.StatusOK, snap)
		}
	}
	return apperror.NewNotFound("cache", name)
}

// GetHealth handles GET /api/monitoring/health
// @Summary      Performance health check
// @Description  Combined cache and memory verdict; 503 when DOWN
// @Tags         monitoring
// @Produce      json
// @Success      200 {object} perfmon.HealthReport
// @Failure      503 {object} perfmon.HealthReport
// @Router       /api/monitoring/health [get]
func (h *Handler) GetHealth(c echo.Context) error {
	report := h.monitor.PerformHealthCheck(c.Request().Context())

	status := http.StatusOK
	if report.Status == perfmon.StatusDown {
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, report)
}

// TriggerCacheMonitor handles POST /api/monitoring/monitor/cache
// @Summary      Sample cache performance now
// @Description  Evaluates the cache hit rate immediately and alerts on a breach
// @Tags         monitoring
// @Produce      json
// @Success      200 {object} MessageResponse
// @Router       /api/monitoring/monitor/cache [post]
func (h *Handler) TriggerCacheMonitor(c echo.Context) error {
	h.monitor.RecordCachePerformance(c.Request().Context())
	return c.JSON(http.StatusOK, MessageResponse{Message: "cache performance monitoring triggered"})
}

// GetAlerts handles GET /api/monitoring/alerts
// @Summary      Alert gate status
// @Description  Threshold, cooldown and last alert time per signal
// @Tags         monitoring
// @Produce      json
// @Success      200 {object} AlertStatusResponse
// @Router       /api/monitoring/alerts [get]
func (h *Handler) GetAlerts(c echo.Context) error {
	policy := h.monitor.Policy()
	debouncer := h.monitor.Debouncer()
	now := h.now()

	resp := AlertStatusResponse{
		Signals:  make([]AlertStatusDTO, 0, len(perfmon.Kinds())),
		Channels: []string{},
	}
	if h.channels != nil {
		resp.Channels = append(resp.Channels, h.channels.Channels()...)
	}

	for _, kind := range perfmon.Kinds() {
		t := policy.Get(kind)
		dto := AlertStatusDTO{
			Signal:     kind.String(),
			Alert:      kind.AlertName(),
			Threshold:  t.Value,
			Comparison: string(t.Comparison),
			CooldownMs: t.Cooldown.Milliseconds(),
		}
		if last, ok := debouncer.LastFired(kind); ok {
			dto.LastFired = &last
			dto.CoolingOff = now.Sub(last) <= t.Cooldown
		}
		resp.Signals = append(resp.Signals, dto)
	}

	return c.JSON(http.StatusOK, resp)
}
