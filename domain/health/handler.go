package health

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/emergent-company/salon-monitor/internal/config"
	"github.com/emergent-company/salon-monitor/internal/version"
	"github.com/emergent-company/salon-monitor/pkg/perfmon"
	"github.com/emergent-company/salon-monitor/pkg/syshealth"
)

const probeTimeout = 5 * time.Second

// HealthChecker produces the aggregated health verdict.
type HealthChecker interface {
	PerformHealthCheck(ctx context.Context) perfmon.HealthReport
}

// ReadinessProbe reports whether the cache backend is reachable.
type ReadinessProbe interface {
	ListCacheNames(ctx context.Context) ([]string, error)
}

// MemorySampler exposes the most recent process memory sample.
type MemorySampler interface {
	Latest() (syshealth.Sample, bool)
}

// Handler handles health check requests
type Handler struct {
	checker HealthChecker
	probe   ReadinessProbe
	sampler MemorySampler
	cfg     *config.Config
	startAt time.Time
}

// NewHandler creates a new health handler
func NewHandler(checker HealthChecker, probe ReadinessProbe, sampler MemorySampler, cfg *config.Config) *Handler {
	return &Handler{
		checker: checker,
		probe:   probe,
		sampler: sampler,
		cfg:     cfg,
		startAt: time.Now(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    perfmon.Status   `json:"status"`
	Timestamp string           `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
}

// Check represents an individual health check result
type Check struct {
	Status  perfmon.Status `json:"status"`
	Message string         `json:"message,omitempty"`
}

// Health returns the overall service health. WARNING still answers 200 so
// load balancers keep routing; only DOWN answers 503.
func (h *Handler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), probeTimeout)
	defer cancel()

	report := h.checker.PerformHealthCheck(ctx)

	cacheCheck := Check{Status: report.CacheHealth}
	if report.CacheHealth == perfmon.StatusDown {
		cacheCheck.Message = "cache provider unavailable"
	} else {
		cacheCheck.Message = fmt.Sprintf("hit rate %.2f%%", report.CacheHitRate)
	}

	memoryCheck := Check{Status: report.MemoryHealth}
	if report.Memory.MaxBytes > 0 {
		memoryCheck.Message = fmt.Sprintf("%.1f%% of %d MB", report.Memory.UsedPercent(), report.Memory.MaxBytes/1024/1024)
	} else {
		memoryCheck.Message = "memory limit unknown"
	}

	response := HealthResponse{
		Status:    report.Status,
		Timestamp: report.Timestamp.UTC().Format(time.RFC3339),
		Uptime:    time.Since(h.startAt).String(),
		Version:   version.Version,
		Checks: map[string]Check{
			"cache":  cacheCheck,
			"memory": memoryCheck,
		},
	}

	statusCode := http.StatusOK
	if report.Status == perfmon.StatusDown {
		statusCode = http.StatusServiceUnavailable
	}

	return c.JSON(statusCode, response)
}

// Healthz returns a simple health check (for k8s liveness probe)
func (h *Handler) Healthz(c echo.Context) error {
	return c.String(http.StatusOK, "OK")
}

// Ready returns readiness status (for k8s readiness probe)
func (h *Handler) Ready(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), probeTimeout)
	defer cancel()

	if _, err := h.probe.ListCacheNames(ctx); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]any{
			"status":  "not_ready",
			"message": "Cache backend unavailable",
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"status": "ready",
	})
}

// Debug returns runtime and memory sampler details outside production.
func (h *Handler) Debug(c echo.Context) error {
	if h.cfg.Environment == "production" {
		return echo.NewHTTPError(http.StatusNotFound, "Not found")
	}

	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	result := map[string]any{
		"environment": h.cfg.Environment,
		"debug":       h.cfg.Debug,
		"version":     version.Info(),
		"goroutines":  runtime.NumGoroutine(),
		"num_cpu":     runtime.NumCPU(),
		"memory": map[string]any{
			"alloc_mb":       mem.Alloc / 1024 / 1024,
			"total_alloc_mb": mem.TotalAlloc / 1024 / 1024,
			"sys_mb":         mem.Sys / 1024 / 1024,
			"num_gc":         mem.NumGC,
		},
		"cache": map[string]any{
			"backend": h.cfg.Cache.Backend,
			"names":   h.cfg.Cache.Names,
		},
	}

	if s, ok := h.sampler.Latest(); ok {
		result["sampler"] = map[string]any{
			"used_mb":           s.UsedBytes / 1024 / 1024,
			"heap_in_use_mb":    s.HeapInUseBytes / 1024 / 1024,
			"limit_mb":          s.LimitBytes / 1024 / 1024,
			"limit_source":      s.LimitSource,
			"used_percent":      s.UsedPercent(),
			"host_used_percent": s.HostUsedPercent,
			"timestamp":         s.Timestamp.UTC().Format(time.RFC3339),
			"stale":             s.Stale,
		}
	}

	return c.JSON(http.StatusOK, result)
}
