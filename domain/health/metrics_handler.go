package health

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emergent-company/salon-monitor/domain/scheduler"
)

// TaskLister is satisfied by *scheduler.Scheduler.
type TaskLister interface {
	GetTaskInfo() []scheduler.TaskInfo
	IsRunning() bool
}

// MetricsHandler serves the Prometheus registry and scheduled task state
type MetricsHandler struct {
	tasks      TaskLister
	prometheus http.Handler
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(tasks TaskLister) *MetricsHandler {
	return &MetricsHandler{
		tasks:      tasks,
		prometheus: promhttp.Handler(),
	}
}

// SchedulerMetricsResponse describes the monitoring scheduler
type SchedulerMetricsResponse struct {
	Running   bool                 `json:"running"`
	Tasks     []scheduler.TaskInfo `json:"tasks"`
	Timestamp string               `json:"timestamp"`
}

// Prometheus exposes every registered collector in the text exposition format.
func (h *MetricsHandler) Prometheus(c echo.Context) error {
	h.prometheus.ServeHTTP(c.Response(), c.Request())
	return nil
}

// SchedulerMetrics returns the schedule and last outcome of each monitoring task
func (h *MetricsHandler) SchedulerMetrics(c echo.Context) error {
	return c.JSON(http.StatusOK, SchedulerMetricsResponse{
		Running:   h.tasks.IsRunning(),
		Tasks:     h.tasks.GetTaskInfo(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}
