package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/emergent-company/salon-monitor/pkg/logger"
	"github.com/emergent-company/salon-monitor/pkg/perfmon"
)

const (
	CacheMonitorTaskName = "cache_performance_monitor"
	HealthCheckTaskName  = "performance_health_check"
)

// CacheMonitor is satisfied by *perfmon.Monitor.
type CacheMonitor interface {
	RecordCachePerformance(ctx context.Context)
}

// HealthChecker is satisfied by *perfmon.Monitor.
type HealthChecker interface {
	PerformHealthCheck(ctx context.Context) perfmon.HealthReport
}

// CacheMonitorTask samples the aggregate cache hit rate and alerts when it is low.
type CacheMonitorTask struct {
	monitor CacheMonitor
	log     *slog.Logger
}

// NewCacheMonitorTask creates a new cache monitor task
func NewCacheMonitorTask(monitor CacheMonitor, log *slog.Logger) *CacheMonitorTask {
	return &CacheMonitorTask{
		monitor: monitor,
		log:     log.With(logger.Scope("scheduler.cache_monitor")),
	}
}

// Run executes one cache performance sample. Failures are handled by the
// monitor, so Run only fails when ctx is already done.
func (t *CacheMonitorTask) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	t.monitor.RecordCachePerformance(ctx)

	t.log.Debug("cache performance recorded",
		slog.Duration("duration", time.Since(start)))
	return nil
}

// HealthCheckTask computes the health verdict and reports degradations.
type HealthCheckTask struct {
	checker HealthChecker
	log     *slog.Logger

	mu   sync.Mutex
	last perfmon.Status
}

// NewHealthCheckTask creates a new health check task
func NewHealthCheckTask(checker HealthChecker, log *slog.Logger) *HealthCheckTask {
	return &HealthCheckTask{
		checker: checker,
		log:     log.With(logger.Scope("scheduler.health_check")),
		last:    perfmon.StatusUp,
	}
}

// Run executes one health check and logs non-UP verdicts and recoveries.
func (t *HealthCheckTask) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	report := t.checker.PerformHealthCheck(ctx)
	attrs := []any{
		slog.String("status", string(report.Status)),
		slog.String("cache_health", string(report.CacheHealth)),
		slog.String("memory_health", string(report.MemoryHealth)),
	}

	t.mu.Lock()
	previous := t.last
	t.last = report.Status
	t.mu.Unlock()

	switch {
	case report.Status == perfmon.StatusDown:
		t.log.Error("health check reports service down", attrs...)
	case report.Status == perfmon.StatusWarning:
		t.log.Warn("health check reports degraded service", attrs...)
	case previous != perfmon.StatusUp:
		t.log.Info("health check recovered", attrs...)
	default:
		t.log.Debug("health check passed", attrs...)
	}
	return nil
}
