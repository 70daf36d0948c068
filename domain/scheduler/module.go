package scheduler

import (
	"context"
	"log/slog"
	"time"

	"go.uber.org/fx"

	"github.com/emergent-company/salon-monitor/internal/config"
	"github.com/emergent-company/salon-monitor/pkg/logger"
	"github.com/emergent-company/salon-monitor/pkg/perfmon"
)

// Module provides the periodic monitoring tasks
var Module = fx.Module("scheduler",
	fx.Provide(
		newScheduler,
	),
	fx.Invoke(
		RegisterTasks,
		RegisterSchedulerLifecycle,
	),
)

func newScheduler(log *slog.Logger, cfg *config.Config) *Scheduler {
	return NewScheduler(log, cfg.Scheduler.TaskTimeout)
}

// TaskParams contains dependencies for creating scheduled tasks
type TaskParams struct {
	fx.In
	Scheduler *Scheduler
	Monitor   *perfmon.Monitor
	Log       *slog.Logger
	Cfg       *config.Config
}

// RegisterTasks registers all scheduled tasks
func RegisterTasks(p TaskParams) error {
	cfg := p.Cfg.Scheduler
	if !cfg.Enabled {
		p.Log.Info("scheduler disabled, skipping task registration")
		return nil
	}

	cacheTask := NewCacheMonitorTask(p.Monitor, p.Log)
	if err := addScheduledTask(p.Scheduler, p.Log, CacheMonitorTaskName,
		cfg.CacheMonitorSchedule, cfg.CacheMonitorInterval, cacheTask.Run); err != nil {
		return err
	}

	healthTask := NewHealthCheckTask(p.Monitor, p.Log)
	if err := addScheduledTask(p.Scheduler, p.Log, HealthCheckTaskName,
		cfg.HealthCheckSchedule, cfg.HealthCheckInterval, healthTask.Run); err != nil {
		return err
	}

	p.Log.Info("registered scheduled tasks",
		slog.Any("tasks", p.Scheduler.ListTasks()))

	return nil
}

// addScheduledTask registers task with the cron schedule when one is set and
// falls back to the fixed interval otherwise. An invalid cron expression is
// logged and the interval is used instead.
func addScheduledTask(s *Scheduler, log *slog.Logger, name, schedule string, interval time.Duration, task TaskFunc) error {
	if schedule != "" {
		err := s.AddCronTask(name, schedule, task)
		if err == nil {
			return nil
		}
		log.Warn("invalid cron schedule, falling back to interval",
			slog.String("name", name),
			slog.String("schedule", schedule),
			slog.Duration("interval", interval),
			logger.Error(err))
	}
	return s.AddIntervalTask(name, interval, task)
}

// RegisterSchedulerLifecycle registers the scheduler with fx lifecycle
func RegisterSchedulerLifecycle(lc fx.Lifecycle, scheduler *Scheduler, cfg *config.Config) {
	if !cfg.Scheduler.Enabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return scheduler.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return scheduler.Stop(ctx)
		},
	})
}
