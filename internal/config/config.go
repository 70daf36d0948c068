package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/fx"

	"github.com/emergent-company/salon-monitor/pkg/alerting"
	"github.com/emergent-company/salon-monitor/pkg/cache"
	"github.com/emergent-company/salon-monitor/pkg/perfmon"
)

var Module = fx.Module("config",
	fx.Provide(NewConfig),
)

// Config holds all application configuration
type Config struct {
	// Server settings
	ServerPort    int    `env:"SERVER_PORT" envDefault:"8080"`
	ServerAddress string `env:"SERVER_ADDRESS" envDefault:"0.0.0.0"`
	Environment   string `env:"ENVIRONMENT" envDefault:"local"`
	Debug         bool   `env:"DEBUG" envDefault:"false"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`

	// Performance thresholds and collaborator timeout
	Monitoring MonitoringConfig

	// Named application caches
	Cache cache.Config

	// Alert delivery
	Alerting alerting.Config

	// Periodic monitoring tasks
	Scheduler SchedulerConfig

	// Error tracking
	Sentry SentryConfig

	// OpenTelemetry tracing
	Otel OtelConfig

	// Server timeouts
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// MonitoringConfig holds the alert thresholds. Each signal has a threshold
// and a cooldown between two alerts of that signal.
type MonitoringConfig struct {
	ResponseTimeThreshold time.Duration `env:"PERF_RESPONSE_TIME_THRESHOLD" envDefault:"500ms"`
	ResponseTimeCooldown  time.Duration `env:"PERF_RESPONSE_TIME_COOLDOWN" envDefault:"60s"`

	// CacheHitRateThreshold is a percentage (0-100); lower rates alert.
	CacheHitRateThreshold float64       `env:"PERF_CACHE_HIT_RATE_THRESHOLD" envDefault:"50"`
	CacheHitRateCooldown  time.Duration `env:"PERF_CACHE_HIT_RATE_COOLDOWN" envDefault:"60s"`

	// MemoryThresholdPercent is the share of the memory limit above which memory alerts.
	MemoryThresholdPercent float64       `env:"PERF_MEMORY_THRESHOLD_PERCENT" envDefault:"85"`
	MemoryCooldown         time.Duration `env:"PERF_MEMORY_COOLDOWN" envDefault:"5m"`

	// CollaboratorTimeout bounds each cache provider and memory reader call.
	CollaboratorTimeout time.Duration `env:"PERF_COLLABORATOR_TIMEOUT" envDefault:"250ms"`
}

// Policy builds the validated threshold policy.
func (m *MonitoringConfig) Policy() (*perfmon.ThresholdPolicy, error) {
	return perfmon.NewPolicy(map[perfmon.SignalKind]perfmon.Threshold{
		perfmon.ResponseTime: {
			Value:    float64(m.ResponseTimeThreshold) / float64(time.Millisecond),
			Cooldown: m.ResponseTimeCooldown,
		},
		perfmon.CacheHitRate: {
			Value:    m.CacheHitRateThreshold,
			Cooldown: m.CacheHitRateCooldown,
		},
		perfmon.Memory: {
			Value:    m.MemoryThresholdPercent,
			Cooldown: m.MemoryCooldown,
		},
	})
}

// SchedulerConfig holds the periodic monitoring task settings.
// A non-empty schedule overrides the matching interval.
type SchedulerConfig struct {
	Enabled              bool          `env:"SCHEDULER_ENABLED" envDefault:"true"`
	CacheMonitorInterval time.Duration `env:"CACHE_MONITOR_INTERVAL" envDefault:"1m"`
	HealthCheckInterval  time.Duration `env:"HEALTH_CHECK_INTERVAL" envDefault:"30s"`

	// Cron expressions with a leading seconds field
	CacheMonitorSchedule string `env:"CACHE_MONITOR_SCHEDULE"`
	HealthCheckSchedule  string `env:"HEALTH_CHECK_SCHEDULE"`

	TaskTimeout time.Duration `env:"SCHEDULER_TASK_TIMEOUT" envDefault:"30s"`
}

// SentryConfig holds Sentry error tracking settings
type SentryConfig struct {
	// DSN enables alert reporting to Sentry when set
	DSN string `env:"SENTRY_DSN" envDefault:""`
	// Release is reported with every event (defaults to the build version)
	Release string `env:"SENTRY_RELEASE" envDefault:""`
}

// IsConfigured returns true if a Sentry DSN is set
func (s *SentryConfig) IsConfigured() bool {
	return s.DSN != ""
}

// NewConfig loads configuration from environment variables
func NewConfig(log *slog.Logger) (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if _, err := cfg.Monitoring.Policy(); err != nil {
		return nil, err
	}

	log.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.ServerPort),
		slog.String("cache_backend", cfg.Cache.Backend),
		slog.Any("caches", cfg.Cache.Names),
		slog.Bool("webhook_alerts", cfg.Alerting.WebhookURL != ""),
		slog.Bool("sentry", cfg.Sentry.IsConfigured()),
		slog.Bool("scheduler", cfg.Scheduler.Enabled),
	)

	return cfg, nil
}
