package monitoring

import (
	"context"
	"log/slog"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/emergent-company/salon-monitor/internal/config"
	"github.com/emergent-company/salon-monitor/internal/server"
	"github.com/emergent-company/salon-monitor/internal/version"
	"github.com/emergent-company/salon-monitor/pkg/alerting"
	"github.com/emergent-company/salon-monitor/pkg/cache"
	"github.com/emergent-company/salon-monitor/pkg/logger"
	"github.com/emergent-company/salon-monitor/pkg/perfmon"
	"github.com/emergent-company/salon-monitor/pkg/syshealth"
)

// Module provides the performance monitor, its collaborators and the
// monitoring HTTP surface.
var Module = fx.Module("monitoring",
	fx.Provide(
		NewCacheManager,
		NewMemorySampler,
		NewAlertStream,
		NewAlertSink,
		NewMonitor,
		fx.Annotate(NewHandler, fx.From(new(*perfmon.Monitor), new(*alerting.Sink))),
		fx.Annotate(NewStreamHandler, fx.From(new(*alerting.StreamChannel))),
	),
	fx.Invoke(RegisterRoutes),
	fx.Invoke(RegisterStreamRoutes),
	fx.Invoke(RegisterResponseTimeMiddleware),
)

// NewCacheManager creates the named caches and closes them on stop.
func NewCacheManager(lc fx.Lifecycle, cfg *config.Config, log *slog.Logger) (*cache.Manager, error) {
	m, err := cache.NewManagerFromConfig(cfg.Cache, log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return m.Close()
		},
	})
	return m, nil
}

// NewMemorySampler creates the process memory sampler and runs it for the app lifetime.
func NewMemorySampler(lc fx.Lifecycle, log *slog.Logger) *syshealth.Sampler {
	s := syshealth.NewSampler(syshealth.DefaultConfig(), log)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return s.Start()
		},
		OnStop: func(ctx context.Context) error {
			return s.Stop()
		},
	})
	return s
}

// NewAlertStream creates the live alert stream and ends its subscriptions on stop.
func NewAlertStream(lc fx.Lifecycle) *alerting.StreamChannel {
	s := alerting.NewStreamChannel()
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			s.Close()
			return nil
		},
	})
	return s
}

// NewAlertSink creates the telemetry sink. Alerts always reach the live stream;
// the webhook and Sentry channels are added when configured.
func NewAlertSink(lc fx.Lifecycle, cfg *config.Config, stream *alerting.StreamChannel, log *slog.Logger) (*alerting.Sink, error) {
	log = log.With(logger.Scope("monitoring.alerts"))

	channels := []alerting.Channel{stream}
	if cfg.Alerting.WebhookURL != "" {
		channels = append(channels, alerting.NewWebhookChannel(
			cfg.Alerting.WebhookURL, cfg.Alerting.WebhookTimeout, cfg.Alerting.RatePerMinute))
	}

	var sentryCh *alerting.SentryChannel
	if cfg.Sentry.IsConfigured() {
		release := cfg.Sentry.Release
		if release == "" {
			release = version.Version
		}
		ch, err := alerting.NewSentryChannel(sentry.ClientOptions{
			Dsn:         cfg.Sentry.DSN,
			ServerName:  cfg.Otel.ServiceName,
			Release:     release,
			Environment: cfg.Environment,
		})
		if err != nil {
			return nil, err
		}
		sentryCh = ch
		channels = append(channels, ch)
	}

	sink := alerting.NewSink(log, cfg.Alerting.BufferSize, channels...)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return sink.Start()
		},
		OnStop: func(ctx context.Context) error {
			err := sink.Stop(ctx)
			if sentryCh != nil {
				sentryCh.Flush(2 * time.Second)
			}
			return err
		},
	})
	return sink, nil
}

// MonitorParams are the dependencies of the performance monitor
type MonitorParams struct {
	fx.In

	Config  *config.Config
	Log     *slog.Logger
	Caches  *cache.Manager
	Sink    *alerting.Sink
	Sampler *syshealth.Sampler
}

// NewMonitor creates the performance monitor from the configured policy.
func NewMonitor(p MonitorParams) (*perfmon.Monitor, error) {
	policy, err := p.Config.Monitoring.Policy()
	if err != nil {
		return nil, err
	}

	p.Log.Info("performance monitor configured",
		slog.Any("thresholds", policy.Snapshot()),
		slog.Duration("collaborator_timeout", p.Config.Monitoring.CollaboratorTimeout))

	return perfmon.NewMonitor(policy, p.Caches, p.Sink, p.Sampler, p.Log,
		perfmon.WithCollaboratorTimeout(p.Config.Monitoring.CollaboratorTimeout),
	), nil
}

// RegisterResponseTimeMiddleware times every request except probes, scrapes
// and the long-lived alert stream.
func RegisterResponseTimeMiddleware(e *echo.Echo, m *perfmon.Monitor) {
	e.Use(ResponseTimeMiddleware(m, skipTiming))
}

func skipTiming(c echo.Context) bool {
	return server.IsProbePath(c) || c.Request().URL.Path == alertStreamPath
}
