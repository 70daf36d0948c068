// Package main runs the salon performance monitor: the perfmon core behind
// the monitoring REST surface, health probes, the Prometheus endpoint and the
// scheduler that samples cache and memory health.
package main

import (
	"log/slog"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"

	"github.com/emergent-company/salon-monitor/domain/health"
	"github.com/emergent-company/salon-monitor/domain/monitoring"
	"github.com/emergent-company/salon-monitor/domain/scheduler"
	"github.com/emergent-company/salon-monitor/domain/tracing"
	"github.com/emergent-company/salon-monitor/internal/config"
	"github.com/emergent-company/salon-monitor/internal/server"
	"github.com/emergent-company/salon-monitor/internal/version"
	"github.com/emergent-company/salon-monitor/pkg/logger"
)

func main() {
	// Load .env files if present (for local development)
	// Load() won't overwrite existing vars, Overload() will
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	fx.New(
		fx.WithLogger(func(log *slog.Logger) fxevent.Logger {
			return &fxevent.SlogLogger{Logger: log}
		}),

		// Infrastructure modules
		logger.Module,
		config.Module,
		server.Module,
		tracing.Module,

		// Domain modules
		monitoring.Module,
		health.Module,

		// Periodic cache and health sampling
		scheduler.Module,

		fx.Invoke(func(log *slog.Logger) {
			log.Info("starting salon-monitor", slog.String("build", version.Info().String()))
		}),
	).Run()
}
