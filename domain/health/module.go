package health

import (
	"go.uber.org/fx"

	"github.com/emergent-company/salon-monitor/domain/scheduler"
	"github.com/emergent-company/salon-monitor/pkg/cache"
	"github.com/emergent-company/salon-monitor/pkg/perfmon"
	"github.com/emergent-company/salon-monitor/pkg/syshealth"
)

var Module = fx.Module("health",
	fx.Provide(
		fx.Annotate(NewHandler, fx.From(
			new(*perfmon.Monitor),
			new(*cache.Manager),
			new(*syshealth.Sampler),
		)),
		fx.Annotate(NewMetricsHandler, fx.From(new(*scheduler.Scheduler))),
	),
	fx.Invoke(RegisterRoutes),
)
