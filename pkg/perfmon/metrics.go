package perfmon

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ResponseTimeSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "perfmon_response_time_seconds",
		Help:    "Observed request latency",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})

	CacheHitRatePercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "perfmon_cache_hit_rate_percent",
		Help: "Aggregate cache hit rate across all named caches (0-100)",
	})

	MemoryUsedPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "perfmon_memory_used_percent",
		Help: "Process memory use as a percentage of the available maximum",
	})

	HealthStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "perfmon_health_status",
		Help: "Health verdict per component (0=UP, 1=WARNING, 2=DOWN)",
	}, []string{"component"})

	AlertsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "perfmon_alerts_suppressed_total",
		Help: "Breaches that did not alert because the cooldown window was still open",
	}, []string{"signal"})
)
