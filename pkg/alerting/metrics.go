package alerting

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "perfmon_errors_total",
		Help: "Internal performance monitoring failures by category",
	}, []string{"type"})

	AlertsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "perfmon_alerts_total",
		Help: "Performance alerts emitted",
	}, []string{"signal"})

	AlertsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "perfmon_alerts_dropped_total",
		Help: "Alerts dropped because the delivery queue was full",
	})

	DeliveryFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "perfmon_alert_delivery_failures_total",
		Help: "Alert deliveries that failed per channel",
	}, []string{"channel"})
)
