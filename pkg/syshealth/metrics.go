package syshealth

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProcessMemoryBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "process_memory_bytes",
		Help: "Process memory as seen by the Go runtime",
	}, []string{"kind"})

	MemoryLimitBytes = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "process_memory_limit_bytes",
		Help: "Memory ceiling the process is measured against",
	}, []string{"source"})

	HostMemoryUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "system_memory_utilization_percent",
		Help: "System memory utilization percentage",
	})

	CollectionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "system_memory_collection_failures_total",
		Help: "Memory samples that could not be collected",
	})
)
