package perfmon

import (
	"context"
	"time"
)

// Status is a health classification.
type Status string

const (
	StatusUp      Status = "UP"
	StatusWarning Status = "WARNING"
	StatusDown    Status = "DOWN"
)

func (s Status) severity() int {
	switch s {
	case StatusDown:
		return 2
	case StatusWarning:
		return 1
	default:
		return 0
	}
}

// OverallStatus combines the cache and memory verdicts into the worst of the two.
func OverallStatus(cacheHealth, memoryHealth Status) Status {
	if cacheHealth.severity() >= memoryHealth.severity() {
		return cacheHealth
	}
	return memoryHealth
}

// CacheStatus classifies the aggregate hit rate.
type CacheStatus string

const (
	CacheStatusHealthy CacheStatus = "HEALTHY"
	CacheStatusWarning CacheStatus = "WARNING"
)

// CacheStats are the raw counters of one named cache.
type CacheStats struct {
	Hits   uint64
	Misses uint64
}

// CacheHandle exposes the counters of one named cache.
type CacheHandle interface {
	Stats() CacheStats
}

// CacheProvider is the set of caches the monitor inspects.
// GetCache returns a nil handle when the named cache is unavailable.
type CacheProvider interface {
	ListCacheNames(ctx context.Context) ([]string, error)
	GetCache(ctx context.Context, name string) (CacheHandle, error)
}

// CacheSnapshot is the point-in-time view of one named cache.
type CacheSnapshot struct {
	Name           string  `json:"name"`
	Hits           uint64  `json:"hits"`
	Misses         uint64  `json:"misses"`
	HitRatePercent float64 `json:"hit_rate"`
}

// AggregateCacheStats summarises every cache the provider exposes.
type AggregateCacheStats struct {
	OverallHitRatePercent float64         `json:"hit_rate"`
	Status                CacheStatus     `json:"hit_rate_status"`
	TotalHits             uint64          `json:"total_hits"`
	TotalMisses           uint64          `json:"total_misses"`
	ProviderAvailable     bool            `json:"provider_available"`
	PerCache              []CacheSnapshot `json:"caches"`
}

// MemoryUsage is the process memory reading.
type MemoryUsage struct {
	UsedBytes uint64 `json:"used_bytes"`
	MaxBytes  uint64 `json:"max_bytes"`
}

// UsedPercent returns used/max in percent, or 0 when max is unknown.
func (m MemoryUsage) UsedPercent() float64 {
	if m.MaxBytes == 0 {
		return 0
	}
	return float64(m.UsedBytes) / float64(m.MaxBytes) * 100
}

// MemoryReader reads current memory usage from the runtime.
type MemoryReader interface {
	ReadMemory(ctx context.Context) (MemoryUsage, error)
}

// HealthReport is the aggregated verdict produced by PerformHealthCheck.
type HealthReport struct {
	Status       Status      `json:"status"`
	CacheHealth  Status      `json:"cache_health"`
	MemoryHealth Status      `json:"memory_health"`
	CacheHitRate float64     `json:"cache_hit_rate"`
	Memory       MemoryUsage `json:"memory_usage"`
	Timestamp    time.Time   `json:"timestamp"`
}

// PerformanceSnapshot is the statistics view served to status pages.
type PerformanceSnapshot struct {
	Timestamp  time.Time                `json:"timestamp"`
	UptimeMs   int64                    `json:"uptime_ms"`
	Memory     MemoryUsage              `json:"memory_usage"`
	Thresholds map[string]ThresholdInfo `json:"thresholds"`
	Cache      AggregateCacheStats      `json:"cache"`
}

// Alert is a debounced breach handed to the telemetry sink.
type Alert struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Kind      SignalKind `json:"-"`
	Signal    string     `json:"signal"`
	Message   string     `json:"message"`
	Value     float64    `json:"value"`
	Threshold float64    `json:"threshold"`
	FiredAt   time.Time  `json:"fired_at"`
}

// TelemetrySink receives error counts and alerts. EmitAlert must not block.
type TelemetrySink interface {
	IncrementError(category string)
	EmitAlert(ctx context.Context, alert Alert) error
}

// Error categories reported through TelemetrySink.IncrementError.
const (
	CategoryResponseTime  = "response_time_monitoring"
	CategoryCacheMonitor  = "cache_monitoring"
	CategoryCacheStats    = "cache_stats"
	CategoryHealthCheck   = "health_check"
	CategoryStats         = "stats_collection"
	CategoryMemory        = "memory_introspection"
	CategoryAlertEmission = "alert_emission"
)
