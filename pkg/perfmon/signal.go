package perfmon

import "fmt"

// SignalKind identifies a monitored signal and selects its threshold and cooldown.
type SignalKind int

const (
	// ResponseTime is request latency in milliseconds.
	ResponseTime SignalKind = iota
	// CacheHitRate is the aggregate cache hit rate in percent (0-100).
	CacheHitRate
	// Memory is process memory pressure in percent of the available maximum.
	Memory

	numSignalKinds
)

// String returns the label used in logs and metrics.
func (k SignalKind) String() string {
	switch k {
	case ResponseTime:
		return "response_time"
	case CacheHitRate:
		return "cache_hit_rate"
	case Memory:
		return "memory"
	default:
		return fmt.Sprintf("signal(%d)", int(k))
	}
}

// AlertName is the alert type emitted when the signal breaches.
func (k SignalKind) AlertName() string {
	switch k {
	case ResponseTime:
		return "RESPONSE_TIME_HIGH"
	case CacheHitRate:
		return "CACHE_HIT_RATE_LOW"
	case Memory:
		return "MEMORY_HIGH"
	default:
		return "UNKNOWN"
	}
}

func (k SignalKind) valid() bool {
	return k >= 0 && k < numSignalKinds
}

// Kinds returns every known signal kind.
func Kinds() []SignalKind {
	return []SignalKind{ResponseTime, CacheHitRate, Memory}
}

// Comparison is the direction in which a value breaches its threshold.
type Comparison string

const (
	// Above breaches when the value is strictly greater than the threshold.
	Above Comparison = "above"
	// Below breaches when the value is strictly less than the threshold.
	Below Comparison = "below"
)
