package syshealth

import "time"

// LimitSource names where the memory ceiling of a Sample came from.
type LimitSource string

const (
	// LimitSourceRuntime is the Go runtime soft limit (GOMEMLIMIT / debug.SetMemoryLimit).
	LimitSourceRuntime LimitSource = "runtime"
	// LimitSourceHost is total physical memory of the host.
	LimitSourceHost LimitSource = "host"
)

// Sample is one memory reading of the running process.
type Sample struct {
	// UsedBytes is memory obtained from the OS and not yet returned to it.
	UsedBytes uint64

	// HeapInUseBytes is the live heap portion of UsedBytes.
	HeapInUseBytes uint64

	// LimitBytes is the ceiling UsedBytes is measured against.
	LimitBytes  uint64
	LimitSource LimitSource

	// HostUsedPercent is host-wide memory utilization (0-100).
	HostUsedPercent float64

	// Timestamp is when the sample was taken.
	Timestamp time.Time

	// Stale indicates the sample is older than the staleness threshold.
	Stale bool
}

// UsedPercent returns UsedBytes as a percentage of LimitBytes.
func (s Sample) UsedPercent() float64 {
	if s.LimitBytes == 0 {
		return 0
	}
	return float64(s.UsedBytes) / float64(s.LimitBytes) * 100
}
