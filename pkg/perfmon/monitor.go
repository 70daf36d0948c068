// Package perfmon watches request latency, cache effectiveness and memory
// pressure, turns threshold breaches into debounced alerts and aggregates the
// signals into a health verdict.
//
// Every exported operation is safe for concurrent use and never panics or
// returns an error to its caller: collaborator failures degrade the affected
// signal and are reported through the TelemetrySink.
package perfmon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/emergent-company/salon-monitor/pkg/logger"
	"github.com/emergent-company/salon-monitor/pkg/tracing"
)

// DefaultCollaboratorTimeout bounds every cache provider and memory reader call.
const DefaultCollaboratorTimeout = 250 * time.Millisecond

// Monitor is the performance monitoring core.
type Monitor struct {
	policy    *ThresholdPolicy
	debouncer *Debouncer
	caches    CacheProvider
	sink      TelemetrySink
	memory    MemoryReader
	log       *slog.Logger

	now       func() time.Time
	startedAt time.Time
	timeout   time.Duration
}

// Option customises a Monitor.
type Option func(*Monitor)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Monitor) { m.now = now }
}

// WithCollaboratorTimeout sets the per-call collaborator timeout. Zero disables it.
func WithCollaboratorTimeout(d time.Duration) Option {
	return func(m *Monitor) { m.timeout = d }
}

// WithStartTime sets the process start time used for uptime.
func WithStartTime(t time.Time) Option {
	return func(m *Monitor) { m.startedAt = t }
}

// NewMonitor creates a Monitor. A nil policy means DefaultPolicy, a nil cache
// provider behaves as a provider with no caches, and a nil sink discards
// telemetry.
func NewMonitor(policy *ThresholdPolicy, caches CacheProvider, sink TelemetrySink, memory MemoryReader, log *slog.Logger, opts ...Option) *Monitor {
	if policy == nil {
		policy = DefaultPolicy()
	}
	if caches == nil {
		caches = emptyProvider{}
	}
	if sink == nil {
		sink = noopSink{}
	}
	if log == nil {
		log = slog.Default()
	}

	m := &Monitor{
		policy:    policy,
		debouncer: NewDebouncer(policy),
		caches:    caches,
		sink:      sink,
		memory:    memory,
		log:       log.With(logger.Scope("perfmon.monitor")),
		now:       time.Now,
		timeout:   DefaultCollaboratorTimeout,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.startedAt.IsZero() {
		m.startedAt = m.now()
	}
	return m
}

// Policy returns the thresholds the monitor evaluates against.
func (m *Monitor) Policy() *ThresholdPolicy {
	return m.policy
}

// Debouncer exposes the alert gate, mainly for status reporting.
func (m *Monitor) Debouncer() *Debouncer {
	return m.debouncer
}

// RecordResponseTime classifies one request latency and alerts on a breach.
// It runs on the request path: it costs at most one CAS plus a non-blocking
// sink call and swallows every internal failure.
func (m *Monitor) RecordResponseTime(d time.Duration) {
	defer m.recoverPanic(CategoryResponseTime)

	ResponseTimeSeconds.Observe(d.Seconds())

	ms := float64(d) / float64(time.Millisecond)
	if !m.policy.Breached(ResponseTime, ms) {
		return
	}

	threshold := m.policy.Get(ResponseTime).Value
	m.fire(context.Background(), ResponseTime, ms,
		fmt.Sprintf("Response time is %.0f ms, above threshold of %.0f ms", ms, threshold))
}

// RecordCachePerformance samples the aggregate cache hit rate and alerts when it
// falls below the threshold. An unreachable provider is logged and counted.
func (m *Monitor) RecordCachePerformance(ctx context.Context) {
	defer m.recoverPanic(CategoryCacheMonitor)

	ctx, span := tracing.Start(ctx, "perfmon.record_cache_performance")
	defer span.End()

	stats, err := m.collectCacheStats(ctx)
	if err != nil {
		tracing.Fail(span, err)
		m.log.Error("cache provider unavailable, skipping hit rate evaluation", logger.Error(err))
		m.sink.IncrementError(CategoryCacheMonitor)
		return
	}

	rate := stats.OverallHitRatePercent
	CacheHitRatePercent.Set(rate)
	span.SetAttributes(attribute.Float64("perfmon.cache.hit_rate", rate))

	m.log.Debug("cache performance sampled",
		slog.Float64("hit_rate", rate),
		slog.Int("caches", len(stats.PerCache)))

	if !m.policy.Breached(CacheHitRate, rate) {
		return
	}

	threshold := m.policy.Get(CacheHitRate).Value
	m.fire(ctx, CacheHitRate, rate,
		fmt.Sprintf("Cache hit rate is %.2f%%, below threshold of %.2f%%", rate, threshold))
}

// PerformHealthCheck combines cache availability and memory pressure into one
// verdict. It always returns a well-formed report; anything that goes wrong is
// reported as DOWN.
func (m *Monitor) PerformHealthCheck(ctx context.Context) (report HealthReport) {
	report = HealthReport{
		Status:       StatusDown,
		CacheHealth:  StatusDown,
		MemoryHealth: StatusWarning,
		Timestamp:    m.now(),
	}
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("health check panicked", slog.Any("panic", r))
			m.sink.IncrementError(CategoryHealthCheck)
			report.Status = StatusDown
		}
		HealthStatus.WithLabelValues("overall").Set(float64(report.Status.severity()))
	}()

	ctx, span := tracing.Start(ctx, "perfmon.health_check")
	defer span.End()

	stats, err := m.collectCacheStats(ctx)
	if err != nil {
		m.log.Warn("cache health probe failed", logger.Error(err))
		m.sink.IncrementError(CategoryHealthCheck)
	} else {
		report.CacheHealth = StatusUp
		report.CacheHitRate = stats.OverallHitRatePercent
	}

	usage, err := m.readMemory(ctx)
	if err != nil {
		m.log.Warn("memory introspection failed", logger.Error(err))
		m.sink.IncrementError(CategoryMemory)
	} else {
		report.Memory = usage
		report.MemoryHealth = m.classifyMemory(ctx, usage)
	}

	report.Status = OverallStatus(report.CacheHealth, report.MemoryHealth)

	HealthStatus.WithLabelValues("cache").Set(float64(report.CacheHealth.severity()))
	HealthStatus.WithLabelValues("memory").Set(float64(report.MemoryHealth.severity()))
	span.SetAttributes(attribute.String("perfmon.health.status", string(report.Status)))

	return report
}

// GetCacheStatistics returns the per-cache and aggregate hit rates. It has no
// alert side effects; when the provider is unreachable the result is empty.
func (m *Monitor) GetCacheStatistics(ctx context.Context) (stats AggregateCacheStats) {
	stats = emptyCacheStats(false)
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("cache statistics panicked", slog.Any("panic", r))
			m.sink.IncrementError(CategoryCacheStats)
			stats = emptyCacheStats(false)
		}
	}()

	var err error
	stats, err = m.collectCacheStats(ctx)
	if err != nil {
		m.log.Warn("failed to collect cache statistics", logger.Error(err))
		m.sink.IncrementError(CategoryCacheStats)
	}
	return stats
}

// GetPerformanceStatistics returns uptime, memory, thresholds and cache
// statistics. Like GetCacheStatistics it only reads.
func (m *Monitor) GetPerformanceStatistics(ctx context.Context) (snap PerformanceSnapshot) {
	now := m.now()
	snap = PerformanceSnapshot{
		Timestamp:  now,
		UptimeMs:   now.Sub(m.startedAt).Milliseconds(),
		Thresholds: m.policy.Snapshot(),
		Cache:      emptyCacheStats(false),
	}
	defer func() {
		if r := recover(); r != nil {
			m.log.Error("performance statistics panicked", slog.Any("panic", r))
			m.sink.IncrementError(CategoryStats)
		}
	}()

	if usage, err := m.readMemory(ctx); err != nil {
		m.log.Warn("memory introspection failed", logger.Error(err))
		m.sink.IncrementError(CategoryStats)
	} else {
		snap.Memory = usage
	}

	snap.Cache = m.GetCacheStatistics(ctx)
	return snap
}

func (m *Monitor) classifyMemory(ctx context.Context, usage MemoryUsage) Status {
	if usage.MaxBytes == 0 {
		m.log.Warn("memory maximum unknown, reporting warning")
		return StatusWarning
	}

	percent := usage.UsedPercent()
	MemoryUsedPercent.Set(percent)
	if !m.policy.Breached(Memory, percent) {
		return StatusUp
	}

	threshold := m.policy.Get(Memory).Value
	m.fire(ctx, Memory, percent,
		fmt.Sprintf("Memory usage is %.1f%%, above threshold of %.1f%%", percent, threshold))
	return StatusWarning
}

// fire runs a breach through the debouncer and hands the winning alert to the sink.
// A failed emission does not release the cooldown.
func (m *Monitor) fire(ctx context.Context, kind SignalKind, value float64, message string) bool {
	now := m.now()
	if !m.debouncer.MaybeFire(kind, now) {
		AlertsSuppressed.WithLabelValues(kind.String()).Inc()
		return false
	}

	alert := Alert{
		ID:        uuid.NewString(),
		Name:      kind.AlertName(),
		Kind:      kind,
		Signal:    kind.String(),
		Message:   message,
		Value:     value,
		Threshold: m.policy.Get(kind).Value,
		FiredAt:   now,
	}

	if err := m.sink.EmitAlert(ctx, alert); err != nil {
		m.log.Error("failed to emit performance alert",
			slog.String("alert", alert.Name),
			logger.Error(err))
		m.sink.IncrementError(CategoryAlertEmission)
	}
	return true
}

// collectCacheStats reads every named cache. Caches that are missing or fail
// individually are skipped; only a failure to list names is returned.
func (m *Monitor) collectCacheStats(ctx context.Context) (AggregateCacheStats, error) {
	names, err := callWithTimeout(ctx, m.timeout, m.caches.ListCacheNames)
	if err != nil {
		return emptyCacheStats(false), fmt.Errorf("list cache names: %w", err)
	}

	stats := emptyCacheStats(true)
	for _, name := range names {
		name := name
		handle, err := callWithTimeout(ctx, m.timeout, func(ctx context.Context) (CacheHandle, error) {
			return m.caches.GetCache(ctx, name)
		})
		if err != nil {
			m.log.Debug("cache unavailable", slog.String("cache", name), logger.Error(err))
			continue
		}
		if handle == nil {
			continue
		}

		s := handle.Stats()
		stats.TotalHits += s.Hits
		stats.TotalMisses += s.Misses
		stats.PerCache = append(stats.PerCache, CacheSnapshot{
			Name:           name,
			Hits:           s.Hits,
			Misses:         s.Misses,
			HitRatePercent: hitRate(s.Hits, s.Misses),
		})
	}

	stats.OverallHitRatePercent = hitRate(stats.TotalHits, stats.TotalMisses)
	if m.policy.Breached(CacheHitRate, stats.OverallHitRatePercent) {
		stats.Status = CacheStatusWarning
	}
	return stats, nil
}

func (m *Monitor) readMemory(ctx context.Context) (MemoryUsage, error) {
	if m.memory == nil {
		return MemoryUsage{}, errNoMemoryReader
	}
	return callWithTimeout(ctx, m.timeout, m.memory.ReadMemory)
}

func (m *Monitor) recoverPanic(category string) {
	if r := recover(); r != nil {
		m.log.Error("performance monitoring panicked",
			slog.String("category", category),
			slog.Any("panic", r))
		m.sink.IncrementError(category)
	}
}

// hitRate returns hits/(hits+misses) in percent. With no accesses at all the
// rate is 100 so an idle cache never looks degraded.
func hitRate(hits, misses uint64) float64 {
	total := hits + misses
	if total == 0 {
		return 100
	}
	return float64(hits) / float64(total) * 100
}

func emptyCacheStats(available bool) AggregateCacheStats {
	return AggregateCacheStats{
		OverallHitRatePercent: 100,
		Status:                CacheStatusHealthy,
		ProviderAvailable:     available,
		PerCache:              []CacheSnapshot{},
	}
}
