package syshealth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/emergent-company/salon-monitor/pkg/logger"
	"github.com/emergent-company/salon-monitor/pkg/perfmon"
)

// ErrNoMemoryLimit is returned when neither a runtime limit nor host memory is known.
var ErrNoMemoryLimit = errors.New("no memory limit available")

// Sampler reads process memory from the Go runtime and measures it against the
// runtime memory limit, falling back to host memory. It keeps the latest sample
// fresh in the background and implements perfmon.MemoryReader.
type Sampler struct {
	cfg *Config
	log *slog.Logger

	mu             sync.RWMutex
	latest         *Sample
	consecFailures int

	ticker  *time.Ticker
	stopCh  chan struct{}
	running bool

	// Collection functions for mocking
	readMemStats func(*runtime.MemStats)
	memoryLimit  func() int64
	getHostMem   func(context.Context) (*mem.VirtualMemoryStat, error)
	now          func() time.Time
}

var _ perfmon.MemoryReader = (*Sampler)(nil)

// NewSampler creates a new memory sampler.
// cfg: Configuration for the sampler (uses DefaultConfig if nil).
// log: Logger for collection failures.
func NewSampler(cfg *Config, log *slog.Logger) *Sampler {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Sampler{
		cfg:          cfg,
		log:          log.With(logger.Scope("syshealth.sampler")),
		readMemStats: runtime.ReadMemStats,
		memoryLimit:  func() int64 { return debug.SetMemoryLimit(-1) },
		getHostMem:   mem.VirtualMemoryWithContext,
		now:          time.Now,
	}
}

// Start begins the background sampling loop.
func (s *Sampler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.running = true
	s.stopCh = make(chan struct{})
	s.ticker = time.NewTicker(s.cfg.CollectionInterval)

	go func(ticker *time.Ticker, stopCh chan struct{}) {
		s.sample(context.Background())
		for {
			select {
			case <-ticker.C:
				s.sample(context.Background())
			case <-stopCh:
				return
			}
		}
	}(s.ticker, s.stopCh)

	s.log.Info("memory sampler started", slog.Duration("interval", s.cfg.CollectionInterval))
	return nil
}

// Stop ends the background sampling loop.
func (s *Sampler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	s.ticker.Stop()
	close(s.stopCh)
	s.log.Info("memory sampler stopped")
	return nil
}

// Latest returns a copy of the most recent sample and false if none was taken yet.
func (s *Sampler) Latest() (Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.latest == nil {
		return Sample{}, false
	}
	out := *s.latest
	if s.now().Sub(out.Timestamp) > s.cfg.StalenessThreshold {
		out.Stale = true
	}
	return out, true
}

// ReadMemory returns the latest sample if it is fresh and samples synchronously otherwise.
func (s *Sampler) ReadMemory(ctx context.Context) (perfmon.MemoryUsage, error) {
	if latest, ok := s.Latest(); ok && !latest.Stale {
		return perfmon.MemoryUsage{UsedBytes: latest.UsedBytes, MaxBytes: latest.LimitBytes}, nil
	}

	sample, err := s.sample(ctx)
	if err != nil {
		return perfmon.MemoryUsage{}, err
	}
	return perfmon.MemoryUsage{UsedBytes: sample.UsedBytes, MaxBytes: sample.LimitBytes}, nil
}

func (s *Sampler) sample(ctx context.Context) (Sample, error) {
	sample, err := s.collect(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.consecFailures++
		CollectionFailures.Inc()
		if s.consecFailures >= 3 {
			s.log.Error("CRITICAL: persistent memory collection failures",
				slog.Int("failures", s.consecFailures),
				logger.Error(err))
		} else {
			s.log.Warn("failed to collect memory sample", logger.Error(err))
		}
		return Sample{}, err
	}

	s.consecFailures = 0
	s.latest = &sample

	ProcessMemoryBytes.WithLabelValues("used").Set(float64(sample.UsedBytes))
	ProcessMemoryBytes.WithLabelValues("heap_inuse").Set(float64(sample.HeapInUseBytes))
	MemoryLimitBytes.WithLabelValues(string(sample.LimitSource)).Set(float64(sample.LimitBytes))
	if sample.HostUsedPercent > 0 {
		HostMemoryUtilization.Set(sample.HostUsedPercent)
	}

	return sample, nil
}

func (s *Sampler) collect(ctx context.Context) (Sample, error) {
	var ms runtime.MemStats
	s.readMemStats(&ms)

	sample := Sample{
		UsedBytes:      ms.Sys - ms.HeapReleased,
		HeapInUseBytes: ms.HeapInuse,
		Timestamp:      s.now(),
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.CollectionTimeout)
	defer cancel()

	host, hostErr := s.getHostMem(ctx)
	if hostErr == nil && host != nil {
		sample.HostUsedPercent = host.UsedPercent
	}

	if limit := s.memoryLimit(); limit > 0 && limit != math.MaxInt64 {
		sample.LimitBytes = uint64(limit)
		sample.LimitSource = LimitSourceRuntime
		return sample, nil
	}

	if hostErr != nil {
		return Sample{}, fmt.Errorf("%w: host memory: %v", ErrNoMemoryLimit, hostErr)
	}
	if host == nil || host.Total == 0 {
		return Sample{}, ErrNoMemoryLimit
	}

	sample.LimitBytes = host.Total
	sample.LimitSource = LimitSourceHost
	return sample, nil
}
