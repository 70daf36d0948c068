package syshealth

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"runtime"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSampler(cfg *Config) *Sampler {
	s := NewSampler(cfg, slog.Default())

	// Mock collectors
	s.readMemStats = func(ms *runtime.MemStats) {
		ms.Sys = 600
		ms.HeapReleased = 100
		ms.HeapInuse = 300
	}
	s.memoryLimit = func() int64 { return math.MaxInt64 }
	s.getHostMem = func(ctx context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 1000, UsedPercent: 42}, nil
	}
	return s
}

func TestSampler_HostLimit(t *testing.T) {
	s := newTestSampler(nil)

	usage, err := s.ReadMemory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(500), usage.UsedBytes)
	assert.Equal(t, uint64(1000), usage.MaxBytes)
	assert.Equal(t, 50.0, usage.UsedPercent())

	latest, ok := s.Latest()
	require.True(t, ok)
	assert.Equal(t, LimitSourceHost, latest.LimitSource)
	assert.Equal(t, uint64(300), latest.HeapInUseBytes)
	assert.Equal(t, 42.0, latest.HostUsedPercent)
}

func TestSampler_RuntimeLimitWins(t *testing.T) {
	s := newTestSampler(nil)
	s.memoryLimit = func() int64 { return 800 }

	usage, err := s.ReadMemory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(800), usage.MaxBytes)

	latest, _ := s.Latest()
	assert.Equal(t, LimitSourceRuntime, latest.LimitSource)
}

func TestSampler_RuntimeLimitSurvivesHostFailure(t *testing.T) {
	s := newTestSampler(nil)
	s.memoryLimit = func() int64 { return 800 }
	s.getHostMem = func(ctx context.Context) (*mem.VirtualMemoryStat, error) {
		return nil, errors.New("no /proc")
	}

	usage, err := s.ReadMemory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(800), usage.MaxBytes)
}

func TestSampler_NoLimitAvailable(t *testing.T) {
	s := newTestSampler(nil)
	s.getHostMem = func(ctx context.Context) (*mem.VirtualMemoryStat, error) {
		return nil, errors.New("no /proc")
	}

	_, err := s.ReadMemory(context.Background())
	require.ErrorIs(t, err, ErrNoMemoryLimit)

	_, ok := s.Latest()
	assert.False(t, ok)

	_, _ = s.ReadMemory(context.Background())
	_, _ = s.ReadMemory(context.Background())
	assert.Equal(t, 3, s.consecFailures)
}

func TestSampler_ZeroHostTotal(t *testing.T) {
	s := newTestSampler(nil)
	s.getHostMem = func(ctx context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{}, nil
	}

	_, err := s.ReadMemory(context.Background())
	assert.ErrorIs(t, err, ErrNoMemoryLimit)
}

func TestSampler_FreshSampleIsReused(t *testing.T) {
	s := newTestSampler(nil)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	calls := 0
	s.readMemStats = func(ms *runtime.MemStats) {
		calls++
		ms.Sys = 500
	}

	_, err := s.ReadMemory(context.Background())
	require.NoError(t, err)
	_, err = s.ReadMemory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	now = now.Add(3 * time.Minute)
	latest, _ := s.Latest()
	assert.True(t, latest.Stale)

	_, err = s.ReadMemory(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestSampler_Lifecycle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CollectionInterval = 10 * time.Millisecond
	s := newTestSampler(cfg)

	err := s.Start()
	require.NoError(t, err)
	assert.True(t, s.running)

	// Should be able to call Start again safely
	err = s.Start()
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, ok := s.Latest()
		return ok
	}, time.Second, 5*time.Millisecond)

	err = s.Stop()
	require.NoError(t, err)
	assert.False(t, s.running)

	// Should be able to call Stop again safely
	err = s.Stop()
	require.NoError(t, err)
}
