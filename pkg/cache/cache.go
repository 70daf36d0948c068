// Package cache provides the named application caches (customers, staff,
// services, appointments) together with the hit/miss accounting the
// performance monitor reads.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/emergent-company/salon-monitor/pkg/perfmon"
)

// ErrCacheNotFound is returned when a named cache is not registered.
var ErrCacheNotFound = errors.New("cache not found")

// Store is one named cache. Get reports a miss with ok == false and a nil error.
type Store interface {
	Name() string
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Stats() perfmon.CacheStats
}

// counters is the hit/miss accounting shared by every backend.
type counters struct {
	hits   atomic.Uint64
	misses atomic.Uint64
}

func (c *counters) record(hit bool) {
	if hit {
		c.hits.Add(1)
		return
	}
	c.misses.Add(1)
}

func (c *counters) Stats() perfmon.CacheStats {
	return perfmon.CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}

// GetOrLoad returns the cached value for key, calling load and storing its
// result on a miss. Values are stored as JSON.
func GetOrLoad[T any](ctx context.Context, s Store, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T

	raw, ok, err := s.Get(ctx, key)
	if err != nil {
		return zero, fmt.Errorf("get %s/%s: %w", s.Name(), key, err)
	}
	if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		// Undecodable entries are treated as a miss and overwritten below.
	}

	v, err := load(ctx)
	if err != nil {
		return zero, err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return zero, fmt.Errorf("marshal %s/%s: %w", s.Name(), key, err)
	}
	if err := s.Set(ctx, key, data); err != nil {
		return zero, fmt.Errorf("set %s/%s: %w", s.Name(), key, err)
	}
	return v, nil
}
