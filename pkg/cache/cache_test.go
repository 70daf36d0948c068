package cache

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emergent-company/salon-monitor/pkg/perfmon"
)

type customer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func TestMemoryStore_HitMissAccounting(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("customers", 10, time.Minute)

	_, ok, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "c1", []byte(`"x"`)))
	v, ok, err := s.Get(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte(`"x"`), v)

	require.NoError(t, s.Delete(ctx, "c1"))
	_, ok, _ = s.Get(ctx, "c1")
	assert.False(t, ok)

	assert.Equal(t, perfmon.CacheStats{Hits: 1, Misses: 2}, s.Stats())
}

func TestMemoryStore_EvictsOldest(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("staff", 2, 0)

	require.NoError(t, s.Set(ctx, "a", []byte("1")))
	require.NoError(t, s.Set(ctx, "b", []byte("2")))
	require.NoError(t, s.Set(ctx, "c", []byte("3")))

	assert.Equal(t, 2, s.Len())
	_, ok, _ := s.Get(ctx, "a")
	assert.False(t, ok)
}

func TestMemoryStore_Expiry(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("appointments", 10, 20*time.Millisecond)

	require.NoError(t, s.Set(ctx, "a", []byte("1")))
	assert.Eventually(t, func() bool {
		_, ok, _ := s.Get(ctx, "a")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestGetOrLoad(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("customers", 10, time.Minute)

	loads := 0
	load := func(context.Context) (customer, error) {
		loads++
		return customer{ID: "c1", Name: "Ada"}, nil
	}

	got, err := GetOrLoad(ctx, s, "c1", load)
	require.NoError(t, err)
	assert.Equal(t, customer{ID: "c1", Name: "Ada"}, got)

	got, err = GetOrLoad(ctx, s, "c1", load)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.Name)

	assert.Equal(t, 1, loads)
	assert.Equal(t, perfmon.CacheStats{Hits: 1, Misses: 1}, s.Stats())
}

func TestGetOrLoad_LoadError(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("customers", 10, time.Minute)
	boom := errors.New("db down")

	_, err := GetOrLoad(ctx, s, "c1", func(context.Context) (customer, error) {
		return customer{}, boom
	})
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 0, s.Len())
}

func TestGetOrLoad_CorruptEntryIsReloaded(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("customers", 10, time.Minute)
	require.NoError(t, s.Set(ctx, "c1", []byte("not json")))

	got, err := GetOrLoad(ctx, s, "c1", func(context.Context) (customer, error) {
		return customer{ID: "c1"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "c1", got.ID)

	raw, ok, _ := s.Get(ctx, "c1")
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"c1","name":""}`, string(raw))
}

func TestManager_FromConfig(t *testing.T) {
	m, err := NewManagerFromConfig(Config{
		Backend: BackendMemory,
		Names:   []string{"customers", "staff"},
		Size:    10,
		TTL:     time.Minute,
	}, slog.Default())
	require.NoError(t, err)

	names, err := m.ListCacheNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"customers", "staff"}, names)

	h, err := m.GetCache(context.Background(), "staff")
	require.NoError(t, err)
	require.NotNil(t, h)

	h, err = m.GetCache(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Nil(t, h)

	_, err = m.Cache("ghost")
	assert.ErrorIs(t, err, ErrCacheNotFound)

	assert.NoError(t, m.Close())
}

func TestManager_UnsupportedBackend(t *testing.T) {
	_, err := NewManagerFromConfig(Config{Backend: "memcached"}, slog.Default())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "memcached")
}

func TestManager_RegisterReplaces(t *testing.T) {
	m := NewManager(nil, slog.Default())
	m.Register(NewMemoryStore("customers", 1, 0))
	m.Register(NewMemoryStore("customers", 1, 0))

	names, err := m.ListCacheNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"customers"}, names)
}

func TestManager_StatsFeedMonitor(t *testing.T) {
	ctx := context.Background()
	m := NewManager(nil, slog.Default())
	s := NewMemoryStore("services", 10, 0)
	m.Register(s)

	require.NoError(t, s.Set(ctx, "cut", []byte("1")))
	_, _, _ = s.Get(ctx, "cut")
	_, _, _ = s.Get(ctx, "color")
	_, _, _ = s.Get(ctx, "perm")

	mon := perfmon.NewMonitor(nil, m, nil, nil, slog.Default())
	stats := mon.GetCacheStatistics(ctx)

	require.Len(t, stats.PerCache, 1)
	assert.Equal(t, "services", stats.PerCache[0].Name)
	assert.InDelta(t, 33.33, stats.OverallHitRatePercent, 0.01)
	assert.Equal(t, perfmon.CacheStatusWarning, stats.Status)
}

func TestManager_UnreachableRedis(t *testing.T) {
	m, err := NewManagerFromConfig(Config{
		Backend:   BackendRedis,
		Names:     []string{"customers"},
		RedisAddr: "127.0.0.1:1",
	}, slog.Default())
	require.NoError(t, err)
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err = m.ListCacheNames(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis ping")
}

func TestRedisStore_Key(t *testing.T) {
	assert.Equal(t, "salon:customers:c1", NewRedisStore(nil, "salon", "customers", 0).Key("c1"))
	assert.Equal(t, "customers:c1", NewRedisStore(nil, "", "customers", 0).Key("c1"))
}

func TestConnect_URL(t *testing.T) {
	rc, err := Connect("redis://:secret@cache.internal:6380/2", "", 0)
	require.NoError(t, err)
	defer rc.Close()

	opts := rc.Options()
	assert.Equal(t, "cache.internal:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	_, err = Connect("redis://%zz", "", 0)
	assert.Error(t, err)
}
