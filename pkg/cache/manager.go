package cache

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/emergent-company/salon-monitor/pkg/logger"
	"github.com/emergent-company/salon-monitor/pkg/perfmon"
)

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config selects the cache backend and the named caches to create.
type Config struct {
	Backend string        `env:"CACHE_BACKEND" envDefault:"memory"`
	Names   []string      `env:"CACHE_NAMES" envSeparator:"," envDefault:"customers,staff,services,appointments"`
	Size    int           `env:"CACHE_SIZE" envDefault:"1000"`
	TTL     time.Duration `env:"CACHE_TTL" envDefault:"10m"`

	RedisAddr      string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword  string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB        int    `env:"REDIS_DB" envDefault:"0"`
	RedisKeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"salon"`
}

// Manager owns the named caches and exposes them to the performance monitor.
type Manager struct {
	mu     sync.RWMutex
	stores map[string]Store
	names  []string

	rc  *redis.Client
	log *slog.Logger
}

var _ perfmon.CacheProvider = (*Manager)(nil)

// NewManager creates an empty manager. rc may be nil when no Redis backend is used.
func NewManager(rc *redis.Client, log *slog.Logger) *Manager {
	return &Manager{
		stores: make(map[string]Store),
		rc:     rc,
		log:    log.With(logger.Scope("cache.manager")),
	}
}

// NewManagerFromConfig creates a manager with one store per configured name.
func NewManagerFromConfig(cfg Config, log *slog.Logger) (*Manager, error) {
	switch cfg.Backend {
	case BackendMemory, "":
		m := NewManager(nil, log)
		for _, name := range cfg.Names {
			m.Register(NewMemoryStore(name, cfg.Size, cfg.TTL))
		}
		return m, nil

	case BackendRedis:
		rc, err := Connect(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, err
		}
		m := NewManager(rc, log)
		for _, name := range cfg.Names {
			m.Register(NewRedisStore(rc, cfg.RedisKeyPrefix, name, cfg.TTL))
		}
		return m, nil

	default:
		return nil, fmt.Errorf("unsupported cache backend %q", cfg.Backend)
	}
}

// Register adds or replaces a named store.
func (m *Manager) Register(s Store) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.stores[s.Name()]; !exists {
		m.names = append(m.names, s.Name())
	}
	m.stores[s.Name()] = s
}

// Cache returns the named store.
func (m *Manager) Cache(name string) (Store, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.stores[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCacheNotFound, name)
	}
	return s, nil
}

// ListCacheNames returns the registered cache names in registration order.
// With a Redis backend the server is pinged first so an unreachable cache
// tier is reported as an error rather than as healthy counters.
func (m *Manager) ListCacheNames(ctx context.Context) ([]string, error) {
	if m.rc != nil {
		if err := m.rc.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis ping: %w", err)
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.names), nil
}

// GetCache returns the named store as a stats handle, or nil if it is not registered.
func (m *Manager) GetCache(_ context.Context, name string) (perfmon.CacheHandle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.stores[name]
	if !ok {
		return nil, nil
	}
	return s, nil
}

// Close releases the Redis client, if any.
func (m *Manager) Close() error {
	if m.rc == nil {
		return nil
	}
	if err := m.rc.Close(); err != nil {
		m.log.Warn("failed to close redis client", logger.Error(err))
		return err
	}
	return nil
}
