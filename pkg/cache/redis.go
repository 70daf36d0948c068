package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a named cache kept in Redis under "<prefix>:<name>:<key>".
// Hit and miss counters are local to this process.
type RedisStore struct {
	counters
	name   string
	prefix string
	ttl    time.Duration
	rc     *redis.Client
}

// NewRedisStore creates a Redis-backed store. A zero ttl keeps entries until evicted.
func NewRedisStore(rc *redis.Client, prefix, name string, ttl time.Duration) *RedisStore {
	return &RedisStore{
		name:   name,
		prefix: prefix,
		ttl:    ttl,
		rc:     rc,
	}
}

// Key returns the fully qualified Redis key.
func (s *RedisStore) Key(key string) string {
	if s.prefix != "" {
		return fmt.Sprintf("%s:%s:%s", s.prefix, s.name, key)
	}
	return fmt.Sprintf("%s:%s", s.name, key)
}

func (s *RedisStore) Name() string { return s.name }

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := s.rc.Get(ctx, s.Key(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			s.record(false)
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	s.record(true)
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	if err := s.rc.Set(ctx, s.Key(key), value, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.rc.Del(ctx, s.Key(key)).Err(); err != nil {
		return fmt.Errorf("redis del: %w", err)
	}
	return nil
}

// Connect initializes a Redis client from URL or host:port input.
func Connect(addr, password string, db int) (*redis.Client, error) {
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), nil
}
