package cache

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// MemoryStore is an in-process LRU cache with per-entry expiry.
type MemoryStore struct {
	counters
	name string
	lru  *expirable.LRU[string, []byte]
}

// NewMemoryStore creates a memory store holding at most size entries for ttl each.
// A zero ttl disables expiry.
func NewMemoryStore(name string, size int, ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		name: name,
		lru:  expirable.NewLRU[string, []byte](size, nil, ttl),
	}
}

func (s *MemoryStore) Name() string { return s.name }

func (s *MemoryStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.lru.Get(key)
	s.record(ok)
	return v, ok, nil
}

func (s *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	s.lru.Add(key, value)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.lru.Remove(key)
	return nil
}

// Len returns the number of live entries.
func (s *MemoryStore) Len() int {
	return s.lru.Len()
}
