package syshealth

import "time"

// Config holds configuration for the memory sampler.
type Config struct {
	// CollectionInterval is how often to sample memory in the background (default: 30s).
	CollectionInterval time.Duration

	// StalenessThreshold is the age after which a cached sample is re-read on demand (default: 2m).
	StalenessThreshold time.Duration

	// CollectionTimeout bounds a single host memory query (default: 5s).
	CollectionTimeout time.Duration
}

// DefaultConfig returns a Config with sensible default values for production use.
func DefaultConfig() *Config {
	return &Config{
		CollectionInterval: 30 * time.Second,
		StalenessThreshold: 2 * time.Minute,
		CollectionTimeout:  5 * time.Second,
	}
}
