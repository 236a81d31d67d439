package cache

import (
	"errors"
	"time"
)

// LayeredCache reads through tiers fastest first and writes to all of them.
// A hit in a slower tier is copied into every faster tier.
type LayeredCache struct {
	tiers []Cache
}

// NewLayeredCache builds the memory-over-disk cache used for fetched
// transcripts and sentiment scores
func NewLayeredCache(memoryTTL time.Duration, diskDir string, diskTTL time.Duration) *LayeredCache {
	return NewTiered(NewMemoryCache(memoryTTL, 10*time.Minute), NewDiskCache(diskDir, diskTTL))
}

// NewTiered layers arbitrary caches, fastest first
func NewTiered(tiers ...Cache) *LayeredCache {
	return &LayeredCache{tiers: tiers}
}

func (c *LayeredCache) Get(key string) ([]byte, bool) {
	for i, tier := range c.tiers {
		val, ok := tier.Get(key)
		if !ok {
			continue
		}
		// Faster tiers keep their own default TTL
		for _, faster := range c.tiers[:i] {
			_ = faster.Set(key, val, 0)
		}
		return val, true
	}
	return nil, false
}

func (c *LayeredCache) Set(key string, value []byte, ttl time.Duration) error {
	var errs []error
	for _, tier := range c.tiers {
		errs = append(errs, tier.Set(key, value, ttl))
	}
	return errors.Join(errs...)
}

func (c *LayeredCache) Delete(key string) error {
	var errs []error
	for _, tier := range c.tiers {
		errs = append(errs, tier.Delete(key))
	}
	return errors.Join(errs...)
}

func (c *LayeredCache) Clear() error {
	var errs []error
	for _, tier := range c.tiers {
		errs = append(errs, tier.Clear())
	}
	return errors.Join(errs...)
}
