package sentiment

import (
	"context"
	"strconv"
	"time"

	"github.com/ppiankov/callaudit/internal/cache"
)

// Cached memoizes another scorer's results by transcript content.
// Failures are not cached.
type Cached struct {
	inner Scorer
	cache cache.Cache
	ttl   time.Duration
}

// NewCached wraps inner; ttl 0 uses the cache's default expiry
func NewCached(inner Scorer, c cache.Cache, ttl time.Duration) *Cached {
	return &Cached{inner: inner, cache: c, ttl: ttl}
}

// Name returns the wrapped scorer's name
func (s *Cached) Name() string { return s.inner.Name() }

// Polarity returns a cached value or computes and stores one
func (s *Cached) Polarity(ctx context.Context, text string) (float64, error) {
	key := cache.Key("sentiment:"+s.inner.Name(), text)

	if data, ok := s.cache.Get(key); ok {
		if v, err := strconv.ParseFloat(string(data), 64); err == nil {
			return v, nil
		}
	}

	v, err := s.inner.Polarity(ctx, text)
	if err != nil {
		return 0, err
	}

	_ = s.cache.Set(key, []byte(strconv.FormatFloat(v, 'g', -1, 64)), s.ttl)
	return v, nil
}
