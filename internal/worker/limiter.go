package worker

import (
	"context"
	"net/url"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter paces URL transcript fetches per host. Local sources (files,
// stdin) are never limited.
type Limiter struct {
	mu    sync.Mutex
	hosts map[string]*rate.Limiter
	rate  rate.Limit
	burst int
}

// NewLimiter creates a per-host limiter. A non-positive rate disables limiting.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}
	r := rate.Limit(requestsPerSecond)
	if requestsPerSecond <= 0 {
		r = rate.Inf
	}
	return &Limiter{
		hosts: make(map[string]*rate.Limiter),
		rate:  r,
		burst: burst,
	}
}

// Wait blocks until source may be fetched
func (l *Limiter) Wait(ctx context.Context, source string) error {
	host := hostOf(source)
	if host == "" {
		return ctx.Err()
	}
	return l.forHost(host).Wait(ctx)
}

// Allow reports whether source may be fetched now without waiting
func (l *Limiter) Allow(source string) bool {
	host := hostOf(source)
	if host == "" {
		return true
	}
	return l.forHost(host).Allow()
}

// SlowHost caps a host at one request per interval, e.g. a robots.txt crawl delay
func (l *Limiter) SlowHost(host string, interval time.Duration) {
	if interval <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hosts[host] = rate.NewLimiter(rate.Every(interval), 1)
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	lim, ok := l.hosts[host]
	if !ok {
		lim = rate.NewLimiter(l.rate, l.burst)
		l.hosts[host] = lim
	}
	return lim
}

// hostOf returns the host of an http(s) source, or "" for local sources
func hostOf(source string) string {
	u, err := url.Parse(source)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	return u.Host
}
