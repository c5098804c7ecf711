// Package ratelimit limits requests per client key. The storefront uses it on the
// catalog API so suites can exercise a throttled backend.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config defines the limit applied to every client.
type Config struct {
	RPS             float64       // sustained requests per second
	Burst           int           // bucket size
	CleanupInterval time.Duration // idle limiters older than this are dropped
}

// DefaultConfig allows a handful of catalog fetches per second per client.
var DefaultConfig = Config{
	RPS:             5,
	Burst:           10,
	CleanupInterval: time.Hour,
}

type entry struct {
	limiter  *rate.Limiter
	lastUsed time.Time
}

// Limiter holds one token bucket per client key.
type Limiter struct {
	mu       sync.Mutex
	limiters map[string]*entry
	config   Config

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// New creates a Limiter and starts its cleanup goroutine. Call Stop when done.
func New(config Config) *Limiter {
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultConfig.CleanupInterval
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	l := &Limiter{
		limiters: make(map[string]*entry),
		config:   config,
		stopCh:   make(chan struct{}),
	}
	l.wg.Add(1)
	go l.cleanupLoop()
	return l
}

// Allow reports whether a request from key fits within the limit.
func (l *Limiter) Allow(key string) bool {
	return l.Get(key).Allow()
}

// Get returns the bucket for key, creating it on first use.
func (l *Limiter) Get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.limiters[key]
	if !ok {
		e = &entry{limiter: rate.NewLimiter(rate.Limit(l.config.RPS), l.config.Burst)}
		l.limiters[key] = e
	}
	e.lastUsed = time.Now()
	return e.limiter
}

// Cleanup drops limiters idle for longer than the cleanup interval.
func (l *Limiter) Cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-l.config.CleanupInterval)
	for key, e := range l.limiters {
		if e.lastUsed.Before(cutoff) {
			delete(l.limiters, key)
		}
	}
}

func (l *Limiter) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.Cleanup()
		case <-l.stopCh:
			return
		}
	}
}

// Stop ends the cleanup goroutine and waits for it.
func (l *Limiter) Stop() {
	close(l.stopCh)
	l.wg.Wait()
}

// Len returns the number of tracked clients.
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}
