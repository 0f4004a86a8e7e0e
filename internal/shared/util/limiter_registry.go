package util

import (
	"sync"
	"time"
)

// LimiterRegistry keys limiters by client, one bucket per IP. Idle
// entries are evicted after ttl so abandoned clients do not accumulate.
type LimiterRegistry struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	rate    float64
	burst   int
	ttl     time.Duration
}

type limiterEntry struct {
	limiter *Limiter
	seen    time.Time
}

func NewLimiterRegistry(r float64, b int, ttl time.Duration) *LimiterRegistry {
	reg := &LimiterRegistry{
		entries: make(map[string]*limiterEntry),
		rate:    r,
		burst:   b,
		ttl:     ttl,
	}
	go reg.evictLoop()
	return reg
}

// Get returns the limiter for key, creating one on first sight.
func (r *LimiterRegistry) Get(key string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok {
		entry = &limiterEntry{limiter: NewLimiter(r.rate, r.burst)}
		r.entries[key] = entry
	}
	entry.seen = time.Now()
	return entry.limiter
}

func (r *LimiterRegistry) evictLoop() {
	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()

	for range ticker.C {
		r.evictIdle()
	}
}

func (r *LimiterRegistry) evictIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := time.Now().Add(-r.ttl)
	for key, entry := range r.entries {
		if entry.seen.Before(cutoff) {
			delete(r.entries, key)
		}
	}
}
