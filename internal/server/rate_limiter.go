package server

import (
	"sync"
	"time"

	"github.com/RandomProgramm3r/Promo-Code-API/internal/clock"
)

type rateLimiter struct {
	limit  int
	window time.Duration
	clk    clock.Clock
	mu     sync.Mutex
	items  map[string]*rateLimitEntry
}

type rateLimitEntry struct {
	windowStart time.Time
	count       int
}

func newRateLimiter(limit int, window time.Duration, clk clock.Clock) *rateLimiter {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &rateLimiter{
		limit:  limit,
		window: window,
		clk:    clk,
		items:  make(map[string]*rateLimitEntry),
	}
}

func (r *rateLimiter) Allow(key string) bool {
	if key == "" {
		return false
	}

	now := r.clk.Now()
	r.mu.Lock()
	defer r.mu.Unlock()

	entry := r.items[key]
	if entry == nil || now.Sub(entry.windowStart) > r.window {
		entry = &rateLimitEntry{windowStart: now}
		r.items[key] = entry
	}

	if entry.count >= r.limit {
		return false
	}

	entry.count++
	return true
}
