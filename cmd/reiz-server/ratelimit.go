package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// windowCounter is a thread-safe fixed-window request counter with TTL
// per key, the same shape as the teacher's registry.simpleCache (a
// mutex-guarded map of expiring entries), generalized from caching a
// value to counting hits within a window.
type windowCounter struct {
	mu      sync.Mutex
	entries map[string]*counterEntry
	window  time.Duration
	limit   int
}

type counterEntry struct {
	count     int
	expiresAt time.Time
}

func newWindowCounter(limit int, window time.Duration) *windowCounter {
	return &windowCounter{
		entries: make(map[string]*counterEntry),
		window:  window,
		limit:   limit,
	}
}

// allow increments key's counter, resetting it if its window has expired,
// and reports whether the request is still within limit.
func (w *windowCounter) allow(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := time.Now()
	e, ok := w.entries[key]
	if !ok || now.After(e.expiresAt) {
		e = &counterEntry{expiresAt: now.Add(w.window)}
		w.entries[key] = e
	}
	e.count++
	return e.count <= w.limit
}

// rateLimitMiddleware rejects a client IP's requests past perHour within
// a fixed one-hour window that starts at the IP's first request, restoring the "240 per hour" limit
// reiz/web/api.py enforces via a decorator, per SPEC_FULL.md §12.
func rateLimitMiddleware(perHour int) gin.HandlerFunc {
	counter := newWindowCounter(perHour, time.Hour)
	return func(c *gin.Context) {
		if !counter.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    "RateLimited",
				"message": "rate limit exceeded, try again later",
			})
			return
		}
		c.Next()
	}
}
