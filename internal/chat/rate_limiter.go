package chat

import (
	"sync"
	"time"
)

// RateLimiter allows a fixed number of messages per connection per minute.
type RateLimiter struct {
	mu      sync.Mutex
	limit   int
	now     func() time.Time
	clients map[string]*clientWindow
}

type clientWindow struct {
	messageCount int
	windowStart  time.Time
}

// NewRateLimiter builds a limiter. A limit of zero or less disables it.
func NewRateLimiter(perMinute int, now func() time.Time) *RateLimiter {
	if now == nil {
		now = time.Now
	}
	return &RateLimiter{
		limit:   perMinute,
		now:     now,
		clients: make(map[string]*clientWindow),
	}
}

// Allow records one message from connID and reports whether it is within
// the limit. The window restarts a minute after its first message.
func (rl *RateLimiter) Allow(connID string) bool {
	if rl.limit <= 0 {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.clients[connID]
	if !ok || now.Sub(w.windowStart) >= time.Minute {
		rl.clients[connID] = &clientWindow{messageCount: 1, windowStart: now}
		return true
	}

	if w.messageCount >= rl.limit {
		return false
	}
	w.messageCount++
	return true
}

// Forget drops the window for a connection that went away.
func (rl *RateLimiter) Forget(connID string) {
	rl.mu.Lock()
	delete(rl.clients, connID)
	rl.mu.Unlock()
}
