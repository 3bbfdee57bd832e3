package server

import (
	"sync"
	"time"
)

// rateLimiter is a fixed-window limiter keyed by client.
type rateLimiter struct {
	maxRequests int
	window      time.Duration
	now         func() time.Time

	mu        sync.Mutex
	windows   map[string]*window
	stopClean chan struct{}
	stopOnce  sync.Once
}

type window struct {
	start time.Time
	count int
}

func newRateLimiter(maxRequests int, win time.Duration, now func() time.Time) *rateLimiter {
	if now == nil {
		now = time.Now
	}
	rl := &rateLimiter{
		maxRequests: maxRequests,
		window:      win,
		now:         now,
		windows:     make(map[string]*window),
		stopClean:   make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// allow counts a request for key. When the window is full it returns false
// and the time until the window resets.
func (rl *rateLimiter) allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w := rl.windows[key]
	if w == nil || now.Sub(w.start) >= rl.window {
		rl.windows[key] = &window{start: now, count: 1}
		return true, 0
	}
	if w.count >= rl.maxRequests {
		return false, rl.window - now.Sub(w.start)
	}
	w.count++
	return true, 0
}

// cleanupLoop periodically drops expired windows so idle clients do not
// accumulate.
func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.window * 2)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopClean:
			return
		}
	}
}

func (rl *rateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, w := range rl.windows {
		if now.Sub(w.start) >= rl.window {
			delete(rl.windows, key)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.stopOnce.Do(func() { close(rl.stopClean) })
}
