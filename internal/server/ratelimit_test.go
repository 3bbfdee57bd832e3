package server

import (
	"testing"
	"time"
)

func TestRateLimiter_FixedWindow(t *testing.T) {
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := newRateLimiter(3, time.Minute, clk.Now)
	defer rl.stop()

	for i := 0; i < 3; i++ {
		if ok, _ := rl.allow("a"); !ok {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	ok, retry := rl.allow("a")
	if ok {
		t.Fatal("fourth request in the window should be rejected")
	}
	if retry != time.Minute {
		t.Errorf("retry = %v, want %v", retry, time.Minute)
	}

	if ok, _ := rl.allow("b"); !ok {
		t.Error("other clients have their own window")
	}

	clk.Advance(time.Minute)
	if ok, _ := rl.allow("a"); !ok {
		t.Error("a new window should allow requests again")
	}
}

func TestRateLimiter_Cleanup(t *testing.T) {
	clk := &clock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	rl := newRateLimiter(1, time.Minute, clk.Now)
	defer rl.stop()

	rl.allow("a")
	rl.allow("b")
	clk.Advance(2 * time.Minute)
	rl.cleanup()

	rl.mu.Lock()
	n := len(rl.windows)
	rl.mu.Unlock()
	if n != 0 {
		t.Errorf("windows = %d, want 0 after cleanup", n)
	}
}

func TestRateLimiter_StopIdempotent(t *testing.T) {
	rl := newRateLimiter(1, time.Minute, nil)
	rl.stop()
	rl.stop()
}
