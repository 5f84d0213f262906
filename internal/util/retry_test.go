// ABOUTME: Tests for model API retry backoff
// ABOUTME: Uses the default client schedule of 2s base delay and 3 retries
package util

import (
	"testing"
	"time"
)

func TestBackoff_DefaultClientSchedule(t *testing.T) {
	b := Backoff{Base: 2 * time.Second}

	tests := []struct {
		attempt int
		lo, hi  time.Duration
	}{
		{0, 0, 0},
		{1, 1500 * time.Millisecond, 2500 * time.Millisecond},
		{2, 3 * time.Second, 5 * time.Second},
		{3, 6 * time.Second, 10 * time.Second},
		{4, 12 * time.Second, 20 * time.Second},
		{5, 22500 * time.Millisecond, 37500 * time.Millisecond},
		{9, 22500 * time.Millisecond, 37500 * time.Millisecond},
	}
	for _, tt := range tests {
		lo, hi := b.Bounds(tt.attempt)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("Bounds(%d) = %v..%v, want %v..%v", tt.attempt, lo, hi, tt.lo, tt.hi)
		}
		for i := 0; i < 50; i++ {
			if d := b.Delay(tt.attempt); d < lo || d > hi {
				t.Fatalf("Delay(%d) = %v, outside %v..%v", tt.attempt, d, lo, hi)
			}
		}
	}
}

func TestBackoff_Budget(t *testing.T) {
	b := Backoff{Base: 2 * time.Second}
	// 2.5s + 5s + 10s for the three retries a default client makes
	if got := b.Budget(3); got != 17500*time.Millisecond {
		t.Errorf("Budget(3) = %v, want 17.5s", got)
	}
	if got := b.Budget(0); got != 0 {
		t.Errorf("Budget(0) = %v, want 0", got)
	}
}

func TestBackoff_CustomCap(t *testing.T) {
	b := Backoff{Base: 500 * time.Millisecond, Max: time.Second}
	if _, hi := b.Bounds(10); hi != 1250*time.Millisecond {
		t.Errorf("Bounds(10) hi = %v, want 1.25s", hi)
	}
}

func TestBackoff_HugeRetryDelayStaysCapped(t *testing.T) {
	b := Backoff{Base: time.Hour}
	if _, hi := b.Bounds(1); hi != 37500*time.Millisecond {
		t.Errorf("Bounds(1) hi = %v, want capped at 37.5s", hi)
	}
	if d := b.Delay(100); d <= 0 || d > 37500*time.Millisecond {
		t.Errorf("Delay(100) = %v", d)
	}
}

func TestBackoff_Jitters(t *testing.T) {
	b := Backoff{Base: time.Second}
	first := b.Delay(2)
	for i := 0; i < 100; i++ {
		if b.Delay(2) != first {
			return
		}
	}
	t.Error("100 delays were identical, expected jitter")
}

func TestBackoff_NoWait(t *testing.T) {
	for _, b := range []Backoff{{}, {Base: -time.Second}} {
		if d := b.Delay(3); d != 0 {
			t.Errorf("%+v.Delay(3) = %v, want 0", b, d)
		}
	}
	if d := (Backoff{Base: time.Nanosecond}).Delay(1); d != time.Nanosecond {
		t.Errorf("tiny base Delay(1) = %v, want 1ns", d)
	}
	if d := (Backoff{Base: time.Second}).Delay(-4); d != 0 {
		t.Errorf("Delay(-4) = %v, want 0", d)
	}
}
