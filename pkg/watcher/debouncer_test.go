package watcher

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCoalesces(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls, last atomic.Int32

	for i := 1; i <= 5; i++ {
		n := int32(i)
		d.Trigger(func() {
			calls.Add(1)
			last.Store(n)
		})
	}

	time.Sleep(80 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 call, got %d", got)
	}
	if got := last.Load(); got != 5 {
		t.Errorf("expected the last callback to run, got %d", got)
	}
	if d.Pending() {
		t.Errorf("nothing should be pending after firing")
	}
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Cancel()

	time.Sleep(60 * time.Millisecond)
	if calls.Load() != 0 {
		t.Errorf("cancelled callback ran")
	}
}

func TestDebouncerFlush(t *testing.T) {
	d := NewDebouncer(time.Hour)
	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })

	if !d.Pending() {
		t.Fatalf("expected pending callback")
	}
	if !d.Flush() {
		t.Fatalf("Flush should run the pending callback")
	}
	if calls.Load() != 1 {
		t.Errorf("expected 1 call, got %d", calls.Load())
	}
	if d.Flush() {
		t.Errorf("second Flush has nothing to run")
	}
}

func TestDebouncerDefaultDuration(t *testing.T) {
	if got := NewDebouncer(0).Duration(); got != DefaultDebounceDuration {
		t.Errorf("Duration() = %v, want %v", got, DefaultDebounceDuration)
	}
}
