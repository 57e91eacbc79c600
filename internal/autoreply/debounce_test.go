package autoreply

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCollapsesBurst(t *testing.T) {
	d := NewDebouncer()
	defer d.Stop()

	var fires atomic.Int32
	for i := 0; i < 5; i++ {
		d.Schedule("k", 40*time.Millisecond, func() { fires.Add(1) })
		time.Sleep(5 * time.Millisecond)
	}

	time.Sleep(100 * time.Millisecond)
	if got := fires.Load(); got != 1 {
		t.Errorf("fires = %d, want 1", got)
	}
}

func TestDebouncerIndependentKeys(t *testing.T) {
	d := NewDebouncer()
	defer d.Stop()

	var a, b atomic.Int32
	d.Schedule("a", 10*time.Millisecond, func() { a.Add(1) })
	d.Schedule("b", 10*time.Millisecond, func() { b.Add(1) })

	time.Sleep(60 * time.Millisecond)
	if a.Load() != 1 || b.Load() != 1 {
		t.Errorf("a = %d, b = %d, want 1 each", a.Load(), b.Load())
	}
}

func TestDebouncerCancel(t *testing.T) {
	d := NewDebouncer()
	defer d.Stop()

	var fires atomic.Int32
	d.Schedule("k", 20*time.Millisecond, func() { fires.Add(1) })
	d.Cancel("k")

	time.Sleep(60 * time.Millisecond)
	if fires.Load() != 0 {
		t.Errorf("fires = %d, want 0 after cancel", fires.Load())
	}
	if d.Pending("k") {
		t.Error("timer still pending after cancel")
	}
}

func TestDebouncerAtMostOneTimer(t *testing.T) {
	d := NewDebouncer()
	defer d.Stop()

	var fires atomic.Int32
	for i := 0; i < 50; i++ {
		d.Schedule("k", 15*time.Millisecond, func() { fires.Add(1) })
	}
	if !d.Pending("k") {
		t.Error("expected a pending timer")
	}

	time.Sleep(80 * time.Millisecond)
	if got := fires.Load(); got != 1 {
		t.Errorf("fires = %d, want 1", got)
	}
	if d.Pending("k") {
		t.Error("timer still pending after fire")
	}
}

func TestDebouncerStop(t *testing.T) {
	d := NewDebouncer()

	var fires atomic.Int32
	d.Schedule("a", 20*time.Millisecond, func() { fires.Add(1) })
	d.Schedule("b", 20*time.Millisecond, func() { fires.Add(1) })
	d.Stop()

	time.Sleep(60 * time.Millisecond)
	if fires.Load() != 0 {
		t.Errorf("fires = %d, want 0 after Stop", fires.Load())
	}
}
