package autoreply

import (
	"sync"
	"time"
)

// Debouncer keeps at most one live timer per key. Scheduling always
// cancels the previous timer, so a burst of messages collapses into
// one fire, delay after the last one.
type Debouncer struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func NewDebouncer() *Debouncer {
	return &Debouncer{timers: make(map[string]*time.Timer)}
}

// Schedule arms (or re-arms) the timer for key. When it fires
// uninterrupted, fn runs on the timer goroutine.
func (d *Debouncer) Schedule(key string, delay time.Duration, fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if t, ok := d.timers[key]; ok {
		t.Stop()
	}

	var t *time.Timer
	t = time.AfterFunc(delay, func() {
		// A superseded timer can reach here if it fired while being
		// replaced; only the current one may proceed.
		d.mu.Lock()
		if d.timers[key] != t {
			d.mu.Unlock()
			return
		}
		delete(d.timers, key)
		d.mu.Unlock()
		fn()
	})
	d.timers[key] = t
}

// Cancel drops the pending timer for key, if any.
func (d *Debouncer) Cancel(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[key]; ok {
		t.Stop()
		delete(d.timers, key)
	}
}

// Stop cancels all pending timers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, t := range d.timers {
		t.Stop()
		delete(d.timers, key)
	}
}

// Pending reports whether a timer is armed for key.
func (d *Debouncer) Pending(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.timers[key]
	return ok
}
