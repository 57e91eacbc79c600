package webhook

import (
	"sync"

	"golang.org/x/time/rate"
)

// maxTrackedKeys caps the number of tracked senders to prevent memory
// exhaustion from rotating sender JIDs.
const maxTrackedKeys = 4096

// rateLimiter applies a per-sender token bucket to inbound webhooks.
// A zero rps disables it. Safe for concurrent use.
type rateLimiter struct {
	mu       sync.Mutex
	rps      rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newRateLimiter(rps float64, burst int) *rateLimiter {
	if rps <= 0 {
		return &rateLimiter{}
	}
	if burst <= 0 {
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}
	return &rateLimiter{
		rps:      rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether a request attributed to key may proceed.
func (r *rateLimiter) Allow(key string) bool {
	if r.limiters == nil {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	lim, ok := r.limiters[key]
	if !ok {
		// Hard eviction at cap (FIFO-ish via map iteration).
		for len(r.limiters) >= maxTrackedKeys {
			for k := range r.limiters {
				delete(r.limiters, k)
				break
			}
		}
		lim = rate.NewLimiter(r.rps, r.burst)
		r.limiters[key] = lim
	}
	return lim.Allow()
}
