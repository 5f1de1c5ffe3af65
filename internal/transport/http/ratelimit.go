package http

import (
	"sync"
	"time"
)

// idleEviction is how long a client's bucket may sit untouched before the
// sweeper drops it.
const idleEviction = 10 * time.Minute

type bucket struct {
	tokens float64
	last   time.Time
}

// rateLimiter keeps a token bucket per client key. Buckets refill at rate
// tokens per second up to burst capacity, so each client gets an independent
// budget.
type rateLimiter struct {
	mu      sync.Mutex
	rate    float64
	burst   int
	buckets map[string]*bucket
	now     func() time.Time
}

func newRateLimiter(rate float64, burst int) *rateLimiter {
	if rate <= 0 || burst <= 0 {
		return &rateLimiter{now: time.Now}
	}
	return &rateLimiter{
		rate:    rate,
		burst:   burst,
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (r *rateLimiter) allow(key string) bool {
	if r == nil || r.buckets == nil {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	b, ok := r.buckets[key]
	if !ok {
		b = &bucket{tokens: float64(r.burst), last: now}
		r.buckets[key] = b
	}

	b.tokens += now.Sub(b.last).Seconds() * r.rate
	if b.tokens > float64(r.burst) {
		b.tokens = float64(r.burst)
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

// startSweep evicts buckets for clients that have gone quiet.
func (r *rateLimiter) startSweep(stop <-chan struct{}) {
	if r == nil || r.buckets == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.mu.Lock()
				cutoff := r.now().Add(-idleEviction)
				for key, b := range r.buckets {
					if b.last.Before(cutoff) {
						delete(r.buckets, key)
					}
				}
				r.mu.Unlock()
			case <-stop:
				return
			}
		}
	}()
}
