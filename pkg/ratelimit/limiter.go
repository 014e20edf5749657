package ratelimit

import (
	"sync"
	"time"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// WaitIfNeeded blocks until issuing one more request stays within
	// the rate limit, then records the request
	WaitIfNeeded()
	// Reset clears the rate limiter state
	Reset()
}

// SlidingWindow implements a sliding window rate limiter: at most
// maxRequests request timestamps within any trailing window.
type SlidingWindow struct {
	windowSize  time.Duration
	maxRequests int
	requests    []time.Time
	mu          sync.Mutex

	// test seams; real clock by default
	now   func() time.Time
	sleep func(time.Duration)
}

// NewSlidingWindow creates a new sliding window rate limiter
func NewSlidingWindow(maxRequests int, windowSize time.Duration) *SlidingWindow {
	return &SlidingWindow{
		windowSize:  windowSize,
		maxRequests: maxRequests,
		requests:    make([]time.Time, 0, maxRequests),
		now:         time.Now,
		sleep:       time.Sleep,
	}
}

// WaitIfNeeded blocks until the rate limit allows another request, then
// records it. The whole read-purge-decide-sleep-record sequence runs
// under the mutex so concurrent callers serialize correctly.
func (sw *SlidingWindow) WaitIfNeeded() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	now := sw.now()
	sw.purgeExpired(now)

	// At capacity: the window purge guarantees the oldest entry is still
	// within one window of expiring, so the sleep is never negative.
	if len(sw.requests) >= sw.maxRequests {
		sleepTime := sw.requests[0].Add(sw.windowSize).Sub(now)
		if sleepTime > 0 {
			sw.sleep(sleepTime)
		}
		sw.requests = sw.requests[1:]
	}

	sw.requests = append(sw.requests, sw.now())
}

// Reset clears all recorded requests
func (sw *SlidingWindow) Reset() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.requests = sw.requests[:0]
}

// Pending returns the number of requests currently inside the window
func (sw *SlidingWindow) Pending() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.purgeExpired(sw.now())
	return len(sw.requests)
}

// purgeExpired removes requests outside the sliding window.
// Caller must hold the mutex.
func (sw *SlidingWindow) purgeExpired(now time.Time) {
	cutoff := now.Add(-sw.windowSize)

	i := 0
	for i < len(sw.requests) && sw.requests[i].Before(cutoff) {
		i++
	}

	if i > 0 {
		copy(sw.requests, sw.requests[i:])
		sw.requests = sw.requests[:len(sw.requests)-i]
	}
}
