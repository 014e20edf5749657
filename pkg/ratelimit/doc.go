// Package ratelimit provides sliding-window admission control for the
// Companies House APIs.
//
// Companies House enforces 600 requests per 5 minutes across both the
// Data API and the Document API, so a single limiter instance is shared
// by every outbound call regardless of which service it targets.
//
// Usage:
//
//	limiter := ratelimit.NewSlidingWindow(600, 5*time.Minute)
//
//	// Before each request. Blocks until a slot is free.
//	limiter.WaitIfNeeded()
//
// WaitIfNeeded holds the limiter's mutex for the entire
// purge-decide-sleep-record sequence, which makes it safe to call from
// concurrent callers: while one caller sleeps out a full window, the
// others queue behind the lock. There is no cancellation; a blocked
// caller always eventually proceeds.
package ratelimit
