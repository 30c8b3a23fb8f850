package yx

import (
	"strings"
	"sync"
	"time"
)

// RateLimiter enforces a per-peer sliding-window request count (spec §4.5).
// No third-party sliding-window limiter was found in the retrieved example
// pack — the token-bucket implementations that do appear there (e.g.
// cockroachdb/tokenbucket, pulled in indirectly by wyf-ACCEPT-eth2030)
// implement a materially different algorithm that would not satisfy the
// exact "first M calls within W return true, the M+1st returns false"
// contract spec §8 property 7 demands — so this is a small, deliberate
// stdlib-only structure (see DESIGN.md).
type RateLimiter struct {
	mu            sync.Mutex
	windows       map[string][]time.Time
	trusted       map[string]struct{}
	maxRequests   int
	windowSeconds time.Duration
}

// NewRateLimiter constructs a limiter admitting at most maxRequests calls
// per windowSeconds, per peer key. Per spec §4.5, a maxRequests below the
// normative floor of 10000 is a cross-implementation footgun; callers
// should check Config.BelowRecommendedRateLimit and log a warning before
// constructing one this small — NewRateLimiter itself does not refuse, to
// allow intentionally strict single-implementation deployments.
func NewRateLimiter(maxRequests int, windowSeconds float64) *RateLimiter {
	return &RateLimiter{
		windows:       make(map[string][]time.Time),
		trusted:       make(map[string]struct{}),
		maxRequests:   maxRequests,
		windowSeconds: time.Duration(windowSeconds * float64(time.Second)),
	}
}

// TrustGUID whitelists a GUID hex to bypass rate limiting entirely,
// regardless of case (keys are normalized to uppercase hex, spec §4.5).
func (r *RateLimiter) TrustGUID(guidHex string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trusted[strings.ToUpper(guidHex)] = struct{}{}
}

// UntrustGUID removes a previously trusted GUID.
func (r *RateLimiter) UntrustGUID(guidHex string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.trusted, strings.ToUpper(guidHex))
}

// Allow admits the call iff peerKey has made fewer than maxRequests calls
// within the trailing windowSeconds, recording this call's timestamp on
// success. Trusted GUIDs always return true without being counted.
func (r *RateLimiter) Allow(peerKey string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.trusted[strings.ToUpper(peerKey)]; ok {
		return true
	}

	now := time.Now()
	cutoff := now.Add(-r.windowSeconds)

	times := r.windows[peerKey]
	kept := times[:0]
	for _, t := range times {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= r.maxRequests {
		r.windows[peerKey] = kept
		return false
	}

	r.windows[peerKey] = append(kept, now)
	return true
}

// Count reports the number of requests currently counted within the
// window for peerKey (test/metrics helper).
func (r *RateLimiter) Count(peerKey string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.windows[peerKey])
}
