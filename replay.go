package yx

import (
	"encoding/hex"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// ReplayCache suppresses reprocessing of a previously seen packet nonce
// within a configurable retention window (spec §4.4). The nonce is the
// packet's 16-byte MAC: already unique per authenticated packet and
// forgeable only by an attacker who can forge the MAC, which is exactly
// what authentication prevents (spec §4.4 "Choice of nonce").
//
// The backing store is an expiring LRU (hashicorp/golang-lru/v2/expirable,
// the bounded-cache library this pack reaches for — orbas1-Synnergy,
// gosuda-portal, dantte-lp-gobfd, rockstar-0000-aistore all carry it)
// sized unbounded-by-count and bounded purely by TTL, matching the spec's
// "memory is bounded by rate · maxAge" requirement. On top of the library's
// own lazy expiry, an explicit sweep runs every replayCleanupInterval
// successful inserts so the externally observable GC cadence the spec
// names (§4.4, default 100) holds regardless of the library's internal
// schedule.
type ReplayCache struct {
	mu              sync.Mutex
	cache           *lru.LRU[string, time.Time]
	maxAge          time.Duration
	cleanupInterval int
	inserts         int
}

// NewReplayCache constructs a cache retaining nonces for maxAgeSeconds,
// sweeping stale entries every cleanupInterval inserts.
func NewReplayCache(maxAgeSeconds float64, cleanupInterval int) *ReplayCache {
	maxAge := time.Duration(maxAgeSeconds * float64(time.Second))
	if cleanupInterval <= 0 {
		cleanupInterval = 100
	}
	return &ReplayCache{
		cache:           lru.NewLRU[string, time.Time](0, nil, maxAge),
		maxAge:          maxAge,
		cleanupInterval: cleanupInterval,
	}
}

// CheckAndRecord returns false iff nonce was already inserted within
// maxAge; on true it records nonce at the current time (spec §4.4).
func (r *ReplayCache) CheckAndRecord(nonce []byte) bool {
	key := hex.EncodeToString(nonce)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.cache.Get(key); ok {
		return false
	}
	r.cache.Add(key, time.Now())

	r.inserts++
	if r.inserts%r.cleanupInterval == 0 {
		r.sweep()
	}
	return true
}

// sweep drops entries older than maxAge, called under r.mu.
func (r *ReplayCache) sweep() {
	now := time.Now()
	for _, k := range r.cache.Keys() {
		ts, ok := r.cache.Get(k)
		if ok && now.Sub(ts) > r.maxAge {
			r.cache.Remove(k)
		}
	}
}

// Len reports the current number of tracked nonces, for tests and metrics.
func (r *ReplayCache) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}
