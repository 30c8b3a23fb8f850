package yx

import (
	"testing"
	"time"
)

func TestRateLimiterAllowsUpToMax(t *testing.T) {
	rl := NewRateLimiter(3, 60)
	for i := 0; i < 3; i++ {
		if !rl.Allow("peer-a") {
			t.Fatalf("call %d should have been allowed", i+1)
		}
	}
	if rl.Allow("peer-a") {
		t.Fatal("call beyond maxRequests should be rejected")
	}
}

func TestRateLimiterPeersAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, 60)
	if !rl.Allow("peer-a") {
		t.Fatal("first call for peer-a should be allowed")
	}
	if !rl.Allow("peer-b") {
		t.Fatal("peer-b's budget must be independent of peer-a's")
	}
}

func TestRateLimiterWindowSlides(t *testing.T) {
	rl := NewRateLimiter(1, 0.05)
	if !rl.Allow("peer-a") {
		t.Fatal("first call should be allowed")
	}
	if rl.Allow("peer-a") {
		t.Fatal("second call within window should be rejected")
	}
	time.Sleep(100 * time.Millisecond)
	if !rl.Allow("peer-a") {
		t.Fatal("call after window elapses should be allowed again")
	}
}

func TestRateLimiterTrustedGUIDBypassesLimit(t *testing.T) {
	rl := NewRateLimiter(1, 60)
	rl.TrustGUID("AABBCCDDEEFF")

	for i := 0; i < 10; i++ {
		if !rl.Allow("aabbccddeeff") {
			t.Fatalf("trusted GUID call %d should always be allowed regardless of case", i+1)
		}
	}
	if rl.Count("aabbccddeeff") != 0 {
		t.Fatal("trusted calls must not be counted against the window")
	}
}

func TestRateLimiterUntrustGUIDReenablesLimit(t *testing.T) {
	rl := NewRateLimiter(1, 60)
	rl.TrustGUID("abcdef000000")
	rl.UntrustGUID("ABCDEF000000")

	if !rl.Allow("abcdef000000") {
		t.Fatal("first call after untrust should still be allowed")
	}
	if rl.Allow("abcdef000000") {
		t.Fatal("second call after untrust should be rate-limited again")
	}
}
