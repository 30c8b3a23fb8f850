package yx

import "testing"

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig should validate cleanly, got %v", err)
	}
}

func TestDefaultConfigMeetsRateLimitFloor(t *testing.T) {
	if DefaultConfig().BelowRecommendedRateLimit() {
		t.Fatal("default config must not be below the normative rate-limit floor")
	}
}

func TestConfigBelowRecommendedRateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxRequests = 100
	if !cfg.BelowRecommendedRateLimit() {
		t.Fatal("100 req/window should be flagged below the 10000 floor")
	}
}

func TestConfigValidateRejectsBadChunkSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChunkSize = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("zero chunk size should fail validation")
	}
}

func TestConfigValidateRejectsBadPort(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ListenPort = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatal("out-of-range port should fail validation")
	}
}

func TestConfigValidateRejectsNegativeDedupWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DedupWindow = -1
	if err := cfg.Validate(); err == nil {
		t.Fatal("negative dedup window should fail validation")
	}
}
