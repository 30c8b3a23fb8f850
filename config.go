package yx

import "fmt"

// Config enumerates every tunable in spec §6.2, with the normative defaults.
type Config struct {
	ListenPort int    // UDP bind port. Default 50000.
	ListenAddr string // UDP bind address. Default "0.0.0.0".
	Broadcast  bool   // Passed to TransportOptions.Broadcast (does not set SO_BROADCAST). Default true.
	ReusePort  bool   // Allow multi-listener on port. Default true.

	// ProcessOwnPackets, if false, drops datagrams whose parsed GUID
	// equals the local sender GUID (loop suppression for broadcast).
	ProcessOwnPackets bool

	ChunkSize     int     // Max payload bytes per chunk. Default 1024.
	BufferTimeout float64 // Drop partial messages after this many seconds. Default 60.0.
	DedupWindow   float64 // Full-message dedup window, seconds. Default 5.0.

	ReplayMaxAge           float64 // Nonce retention window, seconds. Default 300.0.
	ReplayCleanupInterval  int     // Inserts between GC sweeps. Default 100.

	MaxRequests   int     // Rate-limit count per window. Default 10000.
	WindowSeconds float64 // Rate-limit window, seconds. Default 60.0.

	// FailureLogPath overrides the default /tmp/hmac_failures.log location
	// (spec §6.3). Not part of the normative config surface, but every
	// production deployment of this needs it overridable for testing.
	FailureLogPath string
}

// minRecommendedMaxRequests is the normative floor spec §4.5 demands
// implementations guard at construction: a smaller configured value
// silently blocks legitimate high-frequency peers when interoperating with
// implementations running the normative default.
const minRecommendedMaxRequests = 10000

// DefaultConfig returns a Config populated with every spec §6.2 default.
func DefaultConfig() Config {
	return Config{
		ListenPort:            50000,
		ListenAddr:            "0.0.0.0",
		Broadcast:             true,
		ReusePort:             true,
		ProcessOwnPackets:     true,
		ChunkSize:             1024,
		BufferTimeout:         60.0,
		DedupWindow:           5.0,
		ReplayMaxAge:          300.0,
		ReplayCleanupInterval: 100,
		MaxRequests:           minRecommendedMaxRequests,
		WindowSeconds:         60.0,
		FailureLogPath:        "/tmp/hmac_failures.log",
	}
}

// Validate checks the config for construction-time errors. It never mutates
// c; callers are expected to fix returned problems and retry. A MaxRequests
// below the normative minimum is not rejected and does not make Validate
// return an error; it is reported by BelowRecommendedRateLimit, and
// NewPeer logs it as a warning via Logger rather than failing construction.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("%w: chunkSize must be positive, got %d", ErrInvalidConfig, c.ChunkSize)
	}
	if c.BufferTimeout <= 0 {
		return fmt.Errorf("%w: bufferTimeout must be positive", ErrInvalidConfig)
	}
	if c.DedupWindow < 0 {
		return fmt.Errorf("%w: dedupWindow must not be negative", ErrInvalidConfig)
	}
	if c.ReplayMaxAge <= 0 {
		return fmt.Errorf("%w: replayMaxAge must be positive", ErrInvalidConfig)
	}
	if c.ReplayCleanupInterval <= 0 {
		return fmt.Errorf("%w: replayCleanupInterval must be positive", ErrInvalidConfig)
	}
	if c.WindowSeconds <= 0 {
		return fmt.Errorf("%w: windowSeconds must be positive", ErrInvalidConfig)
	}
	if c.MaxRequests <= 0 {
		return fmt.Errorf("%w: maxRequests must be positive", ErrInvalidConfig)
	}
	if c.ListenPort < 0 || c.ListenPort > 65535 {
		return fmt.Errorf("%w: listenPort out of range", ErrInvalidConfig)
	}
	return nil
}

// BelowRecommendedRateLimit reports whether MaxRequests is configured below
// the normative interop floor (spec §4.5).
func (c Config) BelowRecommendedRateLimit() bool {
	return c.MaxRequests < minRecommendedMaxRequests
}
