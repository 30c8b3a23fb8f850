package yx

import "errors"

// Framing and parse errors. These are local, silent-drop-with-debug-log
// conditions on the receive path (spec §7).
var (
	ErrTooShort  = errors.New("yx: packet shorter than minimum size")
	ErrBadHeader = errors.New("yx: malformed binary chunk header")
)

// Authentication and replay/rate-limit errors.
var (
	ErrAuthFailure     = errors.New("yx: mac verification failed")
	ErrReplayDetected  = errors.New("yx: nonce already seen")
	ErrRateLimited     = errors.New("yx: rate limit exceeded")
	ErrInvalidKeyLen   = errors.New("yx: key must be 32 bytes")
	ErrInvalidGUIDLen  = errors.New("yx: guid exceeds 6 bytes")
	ErrAuthTagFailure  = errors.New("yx: aead authentication tag mismatch")
	ErrInvalidCipher   = errors.New("yx: ciphertext shorter than nonce+tag")
	ErrDecompressFail  = errors.New("yx: decompress failed")
	ErrReassemblyStale = errors.New("yx: reassembly buffer expired")
)

// Protocol-level decode errors.
var (
	ErrBadJSON     = errors.New("yx: invalid json payload")
	ErrBadUTF8     = errors.New("yx: invalid utf-8 payload")
	ErrBadProtocol = errors.New("yx: unrecognized protocol id")
	ErrNoHandler   = errors.New("yx: no handler registered for protocol id")
	ErrEmptyPacket = errors.New("yx: empty payload")
)

// Construction-time configuration errors, returned by Config.Validate (and
// so by NewPeer). The sentinels above are returned by the lower-level
// functions that detect them (ComputeMAC, Open, ParsePacket, VerifyPacket,
// DecodeChunkHeader, Router.Route, ...); inside Peer's receive pipeline they
// are logged and the datagram dropped.
var (
	ErrInvalidConfig = errors.New("yx: invalid configuration")
)
