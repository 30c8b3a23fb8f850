package yx

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// GUIDSize is the fixed wire size of a sender identifier (spec §3).
const GUIDSize = 6

// GUID is a 6-byte sender identifier. It is not globally unique in the
// RFC-4122 sense — uniqueness only needs to hold within one cooperating
// fleet of peers (GLOSSARY).
type GUID [GUIDSize]byte

// NewGUID generates a random GUID using a CSPRNG.
func NewGUID() (GUID, error) {
	var g GUID
	if _, err := rand.Read(g[:]); err != nil {
		return GUID{}, fmt.Errorf("yx: generate guid: %w", err)
	}
	return g, nil
}

// PadGUID right-pads b with zeros to GUIDSize, or truncates it if longer,
// per the builder contract in spec §4.2.
func PadGUID(b []byte) GUID {
	var g GUID
	n := copy(g[:], b)
	_ = n // remaining bytes stay zero-valued; truncation is copy's default behavior
	return g
}

// Hex returns the lowercase hex encoding of the GUID, the canonical key
// store / rate limiter lookup key.
func (g GUID) Hex() string {
	return hex.EncodeToString(g[:])
}

// GUIDFromHex parses a hex string into a GUID. Unlike PadGUID, it rejects
// decoded input longer than GUIDSize instead of silently truncating it —
// appropriate here since a hex string is normally hand-entered or read from
// configuration, where a too-long value is a caller mistake worth surfacing
// rather than wire input to tolerate.
func GUIDFromHex(s string) (GUID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return GUID{}, fmt.Errorf("yx: decode guid hex: %w", err)
	}
	if len(b) > GUIDSize {
		return GUID{}, ErrInvalidGUIDLen
	}
	return PadGUID(b), nil
}

// IsZero reports whether the GUID is the all-zero value.
func (g GUID) IsZero() bool {
	return g == GUID{}
}
