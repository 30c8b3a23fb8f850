// Package conformance generates and validates the cross-implementation
// test vectors described in spec §6.3: fixed (guid, key, payload) triples
// with their expected MAC and full wire packet, encoded as JSON so another
// language's implementation can replay them without linking this module.
//
// Vectors cover the MAC path only. AEAD vectors are deliberately omitted —
// AES-256-GCM's nonce is random per Seal, so two conforming implementations
// never produce the same ciphertext for the same input, making a fixed
// expected-ciphertext vector meaningless (spec §6.3).
package conformance

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/ScottYelich/yx"
)

// Vector is one named conformance case (spec §6.3 JSON document shape).
type Vector struct {
	Name           string `json:"name"`
	GUIDHex        string `json:"guid"`
	KeyHex         string `json:"key"`
	PayloadHex     string `json:"payload_hex,omitempty"`
	ExpectedHMAC   string `json:"expected_hmac"`
	ExpectedPacket string `json:"expected_packet"`
}

// namedCase is the input to Generate before the derived fields are filled in.
type namedCase struct {
	name    string
	guidHex string
	keyHex  string
	payload []byte
}

// defaultCases is the fixed set of inputs this package ships: an empty
// payload under the all-zero GUID, a short text payload, and a 300-byte
// all-zero payload under a non-zero key, the last two under non-zero GUIDs.
var defaultCases = []namedCase{
	{name: "empty-payload-zero-guid", guidHex: "000000000000", keyHex: zeroKeyHex(), payload: []byte{}},
	{name: "short-text-payload", guidHex: "0102030405ab", keyHex: zeroKeyHex(), payload: []byte(`{"jsonrpc":"2.0","method":"ping"}`)},
	{name: "long-binary-payload", guidHex: "aabbccddeeff", keyHex: nonZeroKeyHex(), payload: make([]byte, 300)},
}

func zeroKeyHex() string {
	return hex.EncodeToString(make([]byte, yx.KeySize))
}

func nonZeroKeyHex() string {
	key := make([]byte, yx.KeySize)
	for i := range key {
		key[i] = byte(i + 1)
	}
	return hex.EncodeToString(key)
}

// Generate computes the expected MAC and wire packet for every default
// case and returns them as Vectors, ready for json.Marshal.
func Generate() ([]Vector, error) {
	out := make([]Vector, 0, len(defaultCases))
	for _, c := range defaultCases {
		v, err := build(c)
		if err != nil {
			return nil, fmt.Errorf("conformance: build case %q: %w", c.name, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func build(c namedCase) (Vector, error) {
	key, err := hex.DecodeString(c.keyHex)
	if err != nil {
		return Vector{}, fmt.Errorf("decode key: %w", err)
	}
	guidBytes, err := hex.DecodeString(c.guidHex)
	if err != nil {
		return Vector{}, fmt.Errorf("decode guid: %w", err)
	}

	pkt, err := yx.BuildPacket(guidBytes, c.payload, key)
	if err != nil {
		return Vector{}, err
	}
	wire := pkt.Serialize()

	return Vector{
		Name:           c.name,
		GUIDHex:        c.guidHex,
		KeyHex:         c.keyHex,
		PayloadHex:     hex.EncodeToString(c.payload),
		ExpectedHMAC:   hex.EncodeToString(pkt.MAC[:]),
		ExpectedPacket: hex.EncodeToString(wire),
	}, nil
}

// WriteJSON renders vectors as an indented JSON array, the file format
// spec §6.3 describes for cross-implementation consumption.
func WriteJSON(vectors []Vector) ([]byte, error) {
	return json.MarshalIndent(vectors, "", "  ")
}

// Validate re-derives each vector's expected MAC/packet from its own
// guid/key/payload fields and reports the first mismatch, or nil if every
// vector is internally consistent. This is what a CI job runs against a
// checked-in vectors.json to catch accidental wire-format drift.
func Validate(vectors []Vector) error {
	for _, v := range vectors {
		payload, err := hex.DecodeString(v.PayloadHex)
		if err != nil {
			return fmt.Errorf("conformance: vector %q: bad payload_hex: %w", v.Name, err)
		}
		got, err := build(namedCase{name: v.Name, guidHex: v.GUIDHex, keyHex: v.KeyHex, payload: payload})
		if err != nil {
			return fmt.Errorf("conformance: vector %q: %w", v.Name, err)
		}
		if got.ExpectedHMAC != v.ExpectedHMAC {
			return fmt.Errorf("conformance: vector %q: hmac mismatch: got %s want %s", v.Name, got.ExpectedHMAC, v.ExpectedHMAC)
		}
		if got.ExpectedPacket != v.ExpectedPacket {
			return fmt.Errorf("conformance: vector %q: packet mismatch: got %s want %s", v.Name, got.ExpectedPacket, v.ExpectedPacket)
		}
	}
	return nil
}
