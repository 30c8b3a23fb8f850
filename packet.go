package yx

import "fmt"

// MinPacketSize is the smallest legal datagram: mac(16) ‖ guid(6). A
// zero-length payload is accepted at this layer (the router drops it); a
// non-empty payload begins with a protocol id.
const MinPacketSize = MACSize + GUIDSize

// Packet is the in-memory form of the wire container described in spec §3
// and §6.1: MAC(16) ‖ GUID(6) ‖ Payload(N).
type Packet struct {
	MAC     [MACSize]byte
	GUID    GUID
	Payload []byte
}

// KeyLookup resolves the HMAC key to use for a given sender GUID hex. It
// must fall back to a default key on miss (spec §4.2, §4.6).
type KeyLookup func(guidHex string) []byte

// BuildPacket computes the MAC over guid‖payload under key and returns the
// assembled container. guid is padded/truncated to GUIDSize first (spec
// §4.2).
func BuildPacket(guid []byte, payload, key []byte) (*Packet, error) {
	g := PadGUID(guid)
	mac, err := ComputeMAC(append(append([]byte{}, g[:]...), payload...), key)
	if err != nil {
		return nil, err
	}
	p := &Packet{GUID: g, Payload: payload}
	copy(p.MAC[:], mac)
	return p, nil
}

// Serialize renders the packet to its wire bytes: mac‖guid‖payload.
func (p *Packet) Serialize() []byte {
	out := make([]byte, 0, MinPacketSize+len(p.Payload))
	out = append(out, p.MAC[:]...)
	out = append(out, p.GUID[:]...)
	out = append(out, p.Payload...)
	return out
}

// ParsePacket slices raw wire bytes into a Packet without verifying the MAC.
// Fails with ErrTooShort if data is smaller than MinPacketSize.
func ParsePacket(data []byte) (*Packet, error) {
	if len(data) < MinPacketSize {
		return nil, ErrTooShort
	}
	p := &Packet{}
	copy(p.MAC[:], data[0:MACSize])
	copy(p.GUID[:], data[MACSize:MinPacketSize])
	if len(data) > MinPacketSize {
		p.Payload = data[MinPacketSize:]
	}
	return p, nil
}

// VerifyPacket parses raw wire bytes, resolves the signing key for the
// parsed GUID via lookup, and verifies the MAC in constant time. On
// mismatch it returns ErrAuthFailure; the caller (the receive pipeline) is
// responsible for the forensic log record (spec §4.2 step 5, §6.3).
func VerifyPacket(data []byte, lookup KeyLookup) (*Packet, error) {
	p, err := ParsePacket(data)
	if err != nil {
		return nil, err
	}
	key := lookup(p.GUID.Hex())
	ok, err := VerifyMAC(data[MACSize:], p.MAC[:], key)
	if err != nil {
		return nil, fmt.Errorf("yx: verify packet: %w", err)
	}
	if !ok {
		return nil, ErrAuthFailure
	}
	return p, nil
}
