package yx

import (
	"strings"
	"sync"
)

// PeerKeys holds the symmetric material for one peer (spec §3 "Peer key
// entry"). EncryptionKey is optional — binary protocol 0x01 messages with
// protoOpts bit1 unset never need one.
type PeerKeys struct {
	HMACKey       []byte
	EncryptionKey []byte
	InstalledAt   int64 // unix seconds
}

// KeyStore holds a mandatory default HMAC key and an optional per-peer
// override map keyed by GUID hex (spec §4.6). It has no persistence: its
// lifecycle is the process lifetime.
//
// DESIGN.md open question 4: looking up a per-peer key falls back to the
// default key on miss, and verification checks only the one key the lookup
// returns. While a per-peer key is installed or removed on one side before
// the other, packets signed under the previous key fail verification —
// this is preserved as spec.md leaves it unresolved, not fixed.
type KeyStore struct {
	mu         sync.RWMutex
	defaultKey []byte
	peers      map[string]PeerKeys
}

// NewKeyStore constructs a store with the given mandatory default HMAC
// key. Fails with ErrInvalidKeyLen if defaultKey is not KeySize bytes.
func NewKeyStore(defaultKey []byte) (*KeyStore, error) {
	if len(defaultKey) != KeySize {
		return nil, ErrInvalidKeyLen
	}
	return &KeyStore{
		defaultKey: append([]byte{}, defaultKey...),
		peers:      make(map[string]PeerKeys),
	}, nil
}

// Set installs or replaces the keys for a peer, identified by GUID hex.
// Fails with ErrInvalidKeyLen if hmacKey is not KeySize bytes, or encKey is
// non-nil and not KeySize bytes.
func (k *KeyStore) Set(guidHex string, hmacKey, encKey []byte, installedAt int64) error {
	if len(hmacKey) != KeySize {
		return ErrInvalidKeyLen
	}
	if encKey != nil && len(encKey) != KeySize {
		return ErrInvalidKeyLen
	}
	var enc []byte
	if encKey != nil {
		enc = append([]byte{}, encKey...)
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	k.peers[normalizeGUIDHex(guidHex)] = PeerKeys{
		HMACKey:       append([]byte{}, hmacKey...),
		EncryptionKey: enc,
		InstalledAt:   installedAt,
	}
	return nil
}

// Remove deletes a peer's key entry; lookups fall back to the default key.
func (k *KeyStore) Remove(guidHex string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.peers, normalizeGUIDHex(guidHex))
}

// HMACKeyFor returns the HMAC key for guidHex, falling back to the default
// key if no per-peer entry exists. Suitable directly as a KeyLookup.
func (k *KeyStore) HMACKeyFor(guidHex string) []byte {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if peer, ok := k.peers[normalizeGUIDHex(guidHex)]; ok {
		return peer.HMACKey
	}
	return k.defaultKey
}

// EncryptionKeyFor returns the AEAD key for guidHex, or nil if the peer has
// none installed (an encrypted binary message from that peer then fails to
// open and is dropped).
func (k *KeyStore) EncryptionKeyFor(guidHex string) []byte {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if peer, ok := k.peers[normalizeGUIDHex(guidHex)]; ok {
		return peer.EncryptionKey
	}
	return nil
}

// Lookup adapts the store to the KeyLookup signature used by VerifyPacket.
func (k *KeyStore) Lookup() KeyLookup {
	return k.HMACKeyFor
}

func normalizeGUIDHex(s string) string {
	return strings.ToLower(s)
}
