package yx

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zlib"
)

const (
	// KeySize is the required length, in bytes, of every HMAC and
	// encryption key used by this protocol (spec §3, §4.1).
	KeySize = 32

	// MACSize is the truncated HMAC-SHA-256 output length carried on the
	// wire (spec §3).
	MACSize = 16

	// aeadNonceSize is the AES-256-GCM nonce length (spec §3 AEAD framing).
	aeadNonceSize = 12

	// aeadTagSize is the AES-256-GCM authentication tag length.
	aeadTagSize = 16

	// deflateLevel is the fixed compression level (spec §4.1).
	deflateLevel = 6
)

// ComputeMAC returns the first MACSize bytes of HMAC-SHA-256(data, key).
// Fails with ErrInvalidKeyLen if key is not KeySize bytes.
func ComputeMAC(data, key []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeyLen
	}
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)[:MACSize], nil
}

// VerifyMAC reports whether mac is the correct truncated HMAC-SHA-256 of
// data under key, comparing in constant time. A length mismatch in mac
// fails closed without disclosing timing information (spec §4.1).
func VerifyMAC(data, mac, key []byte) (bool, error) {
	expected, err := ComputeMAC(data, key)
	if err != nil {
		return false, err
	}
	if len(mac) != MACSize {
		return false, nil
	}
	return hmac.Equal(expected, mac), nil
}

// Seal encrypts plaintext under key with AES-256-GCM and a fresh random
// 12-byte nonce, returning nonce‖ciphertext‖tag (spec §4.1, §3 AEAD framing).
func Seal(plaintext, key []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeyLen
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("yx: aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, aeadNonceSize)
	if err != nil {
		return nil, fmt.Errorf("yx: gcm init: %w", err)
	}
	nonce := make([]byte, aeadNonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("yx: nonce rand: %w", err)
	}
	sealed := gcm.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, 0, len(nonce)+len(sealed))
	out = append(out, nonce...)
	out = append(out, sealed...) // ciphertext‖tag, tag is gcm's trailing aeadTagSize bytes
	return out, nil
}

// Open decrypts a nonce‖ciphertext‖tag buffer produced by Seal, verifying
// the GCM tag. Fails with ErrInvalidCipher if buf is too short to contain a
// nonce and tag, ErrInvalidKeyLen if key is the wrong size, and
// ErrAuthTagFailure if the tag does not verify.
func Open(buf, key []byte) ([]byte, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeyLen
	}
	if len(buf) < aeadNonceSize+aeadTagSize {
		return nil, ErrInvalidCipher
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("yx: aes cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, aeadNonceSize)
	if err != nil {
		return nil, fmt.Errorf("yx: gcm init: %w", err)
	}
	nonce := buf[:aeadNonceSize]
	sealed := buf[aeadNonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrAuthTagFailure
	}
	return plaintext, nil
}

// Compress raw-DEFLATEs data at deflateLevel (window bits equivalent to
// -15, no zlib header/trailer — spec §4.1).
func Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, deflateLevel)
	if err != nil {
		return nil, fmt.Errorf("yx: flate writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("yx: flate write: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("yx: flate close: %w", err)
	}
	return buf.Bytes(), nil
}

// Decompress inflates raw DEFLATE data. As an interoperability nicety for
// older peers it also accepts zlib-wrapped input, trying raw DEFLATE first
// and falling back to zlib on failure. Preserved per DESIGN.md open
// question 3 — do not remove this fallback without evidence it is unused.
func Decompress(data []byte) ([]byte, error) {
	if out, err := inflateRaw(data); err == nil {
		return out, nil
	}
	out, err := inflateZlib(data)
	if err != nil {
		return nil, ErrDecompressFail
	}
	return out, nil
}

func inflateRaw(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func inflateZlib(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}
