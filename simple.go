package yx

import "encoding/json"

// SimpleBuilder is the stateless, synchronous packet-building API spec
// §4.10 calls for: a pure, RNG-free-where-possible counterpart to the
// stateful Transport/BinaryProtocol pair, for test harnesses and any
// caller that wants to emit packets without owning async machinery. For
// identical inputs (and no encryption, which is the only place randomness
// enters via the AEAD nonce) it produces byte-identical output across
// implementations (spec §4.10 "Guarantees").
type SimpleBuilder struct{}

// BuildTextPacket serializes message to JSON, frames it as a protocol-0x00
// payload, and wraps it in an authenticated packet under key.
func (SimpleBuilder) BuildTextPacket(message Value, guid []byte, key []byte) ([]byte, error) {
	body, err := json.Marshal(message)
	if err != nil {
		return nil, ErrBadJSON
	}
	payload := make([]byte, 0, 1+len(body))
	payload = append(payload, ProtoText)
	payload = append(payload, body...)

	p, err := BuildPacket(guid, payload, key)
	if err != nil {
		return nil, err
	}
	return p.Serialize(), nil
}

// BuildBinaryPackets compresses/encrypts/chunks data exactly as
// BinaryProtocol.BuildChunks does, then wraps every chunk as an
// authenticated packet under hmacKey. encKey may be nil if opts does not
// set OptEncrypted. sequence is caller-supplied rather than drawn from a
// stateful per-channel counter, matching the "stateless" contract.
func (SimpleBuilder) BuildBinaryPackets(
	data []byte,
	guid []byte,
	hmacKey []byte,
	opts ProtoOpts,
	encKey []byte,
	channelID uint16,
	sequence uint32,
	chunkSize int,
) ([][]byte, error) {
	var err error

	if opts&OptCompressed != 0 {
		data, err = Compress(data)
		if err != nil {
			return nil, err
		}
	}
	if opts&OptEncrypted != 0 {
		data, err = Seal(data, encKey)
		if err != nil {
			return nil, err
		}
	}

	if chunkSize <= 0 {
		chunkSize = 1024
	}
	totalChunks := (len(data) + chunkSize - 1) / chunkSize
	if totalChunks == 0 {
		totalChunks = 1
	}

	packets := make([][]byte, 0, totalChunks)
	for i := 0; i < totalChunks; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > len(data) {
			end = len(data)
		}
		header := ChunkHeader{
			ProtoOpts:   opts,
			ChannelID:   channelID,
			Sequence:    sequence,
			ChunkIndex:  uint32(i),
			TotalChunks: uint32(totalChunks),
		}
		payload := append(header.Encode(), data[start:end]...)

		p, err := BuildPacket(guid, payload, hmacKey)
		if err != nil {
			return nil, err
		}
		packets = append(packets, p.Serialize())
	}
	return packets, nil
}

// VerifyPacket reports whether data is an authentic packet under key.
func (SimpleBuilder) VerifyPacket(data []byte, key []byte) bool {
	_, err := VerifyPacket(data, func(string) []byte { return key })
	return err == nil
}

// ExtractGUID returns the sender GUID of a wire packet without verifying
// its MAC. Fails with ErrTooShort if data is too small.
func (SimpleBuilder) ExtractGUID(data []byte) (GUID, error) {
	p, err := ParsePacket(data)
	if err != nil {
		return GUID{}, err
	}
	return p.GUID, nil
}

// ExtractPayload returns the payload bytes of a wire packet without
// verifying its MAC. Fails with ErrTooShort if data is too small.
func (SimpleBuilder) ExtractPayload(data []byte) ([]byte, error) {
	p, err := ParsePacket(data)
	if err != nil {
		return nil, err
	}
	return p.Payload, nil
}
