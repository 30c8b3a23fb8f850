package yx

import (
	"bytes"
	"testing"
)

func TestSimpleBuilderBuildTextPacketVerifiable(t *testing.T) {
	var sb SimpleBuilder
	key := testKey()
	guid := []byte{1, 2, 3, 4, 5, 6}

	wire, err := sb.BuildTextPacket(String("hi"), guid, key)
	if err != nil {
		t.Fatalf("BuildTextPacket: %v", err)
	}
	if !sb.VerifyPacket(wire, key) {
		t.Fatal("packet built by SimpleBuilder should verify under the same key")
	}
}

func TestSimpleBuilderIsDeterministicWithoutEncryption(t *testing.T) {
	var sb SimpleBuilder
	key := testKey()
	guid := []byte{9, 9, 9, 9, 9, 9}

	a, err := sb.BuildTextPacket(String("same input"), guid, key)
	if err != nil {
		t.Fatalf("BuildTextPacket: %v", err)
	}
	b, err := sb.BuildTextPacket(String("same input"), guid, key)
	if err != nil {
		t.Fatalf("BuildTextPacket: %v", err)
	}
	if !bytes.Equal(a, b) {
		t.Fatal("identical inputs without encryption must produce byte-identical packets")
	}
}

func TestSimpleBuilderBuildBinaryPacketsChunking(t *testing.T) {
	var sb SimpleBuilder
	key := testKey()
	guid := []byte{1}
	data := bytes.Repeat([]byte("x"), 10)

	packets, err := sb.BuildBinaryPackets(data, guid, key, 0, nil, 1, 0, 4)
	if err != nil {
		t.Fatalf("BuildBinaryPackets: %v", err)
	}
	if len(packets) != 3 {
		t.Fatalf("expected 3 chunks of a 10-byte message at chunkSize 4, got %d", len(packets))
	}
	for _, p := range packets {
		if !sb.VerifyPacket(p, key) {
			t.Fatal("every chunk packet should verify under the signing key")
		}
	}
}

func TestSimpleBuilderExtractGUIDAndPayload(t *testing.T) {
	var sb SimpleBuilder
	key := testKey()
	guid := []byte{1, 2, 3, 4, 5, 6}

	wire, err := sb.BuildTextPacket(String("extract me"), guid, key)
	if err != nil {
		t.Fatalf("BuildTextPacket: %v", err)
	}

	gotGUID, err := sb.ExtractGUID(wire)
	if err != nil {
		t.Fatalf("ExtractGUID: %v", err)
	}
	if gotGUID != PadGUID(guid) {
		t.Fatalf("ExtractGUID: got %x want %x", gotGUID, PadGUID(guid))
	}

	payload, err := sb.ExtractPayload(wire)
	if err != nil {
		t.Fatalf("ExtractPayload: %v", err)
	}
	if payload[0] != ProtoText {
		t.Fatal("extracted payload should begin with the text protocol id")
	}
}

func TestSimpleBuilderVerifyPacketRejectsWrongKey(t *testing.T) {
	var sb SimpleBuilder
	wire, err := sb.BuildTextPacket(String("hi"), []byte{1}, testKey())
	if err != nil {
		t.Fatalf("BuildTextPacket: %v", err)
	}
	wrongKey := make([]byte, KeySize)
	wrongKey[0] = 1
	if sb.VerifyPacket(wire, wrongKey) {
		t.Fatal("VerifyPacket should reject a packet signed under a different key")
	}
}
