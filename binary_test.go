package yx

import (
	"bytes"
	"testing"
	"time"
)

func collectingDeliver(out *[][]byte, guids *[]GUID) Deliver {
	return func(data []byte, guid GUID, src Addr) {
		*out = append(*out, data)
		*guids = append(*guids, guid)
	}
}

func TestBinaryProtocolSingleChunkRoundTrip(t *testing.T) {
	var delivered [][]byte
	var guids []GUID
	bp := NewBinaryProtocol(1024, 60, 5, collectingDeliver(&delivered, &guids))

	data := []byte("small message")
	chunks, err := bp.BuildChunks(data, 1, 0, nil)
	if err != nil {
		t.Fatalf("BuildChunks: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk for a small message, got %d", len(chunks))
	}

	guid := GUID{2, 2, 2, 2, 2, 2}
	bp.HandlePayload(chunks[0], guid, Addr{}, func(string) []byte { return nil })

	if len(delivered) != 1 || !bytes.Equal(delivered[0], data) {
		t.Fatalf("delivered data mismatch: got %v want %v", delivered, data)
	}
}

func TestBinaryProtocolMultiChunkReassembly(t *testing.T) {
	var delivered [][]byte
	var guids []GUID
	bp := NewBinaryProtocol(4, 60, 5, collectingDeliver(&delivered, &guids))

	data := []byte("this message needs several chunks to reassemble")
	chunks, err := bp.BuildChunks(data, 1, 0, nil)
	if err != nil {
		t.Fatalf("BuildChunks: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	for _, c := range chunks {
		bp.HandlePayload(c, GUID{3}, Addr{}, func(string) []byte { return nil })
	}

	if len(delivered) != 1 || !bytes.Equal(delivered[0], data) {
		t.Fatalf("reassembled data mismatch: got %q want %q", delivered, data)
	}
}

func TestBinaryProtocolOutOfOrderChunksReassemble(t *testing.T) {
	var delivered [][]byte
	var guids []GUID
	bp := NewBinaryProtocol(4, 60, 5, collectingDeliver(&delivered, &guids))

	data := []byte("out of order chunk delivery test message")
	chunks, err := bp.BuildChunks(data, 2, 0, nil)
	if err != nil {
		t.Fatalf("BuildChunks: %v", err)
	}

	for i := len(chunks) - 1; i >= 0; i-- {
		bp.HandlePayload(chunks[i], GUID{4}, Addr{}, func(string) []byte { return nil })
	}

	if len(delivered) != 1 || !bytes.Equal(delivered[0], data) {
		t.Fatal("out-of-order chunks should still reassemble correctly")
	}
}

func TestBinaryProtocolCompressedAndEncrypted(t *testing.T) {
	var delivered [][]byte
	var guids []GUID
	bp := NewBinaryProtocol(1024, 60, 5, collectingDeliver(&delivered, &guids))

	key := testKey()
	data := bytes.Repeat([]byte("repeat me for compression gains "), 20)
	chunks, err := bp.BuildChunks(data, 1, OptCompressed|OptEncrypted, key)
	if err != nil {
		t.Fatalf("BuildChunks: %v", err)
	}

	bp.HandlePayload(chunks[0], GUID{5}, Addr{}, func(string) []byte { return key })

	if len(delivered) != 1 || !bytes.Equal(delivered[0], data) {
		t.Fatal("compressed+encrypted message should decode back to the original bytes")
	}
}

func TestBinaryProtocolDuplicateMessageIgnored(t *testing.T) {
	var delivered [][]byte
	var guids []GUID
	bp := NewBinaryProtocol(1024, 60, 5, collectingDeliver(&delivered, &guids))

	chunks, err := bp.BuildChunks([]byte("dedup me"), 1, 0, nil)
	if err != nil {
		t.Fatalf("BuildChunks: %v", err)
	}

	bp.HandlePayload(chunks[0], GUID{6}, Addr{}, func(string) []byte { return nil })
	bp.HandlePayload(chunks[0], GUID{6}, Addr{}, func(string) []byte { return nil })

	if len(delivered) != 1 {
		t.Fatalf("expected exactly one delivery for a duplicate message, got %d", len(delivered))
	}
}

func TestBinaryProtocolDuplicateChunkIndexOverwrites(t *testing.T) {
	var delivered [][]byte
	var guids []GUID
	bp := NewBinaryProtocol(4, 60, 5, collectingDeliver(&delivered, &guids))

	data := []byte("needs multiple chunks overwrite test")
	chunks, err := bp.BuildChunks(data, 7, 0, nil)
	if err != nil {
		t.Fatalf("BuildChunks: %v", err)
	}

	// Deliver chunk 0 twice before completing the rest — per DESIGN.md open
	// question 1, the second copy silently overwrites, not an error.
	bp.HandlePayload(chunks[0], GUID{7}, Addr{}, func(string) []byte { return nil })
	bp.HandlePayload(chunks[0], GUID{7}, Addr{}, func(string) []byte { return nil })
	for _, c := range chunks[1:] {
		bp.HandlePayload(c, GUID{7}, Addr{}, func(string) []byte { return nil })
	}

	if len(delivered) != 1 || !bytes.Equal(delivered[0], data) {
		t.Fatal("duplicate chunk index should overwrite, then reassembly should still complete")
	}
}

func TestBinaryProtocolStaleBufferExpires(t *testing.T) {
	var delivered [][]byte
	var guids []GUID
	bp := NewBinaryProtocol(4, 0.05, 5, collectingDeliver(&delivered, &guids))

	data := []byte("this will never complete because it expires")
	chunks, err := bp.BuildChunks(data, 9, 0, nil)
	if err != nil {
		t.Fatalf("BuildChunks: %v", err)
	}

	bp.HandlePayload(chunks[0], GUID{8}, Addr{}, func(string) []byte { return nil })
	if bp.BufferCount() != 1 {
		t.Fatalf("expected one in-flight buffer, got %d", bp.BufferCount())
	}

	time.Sleep(100 * time.Millisecond)
	// Trigger another HandlePayload call unrelated to the stale one so its
	// amortized GC runs.
	unrelated, _ := bp.BuildChunks([]byte("x"), 10, 0, nil)
	bp.HandlePayload(unrelated[0], GUID{8}, Addr{}, func(string) []byte { return nil })

	if bp.BufferCount() != 0 {
		t.Fatalf("expected the stale buffer to be reaped, got %d remaining", bp.BufferCount())
	}
}

func TestDecodeChunkHeaderRejectsTooShort(t *testing.T) {
	_, err := DecodeChunkHeader([]byte{1, 2, 3})
	if err != ErrTooShort {
		t.Fatalf("DecodeChunkHeader: got %v want ErrTooShort", err)
	}
}

func TestDecodeChunkHeaderRejectsChunkIndexBeyondTotal(t *testing.T) {
	h := ChunkHeader{ChunkIndex: 5, TotalChunks: 5}
	_, err := DecodeChunkHeader(h.Encode())
	if err != ErrBadHeader {
		t.Fatalf("DecodeChunkHeader: got %v want ErrBadHeader", err)
	}
}
