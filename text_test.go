package yx

import "testing"

func TestTextProtocolBuildAndHandleRoundTrip(t *testing.T) {
	var delivered Value
	var deliveredGUID GUID
	tp := NewTextProtocol(func(msg Value, guid GUID, src Addr) {
		delivered = msg
		deliveredGUID = guid
	})

	msg := Object(map[string]Value{"jsonrpc": String("2.0"), "method": String("ping")})
	payload, err := tp.BuildPayload(msg)
	if err != nil {
		t.Fatalf("BuildPayload: %v", err)
	}
	if payload[0] != ProtoText {
		t.Fatalf("payload should begin with ProtoText, got %#x", payload[0])
	}

	guid := GUID{1, 1, 1, 1, 1, 1}
	tp.HandlePayload(payload, guid, Addr{})

	method, _ := delivered.Get("method")
	s, _ := method.String()
	if s != "ping" {
		t.Fatalf("delivered method: got %q want %q", s, "ping")
	}
	if deliveredGUID != guid {
		t.Fatal("delivered guid mismatch")
	}
}

func TestTextProtocolDropsWrongProtocolID(t *testing.T) {
	called := false
	tp := NewTextProtocol(func(msg Value, guid GUID, src Addr) { called = true })

	tp.HandlePayload([]byte{ProtoBinary, 0, 1, 2}, GUID{}, Addr{})
	if called {
		t.Fatal("a non-text payload must not reach the deliver callback")
	}
}

func TestTextProtocolDropsInvalidUTF8(t *testing.T) {
	called := false
	tp := NewTextProtocol(func(msg Value, guid GUID, src Addr) { called = true })

	tp.HandlePayload([]byte{ProtoText, 0xff, 0xfe}, GUID{}, Addr{})
	if called {
		t.Fatal("invalid utf-8 body must not reach the deliver callback")
	}
}

func TestTextProtocolDropsInvalidJSON(t *testing.T) {
	called := false
	tp := NewTextProtocol(func(msg Value, guid GUID, src Addr) { called = true })

	payload := append([]byte{ProtoText}, []byte("{not json")...)
	tp.HandlePayload(payload, GUID{}, Addr{})
	if called {
		t.Fatal("invalid json body must not reach the deliver callback")
	}
}

func TestTextProtocolWarnsOnOversizedPayload(t *testing.T) {
	tp := NewTextProtocol(nil)
	big := String(string(make([]byte, maxSingleDatagramPayload+100)))
	// BuildPayload should succeed (it only warns, never fails) even when
	// oversized.
	if _, err := tp.BuildPayload(big); err != nil {
		t.Fatalf("BuildPayload should not fail on an oversized payload, got %v", err)
	}
}
