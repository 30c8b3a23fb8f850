package yx

import (
	"encoding/json"
	"unicode/utf8"
)

// maxSingleDatagramPayload is the conservative MTU-minus-YX-header ceiling
// spec §4.8 warns against exceeding for protocol 0x00 — Protocol 0 is
// single-datagram and larger messages risk IP fragmentation.
const maxSingleDatagramPayload = 1450

// TextDeliver is the upward callback for a decoded text-protocol message.
type TextDeliver func(msg Value, guid GUID, src Addr)

// TextProtocol implements protocol 0x00: single-datagram UTF-8 JSON (spec
// §4.8). It holds no reassembly state — every send/receive is one
// complete, independent datagram.
type TextProtocol struct {
	deliver TextDeliver
}

// NewTextProtocol constructs a text protocol handler invoking deliver for
// each successfully decoded message.
func NewTextProtocol(deliver TextDeliver) *TextProtocol {
	return &TextProtocol{deliver: deliver}
}

// BuildPayload serializes message to UTF-8 JSON and prepends the protocol
// ID byte, ready for the packet builder to wrap with MAC+GUID. Logs a
// warning (does not fail) if the resulting payload risks IP fragmentation.
func (t *TextProtocol) BuildPayload(message Value) ([]byte, error) {
	body, err := json.Marshal(message)
	if err != nil {
		return nil, ErrBadJSON
	}
	payload := make([]byte, 0, 1+len(body))
	payload = append(payload, ProtoText)
	payload = append(payload, body...)

	if len(payload) > maxSingleDatagramPayload {
		Logger.WithField("size", len(payload)).Warn("yx: text payload exceeds conservative single-datagram limit, risk of IP fragmentation")
	}
	return payload, nil
}

// HandlePayload implements the receive contract (spec §4.8 "Receive"):
// verify the protocol id, decode UTF-8, parse JSON, deliver. Every failure
// is localized and logged; none escapes as a panic or propagated error.
func (t *TextProtocol) HandlePayload(payload []byte, guid GUID, src Addr) {
	if len(payload) == 0 {
		Logger.WithField("src", src.String()).WithError(ErrEmptyPacket).Debug("yx: text handler received empty payload, dropping")
		return
	}
	if payload[0] != ProtoText {
		Logger.WithField("src", src.String()).WithError(ErrBadProtocol).Warn("yx: text handler received non-text payload, dropping")
		return
	}
	body := payload[1:]

	if !utf8.Valid(body) {
		Logger.WithField("src", src.String()).Warn("yx: text payload is not valid utf-8, dropping")
		return
	}

	var msg Value
	if err := json.Unmarshal(body, &msg); err != nil {
		Logger.WithError(err).WithField("src", src.String()).Warn("yx: text payload failed json decode, dropping")
		return
	}

	if t.deliver != nil {
		t.deliver(msg, guid, src)
	}
}
