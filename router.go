package yx

import "sync"

// Reserved protocol IDs (spec §4.7).
const (
	ProtoText   byte = 0x00
	ProtoBinary byte = 0x01

	// ProtoTaskHello, ProtoRPCChain, and ProtoTaskChain are reserved for
	// future extensions. They route to a registered handler like any other
	// ID if one is installed, else drop-with-log — the router itself does
	// not special-case them.
	ProtoTaskHello byte = 0x21
	ProtoRPCChain  byte = 0x22
	ProtoTaskChain byte = 0x23
)

// Handler processes a full payload (including its leading protocol ID
// byte) for one registered protocol ID, given the authenticated sender
// GUID and source address the packet arrived with. Implementations must
// not assume the payload slice is exclusively theirs — it is a borrowed
// view into the packet that produced it (spec §4.7).
type Handler func(payload []byte, guid GUID, src Addr)

// Router is a small u8 → Handler dispatch table (spec §4.7).
type Router struct {
	mu       sync.RWMutex
	handlers map[byte]Handler
}

// NewRouter constructs an empty router.
func NewRouter() *Router {
	return &Router{handlers: make(map[byte]Handler)}
}

// Register installs handler for protocol id, replacing any existing one.
func (r *Router) Register(id byte, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[id] = handler
}

// Unregister removes the handler for protocol id, if any.
func (r *Router) Unregister(id byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.handlers, id)
}

// Route dispatches payload to its registered handler. An empty payload is
// dropped silently (ErrEmptyPacket); an unregistered protocol ID is logged
// and dropped (ErrNoHandler, spec §4.7).
func (r *Router) Route(payload []byte, guid GUID, src Addr) error {
	if len(payload) == 0 {
		return ErrEmptyPacket
	}
	id := payload[0]

	r.mu.RLock()
	handler := r.handlers[id]
	r.mu.RUnlock()

	if handler == nil {
		Logger.WithField("proto", id).WithField("src", src.String()).WithError(ErrNoHandler).Debug("yx: no handler registered, dropping")
		return ErrNoHandler
	}
	handler(payload, guid, src)
	return nil
}
