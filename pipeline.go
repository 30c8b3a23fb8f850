package yx

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"time"
)

// Peer orchestrates the canonical receive pipeline (spec §4.11):
//
//	recv() → bytes, src
//	  ├─ parse()         → TooShort ⇒ drop
//	  ├─ verify(MAC)     → AuthFailure ⇒ log forensic, drop
//	  ├─ replay.check()  → Replay ⇒ warn, drop
//	  ├─ rateLimit.allow(peer, src) → Exceeded ⇒ warn, drop
//	  ├─ self-GUID filter (if disabled own packets)
//	  └─ router.route(payload)
//
// This ordering is load-bearing: MAC comes first because every later check
// trusts the parsed GUID; replay runs before rate-limiting because a replay
// is the cheaper check and must never refresh the rate window; self-filter
// runs last so a broken or malicious sender spoofing our own GUID cannot
// use the self-filter to dodge rate limiting and self-DoS us for free.
type Peer struct {
	transport *Transport
	keys      *KeyStore
	replay    *ReplayCache
	limiter   *RateLimiter
	router    *Router
	binary    *BinaryProtocol
	text      *TextProtocol
	failure   *failureLog

	localGUID         GUID
	processOwnPackets bool
}

// NewPeer wires a full Peer from cfg, validating it first (spec §7
// "Config errors ... returned to the caller at construction"). textDeliver
// and binaryDeliver are the application's upward callbacks for protocol
// 0x00 and 0x01 respectively; either may be nil to ignore that protocol.
func NewPeer(cfg Config, localGUID GUID, keys *KeyStore, textDeliver TextDeliver, binaryDeliver Deliver) (*Peer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.BelowRecommendedRateLimit() {
		Logger.WithField("maxRequests", cfg.MaxRequests).Warn(
			"yx: configured maxRequests is below the normative floor of 10000; " +
				"this can silently rate-limit legitimate peers running the default")
	}

	transport, err := NewTransport(TransportOptions{
		ListenAddr: cfg.ListenAddr,
		ListenPort: cfg.ListenPort,
		Broadcast:  cfg.Broadcast,
		ReusePort:  cfg.ReusePort,
	})
	if err != nil {
		return nil, err
	}

	failure, err := newFailureLog(cfg.FailureLogPath)
	if err != nil {
		transport.Close()
		return nil, err
	}

	p := &Peer{
		transport:         transport,
		keys:              keys,
		replay:            NewReplayCache(cfg.ReplayMaxAge, cfg.ReplayCleanupInterval),
		limiter:           NewRateLimiter(cfg.MaxRequests, cfg.WindowSeconds),
		router:            NewRouter(),
		binary:            NewBinaryProtocol(cfg.ChunkSize, cfg.BufferTimeout, cfg.DedupWindow, binaryDeliver),
		text:              NewTextProtocol(textDeliver),
		failure:           failure,
		localGUID:         localGUID,
		processOwnPackets: cfg.ProcessOwnPackets,
	}

	p.router.Register(ProtoText, func(payload []byte, guid GUID, src Addr) {
		p.text.HandlePayload(payload, guid, src)
	})
	p.router.Register(ProtoBinary, func(payload []byte, guid GUID, src Addr) {
		p.binary.HandlePayload(payload, guid, src, p.keys.EncryptionKeyFor)
	})

	return p, nil
}

// TrustGUID bypasses rate limiting for guidHex (spec §4.5, §3 "Trusted
// GUID").
func (p *Peer) TrustGUID(guidHex string) { p.limiter.TrustGUID(guidHex) }

// Router exposes the dispatch table so callers can register handlers for
// the reserved extension protocol IDs 0x21-0x23 (spec §4.7) without
// reaching into Peer internals.
func (p *Peer) Router() *Router { return p.router }

// SendText builds and emits one protocol-0x00 datagram to dst.
func (p *Peer) SendText(message Value, dst Addr) error {
	payload, err := p.text.BuildPayload(message)
	if err != nil {
		return err
	}
	return p.sendPayload(payload, dst)
}

// SendBinary builds and emits the full chunk sequence for one
// protocol-0x01 message to dst over channelID.
func (p *Peer) SendBinary(data []byte, channelID uint16, opts ProtoOpts, dst Addr) error {
	var encKey []byte
	if opts&OptEncrypted != 0 {
		encKey = p.keys.EncryptionKeyFor(p.localGUID.Hex())
	}
	chunks, err := p.binary.BuildChunks(data, channelID, opts, encKey)
	if err != nil {
		return err
	}
	for _, chunk := range chunks {
		if err := p.sendPayload(chunk, dst); err != nil {
			return err
		}
	}
	return nil
}

func (p *Peer) sendPayload(payload []byte, dst Addr) error {
	key := p.keys.HMACKeyFor(p.localGUID.Hex())
	pkt, err := BuildPacket(p.localGUID[:], payload, key)
	if err != nil {
		return err
	}
	return p.transport.Send(pkt.Serialize(), dst)
}

// Run drives the receive pipeline until ctx is cancelled. Each iteration
// blocks for at most pollTimeout waiting for a datagram, so ctx
// cancellation is observed promptly without needing a separate goroutine
// per Peer.
func (p *Peer) Run(ctx context.Context, pollTimeout time.Duration) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		data, src, err := p.transport.Recv(pollTimeout)
		if err != nil {
			if isTimeout(err) {
				continue
			}
			return fmt.Errorf("yx: receive loop: %w", err)
		}

		p.handleDatagram(data, src)
	}
}

// handleDatagram runs one datagram through the full pipeline, catching any
// panic from a misbehaving application callback so it cannot take down the
// receive loop (spec §7 "the application callback's own exceptions ...
// catches them so one bad callback cannot poison the receive loop").
func (p *Peer) handleDatagram(data []byte, src Addr) (err error) {
	defer func() {
		if r := recover(); r != nil {
			Logger.WithField("panic", r).WithField("src", src.String()).Error("yx: recovered from panic in receive pipeline")
			err = fmt.Errorf("yx: recovered from panic in receive pipeline: %v", r)
		}
	}()

	pkt, err := ParsePacket(data)
	if err != nil {
		Logger.WithError(err).WithField("src", src.String()).Debug("yx: dropping undersized datagram")
		return err
	}

	hmacKey := p.keys.HMACKeyFor(pkt.GUID.Hex())
	expected, err := ComputeMAC(data[MACSize:], hmacKey)
	if err != nil {
		Logger.WithError(err).WithField("src", src.String()).Debug("yx: dropping datagram, bad key configuration")
		return err
	}
	ok, _ := VerifyMAC(data[MACSize:], pkt.MAC[:], hmacKey)
	if !ok {
		p.failure.record(src.String(), pkt.GUID, expected, pkt.MAC[:], data)
		Logger.WithField("src", src.String()).WithField("guid", pkt.GUID.Hex()).WithError(ErrAuthFailure).Warn("yx: mac verification failed, dropping")
		return ErrAuthFailure
	}

	if !p.replay.CheckAndRecord(pkt.MAC[:]) {
		Logger.WithField("src", src.String()).WithField("nonce", hex.EncodeToString(pkt.MAC[:])).WithError(ErrReplayDetected).Warn("yx: replayed packet dropped")
		return ErrReplayDetected
	}

	peerKey := pkt.GUID.Hex()
	if peerKey == (GUID{}).Hex() {
		peerKey = src.String()
	}
	if !p.limiter.Allow(peerKey) {
		Logger.WithField("peer", peerKey).WithError(ErrRateLimited).Warn("yx: rate limit exceeded, dropping")
		return ErrRateLimited
	}

	if !p.processOwnPackets && pkt.GUID == p.localGUID {
		return nil
	}

	return p.router.Route(pkt.Payload, pkt.GUID, src)
}

// Close releases the Peer's socket and failure log.
func (p *Peer) Close() error {
	err1 := p.transport.Close()
	err2 := p.failure.Close()
	if err1 != nil {
		return err1
	}
	return err2
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}
