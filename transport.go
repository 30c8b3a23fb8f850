package yx

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/net/ipv4"
)

// Addr is the transport-agnostic source/destination address for a
// datagram. It wraps net.UDPAddr so callers outside this package never
// need to import net directly just to pass an address around.
type Addr struct {
	IP   net.IP
	Port int
}

func (a Addr) String() string {
	return (&net.UDPAddr{IP: a.IP, Port: a.Port}).String()
}

func udpAddr(a Addr) *net.UDPAddr {
	return &net.UDPAddr{IP: a.IP, Port: a.Port}
}

func fromUDPAddr(a *net.UDPAddr) Addr {
	if a == nil {
		return Addr{}
	}
	return Addr{IP: a.IP, Port: a.Port}
}

// Transport is the UDP socket abstraction spec §4.3 describes: bind with
// address/port reuse, send, and a timeout-bounded receive. It does not set
// SO_BROADCAST on the socket; TransportOptions.Broadcast only enables the
// ipv4 destination control-message flag. Recv returns every datagram,
// including self-originated ones (see Recv).
//
// Grounded on other_examples/manifests/R2Northstar-Atlas's
// pkg/nspkt.Listener (a connectionless-packet UDP listener built directly
// on *net.UDPConn with ReadFromUDPAddrPort, no higher framework) and
// WireGuard-wireguard-go's conn binding discipline (golang.org/x/net/ipv4
// for the packet-conn broadcast/control-message layer, golang.org/x/sys
// for reuse-port at the socket-option level via a net.ListenConfig
// Control callback).
type Transport struct {
	conn  *net.UDPConn
	pconn *ipv4.PacketConn
}

// TransportOptions configures socket construction (spec §4.3, §6.2).
type TransportOptions struct {
	ListenAddr string
	ListenPort int
	Broadcast  bool
	ReusePort  bool
}

// NewTransport binds a UDP socket per opts.
func NewTransport(opts TransportOptions) (*Transport, error) {
	lc := net.ListenConfig{Control: reuseAddrPortControl(opts.ReusePort)}
	pc, err := lc.ListenPacket(context.Background(), "udp", fmt.Sprintf("%s:%d", opts.ListenAddr, opts.ListenPort))
	if err != nil {
		return nil, fmt.Errorf("yx: bind udp socket: %w", err)
	}
	conn := pc.(*net.UDPConn)

	pconn := ipv4.NewPacketConn(conn)
	if opts.Broadcast {
		if err := pconn.SetControlMessage(ipv4.FlagDst, true); err != nil {
			// Not every platform/kernel combination supports every control
			// flag; sends do not depend on it, so this is advisory only.
			Logger.WithError(err).Debug("yx: failed to enable ipv4 control message flags")
		}
	}

	return &Transport{
		conn:  conn,
		pconn: pconn,
	}, nil
}

// Send emits a single raw datagram to host:port. It is a single sendto
// call; no fragmentation or retry is performed (spec §4.3).
func (t *Transport) Send(data []byte, addr Addr) error {
	_, err := t.conn.WriteToUDP(data, udpAddr(addr))
	if err != nil {
		return fmt.Errorf("yx: udp send: %w", err)
	}
	return nil
}

// Broadcast emits data to the broadcast address on port.
func (t *Transport) Broadcast(data []byte, port int) error {
	return t.Send(data, Addr{IP: net.IPv4bcast, Port: port})
}

// Recv blocks until a datagram arrives or timeout elapses, returning its
// raw bytes and source address (spec §4.3). The self-GUID loop-suppression
// filter is deliberately NOT applied here: spec §4.11 places that check
// after rate limiting in the receive pipeline ("self-filter comes after
// rate-limit so a broken sender cannot self-DoS"), so it lives in the
// pipeline orchestration (pipeline.go), not at the socket layer.
func (t *Transport) Recv(timeout time.Duration) ([]byte, Addr, error) {
	if err := t.conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
		return nil, Addr{}, fmt.Errorf("yx: set read deadline: %w", err)
	}

	buf := make([]byte, 65535)
	n, src, err := t.conn.ReadFromUDP(buf)
	if err != nil {
		return nil, Addr{}, err
	}
	data := make([]byte, n)
	copy(data, buf[:n])
	return data, fromUDPAddr(src), nil
}

// LocalAddr returns the address the socket is bound to.
func (t *Transport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// Close releases the socket.
func (t *Transport) Close() error {
	return t.conn.Close()
}
