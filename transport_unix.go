//go:build unix

package yx

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// reuseAddrPortControl returns a net.ListenConfig.Control callback that
// sets SO_REUSEADDR (and SO_REUSEPORT where the platform has it) before
// bind, so multiple cooperating receivers can share one port (spec §4.3,
// §6.2 reusePort). Grounded on the socket-option-via-Control idiom used
// across the pack's raw-socket code (WireGuard-wireguard-go's conn
// binding, runZeroInc-sockstats/conniver's golang.org/x/sys/unix usage for
// low-level socket introspection).
func reuseAddrPortControl(reuse bool) func(network, address string, c syscall.RawConn) error {
	if !reuse {
		return nil
	}
	return func(network, address string, c syscall.RawConn) error {
		var sockErr error
		err := c.Control(func(fd uintptr) {
			if e := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); e != nil {
				sockErr = e
				return
			}
			// SO_REUSEPORT is not defined on every unix the unix package
			// targets; ignore failures here, reuse-addr alone is enough
			// to bind on most platforms.
			_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEPORT, 1)
		})
		if err != nil {
			return err
		}
		return sockErr
	}
}
