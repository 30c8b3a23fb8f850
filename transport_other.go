//go:build !unix

package yx

import "syscall"

// reuseAddrPortControl is a no-op on non-unix platforms; the OS-specific
// socket options spec §6.2's reusePort describes don't apply there.
func reuseAddrPortControl(reuse bool) func(network, address string, c syscall.RawConn) error {
	return nil
}
