//go:build !(linux || darwin || dragonfly || freebsd || netbsd || openbsd || solaris || illumos)

package pool

import "net"

// connCheck is a no-op where a non-blocking peek is unavailable; stale
// sockets are then caught by the idle timer or the first failed read.
func connCheck(net.Conn) error { return nil }
