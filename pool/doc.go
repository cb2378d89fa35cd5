// Package pool keeps a bounded set of keep-alive sockets to one destination.
//
// A Pool hands out Handles. Each Handle wraps one net.Conn and is leased to
// exactly one caller between Acquire and Release. The number of idle, leased
// and currently dialing sockets never exceeds the configured ceiling; callers
// that find the pool saturated wait until a socket is released or destroyed,
// or until their context ends.
//
// Released sockets go back to a LIFO idle set with an idle timer armed. A
// socket whose timer fired, whose keep-alive deadline passed, or whose peer
// closed it while idle is destroyed instead of being reused. Anything the
// caller marks as not reusable, including every socket that saw a timeout, is
// closed and its capacity freed for the next caller.
//
// Shutdown refuses new acquisitions, closes idle sockets at once, and lets
// leased sockets finish their current operation for a grace period before
// closing them by force.
package pool
