package gatewaylink

import "errors"

var (
	// ErrNotConnected is delivered to a command's error hook when Command
	// is called after CloseSock has closed the link for good.
	ErrNotConnected = errors.New("gatewaylink: not connected")

	// ErrLinkClosed is delivered to every queued command's error hook when
	// CloseSock tears down the session.
	ErrLinkClosed = errors.New("gatewaylink: connection closed")

	// ErrCommandTimeout is delivered to a command's error hook when its
	// overall deadline elapses without a terminating reply or prompt.
	ErrCommandTimeout = errors.New("gatewaylink: command timed out")

	// ErrProtocolError wraps a `~ERROR` or "is an unknown command" reply.
	ErrProtocolError = errors.New("gatewaylink: protocol error")

	// ErrAddressesExhausted is delivered when every resolved address failed
	// to connect or authenticate.
	ErrAddressesExhausted = errors.New("gatewaylink: all addresses exhausted")

	// ErrDiscoveryFailed is returned when multicast discovery produced no
	// usable repeater address within its deadline.
	ErrDiscoveryFailed = errors.New("gatewaylink: multicast discovery failed")
)
