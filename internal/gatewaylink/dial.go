package gatewaylink

import (
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"
)

// Connect begins connection establishment: resolve (direct or multicast),
// then iterate resolved addresses asynchronously until one accepts a
// session or all are exhausted (§4.2 Connection establishment).
//
// Resolution and the TCP dial itself are genuinely blocking operations;
// they run on helper goroutines and their results are handed back to the
// reactor goroutine via Reactor.Post, keeping the core single-goroutine
// while still using ordinary Go concurrency for the parts of this job
// that are not steady-state I/O.
func (l *Link) Connect() {
	if l.phase != PhaseDisconnected || l.closed {
		return
	}
	l.phase = PhaseConnecting

	go func() {
		addrs, err := l.resolve()
		l.r.Post(func() {
			if l.closed {
				return
			}
			if err != nil {
				l.log.Warn("gatewaylink: resolve failed", "error", err)
				l.phase = PhaseDisconnected
				l.scheduleReconnect()
				return
			}
			l.addrs = addrs
			l.addrIdx = 0
			l.tryNextAddress()
		})
	}()
}

func (l *Link) resolve() ([]string, error) {
	switch l.cfg.Strategy {
	case StrategyMulticast:
		ip, err := discoverRepeater(l.cfg.discoveryTimeout())
		if err != nil {
			return nil, err
		}
		return []string{fmt.Sprintf("%s:%d", ip, l.cfg.port())}, nil
	default:
		if l.cfg.Host == "" {
			return nil, fmt.Errorf("gatewaylink: no host configured")
		}
		return []string{fmt.Sprintf("%s:%d", l.cfg.Host, l.cfg.port())}, nil
	}
}

func (l *Link) tryNextAddress() {
	if l.addrIdx >= len(l.addrs) {
		l.phase = PhaseDisconnected
		l.failQueue(&l.initDelayed, ErrAddressesExhausted)
		l.scheduleReconnect()
		return
	}
	addr := l.addrs[l.addrIdx]
	l.addrIdx++

	go func() {
		conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
		l.r.Post(func() {
			if l.closed {
				if conn != nil {
					conn.Close()
				}
				return
			}
			if err != nil {
				l.log.Debug("gatewaylink: dial failed", "addr", addr, "error", err)
				l.tryNextAddress()
				return
			}
			l.onConnected(conn, addr)
		})
	}()
}

func (l *Link) onConnected(conn net.Conn, addr string) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		conn.Close()
		l.tryNextAddress()
		return
	}
	file, err := tc.File()
	if err != nil {
		conn.Close()
		l.tryNextAddress()
		return
	}

	l.conn = conn
	l.connFile = file
	l.connectedAddr = addr
	l.phase = PhaseAuthenticating
	l.reconnectDelay = ShortReopenTmo

	l.pollHandle = l.r.AddPollFd(int(file.Fd()), unix.POLLIN, l.onReadable)
	l.armCommandDeadline()
	l.armPromptDeadline()
	l.noteActivity()
}
