// Package gatewaylink implements the protocol client for the gateway's
// telnet-style integration port: a stateful, prompt-driven half-duplex
// dialogue with credential exchange, at-most-one-command-in-flight
// pipelining, unsolicited event demultiplexing, keep-alive, and automatic
// reconnect with backoff (§4.2).
package gatewaylink

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/brightwell-systems/lumen-gateway/internal/reactor"
)

// Phase is a state in the per-connection state machine of §4.2.
type Phase int

const (
	PhaseDisconnected Phase = iota
	PhaseConnecting
	PhaseAuthenticating
	PhaseInitializing
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseDisconnected:
		return "disconnected"
	case PhaseConnecting:
		return "connecting"
	case PhaseAuthenticating:
		return "authenticating"
	case PhaseInitializing:
		return "initializing"
	case PhaseReady:
		return "ready"
	default:
		return "unknown"
	}
}

const (
	promptLogin    = "login: "
	promptPassword = "password: "
	promptCommand  = "GNET> "
)

// OnInitFunc runs once the gateway has accepted credentials, inside the
// init-phase callback window where reentrant Command calls are permitted
// and routed to the init queue. It must call done when initialization
// work is complete, transitioning the Link to PhaseReady.
type OnInitFunc func(l *Link, done func())

// Logger is the narrow logging interface the Link needs; satisfied by
// *logging.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// pendingCmd is one queued or in-flight command.
type pendingCmd struct {
	raw     string
	isQuery bool
	head    string // expected "~<head>" prefix for query replies

	onResult func(string)
	onError  func(error)

	errored bool
	errLine string
}

// Link maintains at most one live authenticated session with the gateway.
// All of its methods, and every callback it invokes, run on the reactor
// goroutine supplied to New; Link itself does backgrounded blocking I/O
// (DNS, dial) on helper goroutines and hands results back via
// reactor.Reactor.Post so the core stays single-goroutine (§5).
type Link struct {
	r   *reactor.Reactor
	cfg Config
	log Logger

	onInput  func(line string)
	onInit   OnInitFunc
	onClosed func()

	phase Phase

	conn          net.Conn
	connFile      *os.File
	pollHandle    *reactor.PollHandle
	connectedAddr string
	readBuf       []byte

	addrs   []string
	addrIdx int

	inCallback  bool
	active      *pendingCmd
	initDelayed []*pendingCmd
	userDelayed []*pendingCmd

	commandDeadline *reactor.TimeoutHandle
	promptDeadline  *reactor.TimeoutHandle
	idleTimer       *reactor.TimeoutHandle
	graceTimer      *reactor.TimeoutHandle
	reconnectTimer  *reactor.TimeoutHandle

	reconnectDelay time.Duration
	closed         bool
}

// New returns a Link bound to the given reactor. onInput is called for
// every received line (prompts excluded); onInit runs once per
// connection during the init window; onClosed is called whenever the
// session tears down for any reason.
func New(r *reactor.Reactor, cfg Config, onInput func(string), onInit OnInitFunc, onClosed func()) *Link {
	return &Link{
		r:              r,
		cfg:            cfg,
		log:            noopLogger{},
		onInput:        onInput,
		onInit:         onInit,
		onClosed:       onClosed,
		phase:          PhaseDisconnected,
		reconnectDelay: ShortReopenTmo,
	}
}

// SetLogger installs a logger; nil restores the no-op logger.
func (l *Link) SetLogger(log Logger) {
	if log == nil {
		log = noopLogger{}
	}
	l.log = log
}

// IsConnected reports whether the link has a live, authenticated session.
func (l *Link) IsConnected() bool { return l.phase == PhaseReady || l.phase == PhaseInitializing }

// CommandPending reports whether a command is currently in flight.
func (l *Link) CommandPending() bool { return l.active != nil }

// GetConnectedAddr returns the address of the current session, or "" if
// not connected.
func (l *Link) GetConnectedAddr() string { return l.connectedAddr }

// InitStillWorking extends the overall command deadline while the on-init
// hook makes verifiable progress (used for the slow schema download).
func (l *Link) InitStillWorking() {
	l.armCommandDeadline()
}

// Ping is a thin shim over a time-of-day query, used by the health check.
func (l *Link) Ping(cb func(error)) {
	l.Command("?SYSTEM,1", func(string) {
		if cb != nil {
			cb(nil)
		}
	}, func(err error) {
		if cb != nil {
			cb(err)
		}
	})
}

// Command sends cmd+CRLF to the gateway, or queues it if another command
// is in flight or the session isn't ready yet. Queue selection depends on
// whether the caller is inside the on-init callback (§4.2 Reentrancy).
func (l *Link) Command(cmd string, onResult func(string), onError func(error)) {
	pc := &pendingCmd{
		raw:     cmd,
		isQuery: strings.HasPrefix(cmd, "?"),
		head:    queryHead(cmd),
		onResult: onResult,
		onError:  onError,
	}

	if l.closed {
		if onError != nil {
			l.r.RunLater(func() { onError(ErrNotConnected) })
		}
		return
	}

	canSendNow := l.active == nil && (l.phase == PhaseReady || (l.phase == PhaseInitializing && l.inCallback))
	if canSendNow {
		l.sendCommand(pc)
		return
	}

	if l.phase == PhaseDisconnected {
		// Not yet connected at all: queue on the user side so it survives
		// to the first successful connection.
		l.userDelayed = append(l.userDelayed, pc)
		return
	}

	if l.inCallback {
		l.initDelayed = append(l.initDelayed, pc)
	} else {
		l.userDelayed = append(l.userDelayed, pc)
	}
}

// queryHead derives the expected reply prefix for a query command, e.g.
// "?OUTPUT,5,1" -> "OUTPUT,5" (§4.2 "a result line starting with
// ~<rest-of-query-head>").
func queryHead(cmd string) string {
	body := strings.TrimPrefix(cmd, "?")
	idx := strings.LastIndex(body, ",")
	if idx < 0 {
		return body
	}
	return body[:idx]
}

// CloseSock tears down the connection and fails every pending command,
// including ones queued for the next connection. Use this for a
// permanent shutdown; a transient disconnect (health check, IO error)
// goes through disconnect() instead, which preserves the user queue.
func (l *Link) CloseSock() {
	l.closed = true
	l.disconnect(ErrLinkClosed, true)
}

func (l *Link) debugf(format string, args ...any) {
	l.log.Debug(fmt.Sprintf(format, args...))
}
