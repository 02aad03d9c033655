package gatewaylink

import (
	"bytes"
	"fmt"
	"strings"
)

var crlf = []byte("\r\n")

const (
	errUnknownCommand = "is an unknown command"
)

// onReadable is the poll callback for the session socket.
func (l *Link) onReadable(revents int16) bool {
	buf := make([]byte, 4096)
	n, err := l.connFile.Read(buf)
	if n > 0 {
		l.readBuf = append(l.readBuf, buf[:n]...)
		l.noteActivity()
		l.pump()
	}
	if err != nil {
		l.disconnect(fmt.Errorf("gatewaylink: read: %w", err), false)
		return false
	}
	return true
}

// pump extracts every complete CRLF-terminated line from readBuf, then
// checks whether the remainder is exactly one of the three known prompts.
func (l *Link) pump() {
	for {
		idx := bytes.Index(l.readBuf, crlf)
		if idx < 0 {
			break
		}
		line := string(l.readBuf[:idx])
		l.readBuf = l.readBuf[idx+len(crlf):]
		l.handleLine(line)
	}

	if p := matchPrompt(l.readBuf); p != "" {
		l.readBuf = nil
		l.handlePrompt(p)
	}
}

func matchPrompt(b []byte) string {
	s := string(b)
	switch s {
	case promptLogin, promptPassword, promptCommand:
		return s
	default:
		return ""
	}
}

// handleLine processes one complete received line. Every line reaches
// onInput; lines that resolve or fail the active command additionally
// drive the command-completion machinery.
func (l *Link) handleLine(line string) {
	if l.onInput != nil {
		l.onInput(line)
	}

	if line == errUnknownCommand || strings.HasPrefix(line, "~ERROR") {
		if l.active != nil {
			l.active.errored = true
			l.active.errLine = line
		}
		return
	}

	if !strings.HasPrefix(line, "~") {
		return
	}

	if l.active != nil && l.active.isQuery && strings.HasPrefix(line, "~"+l.active.head) {
		l.completeActive(line, nil)
	}
}

// handlePrompt advances the connection state machine or, in steady state,
// finalizes the active command.
func (l *Link) handlePrompt(p string) {
	l.cancelPromptDeadline()

	switch l.phase {
	case PhaseAuthenticating:
		switch p {
		case promptLogin:
			l.write(l.cfg.User)
			l.armPromptDeadline()
		case promptPassword:
			l.write(l.cfg.Password)
			l.armPromptDeadline()
		case promptCommand:
			l.phase = PhaseInitializing
			l.inCallback = true
			l.armCommandDeadline()
			if l.onInit != nil {
				l.onInit(l, l.finishInit)
			} else {
				l.finishInit()
			}
		}
	case PhaseInitializing, PhaseReady:
		if l.active != nil {
			l.completeActive("", nil)
		}
		l.dispatchNext()
	}
}

// finishInit transitions from the init window to steady state.
func (l *Link) finishInit() {
	l.inCallback = false
	l.phase = PhaseReady
	l.cancelCommandDeadline()
	l.resetIdleTimer()
	l.dispatchNext()
}

// completeActive finalizes the in-flight command with either its
// protocol-level error (if one arrived since it was sent) or the
// supplied result line, then advances the queue.
func (l *Link) completeActive(result string, forcedErr error) {
	cmd := l.active
	if cmd == nil {
		return
	}
	l.active = nil
	l.cancelCommandDeadline()

	var err error
	switch {
	case forcedErr != nil:
		err = forcedErr
	case cmd.errored:
		err = fmt.Errorf("%w: %s", ErrProtocolError, cmd.errLine)
	}

	if err != nil {
		if cmd.onError != nil {
			cmd.onError(err)
		}
	} else if cmd.onResult != nil {
		cmd.onResult(result)
	}

	l.dispatchNext()
}

// dispatchNext sends the next queued command, preferring the init queue
// (older, connection-scoped) over the user queue.
func (l *Link) dispatchNext() {
	if l.active != nil {
		return
	}
	if l.phase != PhaseReady && !(l.phase == PhaseInitializing && l.inCallback) {
		return
	}

	if len(l.initDelayed) > 0 {
		next := l.initDelayed[0]
		l.initDelayed = l.initDelayed[1:]
		l.sendCommand(next)
		return
	}
	if len(l.userDelayed) > 0 {
		next := l.userDelayed[0]
		l.userDelayed = l.userDelayed[1:]
		l.sendCommand(next)
	}
}

func (l *Link) sendCommand(cmd *pendingCmd) {
	l.active = cmd
	l.write(cmd.raw)
	l.armCommandDeadline()
}

func (l *Link) write(s string) {
	l.rawWrite(s)
	l.noteActivity()
}

// rawWrite sends s+CRLF without touching the keep-alive idle/grace
// timers, used by the keep-alive probe itself (which must not re-arm the
// idle timer it is in the process of replacing with the grace timer).
func (l *Link) rawWrite(s string) {
	if l.connFile == nil {
		return
	}
	_, _ = l.connFile.Write([]byte(s + "\r\n"))
}

// disconnect tears the session down. userInitiated distinguishes a
// permanent CloseSock from a transient failure: only a permanent close
// fails the user queue, since user-issued commands queued during a
// transient outage are expected to survive to the next connection
// (§4.2 Reentrancy and queueing).
func (l *Link) disconnect(err error, userInitiated bool) {
	if l.phase == PhaseDisconnected && l.conn == nil {
		return
	}

	if l.active != nil {
		l.completeActive("", err)
	}
	l.failQueue(&l.initDelayed, err)
	if userInitiated {
		l.failQueue(&l.userDelayed, err)
	}

	if l.pollHandle != nil {
		l.r.RemovePollFdHandle(l.pollHandle)
		l.pollHandle = nil
	}
	if l.connFile != nil {
		l.connFile.Close()
		l.connFile = nil
	}
	if l.conn != nil {
		l.conn.Close()
		l.conn = nil
	}
	l.readBuf = nil
	l.inCallback = false
	l.connectedAddr = ""
	l.cancelCommandDeadline()
	l.cancelPromptDeadline()
	l.cancelIdleTimer()
	l.cancelGraceTimer()

	wasConnected := l.phase != PhaseDisconnected
	l.phase = PhaseDisconnected

	if l.onClosed != nil && wasConnected {
		l.onClosed()
	}
	if !userInitiated && !l.closed {
		l.scheduleReconnect()
	}
}

func (l *Link) failQueue(q *[]*pendingCmd, err error) {
	pending := *q
	*q = nil
	for _, cmd := range pending {
		if cmd.onError != nil {
			cmd.onError(err)
		}
	}
}
