package gatewaylink

// armCommandDeadline (re)starts the 10 s overall command deadline,
// extended by InitStillWorking while the on-init hook makes progress.
func (l *Link) armCommandDeadline() {
	l.cancelCommandDeadline()
	l.commandDeadline = l.r.AddTimeout(CommandTimeout, l.onCommandTimeout)
}

func (l *Link) cancelCommandDeadline() {
	if l.commandDeadline != nil {
		l.r.RemoveTimeout(l.commandDeadline)
		l.commandDeadline = nil
	}
}

func (l *Link) onCommandTimeout() {
	l.commandDeadline = nil
	if l.active != nil {
		l.completeActive("", ErrCommandTimeout)
		return
	}
	// No command in flight: the timeout covers connect/login/init setup.
	l.disconnect(ErrCommandTimeout, false)
}

// armPromptDeadline starts the 5 s sub-deadline for the next expected
// prompt, used only during credential exchange.
func (l *Link) armPromptDeadline() {
	l.cancelPromptDeadline()
	l.promptDeadline = l.r.AddTimeout(PromptTimeout, func() {
		l.promptDeadline = nil
		l.disconnect(ErrCommandTimeout, false)
	})
}

func (l *Link) cancelPromptDeadline() {
	if l.promptDeadline != nil {
		l.r.RemoveTimeout(l.promptDeadline)
		l.promptDeadline = nil
	}
}

// noteActivity resets the keep-alive idle timer on any inbound or
// outbound traffic.
func (l *Link) noteActivity() {
	l.cancelGraceTimer()
	l.resetIdleTimer()
}

func (l *Link) resetIdleTimer() {
	l.cancelIdleTimer()
	if l.phase != PhaseReady {
		return
	}
	l.idleTimer = l.r.AddTimeout(KeepAliveIdle, l.onIdle)
}

func (l *Link) cancelIdleTimer() {
	if l.idleTimer != nil {
		l.r.RemoveTimeout(l.idleTimer)
		l.idleTimer = nil
	}
}

func (l *Link) onIdle() {
	l.idleTimer = nil
	l.rawWrite("")
	l.graceTimer = l.r.AddTimeout(KeepAliveGrace, l.onGraceExpired)
}

func (l *Link) cancelGraceTimer() {
	if l.graceTimer != nil {
		l.r.RemoveTimeout(l.graceTimer)
		l.graceTimer = nil
	}
}

func (l *Link) onGraceExpired() {
	l.graceTimer = nil
	l.disconnect(ErrCommandTimeout, false)
}

// scheduleReconnect arms exponential backoff between ShortReopenTmo and
// LongReopenTmo (§4.4.6).
func (l *Link) scheduleReconnect() {
	if l.closed || l.reconnectTimer != nil {
		return
	}
	delay := l.reconnectDelay
	l.reconnectTimer = l.r.AddTimeout(delay, func() {
		l.reconnectTimer = nil
		l.reconnectDelay *= 2
		if l.reconnectDelay > LongReopenTmo {
			l.reconnectDelay = LongReopenTmo
		}
		l.Connect()
	})
}
