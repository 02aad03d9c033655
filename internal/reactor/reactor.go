// Package reactor implements the single-threaded cooperative scheduler
// described in §4.1: a file-descriptor readiness primitive plus timeouts,
// one-shot "run later" deferrals, and per-iteration loop hooks. Everything
// in this package runs on whichever goroutine calls Loop; apart from
// Reactor.Post, none of its exported methods are safe for concurrent use
// from other goroutines.
package reactor

import (
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// PollCallback is invoked when a registered fd becomes ready. revents
// carries the poll(2) event bits that fired. Returning false requests
// auto-deregistration (§4.1 contract).
type PollCallback func(revents int16) (keepRegistered bool)

// TimeoutCallback is invoked once when a timer expires.
type TimeoutCallback func()

// LoopCallback is invoked once per iteration with the currently computed
// sleep duration; it may return a shorter duration to bound the poll wait.
type LoopCallback func(horizon time.Duration) time.Duration

// PollHandle identifies a registered fd interest for removal.
type PollHandle struct {
	entry *pollEntry
}

// TimeoutHandle identifies a registered timer for removal.
type TimeoutHandle struct {
	entry *timeoutEntry
}

// LoopHandle identifies a registered loop hook for removal.
type LoopHandle struct {
	entry *loopEntry
}

type pollEntry struct {
	fd       int
	events   int16
	cb       PollCallback
	removed  bool
	internal bool // excluded from the "anything registered" quiescence check
}

type timeoutEntry struct {
	deadline time.Time
	cb       TimeoutCallback
	removed  bool
}

type loopEntry struct {
	cb      LoopCallback
	removed bool
}

// Reactor is the Event Reactor of §4.1.
type Reactor struct {
	pollFds   []*pollEntry
	newFds    []*pollEntry
	timeouts  []*timeoutEntry
	newTimers []*timeoutEntry
	later     []func()
	loopHooks []*loopEntry
	done      bool

	postMu    sync.Mutex
	postQueue []func()
	wakeR     int
	wakeW     int
	wakeSetUp bool

	maxPollTimeout time.Duration
}

// New returns an empty Reactor, with its cross-goroutine wake pipe already
// registered so a concurrent Post never races the first blocking poll.
func New() *Reactor {
	r := &Reactor{maxPollTimeout: defaultMaxPollTimeout}
	r.ensureWake()
	return r
}

// SetMaxPollTimeout overrides the poll horizon cap used when no timer is
// due sooner (config's reactor.max_poll_millis). A non-positive value is
// ignored.
func (r *Reactor) SetMaxPollTimeout(d time.Duration) {
	if d > 0 {
		r.maxPollTimeout = d
	}
}

// AddPollFd registers interest in fd for the given poll(2) event mask
// (unix.POLLIN, unix.POLLOUT, ...). The returned handle may be used with
// RemovePollFd. Safe to call from inside a callback: the registration is
// deferred to the next safe point so the current dispatch pass over
// pollFds is never invalidated mid-iteration.
func (r *Reactor) AddPollFd(fd int, events int16, cb PollCallback) *PollHandle {
	e := &pollEntry{fd: fd, events: events, cb: cb}
	r.newFds = append(r.newFds, e)
	return &PollHandle{entry: e}
}

func (r *Reactor) addInternalPollFd(fd int, events int16, cb PollCallback) {
	e := &pollEntry{fd: fd, events: events, cb: cb, internal: true}
	r.newFds = append(r.newFds, e)
}

// RemovePollFdHandle idempotently deregisters a poll interest by handle.
func (r *Reactor) RemovePollFdHandle(h *PollHandle) {
	if h == nil || h.entry == nil {
		return
	}
	h.entry.removed = true
}

// RemovePollFd idempotently deregisters every interest registered for fd
// (optionally narrowed to a specific event mask).
func (r *Reactor) RemovePollFd(fd int, eventMask int16) {
	mark := func(list []*pollEntry) {
		for _, e := range list {
			if e.fd == fd && (eventMask == 0 || e.events&eventMask != 0) {
				e.removed = true
			}
		}
	}
	mark(r.pollFds)
	mark(r.newFds)
}

// AddTimeout schedules cb to run once, delay from now.
func (r *Reactor) AddTimeout(delay time.Duration, cb TimeoutCallback) *TimeoutHandle {
	e := &timeoutEntry{deadline: time.Now().Add(delay), cb: cb}
	r.newTimers = append(r.newTimers, e)
	return &TimeoutHandle{entry: e}
}

// RemoveTimeout idempotently cancels a scheduled timeout.
func (r *Reactor) RemoveTimeout(h *TimeoutHandle) {
	if h == nil || h.entry == nil {
		return
	}
	h.entry.removed = true
}

// RunLater enqueues cb to run after the current callback chain unwinds but
// before the reactor blocks again. Callbacks run in enqueue order (FIFO).
func (r *Reactor) RunLater(cb func()) {
	r.later = append(r.later, cb)
}

// AddLoop registers a per-iteration hook invoked with the currently
// computed sleep horizon; it may return a shorter horizon.
func (r *Reactor) AddLoop(cb LoopCallback) *LoopHandle {
	e := &loopEntry{cb: cb}
	r.loopHooks = append(r.loopHooks, e)
	return &LoopHandle{entry: e}
}

// RemoveLoop idempotently deregisters a loop hook.
func (r *Reactor) RemoveLoop(h *LoopHandle) {
	if h == nil || h.entry == nil {
		return
	}
	h.entry.removed = true
}

// ExitLoop stops the reactor on the next observable boundary.
func (r *Reactor) ExitLoop() {
	r.done = true
}

// Post schedules cb to run on the reactor goroutine, safely from any other
// goroutine. Used to hand results of backgrounded blocking work (DNS
// resolution, TCP connect) back into the single-goroutine core without
// that work itself running on the reactor goroutine.
func (r *Reactor) Post(cb func()) {
	r.postMu.Lock()
	r.postQueue = append(r.postQueue, cb)
	r.postMu.Unlock()
	r.ensureWake()
	r.wake()
}

func (r *Reactor) ensureWake() {
	if r.wakeSetUp {
		return
	}
	var fds [2]int
	if err := unix.Pipe2(fds[:], unix.O_NONBLOCK); err != nil {
		// Falling back to a busy-ish poll horizon if the pipe can't be
		// created; Post callbacks still drain, just with up to
		// maxPollTimeout latency via the compact/drain pass.
		return
	}
	r.wakeR, r.wakeW = fds[0], fds[1]
	r.wakeSetUp = true
	r.addInternalPollFd(r.wakeR, unix.POLLIN, func(revents int16) bool {
		buf := make([]byte, 64)
		for {
			n, err := unix.Read(r.wakeR, buf)
			if n <= 0 || err != nil {
				break
			}
		}
		r.drainPosted()
		return true
	})
}

func (r *Reactor) wake() {
	if !r.wakeSetUp {
		return
	}
	_, _ = unix.Write(r.wakeW, []byte{0})
}

func (r *Reactor) drainPosted() {
	r.postMu.Lock()
	queued := r.postQueue
	r.postQueue = nil
	r.postMu.Unlock()
	for _, cb := range queued {
		cb()
	}
}

const defaultMaxPollTimeout = 5 * time.Second

// Loop runs until there are no registered fds, timeouts, deferred
// callbacks, or loop hooks, or until ExitLoop is called. See §4.1 for the
// per-iteration policy this implements step by step.
func (r *Reactor) Loop() {
	r.done = false
	for !r.done {
		r.drainTimeoutsAndLater()
		r.compact()
		if r.done {
			return
		}
		if r.liveRegistrationCount() == 0 {
			return
		}

		horizon := r.nextHorizon()
		for _, h := range r.loopHooks {
			if h.removed {
				continue
			}
			horizon = h.cb(horizon)
		}

		r.poll(horizon)
		r.compact()
	}
}

// drainTimeoutsAndLater expires due timers and runs the runLater queue, in
// that order, matching step (1) of the per-iteration policy.
func (r *Reactor) drainTimeoutsAndLater() {
	now := time.Now()
	for {
		idx := -1
		for i, t := range r.timeouts {
			if t.removed {
				continue
			}
			if !now.Before(t.deadline) {
				idx = i
				break
			}
		}
		if idx < 0 {
			break
		}
		t := r.timeouts[idx]
		t.removed = true
		t.cb()
		now = time.Now()
	}

	for len(r.later) > 0 {
		cb := r.later[0]
		r.later = r.later[1:]
		cb()
	}

	if !r.wakeSetUp {
		r.drainPosted()
	}
}

// nextHorizon computes the sleep duration until the earliest live timeout,
// capped at r.maxPollTimeout so loop hooks still get a chance to run
// periodically even with no timers registered.
func (r *Reactor) nextHorizon() time.Duration {
	horizon := r.maxPollTimeout
	now := time.Now()
	for _, t := range r.timeouts {
		if t.removed {
			continue
		}
		if d := t.deadline.Sub(now); d < horizon {
			horizon = d
		}
	}
	if horizon < 0 {
		horizon = 0
	}
	return horizon
}

// poll blocks on fd readiness until horizon elapses, dispatching ready fds
// as they're found (steps 4-5).
func (r *Reactor) poll(horizon time.Duration) {
	live := r.livePollFds()
	if len(live) == 0 {
		if horizon > 0 {
			time.Sleep(horizon)
		}
		return
	}

	fds := make([]unix.PollFd, len(live))
	for i, e := range live {
		fds[i] = unix.PollFd{Fd: int32(e.fd), Events: e.events}
	}

	timeoutMs := int(horizon / time.Millisecond)
	if timeoutMs < 0 {
		timeoutMs = 0
	}

	n, err := unix.Poll(fds, timeoutMs)
	if err != nil || n <= 0 {
		return
	}

	for i, pfd := range fds {
		if pfd.Revents == 0 {
			continue
		}
		e := live[i]
		if e.removed {
			continue
		}
		if !e.cb(pfd.Revents) {
			e.removed = true
		}
	}
}

// liveRegistrationCount counts externally-registered interests only;
// internal bookkeeping fds (the cross-goroutine wake pipe) never by
// themselves keep Loop running, so quiescence is still observable to
// callers that never use Post.
func (r *Reactor) liveRegistrationCount() int {
	n := len(r.timeouts) + len(r.later) + len(r.loopHooks)
	for _, e := range r.pollFds {
		if !e.internal {
			n++
		}
	}
	return n
}

func (r *Reactor) livePollFds() []*pollEntry {
	live := make([]*pollEntry, 0, len(r.pollFds))
	for _, e := range r.pollFds {
		if !e.removed {
			live = append(live, e)
		}
	}
	return live
}

// compact merges pending additions into the live sets and physically drops
// entries marked removed, completing step (6) and the deferred-destruction
// policy from §5 (Cancellation).
func (r *Reactor) compact() {
	if len(r.newFds) > 0 {
		r.pollFds = append(r.pollFds, r.newFds...)
		r.newFds = nil
	}
	if len(r.newTimers) > 0 {
		r.timeouts = append(r.timeouts, r.newTimers...)
		r.newTimers = nil
	}

	r.pollFds = compactPoll(r.pollFds)
	r.timeouts = compactTimeouts(r.timeouts)
	r.loopHooks = compactLoop(r.loopHooks)
}

func compactPoll(in []*pollEntry) []*pollEntry {
	out := in[:0]
	for _, e := range in {
		if !e.removed {
			out = append(out, e)
		}
	}
	return out
}

func compactTimeouts(in []*timeoutEntry) []*timeoutEntry {
	out := in[:0]
	for _, e := range in {
		if !e.removed {
			out = append(out, e)
		}
	}
	return out
}

func compactLoop(in []*loopEntry) []*loopEntry {
	out := in[:0]
	for _, e := range in {
		if !e.removed {
			out = append(out, e)
		}
	}
	return out
}
