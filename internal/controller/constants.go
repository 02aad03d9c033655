package controller

import "time"

// Tuning constants carried over from the gateway's own button/dimmer
// behavior (§4.4).
const (
	// DimLevels is the number of discrete snap buckets a raise/lower press
	// steps through.
	DimLevels = 15
	// DimRatePerSecond is the raise/lower ramp rate, in percent per second.
	DimRatePerSecond = 25

	// DimTick is the raise/lower smoothing tick interval.
	DimTick = 50 * time.Millisecond

	// DoubleTap is the window within which a second press on the same
	// keypad/button counts as a double-tap.
	DoubleTap = 900 * time.Millisecond
	// LongDoubleTap is the decision-timer ceiling for SeeTouch-family
	// devices and for press-only (no release event) double-tap detection.
	LongDoubleTap = 2500 * time.Millisecond
	// LongPico is the decision-timer ceiling for Pico remotes, which never
	// report release events.
	LongPico = 900 * time.Millisecond

	// LedRecomputeDebounce coalesces bursts of state changes into one LED
	// recomputation pass.
	LedRecomputeDebounce = 200 * time.Millisecond

	// ReleaseWindow is how long a dummy-fixture's daemon-driven level is
	// defended against a mismatching gateway-pushed report after a
	// raise/lower release.
	ReleaseWindow = 200 * time.Millisecond

	// SnapshotDebounce coalesces level/LED deltas into one UI broadcast line.
	SnapshotDebounce = 100 * time.Millisecond

	UncertainRecheckInterval = 15 * time.Minute
	ClockDriftThreshold      = 3 * time.Second

	// AliveInterval is the liveness-probe cadence once the link is ready.
	AliveInterval = 60 * time.Second
	// AliveCmdTimeout bounds how long a liveness probe may go unanswered
	// before the link is force-closed.
	AliveCmdTimeout = 5 * time.Second
)
