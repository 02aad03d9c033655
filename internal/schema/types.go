// Package schema holds the diffable representation of the gateway's
// keypad/button/LED/output configuration: Device, Component, Assignment,
// Output, and the daemon-local NamedOutput table. A Store owns exactly one
// generation of this schema at a time; a new generation replaces the old
// one atomically (see Store.Replace).
package schema

import "time"

// Level is a fixed-point percentage in the range [0,10000], i.e. 0.00% to
// 100.00% in hundredths of a percent.
type Level int

// ClampLevel clamps an arbitrary integer into the valid Level range.
func ClampLevel(v int) Level {
	switch {
	case v < 0:
		return 0
	case v > 10000:
		return 10000
	default:
		return Level(v)
	}
}

// DeviceKind identifies the kind of addressable device on the gateway.
type DeviceKind int

const (
	DeviceUnknown DeviceKind = iota
	DevicePicoKeypad
	DeviceSeeTouchKeypad
	DeviceHybridSeeTouchKeypad
	DeviceMotionSensor
	DeviceMainRepeater
)

// String renders the DeviceKind using the gateway's own vocabulary, for
// logging and for the site-description adapter.
func (k DeviceKind) String() string {
	switch k {
	case DevicePicoKeypad:
		return "PICO_KEYPAD"
	case DeviceSeeTouchKeypad:
		return "SEETOUCH_KEYPAD"
	case DeviceHybridSeeTouchKeypad:
		return "HYBRID_SEETOUCH_KEYPAD"
	case DeviceMotionSensor:
		return "MOTION_SENSOR"
	case DeviceMainRepeater:
		return "MAIN_REPEATER"
	default:
		return "UNKNOWN"
	}
}

// IsSeeTouchFamily reports whether LED state changes on this device should
// be pushed to the UI (see Controller's LED recompute pass, §4.4.1).
func (k DeviceKind) IsSeeTouchFamily() bool {
	return k == DeviceSeeTouchKeypad || k == DeviceHybridSeeTouchKeypad
}

// LedLogic controls how a component's LED state is derived from the
// levels of its assignments during LED recomputation.
type LedLogic int

const (
	LedUnknown LedLogic = 0
	// LedMonitor: on iff any assigned output has level > 0.
	LedMonitor LedLogic = 1
	// LedScene: on iff every assigned output is exactly at its assigned level.
	LedScene LedLogic = 2
	// LedRaiseLower does not drive LED state; raise/lower buttons have no LED logic.
	LedRaiseLower LedLogic = 4
	LedShadeToggle LedLogic = 11
)

// ButtonKind identifies the tactile semantics of a Component.
type ButtonKind int

const (
	ButtonUnknown ButtonKind = iota
	ButtonToggle
	ButtonAdvancedToggle
	ButtonSingleAction
	ButtonLower
	ButtonRaise
)

// The gateway's wire protocol overloads numeric action codes by context:
// ActionLightLevel and ActionStartRaiseLower both carry the value 14 in the
// upstream protocol documentation. Kept as distinct named constants, per
// design decision, rather than collapsed into one — callers must not rely
// on Go's usual assumption that enumerators are pairwise distinct here.
const (
	ActionPress    = 3
	ActionRelease  = 4
	ActionLedState = 9

	ActionLightLevel      = 14
	ActionStartRaiseLower = 14
)

// Assignment attaches an output to a button with a level to apply when the
// button fires. OutputID > 0 names a gateway-native Output; OutputID < 0
// names a NamedOutput at index -OutputID-1. Level == -1 marks a
// non-dimmable actuator that is toggled rather than set.
type Assignment struct {
	OutputID int
	Level    int
}

// IsVirtual reports whether this assignment targets a daemon-local output.
func (a Assignment) IsVirtual() bool { return a.OutputID < 0 }

// IsRelay reports whether this assignment is a pulse-only (non-dimmable) actuator.
func (a Assignment) IsRelay() bool { return a.Level == -1 }

// NamedOutputIndex returns the index into Store.NamedOutputs for a virtual
// assignment. Only valid when IsVirtual() is true.
func (a Assignment) NamedOutputIndex() int { return -a.OutputID - 1 }

// Equal compares two assignments for the Schema equality predicate.
func (a Assignment) Equal(o Assignment) bool {
	return a.OutputID == o.OutputID && a.Level == o.Level
}

// ButtonListener receives tap classification events: keypad id, button id,
// the "on" state computed for the tap, whether it was a long press, and the
// tap count. See Controller §4.4.4.
type ButtonListener func(kp, bt int, on, isLong bool, numTaps int)

// Component is a button, optionally paired with an LED, belonging to a Device.
type Component struct {
	ID         int
	LED        int // -1 if this button has no LED
	Name       string
	LedLogic   LedLogic
	ButtonKind ButtonKind
	Assignments []Assignment

	LedState  bool
	Uncertain bool

	Listeners []ButtonListener
}

// nativeAssignments returns the assignments with OutputID >= 0, used by the
// Schema equality predicate (negative ids are daemon-injected and excluded).
func nativeAssignments(a []Assignment) []Assignment {
	out := make([]Assignment, 0, len(a))
	for _, x := range a {
		if x.OutputID >= 0 {
			out = append(out, x)
		}
	}
	return out
}

// Equal implements the Schema Store equality predicate for Components: it
// excludes negative-id (virtual) assignments from comparison, and treats a
// TOGGLE button with no native assignments as equivalent to any ButtonKind.
// This lets a freshly re-augmented schema compare equal to a previously
// augmented cached one.
func (c Component) Equal(o Component) bool {
	if c.ID != o.ID || c.LED != o.LED || c.LedLogic != o.LedLogic || c.Name != o.Name {
		return false
	}
	a := nativeAssignments(c.Assignments)
	b := nativeAssignments(o.Assignments)
	kindsMatch := c.ButtonKind == o.ButtonKind ||
		(len(a) == 0 && c.ButtonKind == ButtonToggle) ||
		(len(b) == 0 && o.ButtonKind == ButtonToggle)
	if !kindsMatch || len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// dimEmulation holds ephemeral raise/lower and tap-classification state for
// a Device. None of this participates in Schema equality.
type dimEmulation struct {
	LastButton    int
	DimDirection  int // -1, 0, +1
	StartOfDim    time.Time
	FirstTap      time.Time
	NumTaps       int
	Released      time.Time // zero value means "no release yet"
	LongFired     bool      // a long-press classification already went out for this hold
	StartingLevels map[int]Level // output id -> level at press time
}

// Device is one addressable keypad, remote, or repeater.
type Device struct {
	ID         int
	Name       string
	Kind       DeviceKind
	Components map[int]Component

	dim dimEmulation
}

// Equal implements the Schema Store equality predicate for Devices.
func (d Device) Equal(o Device) bool {
	if d.ID != o.ID || d.Kind != o.Kind || d.Name != o.Name {
		return false
	}
	if len(d.Components) != len(o.Components) {
		return false
	}
	for id, c := range d.Components {
		oc, ok := o.Components[id]
		if !ok || !c.Equal(oc) {
			return false
		}
	}
	return true
}

// Output is a gateway-native fixture.
type Output struct {
	ID  int
	Name string
	Dim bool // dimmable, as opposed to switched only
	Level Level
}

// Equal implements the Schema Store equality predicate for Outputs.
func (out Output) Equal(o Output) bool {
	return out.ID == o.ID && out.Dim == o.Dim && out.Name == o.Name
}

// OutputSink receives level updates for a NamedOutput; fade indicates the
// update is part of a smooth raise/lower ramp rather than a discrete set.
type OutputSink func(level int, fade bool)

// NamedOutput is a daemon-local virtual output with a stable negative id
// for the process lifetime.
type NamedOutput struct {
	Name  string
	Level Level
	Sink  OutputSink
}
