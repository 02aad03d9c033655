package controller

import (
	"time"

	"github.com/brightwell-systems/lumen-gateway/internal/schema"
)

// handleButtonEvent is the ~DEVICE,<dev>,<comp>,3|4 dispatch point for
// press and release notifications: raise/lower buttons are routed to
// PressRaiseLower/ReleaseRaiseLower, every other kind to
// onButtonPress/onButtonRelease.
func (c *Controller) handleButtonEvent(deviceID, buttonID int, pressed bool) {
	dev, ok := c.store.Device(deviceID)
	if !ok {
		return
	}
	comp, ok := dev.Components[buttonID]
	if !ok {
		return
	}

	switch comp.ButtonKind {
	case schema.ButtonRaise, schema.ButtonLower:
		direction := 1
		if comp.ButtonKind == schema.ButtonLower {
			direction = -1
		}
		if pressed {
			c.PressRaiseLower(deviceID, buttonID, direction, time.Now())
		} else {
			c.ReleaseRaiseLower(deviceID, buttonID, time.Now())
		}
		return
	}

	if pressed {
		c.onButtonPress(dev, comp)
	} else {
		c.onButtonRelease(dev, comp)
	}
}

// supportsReleaseEvent reports whether this device kind ever reports a
// release (action 4): Pico remotes never do (§4.4.4).
func supportsReleaseEvent(k schema.DeviceKind) bool {
	return k != schema.DevicePicoKeypad
}

// onButtonPress applies the button's toggle/scene effect immediately —
// that part of §4.4.2 has no ambiguity to wait out — then starts the
// §4.4.4 decision timer that will classify the tap (single, double, or
// long) for AddButtonListener listeners once the dust settles. The timer
// runs LongPico for Pico remotes (no release event ever arrives, so the
// timer itself is the only settle point) or LongDoubleTap for everything
// else (the ceiling past which a still-held button counts as long).
func (c *Controller) onButtonPress(dev schema.Device, comp schema.Component) {
	t := time.Now()
	c.applyButtonTap(dev, comp, false)

	dev, ok := c.store.Device(dev.ID) // applyButtonTap may have persisted a mutated copy
	if !ok {
		return
	}
	d := dev.Dim()
	if d.LastButton != comp.ID || t.Sub(d.Released) >= DoubleTap {
		d.NumTaps = 0
		d.FirstTap = t
	}
	d.NumTaps++
	d.LastButton = comp.ID
	d.StartOfDim = t // doubles as "time of most recent press" for non-dimmer buttons
	d.LongFired = false
	c.store.SetDevice(dev)

	released := supportsReleaseEvent(dev.Kind)
	delay := LongPico
	if released {
		delay = LongDoubleTap
	}
	wantTaps, wantFirstTap, wantPress := d.NumTaps, d.FirstTap, t

	c.r.AddTimeout(delay, func() {
		cur, ok := c.store.Device(dev.ID)
		if !ok {
			return
		}
		cd := cur.Dim()
		if cd.NumTaps != wantTaps || !cd.FirstTap.Equal(wantFirstTap) || !cd.StartOfDim.Equal(wantPress) {
			return // superseded by a later press
		}
		isLong := released && cd.Released.Before(wantPress)
		if isLong {
			cd.LongFired = true
			c.store.SetDevice(cur)
		}
		c.emitTap(cur, comp, isLong, wantTaps)
	})
}

// onButtonRelease records the release and, unless a long-press
// classification already fired while the button was held, starts the
// DoubleTap settle window: if no further press on the same button lands
// before it expires, the tap is classified short/single or short/double.
func (c *Controller) onButtonRelease(dev schema.Device, comp schema.Component) {
	d := dev.Dim()
	d.Released = time.Now()
	longAlready := d.LongFired
	wantTaps, wantFirstTap := d.NumTaps, d.FirstTap
	c.store.SetDevice(dev)

	if longAlready {
		return
	}

	c.r.AddTimeout(DoubleTap, func() {
		cur, ok := c.store.Device(dev.ID)
		if !ok {
			return
		}
		cd := cur.Dim()
		if cd.NumTaps != wantTaps || !cd.FirstTap.Equal(wantFirstTap) || cd.LongFired {
			return
		}
		c.emitTap(cur, comp, false, wantTaps)
	})
}

// emitTap notifies every ButtonListener registered on comp (via
// AddButtonListener, §4.4.5) with the current LED state, long-press flag,
// and accumulated tap count.
func (c *Controller) emitTap(dev schema.Device, comp schema.Component, isLong bool, numTaps int) {
	live, ok := dev.Components[comp.ID]
	if !ok {
		return
	}
	for _, fn := range live.Listeners {
		fn(dev.ID, comp.ID, live.LedState, isLong, numTaps)
	}
}

// applyButtonTap applies §4.4.2's toggle/scene semantics: TOGGLE and
// ADVANCED_TOGGLE invert based on whether any assigned output is
// currently on, driving every virtual/dummy assignment to either its
// configured level or off; SINGLE_ACTION drives every assignment straight
// to its configured level. Native (gateway-owned) assignments are left
// for the gateway's own scene/toggle logic to apply; only the
// daemon-dimmed ones are touched here.
func (c *Controller) applyButtonTap(dev schema.Device, comp schema.Component, isLong bool) {
	switch comp.ButtonKind {
	case schema.ButtonToggle, schema.ButtonAdvancedToggle:
		on := false
		for _, a := range comp.Assignments {
			if c.currentLevel(a.OutputID) > 0 {
				on = true
				break
			}
		}
		newOn := !on
		for _, a := range comp.Assignments {
			if !c.isDaemonDimmed(a.OutputID) {
				continue
			}
			if a.IsRelay() {
				c.pulseRelay(a.OutputID)
				continue
			}
			level := schema.Level(0)
			if newOn {
				level = schema.Level(a.Level)
			}
			c.pushDaemonLevel(a.OutputID, level, false)
			c.sendGatewaySet(a.OutputID, level)
		}
		if c2, ok := dev.Components[comp.ID]; ok {
			c2.LedState = newOn
			dev.Components[comp.ID] = c2
		}
		c.store.SetDevice(dev)
		c.scheduleLedRecompute()

	case schema.ButtonSingleAction:
		for _, a := range comp.Assignments {
			if !c.isDaemonDimmed(a.OutputID) {
				continue
			}
			if a.IsRelay() {
				c.pulseRelay(a.OutputID)
				continue
			}
			level := schema.Level(a.Level)
			c.pushDaemonLevel(a.OutputID, level, false)
			c.sendGatewaySet(a.OutputID, level)
		}
		c.scheduleLedRecompute()
	}
}

// pulseRelay drives a non-dimmable daemon actuator directly: its sink is
// called once at full level and no level is latched in the Store (a relay
// sink produces its own on/off pulse) — the gateway-side LED logic, not a
// latched output level, carries the "is this scene active" state for
// relay-backed assignments.
func (c *Controller) pulseRelay(outputID int) {
	if outputID < 0 {
		if no, ok := c.store.NamedOutput(outputID); ok && no.Sink != nil {
			no.Sink(10000, false)
		}
		return
	}
	if sink, ok := c.dummyOutputs[outputID]; ok {
		sink(10000, false)
	}
}
