package controller

import (
	"strconv"
	"strings"

	"github.com/brightwell-systems/lumen-gateway/internal/schema"
)

// AddOutput registers a daemon-local virtual output backed by sink and
// returns its stable id, for use in AddToButton/MonitorOutput/
// ToggleOutput (§4.4.5).
func (c *Controller) AddOutput(name string, sink schema.OutputSink) int {
	return c.store.AddNamedOutput(name, sink)
}

// RegisterDummyOutput marks a gateway-native output id as daemon-driven:
// the gateway carries a nominal Output entry for it (so scenes and other
// keypads' assignments still reference it by id) but sink, not the
// gateway, performs the actual physical dimming. Raise/lower, toggle, and
// LED logic treat it identically to a virtual output.
func (c *Controller) RegisterDummyOutput(outputID int, sink schema.OutputSink) {
	c.dummyOutputs[outputID] = sink
}

// AddToButton attaches outputID to a keypad button with the given
// configured level. If makeToggle is set and the button's native kind
// isn't already some form of toggle, its kind is coerced to TOGGLE so the
// on/off inversion logic in applyButtonTap applies to it.
func (c *Controller) AddToButton(keypadID, buttonID, outputID, level int, makeToggle bool) {
	dev, ok := c.store.Device(keypadID)
	if !ok {
		return
	}
	comp, ok := dev.Components[buttonID]
	if !ok {
		return
	}
	comp.Assignments = append(comp.Assignments, schema.Assignment{OutputID: outputID, Level: level})
	if makeToggle && comp.ButtonKind != schema.ButtonToggle && comp.ButtonKind != schema.ButtonAdvancedToggle {
		comp.ButtonKind = schema.ButtonToggle
		comp.LedLogic = schema.LedMonitor
	}
	dev.Components[buttonID] = comp
	c.store.SetDevice(dev)
}

// MonitorOutput registers sink to be called with the live level of a
// native output id every time a ~OUTPUT report for it arrives.
func (c *Controller) MonitorOutput(outputID int, sink func(level int)) {
	c.monitors[outputID] = append(c.monitors[outputID], sink)
}

// AddButtonListener registers listener to receive tap classification
// events for a keypad button (§4.4.4, §4.4.5).
func (c *Controller) AddButtonListener(keypadID, buttonID int, listener schema.ButtonListener) {
	dev, ok := c.store.Device(keypadID)
	if !ok {
		return
	}
	comp, ok := dev.Components[buttonID]
	if !ok {
		return
	}
	comp.Listeners = append(comp.Listeners, listener)
	dev.Components[buttonID] = comp
	c.store.SetDevice(dev)
}

// ToggleOutput flips an output between off (0) and full on (10000): any
// nonzero current level turns it off, a zero level turns it fully on.
func (c *Controller) ToggleOutput(outputID int) {
	cur := c.currentLevel(outputID)
	if cur > 0 {
		c.pushDaemonLevel(outputID, 0, false)
		c.sendGatewaySet(outputID, 0)
		return
	}
	c.pushDaemonLevel(outputID, schema.Level(10000), false)
	c.sendGatewaySet(outputID, schema.Level(10000))
}

// Command is a pass-through to the Gateway Link, with one rewrite: a
// synthetic "#DEVICE,<kp>,<bt>,4" (release) sent to a keypad whose device
// kind never reports release events and whose button isn't a raise/lower
// dimmer is dropped, since the gateway would reject it as a command that
// can never legitimately originate from that keypad (§4.4.5).
func (c *Controller) Command(cmd string, onResult func(string), onError func(error)) {
	if devID, btnID, ok := parseSyntheticRelease(cmd); ok {
		dev, ok := c.store.Device(devID)
		if ok && !supportsReleaseEvent(dev.Kind) {
			if comp, ok := dev.Components[btnID]; ok && comp.ButtonKind != schema.ButtonRaise && comp.ButtonKind != schema.ButtonLower {
				if onResult != nil {
					onResult("")
				}
				return
			}
		}
	}
	c.link.Command(cmd, onResult, onError)
}

func parseSyntheticRelease(cmd string) (devID, btnID int, ok bool) {
	rest, found := strings.CutPrefix(cmd, "#DEVICE,")
	if !found {
		return 0, 0, false
	}
	fields := strings.Split(rest, ",")
	if len(fields) != 3 || fields[2] != "4" {
		return 0, 0, false
	}
	devID, err1 := strconv.Atoi(fields[0])
	btnID, err2 := strconv.Atoi(fields[1])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return devID, btnID, true
}
