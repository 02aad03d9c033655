package controller

import (
	"strconv"

	"github.com/brightwell-systems/lumen-gateway/internal/schema"
)

// scheduleLedRecompute coalesces bursts of output-level and assignment
// changes into one LED recomputation pass, LedRecomputeDebounce after the
// first change in a burst (§4.4.1).
func (c *Controller) scheduleLedRecompute() {
	if c.ledTimer != nil {
		return
	}
	c.ledTimer = c.r.AddTimeout(LedRecomputeDebounce, func() {
		c.ledTimer = nil
		c.recomputeLEDs()
	})
}

// recomputeLEDs walks every component with LED logic and derives its LED
// state from the live levels of its assignments:
//
//   - LedMonitor: on iff any assigned output's level is > 0.
//   - LedScene:   on iff every assigned output's level exactly equals its
//     assigned level.
//   - an empty assignment set is always off, for both logics.
//
// Emission is idempotent: a component whose LED state didn't change does
// not produce a gateway command or a UI delta.
func (c *Controller) recomputeLEDs() {
	for devID, dev := range c.store.Devices {
		changed := false
		for cid, comp := range dev.Components {
			if comp.LedLogic != schema.LedMonitor && comp.LedLogic != schema.LedScene {
				continue
			}
			on := c.ledShouldBeOn(comp)
			if on == comp.LedState && !comp.Uncertain {
				continue
			}
			comp.LedState = on
			comp.Uncertain = false
			dev.Components[cid] = comp
			changed = true

			c.sendLedState(devID, comp.LED, on)
			if dev.Kind.IsSeeTouchFamily() {
				c.queueSnapshotDelta(LevelDelta{KeypadID: devID, LedID: comp.LED, On: on})
			}
		}
		if changed {
			c.store.SetDevice(dev)
		}
	}
}

func (c *Controller) ledShouldBeOn(comp schema.Component) bool {
	if len(comp.Assignments) == 0 {
		return false
	}
	switch comp.LedLogic {
	case schema.LedMonitor:
		for _, a := range comp.Assignments {
			if c.currentLevel(a.OutputID) > 0 {
				return true
			}
		}
		return false
	case schema.LedScene:
		for _, a := range comp.Assignments {
			if int(c.currentLevel(a.OutputID)) != a.Level {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (c *Controller) sendLedState(devID, ledID int, on bool) {
	if ledID < 0 {
		return
	}
	val := "0"
	if on {
		val = "1"
	}
	cmd := formatDeviceCommand(devID, ledID, val)
	c.link.Command(cmd, nil, nil)
}

func formatDeviceCommand(devID, comp int, val string) string {
	return "#DEVICE," + strconv.Itoa(devID) + "," + strconv.Itoa(comp) + ",9," + val
}
