package controller

import (
	"time"

	"github.com/brightwell-systems/lumen-gateway/internal/schema"
)

// PressRaiseLower starts or continues a raise/lower ramp for the given
// button (§4.4.3). A direction change resets the tap-counting state; a
// same-direction press within DoubleTap of the previous release counts as
// a second tap.
func (c *Controller) PressRaiseLower(deviceID, buttonID int, direction int, now time.Time) {
	dev, ok := c.store.Device(deviceID)
	if !ok {
		return
	}
	comp, ok := dev.Components[buttonID]
	if !ok {
		return
	}
	d := dev.Dim()

	if direction != d.DimDirection || d.Released.IsZero() || now.Sub(d.Released) >= DoubleTap {
		d.NumTaps = 0
		d.FirstTap = now
	}
	d.NumTaps++
	d.DimDirection = direction
	d.LastButton = buttonID
	d.StartOfDim = now
	d.StartingLevels = map[int]schema.Level{}

	for _, a := range comp.Assignments {
		if a.Level == 0 || !c.isDaemonDimmed(a.OutputID) {
			continue
		}
		d.StartingLevels[a.OutputID] = c.currentLevel(a.OutputID)
		if a.OutputID > 0 {
			c.suppressed[a.OutputID] = true
			delete(c.releaseWindows, a.OutputID)
		}
	}

	c.store.SetDevice(dev)
	c.startDimTicker(deviceID)
}

// startDimTicker drives the DimTick smoothing loop described in §4.4.3:
// every tick, every still-ramping output's level is recomputed from
// elapsed time and direction, pushed to its actuator without telling the
// gateway, and dropped out of the ramp once it saturates at 0 or 10000.
func (c *Controller) startDimTicker(deviceID int) {
	var tick func()
	tick = func() {
		dev, ok := c.store.Device(deviceID)
		if !ok {
			return
		}
		d := dev.Dim()
		if len(d.StartingLevels) == 0 {
			return
		}

		elapsedMs := time.Since(d.StartOfDim).Milliseconds()
		delta := elapsedMs * DimRatePerSecond / 10 * int64(d.DimDirection)

		for id, start := range d.StartingLevels {
			level := schema.ClampLevel(int(start) + int(delta))
			c.pushDaemonLevel(id, level, true)
			if level <= 0 || level >= 10000 {
				delete(d.StartingLevels, id)
			}
		}
		c.store.SetDevice(dev)

		if len(d.StartingLevels) > 0 {
			c.r.AddTimeout(DimTick, tick)
		}
	}
	c.r.AddTimeout(DimTick, tick)
}

// ReleaseRaiseLower ends a ramp: every still-ramping output snaps to the
// nearest of DimLevels discrete buckets, biased one bucket further in the
// direction of travel and then clamped against the level the ramp already
// reached (§4.4.3, §8 scenario 2). A same-button double-tap within
// DoubleTap instead provisionally holds the current emulated level and
// decides, after a timer equal to the ramp's own duration, whether to jump
// the outputs to the rail (0 or 10000) — superseded by a third tap if one
// lands before the timer fires (§8 scenario 3).
func (c *Controller) ReleaseRaiseLower(deviceID, buttonID int, now time.Time) {
	dev, ok := c.store.Device(deviceID)
	if !ok {
		return
	}
	comp, ok := dev.Components[buttonID]
	if !ok {
		return
	}
	d := dev.Dim()

	targets := map[int]schema.Level{}
	for _, a := range comp.Assignments {
		if a.Level == 0 || !c.isDaemonDimmed(a.OutputID) {
			continue
		}
		targets[a.OutputID] = c.releaseTarget(d.StartingLevels, d.DimDirection, a.OutputID)
	}

	doubleTap := d.NumTaps >= 2 && now.Sub(d.FirstTap) < DoubleTap
	decisionDelay := d.StartOfDim.Sub(d.FirstTap)

	d.StartingLevels = map[int]schema.Level{}
	d.Released = now
	c.store.SetDevice(dev)

	if doubleTap {
		wantNumTaps := d.NumTaps
		wantFirstTap := d.FirstTap
		wantReleased := now
		c.r.AddTimeout(decisionDelay, func() {
			cur, ok := c.store.Device(deviceID)
			if !ok {
				return
			}
			cd := cur.Dim()
			if cd.NumTaps != wantNumTaps || !cd.FirstTap.Equal(wantFirstTap) || !cd.Released.Equal(wantReleased) {
				return // superseded by a later tap; that tap owns the outcome
			}
			rail := schema.Level(0)
			if cd.DimDirection > 0 {
				rail = 10000
			}
			for id := range targets {
				c.pushDaemonLevel(id, rail, false)
				c.sendGatewaySet(id, rail)
			}
		})
		return
	}

	for id, target := range targets {
		c.pushDaemonLevel(id, target, false)
		c.sendGatewaySet(id, target)
	}
}

// releaseTarget computes the snapped release level for one output: if it
// is no longer in startingLevels (its ramp already saturated at 0 or
// 10000), the target is whatever level it's currently at.
func (c *Controller) releaseTarget(startingLevels map[int]schema.Level, direction, outputID int) schema.Level {
	start, ramped := startingLevels[outputID]
	cur := c.currentLevel(outputID)
	if !ramped {
		return cur
	}
	snapped := snapLevel(start, direction)
	if direction < 0 {
		return min(cur, snapped)
	}
	return max(cur, snapped)
}

// snapLevel implements the DIMLEVELS discrete-bucket snap formula of
// §4.4.3: ((DIMLEVELS*start + 5000) / 10000 ± 1) * 10000 / DIMLEVELS, with
// the ± sign following direction. All division is integer (floor).
func snapLevel(start schema.Level, direction int) schema.Level {
	bucket := (DimLevels*int(start) + 5000) / 10000
	if direction < 0 {
		bucket--
	} else {
		bucket++
	}
	return schema.ClampLevel(bucket * 10000 / DimLevels)
}
