package controller

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// StartHealthCheck arms the periodic liveness probe and the
// uncertain-LED re-query sweep described in §4.4.6. Call once; the first
// probe fires AliveInterval after the call, and commands issued before the
// link is ready are queued by the link. Reconnect backoff itself lives in
// the Gateway Link (scheduleReconnect).
func (c *Controller) StartHealthCheck() {
	c.armAliveProbe()
	c.armUncertainSweep()
}

// armAliveProbe issues a time-of-day query every AliveInterval; if the
// gateway hasn't answered within AliveCmdTimeout, the link is forced
// closed so the reconnect machinery takes over.
func (c *Controller) armAliveProbe() {
	c.r.AddTimeout(AliveInterval, func() {
		deadline := c.r.AddTimeout(AliveCmdTimeout, func() {
			c.link.CloseSock()
		})
		c.link.Command("?SYSTEM,1", func(result string) {
			c.r.RemoveTimeout(deadline)
			c.checkClockDrift(result)
			c.armAliveProbe()
		}, func(error) {
			c.r.RemoveTimeout(deadline)
			c.armAliveProbe()
		})
	})
}

// checkClockDrift compares the gateway's reported time-of-day
// ("~SYSTEM,1,<HH:MM:SS>") against the daemon's own clock and corrects
// the gateway if they've drifted past ClockDriftThreshold. A parse
// failure is treated as "no drift information available" rather than an
// error, since this check is opportunistic.
func (c *Controller) checkClockDrift(reply string) {
	gatewayTOD, ok := parseTimeOfDay(reply)
	if !ok {
		return
	}
	now := time.Now()
	localTOD := time.Duration(now.Hour())*time.Hour +
		time.Duration(now.Minute())*time.Minute +
		time.Duration(now.Second())*time.Second

	drift := gatewayTOD - localTOD
	if drift < 0 {
		drift = -drift
	}
	if drift <= ClockDriftThreshold {
		return
	}
	c.link.Command(fmt.Sprintf("#SYSTEM,1,%02d:%02d:%02d", now.Hour(), now.Minute(), now.Second()), nil, nil)
}

func parseTimeOfDay(reply string) (time.Duration, bool) {
	fields := strings.Split(reply, ",")
	if len(fields) == 0 {
		return 0, false
	}
	clock := strings.Split(fields[len(fields)-1], ":")
	if len(clock) != 3 {
		return 0, false
	}
	h, err1 := strconv.Atoi(clock[0])
	m, err2 := strconv.Atoi(clock[1])
	s, err3 := strconv.Atoi(clock[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return 0, false
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second, true
}

// armUncertainSweep re-queries the LED state of every component whose
// Uncertain flag is still set, every UncertainRecheckInterval (§4.4.6).
func (c *Controller) armUncertainSweep() {
	c.r.AddTimeout(UncertainRecheckInterval, func() {
		for devID, dev := range c.store.Devices {
			for _, comp := range dev.Components {
				if !comp.Uncertain || comp.LED < 0 {
					continue
				}
				c.link.Command(fmt.Sprintf("?DEVICE,%d,%d,9", devID, comp.LED), nil, nil)
			}
		}
		c.armUncertainSweep()
	})
}
