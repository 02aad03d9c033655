// Package controller implements the policy engine that sits on top of the
// gateway link and schema store: it drives link initialization and state
// refresh, interprets unsolicited updates, emulates button and raise/lower
// dimmer semantics for daemon-driven outputs, runs the LED recomputation
// pass, and exposes the output-virtualization API (§4.4).
package controller

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/brightwell-systems/lumen-gateway/internal/gatewaylink"
	"github.com/brightwell-systems/lumen-gateway/internal/reactor"
	"github.com/brightwell-systems/lumen-gateway/internal/schema"
)

// Logger is the narrow logging interface the controller needs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

type releaseWindowEntry struct {
	level schema.Level
	timer *reactor.TimeoutHandle
}

// Controller is the policy engine of §4.4. It owns the Schema Store; the
// Gateway Link holds no schema references (§3 Lifecycle).
type Controller struct {
	r    *reactor.Reactor
	link *gatewaylink.Link
	log  Logger

	store *schema.Store

	// dummyOutputs holds gateway-native output ids (OutputID > 0) whose
	// physical fixture is actually driven by a daemon actuator rather than
	// the gateway itself ("inline-configured dummy outputs", §4.4.3).
	dummyOutputs map[int]schema.OutputSink

	// monitors fires on every ~OUTPUT arrival for a given native id
	// (monitorOutput, §4.4.5).
	monitors map[int][]func(level int)

	suppressed     map[int]bool
	releaseWindows map[int]releaseWindowEntry

	ledTimer *reactor.TimeoutHandle

	onSchemaInvalid func()
	onSnapshotDirty func()

	snapshotTimer *reactor.TimeoutHandle
	pendingDeltas []LevelDelta

	hooks []string
}

// LevelDelta is one coalesced LED/level change, as broadcast to the UI
// (§4.5).
type LevelDelta struct {
	KeypadID int
	LedID    int
	On       bool
	Level    schema.Level
}

// New returns a Controller wired to r, link, and store. onSchemaInvalid is
// invoked when a freshly fetched schema structurally differs from the one
// in memory (§4.3); onSnapshotDirty is invoked (debounced) whenever a
// level or LED change should be broadcast to the UI.
func New(r *reactor.Reactor, link *gatewaylink.Link, store *schema.Store, onSchemaInvalid func(), onSnapshotDirty func()) *Controller {
	return &Controller{
		r:               r,
		link:            link,
		log:             noopLogger{},
		store:           store,
		dummyOutputs:    map[int]schema.OutputSink{},
		monitors:        map[int][]func(level int){},
		suppressed:      map[int]bool{},
		releaseWindows:  map[int]releaseWindowEntry{},
		onSchemaInvalid: onSchemaInvalid,
		onSnapshotDirty: onSnapshotDirty,
	}
}

// SetLogger installs a logger; nil restores the no-op logger.
func (c *Controller) SetLogger(log Logger) {
	if log == nil {
		log = noopLogger{}
	}
	c.log = log
}

// OnInput is the Gateway Link's onInput hook: every received line passes
// through here in wire order.
func (c *Controller) OnInput(line string) {
	if !strings.HasPrefix(line, "~") {
		return
	}
	fields := strings.Split(line[1:], ",")
	if len(fields) == 0 {
		return
	}
	switch fields[0] {
	case "OUTPUT":
		c.handleOutputEvent(fields)
	case "DEVICE":
		c.handleDeviceEvent(fields)
	}
}

func (c *Controller) handleOutputEvent(fields []string) {
	if len(fields) < 4 {
		return
	}
	id, err := strconv.Atoi(fields[1])
	if err != nil {
		return
	}
	level := schema.ParseLevel(fields[3])
	c.applyGatewayOutputLevel(id, level)
}

// applyGatewayOutputLevel handles one ~OUTPUT report: dimmer suppression
// first, then the release-window correction, then the ordinary path
// (store update + monitor fanout + LED recompute).
func (c *Controller) applyGatewayOutputLevel(id int, level schema.Level) {
	if c.suppressed[id] {
		return
	}
	if rw, ok := c.releaseWindows[id]; ok {
		if level != rw.level {
			c.sendGatewaySet(id, rw.level)
		}
		return
	}

	c.store.SetOutputLevel(id, level)
	for _, fn := range c.monitors[id] {
		fn(int(level))
	}
	c.scheduleLedRecompute()
}

func (c *Controller) handleDeviceEvent(fields []string) {
	if len(fields) < 4 {
		return
	}
	devID, err1 := strconv.Atoi(fields[1])
	compID, err2 := strconv.Atoi(fields[2])
	if err1 != nil || err2 != nil {
		return
	}
	action, err := strconv.Atoi(fields[3])
	if err != nil {
		return
	}

	switch action {
	case schema.ActionPress:
		c.handleButtonEvent(devID, compID, true)
	case schema.ActionRelease:
		c.handleButtonEvent(devID, compID, false)
	case schema.ActionLedState:
		if len(fields) < 5 {
			return
		}
		c.handleLedReport(devID, compID, fields[4])
	}
}

func (c *Controller) handleLedReport(devID, ledID int, raw string) {
	dev, ok := c.store.Device(devID)
	if !ok {
		return
	}
	for cid, comp := range dev.Components {
		if comp.LED != ledID {
			continue
		}
		switch raw {
		case "0":
			comp.LedState, comp.Uncertain = false, false
		case "1":
			comp.LedState, comp.Uncertain = true, false
		default:
			comp.Uncertain = true
		}
		dev.Components[cid] = comp
		c.store.SetDevice(dev)
		if !comp.Uncertain {
			c.queueSnapshotDelta(LevelDelta{KeypadID: devID, LedID: ledID, On: comp.LedState})
		}
		return
	}
}

// currentLevel returns the live level of a native or virtual output.
func (c *Controller) currentLevel(id int) schema.Level {
	if id < 0 {
		if no, ok := c.store.NamedOutput(id); ok {
			return no.Level
		}
		return 0
	}
	if out, ok := c.store.Output(id); ok {
		return out.Level
	}
	return 0
}

// isDaemonDimmed reports whether this output id's smooth ramping and
// discrete snapping is this daemon's job rather than the gateway's:
// every virtual output, plus any gateway-native id registered as a dummy
// fixture via RegisterDummyOutput.
func (c *Controller) isDaemonDimmed(id int) bool {
	if id < 0 {
		return true
	}
	_, ok := c.dummyOutputs[id]
	return ok
}

// pushDaemonLevel updates the live level of a daemon-dimmed output and
// drives its actuator sink, without telling the gateway.
func (c *Controller) pushDaemonLevel(id int, level schema.Level, fade bool) {
	if id < 0 {
		c.store.SetNamedOutputLevel(id, level, fade)
		return
	}
	c.store.SetOutputLevel(id, level)
	if sink, ok := c.dummyOutputs[id]; ok {
		sink(int(level), fade)
	}
}

// sendGatewaySet pushes a discrete level to the gateway for a native
// output id (virtual ids have no gateway representation and are
// skipped). On success the id enters a release window during which a
// mismatching gateway report is corrected (§4.4.3 Dimmer suppression).
func (c *Controller) sendGatewaySet(id int, level schema.Level) {
	if id < 0 {
		return
	}
	cmd := fmt.Sprintf("#OUTPUT,%d,1,%s", id, formatLevel(level))
	c.link.Command(cmd, func(string) {
		c.enterReleaseWindow(id, level)
	}, func(error) {
		delete(c.suppressed, id)
	})
}

func (c *Controller) enterReleaseWindow(id int, level schema.Level) {
	delete(c.suppressed, id)
	if existing, ok := c.releaseWindows[id]; ok && existing.timer != nil {
		c.r.RemoveTimeout(existing.timer)
	}
	entry := releaseWindowEntry{level: level}
	entry.timer = c.r.AddTimeout(ReleaseWindow, func() {
		delete(c.releaseWindows, id)
	})
	c.releaseWindows[id] = entry
}

func formatLevel(level schema.Level) string {
	v := int(level)
	return fmt.Sprintf("%d.%02d", v/100, v%100)
}

func (c *Controller) queueSnapshotDelta(d LevelDelta) {
	c.pendingDeltas = append(c.pendingDeltas, d)
	if c.snapshotTimer != nil {
		return
	}
	c.snapshotTimer = c.r.AddTimeout(SnapshotDebounce, func() {
		c.snapshotTimer = nil
		c.RunHooks()
		if c.onSnapshotDirty != nil {
			c.onSnapshotDirty()
		}
	})
}

// PendingDeltas drains and returns the deltas accumulated since the last
// call, for the UI Snapshot broadcaster.
func (c *Controller) PendingDeltas() []LevelDelta {
	d := c.pendingDeltas
	c.pendingDeltas = nil
	return d
}
