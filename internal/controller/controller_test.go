package controller

import (
	"testing"

	"github.com/brightwell-systems/lumen-gateway/internal/reactor"
	"github.com/brightwell-systems/lumen-gateway/internal/schema"
)

func newTestController() (*Controller, *reactor.Reactor, *schema.Store) {
	r := reactor.New()
	store := schema.New()
	ctrl := New(r, nil, store, nil, nil)
	return ctrl, r, store
}

func TestOnInputIgnoresNonTildeLines(t *testing.T) {
	ctrl, _, store := newTestController()
	store.Outputs[1] = schema.Output{ID: 1, Dim: true, Level: 0}
	ctrl.OnInput("GNET> some prompt")
	if out, _ := store.Output(1); out.Level != 0 {
		t.Errorf("non-event line should not mutate store, level = %v", out.Level)
	}
}

func TestOnInputAppliesOutputLevel(t *testing.T) {
	ctrl, _, store := newTestController()
	store.Outputs[1] = schema.Output{ID: 1, Dim: true, Level: 0}
	ctrl.OnInput("~OUTPUT,1,1,50.00")
	out, ok := store.Output(1)
	if !ok || out.Level != 5000 {
		t.Errorf("Output(1).Level = %v, ok=%v; want 5000", out.Level, ok)
	}
}

func TestApplyGatewayOutputLevelSuppressed(t *testing.T) {
	ctrl, _, store := newTestController()
	store.Outputs[1] = schema.Output{ID: 1, Dim: true, Level: 1000}
	ctrl.suppressed[1] = true
	ctrl.applyGatewayOutputLevel(1, 9999)
	out, _ := store.Output(1)
	if out.Level != 1000 {
		t.Errorf("suppressed output should not update, level = %v", out.Level)
	}
}

func TestApplyGatewayOutputLevelRunsMonitors(t *testing.T) {
	ctrl, _, store := newTestController()
	store.Outputs[1] = schema.Output{ID: 1, Dim: true, Level: 0}
	var seen int
	ctrl.monitors[1] = append(ctrl.monitors[1], func(level int) { seen = level })
	ctrl.applyGatewayOutputLevel(1, 4200)
	if seen != 4200 {
		t.Errorf("monitor callback saw %d, want 4200", seen)
	}
}

func TestCurrentLevelNativeAndVirtual(t *testing.T) {
	ctrl, _, store := newTestController()
	store.Outputs[1] = schema.Output{ID: 1, Dim: true, Level: 3000}
	id := store.AddNamedOutput("test-virtual", nil)
	store.SetNamedOutputLevel(id, 7000, false)

	if got := ctrl.currentLevel(1); got != 3000 {
		t.Errorf("currentLevel(1) = %v, want 3000", got)
	}
	if got := ctrl.currentLevel(id); got != 7000 {
		t.Errorf("currentLevel(%d) = %v, want 7000", id, got)
	}
	if got := ctrl.currentLevel(999); got != 0 {
		t.Errorf("currentLevel(999) (unknown id) = %v, want 0", got)
	}
}

func TestIsDaemonDimmed(t *testing.T) {
	ctrl, _, _ := newTestController()
	ctrl.dummyOutputs[5] = func(int, bool) {}

	if !ctrl.isDaemonDimmed(-1) {
		t.Error("every virtual id should be daemon-dimmed")
	}
	if !ctrl.isDaemonDimmed(5) {
		t.Error("registered dummy output should be daemon-dimmed")
	}
	if ctrl.isDaemonDimmed(6) {
		t.Error("plain native output should not be daemon-dimmed")
	}
}

func TestPushDaemonLevelDrivesVirtualSink(t *testing.T) {
	ctrl, _, store := newTestController()
	var got int
	id := store.AddNamedOutput("lamp", func(level int, fade bool) { got = level })
	ctrl.pushDaemonLevel(id, 6000, false)
	if got != 6000 {
		t.Errorf("virtual sink saw %d, want 6000", got)
	}
}

func TestPushDaemonLevelDrivesDummyOutputSink(t *testing.T) {
	ctrl, _, store := newTestController()
	store.Outputs[3] = schema.Output{ID: 3, Dim: true}
	var got int
	ctrl.dummyOutputs[3] = func(level int, fade bool) { got = level }
	ctrl.pushDaemonLevel(3, 8000, false)
	if got != 8000 {
		t.Errorf("dummy output sink saw %d, want 8000", got)
	}
	out, _ := store.Output(3)
	if out.Level != 8000 {
		t.Errorf("store level = %v, want 8000", out.Level)
	}
}

func TestQueueSnapshotDeltaArmsTimerOnce(t *testing.T) {
	ctrl, _, _ := newTestController()
	ctrl.queueSnapshotDelta(LevelDelta{KeypadID: 1, LedID: 2, On: true})
	firstTimer := ctrl.snapshotTimer
	ctrl.queueSnapshotDelta(LevelDelta{KeypadID: 1, LedID: 3, On: false})
	if ctrl.snapshotTimer != firstTimer {
		t.Error("a second queued delta should not re-arm the debounce timer")
	}
	deltas := ctrl.PendingDeltas()
	if len(deltas) != 2 {
		t.Errorf("PendingDeltas() returned %d deltas, want 2", len(deltas))
	}
	if len(ctrl.PendingDeltas()) != 0 {
		t.Error("PendingDeltas() should drain the queue")
	}
}

func TestFormatLevel(t *testing.T) {
	cases := []struct {
		level schema.Level
		want  string
	}{
		{0, "0.00"},
		{5000, "50.00"},
		{10000, "100.00"},
		{55, "0.55"},
	}
	for _, c := range cases {
		if got := formatLevel(c.level); got != c.want {
			t.Errorf("formatLevel(%v) = %q, want %q", c.level, got, c.want)
		}
	}
}

func TestRecomputeLEDsMonitorLogic(t *testing.T) {
	ctrl, _, store := newTestController()
	store.Outputs[1] = schema.Output{ID: 1, Dim: true, Level: 0}
	store.Devices[10] = schema.Device{
		ID:   10,
		Kind: schema.DeviceSeeTouchKeypad,
		Components: map[int]schema.Component{
			1: {
				ID:          1,
				LED:         -1, // no real LED wired, keeps sendLedState from touching the link
				LedLogic:    schema.LedMonitor,
				Assignments: []schema.Assignment{{OutputID: 1, Level: 10000}},
			},
		},
	}

	ctrl.recomputeLEDs()
	dev, _ := store.Device(10)
	if dev.Components[1].LedState {
		t.Error("LED should be off when the assigned output is at level 0")
	}

	store.SetOutputLevel(1, 5000)
	ctrl.recomputeLEDs()
	dev, _ = store.Device(10)
	if !dev.Components[1].LedState {
		t.Error("LED should be on once the assigned output is above 0")
	}
	if len(ctrl.PendingDeltas()) == 0 {
		t.Error("a SeeTouch LED state change should queue a snapshot delta")
	}
}

func TestRecomputeLEDsSceneLogic(t *testing.T) {
	ctrl, _, store := newTestController()
	store.Outputs[2] = schema.Output{ID: 2, Dim: true, Level: 5000}
	store.Devices[20] = schema.Device{
		ID: 20,
		Components: map[int]schema.Component{
			1: {
				ID:          1,
				LED:         -1,
				LedLogic:    schema.LedScene,
				Assignments: []schema.Assignment{{OutputID: 2, Level: 5000}},
			},
		},
	}
	ctrl.recomputeLEDs()
	dev, _ := store.Device(20)
	if !dev.Components[1].LedState {
		t.Error("scene LED should be on when every assignment matches exactly")
	}

	store.SetOutputLevel(2, 4000)
	ctrl.recomputeLEDs()
	dev, _ = store.Device(20)
	if dev.Components[1].LedState {
		t.Error("scene LED should be off once an assignment no longer matches")
	}
}

func TestApplyButtonTapToggleVirtualOutputs(t *testing.T) {
	ctrl, _, store := newTestController()
	var got int
	id := store.AddNamedOutput("toggle-lamp", func(level int, fade bool) { got = level })

	dev := schema.Device{ID: 30, Components: map[int]schema.Component{
		1: {
			ID:          1,
			ButtonKind:  schema.ButtonToggle,
			Assignments: []schema.Assignment{{OutputID: id, Level: 7500}},
		},
	}}
	store.SetDevice(dev)
	comp := dev.Components[1]

	ctrl.applyButtonTap(dev, comp, false)
	if got != 7500 {
		t.Errorf("first toggle should turn the lamp on to 7500, got %d", got)
	}

	dev, _ = store.Device(30)
	comp = dev.Components[1]
	ctrl.applyButtonTap(dev, comp, false)
	if got != 0 {
		t.Errorf("second toggle should turn the lamp off, got %d", got)
	}
}
