package schema

import "testing"

func TestComponentEqualIgnoresVirtualAssignments(t *testing.T) {
	a := Component{ID: 1, LED: 2, Name: "x", LedLogic: LedMonitor, ButtonKind: ButtonToggle,
		Assignments: []Assignment{{OutputID: 5, Level: 10000}}}
	b := Component{ID: 1, LED: 2, Name: "x", LedLogic: LedMonitor, ButtonKind: ButtonToggle,
		Assignments: []Assignment{{OutputID: 5, Level: 10000}, {OutputID: -1, Level: -1}}}
	if !a.Equal(b) {
		t.Error("Equal should ignore virtual (negative-id) assignments")
	}
}

func TestComponentEqualToggleEmptyWildcard(t *testing.T) {
	a := Component{ID: 1, LED: -1, Name: "x", LedLogic: LedMonitor, ButtonKind: ButtonToggle}
	b := Component{ID: 1, LED: -1, Name: "x", LedLogic: LedMonitor, ButtonKind: ButtonAdvancedToggle}
	if !a.Equal(b) {
		t.Error("a TOGGLE button with no native assignments should compare equal to any button kind")
	}

	c := Component{ID: 1, LED: -1, Name: "x", LedLogic: LedMonitor, ButtonKind: ButtonSingleAction}
	if a.Equal(c) {
		t.Error("empty-assignment wildcard should not extend to non-toggle kinds on either side")
	}
}

func TestComponentEqualRejectsDifferentNativeAssignments(t *testing.T) {
	a := Component{ID: 1, ButtonKind: ButtonToggle, Assignments: []Assignment{{OutputID: 5, Level: 10000}}}
	b := Component{ID: 1, ButtonKind: ButtonToggle, Assignments: []Assignment{{OutputID: 5, Level: 5000}}}
	if a.Equal(b) {
		t.Error("differing native assignment levels should not compare equal")
	}
}

func TestDeviceEqual(t *testing.T) {
	mk := func(name string) Device {
		return Device{
			ID:   1,
			Name: name,
			Kind: DevicePicoKeypad,
			Components: map[int]Component{
				1: {ID: 1, ButtonKind: ButtonSingleAction, LedLogic: LedScene},
			},
		}
	}
	a := mk("Foyer Pico")
	b := mk("Foyer Pico")
	if !a.Equal(b) {
		t.Error("identical devices should compare equal")
	}
	c := mk("Renamed Pico")
	if a.Equal(c) {
		t.Error("devices with different names should not compare equal")
	}
}

func TestDeviceEqualIgnoresDimEmulationState(t *testing.T) {
	a := Device{ID: 1, Kind: DevicePicoKeypad, Components: map[int]Component{}}
	b := Device{ID: 1, Kind: DevicePicoKeypad, Components: map[int]Component{}}
	b.Dim().DimDirection = 1
	b.Dim().NumTaps = 3
	if !a.Equal(b) {
		t.Error("ephemeral dim-emulation state must not affect schema equality")
	}
}

func TestGenerationEqual(t *testing.T) {
	g1 := Generation{
		Devices: map[int]Device{1: {ID: 1, Kind: DevicePicoKeypad, Components: map[int]Component{}}},
		Outputs: map[int]Output{2: {ID: 2, Name: "Lamp", Dim: true}},
	}
	g2 := Generation{
		Devices: map[int]Device{1: {ID: 1, Kind: DevicePicoKeypad, Components: map[int]Component{}}},
		Outputs: map[int]Output{2: {ID: 2, Name: "Lamp", Dim: true}},
	}
	if !g1.Equal(g2) {
		t.Error("identical generations should compare equal")
	}

	g3 := Generation{
		Devices: map[int]Device{1: {ID: 1, Kind: DeviceMotionSensor, Components: map[int]Component{}}},
		Outputs: map[int]Output{2: {ID: 2, Name: "Lamp", Dim: true}},
	}
	if g1.Equal(g3) {
		t.Error("generations with a changed device kind should not compare equal")
	}
}
