package snapshot

import (
	"strings"
	"testing"

	"github.com/brightwell-systems/lumen-gateway/internal/controller"
	"github.com/brightwell-systems/lumen-gateway/internal/schema"
)

func newTestStore() *schema.Store {
	store := schema.New()
	store.Devices[1] = schema.Device{
		ID:   1,
		Name: "Living Room:extra",
		Kind: schema.DeviceSeeTouchKeypad,
		Components: map[int]schema.Component{
			1: {ID: 1, LED: 1, LedState: true, ButtonKind: schema.ButtonToggle, Name: "Main Lights",
				Assignments: []schema.Assignment{{OutputID: 10, Level: 10000}}},
			2: {ID: 2, LED: -1, ButtonKind: schema.ButtonRaise},
			3: {ID: 3, LED: -1, ButtonKind: schema.ButtonLower},
		},
	}
	store.Devices[2] = schema.Device{ID: 2, Name: "Hallway"}
	store.Outputs[10] = schema.Output{ID: 10, Dim: true, Level: 10000}
	return store
}

func TestBuildOrdersByPreferredOrderThenAscending(t *testing.T) {
	store := newTestStore()
	doc := Build(store, []int{2})
	if len(doc.Keypads) != 2 {
		t.Fatalf("len(Keypads) = %d, want 2", len(doc.Keypads))
	}
	if doc.Keypads[0].ID != 2 {
		t.Errorf("Keypads[0].ID = %d, want 2 (explicit order first)", doc.Keypads[0].ID)
	}
	if doc.Keypads[1].ID != 1 {
		t.Errorf("Keypads[1].ID = %d, want 1 (remaining, ascending)", doc.Keypads[1].ID)
	}
}

func TestBuildHidesNegativeOrderEntries(t *testing.T) {
	store := newTestStore()
	doc := Build(store, []int{-1})
	for _, kp := range doc.Keypads {
		if kp.ID == 1 {
			t.Error("device 1 should be hidden by a negative order entry")
		}
	}
	if len(doc.Keypads) != 1 {
		t.Errorf("len(Keypads) = %d, want 1 (only device 2 remains)", len(doc.Keypads))
	}
}

func TestBuildKeypadLEDsButtonsAndDimmers(t *testing.T) {
	store := newTestStore()
	doc := Build(store, nil)
	var kp1 *Keypad
	for i := range doc.Keypads {
		if doc.Keypads[i].ID == 1 {
			kp1 = &doc.Keypads[i]
		}
	}
	if kp1 == nil {
		t.Fatal("device 1 missing from document")
	}
	if kp1.Label != "Living Room" {
		t.Errorf("Label = %q, want trimmed at ':'", kp1.Label)
	}
	if kp1.LEDs[1] != 1 {
		t.Errorf("LEDs[1] = %d, want 1 (lit)", kp1.LEDs[1])
	}
	if _, ok := kp1.LEDs[2]; ok {
		t.Error("component with LED == -1 should not appear in LEDs")
	}
	if kp1.Buttons[2] != true {
		t.Errorf("raise button should render as true, got %v", kp1.Buttons[2])
	}
	if kp1.Buttons[3] != false {
		t.Errorf("lower button should render as false, got %v", kp1.Buttons[3])
	}
	if kp1.Dimmers[1] != "100.00" {
		t.Errorf("Dimmers[1] = %q, want 100.00", kp1.Dimmers[1])
	}
}

func TestDeltaLineFormatsCoalescedDeltas(t *testing.T) {
	line := DeltaLine([]controller.LevelDelta{
		{KeypadID: 1, LedID: 2, On: true, Level: 5000},
		{KeypadID: 3, LedID: 4, On: false, Level: 0},
	})
	parts := strings.Split(line, " ")
	if len(parts) != 2 {
		t.Fatalf("len(parts) = %d, want 2", len(parts))
	}
	if parts[0] != "1,2,1,50.00" {
		t.Errorf("parts[0] = %q, want 1,2,1,50.00", parts[0])
	}
	if parts[1] != "3,4,0,0.00" {
		t.Errorf("parts[1] = %q, want 3,4,0,0.00", parts[1])
	}
}

func TestDeltaLineEmpty(t *testing.T) {
	if got := DeltaLine(nil); got != "" {
		t.Errorf("DeltaLine(nil) = %q, want empty string", got)
	}
}

func TestMarshalProducesValidJSON(t *testing.T) {
	store := newTestStore()
	doc := Build(store, nil)
	data, err := Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"keypads"`) {
		t.Errorf("marshaled document missing keypads key: %s", data)
	}
}
