// Package snapshot serializes the Schema Store into the UI-facing document
// described in §4.5: an ordered list of keypads with their LED, button, and
// dimmer-level state, plus the coalesced delta line broadcast on change.
package snapshot

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/brightwell-systems/lumen-gateway/internal/controller"
	"github.com/brightwell-systems/lumen-gateway/internal/schema"
)

// Keypad is one device's UI-facing view.
type Keypad struct {
	ID      int            `json:"id"`
	Label   string         `json:"label"`
	LEDs    map[int]int    `json:"leds"`
	Buttons map[int]any    `json:"buttons"`
	Dimmers map[int]string `json:"dimmers"`
}

// Document is the full snapshot payload served at the UI's snapshot endpoint.
type Document struct {
	Keypads []Keypad `json:"keypads"`
}

// Build renders the current Store into a Document. order is a
// caller-supplied preferred ordering of device ids (from the site
// description); a negative entry hides that device entirely. Devices not
// named in order are appended afterward in ascending id order.
func Build(store *schema.Store, order []int) Document {
	store.RLock()
	defer store.RUnlock()

	placed := make(map[int]bool, len(order))
	doc := Document{Keypads: make([]Keypad, 0, len(store.Devices))}

	for _, id := range order {
		devID := id
		if devID < 0 {
			devID = -devID
			placed[devID] = true
			continue // hidden
		}
		placed[devID] = true
		if dev, ok := store.Devices[devID]; ok {
			doc.Keypads = append(doc.Keypads, buildKeypad(store, dev))
		}
	}

	remaining := make([]int, 0, len(store.Devices))
	for id := range store.Devices {
		if !placed[id] {
			remaining = append(remaining, id)
		}
	}
	sort.Ints(remaining)
	for _, id := range remaining {
		doc.Keypads = append(doc.Keypads, buildKeypad(store, store.Devices[id]))
	}

	return doc
}

func buildKeypad(store *schema.Store, dev schema.Device) Keypad {
	kp := Keypad{
		ID:      dev.ID,
		Label:   trimLabel(dev.Name),
		LEDs:    map[int]int{},
		Buttons: map[int]any{},
		Dimmers: map[int]string{},
	}

	for id, comp := range dev.Components {
		if comp.LED >= 0 {
			on := 0
			if comp.LedState {
				on = 1
			}
			kp.LEDs[id] = on
		}

		switch comp.ButtonKind {
		case schema.ButtonRaise:
			kp.Buttons[id] = true
		case schema.ButtonLower:
			kp.Buttons[id] = false
		default:
			kp.Buttons[id] = trimLabel(comp.Name)
		}

		if len(comp.Assignments) == 0 {
			continue
		}
		a := comp.Assignments[0]
		if a.IsRelay() {
			continue
		}
		kp.Dimmers[id] = formatLevel(currentLevel(store, a))
	}

	return kp
}

func currentLevel(store *schema.Store, a schema.Assignment) schema.Level {
	if a.IsVirtual() {
		if a.NamedOutputIndex() < len(store.NamedOutputs) {
			return store.NamedOutputs[a.NamedOutputIndex()].Level
		}
		return 0
	}
	if out, ok := store.Output(a.OutputID); ok {
		return out.Level
	}
	return 0
}

// trimLabel cuts a name at its first ':' (the inline-config marker, §4.4.3)
// and JSON-escapes it implicitly via json.Marshal at serialization time.
func trimLabel(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[:i]
	}
	return name
}

func formatLevel(level schema.Level) string {
	v := int(level)
	return fmt.Sprintf("%d.%02d", v/100, v%100)
}

// Marshal renders a Document as the JSON body served to the UI.
func Marshal(doc Document) ([]byte, error) {
	return json.Marshal(doc)
}

// DeltaLine formats the pending deltas as the 100ms-debounced broadcast
// line: space-separated "<kp>,<led>,<onOff>,<level>" tuples (§4.5).
func DeltaLine(deltas []controller.LevelDelta) string {
	parts := make([]string, 0, len(deltas))
	for _, d := range deltas {
		onOff := 0
		if d.On {
			onOff = 1
		}
		parts = append(parts, fmt.Sprintf("%d,%d,%d,%s", d.KeypadID, d.LedID, onOff, formatLevel(d.Level)))
	}
	return strings.Join(parts, " ")
}
