package schema

import (
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Extraction targets of the gateway's configuration document. The document
// nests Devices inside an arbitrarily deep Area/DeviceGroup tree; this
// parser does not care about that nesting and extracts every Device and
// Output element it encounters anywhere in the document, matching
// extractSchemaInfo's behavior of building flat id-keyed maps (§4.3).

type xmlDevice struct {
	IntegrationID int            `xml:"IntegrationID,attr"`
	Name          string         `xml:"Name,attr"`
	DeviceType    string         `xml:"DeviceType,attr"`
	Components    []xmlComponent `xml:"Components>Component"`
}

type xmlComponent struct {
	ComponentNumber int          `xml:"ComponentNumber,attr"`
	ComponentType   string       `xml:"ComponentType,attr"`
	Button          *xmlButton   `xml:"Button"`
	LED             *xmlLED      `xml:"LED"`
}

type xmlButton struct {
	Name        string           `xml:"Name,attr"`
	Engraving   string           `xml:"Engraving,attr"`
	ButtonType  string           `xml:"ButtonType,attr"`
	Direction   string           `xml:"Direction,attr"`
	Assignments []xmlAssignment  `xml:"Assignments>Assignment"`
}

type xmlLED struct {
	Name string `xml:"Name,attr"`
}

type xmlAssignment struct {
	AssignmentType int    `xml:"AssignmentType,attr"`
	Presets        []xmlPresetAssignment `xml:"Preset>PresetAssignments>PresetAssignment"`
}

type xmlPresetAssignment struct {
	IntegrationID int    `xml:"IntegrationID,attr"`
	Level         string `xml:"Level,attr"`
}

type xmlOutput struct {
	IntegrationID int    `xml:"IntegrationID,attr"`
	Name          string `xml:"Name,attr"`
	OutputType    string `xml:"OutputType,attr"`
}

// presetAssignmentType is the AssignmentType value the gateway uses for a
// button's live scene/level preset, as opposed to timeclock or other
// assignment kinds the core does not interpret.
const presetAssignmentType = 2

// deviceKindFromString maps the gateway's DeviceType attribute vocabulary
// onto DeviceKind.
func deviceKindFromString(s string) DeviceKind {
	switch s {
	case "PICO_KEYPAD":
		return DevicePicoKeypad
	case "SEETOUCH_KEYPAD":
		return DeviceSeeTouchKeypad
	case "HYBRID_SEETOUCH_KEYPAD":
		return DeviceHybridSeeTouchKeypad
	case "MOTION_SENSOR":
		return DeviceMotionSensor
	case "MAIN_REPEATER":
		return DeviceMainRepeater
	default:
		return DeviceUnknown
	}
}

// buttonKindFromXML maps the ButtonType/Direction attributes onto
// ButtonKind. A MasterRaiseLower button with Direction="Raise" becomes
// ButtonRaise; any other direction on that button type becomes
// ButtonLower, matching the original's retagging rule (§4.3).
func buttonKindFromXML(buttonType, direction string) ButtonKind {
	switch buttonType {
	case "SingleAction":
		return ButtonSingleAction
	case "Toggle":
		return ButtonToggle
	case "AdvancedToggle":
		return ButtonAdvancedToggle
	case "MasterRaiseLower":
		if direction == "Raise" {
			return ButtonRaise
		}
		return ButtonLower
	default:
		return ButtonUnknown
	}
}

// ledLogicForButtonKind infers MONITOR/SCENE/RAISELOWER logic from the
// button semantics it accompanies: raise/lower buttons carry no LED logic,
// toggle-family buttons monitor, single-action buttons drive a scene LED.
// The gateway document encodes this as a numeric code on the Button
// element in the upstream system; this port derives it from ButtonKind
// directly since no separate attribute survives the simplified schema.
func ledLogicForButtonKind(bk ButtonKind) LedLogic {
	switch bk {
	case ButtonToggle, ButtonAdvancedToggle:
		return LedMonitor
	case ButtonSingleAction:
		return LedScene
	case ButtonRaise, ButtonLower:
		return LedRaiseLower
	default:
		return LedUnknown
	}
}

// strToLevel parses a fixed-point level string ("0.00".."100.00") into a
// Level in [0,10000], clamping out-of-range inputs to the nearest bound.
// "50" parses as 5000; "50.5" as 5050; "50.55" as 5055 (§8 boundary cases).
func strToLevel(s string) Level {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	whole, frac, hasFrac := strings.Cut(s, ".")
	w, err := strconv.Atoi(whole)
	if err != nil {
		return 0
	}
	f := 0
	if hasFrac {
		frac = frac + "00"
		frac = frac[:2]
		f, _ = strconv.Atoi(frac)
	}
	return ClampLevel(w*100 + f)
}

// ParseLevel is the exported form of strToLevel, for packages (controller)
// that need to decode a "~OUTPUT" level field off the wire.
func ParseLevel(s string) Level { return strToLevel(s) }

// ExtractSchema parses the gateway's configuration document (already fully
// buffered by the caller's event-driven fetch, see fetch.go) into a
// Generation. Devices retain id, name, kind; each Button component
// retains id, the paired LED's component number (via the LED element
// adjacent to it in the Components list, matching the Button/LED
// programming-model link), engraving name, derived LED logic, button
// kind, and the level-2 preset assignments (§4.3).
func ExtractSchema(r io.Reader) (Generation, error) {
	dec := xml.NewDecoder(r)

	devices := map[int]Device{}
	outputs := map[int]Output{}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Generation{}, fmt.Errorf("schema: decoding document: %w", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case "Device":
			var xd xmlDevice
			if err := dec.DecodeElement(&xd, &se); err != nil {
				return Generation{}, fmt.Errorf("schema: decoding device: %w", err)
			}
			d := extractDevice(xd)
			devices[d.ID] = d
		case "Output":
			var xo xmlOutput
			if err := dec.DecodeElement(&xo, &se); err != nil {
				return Generation{}, fmt.Errorf("schema: decoding output: %w", err)
			}
			outputs[xo.IntegrationID] = Output{
				ID:   xo.IntegrationID,
				Name: xo.Name,
				Dim:  xo.OutputType != "NON_DIM",
			}
		}
	}

	return Generation{Devices: devices, Outputs: outputs}, nil
}

func extractDevice(xd xmlDevice) Device {
	d := Device{
		ID:         xd.IntegrationID,
		Name:       xd.Name,
		Kind:       deviceKindFromString(xd.DeviceType),
		Components: map[int]Component{},
	}

	// Build a LED-component lookup by scanning for LED components once so
	// each Button can find its paired LED component number regardless of
	// the order the components appear in.
	ledByIndex := map[int]int{} // best-effort pairing: button index -> led component number
	var ledComponents []int
	for _, xc := range xd.Components {
		if xc.ComponentType == "LED" || xc.LED != nil {
			ledComponents = append(ledComponents, xc.ComponentNumber)
		}
	}
	buttonIdx := 0
	for _, xc := range xd.Components {
		if xc.Button == nil {
			continue
		}
		if buttonIdx < len(ledComponents) {
			ledByIndex[xc.ComponentNumber] = ledComponents[buttonIdx]
		} else {
			ledByIndex[xc.ComponentNumber] = -1
		}
		buttonIdx++
	}

	for _, xc := range xd.Components {
		if xc.Button == nil {
			continue
		}
		bk := buttonKindFromXML(xc.Button.ButtonType, xc.Button.Direction)
		c := Component{
			ID:         xc.ComponentNumber,
			LED:        ledByIndex[xc.ComponentNumber],
			Name:       firstNonEmpty(xc.Button.Engraving, xc.Button.Name),
			LedLogic:   ledLogicForButtonKind(bk),
			ButtonKind: bk,
		}
		for _, xa := range xc.Button.Assignments {
			if xa.AssignmentType != presetAssignmentType {
				continue
			}
			for _, p := range xa.Presets {
				c.Assignments = append(c.Assignments, Assignment{
					OutputID: p.IntegrationID,
					Level:    int(strToLevel(p.Level)),
				})
			}
		}
		d.Components[c.ID] = c
	}
	return d
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
