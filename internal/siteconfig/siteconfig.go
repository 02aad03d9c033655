// Package siteconfig parses the site-description document — the
// keypad/DMX/GPIO/TOGGLE/DEVICE/RELAY augmentation rules that let
// non-native fixtures and remote simulated button presses participate in
// the gateway's keypad system — and applies it to a Controller at startup.
// Grounded on main.cpp's readConfig, expressed as a JSON document per
// encoding/json rather than the original's nlohmann::json traversal.
package siteconfig

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DMXFixture is one entry of the top-level "DMX" object: a named group of
// DMX-512 channels with a per-channel dimmer curve and a shared low-trim
// percentage (main.cpp:setDMX). AliasID, when nonzero, names a
// gateway-native dummy output id this fixture should be registered against
// via RegisterDummyOutput rather than AddOutput.
type DMXFixture struct {
	AliasID  int
	Channels []int
	Curve    []float64
	Trim     float64
}

// UnmarshalJSON accepts the original's positional array encoding:
// [aliasID?, [channels], [curve], trim], with aliasID, curve, and trim all
// optional.
func (f *DMXFixture) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	idx := 0
	if idx < len(raw) {
		var n int
		if err := json.Unmarshal(raw[idx], &n); err == nil {
			f.AliasID = n
			idx++
		}
	}
	if idx < len(raw) {
		_ = json.Unmarshal(raw[idx], &f.Channels)
		idx++
	}
	if idx < len(raw) {
		_ = json.Unmarshal(raw[idx], &f.Curve)
		idx++
	}
	if idx < len(raw) {
		_ = json.Unmarshal(raw[idx], &f.Trim)
	}
	return nil
}

// ButtonRule is one action attached to a keypad button. Exactly one of the
// typed fields is populated, selected by Kind.
type ButtonRule struct {
	Kind string // "DMX", "TOGGLE", "DEVICE", or "RELAY"

	DMX map[string]int // fixture name -> configured level

	Toggle []int // native output ids aliased into a daemon-owned toggle

	DeviceKeypad int // DEVICE: simulated press/release target keypad
	DeviceButton int // DEVICE: simulated press/release target button

	RelayCondition      string // GPIO input pin name, "" if none
	RelayConditionSense bool   // true = active-high expected
	RelayAction         string // GPIO output pin name
}

// Document is the parsed site-description file.
type Document struct {
	DMX    map[string]DMXFixture
	GPIO   map[string]int
	Keypad map[int]map[int][]ButtonRule
	Hooks  []string
}

// Parse decodes a site-description document from raw JSON bytes. Parse
// errors in individual rules are collected and returned alongside whatever
// was successfully parsed, matching the original's "log and skip" posture
// toward a malformed config rather than failing the whole load.
func Parse(data []byte) (Document, []error) {
	var raw struct {
		DMX    map[string]DMXFixture                    `json:"DMX"`
		GPIO   map[string]int                           `json:"GPIO"`
		Keypad map[string]map[string]map[string]json.RawMessage `json:"KEYPAD"`
		Hooks  []string                                 `json:"HOOKS"`
	}
	doc := Document{
		DMX:    map[string]DMXFixture{},
		GPIO:   map[string]int{},
		Keypad: map[int]map[int][]ButtonRule{},
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return doc, []error{fmt.Errorf("parsing site config: %w", err)}
	}
	doc.DMX = raw.DMX
	doc.GPIO = raw.GPIO
	doc.Hooks = raw.Hooks

	var errs []error
	for kpStr, buttons := range raw.Keypad {
		kp, err := strconv.Atoi(kpStr)
		if err != nil {
			errs = append(errs, fmt.Errorf("KEYPAD: bad keypad id %q", kpStr))
			continue
		}
		for btStr, actions := range buttons {
			bt, err := strconv.Atoi(btStr)
			if err != nil {
				errs = append(errs, fmt.Errorf("KEYPAD,%d: bad button id %q", kp, btStr))
				continue
			}
			for kind, rawRule := range actions {
				rule, err := parseRule(doc, kind, rawRule)
				if err != nil {
					errs = append(errs, fmt.Errorf("KEYPAD,%d,%d,%s: %w", kp, bt, kind, err))
					continue
				}
				if doc.Keypad[kp] == nil {
					doc.Keypad[kp] = map[int][]ButtonRule{}
				}
				doc.Keypad[kp][bt] = append(doc.Keypad[kp][bt], rule)
			}
		}
	}
	return doc, errs
}

func parseRule(doc Document, kind string, raw json.RawMessage) (ButtonRule, error) {
	switch kind {
	case "DMX":
		var levels map[string]int
		if err := json.Unmarshal(raw, &levels); err != nil {
			return ButtonRule{}, err
		}
		for name := range levels {
			if _, ok := doc.DMX[name]; !ok {
				return ButtonRule{}, fmt.Errorf("unknown DMX fixture %q", name)
			}
		}
		return ButtonRule{Kind: "DMX", DMX: levels}, nil

	case "TOGGLE":
		var ids []int
		if err := json.Unmarshal(raw, &ids); err != nil {
			return ButtonRule{}, err
		}
		return ButtonRule{Kind: "TOGGLE", Toggle: ids}, nil

	case "DEVICE":
		var pair [2]int
		if err := json.Unmarshal(raw, &pair); err != nil {
			return ButtonRule{}, err
		}
		return ButtonRule{Kind: "DEVICE", DeviceKeypad: pair[0], DeviceButton: pair[1]}, nil

	case "RELAY":
		var pair [2]string
		if err := json.Unmarshal(raw, &pair); err != nil {
			return ButtonRule{}, err
		}
		cond, action := pair[0], pair[1]
		sense := true
		if strings.HasPrefix(cond, "!") {
			sense = false
			cond = cond[1:]
		}
		if _, ok := doc.GPIO[action]; !ok {
			return ButtonRule{}, fmt.Errorf("unknown GPIO action pin %q", action)
		}
		if cond != "" {
			name := cond
			if strings.HasPrefix(name, "!") {
				name = name[1:]
			}
			if _, ok := doc.GPIO[name]; !ok {
				return ButtonRule{}, fmt.Errorf("unknown GPIO condition pin %q", cond)
			}
		}
		return ButtonRule{
			Kind:                "RELAY",
			RelayCondition:      cond,
			RelayConditionSense: sense,
			RelayAction:         action,
		}, nil

	default:
		return ButtonRule{}, fmt.Errorf("unknown rule kind %q", kind)
	}
}
