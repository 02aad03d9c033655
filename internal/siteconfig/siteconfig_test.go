package siteconfig

import "testing"

func TestParseDMXFixturePositionalEncoding(t *testing.T) {
	data := []byte(`{
		"DMX": {
			"lamp": [5, [1,2,3], [1.0,2.2], 10]
		}
	}`)
	doc, errs := Parse(data)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	f, ok := doc.DMX["lamp"]
	if !ok {
		t.Fatal("lamp fixture missing")
	}
	if f.AliasID != 5 {
		t.Errorf("AliasID = %d, want 5", f.AliasID)
	}
	if len(f.Channels) != 3 || f.Channels[0] != 1 {
		t.Errorf("Channels = %v, want [1 2 3]", f.Channels)
	}
	if len(f.Curve) != 2 || f.Curve[1] != 2.2 {
		t.Errorf("Curve = %v, want [1.0 2.2]", f.Curve)
	}
	if f.Trim != 10 {
		t.Errorf("Trim = %v, want 10", f.Trim)
	}
}

func TestParseDMXFixtureOmittedFields(t *testing.T) {
	data := []byte(`{"DMX": {"bare": [[1,2]]}}`)
	doc, errs := Parse(data)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	f := doc.DMX["bare"]
	if f.AliasID != 0 {
		t.Errorf("AliasID = %d, want 0 (omitted)", f.AliasID)
	}
	if len(f.Channels) != 2 {
		t.Errorf("Channels = %v, want [1 2]", f.Channels)
	}
}

func TestParseKeypadToggleRule(t *testing.T) {
	data := []byte(`{
		"KEYPAD": {
			"1": { "2": { "TOGGLE": [10, 11] } }
		}
	}`)
	doc, errs := Parse(data)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	rules := doc.Keypad[1][2]
	if len(rules) != 1 {
		t.Fatalf("len(rules) = %d, want 1", len(rules))
	}
	if rules[0].Kind != "TOGGLE" || len(rules[0].Toggle) != 2 {
		t.Errorf("rules[0] = %+v, want TOGGLE [10 11]", rules[0])
	}
}

func TestParseKeypadDeviceRule(t *testing.T) {
	data := []byte(`{"KEYPAD": {"5": {"1": {"DEVICE": [7, 3]}}}}`)
	doc, errs := Parse(data)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	rule := doc.Keypad[5][1][0]
	if rule.DeviceKeypad != 7 || rule.DeviceButton != 3 {
		t.Errorf("rule = %+v, want DeviceKeypad=7 DeviceButton=3", rule)
	}
}

func TestParseKeypadRelayRuleWithNegatedCondition(t *testing.T) {
	data := []byte(`{
		"GPIO": {"door_sensor": 17, "strike": 27},
		"KEYPAD": {"1": {"1": {"RELAY": ["!door_sensor", "strike"]}}}
	}`)
	doc, errs := Parse(data)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	rule := doc.Keypad[1][1][0]
	if rule.RelayCondition != "door_sensor" {
		t.Errorf("RelayCondition = %q, want door_sensor", rule.RelayCondition)
	}
	if rule.RelayConditionSense {
		t.Error("RelayConditionSense should be false for a negated condition")
	}
	if rule.RelayAction != "strike" {
		t.Errorf("RelayAction = %q, want strike", rule.RelayAction)
	}
}

func TestParseKeypadRelayRuleUnknownPinCollectsError(t *testing.T) {
	data := []byte(`{
		"GPIO": {"strike": 27},
		"KEYPAD": {"1": {"1": {"RELAY": ["missing_sensor", "strike"]}}}
	}`)
	_, errs := Parse(data)
	if len(errs) != 1 {
		t.Fatalf("len(errs) = %d, want 1", len(errs))
	}
}

func TestParseKeypadDMXRuleUnknownFixtureCollectsError(t *testing.T) {
	data := []byte(`{
		"KEYPAD": {"1": {"1": {"DMX": {"unknown_fixture": 5000}}}}
	}`)
	_, errs := Parse(data)
	if len(errs) != 1 {
		t.Fatalf("len(errs) = %d, want 1", len(errs))
	}
}

func TestParseKeypadBadIDsCollectErrors(t *testing.T) {
	data := []byte(`{"KEYPAD": {"not-a-number": {"1": {"TOGGLE": [1]}}}}`)
	_, errs := Parse(data)
	if len(errs) != 1 {
		t.Fatalf("len(errs) = %d, want 1", len(errs))
	}
}

func TestParseMalformedJSONReturnsError(t *testing.T) {
	_, errs := Parse([]byte(`not json`))
	if len(errs) != 1 {
		t.Fatalf("len(errs) = %d, want 1", len(errs))
	}
}

func TestParseHooksPassThrough(t *testing.T) {
	data := []byte(`{"HOOKS": ["/usr/local/bin/on-change.sh"]}`)
	doc, errs := Parse(data)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(doc.Hooks) != 1 || doc.Hooks[0] != "/usr/local/bin/on-change.sh" {
		t.Errorf("Hooks = %v, want [/usr/local/bin/on-change.sh]", doc.Hooks)
	}
}
