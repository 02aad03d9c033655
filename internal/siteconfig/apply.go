package siteconfig

import (
	"fmt"

	"github.com/brightwell-systems/lumen-gateway/internal/actuator/dmx"
	"github.com/brightwell-systems/lumen-gateway/internal/actuator/relay"
	"github.com/brightwell-systems/lumen-gateway/internal/controller"
	"github.com/brightwell-systems/lumen-gateway/internal/reactor"
)

// Apply wires a parsed Document into a running Controller: it registers
// every DMX fixture as a virtual or dummy output, attaches every keypad
// rule to its button, and arms the GPIO relay rules, grounded on
// main.cpp:readConfig's traversal of the same document shape. dmxBank and
// relayBank may be nil if the site has no fixtures of that kind; r is
// needed to schedule relay pulses.
func Apply(doc Document, ctrl *controller.Controller, r *reactor.Reactor, dmxBank *dmx.Bank, relayBank *relay.Bank) []error {
	var errs []error

	dmxOutputIDs := map[string]int{}
	for name, fixture := range doc.DMX {
		if dmxBank == nil {
			errs = append(errs, fmt.Errorf("DMX fixture %q configured but no DMX bank available", name))
			continue
		}
		sink := dmxBank.SinkFor(dmx.Fixture{Channels: fixture.Channels, Curve: fixture.Curve, Trim: fixture.Trim})
		if fixture.AliasID != 0 {
			ctrl.RegisterDummyOutput(fixture.AliasID, sink)
			dmxOutputIDs[name] = fixture.AliasID
		} else {
			dmxOutputIDs[name] = ctrl.AddOutput(name, sink)
		}
	}

	for kp, buttons := range doc.Keypad {
		for bt, rules := range buttons {
			for _, rule := range rules {
				switch rule.Kind {
				case "DMX":
					for fixtureName, level := range rule.DMX {
						outputID, ok := dmxOutputIDs[fixtureName]
						if !ok {
							errs = append(errs, fmt.Errorf("KEYPAD,%d,%d: DMX fixture %q has no output", kp, bt, fixtureName))
							continue
						}
						ctrl.AddToButton(kp, bt, outputID, level, false)
					}

				case "TOGGLE":
					for _, outputID := range rule.Toggle {
						alias := ctrl.AddOutput(fmt.Sprintf("TOGGLE:%d", outputID), func(level int, _ bool) {
							ctrl.Command(fmt.Sprintf("#OUTPUT,%d,1,%d.%02d", outputID, level/100, level%100), nil, nil)
						})
						ctrl.AddToButton(kp, bt, alias, 10000, true)
					}

				case "DEVICE":
					otherKp, otherBt := rule.DeviceKeypad, rule.DeviceButton
					alias := ctrl.AddOutput(fmt.Sprintf("DEVICE:%d/%d", otherKp, otherBt), func(int, bool) {
						ctrl.Command(fmt.Sprintf("#DEVICE,%d,%d,3", otherKp, otherBt), nil, nil)
						ctrl.Command(fmt.Sprintf("#DEVICE,%d,%d,4", otherKp, otherBt), nil, nil)
					})
					ctrl.AddToButton(kp, bt, alias, 0, false)

				case "RELAY":
					if relayBank == nil {
						errs = append(errs, fmt.Errorf("KEYPAD,%d,%d: RELAY rule but no relay bank available", kp, bt))
						continue
					}
					condPin, hasCond := doc.GPIO[rule.RelayCondition]
					actionPin := doc.GPIO[rule.RelayAction]
					alias := ctrl.AddOutput(fmt.Sprintf("RELAY:%s/%s", rule.RelayCondition, rule.RelayAction), func(int, bool) {
						if hasCond && relayBank.Get(condPin) != rule.RelayConditionSense {
							return
						}
						relayBank.Toggle(r, actionPin)
					})
					ctrl.AddToButton(kp, bt, alias, -1, false)
				}
			}
		}
	}

	return errs
}
