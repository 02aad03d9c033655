package mqtt

import "fmt"

// Topic prefixes for the lighting gateway's event bus.
//
// All output and button topics use the flat scheme:
// lumengateway/{category}/{id}
const (
	// TopicPrefixOutput is the base for per-output state topics.
	TopicPrefixOutput = "lumengateway/output"

	// TopicPrefixButton is the base for keypad button event topics.
	TopicPrefixButton = "lumengateway/button"

	// TopicPrefixSchema is the base for Schema Store snapshot topics.
	TopicPrefixSchema = "lumengateway/schema"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "lumengateway/system"
)

// Topics provides builders for lumengateway MQTT topics. Using these
// helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	levelTopic := topics.OutputLevel(42)
//	// Returns: "lumengateway/output/42/level"
type Topics struct{}

// =============================================================================
// Output Topics
// =============================================================================

// OutputLevel returns the topic an output's settled level is published to
// after the controller resolves a gateway report or local actuator write.
//
// Example: lumengateway/output/42/level
func (Topics) OutputLevel(outputID int) string {
	return fmt.Sprintf("%s/%d/level", TopicPrefixOutput, outputID)
}

// OutputLED returns the topic a keypad component's LED state is published
// to after the controller recomputes it.
//
// Example: lumengateway/output/42/led
func (Topics) OutputLED(componentID int) string {
	return fmt.Sprintf("%s/%d/led", TopicPrefixOutput, componentID)
}

// =============================================================================
// Button Topics
// =============================================================================

// ButtonPress returns the topic a keypad button press is published to,
// keyed by device and button component id.
//
// Example: lumengateway/button/7/3/press
func (Topics) ButtonPress(deviceID, buttonID int) string {
	return fmt.Sprintf("%s/%d/%d/press", TopicPrefixButton, deviceID, buttonID)
}

// ButtonRelease returns the topic a keypad button release is published to.
//
// Example: lumengateway/button/7/3/release
func (Topics) ButtonRelease(deviceID, buttonID int) string {
	return fmt.Sprintf("%s/%d/%d/release", TopicPrefixButton, deviceID, buttonID)
}

// =============================================================================
// Schema Topics
// =============================================================================

// SchemaSnapshot returns the topic the full UI Snapshot document is
// published to whenever the Schema Store generation changes.
//
// Example: lumengateway/schema/snapshot
func (Topics) SchemaSnapshot() string {
	return fmt.Sprintf("%s/snapshot", TopicPrefixSchema)
}

// SchemaGeneration returns the topic the current generation id is
// published to, letting subscribers cheaply detect a schema change
// without decoding the full snapshot.
//
// Example: lumengateway/schema/generation
func (Topics) SchemaGeneration() string {
	return fmt.Sprintf("%s/generation", TopicPrefixSchema)
}

// =============================================================================
// System Topics
// =============================================================================

// SystemStatus returns the daemon's online/offline status topic.
//
// Example: lumengateway/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// SystemGatewayLink returns the topic the gateway link's connection state
// is published to (connected, reconnecting, init).
//
// Example: lumengateway/system/gateway-link
func (Topics) SystemGatewayLink() string {
	return fmt.Sprintf("%s/gateway-link", TopicPrefixSystem)
}

// =============================================================================
// Wildcard Patterns for Subscriptions
// =============================================================================

// AllOutputLevels returns a pattern matching every output level topic.
//
// Pattern: lumengateway/output/+/level
func (Topics) AllOutputLevels() string {
	return fmt.Sprintf("%s/+/level", TopicPrefixOutput)
}

// AllButtonEvents returns a pattern matching every button press and
// release topic.
//
// Pattern: lumengateway/button/+/+/+
func (Topics) AllButtonEvents() string {
	return fmt.Sprintf("%s/+/+/+", TopicPrefixButton)
}

// AllTopics returns a pattern matching all lumengateway topics. Use with
// caution, this receives every message the daemon publishes.
//
// Pattern: lumengateway/#
func (Topics) AllTopics() string {
	return "lumengateway/#"
}
