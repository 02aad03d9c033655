// Package mqtt provides MQTT client connectivity for Lumen Gateway.
//
// This package manages:
//   - Connection to a Mosquitto broker with auto-reconnect
//   - Message publishing with QoS guarantees
//   - Topic subscriptions with wildcard support
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// The daemon uses MQTT as an optional event bus: it publishes Schema Store
// snapshots, output level and LED deltas, and button press/release events
// so other building systems can subscribe without touching the gateway
// link's telnet protocol directly.
//
//	Lumen Gateway ↔ MQTT Broker ↔ External Subscribers
//
// # Security Considerations
//
//   - TLS is required for production deployments (cfg.Broker.TLS=true)
//   - Credentials are validated against broker ACL
//   - Anonymous access is only for local development
//   - Message payloads are not encrypted beyond TLS transport
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Subscribe to all output level updates
//	err = client.Subscribe(mqtt.Topics{}.AllOutputLevels(), 1,
//	    func(topic string, payload []byte) error {
//	        log.Printf("Received: %s = %s", topic, payload)
//	        return nil
//	    })
//
//	// Publish a settled output level
//	topic := mqtt.Topics{}.OutputLevel(42)
//	client.Publish(topic, []byte(`{"level":75}`), 1, false)
package mqtt
