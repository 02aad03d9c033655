package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Lumen Gateway daemon.
// All configuration is loaded from YAML and can be overridden by environment
// variables.
type Config struct {
	Gateway   GatewayConfig   `yaml:"gateway"`
	Reactor   ReactorConfig   `yaml:"reactor"`
	SiteFile  string          `yaml:"site_file"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	UI        UIConfig        `yaml:"ui"`
	Actuators ActuatorsConfig `yaml:"actuators"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// GatewayConfig describes how to reach and authenticate against the main
// repeater's integration port (§4.2, §6).
type GatewayConfig struct {
	// Strategy selects address resolution: "direct" or "multicast".
	Strategy string `yaml:"strategy"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`

	User     string `yaml:"user"`
	Password string `yaml:"password"`

	DiscoveryTimeoutSeconds int `yaml:"discovery_timeout_seconds"`

	// SchemaPath is the HTTP path of the gateway's configuration document
	// (§4.3), fetched from the same host on SchemaPort.
	SchemaPath string `yaml:"schema_path"`
	SchemaPort int     `yaml:"schema_port"`
}

// ReactorConfig tunes the event reactor's poll horizon.
type ReactorConfig struct {
	MaxPollMillis int `yaml:"max_poll_millis"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// UIConfig contains the HTTP/WebSocket UI surface's settings.
type UIConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	JWTSecret      string   `yaml:"jwt_secret"`
	AccessTokenTTL int      `yaml:"access_token_ttl_minutes"`
	Username       string   `yaml:"username"`
	Password       string   `yaml:"password"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// KeypadOrder is the preferred keypad ordering rendered into the UI
	// Snapshot document (§4.5); negative entries hide a keypad.
	KeypadOrder []int `yaml:"keypad_order"`
}

// ActuatorsConfig configures the non-native physical outputs this daemon
// drives directly.
type ActuatorsConfig struct {
	DMX  DMXConfig  `yaml:"dmx"`
	GPIO GPIOConfig `yaml:"gpio"`
}

// DMXConfig configures the DMX-512 serial sink.
type DMXConfig struct {
	Enabled bool   `yaml:"enabled"`
	Serial  string `yaml:"serial"`
}

// GPIOConfig configures the GPIO relay sink.
type GPIOConfig struct {
	Enabled bool `yaml:"enabled"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Load reads configuration from a YAML file and applies environment
// variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GATEWAY_SECTION_KEY, per
// SPEC_FULL's ambient-stack section (e.g. GATEWAY_MQTT_HOST,
// GATEWAY_UI_HOST).
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Strategy:                "direct",
			Port:                    23,
			User:                    "lutron",
			Password:                "integration",
			DiscoveryTimeoutSeconds: 3,
			SchemaPath:              "/DbXmlInfo.xml",
			SchemaPort:              80,
		},
		Reactor: ReactorConfig{
			MaxPollMillis: 60_000,
		},
		SiteFile: "./data/site.json",
		Database: DatabaseConfig{
			Path:        "./data/lumengateway.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "lumengateway",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
		},
		UI: UIConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			AccessTokenTTL: 15,
			Username:       "admin",
			Password:       "admin",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables follow the pattern
// GATEWAY_SECTION_KEY.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GATEWAY_HOST"); v != "" {
		cfg.Gateway.Host = v
	}
	if v := os.Getenv("GATEWAY_USER"); v != "" {
		cfg.Gateway.User = v
	}
	if v := os.Getenv("GATEWAY_PASSWORD"); v != "" {
		cfg.Gateway.Password = v
	}

	if v := os.Getenv("GATEWAY_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("GATEWAY_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GATEWAY_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GATEWAY_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("GATEWAY_UI_HOST"); v != "" {
		cfg.UI.Host = v
	}
	if v := os.Getenv("GATEWAY_JWT_SECRET"); v != "" {
		cfg.UI.JWTSecret = v
	}

	if v := os.Getenv("GATEWAY_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Gateway.Strategy != "direct" && c.Gateway.Strategy != "multicast" {
		errs = append(errs, "gateway.strategy must be \"direct\" or \"multicast\"")
	}
	if c.Gateway.Strategy == "direct" && c.Gateway.Host == "" {
		errs = append(errs, "gateway.host is required when gateway.strategy is \"direct\"")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.Enabled && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.UI.Port < 1 || c.UI.Port > 65535 {
		errs = append(errs, "ui.port must be between 1 and 65535")
	}

	// The JWT secret gates the command endpoint, which can synthesize
	// button presses and set output levels directly — empty or weak
	// secrets let an attacker forge tokens for a building's lighting
	// control.
	const minJWTSecretLength = 32
	if c.UI.JWTSecret == "" {
		errs = append(errs, "ui.jwt_secret is required (set GATEWAY_JWT_SECRET environment variable)")
	} else if len(c.UI.JWTSecret) < minJWTSecretLength {
		errs = append(errs, "ui.jwt_secret must be at least 32 characters for adequate security")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// AccessTokenTTLDuration returns the UI access-token lifetime as a
// Duration.
func (c *Config) AccessTokenTTLDuration() time.Duration {
	return time.Duration(c.UI.AccessTokenTTL) * time.Minute
}

// DiscoveryTimeoutDuration returns the multicast discovery timeout as a
// Duration.
func (c *Config) DiscoveryTimeoutDuration() time.Duration {
	return time.Duration(c.Gateway.DiscoveryTimeoutSeconds) * time.Second
}

// MaxPollDuration returns the reactor's maximum poll horizon as a
// Duration.
func (c *Config) MaxPollDuration() time.Duration {
	return time.Duration(c.Reactor.MaxPollMillis) * time.Millisecond
}
