package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_ValidConfig(t *testing.T) {
	content := `
gateway:
  strategy: direct
  host: "192.168.1.50"
  user: lutron
  password: integration
database:
  path: "/tmp/test.db"
  wal_mode: true
  busy_timeout: 5
mqtt:
  broker:
    host: "localhost"
    port: 1883
    client_id: "test-client"
  qos: 1
ui:
  host: "0.0.0.0"
  port: 8080
  jwt_secret: "test-secret-key-at-least-32-chars!"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Gateway.Host != "192.168.1.50" {
		t.Errorf("Gateway.Host = %q, want %q", cfg.Gateway.Host, "192.168.1.50")
	}

	if cfg.Database.Path != "/tmp/test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/test.db")
	}

	if cfg.MQTT.Broker.Host != "localhost" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "localhost")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("invalid: [yaml: content"), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	content := `
gateway:
  strategy: direct
  host: ""
database:
  path: "/tmp/test.db"
ui:
  port: 8080
  jwt_secret: "test-secret-key-at-least-32-chars!"
`
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := Load(configPath)
	if err == nil {
		t.Error("Load() expected validation error for empty gateway.host, got nil")
	}
}

func TestConfig_Validate(t *testing.T) {
	validJWTSecret := "test-secret-key-at-least-32-chars!"

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name: "valid config",
			config: &Config{
				Gateway:  GatewayConfig{Strategy: "direct", Host: "10.0.0.1"},
				Database: DatabaseConfig{Path: "/data/lumengateway.db"},
				MQTT:     MQTTConfig{Enabled: true, QoS: 1},
				UI:       UIConfig{Port: 8080, JWTSecret: validJWTSecret},
			},
			wantErr: false,
		},
		{
			name: "missing gateway host",
			config: &Config{
				Gateway:  GatewayConfig{Strategy: "direct", Host: ""},
				Database: DatabaseConfig{Path: "/data/lumengateway.db"},
				UI:       UIConfig{Port: 8080, JWTSecret: validJWTSecret},
			},
			wantErr: true,
		},
		{
			name: "invalid strategy",
			config: &Config{
				Gateway:  GatewayConfig{Strategy: "smoke-signal", Host: "10.0.0.1"},
				Database: DatabaseConfig{Path: "/data/lumengateway.db"},
				UI:       UIConfig{Port: 8080, JWTSecret: validJWTSecret},
			},
			wantErr: true,
		},
		{
			name: "missing database path",
			config: &Config{
				Gateway:  GatewayConfig{Strategy: "direct", Host: "10.0.0.1"},
				Database: DatabaseConfig{Path: ""},
				UI:       UIConfig{Port: 8080, JWTSecret: validJWTSecret},
			},
			wantErr: true,
		},
		{
			name: "invalid QoS",
			config: &Config{
				Gateway:  GatewayConfig{Strategy: "direct", Host: "10.0.0.1"},
				Database: DatabaseConfig{Path: "/data/lumengateway.db"},
				MQTT:     MQTTConfig{Enabled: true, QoS: 3},
				UI:       UIConfig{Port: 8080, JWTSecret: validJWTSecret},
			},
			wantErr: true,
		},
		{
			name: "invalid port low",
			config: &Config{
				Gateway:  GatewayConfig{Strategy: "direct", Host: "10.0.0.1"},
				Database: DatabaseConfig{Path: "/data/lumengateway.db"},
				UI:       UIConfig{Port: 0, JWTSecret: validJWTSecret},
			},
			wantErr: true,
		},
		{
			name: "invalid port high",
			config: &Config{
				Gateway:  GatewayConfig{Strategy: "direct", Host: "10.0.0.1"},
				Database: DatabaseConfig{Path: "/data/lumengateway.db"},
				UI:       UIConfig{Port: 70000, JWTSecret: validJWTSecret},
			},
			wantErr: true,
		},
		{
			name: "missing JWT secret",
			config: &Config{
				Gateway:  GatewayConfig{Strategy: "direct", Host: "10.0.0.1"},
				Database: DatabaseConfig{Path: "/data/lumengateway.db"},
				UI:       UIConfig{Port: 8080, JWTSecret: ""},
			},
			wantErr: true,
		},
		{
			name: "JWT secret too short",
			config: &Config{
				Gateway:  GatewayConfig{Strategy: "direct", Host: "10.0.0.1"},
				Database: DatabaseConfig{Path: "/data/lumengateway.db"},
				UI:       UIConfig{Port: 8080, JWTSecret: "short"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Durations(t *testing.T) {
	cfg := &Config{
		UI:      UIConfig{AccessTokenTTL: 15},
		Gateway: GatewayConfig{DiscoveryTimeoutSeconds: 3},
		Reactor: ReactorConfig{MaxPollMillis: 60_000},
	}

	if got := cfg.AccessTokenTTLDuration().Minutes(); got != 15 {
		t.Errorf("AccessTokenTTLDuration() = %v, want 15m", got)
	}
	if got := cfg.DiscoveryTimeoutDuration().Seconds(); got != 3 {
		t.Errorf("DiscoveryTimeoutDuration() = %v, want 3s", got)
	}
	if got := cfg.MaxPollDuration().Milliseconds(); got != 60_000 {
		t.Errorf("MaxPollDuration() = %v, want 60000ms", got)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	cfg := defaultConfig()

	t.Setenv("GATEWAY_HOST", "192.168.1.99")
	t.Setenv("GATEWAY_DATABASE_PATH", "/custom/path.db")
	t.Setenv("GATEWAY_MQTT_HOST", "mqtt.example.com")
	t.Setenv("GATEWAY_MQTT_USERNAME", "testuser")
	t.Setenv("GATEWAY_MQTT_PASSWORD", "testpass")
	t.Setenv("GATEWAY_UI_HOST", "192.168.1.1")
	t.Setenv("GATEWAY_INFLUXDB_TOKEN", "secret-token")
	t.Setenv("GATEWAY_JWT_SECRET", "jwt-secret")

	applyEnvOverrides(cfg)

	if cfg.Gateway.Host != "192.168.1.99" {
		t.Errorf("Gateway.Host = %q, want %q", cfg.Gateway.Host, "192.168.1.99")
	}

	if cfg.Database.Path != "/custom/path.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/custom/path.db")
	}

	if cfg.MQTT.Broker.Host != "mqtt.example.com" {
		t.Errorf("MQTT.Broker.Host = %q, want %q", cfg.MQTT.Broker.Host, "mqtt.example.com")
	}

	if cfg.MQTT.Auth.Username != "testuser" {
		t.Errorf("MQTT.Auth.Username = %q, want %q", cfg.MQTT.Auth.Username, "testuser")
	}

	if cfg.MQTT.Auth.Password != "testpass" {
		t.Errorf("MQTT.Auth.Password = %q, want %q", cfg.MQTT.Auth.Password, "testpass")
	}

	if cfg.UI.Host != "192.168.1.1" {
		t.Errorf("UI.Host = %q, want %q", cfg.UI.Host, "192.168.1.1")
	}

	if cfg.InfluxDB.Token != "secret-token" {
		t.Errorf("InfluxDB.Token = %q, want %q", cfg.InfluxDB.Token, "secret-token")
	}

	if cfg.UI.JWTSecret != "jwt-secret" {
		t.Errorf("UI.JWTSecret = %q, want %q", cfg.UI.JWTSecret, "jwt-secret")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Gateway.Strategy != "direct" {
		t.Error("defaultConfig should default to direct strategy")
	}

	if cfg.Database.Path == "" {
		t.Error("defaultConfig should have non-empty Database.Path")
	}

	if cfg.MQTT.Broker.Port != 1883 {
		t.Errorf("defaultConfig MQTT.Broker.Port = %d, want 1883", cfg.MQTT.Broker.Port)
	}

	if cfg.UI.Port != 8080 {
		t.Errorf("defaultConfig UI.Port = %d, want 8080", cfg.UI.Port)
	}
}
