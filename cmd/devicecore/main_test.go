package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestRun_InvalidConfig verifies run fails with invalid config path.
func TestRun_InvalidConfig(t *testing.T) {
	originalEnv := os.Getenv("DEVICECORE_CONFIG")
	defer os.Setenv("DEVICECORE_CONFIG", originalEnv)

	os.Setenv("DEVICECORE_CONFIG", "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

// TestRun_MissingDatabasePath verifies run fails when database path is invalid.
func TestRun_MissingDatabasePath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")

	configContent := `
site:
  id: test-site

database:
  path: ""
  wal_mode: true
  busy_timeout: 5

mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
    client_id: "test-client"
    tls: false
  qos: 1
  reconnect:
    initial_delay: 1
    max_delay: 60

catalog:
  manifest_dir: "` + tmpDir + `"

hardware_bus:
  timer_interval: 15s
  radio_enabled: false
  upnp_enabled: false

influxdb:
  enabled: false

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("DEVICECORE_CONFIG")
	defer os.Setenv("DEVICECORE_CONFIG", originalEnv)
	os.Setenv("DEVICECORE_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail with empty database path")
	}
}

// TestGetConfigPath_Default verifies default config path.
func TestGetConfigPath_Default(t *testing.T) {
	originalEnv := os.Getenv("DEVICECORE_CONFIG")
	defer os.Setenv("DEVICECORE_CONFIG", originalEnv)

	os.Unsetenv("DEVICECORE_CONFIG")

	path := getConfigPath()
	if path != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", path, defaultConfigPath)
	}
}

// TestGetConfigPath_EnvOverride verifies environment variable override.
func TestGetConfigPath_EnvOverride(t *testing.T) {
	originalEnv := os.Getenv("DEVICECORE_CONFIG")
	defer os.Setenv("DEVICECORE_CONFIG", originalEnv)

	expected := "/custom/path/config.yaml"
	os.Setenv("DEVICECORE_CONFIG", expected)

	path := getConfigPath()
	if path != expected {
		t.Errorf("getConfigPath() = %q, want %q", path, expected)
	}
}

// TestRun_SuccessfulStartupAndShutdown tests full startup with running
// services. Requires an MQTT broker at 127.0.0.1:1883; if none is
// reachable run() is expected to fail at the MQTT connect step, which this
// test tolerates and logs rather than asserting on.
func TestRun_SuccessfulStartupAndShutdown(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "test-config.yaml")
	dbPath := filepath.Join(tmpDir, "test.db")
	manifestDir := filepath.Join(tmpDir, "plugins")
	if err := os.MkdirAll(manifestDir, 0750); err != nil {
		t.Fatalf("creating manifest dir: %v", err)
	}

	configContent := `
site:
  id: test-site

database:
  path: "` + dbPath + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  broker:
    host: "127.0.0.1"
    port: 1883
    client_id: "test-successful-startup"
    tls: false
  qos: 1
  reconnect:
    initial_delay: 1
    max_delay: 5

catalog:
  manifest_dir: "` + manifestDir + `"

hardware_bus:
  timer_interval: 15s
  radio_enabled: false
  upnp_enabled: false

influxdb:
  enabled: false

logging:
  level: info
  format: text
  output: stdout
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	originalEnv := os.Getenv("DEVICECORE_CONFIG")
	defer os.Setenv("DEVICECORE_CONFIG", originalEnv)
	os.Setenv("DEVICECORE_CONFIG", configPath)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := run(ctx)
	if err != nil {
		t.Logf("run() returned error: %v (may be due to missing MQTT broker)", err)
	}
}
