// Package influxdb provides InfluxDB connectivity for DeviceCore.
//
// It wraps the official influxdb-client-go v2 library with DeviceCore-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package backs the optional device state-history sink: every
// deviceStateChanged notification from the control core may be mirrored
// here for trend queries, without this sink ever gating the synchronous
// notification path.
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    Enabled: true,
//	    URL:     "http://localhost:8086",
//	    Token:   "your-token",
//	    Org:     "devicecore",
//	    Bucket:  "metrics",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Record a state value
//	client.WriteDeviceState("light-living", "on_off", true)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency telemetry data.
package influxdb
