package influxdb

import (
	"fmt"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteDeviceState records one device state value for trend queries.
// This is the state-history sink's write path: a deviceStateChanged
// notification is mirrored here fire-and-forget, never gating the
// synchronous publish path. Bool/int64/float64/string values keep
// their type; anything else is written as its string representation.
func (c *Client) WriteDeviceState(deviceID string, stateTypeID string, value interface{}) {
	if !c.IsConnected() {
		return
	}

	fields := map[string]interface{}{}
	switch v := value.(type) {
	case bool, int64, float64, string:
		fields["value"] = v
	case int:
		fields["value"] = int64(v)
	case float32:
		fields["value"] = float64(v)
	default:
		fields["value"] = fmt.Sprint(v)
	}

	point := write.NewPoint(
		"device_state",
		map[string]string{
			"device_id":     deviceID,
			"state_type_id": stateTypeID,
		},
		fields,
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WritePoint writes a custom point for measurements WriteDeviceState
// doesn't fit. tags should stay low-cardinality.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, time.Now())
	c.writeAPI.WritePoint(point)
}

// WritePointWithTime is WritePoint for data whose timestamp isn't now.
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
