// Package events implements the Event & State Channel: it turns a plugin's
// raw state update into the atomic (deviceStateChanged, synthesized Event)
// pair spec.md describes, forwards plugin-emitted events verbatim, and
// mirrors every published notification outward over MQTT for the
// out-of-scope serving layer to subscribe to.
package events

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/homectl/devicecore/internal/device"
	"github.com/homectl/devicecore/internal/ids"
	"github.com/homectl/devicecore/internal/infrastructure/mqtt"
	"github.com/homectl/devicecore/internal/paramtype"
)

// Logger is the logging interface the channel uses for publish diagnostics.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// DeviceStore is the subset of devicemgr.Manager the channel needs: writing
// back an observed state value and reading a device back out to build
// notification payloads.
type DeviceStore interface {
	Device(id ids.DeviceID) (*device.Device, error)
	SetDeviceState(deviceID ids.DeviceID, stateTypeID ids.StateTypeID, value interface{}) error
}

// MQTTPublisher is the narrow slice of infrastructure/mqtt.Client the
// channel mirrors notifications through. Optional: a nil publisher simply
// means notifications aren't mirrored anywhere outside this process.
type MQTTPublisher interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// StateHistorySink records device state observations for trend queries.
// Optional and purely additive; implemented by infrastructure/influxdb's
// Client or a no-op.
type StateHistorySink interface {
	WriteDeviceState(deviceID string, stateTypeID string, value interface{})
}

// Listener receives every event published through the channel, whether
// synthesized from a state change or emitted verbatim by a plugin. The
// rule engine (C8) is the channel's listener.
type Listener interface {
	EventPublished(ev device.Event)
}

// Channel is the Event & State Channel. It owns no state of its own beyond
// its collaborators; the device state itself lives in DeviceStore.
type Channel struct {
	mu sync.Mutex

	devices  DeviceStore
	mqtt     MQTTPublisher
	history  StateHistorySink
	listener Listener
	logger   Logger

	topics mqtt.Topics
}

// New returns a Channel writing state observations through devices. Use
// the Set* methods to attach the optional MQTT mirror, history sink and
// rule-engine listener before traffic starts flowing.
func New(devices DeviceStore) *Channel {
	return &Channel{
		devices: devices,
		logger:  noopLogger{},
	}
}

func (c *Channel) SetLogger(logger Logger)               { c.logger = logger }
func (c *Channel) SetMQTTPublisher(p MQTTPublisher)       { c.mqtt = p }
func (c *Channel) SetStateHistorySink(s StateHistorySink) { c.history = s }
func (c *Channel) SetListener(l Listener)                 { c.listener = l }

// StateValueChanged implements devicemgr.EventSink. It records the new
// value, publishes deviceStateChanged, and synthesizes + publishes the
// identical-ID Event the state type auto-defines, in that order, as the
// atomic ordered pair spec.md requires.
func (c *Channel) StateValueChanged(deviceID ids.DeviceID, stateTypeID ids.StateTypeID, value interface{}) {
	if err := c.devices.SetDeviceState(deviceID, stateTypeID, value); err != nil {
		c.logger.Warn("dropped stateValueChanged for unknown device", "device_id", deviceID, "error", err)
		return
	}

	c.publishDeviceStateChanged(deviceID, stateTypeID, value)

	c.publishEvent(device.Event{
		EventTypeID:        ids.EventTypeID(stateTypeID),
		DeviceID:           deviceID,
		Params:             paramtype.ParamList{{Name: "value", Value: value}},
		IsStateChangeEvent: true,
	})
}

// EmitEvent implements devicemgr.EventSink. It forwards a plugin-originated
// event verbatim; unlike StateValueChanged it does not touch stored state.
func (c *Channel) EmitEvent(ev device.Event) {
	c.publishEvent(ev)
}

func (c *Channel) publishDeviceStateChanged(deviceID ids.DeviceID, stateTypeID ids.StateTypeID, value interface{}) {
	if c.history != nil {
		c.history.WriteDeviceState(string(deviceID), string(stateTypeID), value)
	}

	c.mirrorMQTT(c.topics.DeviceStateChanged(string(deviceID)), map[string]any{
		"device_id":     deviceID,
		"state_type_id": stateTypeID,
		"value":         value,
		"timestamp":     time.Now().UTC(),
	})
}

func (c *Channel) publishEvent(ev device.Event) {
	c.mirrorMQTT(c.topics.Event(string(ev.EventTypeID)), map[string]any{
		"event_type_id":        ev.EventTypeID,
		"device_id":            ev.DeviceID,
		"params":               ev.Params,
		"is_state_change_event": ev.IsStateChangeEvent,
	})

	c.mu.Lock()
	listener := c.listener
	c.mu.Unlock()
	if listener != nil {
		listener.EventPublished(ev)
	}
}

// --- devicemgr.Publisher ---

// DeviceSetupFinished implements devicemgr.Publisher.
func (c *Channel) DeviceSetupFinished(dev *device.Device, err error) {
	payload := map[string]any{"device_id": dev.ID, "success": err == nil}
	if err != nil {
		payload["error"] = err.Error()
	}
	c.mirrorMQTT(c.topics.DeviceSetupFinished(string(dev.ID)), payload)
}

// DevicesDiscovered implements devicemgr.Publisher.
func (c *Channel) DevicesDiscovered(classID ids.DeviceClassID, descriptors []device.Descriptor) {
	c.mirrorMQTT(c.topics.Event("devicesDiscovered"), map[string]any{
		"device_class_id": classID,
		"descriptors":      descriptors,
	})
}

// PairingFinished implements devicemgr.Publisher.
func (c *Channel) PairingFinished(txnID ids.PairingTransactionID, dev *device.Device, err error) {
	payload := map[string]any{"transaction_id": txnID, "success": err == nil}
	if dev != nil {
		payload["device_id"] = dev.ID
	}
	if err != nil {
		payload["error"] = err.Error()
	}
	c.mirrorMQTT(c.topics.PairingFinished(string(txnID)), payload)
}

// --- action.CompletionSink ---

// ActionCompleted implements action.CompletionSink.
func (c *Channel) ActionCompleted(actionID ids.ActionID, deviceID ids.DeviceID, err error) {
	payload := map[string]any{"action_id": actionID, "device_id": deviceID, "success": err == nil}
	if err != nil {
		payload["error"] = err.Error()
	}
	c.mirrorMQTT(c.topics.ActionExecuted(string(actionID)), payload)
}

func (c *Channel) mirrorMQTT(topic string, payload any) {
	if c.mqtt == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		c.logger.Warn("failed to marshal mirrored notification", "topic", topic, "error", err)
		return
	}
	if err := c.mqtt.Publish(topic, data, 0, false); err != nil {
		c.logger.Warn("failed to mirror notification over mqtt", "topic", topic, "error", err)
	}
}
